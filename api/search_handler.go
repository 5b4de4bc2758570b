package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/stacks/api/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
//   - threshold (optional, default 0): minimum similarity score, exclusive
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	// Verify search is configured
	if s.config.IndexDriver == nil || s.config.Embedder == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured: index driver and embedder are required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	input := apisearch.SearchInput{Query: query}

	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		input.TopK = parsed
	}

	// Score ranges vary by index driver: cosine similarity reaches 1.0
	// exactly and some metrics go negative, so any finite value is valid.
	if thresholdStr := c.Query("threshold"); thresholdStr != "" {
		parsed, err := strconv.ParseFloat(thresholdStr, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "threshold must be a number",
			})
		}
		input.Threshold = float32(parsed)
	}

	output, err := apisearch.Search(
		c.Context(),
		input,
		s.config.Embedder,
		s.config.IndexDriver,
		s.logger,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}
