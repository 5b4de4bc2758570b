package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
)

// DocumentResponse describes one source document in the store.
type DocumentResponse struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
	Updated string `json:"updated"`
}

// IngestRequest is the body for POST /v1/ingest. An empty document name
// ingests every supported document in the store.
type IngestRequest struct {
	Document string `json:"document,omitempty"`
}

// IngestResponse reports the outcome of an ingest run.
type IngestResponse struct {
	Reports []ingest.Report `json:"reports"`
	Count   int             `json:"count"`
}

// DeleteResponse reports how many records a deletion removed.
type DeleteResponse struct {
	RecordsDeleted int    `json:"records_deleted"`
	FileName       string `json:"file_name,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListDocuments returns every document in the blob store.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	if s.config.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "document listing is not configured: blob store is required",
		})
	}

	objects, err := s.config.Store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to list documents",
		})
	}

	documents := make([]DocumentResponse, 0, len(objects))
	for _, obj := range objects {
		documents = append(documents, DocumentResponse{
			Name:    obj.Name,
			URL:     obj.URL,
			Size:    obj.Size,
			Updated: obj.Updated.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(map[string]any{
		"count":     len(documents),
		"documents": documents,
	})
}

// handleIngest runs the ingestion pipeline for one named document, or for
// every supported document when no name is given.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingestion is not configured",
		})
	}

	var req IngestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "invalid request body",
			})
		}
	}

	ctx := c.Context()

	if req.Document != "" {
		report, err := s.pipeline.IngestByName(ctx, req.Document)
		if err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, blobstore.ErrNotFound) {
				status = fiber.StatusNotFound
			}
			if errors.Is(err, extract.ErrUnsupportedFormat) {
				status = fiber.StatusUnprocessableEntity
			}
			return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
		}

		return c.JSON(IngestResponse{
			Reports: []ingest.Report{report},
			Count:   1,
		})
	}

	reports, err := s.pipeline.IngestAll(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(IngestResponse{
		Reports: reports,
		Count:   len(reports),
	})
}

// handleDeleteRecords deletes the records for one document when file_name is
// given, or every record otherwise.
func (s *Server) handleDeleteRecords(c *fiber.Ctx) error {
	if s.pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingestion is not configured",
		})
	}

	ctx := c.Context()
	fileName := c.Query("file_name")

	if fileName != "" {
		removed, err := s.pipeline.Delete(ctx, fileName)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error: err.Error(),
			})
		}

		s.logger.Info("deleted document records",
			zap.String("file_name", fileName),
			zap.Int("records", removed),
		)

		return c.JSON(DeleteResponse{
			RecordsDeleted: removed,
			FileName:       fileName,
		})
	}

	removed, err := s.pipeline.Purge(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	s.logger.Info("purged index",
		zap.Int("records", removed),
	)

	return c.JSON(DeleteResponse{RecordsDeleted: removed})
}
