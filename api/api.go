package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/ingest"
)

// Server is the API server for managing and querying the Stacks index
type Server struct {
	config   Config
	pipeline *ingest.Pipeline
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The pipeline is injected to allow sharing with other components
// (e.g., the directory watcher when serving alongside it).
func NewServer(config Config, pipeline *ingest.Pipeline, mcpServer *mcp.Server, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/documents", s.handleListDocuments)
	app.Post("/v1/ingest", s.handleIngest)
	app.Delete("/v1/records", s.handleDeleteRecords)

	if mcpServer != nil {
		if handler := mcpServer.Handler(); handler != nil {
			app.All("/mcp", adaptor.HTTPHandler(handler))
		}
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
