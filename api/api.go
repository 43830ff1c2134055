package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
)

// Server is the API server for reading and writing memoria namespaces.
type Server struct {
	config Config
	stores *memoria.Registry
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The registry is injected so the MCP
// server and the maintenance job can share open namespaces with it.
func NewServer(config Config, stores *memoria.Registry, log *slog.Logger) (*Server, error) {
	if stores == nil {
		return nil, errors.New("store registry is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		stores: stores,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/namespaces", s.handleListNamespaces)

	ns := v1.Group("/namespaces/:namespace")
	ns.Post("/init", s.handleInit)
	ns.Post("/reset", s.handleReset)
	ns.Get("/messages", s.handleReadMessages)
	ns.Post("/messages", s.handleAppend)
	ns.Delete("/messages", s.handleTruncate)
	ns.Get("/retrieve", s.handleRetrieve)
	ns.Get("/episodes", s.handleRetrieveEpisodes)
	ns.Get("/summaries", s.handleSummaries)
	ns.Get("/stats", s.handleStats)
	ns.Post("/rebuild", s.handleRebuild)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"root", s.stores.Root(),
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
