// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents recall from and write to memoria namespaces.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/utils"
)

type Config struct {
	// Stores resolves namespaces
	Stores *memoria.Registry

	// Namespace is used by tool calls that do not name one
	Namespace string

	// ReadOnly leaves out the append tool
	ReadOnly bool

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the retrieval tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "memoria",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Stores == nil {
			return nil, errors.New("store registry is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        retrieveToolName,
			Description: retrieveDescription,
		}, s.handleRetrieve)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        episodesToolName,
			Description: episodesDescription,
		}, s.handleEpisodes)

		if !c.ReadOnly {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        appendToolName,
				Description: appendDescription,
			}, s.handleAppend)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) store(namespace string) (*memoria.Store, error) {
	if namespace == "" {
		namespace = s.config.Namespace
	}
	return s.config.Stores.Get(namespace)
}
