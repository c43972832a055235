package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brendan.keane/svcbase/internal/mcp"
)

// MCPHandler handles MCP server commands
type MCPHandler struct {
	logger zerolog.Logger
}

// NewMCPHandler creates a new MCP command handler
func NewMCPHandler(logger zerolog.Logger) *MCPHandler {
	return &MCPHandler{
		logger: logger.With().Str("handler", "mcp").Logger(),
	}
}

// Server builds the MCP server for the configured service without starting it
func (h *MCPHandler) Server(cmd *cobra.Command) (*mcp.Server, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return nil, err
	}

	client, err := newServiceClient(h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create service client")
		return nil, err
	}
	headers, err := cfg.HeaderSet()
	if err != nil {
		return nil, err
	}

	opts := []mcp.Option{mcp.WithHeaders(headers)}
	if cfg.OpenAPI != "" {
		ctx, cancel := context.WithTimeout(commandContext(cmd), commandTimeout)
		defer cancel()

		catalog, err := loadCatalog(ctx, h.logger, cfg)
		if err != nil {
			h.logger.Error().Err(err).Str("openapi", cfg.OpenAPI).Msg("failed to load OpenAPI document")
			return nil, err
		}
		opts = append(opts, mcp.WithCatalog(catalog))
	}

	h.logger.Debug().
		Str("base_address", client.Option().BaseAddress).
		Str("controller", client.Option().Controller).
		Bool("sigv4", cfg.SigV4).
		Int("headers", len(headers)).
		Msg("starting MCP server")

	return mcp.NewServer(h.logger, client, opts...), nil
}

// Execute handles the MCP server command
func (h *MCPHandler) Execute(cmd *cobra.Command, args []string) error {
	server, err := h.Server(cmd)
	if err != nil {
		return err
	}
	return server.ServeStdio()
}
