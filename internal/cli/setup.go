package cli

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/brendan.keane/svcbase/internal/config"
	"github.com/brendan.keane/svcbase/internal/errors"
	svchttp "github.com/brendan.keane/svcbase/pkg/http"
	"github.com/brendan.keane/svcbase/pkg/openapi"
	"github.com/brendan.keane/svcbase/pkg/service"
)

const commandTimeout = 30 * time.Second

// loadConfig returns the config stored by the root command, or loads it from
// the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := config.FromContext(ctx); ok {
			return cfg, nil
		}
	}
	return config.LoadFromFlags(cmd.Flags())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newDoer builds the transport: lambda:// aware, SigV4 signed when asked.
func newDoer(logger zerolog.Logger, cfg *config.Config) service.Doer {
	client := svchttp.NewClient()
	if !cfg.SigV4 {
		return client
	}
	return svchttp.NewSigner(client, cfg.SigV4Service, svchttp.WithSignerLogger(logger))
}

// newServiceClient validates cfg and builds the client for its target service
func newServiceClient(logger zerolog.Logger, cfg *config.Config) (*service.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	return service.New(provider, logger, service.WithDoer(newDoer(logger, cfg)))
}

// loadCatalog loads the OpenAPI document named by --openapi
func loadCatalog(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (*openapi.Catalog, error) {
	if cfg.OpenAPI == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "OpenAPI document is required").
			WithContext("config_type", "openapi").
			WithContext("suggestion", "use --openapi or set SVCBASE_OPENAPI")
	}
	catalog := openapi.NewCatalog(newDoer(logger, cfg))
	if err := catalog.Load(ctx, cfg.OpenAPI); err != nil {
		return nil, err
	}
	return catalog, nil
}

// callOptions turns the call shaping flags into service call options
func callOptions(cfg *config.Config) ([]service.CallOption, error) {
	headers, err := cfg.HeaderSet()
	if err != nil {
		return nil, err
	}
	params, err := cfg.QueryParams()
	if err != nil {
		return nil, err
	}
	opts := []service.CallOption{service.WithHeaders(headers), service.WithParams(params...)}

	if cfg.Data != "" {
		opts = append(opts, service.WithBody(requestBody(cfg.Data)))
	}
	hint, ok, err := cfg.ContentTypeHint()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, service.WithContentType(hint))
	}
	return opts, nil
}

// requestBody sends JSON objects and arrays as JSON and anything else as a
// raw string.
func requestBody(data string) any {
	trimmed := strings.TrimSpace(data)
	if gjson.Valid(trimmed) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return json.RawMessage(trimmed)
	}
	return data
}
