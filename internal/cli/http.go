package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/brendan.keane/svcbase/internal/config"
	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/logger"
	"github.com/brendan.keane/svcbase/pkg/openapi"
	"github.com/brendan.keane/svcbase/pkg/service"
)

// CallHandler handles the post and get commands
type CallHandler struct {
	logger zerolog.Logger
}

// NewCallHandler creates a new call command handler
func NewCallHandler(logger zerolog.Logger) *CallHandler {
	return &CallHandler{
		logger: logger.With().Str("handler", "call").Logger(),
	}
}

// Post handles `post ACTION`
func (h *CallHandler) Post(cmd *cobra.Command, args []string) error {
	return h.execute(cmd, http.MethodPost, args[0])
}

// Get handles `get ACTION`
func (h *CallHandler) Get(cmd *cobra.Command, args []string) error {
	return h.execute(cmd, http.MethodGet, args[0])
}

func (h *CallHandler) execute(cmd *cobra.Command, method, action string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	client, err := newServiceClient(h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create service client")
		return err
	}
	opts, err := callOptions(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), commandTimeout)
	defer cancel()

	log := logger.ForAction(h.logger, method, action)
	log.Debug().
		Str("url", client.RelativeURL(action)).
		Msg("processing call command")

	var result json.RawMessage
	switch method {
	case http.MethodPost:
		if hint, ok := h.catalogHint(ctx, cfg, client, action); ok {
			opts = append([]service.CallOption{service.WithContentType(hint)}, opts...)
		}
		result, err = service.Post[json.RawMessage](ctx, client, action, opts...)
	default:
		result, err = service.Get[json.RawMessage](ctx, client, action, opts...)
	}
	if err != nil {
		if te, ok := service.IsTransferError(err); ok {
			return transferError(method, action, te)
		}
		return err
	}

	return writeResult(cmd.OutOrStdout(), result, cfg.Select)
}

// transferError categorizes a non-200 POST answer, keeping the TransferError
// reachable through errors.As.
func transferError(method, action string, te *service.TransferError) *errors.Error {
	return errors.Wrapf(te, errors.ErrorTypeTransfer, "%s %s rejected", method, action).
		WithContext("status_code", te.StatusCode).
		WithContext("status", te.Status).
		WithContext("action", te.Action)
}

// catalogHint suggests a content type from the OpenAPI document when the
// caller gave none. Catalog failures only cost the hint.
func (h *CallHandler) catalogHint(ctx context.Context, cfg *config.Config, client *service.Client, action string) (service.ContentType, bool) {
	if cfg.OpenAPI == "" || cfg.ContentType != "" {
		return service.Unknown, false
	}
	catalog, err := loadCatalog(ctx, h.logger, cfg)
	if err != nil {
		h.logger.Warn().Err(err).Msg("OpenAPI document unavailable, no content type hint")
		return service.Unknown, false
	}
	a, ok := catalog.Find(client.Option().Controller, action, http.MethodPost)
	if !ok {
		return service.Unknown, false
	}
	hint := openapi.ContentTypeFor(a)
	h.logger.Debug().Str("action", action).Stringer("content_type", hint).Msg("content type from OpenAPI")
	return hint, hint != service.Unknown
}

// writeResult prints result, narrowed by a gjson path when selectPath is set
func writeResult(w io.Writer, result json.RawMessage, selectPath string) error {
	if len(result) == 0 {
		result = json.RawMessage("null")
	}

	if selectPath != "" {
		r := gjson.GetBytes(result, selectPath)
		if !r.Exists() {
			return errors.New(errors.ErrorTypeValidation, "select path matched nothing").
				WithContext("field", "select").
				WithContext("path", selectPath)
		}
		if r.Type == gjson.String {
			_, err := fmt.Fprintln(w, r.String())
			return err
		}
		result = json.RawMessage(r.Raw)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		out.Reset()
		out.Write(result)
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}
