package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brendan.keane/svcbase/internal/config"
	"github.com/brendan.keane/svcbase/internal/errors"
)

// StreamHandler handles the download and upload commands
type StreamHandler struct {
	logger zerolog.Logger
}

// NewStreamHandler creates a new stream command handler
func NewStreamHandler(logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		logger: logger.With().Str("handler", "stream").Logger(),
	}
}

// Download handles `download ACTION|URL [-o file]`. An absolute URL is
// fetched as is; anything else is an action of the configured controller.
func (h *StreamHandler) Download(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target := args[0]
	absolute := isAbsoluteURL(target)
	if absolute {
		cfg = withOrigin(cfg, target)
	}

	client, err := newServiceClient(h.logger, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), commandTimeout)
	defer cancel()

	var body io.ReadCloser
	if absolute {
		body, err = client.DownloadFile(ctx, target)
	} else {
		params, perr := cfg.QueryParams()
		if perr != nil {
			return perr
		}
		body, err = client.Download(ctx, target, params...)
	}
	if err != nil {
		return err
	}
	defer body.Close()

	output, _ := cmd.Flags().GetString("output")
	var w io.Writer = cmd.OutOrStdout()
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create output file").
				WithContext("path", output)
		}
		defer f.Close()
		w = f
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "download interrupted").
			WithContext("url", target)
	}
	h.logger.Info().Int64("bytes", n).Str("output", output).Msg("download complete")
	return nil
}

// Upload handles `upload URL FILE`. The part's content type comes from the
// file extension.
func (h *StreamHandler) Upload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target, path := args[0], args[1]
	if !isAbsoluteURL(target) {
		return errors.New(errors.ErrorTypeValidation, "upload needs an absolute URL").
			WithContext("field", "url").
			WithContext("url", target)
	}
	cfg = withOrigin(cfg, target)

	client, err := newServiceClient(h.logger, cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "cannot open upload file").
			WithContext("field", "file").
			WithContext("path", path)
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), commandTimeout)
	defer cancel()

	text, err := client.UploadFile(ctx, target, contentType, f, ext)
	if err != nil {
		return err
	}
	if text == "" {
		h.logger.Warn().Str("url", target).Msg("upload returned no content")
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// withOrigin targets the URL's origin when no service was configured
func withOrigin(cfg *config.Config, target string) *config.Config {
	if cfg.Base != "" || cfg.Service != "" {
		return cfg
	}
	u, err := url.Parse(target)
	if err != nil {
		return cfg
	}
	copied := *cfg
	copied.Base = u.Scheme + "://" + u.Host + "/"
	return &copied
}
