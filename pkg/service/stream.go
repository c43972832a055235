package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/brendan.keane/svcbase/internal/errors"
	"golang.org/x/sync/errgroup"
)

const (
	uploadFieldName = "file"
	uploadFileStem  = "somename"
)

// Download GETs action and returns the live response body. Every response
// header is logged, multiple values joined by a space. The caller closes the
// returned reader.
func (c *Client) Download(ctx context.Context, action string, params ...QueryParam) (io.ReadCloser, error) {
	logger := c.logger.With().Str("method", http.MethodGet).Str("action", action).Logger()

	req, err := c.builder.Build(ctx, http.MethodGet, action, params, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(logger, req)
	if err != nil {
		return nil, err
	}

	for name, values := range resp.Header {
		logger.Info().Msgf("%s : %s", name, strings.Join(values, " "))
	}

	return resp.Body, nil
}

// DownloadFile GETs an absolute URL and returns the live response body.
func (c *Client) DownloadFile(ctx context.Context, absoluteURL string) (io.ReadCloser, error) {
	logger := c.logger.With().Str("method", http.MethodGet).Str("url", absoluteURL).Logger()

	req, err := c.builder.BuildAbsolute(ctx, http.MethodGet, absoluteURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(logger, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// UploadFile streams src to targetURL as a single multipart/form-data part
// named "file" with filename "somename.{ext}". A 2xx response returns its
// body text. Any other status returns "" and no error. src is not closed.
func (c *Client) UploadFile(ctx context.Context, targetURL, contentType string, src io.Reader, ext string) (string, error) {
	logger := c.logger.With().Str("method", http.MethodPost).Str("url", targetURL).Logger()

	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(newBoundary()); err != nil {
		pw.Close()
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to set multipart boundary")
	}

	req, err := c.builder.BuildAbsolute(ctx, http.MethodPost, targetURL, nil)
	if err != nil {
		pw.Close()
		return "", err
	}
	req.Body = pr
	req.ContentLength = -1
	req.GetBody = nil
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var g errgroup.Group
	g.Go(func() error {
		err := writeFilePart(mw, contentType, ext, src)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
		return err
	})

	resp, err := c.do(logger, req)
	if err != nil {
		pr.CloseWithError(err)
		g.Wait()
		return "", err
	}
	defer resp.Body.Close()

	text, readErr := readText(resp)
	pr.Close()
	if werr := g.Wait(); werr != nil && !stderrors.Is(werr, io.ErrClosedPipe) {
		logger.Debug().Err(werr).Msg("multipart writer stopped early")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil
	}
	if readErr != nil {
		return "", errors.Wrap(readErr, errors.ErrorTypeNetwork, "failed to read upload response").
			WithContext("url", targetURL)
	}
	return text, nil
}

func writeFilePart(mw *multipart.Writer, contentType, ext string, src io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(uploadFieldName), escapeQuotes(uploadFileStem+"."+ext)))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

// newBoundary derives a boundary from the current time in 100ns ticks.
func newBoundary() string {
	ticks := time.Now().UnixNano() / 100
	return "------------" + strconv.FormatInt(ticks, 16)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
