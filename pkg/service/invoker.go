package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Post sends body to action and decodes a 200 response into T.
//
// A 200 whose text is empty, null or not decodable yields the zero T and an
// error-level log entry carrying the raw text; it is not an error. A 400 logs
// the action, the request body and the response text, then returns a
// *TransferError. Any other status returns a *TransferError.
func Post[T any](ctx context.Context, c *Client, action string, opts ...CallOption) (T, error) {
	var zero T
	call := c.newCall(opts)
	logger := c.logger.With().Str("method", http.MethodPost).Str("action", action).Logger()

	content, err := BuildContent(call.body, call.headers, call.contentType)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build request content")
		return zero, err
	}

	req, err := c.builder.Build(ctx, http.MethodPost, action, call.params, content)
	if err != nil {
		return zero, err
	}

	resp, err := c.do(logger, req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		text, err := readText(resp)
		if err != nil {
			return zero, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to read response body").
				WithContext("url", req.URL.String())
		}
		return decode[T](logger, text), nil

	case http.StatusBadRequest:
		text, err := readText(resp)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read bad request response body")
		}
		logger.Info().Msg(action)
		if !isEmptyBody(call.body) {
			if data, err := marshalJSON(call.body); err == nil {
				logger.Info().RawJSON("body", data).Msg("request body")
			}
		}
		logger.Error().Str("response", text).Msg("bad request")
		return zero, newTransferError(resp.StatusCode, action)

	default:
		return zero, newTransferError(resp.StatusCode, action)
	}
}

// Get calls action and decodes the response into T whatever its status.
// Empty, null or undecodable text yields the zero T and an error-level log
// entry, as with Post.
func Get[T any](ctx context.Context, c *Client, action string, opts ...CallOption) (T, error) {
	var zero T
	call := c.newCall(opts)
	logger := c.logger.With().Str("method", http.MethodGet).Str("action", action).Logger()

	req, err := c.builder.Build(ctx, http.MethodGet, action, call.params, headerContent(call.headers))
	if err != nil {
		return zero, err
	}

	resp, err := c.do(logger, req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	text, err := readText(resp)
	if err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to read response body").
			WithContext("url", req.URL.String())
	}
	return decode[T](logger, text), nil
}

// decode unmarshals text into T, logging and returning the zero T when
// text is not JSON or is JSON null.
func decode[T any](logger zerolog.Logger, text string) T {
	var result T
	if !gjson.Valid(text) {
		logger.Error().Str("response", text).Msg("response is not valid JSON")
		return result
	}
	if gjson.Parse(text).Type == gjson.Null {
		logger.Error().Str("response", text).Msg("response deserialized to an empty result")
		return result
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		var zero T
		logger.Error().Err(err).Str("response", text).Msg("failed to deserialize response")
		return zero
	}
	return result
}

// headerContent carries caller headers on a bodiless request.
func headerContent(headers HeaderSet) *Content {
	content := &Content{payload: []byte{}, Header: make(http.Header)}
	for name, value := range headers {
		content.Header.Set(name, value)
	}
	return content
}

func (c *Client) do(logger zerolog.Logger, req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	resp, err := c.doer.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error().
			Err(err).
			Dur("duration", duration).
			Msg("HTTP request failed")
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "HTTP request failed").
			WithContext("url", req.URL.String()).
			WithContext("duration", duration)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("HTTP request completed")

	return resp, nil
}

func readText(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
