package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/rs/zerolog"
)

// Content is a wire-ready request payload. Header carries the resolved
// Content-Type followed by the caller's headers.
type Content struct {
	payload   []byte
	MediaType string
	Header    http.Header
}

func (c *Content) Bytes() []byte {
	return c.payload
}

func (c *Content) Len() int {
	return len(c.payload)
}

// Reader returns a fresh reader over the payload.
func (c *Content) Reader() io.Reader {
	return bytes.NewReader(c.payload)
}

// BuildRelativeURL returns "{controller}/{action}" followed by the query
// string of params when there are any.
func BuildRelativeURL(controller, action string, params ...QueryParam) string {
	relative := controller + "/" + action
	if len(params) == 0 {
		return relative
	}
	return relative + "?" + QueryString(params)
}

// BuildContent turns body into a payload and resolves the Content-Type
// header: an explicit caller header wins, then hint, then the media type of a
// string body. Unknown with a non-string body sets no Content-Type.
func BuildContent(body any, headers HeaderSet, hint ContentType) (*Content, error) {
	content := &Content{
		payload: []byte{},
		Header:  make(http.Header),
	}

	switch v := body.(type) {
	case string:
		content.payload = append(content.payload, v...)
		content.MediaType = MIMEFormURLEncoded
	default:
		if isEmptyBody(body) {
			break
		}
		data, err := marshalJSON(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEncoding, "failed to serialize request body").
				WithContext("body_type", fmt.Sprintf("%T", body))
		}
		content.payload = data
		content.MediaType = MIMEApplicationJSON
	}

	if ct, ok := headers.Get("Content-Type"); ok {
		content.Header.Set("Content-Type", ct)
	} else if mime := hint.MIME(); mime != "" {
		content.Header.Set("Content-Type", mime)
	} else if content.MediaType == MIMEFormURLEncoded {
		content.Header.Set("Content-Type", content.MediaType)
	}

	for name, value := range headers {
		content.Header.Set(name, value)
	}

	return content, nil
}

// ResolveURL resolves relative against base. The query part of relative is
// kept verbatim.
func ResolveURL(base, relative string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeValidation, "invalid base address").
			WithContext("base_address", base)
	}

	path, query, hasQuery := strings.Cut(relative, "?")
	if !strings.HasPrefix(path, "/") {
		path = "./" + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeValidation, "invalid relative URL").
			WithContext("relative_url", relative)
	}

	resolved := baseURL.ResolveReference(ref)
	resolved.RawQuery = ""
	if hasQuery {
		resolved.RawQuery = query
	}
	return resolved.String(), nil
}

// isEmptyBody reports nil, typed nil and bodies whose string form is empty.
func isEmptyBody(body any) bool {
	if body == nil {
		return true
	}
	rv := reflect.ValueOf(body)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
	}
	if s, ok := body.(fmt.Stringer); ok && s.String() == "" {
		return true
	}
	return false
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// RequestBuilder builds requests for one service controller
type RequestBuilder struct {
	logger    zerolog.Logger
	option    ServiceOption
	userAgent string
}

// NewRequestBuilder creates a request builder bound to option
func NewRequestBuilder(logger zerolog.Logger, option ServiceOption, userAgent string) *RequestBuilder {
	return &RequestBuilder{
		logger:    logger.With().Str("component", "request_builder").Logger(),
		option:    option,
		userAgent: userAgent,
	}
}

// RelativeURL builds the controller-relative URL for action.
func (b *RequestBuilder) RelativeURL(action string, params ...QueryParam) string {
	return BuildRelativeURL(b.option.Controller, action, params...)
}

// Build creates a request for action. A nil content sends no body.
func (b *RequestBuilder) Build(ctx context.Context, method, action string, params []QueryParam, content *Content) (*http.Request, error) {
	targetURL, err := ResolveURL(b.option.BaseAddress, b.RelativeURL(action, params...))
	if err != nil {
		return nil, err
	}
	return b.BuildAbsolute(ctx, method, targetURL, content)
}

// BuildAbsolute creates a request for a fully qualified URL.
func (b *RequestBuilder) BuildAbsolute(ctx context.Context, method, targetURL string, content *Content) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if content != nil {
		body = content.Reader()
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to create HTTP request").
			WithContext("method", method).
			WithContext("url", targetURL)
	}

	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}
	if content != nil {
		for name, values := range content.Header {
			req.Header[name] = values
		}
		b.logger.Debug().
			Str("method", method).
			Str("target_url", targetURL).
			Int("body_length", content.Len()).
			Str("content_type", req.Header.Get("Content-Type")).
			Msg("request built")
	}

	return req, nil
}
