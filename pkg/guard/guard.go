// Package guard provides pre-handler request guards for services that
// receive calls from svcbase clients.
//
// A guard is plain net/http middleware; Gin adapts one for a gin engine.
package guard

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares. The first in the list is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Envelope is the JSON body written by the default rejection.
type Envelope struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// RejectFunc writes the response for a rejected request.
type RejectFunc func(w http.ResponseWriter, r *http.Request)

type options struct {
	code       int
	message    string
	httpStatus int
	reject     RejectFunc
}

// Option configures NonEmptyBody.
type Option func(*options)

// WithCode sets the status code reported inside the rejection envelope.
func WithCode(code int) Option {
	return func(o *options) { o.code = code }
}

// WithMessage sets the rejection message.
func WithMessage(message string) Option {
	return func(o *options) { o.message = message }
}

// WithHTTPStatus sets the HTTP status of the rejection response.
func WithHTTPStatus(status int) Option {
	return func(o *options) { o.httpStatus = status }
}

// WithRejection replaces the default envelope writer.
func WithRejection(fn RejectFunc) Option {
	return func(o *options) { o.reject = fn }
}

// NonEmptyBody rejects requests that carry no body bytes before the next
// handler runs. By default it answers 200 with
// {"data":{},"status":500,"message":"empty body"}.
func NonEmptyBody(opts ...Option) Middleware {
	o := &options{
		code:       http.StatusInternalServerError,
		message:    "empty body",
		httpStatus: http.StatusOK,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reject == nil {
		o.reject = envelopeRejection(o.httpStatus, Envelope{
			Data:    struct{}{},
			Status:  o.code,
			Message: o.message,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				o.reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hasBody peeks one byte. The peeked byte stays readable by the next handler.
func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	br := bufio.NewReaderSize(r.Body, 16)
	if _, err := br.Peek(1); err != nil {
		return false
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{br, r.Body}
	return true
}

func envelopeRejection(status int, env Envelope) RejectFunc {
	payload, _ := json.Marshal(env)
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		w.Write(payload)
	}
}
