package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockDoer records every request it receives and answers with Response/Error,
// or with Handler when it is set. Request bodies are drained into Bodies so
// streaming writers on the other side of a pipe never block.
type MockDoer struct {
	Response *http.Response
	Error    error
	Handler  func(req *http.Request, body []byte) (*http.Response, error)

	mu       sync.Mutex
	Requests []*http.Request
	Bodies   [][]byte
}

// Do implements the service Doer interface
func (m *MockDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.Bodies = append(m.Bodies, body)
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(req, body)
	}
	if m.Error != nil {
		return nil, m.Error
	}
	m.Response.Request = req
	return m.Response, nil
}

// LastRequest returns the most recent request and its body
func (m *MockDoer) LastRequest() (*http.Request, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil, nil
	}
	return m.Requests[len(m.Requests)-1], m.Bodies[len(m.Bodies)-1]
}

// Calls returns how many requests were made
func (m *MockDoer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// NewMockDoer creates a mock answering every request with the given response,
// or failing with err when err is non-nil
func NewMockDoer(body string, statusCode int, headers map[string]string, err error) *MockDoer {
	var resp *http.Response
	if err == nil {
		resp = NewResponse(statusCode, body, headers)
	}

	return &MockDoer{
		Response: resp,
		Error:    err,
	}
}

// NewResponse builds an *http.Response with a string body
func NewResponse(statusCode int, body string, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode:    statusCode,
		Status:        http.StatusText(statusCode),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        make(http.Header),
	}
	for key, value := range headers {
		resp.Header.Set(key, value)
	}
	return resp
}

// TrackingBody is a response body that records whether it was closed
type TrackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func NewTrackingBody(r io.Reader) *TrackingBody {
	return &TrackingBody{Reader: r}
}

func (b *TrackingBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *TrackingBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// MockError provides a simple mock error implementation
type MockError struct {
	Message string
}

func (e *MockError) Error() string {
	return e.Message
}

// NewMockError creates a mock error
func NewMockError(message string) *MockError {
	return &MockError{Message: message}
}
