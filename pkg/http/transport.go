package http

import (
	"net/http"
)

// Transport is an http.RoundTripper with Lambda support
type Transport struct {
	Client *Client
}

// NewTransport creates a transport over a lambda-aware client whose HTTP
// traffic goes through http.DefaultTransport
func NewTransport() *Transport {
	return &Transport{Client: NewClientWithHTTPClient(&http.Client{Transport: http.DefaultTransport})}
}

// RoundTrip implements the http.RoundTripper interface
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Client.Do(req)
}
