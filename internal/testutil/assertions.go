package testutil

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: got error %v, expected none", msg, err)
	}
}

// AssertErrorContains fails the test if err is nil or doesn't contain the expected substring
func AssertErrorContains(t *testing.T, err error, expected string, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got none", msg, expected)
	}
	if !strings.Contains(err.Error(), expected) {
		t.Fatalf("%s: expected error containing %q, got %q", msg, expected, err.Error())
	}
}

// AssertStringEqual fails the test if got != expected
func AssertStringEqual(t *testing.T, got, expected string, msg string) {
	t.Helper()
	if got != expected {
		t.Fatalf("%s: got %q, expected %q", msg, got, expected)
	}
}

// AssertStringContains fails the test if str doesn't contain substring
func AssertStringContains(t *testing.T, str, substring string, msg string) {
	t.Helper()
	if !strings.Contains(str, substring) {
		t.Fatalf("%s: expected %q to contain %q", msg, str, substring)
	}
}

// AssertLogContains fails the test if the captured log output lacks substring
func AssertLogContains(t *testing.T, logs *bytes.Buffer, substring string) {
	t.Helper()
	if !strings.Contains(logs.String(), substring) {
		t.Fatalf("expected log output to contain %q, got:\n%s", substring, logs.String())
	}
}

// AssertLogEmpty fails the test if anything was logged
func AssertLogEmpty(t *testing.T, logs *bytes.Buffer) {
	t.Helper()
	if logs.Len() != 0 {
		t.Fatalf("expected no log output, got:\n%s", logs.String())
	}
}

// AssertHeaderSet fails the test if the request doesn't have the expected header value
func AssertHeaderSet(t *testing.T, req *http.Request, header, expectedValue string, msg string) {
	t.Helper()
	if actual := req.Header.Get(header); actual != expectedValue {
		t.Fatalf("%s: header %q: got %q, expected %q", msg, header, actual, expectedValue)
	}
}

// AssertHeaderNotSet fails the test if the request has the specified header
func AssertHeaderNotSet(t *testing.T, req *http.Request, header string, msg string) {
	t.Helper()
	if values, ok := req.Header[http.CanonicalHeaderKey(header)]; ok {
		t.Fatalf("%s: expected header %q to not be set, but got %q", msg, header, values)
	}
}

// AssertMethodEqual fails the test if the request method doesn't match expected
func AssertMethodEqual(t *testing.T, req *http.Request, expectedMethod string, msg string) {
	t.Helper()
	if req.Method != expectedMethod {
		t.Fatalf("%s: got method %q, expected %q", msg, req.Method, expectedMethod)
	}
}

// AssertURLEqual fails the test if the full request URL doesn't match expected
func AssertURLEqual(t *testing.T, req *http.Request, expectedURL string, msg string) {
	t.Helper()
	if got := req.URL.String(); got != expectedURL {
		t.Fatalf("%s: got URL %q, expected %q", msg, got, expectedURL)
	}
}
