package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ConnectingIP returns the trusted direct-connection IP header
func ConnectingIP(ip string) Header {
	return Header{Key: "CF-Connecting-IP", Value: ip}
}

// ForwardedFor returns the forwarded-for header
func ForwardedFor(list string) Header {
	return Header{Key: "X-Forwarded-For", Value: list}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// Get performs a GET request against the handler. The target is used as the
// raw request URI, so query strings reach the handler byte-for-byte.
func Get(
	handler http.Handler,
	target string,
	headers ...Header,
) HTTPResult {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	handler.ServeHTTP(res, req)

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}
