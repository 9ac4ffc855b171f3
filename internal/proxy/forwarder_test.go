package proxy_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cf-jongsik/validate-token/internal/proxy"
)

func newForwarder(t *testing.T, handler http.HandlerFunc) *proxy.Forwarder {
	t.Helper()
	origin := httptest.NewServer(handler)
	t.Cleanup(origin.Close)

	originURL, err := url.Parse(origin.URL)
	if err != nil {
		t.Fatalf("failed to parse origin URL: %v", err)
	}
	return proxy.New(originURL)
}

func TestForwarder_RelaysResponse(t *testing.T) {
	t.Parallel()
	f := newForwarder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Origin", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("origin body"))
	})

	req := httptest.NewRequest(http.MethodGet, "/path?a=1", nil)
	res := httptest.NewRecorder()
	f.ServeHTTP(res, req)

	if res.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", res.Code, http.StatusTeapot)
	}
	if res.Header().Get("X-Origin") != "yes" {
		t.Error("origin header not relayed")
	}
	if res.Body.String() != "origin body" {
		t.Errorf("body = %q", res.Body.String())
	}
}

func TestForwarder_PreservesMethodQueryAndBody(t *testing.T) {
	t.Parallel()
	var gotMethod, gotQuery, gotBody string
	f := newForwarder(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	})

	req := httptest.NewRequest(http.MethodPost, "/submit?x=1&oait=forms", strings.NewReader("payload"))
	res := httptest.NewRecorder()
	f.ServeHTTP(res, req)

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q", gotMethod)
	}
	if gotQuery != "x=1&oait=forms" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotBody != "payload" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestForwarder_AttachesCookie(t *testing.T) {
	t.Parallel()
	f := newForwarder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cookie := &http.Cookie{
		Name:     "CF_Authorization",
		Value:    "access_token_123",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = proxy.WithCookie(req, cookie)
	res := httptest.NewRecorder()
	f.ServeHTTP(res, req)

	setCookie := res.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "CF_Authorization=access_token_123") {
		t.Errorf("Set-Cookie = %q, missing token", setCookie)
	}
	for _, attr := range []string{"Path=/", "HttpOnly", "Secure", "SameSite=Strict"} {
		if !strings.Contains(setCookie, attr) {
			t.Errorf("Set-Cookie = %q, missing %s", setCookie, attr)
		}
	}
}

func TestForwarder_NoCookieWithoutDirective(t *testing.T) {
	t.Parallel()
	f := newForwarder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	f.ServeHTTP(res, req)

	if got := res.Header().Get("Set-Cookie"); got != "" {
		t.Errorf("unexpected Set-Cookie %q", got)
	}
}

func TestForwarder_OriginUnreachable(t *testing.T) {
	t.Parallel()

	// a port nothing listens on
	originURL, err := url.Parse("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("failed to parse origin URL: %v", err)
	}
	f := proxy.New(originURL)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	f.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", res.Code)
	}
}
