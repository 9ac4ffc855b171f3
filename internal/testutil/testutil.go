// Package testutil provides test environment setup and utilities for
// internal package tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cf-jongsik/validate-token/internal/gate"
	"github.com/cf-jongsik/validate-token/internal/metrics"
	"github.com/cf-jongsik/validate-token/internal/proxy"
	"github.com/cf-jongsik/validate-token/pkg/hmactoken"
)

// TestSecret is the shared signing secret for gate tests.
var TestSecret = []byte("test-secret")

// RecordedRequest captures what the origin actually received.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// OriginRecorder is a stub origin that records the last forwarded request
// and answers 200 with a fixed body.
type OriginRecorder struct {
	Server *httptest.Server

	mu   sync.Mutex
	last *RecordedRequest
}

// Last returns the most recently forwarded request, or nil when the origin
// was never reached.
func (o *OriginRecorder) Last() *RecordedRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// TestEnv provides all dependencies needed for gate tests.
type TestEnv struct {
	Gate     http.Handler
	Origin   *OriginRecorder
	Metrics  *metrics.Set
	Secret   []byte
	Validity time.Duration
}

// SetupGateEnv builds a gate wired to a recording stub origin through a real
// forwarder, with a fixed secret and the default validity window.
func SetupGateEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	origin := &OriginRecorder{}
	origin.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		origin.mu.Lock()
		origin.last = &RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		}
		origin.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("origin ok"))
	}))
	t.Cleanup(origin.Server.Close)

	originURL, err := url.Parse(origin.Server.URL)
	if err != nil {
		t.Fatalf("failed to parse origin URL: %v", err)
	}

	env := &TestEnv{
		Origin:   origin,
		Metrics:  metrics.New(),
		Secret:   TestSecret,
		Validity: 300 * time.Second,
	}
	env.Gate = gate.New(
		func() []byte { return env.Secret },
		env.Validity,
		proxy.New(originURL),
		nil,
		env.Metrics,
	)
	return env
}

// MintProof issues a fresh proof bound to the given IP with the test secret.
func (env *TestEnv) MintProof(
	t *testing.T,
	clientIP string,
) string {
	t.Helper()
	return env.MintProofAt(t, clientIP, time.Now())
}

// MintProofAt issues a proof at the given time. A signature that happens to
// contain the composite delimiter would not survive a round trip, so those
// rare draws are re-issued a millisecond later.
func (env *TestEnv) MintProofAt(
	t *testing.T,
	clientIP string,
	issuedAt time.Time,
) string {
	t.Helper()
	for {
		proof := hmactoken.Issue(env.Secret, clientIP, issuedAt)
		if !strings.Contains(proof, hmactoken.Delimiter) {
			return proof
		}
		issuedAt = issuedAt.Add(time.Millisecond)
	}
}

// MintComposite issues a full composite token bound to the given IP.
func (env *TestEnv) MintComposite(
	t *testing.T,
	formsToken string,
	clientIP string,
	accessToken string,
) string {
	t.Helper()
	return hmactoken.BuildComposite(formsToken, env.MintProof(t, clientIP), accessToken)
}
