package testharness

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cf-jongsik/validate-token/pkg/hmactoken"
)

const clientIP = "203.0.113.7"

// originEcho mirrors the stub origin's response body.
type originEcho struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	RawQuery string `json:"raw_query"`
}

// mintProof issues a fresh proof, re-issuing the rare signature that happens
// to contain the composite delimiter.
func mintProof(secret string) string {
	issuedAt := time.Now()
	for {
		proof := hmactoken.Issue([]byte(secret), clientIP, issuedAt)
		if !strings.Contains(proof, hmactoken.Delimiter) {
			return proof
		}
		issuedAt = issuedAt.Add(time.Millisecond)
	}
}

func skipWithoutBinary(t *testing.T) {
	t.Helper()
	if FindBinary("") == "" {
		t.Skip("gate-testserver binary not found; build cmd/gate-testserver or set GATE_TESTSERVER_BIN")
	}
}

func TestStart(t *testing.T) {
	skipWithoutBinary(t)

	h := Start(t, Config{
		Secret:          "harness-secret",
		ValiditySeconds: 120,
		Quiet:           true,
	})

	if h.BaseURL == "" {
		t.Error("BaseURL is empty")
	}

	if h.OriginURL == "" {
		t.Error("OriginURL is empty")
	}

	if h.Secret != "harness-secret" {
		t.Errorf("expected Secret 'harness-secret', got %s", h.Secret)
	}

	if h.ValiditySeconds != 120 {
		t.Errorf("expected ValiditySeconds 120, got %d", h.ValiditySeconds)
	}

	// A request without the guarded routing parameter passes straight through.
	resp, err := http.Get(h.BaseURL + "/status")
	if err != nil {
		t.Fatalf("failed to connect to test server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var echo originEcho
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		t.Fatalf("failed to decode origin echo: %v", err)
	}

	if echo.Path != "/status" {
		t.Errorf("expected origin path /status, got %s", echo.Path)
	}
}

func TestIntegration_ValidToken(t *testing.T) {
	skipWithoutBinary(t)

	h := Start(t, Config{
		Secret: "harness-secret",
		Quiet:  true,
	})

	composite := hmactoken.BuildComposite("forms_token", mintProof(h.Secret), "")

	req, err := http.NewRequest("GET", h.BaseURL+"/login?function_id=APPS_LOGIN_DEFAULT&oait="+composite, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("CF-Connecting-IP", clientIP)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var echo originEcho
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		t.Fatalf("failed to decode origin echo: %v", err)
	}

	want := "function_id=APPS_LOGIN_DEFAULT&oait=forms_token"
	if echo.RawQuery != want {
		t.Errorf("expected origin query %q, got %q", want, echo.RawQuery)
	}
}

func TestIntegration_InvalidTokenRejected(t *testing.T) {
	skipWithoutBinary(t)

	h := Start(t, Config{
		Secret: "harness-secret",
		Quiet:  true,
	})

	req, err := http.NewRequest("GET", h.BaseURL+"/login?function_id=APPS_LOGIN_DEFAULT&oait=garbage", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("CF-Connecting-IP", clientIP)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", resp.StatusCode)
	}
}
