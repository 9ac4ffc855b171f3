// Package config loads the gate's process-wide configuration from the
// environment and manages the active signing secret.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultValiditySeconds = 300

// Config is the immutable startup configuration.
type Config struct {
	ListenAddr      string
	Origin          *url.URL
	Secret          []byte
	SecretFile      string
	Validity        time.Duration
	DecisionLogPath string
}

// FromEnv reads configuration from environment variables:
//
//	PORT                    required, listen port
//	ORIGIN_URL              required, base URL of the origin server
//	HMAC_SECRET             shared signing secret
//	HMAC_SECRET_FILE        file holding the secret; takes precedence over
//	                        HMAC_SECRET and enables rotation on file change
//	TOKEN_VALIDITY_SECONDS  token validity window (default 300)
//	DECISION_LOG_PATH       optional SQLite decision log
//
// A missing secret is not a startup error: gated requests answer 400 until
// one is configured, matching the per-request config check.
func FromEnv() (*Config, error) {
	port, err := requireEnvVar("PORT")
	if err != nil {
		return nil, err
	}

	rawOrigin, err := requireEnvVar("ORIGIN_URL")
	if err != nil {
		return nil, err
	}
	origin, err := url.Parse(rawOrigin)
	if err != nil {
		return nil, fmt.Errorf("env var 'ORIGIN_URL' is not a valid URL (%q): %v", rawOrigin, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("env var 'ORIGIN_URL' must be absolute, got %q", rawOrigin)
	}

	validity := time.Duration(defaultValiditySeconds) * time.Second
	if raw, present := os.LookupEnv("TOKEN_VALIDITY_SECONDS"); present {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("env var 'TOKEN_VALIDITY_SECONDS' must be a positive integer, got %q", raw)
		}
		validity = time.Duration(seconds) * time.Second
	}

	cfg := &Config{
		ListenAddr:      ":" + port,
		Origin:          origin,
		Validity:        validity,
		SecretFile:      os.Getenv("HMAC_SECRET_FILE"),
		DecisionLogPath: os.Getenv("DECISION_LOG_PATH"),
	}

	if cfg.SecretFile != "" {
		secret, err := ReadSecretFile(cfg.SecretFile)
		if err != nil {
			return nil, err
		}
		cfg.Secret = secret
	} else if raw := os.Getenv("HMAC_SECRET"); raw != "" {
		cfg.Secret = []byte(raw)
	}

	return cfg, nil
}

// ReadSecretFile loads a secret from disk, trimming a trailing newline so
// editor- and echo-written files produce the same secret.
func ReadSecretFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %v", err)
	}
	secret := strings.TrimRight(string(raw), "\r\n")
	return []byte(secret), nil
}

func requireEnvVar(name string) (string, error) {
	str, present := os.LookupEnv(name)
	if !present || str == "" {
		return "", fmt.Errorf("missing required env var '%s'", name)
	}
	return str, nil
}
