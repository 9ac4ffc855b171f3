// Package clientip resolves the client IP a login token must be bound to.
package clientip

import (
	"errors"
	"net/http"
	"strings"
)

const (
	// HeaderConnecting is set by the trusted edge layer from the actual
	// connection and cannot be fed falsified client data, so it always wins.
	HeaderConnecting = "CF-Connecting-IP"

	// HeaderForwarded is the usual comma-separated proxy chain; only the
	// left-most entry identifies the client.
	HeaderForwarded = "X-Forwarded-For"
)

var ErrNoClientIP = errors.New("no client ip header")

// Resolve returns the IP string validation binds to.
//
// Precedence: the direct-connection header verbatim if present, else the
// first entry of the forwarded-for list trimmed of surrounding whitespace,
// else ErrNoClientIP. The value is never normalized: the issuer signed the
// exact string, so reformatting it here would break legitimate tokens.
func Resolve(h http.Header) (string, error) {
	if ip := h.Get(HeaderConnecting); ip != "" {
		return ip, nil
	}

	if forwarded := h.Get(HeaderForwarded); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip, nil
		}
	}

	return "", ErrNoClientIP
}
