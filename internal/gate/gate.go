// Package gate implements the edge validation pipeline: inspect the request,
// parse the composite login token, resolve the client IP, verify the HMAC
// proof, then rewrite and forward — or reject without touching the origin.
package gate

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cf-jongsik/validate-token/internal/clientip"
	"github.com/cf-jongsik/validate-token/internal/decisionlog"
	"github.com/cf-jongsik/validate-token/internal/metrics"
	"github.com/cf-jongsik/validate-token/internal/proxy"
	"github.com/cf-jongsik/validate-token/pkg/hmactoken"
)

const (
	// RoutingParam selects whether validation applies at all.
	RoutingParam = "function_id"

	// LoginFunctionID is the only routing value that enters the pipeline;
	// anything else bypasses straight to the origin.
	LoginFunctionID = "APPS_LOGIN_DEFAULT"

	// TokenParam carries the composite token.
	TokenParam = "oait"

	// CookieName receives the optional access token on success.
	CookieName = "CF_Authorization"
)

// Gate validates gated requests and forwards them to the origin. It holds
// no per-request state; the secret snapshot function is the only thing that
// can change between requests.
type Gate struct {
	secrets   func() []byte
	validity  time.Duration
	forward   http.Handler
	decisions *decisionlog.Logger
	metrics   *metrics.Set
}

// New builds a Gate. decisions and stats may be nil to disable them.
func New(
	secrets func() []byte,
	validity time.Duration,
	forward http.Handler,
	decisions *decisionlog.Logger,
	stats *metrics.Set,
) *Gate {
	return &Gate{
		secrets:   secrets,
		validity:  validity,
		forward:   forward,
		decisions: decisions,
		metrics:   stats,
	}
}

func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawQuery := r.URL.RawQuery

	// the token parameter is parsed from the raw query string: its '+'
	// delimiter characters must survive, and url.Values would decode them
	// to spaces
	functionID, present := rawQueryValue(rawQuery, RoutingParam)
	if !present || functionID != LoginFunctionID {
		g.bypass(r)
		g.forward.ServeHTTP(w, r)
		return
	}

	secret := g.secrets()
	if len(secret) == 0 {
		g.reject(w, r, http.StatusBadRequest, "missing secret", decisionlog.OutcomeNoSecret, "")
		return
	}

	rawToken, present := rawQueryValue(rawQuery, TokenParam)
	if !present {
		g.reject(w, r, http.StatusBadRequest, "Missing oait parameter", decisionlog.OutcomeMissingParameter, "")
		return
	}

	token, err := hmactoken.ParseComposite(rawToken)
	if err != nil {
		g.reject(w, r, http.StatusForbidden, "Invalid token format", decisionlog.OutcomeMalformedToken, "")
		return
	}

	clientIP, err := clientip.Resolve(r.Header)
	if err != nil {
		g.reject(w, r, http.StatusForbidden, "Invalid or expired token", decisionlog.OutcomeNoClientIP, "")
		return
	}

	ctx := hmactoken.Context{Secret: secret, Validity: g.validity}
	if err := ctx.Verify(clientIP, token.Proof, time.Now()); err != nil {
		outcome := decisionlog.OutcomeBadSignature
		if errors.Is(err, hmactoken.ErrTokenExpired()) {
			outcome = decisionlog.OutcomeExpiredToken
		}
		g.reject(w, r, http.StatusForbidden, "Invalid or expired token", outcome, clientIP)
		return
	}

	// validated: the origin gets the forms token alone, every other query
	// parameter stays byte-for-byte where it was
	forwarded := r.Clone(r.Context())
	forwarded.URL.RawQuery = rewriteTokenParam(rawQuery, token.FormsToken)
	if token.AccessToken != "" {
		forwarded = proxy.WithCookie(forwarded, accessCookie(token.AccessToken))
	}

	g.accept(r, clientIP)
	g.forward.ServeHTTP(w, forwarded)
}

func accessCookie(accessToken string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (g *Gate) bypass(r *http.Request) {
	if g.metrics != nil {
		g.metrics.Bypassed.Inc()
	}
	g.decisions.Record(decisionlog.OutcomeBypassed, "", r.URL.Path)
}

func (g *Gate) accept(r *http.Request, clientIP string) {
	if g.metrics != nil {
		g.metrics.Accepted.Inc()
	}
	g.decisions.Record(decisionlog.OutcomeAccepted, clientIP, r.URL.Path)
}

// reject answers the client with a generic reason class. The decision log
// and server log carry only that class, never the token or signature.
func (g *Gate) reject(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	body string,
	outcome string,
	clientIP string,
) {
	log.Printf("%s %s: rejected (%s)", r.Method, r.URL.Path, outcome)
	if g.metrics != nil {
		g.metrics.Rejected.WithLabelValues(outcome).Inc()
	}
	g.decisions.Record(outcome, clientIP, r.URL.Path)

	w.WriteHeader(status)
	w.Write([]byte(body))
}
