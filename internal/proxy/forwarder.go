// Package proxy forwards rewritten requests to the configured origin and
// relays the response back to the client.
package proxy

import (
	"context"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

type cookieKey struct{}

// WithCookie marks a request so the origin's response gets the given cookie
// attached. The cookie rides the request context because the response is not
// available until the origin has replied.
func WithCookie(r *http.Request, c *http.Cookie) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), cookieKey{}, c))
}

// Forwarder is a single-origin reverse proxy. The relayed response is
// returned unchanged except for an optional Set-Cookie added via WithCookie.
type Forwarder struct {
	origin *url.URL
	proxy  *httputil.ReverseProxy
}

func New(origin *url.URL) *Forwarder {
	f := &Forwarder{origin: origin}
	f.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			// the origin sees the host the client asked for
			pr.Out.Host = pr.In.Host
		},
		ModifyResponse: attachCookie,
		ErrorHandler:   forwardingError,
	}
	return f
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.proxy.ServeHTTP(w, r)
}

func attachCookie(resp *http.Response) error {
	if c, ok := resp.Request.Context().Value(cookieKey{}).(*http.Cookie); ok && c != nil {
		resp.Header.Add("Set-Cookie", c.String())
	}
	return nil
}

// forwardingError reports any upstream failure as a plain server error. A
// canceled request context means the client went away first; nothing useful
// can be written then, and the abandoned upstream call has no side effects.
func forwardingError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	log.Printf("%s %s: failed to reach origin: %v", r.Method, r.URL.Path, err)
	w.WriteHeader(http.StatusInternalServerError)
}
