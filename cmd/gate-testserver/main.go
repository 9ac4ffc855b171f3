// gate-testserver starts a gate wired to a built-in stub origin, for driving
// the middleware over real HTTP from integration tests and scripts.
//
// The stub origin answers every request with 200 and a JSON echo of what it
// received (method, path, raw query), so callers can assert on the rewritten
// request. A one-line JSON contract describing the running instance is
// emitted on stdout; logs go to stderr.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cf-jongsik/validate-token/internal/gate"
	"github.com/cf-jongsik/validate-token/internal/metrics"
	"github.com/cf-jongsik/validate-token/internal/proxy"
	"github.com/gorilla/mux"
)

// Config holds all command-line configuration
type Config struct {
	ListenAddr       string
	OriginListenAddr string
	Secret           string
	ValiditySeconds  int
	Quiet            bool
}

// OutputContract is the JSON structure emitted on stdout
type OutputContract struct {
	BaseURL         string `json:"base_url"`
	OriginURL       string `json:"origin_url"`
	Secret          string `json:"secret"`
	ValiditySeconds int    `json:"validity_seconds"`
}

// OriginEcho is the stub origin's response body
type OriginEcho struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	RawQuery string `json:"raw_query"`
}

func main() {
	cfg := parseFlags()

	if cfg.Quiet {
		log.SetOutput(io.Discard)
	}

	// stub origin on its own ephemeral port
	originListener, err := net.Listen("tcp", cfg.OriginListenAddr)
	if err != nil {
		log.Fatalf("failed to listen for origin: %v\n", err)
	}
	defer originListener.Close()

	originAddr := originListener.Addr().(*net.TCPAddr)
	originURL := fmt.Sprintf("http://%s:%d", originAddr.IP, originAddr.Port)

	go func() {
		err := http.Serve(originListener, http.HandlerFunc(echoOrigin))
		if err != nil {
			log.Printf("origin server stopped: %v\n", err)
		}
	}()

	origin, err := url.Parse(originURL)
	if err != nil {
		log.Fatalf("failed to parse origin URL: %v\n", err)
	}

	stats := metrics.New()
	g := gate.New(
		func() []byte { return []byte(cfg.Secret) },
		time.Duration(cfg.ValiditySeconds)*time.Second,
		proxy.New(origin),
		nil,
		stats,
	)

	r := mux.NewRouter()
	r.Handle("/metrics", stats.Handler()).Methods("GET")
	r.PathPrefix("/").Handler(g)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v\n", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	baseURL := fmt.Sprintf("http://%s:%d", addr.IP, addr.Port)

	// Emit JSON contract to stdout
	contract := OutputContract{
		BaseURL:         baseURL,
		OriginURL:       originURL,
		Secret:          cfg.Secret,
		ValiditySeconds: cfg.ValiditySeconds,
	}
	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(contract); err != nil {
		log.Fatalf("failed to encode JSON contract: %v\n", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- http.Serve(listener, r)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalf("server error: %v\n", err)
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down\n", sig)
	}
}

func echoOrigin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(OriginEcho{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	})
}

func parseFlags() Config {
	var cfg Config

	flag.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "Listen address (default uses ephemeral port)")
	flag.StringVar(&cfg.OriginListenAddr, "origin-listen", "127.0.0.1:0", "Stub origin listen address")
	flag.StringVar(&cfg.Secret, "secret", "gate-testserver-secret", "Shared signing secret")
	flag.IntVar(&cfg.ValiditySeconds, "validity-seconds", 300, "Token validity window in seconds")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Suppress log output")
	flag.Parse()

	if cfg.Secret == "" {
		log.Fatalln("--secret must not be empty")
	}
	if cfg.ValiditySeconds <= 0 {
		log.Fatalln("--validity-seconds must be positive")
	}

	return cfg
}
