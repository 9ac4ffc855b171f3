package main

import (
	"log"
	"net/http"

	"github.com/cf-jongsik/validate-token/internal/config"
	"github.com/cf-jongsik/validate-token/internal/decisionlog"
	"github.com/cf-jongsik/validate-token/internal/gate"
	"github.com/cf-jongsik/validate-token/internal/metrics"
	"github.com/cf-jongsik/validate-token/internal/proxy"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v\n", err)
	}
	if len(cfg.Secret) == 0 {
		log.Println("WARNING: no signing secret configured, gated requests will be rejected")
	}

	secrets := config.NewSecrets(cfg.Secret)
	if cfg.SecretFile != "" {
		if err := secrets.WatchFile(cfg.SecretFile); err != nil {
			log.Fatalf("failed to watch secret file: %v\n", err)
		}
	}

	var decisions *decisionlog.Logger
	if cfg.DecisionLogPath != "" {
		decisions, err = decisionlog.Open(cfg.DecisionLogPath)
		if err != nil {
			log.Fatalf("failed to open decision log: %v\n", err)
		}
		defer decisions.Close()
	}

	stats := metrics.New()
	g := gate.New(
		secrets.Current,
		cfg.Validity,
		proxy.New(cfg.Origin),
		decisions,
		stats,
	)

	r := buildRouter(g, stats)

	log.Printf("gating login traffic for %s on %s", cfg.Origin, cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}

func buildRouter(g *gate.Gate, stats *metrics.Set) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(healthz)).Methods("GET")
	r.Handle("/metrics", stats.Handler()).Methods("GET")

	// everything else flows through the gate
	r.PathPrefix("/").Handler(g)

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
