// Package metrics exposes Prometheus counters for gate decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds the gate's decision counters on a private registry so multiple
// gates (tests, mainly) never fight over global registration.
type Set struct {
	registry *prometheus.Registry

	Bypassed prometheus.Counter
	Accepted prometheus.Counter
	Rejected *prometheus.CounterVec
}

func New() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),
		Bypassed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gate",
				Name:      "requests_bypassed_total",
				Help:      "Requests forwarded without token validation.",
			},
		),
		Accepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gate",
				Name:      "requests_accepted_total",
				Help:      "Gated requests whose token validated.",
			},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gate",
				Name:      "requests_rejected_total",
				Help:      "Gated requests rejected before reaching the origin.",
			},
			[]string{"reason"},
		),
	}

	s.registry.MustRegister(s.Bypassed, s.Accepted, s.Rejected)
	return s
}

// Handler serves the set in Prometheus exposition format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
