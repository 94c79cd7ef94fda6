package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w-h-a/upserter/engine"
)

type Metrics struct {
	registry *prometheus.Registry
	resolves *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func (m *Metrics) Observe(outcome engine.Outcome, err error) {
	if err != nil {
		kind, ok := engine.KindOf(err)
		if !ok {
			kind = "unknown"
		}
		m.errors.WithLabelValues(string(kind)).Inc()
		return
	}
	m.resolves.WithLabelValues(string(outcome.Action)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upserter",
			Name:      "resolve_total",
			Help:      "Resolves that completed, by action.",
		}, []string{"action"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upserter",
			Name:      "resolve_errors_total",
			Help:      "Resolves that failed, by error kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(m.resolves, m.errors)

	return m
}
