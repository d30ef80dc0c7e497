package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors of one Server. Each Server owns its registry
// so several can coexist in a process.
type metrics struct {
	registry *prometheus.Registry

	letters  *prometheus.CounterVec
	requests *prometheus.HistogramVec
	limited  prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		letters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_letters_total",
				Help: "Letters submitted for receipt. Result values: accepted, rejected, malformed, error. Reason is the rejection code, empty otherwise.",
			},
			[]string{
				"result",
				"reason",
			},
		),
		requests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by route and status code.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5},
			},
			[]string{
				"method",
				"route",
				"code",
			},
		),
		limited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_http_rate_limited_total",
				Help: "Requests refused by the rate limiter.",
			},
		),
	}
}
