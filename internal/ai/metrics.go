package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type instrumented struct {
	next     Generator
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// WithMetrics wraps g so every call is counted by outcome and timed.
// Outcomes: "success", "upstream_error", "error".
func WithMetrics(g Generator, reg prometheus.Registerer) Generator {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorial",
		Subsystem: "biography",
		Name:      "generations_total",
		Help:      "Biography generation calls by provider and outcome.",
	}, []string{"provider", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memorial",
		Subsystem: "biography",
		Name:      "generation_duration_seconds",
		Help:      "Biography generation latency by provider.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"provider"})
	reg.MustRegister(calls, duration)

	return &instrumented{next: g, calls: calls, duration: duration}
}

func (i *instrumented) Provider() string { return i.next.Provider() }

func (i *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.next.Generate(ctx, prompt)
	i.duration.WithLabelValues(i.next.Provider()).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err == nil:
	case IsUpstream(err):
		outcome = "upstream_error"
	default:
		outcome = "error"
	}
	i.calls.WithLabelValues(i.next.Provider(), outcome).Inc()
	return text, err
}
