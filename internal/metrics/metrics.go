// Package metrics exposes Prometheus counters for repository operations.
// Everything registers with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
)

var (
	resolutionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitconf_resolutions_total",
			Help: "Reference resolutions by outcome",
		},
		[]string{"outcome"},
	)

	operationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitconf_operations_total",
			Help: "Repository operations by result",
		},
		[]string{"op", "result"},
	)

	cloneDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gitconf_clone_duration_seconds",
			Help:    "Wall time of successful clones",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	bytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitconf_received_bytes_total",
			Help: "Packfile bytes received by clone and fetch",
		},
	)
)

// Resolution counts one resolved spec. outcome is the resolver's kind
// label, or "not_found".
func Resolution(outcome string) {
	resolutionCounter.WithLabelValues(outcome).Inc()
}

// Operation counts one finished operation; the result label is "ok" or
// the error's kind
func Operation(op string, err error) {
	operationCounter.WithLabelValues(op, Result(err)).Inc()
}

// Result is the label Operation uses for err
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return gcerrors.KindOf(err).String()
}

// Clone records the duration of a successful clone
func Clone(d time.Duration) {
	cloneDuration.Observe(d.Seconds())
}

// Received adds n to the received bytes counter
func Received(n uint64) {
	bytesReceived.Add(float64(n))
}
