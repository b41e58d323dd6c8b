/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives observations from store operations. Implementations must
// be safe for concurrent use.
type Recorder interface {
	// Observe records the outcome of a remote operation (e.g. "product.fetch").
	Observe(operation string, success bool, duration time.Duration)

	// ObserveEvent records one processed realtime change event.
	ObserveEvent(entity, eventType string, success bool)
}

// Nop is a Recorder that discards all observations. It is the default for
// stores constructed without metrics.
type Nop struct{}

func (Nop) Observe(string, bool, time.Duration) {}
func (Nop) ObserveEvent(string, string, bool)   {}

// PromRecorder exports observations as Prometheus metrics.
type PromRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewPromRecorder registers the store metrics on the supplied registerer and
// returns the recorder. Pass prometheus.DefaultRegisterer for the process
// default.
func NewPromRecorder(reg prometheus.Registerer) *PromRecorder {
	factory := promauto.With(reg)
	return &PromRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfgstore",
			Name:      "operations_total",
			Help:      "Remote operations by name and result.",
		}, []string{"operation", "result"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mfgstore",
			Name:      "operation_duration_seconds",
			Help:      "Remote operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfgstore",
			Name:      "change_events_total",
			Help:      "Realtime change events by entity, type and result.",
		}, []string{"entity", "type", "result"}),
	}
}

func (r *PromRecorder) Observe(operation string, success bool, duration time.Duration) {
	r.operations.WithLabelValues(operation, resultLabel(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *PromRecorder) ObserveEvent(entity, eventType string, success bool) {
	r.events.WithLabelValues(entity, eventType, resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
