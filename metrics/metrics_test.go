/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPromRecorder(reg)

	rec.Observe("product.fetch", true, 25*time.Millisecond)
	rec.Observe("product.fetch", true, 30*time.Millisecond)
	rec.Observe("product.fetch", false, 5*time.Millisecond)

	got := testutil.ToFloat64(rec.operations.WithLabelValues("product.fetch", "success"))
	if got != 2 {
		t.Errorf("expected 2 successful fetch observations, got %v", got)
	}
	got = testutil.ToFloat64(rec.operations.WithLabelValues("product.fetch", "error"))
	if got != 1 {
		t.Errorf("expected 1 failed fetch observation, got %v", got)
	}
}

func TestPromRecorderObserveEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPromRecorder(reg)

	rec.ObserveEvent("product", "insert", true)
	rec.ObserveEvent("product", "insert", true)
	rec.ObserveEvent("product", "update", false)

	got := testutil.ToFloat64(rec.events.WithLabelValues("product", "insert", "success"))
	if got != 2 {
		t.Errorf("expected 2 insert events, got %v", got)
	}
	got = testutil.ToFloat64(rec.events.WithLabelValues("product", "update", "error"))
	if got != 1 {
		t.Errorf("expected 1 failed update event, got %v", got)
	}
}

func TestNopRecorder(t *testing.T) {
	// Must simply not panic.
	var rec Recorder = Nop{}
	rec.Observe("anything", true, time.Second)
	rec.ObserveEvent("anything", "insert", false)
}
