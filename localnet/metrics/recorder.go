// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package metrics

import (
	"time"

	"github.com/palantir/stacktrace"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "localnet"
	subsystem = "bootstrap"
)

// Recorder collects per-step metrics of bootstrap runs in its own registry
type Recorder struct {
	registry *prometheus.Registry
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

// NewRecorder ...
func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "steps_total",
			Help:      "Bootstrap steps by outcome",
		}, []string{"step", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "step_duration_seconds",
			Help:      "Wall time of bootstrap steps",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"step"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last bootstrap run finished",
		}),
	}
	recorder.registry.MustRegister(recorder.steps, recorder.duration, recorder.lastRun)
	return recorder
}

// ObserveStep records one finished step. Steps that never ran have zero duration and are only counted.
func (r *Recorder) ObserveStep(step string, status string, duration time.Duration) {
	r.steps.WithLabelValues(step, status).Inc()
	if duration > 0 {
		r.duration.WithLabelValues(step).Observe(duration.Seconds())
	}
}

// ObserveRunFinished marks the end of a run
func (r *Recorder) ObserveRunFinished(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in the text exposition format, for node_exporter's textfile collector.
// An empty path disables writing.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return stacktrace.Propagate(err, "An error occurred writing metrics to %v", path)
	}
	return nil
}
