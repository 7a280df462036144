// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_engine_runs_total",
			Help: "Completed runs by terminal state.",
		},
		[]string{"state"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scribe_engine_run_duration_seconds",
			Help:    "Wall time of complete runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	stepsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scribe_engine_steps_per_run",
			Help:    "History length of completed runs.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_engine_steps_total",
			Help: "Executed steps by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	stepAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_engine_step_attempts",
			Help:    "Execution attempts per step, including retries.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"tool"},
	)

	stepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_engine_step_duration_seconds",
			Help:    "Wall time of the final execution attempt per step.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"tool"},
	)

	clarificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_engine_clarifications_total",
			Help: "Clarification steps inserted, by the tool whose resolution failed.",
		},
		[]string{"tool"},
	)

	correctiveStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_engine_corrective_steps_total",
			Help: "Quality-driven corrective steps inserted, by corrective tool.",
		},
		[]string{"tool"},
	)
)

// RecordRun records one completed run.
func RecordRun(state string, steps int, elapsed time.Duration) {
	runsTotal.WithLabelValues(state).Inc()
	runDurationSeconds.Observe(elapsed.Seconds())
	stepsPerRun.Observe(float64(steps))
}

// RecordStep records one executed step.
func RecordStep(tool, outcome string, attempts int, elapsed time.Duration) {
	stepsTotal.WithLabelValues(tool, outcome).Inc()
	stepAttempts.WithLabelValues(tool).Observe(float64(attempts))
	stepDurationSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordClarification records one inserted clarification step.
func RecordClarification(failedTool string) {
	clarificationsTotal.WithLabelValues(failedTool).Inc()
}

// RecordCorrectiveStep records one inserted corrective step.
func RecordCorrectiveStep(tool string) {
	correctiveStepsTotal.WithLabelValues(tool).Inc()
}
