// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Model Egress
// =============================================================================

var (
	// completionsTotal counts completion calls by provider, purpose, and outcome.
	// Labels: provider, purpose (tool:<name>, oracle, evaluator), outcome
	// (success, error, timeout, rate_limited)
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Subsystem: "llm",
		Name:      "completions_total",
		Help:      "Completion calls by provider, purpose, and outcome",
	}, []string{"provider", "purpose", "outcome"})

	// completionLatencySeconds measures completion latency by provider and purpose.
	completionLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scribe",
		Subsystem: "llm",
		Name:      "completion_latency_seconds",
		Help:      "Completion call latency by provider and purpose",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider", "purpose"})
)

// RecordCompletion records one completion call outcome.
//
// Inputs:
//   - provider: The provider name.
//   - purpose: The call purpose label.
//   - outcome: One of "success", "error", "timeout", "rate_limited".
//   - durationSec: Call duration in seconds (zero for rate_limited).
func RecordCompletion(provider, purpose, outcome string, durationSec float64) {
	completionsTotal.WithLabelValues(provider, purpose, outcome).Inc()
	if durationSec > 0 {
		completionLatencySeconds.WithLabelValues(provider, purpose).Observe(durationSec)
	}
}
