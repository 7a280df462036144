// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Argument Resolution
// =============================================================================

var (
	// resolutionsTotal counts satisfied parameters by tool and source stage.
	// Labels: tool, source (explicit, context, flattened, role, utterance,
	// default, alias, tool_default)
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Parameters satisfied by tool and resolution source",
	}, []string{"tool", "source"})

	// resolutionFailuresTotal counts failed resolutions by tool.
	resolutionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Subsystem: "resolver",
		Name:      "failures_total",
		Help:      "Resolutions that ended with missing required arguments, by tool",
	}, []string{"tool"})

	// missingParamsPerFailure tracks how many names each failure reported.
	missingParamsPerFailure = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scribe",
		Subsystem: "resolver",
		Name:      "missing_params_per_failure",
		Help:      "Count of missing required parameters per failed resolution",
		Buckets:   []float64{1, 2, 3, 5, 8},
	})
)

// RecordResolution records one satisfied parameter.
func RecordResolution(tool, source string) {
	resolutionsTotal.WithLabelValues(tool, source).Inc()
}

// RecordResolutionFailure records one failed resolution.
func RecordResolutionFailure(tool string, missingCount int) {
	resolutionFailuresTotal.WithLabelValues(tool).Inc()
	missingParamsPerFailure.Observe(float64(missingCount))
}
