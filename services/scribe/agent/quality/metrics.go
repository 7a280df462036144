// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_quality_assessments_total",
			Help: "Quality assessments by score source and pass/fail outcome.",
		},
		[]string{"source", "passed"},
	)

	scoreDistribution = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_quality_score",
			Help:    "Distribution of quality scores on the 0-10 scale.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"source"},
	)
)

// RecordAssessment records one gate verdict.
func RecordAssessment(source string, passed bool, score float64) {
	assessmentsTotal.WithLabelValues(source, strconv.FormatBool(passed)).Inc()
	scoreDistribution.WithLabelValues(source).Observe(score)
}
