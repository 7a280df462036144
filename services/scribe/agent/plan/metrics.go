// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scribe_oracle_decisions_total",
		Help: "Oracle decisions by kind and outcome (parsed, fallback, error).",
	},
	[]string{"kind", "outcome"},
)

// RecordDecision counts one oracle decision.
func RecordDecision(kind, outcome string) {
	if kind == "" {
		kind = "none"
	}
	decisionsTotal.WithLabelValues(kind, outcome).Inc()
}
