// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quality scores textual artifacts on a 0-10 scale and decides
// whether a corrective step is warranted. Scoring never fails the run:
// evaluator errors degrade to a local heuristic, and total failure yields
// a conservative sub-threshold score.
package quality

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scriptorium.scribe.quality")

// FailureScore is returned when neither the evaluator nor the heuristic
// can score the artifact. It is deliberately far below any sane
// threshold so a broken evaluator can never wave text through.
const FailureScore = 0.0

// Evaluator is the external scoring collaborator. Implementations may
// fail; the gate substitutes a heuristic when they do.
type Evaluator interface {
	// Score rates the text on [0, 10].
	Score(ctx context.Context, text string) (float64, error)
}

// Verdict is the gate's assessment of one artifact.
type Verdict struct {
	Score  float64
	Passed bool
	// Source records which path produced the score: "evaluator",
	// "heuristic", or "failure".
	Source string
}

// Gate wraps an optional evaluator with a heuristic fallback and a
// pass threshold.
//
// Thread Safety: Safe for concurrent use (all fields are read-only).
type Gate struct {
	evaluator Evaluator
	threshold float64
	logger    *slog.Logger
}

// NewGate creates a gate.
//
// Inputs:
//   - evaluator: The scoring collaborator. May be nil, in which case
//     only the heuristic path is used.
//   - threshold: Minimum passing score on [0, 10].
func NewGate(evaluator Evaluator, threshold float64) *Gate {
	return &Gate{
		evaluator: evaluator,
		threshold: threshold,
		logger:    slog.Default(),
	}
}

// Assess scores the text and compares it against the threshold.
//
// Description:
//
//	Never returns an error. The evaluator is tried first; on any
//	evaluator error the local heuristic substitutes. Empty text is a
//	total failure and scores FailureScore.
func (g *Gate) Assess(ctx context.Context, text string) Verdict {
	ctx, span := tracer.Start(ctx, "quality.Assess",
		trace.WithAttributes(attribute.Int("quality.text_len", len(text))),
	)
	defer span.End()

	verdict := g.score(ctx, text)
	verdict.Passed = verdict.Score >= g.threshold
	RecordAssessment(verdict.Source, verdict.Passed, verdict.Score)
	span.SetAttributes(
		attribute.Float64("quality.score", verdict.Score),
		attribute.Bool("quality.passed", verdict.Passed),
		attribute.String("quality.source", verdict.Source),
	)
	return verdict
}

func (g *Gate) score(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Score: FailureScore, Source: "failure"}
	}

	if g.evaluator != nil {
		start := time.Now()
		score, err := g.evaluator.Score(ctx, text)
		if err == nil && score >= 0 && score <= 10 {
			return Verdict{Score: score, Source: "evaluator"}
		}
		if err != nil {
			g.logger.Warn("quality evaluator failed, using heuristic",
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(start)),
			)
		} else {
			g.logger.Warn("quality evaluator returned out-of-range score, using heuristic",
				slog.Float64("score", score),
			)
		}
	}

	return Verdict{Score: HeuristicScore(text), Source: "heuristic"}
}

// =============================================================================
// Local Heuristic
// =============================================================================

// Heuristic tuning. Texts shorter than minAdequateWords are penalized
// proportionally; diversity is the type/token ratio of lowercased words.
const (
	minAdequateWords = 120
	lengthWeight     = 4.0
	diversityWeight  = 6.0
)

// HeuristicScore computes a cheap local score from vocabulary diversity
// and length adequacy. It is intentionally crude: its job is to produce
// a defensible number when the real evaluator is down, not to replace it.
func HeuristicScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return FailureScore
	}

	lengthRatio := float64(len(words)) / float64(minAdequateWords)
	if lengthRatio > 1 {
		lengthRatio = 1
	}

	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.Trim(w, ".,;:!?\"'()[]")] = struct{}{}
	}
	diversity := float64(len(seen)) / float64(len(words))

	return lengthWeight*lengthRatio + diversityWeight*diversity
}
