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
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/llm"
)

// LLMEvaluator scores text by asking a chat model for a single number.
//
// Thread Safety: Safe for concurrent use.
type LLMEvaluator struct {
	client llm.Client
}

// NewLLMEvaluator creates an evaluator over the given chat client.
func NewLLMEvaluator(client llm.Client) (*LLMEvaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("evaluator requires a chat client")
	}
	return &LLMEvaluator{client: client}, nil
}

const evaluatorPrompt = `Rate the following text on a scale of 0.0 to 10.0 for clarity, coherence, and completeness. Respond with ONLY the number.

Text:
%s

Score:`

// scorePattern pulls the first decimal number out of the response, which
// tolerates models that preface the number despite instructions.
var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Score asks the model to rate the text.
//
// Outputs:
//   - float64: Score on [0, 10].
//   - error: Non-nil on transport failure or an unusable response. The
//     gate treats either the same way: fall back to the heuristic.
func (e *LLMEvaluator) Score(ctx context.Context, text string) (float64, error) {
	response, err := e.client.Complete(ctx, fmt.Sprintf(evaluatorPrompt, text), llm.Options{
		Purpose:     "quality",
		Temperature: 0.0,
		MaxTokens:   16,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluator completion: %w", err)
	}

	match := scorePattern.FindString(strings.TrimSpace(response))
	if match == "" {
		return 0, fmt.Errorf("evaluator response contains no score: %q", response)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse evaluator score %q: %w", match, err)
	}
	if score < 0 || score > 10 {
		return 0, fmt.Errorf("evaluator score %.2f out of range", score)
	}
	return score, nil
}
