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
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
)

// Translator converts decisions into ordered plan steps.
//
// Thread Safety: Stateless; safe for concurrent use.
type Translator struct{}

// NewTranslator creates a translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate maps a decision onto an ordered step list.
//
// Description:
//
//	A conversational decision yields an empty plan. The engine interprets
//	an empty plan as "run one generic conversational step", never as "do
//	nothing". That contract lives with the caller so the translator
//	stays a pure mapping.
//
// Inputs:
//   - d: The decision.
//
// Outputs:
//   - []agent.PlanStep: Ordered steps. Empty for conversational decisions.
func (t *Translator) Translate(d Decision) []agent.PlanStep {
	switch d.Kind {
	case KindExecuteOne:
		return []agent.PlanStep{{
			Tool:       d.Tool,
			Args:       cloneArgs(d.Args),
			Rationale:  d.Rationale,
			Confidence: clamp01(d.Confidence),
		}}
	case KindRunSequence:
		steps := make([]agent.PlanStep, 0, len(d.Sequence))
		for _, tool := range d.Sequence {
			steps = append(steps, agent.PlanStep{
				Tool:       tool,
				Args:       cloneArgs(d.Args),
				Rationale:  d.Rationale,
				Confidence: clamp01(d.Confidence),
			})
		}
		return steps
	default:
		// Conversational and anything degraded to it.
		return nil
	}
}

// cloneArgs copies the oracle args so steps never share mutable maps.
func cloneArgs(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
