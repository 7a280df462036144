// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plan converts re-planning oracle decisions into ordered plan
// steps. Decisions are a tagged variant: execute one tool, run a tool
// sequence, or fall back to conversation. Anything unparseable maps
// deterministically to the conversational variant; the translator never
// raises and never produces an unrecoverable "do nothing".
package plan

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// Decisions
// =============================================================================

// Kind tags the decision variant.
type Kind string

const (
	// KindExecuteOne runs a single named tool.
	KindExecuteOne Kind = "execute_one"

	// KindRunSequence runs an ordered list of tools.
	KindRunSequence Kind = "run_sequence"

	// KindConversational is the fallback: no tool work, reply in dialogue.
	// Unknown and unparseable decisions degrade to this variant.
	KindConversational Kind = "conversational_fallback"
)

// Decision is one re-planning oracle output.
type Decision struct {
	// Kind selects the variant.
	Kind Kind `json:"action"`

	// Tool is the tool for KindExecuteOne.
	Tool string `json:"tool,omitempty"`

	// Sequence is the ordered tool list for KindRunSequence.
	Sequence []string `json:"sequence,omitempty"`

	// Args are oracle-supplied arguments, applied to every produced step
	// as the highest-priority resolution source.
	Args map[string]any `json:"args,omitempty"`

	// Rationale is the oracle's stated reason.
	Rationale string `json:"rationale,omitempty"`

	// Confidence is the oracle's confidence, clamped to [0,1].
	Confidence float64 `json:"confidence"`
}

// Conversational returns the canonical fallback decision.
func Conversational(rationale string) Decision {
	return Decision{Kind: KindConversational, Rationale: rationale, Confidence: 1}
}

// =============================================================================
// Parsing
// =============================================================================

// rawDecision is the wire shape, before kind normalization.
type rawDecision struct {
	Action     string         `json:"action"`
	Kind       string         `json:"kind"`
	Tool       string         `json:"tool"`
	ToolName   string         `json:"tool_name"`
	Sequence   []string       `json:"sequence"`
	Args       map[string]any `json:"args"`
	Rationale  string         `json:"rationale"`
	Confidence float64        `json:"confidence"`
}

// ParseDecision parses an oracle response into a Decision.
//
// Description:
//
//	Tolerates markdown code fences and prose around the JSON object.
//	Unknown action names, missing tools, and outright parse failures all
//	degrade to the conversational variant; parsing never fails. The
//	second return reports whether the input parsed cleanly, for metrics.
//
// Inputs:
//   - raw: The oracle's textual response.
//
// Outputs:
//   - Decision: The normalized decision.
//   - bool: True when the input parsed as a recognized variant.
func ParseDecision(raw string) (Decision, bool) {
	payload, ok := extractJSON(raw)
	if !ok {
		return Conversational("unparseable oracle response"), false
	}

	var rd rawDecision
	if err := json.Unmarshal([]byte(payload), &rd); err != nil {
		return Conversational("unparseable oracle response"), false
	}

	action := rd.Action
	if action == "" {
		action = rd.Kind
	}
	tool := rd.Tool
	if tool == "" {
		tool = rd.ToolName
	}

	d := Decision{
		Tool:       strings.TrimSpace(tool),
		Sequence:   cleanSequence(rd.Sequence),
		Args:       rd.Args,
		Rationale:  rd.Rationale,
		Confidence: clamp01(rd.Confidence),
	}

	switch normalizeAction(action) {
	case KindExecuteOne:
		if d.Tool == "" {
			return Conversational("execute decision without a tool"), false
		}
		d.Kind = KindExecuteOne
		return d, true
	case KindRunSequence:
		if len(d.Sequence) == 0 {
			return Conversational("sequence decision without tools"), false
		}
		d.Kind = KindRunSequence
		return d, true
	case KindConversational:
		d.Kind = KindConversational
		return d, true
	default:
		return Conversational("unknown decision kind: " + action), false
	}
}

// normalizeAction maps the action names oracles have historically emitted
// onto the three variants.
func normalizeAction(action string) Kind {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "execute_one", "execute", "single", "single_tool", "tool":
		return KindExecuteOne
	case "run_sequence", "sequence", "pipeline", "multi":
		return KindRunSequence
	case "conversational_fallback", "conversational", "conversation", "chat", "reply", "none":
		return KindConversational
	default:
		return ""
	}
}

// extractJSON pulls the first top-level JSON object out of a response that
// may be wrapped in markdown fences or prose.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func cleanSequence(seq []string) []string {
	out := make([]string, 0, len(seq))
	for _, t := range seq {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
