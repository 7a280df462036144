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
	"testing"
)

// =============================================================================
// ParseDecision Tests
// =============================================================================

func TestParseDecision_ExecuteOne(t *testing.T) {
	d, ok := ParseDecision(`{"action":"execute_one","tool":"write_draft","args":{"prompt":"kelp"},"rationale":"drafting","confidence":0.9}`)
	if !ok {
		t.Fatal("expected clean parse")
	}
	if d.Kind != KindExecuteOne {
		t.Errorf("Kind = %s", d.Kind)
	}
	if d.Tool != "write_draft" {
		t.Errorf("Tool = %s", d.Tool)
	}
	if d.Args["prompt"] != "kelp" {
		t.Errorf("Args = %v", d.Args)
	}
	if d.Confidence != 0.9 {
		t.Errorf("Confidence = %v", d.Confidence)
	}
}

func TestParseDecision_Sequence(t *testing.T) {
	d, ok := ParseDecision(`{"action":"run_sequence","sequence":["generate_outline"," write_draft ",""]}`)
	if !ok {
		t.Fatal("expected clean parse")
	}
	if d.Kind != KindRunSequence {
		t.Errorf("Kind = %s", d.Kind)
	}
	if len(d.Sequence) != 2 || d.Sequence[1] != "write_draft" {
		t.Errorf("Sequence = %v, want trimmed non-empty entries", d.Sequence)
	}
}

func TestParseDecision_MarkdownFences(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"action\": \"execute_one\", \"tool\": \"summarize_text\"}\n```\nLet me know."
	d, ok := ParseDecision(raw)
	if !ok {
		t.Fatal("expected fence-wrapped JSON to parse")
	}
	if d.Tool != "summarize_text" {
		t.Errorf("Tool = %s", d.Tool)
	}
}

func TestParseDecision_ActionSynonyms(t *testing.T) {
	cases := map[string]Kind{
		`{"action":"execute","tool":"x"}`:          KindExecuteOne,
		`{"kind":"single_tool","tool_name":"x"}`:   KindExecuteOne,
		`{"action":"pipeline","sequence":["x"]}`:   KindRunSequence,
		`{"action":"chat"}`:                        KindConversational,
		`{"action":"none"}`:                        KindConversational,
	}
	for raw, want := range cases {
		d, ok := ParseDecision(raw)
		if !ok {
			t.Errorf("%s: expected clean parse", raw)
		}
		if d.Kind != want {
			t.Errorf("%s: Kind = %s, want %s", raw, d.Kind, want)
		}
	}
}

// =============================================================================
// Degradation Tests
// =============================================================================

func TestParseDecision_DegradesToConversational(t *testing.T) {
	cases := []string{
		"",
		"I think we should write something.",
		`{"action":"teleport","tool":"x"}`,
		`{"action":"execute_one"}`,
		`{"action":"run_sequence","sequence":[]}`,
		`{"action": broken json`,
	}
	for _, raw := range cases {
		d, ok := ParseDecision(raw)
		if ok {
			t.Errorf("%q: expected degraded parse", raw)
		}
		if d.Kind != KindConversational {
			t.Errorf("%q: Kind = %s, want conversational fallback", raw, d.Kind)
		}
	}
}

func TestParseDecision_ConfidenceClamped(t *testing.T) {
	d, _ := ParseDecision(`{"action":"execute_one","tool":"x","confidence":3.5}`)
	if d.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", d.Confidence)
	}
	d, _ = ParseDecision(`{"action":"execute_one","tool":"x","confidence":-2}`)
	if d.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped to 0", d.Confidence)
	}
}
