// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"reflect"
	"testing"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
)

func testDefs() []tools.Definition {
	return []tools.Definition{
		{
			Name:       "write_draft",
			Generative: true,
			Params: []tools.Param{
				{Name: "prompt", Type: "string"},
				{Name: "outline", Type: "string"},
				{Name: "tone", Type: "string", Default: "neutral"},
			},
		},
		{
			Name: "ask_clarification",
			Params: []tools.Param{
				{Name: "missing", Type: "list"},
				{Name: "tool", Type: "string", Default: ""},
			},
		},
	}
}

// =============================================================================
// Required/Optional Split
// =============================================================================

func TestCatalog_RequiredIffNoDefault(t *testing.T) {
	cat := New(testDefs())

	required := cat.RequiredArgs("write_draft")
	if !reflect.DeepEqual(required, []string{"prompt", "outline"}) {
		t.Errorf("RequiredArgs = %v", required)
	}

	optional := cat.OptionalArgs("write_draft")
	if !reflect.DeepEqual(optional, []string{"tone"}) {
		t.Errorf("OptionalArgs = %v", optional)
	}
}

func TestCatalog_EmptyStringDefaultIsOptional(t *testing.T) {
	// A declared default of "" still counts as a default; only the absence
	// of one makes a parameter required.
	cat := New(testDefs())

	optional := cat.OptionalArgs("ask_clarification")
	if !reflect.DeepEqual(optional, []string{"tool"}) {
		t.Errorf("OptionalArgs = %v", optional)
	}
}

func TestCatalog_Default(t *testing.T) {
	cat := New(testDefs())

	v, ok := cat.Default("write_draft", "tone")
	if !ok || v != "neutral" {
		t.Errorf("Default = %v, %v", v, ok)
	}
	if _, ok := cat.Default("write_draft", "prompt"); ok {
		t.Error("required parameter should have no default")
	}
}

// =============================================================================
// Unknown Names
// =============================================================================

func TestCatalog_UnknownNameYieldsEmptySets(t *testing.T) {
	cat := New(testDefs())

	if got := cat.RequiredArgs("no_such_tool"); len(got) != 0 {
		t.Errorf("RequiredArgs = %v", got)
	}
	if got := cat.OptionalArgs("no_such_tool"); len(got) != 0 {
		t.Errorf("OptionalArgs = %v", got)
	}
	if _, ok := cat.Spec("no_such_tool"); ok {
		t.Error("Spec should report unknown names")
	}
}

// =============================================================================
// Immutability
// =============================================================================

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	cat := New(testDefs())

	first := cat.RequiredArgs("write_draft")
	first[0] = "mutated"

	second := cat.RequiredArgs("write_draft")
	if second[0] != "prompt" {
		t.Errorf("catalog state mutated through accessor result: %v", second)
	}
}

func TestCatalog_NamesSorted(t *testing.T) {
	cat := New(testDefs())

	names := cat.Names()
	if !reflect.DeepEqual(names, []string{"ask_clarification", "write_draft"}) {
		t.Errorf("Names = %v", names)
	}
}
