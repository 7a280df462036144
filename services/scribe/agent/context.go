// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Working Context
// =============================================================================

// CloneContext deep-copies a context snapshot so the engine can augment its
// working copy without mutating the caller's map. Nested maps and slices
// are copied; scalar values are shared (they are immutable from the engine's
// point of view).
//
// Inputs:
//   - src: The snapshot. May be nil.
//
// Outputs:
//   - map[string]any: An independent working copy, never nil.
func CloneContext(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return CloneContext(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeResult merges a completed step's output into the working context
// under a key named after the tool. Textual results additionally refresh
// the "last_output" key, which the resolver's role table uses for "the text
// currently being edited".
//
// Inputs:
//   - working: The run's working context. Mutated in place.
//   - tool: The tool name the output belongs to.
//   - output: The structured output. May be nil.
//   - text: The textual output. May be empty.
func MergeResult(working map[string]any, tool string, output any, text string) {
	if working == nil || tool == "" {
		return
	}
	if output != nil {
		working[tool] = output
	} else if text != "" {
		working[tool] = text
	}
	if text != "" {
		working["last_output"] = text
	}
}

// Flatten expands a nested context map into a flat map with both dotted and
// underscored key paths, so deep values are reachable by plain-name lookup.
//
// Description:
//
//	{"profile": {"tone": "formal"}} flattens to
//	{"profile.tone": "formal", "profile_tone": "formal"}. Leaf keys are
//	also exposed bare when they do not collide with a top-level key, which
//	is what lets a resolver stage find "tone" without knowing the nesting.
//	Upstream context producers are not standardized, so both separator
//	conventions are emitted.
//
// Inputs:
//   - src: The nested context. May be nil.
//
// Outputs:
//   - map[string]any: The flattened view. Never nil. The input is not
//     mutated; flattening the same map twice yields identical output.
func Flatten(src map[string]any) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, "", src)

	paths := make([]string, 0, len(flat))
	for path := range flat {
		if strings.Contains(path, ".") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	// Underscored variants are derived from the dotted paths in sorted
	// order with first-write-wins, so two paths sharing an underscored
	// form (a.b_c and a_b.c both yield a_b_c) resolve identically on
	// every call. Keys already present in the source always win.
	for _, path := range paths {
		under := strings.ReplaceAll(path, ".", "_")
		if _, taken := flat[under]; !taken {
			flat[under] = flat[path]
		}
	}

	// Bare leaf names are a convenience view, added last and only when the
	// name is still unclaimed so prefixed paths always win. Same sorted
	// order, same determinism argument.
	for _, path := range paths {
		leaf := path[strings.LastIndex(path, ".")+1:]
		if _, taken := flat[leaf]; !taken {
			flat[leaf] = flat[path]
		}
	}
	return flat
}

func flattenInto(flat map[string]any, prefix string, src map[string]any) {
	for k, v := range src {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(flat, path, nested)
			continue
		}
		flat[path] = v
	}
}

// Stringify renders a context value for inclusion in a prompt or log line.
// Strings pass through; everything else goes through fmt.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
