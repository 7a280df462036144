// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve fills a tool's parameters from priority-ordered sources:
// explicit planner args, the working context (as given and flattened), a
// data-driven table of semantic-role heuristics, a static defaults table,
// and an alias table. Resolution is a pure function of its inputs; when a
// required parameter is unresolvable anywhere it fails with a typed error
// enumerating exactly the missing names.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/catalog"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/config"
)

// =============================================================================
// Sources
// =============================================================================

// Source identifies which resolution stage satisfied a parameter. Exposed
// so tests can pin the priority order key by key.
type Source string

const (
	SourceExplicit    Source = "explicit"
	SourceContext     Source = "context"
	SourceFlattened   Source = "flattened"
	SourceRole        Source = "role"
	SourceUtterance   Source = "utterance"
	SourceDefault     Source = "default"
	SourceAlias       Source = "alias"
	SourceToolDefault Source = "tool_default"
)

// =============================================================================
// Errors
// =============================================================================

// MissingArgsError reports the required parameters that no resolution
// stage could supply. It is the engine's sole trigger for inserting a
// clarification step.
type MissingArgsError struct {
	// Tool is the tool whose resolution failed.
	Tool string

	// Missing are the unresolved required parameter names, sorted.
	Missing []string
}

func (e *MissingArgsError) Error() string {
	return fmt.Sprintf("tool %s: missing required arguments: %s",
		e.Tool, strings.Join(e.Missing, ", "))
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver resolves tool arguments against an injected catalog and rule
// tables. It holds no mutable state.
//
// Thread Safety: Safe for concurrent use (all fields are read-only).
type Resolver struct {
	catalog *catalog.Catalog
	rules   *config.ResolverRules
	logger  *slog.Logger
}

// New creates a resolver.
//
// Inputs:
//   - cat: The tool catalog. Must not be nil.
//   - rules: The role/alias/default tables. Must not be nil.
//
// Outputs:
//   - *Resolver: Configured resolver.
//   - error: Non-nil on nil inputs.
func New(cat *catalog.Catalog, rules *config.ResolverRules) (*Resolver, error) {
	if cat == nil {
		return nil, fmt.Errorf("resolver requires a catalog")
	}
	if rules == nil {
		return nil, fmt.Errorf("resolver requires rule tables")
	}
	return &Resolver{catalog: cat, rules: rules, logger: slog.Default()}, nil
}

// Resolve fills every required (and as many optional as possible)
// parameter for the named tool.
//
// Description:
//
//	Per parameter, first match wins across the stages: explicit args;
//	direct context key; flattened context key; the semantic-role table
//	(each role is an ordered candidate-key chain, optionally falling back
//	to the user utterance); the static defaults table; the alias table
//	retried against explicit args, context, and flattened context. An
//	optional parameter that survives all stages unmatched takes its
//	tool-declared default. A required one makes the resolution fail.
//
// Inputs:
//   - ctx: Context for tracing only; resolution never blocks.
//   - tool: The tool name. Unknown names resolve to an empty (valid) map
//     because the catalog reports no requirements for them.
//   - explicit: Planner/caller-supplied args. Highest priority. May be nil.
//   - working: The run's working context. May be nil.
//   - utterance: The free-text user message. May be empty.
//
// Outputs:
//   - map[string]any: The complete parameter map.
//   - error: *MissingArgsError naming every unresolved required parameter.
func (r *Resolver) Resolve(ctx context.Context, tool string, explicit, working map[string]any, utterance string) (map[string]any, error) {
	args, _, err := r.ResolveTraced(ctx, tool, explicit, working, utterance)
	return args, err
}

// ResolveTraced is Resolve plus a per-parameter record of which source
// satisfied each name. The trace is what makes resolution reproducible in
// tests and debuggable in production logs.
func (r *Resolver) ResolveTraced(_ context.Context, tool string, explicit, working map[string]any, utterance string) (map[string]any, map[string]Source, error) {
	flat := agent.Flatten(working)

	resolved := make(map[string]any)
	trace := make(map[string]Source)
	var missing []string

	required := r.catalog.RequiredArgs(tool)
	optional := r.catalog.OptionalArgs(tool)

	for _, param := range append(append([]string{}, required...), optional...) {
		value, source, ok := r.resolveOne(param, explicit, working, flat, utterance)
		if ok {
			resolved[param] = value
			trace[param] = source
			RecordResolution(tool, string(source))
			continue
		}
		if def, hasDefault := r.catalog.Default(tool, param); hasDefault {
			resolved[param] = def
			trace[param] = SourceToolDefault
			RecordResolution(tool, string(SourceToolDefault))
			continue
		}
		missing = append(missing, param)
	}

	// Planner-supplied extras pass through untouched; the tool may accept
	// more than it declares.
	for k, v := range explicit {
		if _, seen := resolved[k]; !seen {
			resolved[k] = v
			trace[k] = SourceExplicit
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		RecordResolutionFailure(tool, len(missing))
		return nil, nil, &MissingArgsError{Tool: tool, Missing: missing}
	}

	r.logger.Debug("arguments resolved",
		slog.String("tool", tool),
		slog.Int("params", len(resolved)),
		slog.String("sources", traceSummary(trace)),
	)
	return resolved, trace, nil
}

// resolveOne runs the five-stage chain for a single parameter.
func (r *Resolver) resolveOne(param string, explicit, working, flat map[string]any, utterance string) (any, Source, bool) {
	// Stage 1: explicit args.
	if v, ok := lookup(explicit, param); ok {
		return v, SourceExplicit, true
	}

	// Stage 2: direct context key, then flattened context.
	if v, ok := lookup(working, param); ok {
		return v, SourceContext, true
	}
	if v, ok := lookup(flat, param); ok {
		return v, SourceFlattened, true
	}

	// Stage 3: semantic-role heuristics, an ordered candidate-key chain.
	if rule, ok := r.rules.RoleFor(param); ok {
		for _, key := range rule.Keys {
			if v, found := lookup(working, key); found {
				return v, SourceRole, true
			}
			if v, found := lookup(flat, key); found {
				return v, SourceRole, true
			}
		}
		if rule.UseUtterance && strings.TrimSpace(utterance) != "" {
			return utterance, SourceUtterance, true
		}
	}

	// Stage 4: static defaults table.
	if v, ok := lookup(r.rules.Defaults, param); ok {
		return v, SourceDefault, true
	}

	// Stage 5: aliases, retried against explicit args, context, and
	// flattened context in that order.
	for _, alias := range r.rules.Aliases[param] {
		if v, ok := lookup(explicit, alias); ok {
			return v, SourceAlias, true
		}
		if v, ok := lookup(working, alias); ok {
			return v, SourceAlias, true
		}
		if v, ok := lookup(flat, alias); ok {
			return v, SourceAlias, true
		}
	}

	return nil, "", false
}

// lookup treats nil values as absent so an upstream `"key": null` cannot
// satisfy a required parameter.
func lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func traceSummary(trace map[string]Source) string {
	parts := make([]string, 0, len(trace))
	for param, source := range trace {
		parts = append(parts, param+"="+string(source))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
