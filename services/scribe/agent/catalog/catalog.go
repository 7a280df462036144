// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog builds the read-only tool signature catalog the resolver
// and engine consult. It is constructed once, at startup, by introspecting
// each tool's declared parameters; afterwards it is immutable and safe for
// lock-free concurrent reads across runs.
package catalog

import (
	"sort"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
)

// Spec is the introspected signature of one tool: which parameter names are
// required (no declared default) and which are optional, in declaration
// order, plus the optional parameters' default values.
type Spec struct {
	Name        string
	Description string
	Generative  bool
	Required    []string
	Optional    []string
	Defaults    map[string]any
}

// Catalog maps tool names to their specs. Immutable after construction.
type Catalog struct {
	specs map[string]Spec
	names []string
}

// New builds a catalog from tool definitions.
//
// Description:
//
//	A parameter without a default is required; all others are optional.
//	Parameter order follows the declaration order of the definition so
//	accessors are deterministic.
//
// Inputs:
//   - defs: Tool definitions, typically tools.Registry.Definitions().
//
// Outputs:
//   - *Catalog: The immutable catalog.
func New(defs []tools.Definition) *Catalog {
	specs := make(map[string]Spec, len(defs))
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		spec := Spec{
			Name:        def.Name,
			Description: def.Description,
			Generative:  def.Generative,
			Defaults:    make(map[string]any),
		}
		for _, p := range def.Params {
			if p.Required() {
				spec.Required = append(spec.Required, p.Name)
			} else {
				spec.Optional = append(spec.Optional, p.Name)
				spec.Defaults[p.Name] = p.Default
			}
		}
		specs[def.Name] = spec
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return &Catalog{specs: specs, names: names}
}

// Spec returns the spec for a tool name.
func (c *Catalog) Spec(name string) (Spec, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

// RequiredArgs returns the required parameter names for a tool, in
// declaration order. Unknown names yield an empty slice rather than an
// error; callers that need stricter behavior check Spec's second return.
func (c *Catalog) RequiredArgs(name string) []string {
	spec, ok := c.specs[name]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.Required))
	copy(out, spec.Required)
	return out
}

// OptionalArgs returns the optional parameter names for a tool, in
// declaration order. Unknown names yield an empty slice.
func (c *Catalog) OptionalArgs(name string) []string {
	spec, ok := c.specs[name]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.Optional))
	copy(out, spec.Optional)
	return out
}

// Default returns the declared default for an optional parameter.
func (c *Catalog) Default(tool, param string) (any, bool) {
	spec, ok := c.specs[tool]
	if !ok {
		return nil, false
	}
	v, ok := spec.Defaults[param]
	return v, ok
}

// Names returns all tool names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
