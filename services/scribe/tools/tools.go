// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools defines the content-generation tool interface, the typed
// invocation/result pair, and the registry the engine executes against.
// Tools are opaque to the engine: parameters in, result or error out.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Definitions
// =============================================================================

// Param describes one tool parameter. A parameter with no default is
// required; all others are optional. This is the only introspection surface
// the catalog reads.
type Param struct {
	// Name is the canonical parameter name.
	Name string `json:"name"`

	// Type is a human-readable type hint ("string", "int", "list").
	Type string `json:"type"`

	// Description explains the parameter for oracle prompts.
	Description string `json:"description"`

	// Default, when non-nil, makes the parameter optional and supplies the
	// value used when no resolution source provides one.
	Default any `json:"default,omitempty"`
}

// Required reports whether the parameter must be resolved before execution.
func (p Param) Required() bool {
	return p.Default == nil
}

// Definition is a tool's static, introspectable signature.
type Definition struct {
	// Name is the unique tool name.
	Name string `json:"name"`

	// Description explains what the tool produces.
	Description string `json:"description"`

	// Category groups tools ("generate", "revise", "dialogue").
	Category string `json:"category"`

	// Generative marks tools whose textual output the quality gate scores.
	// Dialogue tools (clarification questions, conversational replies) are
	// not graded against a writing rubric.
	Generative bool `json:"generative"`

	// Params are the declared parameters, in declaration order.
	Params []Param `json:"params"`
}

// =============================================================================
// Invocation & Result
// =============================================================================

// Invocation is one execution request for a named tool.
type Invocation struct {
	// ID uniquely identifies the invocation within a run.
	ID string `json:"id"`

	// Tool is the tool name.
	Tool string `json:"tool"`

	// Args are the fully resolved arguments. The engine guarantees they
	// cover the tool's required parameters before Execute is called.
	Args map[string]any `json:"args"`
}

// Result is a tool execution outcome. Execution errors are reported in
// Error with Success=false; Execute returns a non-nil error only for
// infrastructure failures (unknown tool, nil invocation).
type Result struct {
	// Success is false when the tool failed.
	Success bool `json:"success"`

	// Output is the structured result, if the tool produces one.
	Output any `json:"output,omitempty"`

	// Text is the textual result, if the tool produces one.
	Text string `json:"text,omitempty"`

	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`
}

// Tool is an executable content-generation tool.
type Tool interface {
	// Definition returns the static signature. Must be cheap and constant.
	Definition() Definition

	// Invoke executes the tool. Recoverable failures are reported in the
	// Result, not as an error.
	Invoke(ctx context.Context, inv *Invocation) (*Result, error)
}

// =============================================================================
// Registry
// =============================================================================

// Registry holds the executable tools for a deployment. Registration
// happens at startup; afterwards the registry is read-only and safe for
// concurrent use across runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("cannot register nil tool")
	}
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("cannot register tool with empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.tools[def.Name] = t
	return nil
}

// Lookup returns the tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns all tool definitions in deterministic (name) order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs an invocation against the registered tool.
//
// Description:
//
//	Unknown tool names and nil invocations are infrastructure errors.
//	Tool-level failures come back inside the Result so the caller can
//	apply its retry/tolerate policy uniformly.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Execute(ctx context.Context, inv *Invocation) (*Result, error) {
	if inv == nil {
		return nil, fmt.Errorf("nil invocation")
	}
	t, ok := r.Lookup(inv.Tool)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", inv.Tool)
	}

	start := time.Now()
	result, err := t.Invoke(ctx, inv)
	if err != nil {
		return &Result{
			Success:  false,
			Error:    err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	if result == nil {
		result = &Result{Success: true}
	}
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	return result, nil
}

// StringArg reads a string argument, tolerating missing keys.
func StringArg(args map[string]any, name string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[name].(string); ok {
		return s
	}
	if v, ok := args[name]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// IntArg reads an integer argument, tolerating float-decoded JSON numbers.
func IntArg(args map[string]any, name string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
