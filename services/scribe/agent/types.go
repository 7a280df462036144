// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent defines the core data model shared by the compose engine:
// plan steps, execution records, run states, and the run-scoped working
// context. Everything here is plain data; behavior lives in the catalog,
// resolve, plan, quality, and engine packages.
package agent

import "time"

// =============================================================================
// Run States
// =============================================================================

// RunState is the orchestrator state machine position for a run.
type RunState string

const (
	// StatePending means steps are queued and none have run.
	StatePending RunState = "PENDING"

	// StateRunning means one step is currently executing.
	StateRunning RunState = "RUNNING"

	// StateAwaitingReplan means the last step completed and the engine is
	// deciding whether to continue.
	StateAwaitingReplan RunState = "AWAITING_REPLAN"

	// StateDone is normal termination.
	StateDone RunState = "DONE"

	// StateAborted is unrecoverable termination (a resolver failure that
	// recurred after the single clarification attempt).
	StateAborted RunState = "ABORTED"
)

// =============================================================================
// Plan Steps
// =============================================================================

// PlanStep is one proposed tool invocation. Steps are created by the plan
// translator or inserted dynamically by the engine (clarification and
// quality-corrective steps), then consumed and discarded after execution.
type PlanStep struct {
	// Tool is the tool name to invoke.
	Tool string `json:"tool"`

	// Args are planner-supplied arguments. They are the highest-priority
	// source during argument resolution and may be incomplete.
	Args map[string]any `json:"args,omitempty"`

	// Rationale is the planner's stated reason for this step.
	Rationale string `json:"rationale,omitempty"`

	// Confidence is the planner's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// =============================================================================
// Execution Records
// =============================================================================

// ExecutionRecord is one entry of a run's history. The history is
// append-only within a run: once a record is appended it is never mutated
// or reordered.
type ExecutionRecord struct {
	// Step is the 1-based position of this record in the run.
	Step int `json:"step"`

	// Tool is the tool that was (or failed to be) executed.
	Tool string `json:"tool"`

	// Args are the fully resolved arguments the tool ran with. Nil when
	// resolution itself failed.
	Args map[string]any `json:"args,omitempty"`

	// Output is the tool's structured result, if any.
	Output any `json:"output,omitempty"`

	// Text is the tool's textual result, if any. This is what the quality
	// gate scores and what callers typically render.
	Text string `json:"text,omitempty"`

	// Err holds the final error message when the step failed after its
	// retry budget, or the resolver failure that aborted the run.
	Err string `json:"error,omitempty"`

	// Attempts is how many execution attempts were made (1 on clean runs).
	Attempts int `json:"attempts"`

	// Duration is the wall time of the final attempt.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the step produced a usable result.
func (r ExecutionRecord) Succeeded() bool {
	return r.Err == ""
}

// =============================================================================
// Run Results
// =============================================================================

// RunResult is what Engine.Run returns to the caller. History is an owned
// slice; the engine never retains or mutates it after returning.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// State is the terminal state, StateDone or StateAborted.
	State RunState `json:"state"`

	// History is the ordered, append-only record of executed steps. It is
	// never empty: even an aborted run records at least the failing step.
	History []ExecutionRecord `json:"history"`

	// FinalText is the last non-empty textual output of the run, the
	// material a conversational surface would render.
	FinalText string `json:"final_text,omitempty"`
}
