// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine drives plan execution: it pops steps off a mutable
// queue, resolves their arguments, executes tools with bounded retries,
// scores generative output, consults the re-planning oracle, and
// terminates at a step budget or an explicit done signal.
//
// Each run executes strictly sequentially: every step's output feeds
// later steps' argument resolution through the working context, so there
// is no parallelism inside a run. Independent runs share nothing mutable
// and may execute concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/plan"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/quality"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/resolve"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/config"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scriptorium.scribe.engine")

// =============================================================================
// Engine
// =============================================================================

// Request is one run of the engine.
type Request struct {
	// UserInput is the free-text user utterance. It participates in
	// argument resolution and is handed to the oracle at replan time.
	UserInput string

	// Context is the read-only context snapshot (profile facts, prior
	// artifacts, dialogue state). The engine works on a deep copy, never
	// on this map.
	Context map[string]any

	// PlanHint, when non-nil, is a pre-made decision the engine executes
	// instead of asking the oracle for an initial plan.
	PlanHint *plan.Decision
}

// Engine is the step executor. Construct once, share across runs.
//
// Thread Safety: Safe for concurrent use. All fields are read-only after
// construction; each run owns its queue, history, and working context.
type Engine struct {
	cfg        config.EngineConfig
	registry   *tools.Registry
	resolver   *resolve.Resolver
	translator *plan.Translator
	gate       *quality.Gate
	oracle     plan.Oracle
	logger     *slog.Logger
}

// New creates an engine.
//
// Inputs:
//   - cfg: Validated budgets and retry policy.
//   - registry: The executable tools. Must not be nil.
//   - resolver: The argument resolver. Must not be nil.
//   - gate: The quality gate. Must not be nil.
//   - oracle: The re-planning collaborator. May be nil, in which case
//     runs execute their initial plan and stop.
//
// Outputs:
//   - *Engine: Ready to run.
//   - error: Non-nil on invalid configuration or missing collaborators.
func New(cfg config.EngineConfig, registry *tools.Registry, resolver *resolve.Resolver, gate *quality.Gate, oracle plan.Oracle) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil || resolver == nil || gate == nil {
		return nil, fmt.Errorf("engine requires registry, resolver, and gate")
	}
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		resolver:   resolver,
		translator: plan.NewTranslator(),
		gate:       gate,
		oracle:     oracle,
		logger:     slog.Default(),
	}, nil
}

// =============================================================================
// Run Loop
// =============================================================================

// run is the per-run mutable state. It lives for one Run call and is
// never shared.
type run struct {
	id        string
	input     string
	working   map[string]any
	queue     []agent.PlanStep
	history   []agent.ExecutionRecord
	state     agent.RunState
	finalText string

	executed     map[string]bool
	clarified    bool
	qualitySteps int
}

// Run executes one request to completion.
//
// Description:
//
//	Drives the state machine PENDING -> RUNNING -> AWAITING_REPLAN until
//	DONE or ABORTED. The returned history is append-only and never
//	empty: even an aborted run records at least the failing step.
//	Tool-execution failures are retried then tolerated; a resolver
//	failure is recovered once via a clarification step, then fatal;
//	oracle failures mean "no further work". Context cancellation aborts
//	between steps, never mid-step.
func (e *Engine) Run(ctx context.Context, req Request) *agent.RunResult {
	start := time.Now()
	r := &run{
		id:       uuid.NewString(),
		input:    req.UserInput,
		working:  agent.CloneContext(req.Context),
		state:    agent.StatePending,
		executed: make(map[string]bool),
	}

	ctx, span := tracer.Start(ctx, "engine.Run",
		trace.WithAttributes(attribute.String("run.id", r.id)),
	)
	defer span.End()

	r.queue = e.initialPlan(ctx, r, req.PlanHint)
	e.loop(ctx, r)

	if len(r.history) == 0 {
		// Termination before any step could run (cancelled context or an
		// initial plan that could not be built). The history contract
		// still holds: record the abort itself.
		r.state = agent.StateAborted
		r.history = append(r.history, agent.ExecutionRecord{
			Step: 1,
			Tool: e.cfg.ConversationalTool,
			Err:  "run terminated before any step executed",
		})
	}

	span.SetAttributes(
		attribute.String("run.state", string(r.state)),
		attribute.Int("run.steps", len(r.history)),
	)
	if r.state == agent.StateAborted {
		span.SetStatus(codes.Error, "run aborted")
	}
	RecordRun(string(r.state), len(r.history), time.Since(start))
	e.logger.Info("run finished",
		slog.String("run_id", r.id),
		slog.String("state", string(r.state)),
		slog.Int("steps", len(r.history)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &agent.RunResult{
		RunID:     r.id,
		State:     r.state,
		History:   r.history,
		FinalText: r.finalText,
	}
}

// initialPlan builds the starting queue. An empty translation is never
// "do nothing": it becomes a single conversational step.
func (e *Engine) initialPlan(ctx context.Context, r *run, hint *plan.Decision) []agent.PlanStep {
	var decision plan.Decision
	switch {
	case hint != nil:
		decision = *hint
	case e.oracle != nil:
		var err error
		decision, err = e.oracle.DecideNext(ctx, r.input, r.working)
		if err != nil {
			e.logger.Warn("initial oracle decision failed, falling back to conversation",
				slog.String("run_id", r.id),
				slog.String("error", err.Error()),
			)
			decision = plan.Conversational("oracle unavailable")
		}
	default:
		decision = plan.Conversational("no oracle configured")
	}

	steps := e.translator.Translate(decision)
	if len(steps) == 0 {
		steps = []agent.PlanStep{{
			Tool:       e.cfg.ConversationalTool,
			Rationale:  decision.Rationale,
			Confidence: decision.Confidence,
		}}
	}
	return steps
}

// loop drains the queue until a terminal state.
func (e *Engine) loop(ctx context.Context, r *run) {
	for len(r.queue) > 0 {
		if len(r.history) >= e.cfg.MaxSteps {
			r.state = agent.StateDone
			return
		}
		if err := ctx.Err(); err != nil {
			e.abort(r, r.queue[0].Tool, fmt.Errorf("run cancelled: %w", err))
			return
		}

		step := r.queue[0]
		r.queue = r.queue[1:]
		r.state = agent.StateRunning

		resolved, ok := e.resolveStep(ctx, r, step)
		if !ok {
			if r.state == agent.StateAborted {
				return
			}
			continue // clarification inserted, queue head changed
		}

		record := e.executeStep(ctx, r, step, resolved)
		r.history = append(r.history, record)
		// The duplicate-tool guard tracks every tool present in History,
		// including tolerated failures: re-proposing a tool that just
		// exhausted its retry budget is the same repetition loop.
		r.executed[step.Tool] = true
		if record.Succeeded() {
			agent.MergeResult(r.working, step.Tool, record.Output, record.Text)
			if record.Text != "" {
				r.finalText = record.Text
			}
		}

		r.state = agent.StateAwaitingReplan
		if done := e.replan(ctx, r, step, record); done {
			r.state = agent.StateDone
			return
		}
	}
	r.state = agent.StateDone
}

func (e *Engine) abort(r *run, tool string, err error) {
	r.state = agent.StateAborted
	r.history = append(r.history, agent.ExecutionRecord{
		Step: len(r.history) + 1,
		Tool: tool,
		Err:  err.Error(),
	})
}

// =============================================================================
// Resolution & Clarification
// =============================================================================

// resolveStep resolves the step's arguments. On the first resolver
// failure of the run it re-queues the step behind a clarification step
// and reports not-ok; a second failure aborts the run. The bool result
// is true only when the step may execute.
func (e *Engine) resolveStep(ctx context.Context, r *run, step agent.PlanStep) (map[string]any, bool) {
	resolved, err := e.resolver.Resolve(ctx, step.Tool, step.Args, r.working, r.input)
	if err == nil {
		return resolved, true
	}

	var missing *resolve.MissingArgsError
	if !errors.As(err, &missing) {
		e.abort(r, step.Tool, err)
		return nil, false
	}

	if r.clarified {
		e.abort(r, step.Tool, missing)
		return nil, false
	}
	r.clarified = true
	e.logger.Info("inserting clarification step",
		slog.String("run_id", r.id),
		slog.String("tool", missing.Tool),
		slog.Any("missing", missing.Missing),
	)
	RecordClarification(missing.Tool)
	r.queue = append([]agent.PlanStep{
		{
			Tool: e.cfg.ClarificationTool,
			Args: map[string]any{
				"missing": missing.Missing,
				"tool":    missing.Tool,
			},
			Rationale: "required arguments unresolved",
		},
		step,
	}, r.queue...)
	return nil, false
}

// =============================================================================
// Execution
// =============================================================================

// executeStep runs the tool with per-attempt timeouts and the configured
// retry budget. The final error, if every attempt failed, is recorded
// and tolerated; it does not halt the run.
func (e *Engine) executeStep(ctx context.Context, r *run, step agent.PlanStep, resolved map[string]any) agent.ExecutionRecord {
	ctx, span := tracer.Start(ctx, "engine.step",
		trace.WithAttributes(
			attribute.String("run.id", r.id),
			attribute.String("step.tool", step.Tool),
		),
	)
	defer span.End()

	record := agent.ExecutionRecord{
		Step: len(r.history) + 1,
		Tool: step.Tool,
		Args: resolved,
	}

	for attempt := 0; attempt <= e.cfg.ToolRetries; attempt++ {
		record.Attempts = attempt + 1
		attemptStart := time.Now()

		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.ToolTimeout)
		result, err := e.registry.Execute(attemptCtx, &tools.Invocation{
			ID:   uuid.NewString(),
			Tool: step.Tool,
			Args: resolved,
		})
		cancel()
		record.Duration = time.Since(attemptStart)

		switch {
		case err != nil:
			record.Err = err.Error()
		case !result.Success:
			record.Err = result.Error
		default:
			record.Err = ""
			record.Output = result.Output
			record.Text = result.Text
			RecordStep(step.Tool, "success", record.Attempts, record.Duration)
			return record
		}

		e.logger.Warn("tool execution attempt failed",
			slog.String("run_id", r.id),
			slog.String("tool", step.Tool),
			slog.Int("attempt", attempt+1),
			slog.String("error", record.Err),
		)
	}

	span.SetStatus(codes.Error, "step failed after retries")
	RecordStep(step.Tool, "failure", record.Attempts, record.Duration)
	return record
}

// =============================================================================
// Replanning & Quality
// =============================================================================

// replan decides what happens after a completed step. Returns true when
// the run is done.
//
// The oracle is consulted when the queue has drained or when the quality
// gate failed the step's output; while planned work remains and quality
// holds, queued steps proceed without another model call.
func (e *Engine) replan(ctx context.Context, r *run, step agent.PlanStep, record agent.ExecutionRecord) bool {
	needsCorrection := e.assess(ctx, r, step, record)

	if !needsCorrection && len(r.queue) > 0 {
		return false
	}
	if e.oracle == nil {
		return e.correct(r, record, "", needsCorrection) && len(r.queue) == 0
	}

	decision, err := e.oracle.DecideNext(ctx, r.input, r.working)
	if err != nil {
		e.logger.Warn("replanning failed, treating as no further work",
			slog.String("run_id", r.id),
			slog.String("error", err.Error()),
		)
		e.correct(r, record, "", needsCorrection)
		return len(r.queue) == 0
	}

	var preferred string
	if decision.Kind == plan.KindExecuteOne {
		preferred = decision.Tool
	}
	if needsCorrection {
		e.correct(r, record, preferred, true)
		return false
	}

	switch decision.Kind {
	case plan.KindExecuteOne:
		if e.isRepeat(r, decision.Tool) {
			e.logger.Info("duplicate tool proposal, finishing run",
				slog.String("run_id", r.id),
				slog.String("tool", decision.Tool),
			)
			return true
		}
		r.queue = append(r.queue, agent.PlanStep{
			Tool:       decision.Tool,
			Args:       decision.Args,
			Rationale:  decision.Rationale,
			Confidence: decision.Confidence,
		})
		return false
	case plan.KindRunSequence:
		for _, tool := range decision.Sequence {
			if e.isRepeat(r, tool) {
				return true
			}
		}
		for _, s := range e.translator.Translate(decision) {
			r.queue = append(r.queue, s)
		}
		return false
	default:
		// Conversational or unparseable: no further work proposed.
		return len(r.queue) == 0
	}
}

// assess runs the quality gate over generative output. Failed steps and
// non-generative tools are not scored.
func (e *Engine) assess(ctx context.Context, r *run, step agent.PlanStep, record agent.ExecutionRecord) bool {
	if !record.Succeeded() || record.Text == "" {
		return false
	}
	tool, ok := e.registry.Lookup(step.Tool)
	if !ok || !tool.Definition().Generative {
		return false
	}

	verdict := e.gate.Assess(ctx, record.Text)
	e.logger.Info("quality gate",
		slog.String("run_id", r.id),
		slog.String("tool", step.Tool),
		slog.Float64("score", verdict.Score),
		slog.Bool("passed", verdict.Passed),
		slog.String("source", verdict.Source),
	)
	return !verdict.Passed && r.qualitySteps < e.cfg.MaxQualitySteps
}

// correct inserts one corrective step at the queue head, preferring the
// oracle-supplied tool name over the configured default. Returns true
// when nothing was inserted.
func (e *Engine) correct(r *run, record agent.ExecutionRecord, preferred string, needed bool) bool {
	if !needed {
		return true
	}
	tool := preferred
	if tool == "" {
		tool = e.cfg.ImprovementTool
	}
	r.qualitySteps++
	RecordCorrectiveStep(tool)
	r.queue = append([]agent.PlanStep{{
		Tool:      tool,
		Args:      map[string]any{"text": record.Text},
		Rationale: "output quality below threshold",
	}}, r.queue...)
	return false
}

// isRepeat reports whether the tool has already executed this run.
// Dialogue tools (clarification, conversational replies) are legitimately
// re-invokable and exempt from the guard.
func (e *Engine) isRepeat(r *run, name string) bool {
	if name == e.cfg.ClarificationTool || name == e.cfg.ConversationalTool {
		return false
	}
	if t, ok := e.registry.Lookup(name); ok && t.Definition().Category == "dialogue" {
		return false
	}
	return r.executed[name]
}
