// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/catalog"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/plan"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/quality"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/resolve"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/config"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeTool is a scriptable tool: it fails its first `failures` invocations
// and succeeds afterwards.
type fakeTool struct {
	def      tools.Definition
	failures int
	text     string
	calls    int
}

func (f *fakeTool) Definition() tools.Definition { return f.def }

func (f *fakeTool) Invoke(_ context.Context, _ *tools.Invocation) (*tools.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return &tools.Result{Success: false, Error: "transient failure"}, nil
	}
	return &tools.Result{Success: true, Text: f.text}, nil
}

// newFakeTool builds a zero-required-parameter tool.
func newFakeTool(name, category string, generative bool, text string) *fakeTool {
	return &fakeTool{
		def: tools.Definition{
			Name:       name,
			Category:   category,
			Generative: generative,
		},
		text: text,
	}
}

// scriptOracle replays a fixed list of decisions, then keeps answering
// conversationally. A non-nil err is returned on every call instead.
type scriptOracle struct {
	decisions []plan.Decision
	err       error
	calls     int
}

func (o *scriptOracle) DecideNext(_ context.Context, _ string, _ map[string]any) (plan.Decision, error) {
	o.calls++
	if o.err != nil {
		return plan.Decision{}, o.err
	}
	if len(o.decisions) == 0 {
		return plan.Conversational("script exhausted"), nil
	}
	d := o.decisions[0]
	o.decisions = o.decisions[1:]
	return d, nil
}

// seqEvaluator replays a fixed score sequence, repeating the last entry.
type seqEvaluator struct {
	scores []float64
	idx    int
}

func (e *seqEvaluator) Score(_ context.Context, _ string) (float64, error) {
	if e.idx < len(e.scores)-1 {
		e.idx++
		return e.scores[e.idx-1], nil
	}
	return e.scores[len(e.scores)-1], nil
}

// newTestEngine wires an engine over the given registry.
func newTestEngine(t *testing.T, cfg config.EngineConfig, registry *tools.Registry, oracle plan.Oracle, evaluator quality.Evaluator) *Engine {
	t.Helper()

	rules, err := config.DefaultResolverRules()
	require.NoError(t, err)
	resolver, err := resolve.New(catalog.New(registry.Definitions()), rules)
	require.NoError(t, err)

	eng, err := New(cfg, registry, resolver, quality.NewGate(evaluator, cfg.MinQualityScore), oracle)
	require.NoError(t, err)
	return eng
}

// newTestRegistry registers the dialogue tools every run may need plus
// any extra tools.
func newTestRegistry(t *testing.T, extra ...tools.Tool) *tools.Registry {
	t.Helper()

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.NewAskClarification()))
	require.NoError(t, registry.Register(newFakeTool("conversational_reply", "dialogue", false, "happy to help")))
	for _, tool := range extra {
		require.NoError(t, registry.Register(tool))
	}
	return registry
}

func executeOne(tool string) *plan.Decision {
	return &plan.Decision{Kind: plan.KindExecuteOne, Tool: tool}
}

// =============================================================================
// Termination & Plan Shape
// =============================================================================

func TestRun_EmptyPlanRunsOneConversationalStep(t *testing.T) {
	registry := newTestRegistry(t)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	hint := plan.Conversational("nothing tool-shaped")
	result := eng.Run(context.Background(), Request{UserInput: "hi there", PlanHint: &hint})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 1)
	assert.Equal(t, "conversational_reply", result.History[0].Tool)
	assert.Equal(t, "happy to help", result.FinalText)
}

func TestRun_SequenceExecutesInOrder(t *testing.T) {
	first := newFakeTool("step_one", "writing", false, "one")
	second := newFakeTool("step_two", "writing", false, "two")
	registry := newTestRegistry(t, first, second)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	hint := plan.Decision{Kind: plan.KindRunSequence, Sequence: []string{"step_one", "step_two"}}
	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: &hint})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 2)
	assert.Equal(t, "step_one", result.History[0].Tool)
	assert.Equal(t, "step_two", result.History[1].Tool)
	assert.Equal(t, "two", result.FinalText)
}

func TestRun_MaxStepsCapsOracleProposals(t *testing.T) {
	var extras []tools.Tool
	for _, name := range []string{"tool_a", "tool_b", "tool_c", "tool_d"} {
		extras = append(extras, newFakeTool(name, "writing", false, name+" output"))
	}
	registry := newTestRegistry(t, extras...)

	cfg := config.DefaultEngineConfig()
	cfg.MaxSteps = 3
	oracle := &scriptOracle{decisions: []plan.Decision{
		*executeOne("tool_b"),
		*executeOne("tool_c"),
		*executeOne("tool_d"),
	}}
	eng := newTestEngine(t, cfg, registry, oracle, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("tool_a")})

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.History, 3, "run must never exceed the step budget")
}

func TestRun_DuplicateToolProposalEndsRun(t *testing.T) {
	tool := newFakeTool("tool_a", "writing", false, "done once")
	registry := newTestRegistry(t, tool)

	oracle := &scriptOracle{decisions: []plan.Decision{*executeOne("tool_a")}}
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, oracle, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("tool_a")})

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.History, 1)
	assert.Equal(t, 1, tool.calls)
}

func TestRun_FailedToolProposalAlsoEndsRun(t *testing.T) {
	// A tool that exhausted its retry budget is in History too; the guard
	// must stop the oracle from re-running it.
	broken := newFakeTool("tool_a", "writing", false, "")
	broken.failures = 100
	registry := newTestRegistry(t, broken)

	cfg := config.DefaultEngineConfig()
	cfg.ToolRetries = 0
	oracle := &scriptOracle{decisions: []plan.Decision{*executeOne("tool_a")}}
	eng := newTestEngine(t, cfg, registry, oracle, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("tool_a")})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 1)
	assert.False(t, result.History[0].Succeeded())
	assert.Equal(t, 1, broken.calls)
}

func TestRun_OracleErrorMeansNoFurtherWork(t *testing.T) {
	tool := newFakeTool("tool_a", "writing", false, "output")
	registry := newTestRegistry(t, tool)

	oracle := &scriptOracle{err: errors.New("oracle offline")}
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, oracle, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("tool_a")})

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.History, 1)
}

// =============================================================================
// Resolver Failure & Clarification
// =============================================================================

func TestRun_ClarificationThenAbort(t *testing.T) {
	strict := &fakeTool{def: tools.Definition{
		Name:     "needs_secret",
		Category: "writing",
		Params:   []tools.Param{{Name: "secret_token", Type: "string"}},
	}}
	registry := newTestRegistry(t, strict)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("needs_secret")})

	assert.Equal(t, agent.StateAborted, result.State)
	require.Len(t, result.History, 2)
	assert.Equal(t, "ask_clarification", result.History[0].Tool)
	assert.True(t, result.History[0].Succeeded())
	assert.Equal(t, "needs_secret", result.History[1].Tool)
	assert.Contains(t, result.History[1].Err, "secret_token")
	assert.Equal(t, 0, strict.calls, "a step with unresolved arguments must never execute")
}

func TestRun_PlannerArgsSatisfyStrictTool(t *testing.T) {
	strict := &fakeTool{
		def: tools.Definition{
			Name:     "needs_topic",
			Category: "writing",
			Params:   []tools.Param{{Name: "topic_of_record", Type: "string"}},
		},
		text: "resolved and ran",
	}
	registry := newTestRegistry(t, strict)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	hint := plan.Decision{
		Kind: plan.KindExecuteOne,
		Tool: "needs_topic",
		Args: map[string]any{"topic_of_record": "tide pools"},
	}
	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: &hint})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 1)
	assert.True(t, result.History[0].Succeeded())
}

// =============================================================================
// Tool Failure Policy
// =============================================================================

func TestRun_ToolFailureRetriedThenSucceeds(t *testing.T) {
	flaky := newFakeTool("flaky", "writing", false, "eventually fine")
	flaky.failures = 2
	registry := newTestRegistry(t, flaky)

	cfg := config.DefaultEngineConfig()
	cfg.ToolRetries = 2
	eng := newTestEngine(t, cfg, registry, nil, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("flaky")})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 1)
	assert.True(t, result.History[0].Succeeded())
	assert.Equal(t, 3, result.History[0].Attempts)
}

func TestRun_ToolFailureToleratedAfterRetries(t *testing.T) {
	broken := newFakeTool("broken", "writing", false, "")
	broken.failures = 100
	registry := newTestRegistry(t, broken)

	cfg := config.DefaultEngineConfig()
	cfg.ToolRetries = 1
	eng := newTestEngine(t, cfg, registry, nil, nil)

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("broken")})

	assert.Equal(t, agent.StateDone, result.State, "execution errors are tolerated, not fatal")
	require.Len(t, result.History, 1)
	assert.False(t, result.History[0].Succeeded())
	assert.Equal(t, 2, result.History[0].Attempts)
}

// =============================================================================
// Quality Gate
// =============================================================================

func TestRun_QualityCorrectiveStepThenDone(t *testing.T) {
	draft := newFakeTool("write_draft", "writing", true, "a rough first draft about tide pools")
	draft.def.Params = []tools.Param{{Name: "prompt", Type: "string"}}
	improve := newFakeTool("improve_text", "writing", true, "a polished draft about tide pools")
	improve.def.Params = []tools.Param{{Name: "text", Type: "string"}}
	registry := newTestRegistry(t, draft, improve)

	evaluator := &seqEvaluator{scores: []float64{6.0, 9.1}}
	oracle := &scriptOracle{}
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, oracle, evaluator)

	result := eng.Run(context.Background(), Request{
		UserInput: "write about tide pools",
		PlanHint:  executeOne("write_draft"),
	})

	assert.Equal(t, agent.StateDone, result.State)
	require.Len(t, result.History, 2, "exactly one corrective step")
	assert.Equal(t, "write_draft", result.History[0].Tool)
	assert.Equal(t, "improve_text", result.History[1].Tool)
	assert.Equal(t, "a polished draft about tide pools", result.FinalText)
}

func TestRun_QualityInsertionsBounded(t *testing.T) {
	draft := newFakeTool("write_draft", "writing", true, "draft text")
	draft.def.Params = []tools.Param{{Name: "prompt", Type: "string"}}
	improve := newFakeTool("improve_text", "writing", true, "still weak text")
	improve.def.Params = []tools.Param{{Name: "text", Type: "string"}}
	registry := newTestRegistry(t, improve, draft)

	cfg := config.DefaultEngineConfig()
	cfg.MaxQualitySteps = 2
	// Every score is below threshold; only MaxQualitySteps corrective
	// steps may be inserted regardless.
	eng := newTestEngine(t, cfg, registry, &scriptOracle{}, &seqEvaluator{scores: []float64{3.0}})

	result := eng.Run(context.Background(), Request{
		UserInput: "write about tide pools",
		PlanHint:  executeOne("write_draft"),
	})

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.History, 3, "one draft plus two corrective steps")
}

func TestRun_NonGenerativeOutputNotScored(t *testing.T) {
	tool := newFakeTool("tool_a", "writing", false, "plain output")
	registry := newTestRegistry(t, tool)

	// The evaluator would fail everything; it must never be consulted for
	// non-generative tools.
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, &seqEvaluator{scores: []float64{0}})

	result := eng.Run(context.Background(), Request{UserInput: "go", PlanHint: executeOne("tool_a")})

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.History, 1)
}

// =============================================================================
// Cancellation & History Contract
// =============================================================================

func TestRun_CancelledContextAbortsBetweenSteps(t *testing.T) {
	registry := newTestRegistry(t)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hint := plan.Conversational("")
	result := eng.Run(ctx, Request{UserInput: "hi", PlanHint: &hint})

	assert.Equal(t, agent.StateAborted, result.State)
	require.NotEmpty(t, result.History, "even an aborted run records the failing step")
	assert.Contains(t, result.History[0].Err, "cancelled")
}

func TestRun_ConcurrentRunsShareNothing(t *testing.T) {
	registry := newTestRegistry(t)
	eng := newTestEngine(t, config.DefaultEngineConfig(), registry, nil, nil)

	hint := plan.Conversational("")
	done := make(chan *agent.RunResult, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- eng.Run(context.Background(), Request{UserInput: "hello", PlanHint: &hint})
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		result := <-done
		assert.Equal(t, agent.StateDone, result.State)
		assert.False(t, seen[result.RunID], "run IDs must be unique")
		seen[result.RunID] = true
	}
}
