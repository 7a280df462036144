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
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/llm"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scriptorium.scribe.plan")

// Oracle is the re-planning collaborator consulted for the initial plan
// and after every step. Implementations may fail; the engine treats any
// error as "no further work".
type Oracle interface {
	// DecideNext proposes the next action given the user input and the
	// run's working context.
	DecideNext(ctx context.Context, userInput string, working map[string]any) (Decision, error)
}

// =============================================================================
// LLM-Backed Oracle
// =============================================================================

// LLMOracle asks a chat model for the next action and parses the response
// into a tagged decision.
//
// Thread Safety: Safe for concurrent use (all fields are read-only).
type LLMOracle struct {
	client llm.Client
	defs   []tools.Definition
	logger *slog.Logger
}

// NewLLMOracle creates an oracle over the given tool set.
//
// Inputs:
//   - client: The chat client. Must not be nil.
//   - defs: The tool definitions the oracle may propose.
//
// Outputs:
//   - *LLMOracle: Configured oracle.
//   - error: Non-nil if client is nil.
func NewLLMOracle(client llm.Client, defs []tools.Definition) (*LLMOracle, error) {
	if client == nil {
		return nil, fmt.Errorf("oracle requires a chat client")
	}
	return &LLMOracle{client: client, defs: defs, logger: slog.Default()}, nil
}

// DecideNext asks the model for the next action.
//
// Description:
//
//	Transport failures are returned as errors (the engine degrades them
//	to run termination). Responses that arrive but do not parse as a
//	recognized variant are NOT errors: they degrade deterministically to
//	the conversational fallback, which keeps malformed model output from
//	ever aborting a run.
func (o *LLMOracle) DecideNext(ctx context.Context, userInput string, working map[string]any) (Decision, error) {
	ctx, span := tracer.Start(ctx, "oracle.DecideNext",
		trace.WithAttributes(attribute.Int("oracle.tools", len(o.defs))),
	)
	defer span.End()

	response, err := o.client.Complete(ctx, o.buildPrompt(userInput, working), llm.Options{
		Purpose:     "oracle",
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		RecordDecision("", "error")
		return Decision{}, fmt.Errorf("oracle completion: %w", err)
	}

	decision, parsed := ParseDecision(response)
	outcome := "parsed"
	if !parsed {
		outcome = "fallback"
		o.logger.Warn("oracle response degraded to conversational fallback",
			slog.String("reason", decision.Rationale),
			slog.String("response_preview", preview(response, 120)),
		)
	}
	RecordDecision(string(decision.Kind), outcome)
	span.SetAttributes(
		attribute.String("oracle.kind", string(decision.Kind)),
		attribute.String("oracle.tool", decision.Tool),
		attribute.Float64("oracle.confidence", decision.Confidence),
	)
	return decision, nil
}

// buildPrompt renders the tool menu and a bounded view of the working
// context. Values are previewed, not dumped: prior drafts can be large.
func (o *LLMOracle) buildPrompt(userInput string, working map[string]any) string {
	var sb strings.Builder

	sb.WriteString(`You decide the next action for a writing assistant. Choose exactly one:
- execute a single tool: {"action":"execute_one","tool":"<name>","args":{...},"rationale":"...","confidence":0.0-1.0}
- run a tool sequence: {"action":"run_sequence","sequence":["<name>","<name>"],"args":{...},"rationale":"...","confidence":0.0-1.0}
- reply conversationally: {"action":"conversational_fallback","rationale":"...","confidence":0.0-1.0}

Rules:
- Only use tool names from the list below.
- Propose no tool that the context shows has already produced its output.
- If the request needs no content generation, choose conversational_fallback.
- Respond with ONLY the JSON object. No markdown, no explanation.

Available tools:
`)
	for _, def := range o.defs {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", def.Name, def.Description))
		for _, p := range def.Params {
			req := "optional"
			if p.Required() {
				req = "required"
			}
			sb.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description))
		}
	}

	sb.WriteString("\nWorking context:\n")
	keys := make([]string, 0, len(working))
	for k := range working {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", k, preview(agent.Stringify(working[k]), 160)))
	}

	sb.WriteString("\nUser request:\n")
	sb.WriteString(strings.TrimSpace(userInput))
	sb.WriteString("\n\nNext action:")
	return sb.String()
}

func preview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
