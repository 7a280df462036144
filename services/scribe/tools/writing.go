// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/llm"
)

// =============================================================================
// Writing Tools
// =============================================================================

// writingTool is the common shape of the LLM-backed content tools: a static
// definition plus a prompt builder over the resolved arguments.
type writingTool struct {
	def    Definition
	client llm.Client
	prompt func(args map[string]any) string
	opts   llm.Options
}

func (t *writingTool) Definition() Definition { return t.def }

func (t *writingTool) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	text, err := t.client.Complete(ctx, t.prompt(inv.Args), t.opts)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if strings.TrimSpace(text) == "" {
		return &Result{Success: false, Error: "model returned empty output"}, nil
	}
	return &Result{Success: true, Text: text}, nil
}

// NewGenerateOutline returns the outline tool. Required: prompt.
func NewGenerateOutline(client llm.Client) Tool {
	return &writingTool{
		client: client,
		opts:   llm.Options{Purpose: "tool:generate_outline", Temperature: 0.4},
		def: Definition{
			Name:        "generate_outline",
			Description: "Produce a structured outline for a writing assignment.",
			Category:    "generate",
			Generative:  true,
			Params: []Param{
				{Name: "prompt", Type: "string", Description: "The assignment or topic to outline."},
				{Name: "target_length", Type: "int", Description: "Target word count of the final piece.", Default: 500},
				{Name: "tone", Type: "string", Description: "Desired tone.", Default: "neutral"},
			},
		},
		prompt: func(args map[string]any) string {
			return fmt.Sprintf(
				"Create a concise outline (section headings with one-line summaries) for the following assignment.\n"+
					"Target length of the final piece: %d words. Tone: %s.\n\nAssignment:\n%s\n",
				IntArg(args, "target_length", 500), StringArg(args, "tone"), StringArg(args, "prompt"))
		},
	}
}

// NewWriteDraft returns the drafting tool. Required: prompt, outline.
func NewWriteDraft(client llm.Client) Tool {
	return &writingTool{
		client: client,
		opts:   llm.Options{Purpose: "tool:write_draft", Temperature: 0.6, MaxTokens: 2048},
		def: Definition{
			Name:        "write_draft",
			Description: "Write a full draft from an assignment and an outline.",
			Category:    "generate",
			Generative:  true,
			Params: []Param{
				{Name: "prompt", Type: "string", Description: "The assignment or topic."},
				{Name: "outline", Type: "string", Description: "The outline to follow."},
				{Name: "target_length", Type: "int", Description: "Target word count.", Default: 500},
				{Name: "tone", Type: "string", Description: "Desired tone.", Default: "neutral"},
				{Name: "language", Type: "string", Description: "Output language.", Default: "en"},
			},
		},
		prompt: func(args map[string]any) string {
			return fmt.Sprintf(
				"Write a complete piece for the assignment below, following the outline.\n"+
					"Aim for about %d words. Tone: %s. Language: %s.\n\nAssignment:\n%s\n\nOutline:\n%s\n",
				IntArg(args, "target_length", 500), StringArg(args, "tone"), StringArg(args, "language"),
				StringArg(args, "prompt"), agentStringify(args["outline"]))
		},
	}
}

// NewImproveText returns the revision tool. Required: text.
func NewImproveText(client llm.Client) Tool {
	return &writingTool{
		client: client,
		opts:   llm.Options{Purpose: "tool:improve_text", Temperature: 0.4, MaxTokens: 2048},
		def: Definition{
			Name:        "improve_text",
			Description: "Revise a text for clarity, flow, and vocabulary without changing its meaning.",
			Category:    "revise",
			Generative:  true,
			Params: []Param{
				{Name: "text", Type: "string", Description: "The text to improve."},
				{Name: "feedback", Type: "string", Description: "Specific feedback to address.", Default: ""},
				{Name: "tone", Type: "string", Description: "Desired tone.", Default: "neutral"},
			},
		},
		prompt: func(args map[string]any) string {
			var sb strings.Builder
			sb.WriteString("Revise the following text. Improve clarity, flow, and word choice. Keep the meaning and structure.\n")
			sb.WriteString(fmt.Sprintf("Tone: %s.\n", StringArg(args, "tone")))
			if fb := StringArg(args, "feedback"); fb != "" {
				sb.WriteString("Address this feedback:\n" + fb + "\n")
			}
			sb.WriteString("\nText:\n" + StringArg(args, "text") + "\n")
			return sb.String()
		},
	}
}

// NewSummarizeText returns the summarizer. Required: text.
func NewSummarizeText(client llm.Client) Tool {
	return &writingTool{
		client: client,
		opts:   llm.Options{Purpose: "tool:summarize_text", Temperature: 0.2},
		def: Definition{
			Name:        "summarize_text",
			Description: "Summarize a text to a target length.",
			Category:    "revise",
			Generative:  true,
			Params: []Param{
				{Name: "text", Type: "string", Description: "The text to summarize."},
				{Name: "target_length", Type: "int", Description: "Target word count of the summary.", Default: 120},
			},
		},
		prompt: func(args map[string]any) string {
			return fmt.Sprintf("Summarize the following text in about %d words.\n\nText:\n%s\n",
				IntArg(args, "target_length", 120), StringArg(args, "text"))
		},
	}
}

// NewConversationalReply returns the generic dialogue tool the engine falls
// back to when a plan is empty. Required: message (resolved from the user's
// utterance by the resolver's role table).
func NewConversationalReply(client llm.Client) Tool {
	return &writingTool{
		client: client,
		opts:   llm.Options{Purpose: "tool:conversational_reply", Temperature: 0.7},
		def: Definition{
			Name:        "conversational_reply",
			Description: "Reply conversationally when no content-generation tool applies.",
			Category:    "dialogue",
			Generative:  false,
			Params: []Param{
				{Name: "message", Type: "string", Description: "The user's message to respond to."},
				{Name: "tone", Type: "string", Description: "Desired tone.", Default: "friendly"},
			},
		},
		prompt: func(args map[string]any) string {
			return fmt.Sprintf("Reply helpfully and briefly (tone: %s) to this message:\n%s\n",
				StringArg(args, "tone"), StringArg(args, "message"))
		},
	}
}

// =============================================================================
// Clarification
// =============================================================================

// clarificationTool renders the question the engine asks when required
// arguments cannot be resolved. It is purely local: no model call, never
// fails, so the recovery path cannot itself need recovering.
type clarificationTool struct{}

// NewAskClarification returns the clarification tool. Required: missing.
func NewAskClarification() Tool {
	return &clarificationTool{}
}

func (t *clarificationTool) Definition() Definition {
	return Definition{
		Name:        "ask_clarification",
		Description: "Ask the user to supply information the run is missing.",
		Category:    "dialogue",
		Generative:  false,
		Params: []Param{
			{Name: "missing", Type: "list", Description: "Names of the missing parameters."},
			{Name: "tool", Type: "string", Description: "The tool that needs them.", Default: ""},
		},
	}
}

func (t *clarificationTool) Invoke(_ context.Context, inv *Invocation) (*Result, error) {
	missing := namesFromArg(inv.Args["missing"])
	if len(missing) == 0 {
		return &Result{Success: false, Error: "nothing to clarify"}, nil
	}
	question := fmt.Sprintf("To continue I need a bit more information: could you provide %s?",
		strings.Join(missing, ", "))
	if tool := StringArg(inv.Args, "tool"); tool != "" {
		question += fmt.Sprintf(" (needed for %s)", strings.ReplaceAll(tool, "_", " "))
	}
	return &Result{
		Success: true,
		Text:    question,
		Output:  map[string]any{"missing": missing},
	}, nil
}

// namesFromArg normalizes the "missing" argument, which may arrive as a
// []string, []any, or comma-separated string depending on the caller.
func namesFromArg(v any) []string {
	switch tv := v.(type) {
	case []string:
		return tv
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(tv, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// agentStringify renders outline objects (maps, lists) for prompt inclusion.
func agentStringify(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	default:
		return fmt.Sprintf("%v", tv)
	}
}

// RegisterDefaults registers the standard tool set against a registry.
//
// Outputs:
//   - error: Non-nil if any registration fails (duplicate names).
func RegisterDefaults(r *Registry, client llm.Client) error {
	for _, t := range []Tool{
		NewGenerateOutline(client),
		NewWriteDraft(client),
		NewImproveText(client),
		NewSummarizeText(client),
		NewConversationalReply(client),
		NewAskClarification(),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
