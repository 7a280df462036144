// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/llm"
)

type cannedClient struct {
	response string
	err      error
	prompt   string
}

func (c *cannedClient) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	c.prompt = prompt
	return c.response, c.err
}

func TestNewLLMEvaluatorRequiresClient(t *testing.T) {
	if _, err := NewLLMEvaluator(nil); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestEvaluatorParsesBareNumber(t *testing.T) {
	eval, err := NewLLMEvaluator(&cannedClient{response: "7.5"})
	if err != nil {
		t.Fatalf("NewLLMEvaluator: %v", err)
	}
	score, err := eval.Score(context.Background(), "some draft")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 7.5 {
		t.Errorf("score = %v", score)
	}
}

func TestEvaluatorToleratesPrefacedNumber(t *testing.T) {
	eval, _ := NewLLMEvaluator(&cannedClient{response: "I'd rate this 8.2 out of 10."})
	score, err := eval.Score(context.Background(), "some draft")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 8.2 {
		t.Errorf("score = %v", score)
	}
}

func TestEvaluatorRejectsUnusableResponses(t *testing.T) {
	for _, response := range []string{"", "excellent work", "42"} {
		eval, _ := NewLLMEvaluator(&cannedClient{response: response})
		if _, err := eval.Score(context.Background(), "some draft"); err == nil {
			t.Errorf("response %q: expected error", response)
		}
	}
}

func TestEvaluatorPropagatesTransportError(t *testing.T) {
	eval, _ := NewLLMEvaluator(&cannedClient{err: errors.New("model offline")})
	if _, err := eval.Score(context.Background(), "some draft"); err == nil {
		t.Error("expected transport error")
	}
}

func TestEvaluatorPromptEmbedsText(t *testing.T) {
	client := &cannedClient{response: "5"}
	eval, _ := NewLLMEvaluator(client)
	if _, err := eval.Score(context.Background(), "the essay body"); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !strings.Contains(client.prompt, "the essay body") {
		t.Errorf("prompt missing text:\n%s", client.prompt)
	}
}
