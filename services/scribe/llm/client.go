// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the chat client shared by the writing tools, the
// re-planning oracle, and the quality evaluator. It wraps a langchaingo
// model with rate limiting and a per-call timeout so no collaborator can
// hang or flood the provider.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scriptorium.scribe.llm")

// Client is the completion interface the engine's collaborators consume.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tune a single completion call. Zero values fall back to the
// client's configured defaults.
type Options struct {
	// Purpose labels the call for metrics and tracing
	// (e.g. "tool:write_draft", "oracle", "evaluator").
	Purpose string

	// Temperature controls randomness. Lower = more deterministic.
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// Config configures a ChatClient.
type Config struct {
	// Provider names the backing provider for metrics ("openai", "ollama").
	Provider string `yaml:"provider"`

	// Timeout bounds each completion call. Default: 60s.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute caps outbound calls. Zero disables limiting
	// (local providers are not rate-limited).
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Temperature is the default sampling temperature. Default: 0.3.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens is the default response budget. Default: 1024.
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns sensible defaults for a local provider.
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		Timeout:     60 * time.Second,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// ChatClient is the production Client backed by any langchaingo model.
//
// Thread Safety: Safe for concurrent use (the limiter and model are).
type ChatClient struct {
	model   llms.Model
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChatClient wraps a langchaingo model.
//
// Inputs:
//   - model: The backing model. Must not be nil.
//   - cfg: Client configuration. Zero fields take defaults.
//
// Outputs:
//   - *ChatClient: Configured client.
//   - error: Non-nil if model is nil.
func NewChatClient(model llms.Model, cfg Config) (*ChatClient, error) {
	if model == nil {
		return nil, fmt.Errorf("chat client requires a model")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &ChatClient{
		model:   model,
		cfg:     cfg,
		limiter: limiter,
		logger:  slog.Default(),
	}, nil
}

// Complete sends a prompt through the rate limiter and model with the
// configured timeout applied.
//
// Description:
//
//	Rate-limiter waits count against the caller's context, so a cancelled
//	run never queues behind the limiter. Timeouts surface as ordinary
//	errors; the engine treats them like any other execution error.
//
// Thread Safety: Safe for concurrent use.
func (c *ChatClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	purpose := opts.Purpose
	if purpose == "" {
		purpose = "unlabeled"
	}

	ctx, span := tracer.Start(ctx, "llm.Complete",
		trace.WithAttributes(
			attribute.String("llm.provider", c.cfg.Provider),
			attribute.String("llm.purpose", purpose),
			attribute.Int("llm.prompt_len", len(prompt)),
		),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			RecordCompletion(c.cfg.Provider, purpose, "rate_limited", 0)
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	start := time.Now()
	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	duration := time.Since(start)

	if err != nil {
		outcome := "error"
		if ctx.Err() == context.DeadlineExceeded {
			outcome = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		RecordCompletion(c.cfg.Provider, purpose, outcome, duration.Seconds())
		return "", fmt.Errorf("completion failed (%s): %w", purpose, err)
	}

	RecordCompletion(c.cfg.Provider, purpose, "success", duration.Seconds())
	c.logger.Debug("completion succeeded",
		slog.String("purpose", purpose),
		slog.Duration("duration", duration),
		slog.Int("response_len", len(response)),
	)
	return strings.TrimSpace(response), nil
}
