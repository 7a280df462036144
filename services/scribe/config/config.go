// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the compose engine's configuration types: the
// engine budgets/thresholds and the data-driven resolver rule tables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Engine Configuration
// =============================================================================

// EngineConfig carries the run budgets, retry policy, and quality
// threshold of the step executor.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type EngineConfig struct {
	// MaxSteps is the hard per-run step budget. A run never executes more
	// steps than this, regardless of oracle proposals.
	MaxSteps int `yaml:"max_steps" validate:"gt=0,lte=64"`

	// MaxQualitySteps bounds quality-driven corrective insertions per run,
	// independently of MaxSteps.
	MaxQualitySteps int `yaml:"max_quality_steps" validate:"gte=0,lte=16"`

	// ToolRetries is how many additional attempts a failing tool execution
	// gets before the error is accepted and recorded.
	ToolRetries int `yaml:"tool_retries" validate:"gte=0,lte=8"`

	// ToolTimeout bounds each tool execution attempt.
	ToolTimeout time.Duration `yaml:"tool_timeout" validate:"gt=0"`

	// MinQualityScore is the quality-gate threshold in [0,10]. Generative
	// output scoring below it triggers a corrective step.
	MinQualityScore float64 `yaml:"min_quality_score" validate:"gte=0,lte=10"`

	// ImprovementTool is the default corrective tool when the re-planning
	// oracle does not supply one.
	ImprovementTool string `yaml:"improvement_tool" validate:"required"`

	// ClarificationTool is inserted (once per run) when required arguments
	// cannot be resolved.
	ClarificationTool string `yaml:"clarification_tool" validate:"required"`

	// ConversationalTool runs when a plan translates to no steps.
	ConversationalTool string `yaml:"conversational_tool" validate:"required"`
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxSteps:           8,
		MaxQualitySteps:    2,
		ToolRetries:        2,
		ToolTimeout:        60 * time.Second,
		MinQualityScore:    8.5,
		ImprovementTool:    "improve_text",
		ClarificationTool:  "ask_clarification",
		ConversationalTool: "conversational_reply",
	}
}

// UnmarshalYAML decodes a (possibly partial) config document over the
// receiver's current values. tool_timeout accepts Go duration strings
// ("30s", "2m"), which encoding does not handle for time.Duration fields.
func (c *EngineConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxSteps           *int     `yaml:"max_steps"`
		MaxQualitySteps    *int     `yaml:"max_quality_steps"`
		ToolRetries        *int     `yaml:"tool_retries"`
		ToolTimeout        string   `yaml:"tool_timeout"`
		MinQualityScore    *float64 `yaml:"min_quality_score"`
		ImprovementTool    string   `yaml:"improvement_tool"`
		ClarificationTool  string   `yaml:"clarification_tool"`
		ConversationalTool string   `yaml:"conversational_tool"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxSteps != nil {
		c.MaxSteps = *raw.MaxSteps
	}
	if raw.MaxQualitySteps != nil {
		c.MaxQualitySteps = *raw.MaxQualitySteps
	}
	if raw.ToolRetries != nil {
		c.ToolRetries = *raw.ToolRetries
	}
	if raw.ToolTimeout != "" {
		d, err := time.ParseDuration(raw.ToolTimeout)
		if err != nil {
			return fmt.Errorf("parse tool_timeout: %w", err)
		}
		c.ToolTimeout = d
	}
	if raw.MinQualityScore != nil {
		c.MinQualityScore = *raw.MinQualityScore
	}
	if raw.ImprovementTool != "" {
		c.ImprovementTool = raw.ImprovementTool
	}
	if raw.ClarificationTool != "" {
		c.ClarificationTool = raw.ClarificationTool
	}
	if raw.ConversationalTool != "" {
		c.ConversationalTool = raw.ConversationalTool
	}
	return nil
}

// Validate checks the configuration invariants.
func (c EngineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("engine config invalid: %w", err)
	}
	return nil
}

// LoadEngineConfig reads an engine config from a YAML file, layering it
// over the defaults so partial files are valid.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read engine config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
