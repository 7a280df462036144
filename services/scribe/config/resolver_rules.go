// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Resolver Rules
// =============================================================================

//go:embed resolver_rules.yaml
var defaultResolverRulesYAML []byte

// =============================================================================
// Resolver Rule Types
// =============================================================================

// RoleRule maps a canonical parameter name to an ordered list of candidate
// context keys. The chain is inspectable data rather than scattered
// conditionals, so each key can be unit-tested in isolation.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type RoleRule struct {
	// Param is the canonical parameter name the rule resolves.
	Param string `yaml:"param"`

	// Role is a human-readable description of what the rule locates
	// (e.g. "the text currently being edited"). Logging only.
	Role string `yaml:"role"`

	// Keys are candidate context keys, tried in order against the working
	// context and then its flattened view.
	Keys []string `yaml:"keys"`

	// UseUtterance lets the rule fall back to the raw user message when
	// no candidate key matches.
	UseUtterance bool `yaml:"use_utterance"`
}

// ResolverRules holds the data-driven stages of argument resolution: the
// semantic-role heuristics, the alias table, and the static defaults table.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ResolverRules struct {
	// Roles are the semantic-role heuristics, applied after direct context
	// lookup fails.
	Roles []RoleRule `yaml:"roles"`

	// Aliases maps canonical parameter names to historically-used
	// synonyms, retried against explicit args and context as a last stage.
	Aliases map[string][]string `yaml:"aliases"`

	// Defaults is the static defaults table.
	Defaults map[string]any `yaml:"defaults"`
}

// RoleFor returns the role rule for a parameter name, if any.
func (r *ResolverRules) RoleFor(param string) (RoleRule, bool) {
	for _, rule := range r.Roles {
		if rule.Param == param {
			return rule, true
		}
	}
	return RoleRule{}, false
}

// =============================================================================
// Loading
// =============================================================================

var (
	defaultRulesOnce sync.Once
	defaultRules     *ResolverRules
	defaultRulesErr  error
)

// DefaultResolverRules returns the embedded default rule tables. The parse
// happens once; subsequent calls return the same immutable instance.
func DefaultResolverRules() (*ResolverRules, error) {
	defaultRulesOnce.Do(func() {
		defaultRules, defaultRulesErr = parseResolverRules(defaultResolverRulesYAML)
	})
	return defaultRules, defaultRulesErr
}

// LoadResolverRules reads rule tables from a YAML file, for deployments
// that override the embedded defaults.
func LoadResolverRules(path string) (*ResolverRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resolver rules %s: %w", path, err)
	}
	return parseResolverRules(data)
}

func parseResolverRules(data []byte) (*ResolverRules, error) {
	var rules ResolverRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse resolver rules: %w", err)
	}
	for i, rule := range rules.Roles {
		if rule.Param == "" {
			return nil, fmt.Errorf("resolver rule %d: param must not be empty", i)
		}
		if len(rule.Keys) == 0 && !rule.UseUtterance {
			return nil, fmt.Errorf("resolver rule %d (%s): needs keys or use_utterance", i, rule.Param)
		}
	}
	if rules.Aliases == nil {
		rules.Aliases = map[string][]string{}
	}
	if rules.Defaults == nil {
		rules.Defaults = map[string]any{}
	}
	return &rules, nil
}
