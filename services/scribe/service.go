// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scribe is the service edge of the composition engine: it seeds
// run context from stored profiles, hands requests to the engine, and
// exposes the HTTP surface.
package scribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/engine"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/profile"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
)

// profileSeeds are the profile facts copied into a run's context snapshot
// when the caller did not supply them explicitly.
var profileSeeds = []string{"tone", "language", "target_length"}

// RunRequest is one composition request at the service boundary.
type RunRequest struct {
	// UserID selects the profile to seed context from. Optional.
	UserID string `json:"user_id,omitempty"`

	// Message is the free-text user utterance. Required.
	Message string `json:"message" binding:"required"`

	// Context is the caller-supplied context snapshot. Optional; profile
	// seeds fill gaps but never override caller-supplied keys.
	Context map[string]any `json:"context,omitempty"`
}

// Service wires the engine to its profile store.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	engine   *engine.Engine
	registry *tools.Registry
	profiles profile.Store
	logger   *slog.Logger
}

// NewService creates the service edge.
//
// Inputs:
//   - eng: The run engine. Must not be nil.
//   - registry: The tool registry, used for the catalog endpoint.
//   - profiles: Profile store. May be nil; runs then start from the
//     caller-supplied context only.
func NewService(eng *engine.Engine, registry *tools.Registry, profiles profile.Store) (*Service, error) {
	if eng == nil || registry == nil {
		return nil, fmt.Errorf("service requires engine and registry")
	}
	return &Service{
		engine:   eng,
		registry: registry,
		profiles: profiles,
		logger:   slog.Default(),
	}, nil
}

// Run executes one composition request.
func (s *Service) Run(ctx context.Context, req RunRequest) (*agent.RunResult, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	snapshot := make(map[string]any, len(req.Context)+len(profileSeeds))
	for k, v := range req.Context {
		snapshot[k] = v
	}
	s.seedProfile(ctx, req.UserID, snapshot)

	return s.engine.Run(ctx, engine.Request{
		UserInput: req.Message,
		Context:   snapshot,
	}), nil
}

// Tools returns the registered tool definitions, sorted by name.
func (s *Service) Tools() []tools.Definition {
	return s.registry.Definitions()
}

// Profiles exposes the profile store for the profile endpoints. May be nil.
func (s *Service) Profiles() profile.Store {
	return s.profiles
}

// seedProfile copies stored profile facts into the snapshot for keys the
// caller left unset.
func (s *Service) seedProfile(ctx context.Context, userID string, snapshot map[string]any) {
	if s.profiles == nil || userID == "" {
		return
	}
	for _, key := range profileSeeds {
		if _, ok := snapshot[key]; ok {
			continue
		}
		if v := s.profiles.Get(ctx, profileKey(userID, key), nil); v != nil {
			snapshot[key] = v
		}
	}
}

func profileKey(userID, key string) string {
	return userID + "/" + key
}
