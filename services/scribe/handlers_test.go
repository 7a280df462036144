// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/catalog"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/engine"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/quality"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/resolve"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/config"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/profile"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
	"github.com/gin-gonic/gin"
)

// echoTool is a local, model-free dialogue tool whose output exposes the
// resolved arguments, so end-to-end tests can observe context seeding.
type echoTool struct{}

func (echoTool) Definition() tools.Definition {
	return tools.Definition{
		Name:       "conversational_reply",
		Category:   "dialogue",
		Generative: false,
		Params: []tools.Param{
			{Name: "message", Type: "string"},
			{Name: "tone", Type: "string", Default: "neutral"},
		},
	}
}

func (echoTool) Invoke(_ context.Context, inv *tools.Invocation) (*tools.Result, error) {
	return &tools.Result{
		Success: true,
		Text: fmt.Sprintf("reply to %q in a %s tone",
			tools.StringArg(inv.Args, "message"), tools.StringArg(inv.Args, "tone")),
	}, nil
}

func newTestRouter(t *testing.T, profiles profile.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := tools.NewRegistry()
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	rules, err := config.DefaultResolverRules()
	if err != nil {
		t.Fatalf("resolver rules: %v", err)
	}
	resolver, err := resolve.New(catalog.New(registry.Definitions()), rules)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	cfg := config.DefaultEngineConfig()
	eng, err := engine.New(cfg, registry, resolver, quality.NewGate(nil, cfg.MinQualityScore), nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	service, err := NewService(eng, registry, profiles)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(service))
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRunReturnsCompletedRun(t *testing.T) {
	router := newTestRouter(t, profile.NewMemoryStore())

	rec := doRequest(t, router, http.MethodPost, "/v1/scribe/runs",
		`{"message": "say hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result agent.RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.State != agent.StateDone {
		t.Errorf("state = %s", result.State)
	}
	if result.RunID == "" {
		t.Error("run id missing")
	}
	if !strings.Contains(result.FinalText, `"say hello"`) {
		t.Errorf("final text = %q", result.FinalText)
	}
}

func TestCreateRunRejectsMissingMessage(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, body := range []string{``, `{}`, `{"message": ""}`, `not json`} {
		rec := doRequest(t, router, http.MethodPost, "/v1/scribe/runs", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
}

func TestCreateRunSeedsContextFromProfile(t *testing.T) {
	profiles := profile.NewMemoryStore()
	if err := profiles.Set(context.Background(), "alice/tone", "wry"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newTestRouter(t, profiles)

	rec := doRequest(t, router, http.MethodPost, "/v1/scribe/runs",
		`{"user_id": "alice", "message": "say hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result agent.RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(result.FinalText, "wry tone") {
		t.Errorf("profile tone not applied: %q", result.FinalText)
	}
}

func TestCreateRunCallerContextBeatsProfile(t *testing.T) {
	profiles := profile.NewMemoryStore()
	if err := profiles.Set(context.Background(), "alice/tone", "wry"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newTestRouter(t, profiles)

	rec := doRequest(t, router, http.MethodPost, "/v1/scribe/runs",
		`{"user_id": "alice", "message": "say hello", "context": {"tone": "stern"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result agent.RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(result.FinalText, "stern tone") {
		t.Errorf("caller context must win: %q", result.FinalText)
	}
}

func TestListTools(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/v1/scribe/tools", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Tools []tools.Definition `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tools) != 1 || body.Tools[0].Name != "conversational_reply" {
		t.Errorf("tools = %+v", body.Tools)
	}
}

func TestProfileRoundTripOverHTTP(t *testing.T) {
	router := newTestRouter(t, profile.NewMemoryStore())

	rec := doRequest(t, router, http.MethodPut, "/v1/scribe/profiles/alice",
		`{"key": "language", "value": "de"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/scribe/profiles/alice/language", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var body struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Value != "de" {
		t.Errorf("value = %v", body.Value)
	}
}

func TestProfileEndpointsWithoutStore(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodPut, "/v1/scribe/profiles/alice",
		`{"key": "language", "value": "de"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("put status = %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/v1/scribe/profiles/alice/language", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("get status = %d", rec.Code)
	}
}

func TestProfileGetUnknownKey(t *testing.T) {
	router := newTestRouter(t, profile.NewMemoryStore())
	rec := doRequest(t, router, http.MethodGet, "/v1/scribe/profiles/alice/unset", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := doRequest(t, router, http.MethodGet, "/v1/scribe/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/v1/scribe/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
}
