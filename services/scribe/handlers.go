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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the uniform error body for all scribe endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers holds the HTTP handlers for the scribe service.
//
// Thread Safety: Safe for concurrent use; all state lives in the Service.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleCreateRun handles POST /v1/scribe/runs.
//
// Description:
//
//	Executes one composition run to completion and returns its full
//	history. Runs are synchronous: the engine's step budget bounds the
//	response time.
//
// Response:
//
//	200 OK: agent.RunResult
//	400 Bad Request: Malformed body or missing message
func (h *Handlers) HandleCreateRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateRun")

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("run completed",
		slog.String("run_id", result.RunID),
		slog.String("state", string(result.State)),
		slog.Int("steps", len(result.History)),
	)
	c.JSON(http.StatusOK, result)
}

// HandleListTools handles GET /v1/scribe/tools.
func (h *Handlers) HandleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.service.Tools()})
}

// profileRequest is the body for profile writes.
type profileRequest struct {
	Key   string `json:"key" binding:"required"`
	Value any    `json:"value" binding:"required"`
}

// HandleSetProfile handles PUT /v1/scribe/profiles/:user_id.
//
// Response:
//
//	200 OK: {"status": "stored"}
//	400 Bad Request: Malformed body
//	503 Service Unavailable: No profile store configured
func (h *Handlers) HandleSetProfile(c *gin.Context) {
	store := h.service.Profiles()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "profile storage is not configured",
			Code:  "PROFILES_DISABLED",
		})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	userID := c.Param("user_id")
	if err := store.Set(c.Request.Context(), profileKey(userID, req.Key), req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "STORAGE_FAILURE",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

// HandleGetProfile handles GET /v1/scribe/profiles/:user_id/:key.
func (h *Handlers) HandleGetProfile(c *gin.Context) {
	store := h.service.Profiles()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "profile storage is not configured",
			Code:  "PROFILES_DISABLED",
		})
		return
	}

	value := store.Get(c.Request.Context(), profileKey(c.Param("user_id"), c.Param("key")), nil)
	if value == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "profile key not found",
			Code:  "NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value})
}

// HandleHealth handles GET /v1/scribe/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/scribe/ready. The service is ready once the
// tool registry is populated.
func (h *Handlers) HandleReady(c *gin.Context) {
	if len(h.service.Tools()) == 0 {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "no tools registered",
			Code:  "NOT_READY",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
