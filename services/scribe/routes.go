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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all scribe routes with the router.
//
// Description:
//
//	Registers all /v1/scribe/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/scribe/runs - Execute a composition run
//	GET  /v1/scribe/tools - List registered tools
//
//	PUT  /v1/scribe/profiles/:user_id - Store a profile fact
//	GET  /v1/scribe/profiles/:user_id/:key - Read a profile fact
//
//	GET  /v1/scribe/health - Health check
//	GET  /v1/scribe/ready - Readiness check
//
// Example:
//
//	service, _ := scribe.NewService(eng, registry, profiles)
//	handlers := scribe.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	scribe.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	scribe := rg.Group("/scribe")
	{
		scribe.POST("/runs", handlers.HandleCreateRun)
		scribe.GET("/tools", handlers.HandleListTools)

		scribe.PUT("/profiles/:user_id", handlers.HandleSetProfile)
		scribe.GET("/profiles/:user_id/:key", handlers.HandleGetProfile)

		scribe.GET("/health", handlers.HandleHealth)
		scribe.GET("/ready", handlers.HandleReady)
	}
}
