// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scribe starts the Scriptorium Scribe API server.
//
// Scribe is a plan-execution engine for content generation:
//   - LLM-backed writing tools (outline, draft, improve, summarize)
//   - Layered argument resolution from context, heuristics, and defaults
//   - Quality-gated re-planning with bounded corrective steps
//   - BadgerDB-backed user profiles seeding run context
//
// Usage:
//
//	go run ./cmd/scribe
//	go run ./cmd/scribe -port 9090 -config scribe.yaml
//
// With Ollama:
//
//	OLLAMA_BASE_URL=http://localhost:11434 OLLAMA_MODEL=llama3 go run ./cmd/scribe
//
// With OpenAI:
//
//	SCRIBE_PROVIDER=openai OPENAI_API_KEY=... OPENAI_MODEL=gpt-4o-mini go run ./cmd/scribe
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/scribe/health
//
//	# List registered tools
//	curl http://localhost:8080/v1/scribe/tools | jq
//
//	# Execute a run
//	curl -X POST http://localhost:8080/v1/scribe/runs \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "Write a short essay on tide pools", "user_id": "demo"}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	scribe "github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/catalog"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/engine"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/plan"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/quality"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent/resolve"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/config"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/llm"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/profile"
	badgerstore "github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/storage/badger"
	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/tools"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 10 * time.Second

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Path to engine config YAML (defaults used when empty)")
	traceStdout := flag.Bool("trace-stdout", false, "Export OTel spans to stdout")
	flag.Parse()

	setupLogging(*debug)

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdownTracing := setupTracing(*traceStdout)

	engineCfg := config.DefaultEngineConfig()
	if *configPath != "" {
		cfg, err := config.LoadEngineConfig(*configPath)
		if err != nil {
			slog.Error("Failed to load engine config", slog.String("error", err.Error()))
			os.Exit(1)
		}
		engineCfg = cfg
	}

	model, provider, err := buildModel()
	if err != nil {
		slog.Error("Failed to construct LLM provider", slog.String("error", err.Error()))
		os.Exit(1)
	}
	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = provider
	client, err := llm.NewChatClient(model, llmCfg)
	if err != nil {
		slog.Error("Failed to create chat client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("LLM provider connected", slog.String("provider", provider))

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, client); err != nil {
		slog.Error("Failed to register tools", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolverRules, err := config.DefaultResolverRules()
	if err != nil {
		slog.Error("Failed to load resolver rules", slog.String("error", err.Error()))
		os.Exit(1)
	}
	resolver, err := resolve.New(catalog.New(registry.Definitions()), resolverRules)
	if err != nil {
		slog.Error("Failed to build resolver", slog.String("error", err.Error()))
		os.Exit(1)
	}

	evaluator, err := quality.NewLLMEvaluator(client)
	if err != nil {
		slog.Error("Failed to build evaluator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	gate := quality.NewGate(evaluator, engineCfg.MinQualityScore)

	oracle, err := plan.NewLLMOracle(client, registry.Definitions())
	if err != nil {
		slog.Error("Failed to build oracle", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eng, err := engine.New(engineCfg, registry, resolver, gate, oracle)
	if err != nil {
		slog.Error("Failed to build engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Per-user profiles live in an embedded BadgerDB. Graceful degradation:
	// if the directory is unusable, runs proceed without profile seeding.
	profiles, profileDB := openProfiles()

	service, err := scribe.NewService(eng, registry, profiles)
	if err != nil {
		slog.Error("Failed to build service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("scriptorium-scribe"))
	if *debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	scribe.RegisterRoutes(v1, scribe.NewHandlers(service))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting Scriptorium Scribe server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down Scriptorium Scribe server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if profileDB != nil {
		if closeErr := profileDB.Close(); closeErr != nil {
			slog.Warn("Failed to close profile database", slog.String("error", closeErr.Error()))
		}
	}
	shutdownTracing()

	if err != nil {
		slog.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupLogging routes slog to a human-readable handler on TTYs and JSON
// otherwise.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// setupTracing installs a tracer provider. With -trace-stdout spans are
// exported to stdout; otherwise spans are recorded but not exported,
// which still propagates trace IDs into logs and responses.
func setupTracing(exportStdout bool) func() {
	var opts []sdktrace.TracerProviderOption
	if exportStdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			slog.Warn("Failed to create stdout trace exporter", slog.String("error", err.Error()))
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("Tracer provider shutdown failed", slog.String("error", err.Error()))
		}
	}
}

// buildModel constructs the chat model from environment configuration.
// SCRIBE_PROVIDER selects ollama (default) or openai.
func buildModel() (llms.Model, string, error) {
	provider := os.Getenv("SCRIBE_PROVIDER")
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "ollama":
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		modelName := os.Getenv("OLLAMA_MODEL")
		if modelName == "" {
			modelName = "llama3"
		}
		model, err := ollama.New(ollama.WithServerURL(baseURL), ollama.WithModel(modelName))
		if err != nil {
			return nil, "", fmt.Errorf("ollama: %w", err)
		}
		return model, provider, nil
	case "openai":
		var opts []openai.Option
		if modelName := os.Getenv("OPENAI_MODEL"); modelName != "" {
			opts = append(opts, openai.WithModel(modelName))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, "", fmt.Errorf("openai: %w", err)
		}
		return model, provider, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q", provider)
	}
}

// openProfiles opens the profile BadgerDB under SCRIBE_PROFILE_DIR
// (default ~/.scriptorium/profiles). Returns a nil store when the
// database cannot be opened; the service then runs without profiles.
func openProfiles() (profile.Store, *badgerstore.DB) {
	dir := os.Getenv("SCRIBE_PROFILE_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("No home directory, profile storage disabled", slog.String("error", err.Error()))
			return nil, nil
		}
		dir = filepath.Join(home, ".scriptorium", "profiles")
	}

	cfg := badgerstore.DefaultConfig()
	cfg.Path = dir
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		slog.Warn("Profile BadgerDB unavailable, profile seeding disabled",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	store, err := profile.NewBadgerStore(db)
	if err != nil {
		_ = db.Close()
		slog.Warn("Profile store unavailable", slog.String("error", err.Error()))
		return nil, nil
	}
	slog.Info("Profile BadgerDB opened", slog.String("path", dir))
	return store, db
}
