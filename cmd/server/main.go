package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/example/deepthink/internal/api"
	"github.com/example/deepthink/internal/config"
	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/orchestrator"
	"github.com/example/deepthink/internal/session"
	"github.com/example/deepthink/internal/tools"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	gw := gateway.NewFromEnv(ctx, logger)
	if closer, ok := gw.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	store, err := session.NewStore(cfg.Sessions.Dir, logger)
	if err != nil {
		logger.Error("session store init failed", "error", err)
		os.Exit(1)
	}

	reg := tools.NewRegistry()
	reg.Register(&tools.WebSearchTool{})
	reg.Register(&tools.DocExtractTool{})

	orch := orchestrator.New(gw,
		orchestrator.WithLogger(logger),
		orchestrator.WithTools(reg),
	)
	defaults := orchestrator.Options{
		MaxSubtasks:       cfg.DeepThink.MaxSubtasks,
		MaxParallel:       cfg.DeepThink.MaxParallel,
		EnableReview:      cfg.DeepThink.EnableReview,
		EnableWebSearch:   cfg.DeepThink.EnableWebSearch,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		TopP:              cfg.LLM.TopP,
		MaxTokens:         cfg.LLM.MaxTokens,
		SystemInstruction: cfg.LLM.SystemInstruction,
		Timeout:           cfg.LLM.Timeout,
	}

	srv := api.NewServer(orch, store, reg, defaults, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
