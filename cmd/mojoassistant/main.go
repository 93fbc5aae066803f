// Command mojoassistant is the personal AI memory proxy's MCP-facing
// process: it wires the embedding, LLM, memory, dreaming, scheduler, and
// opencode services together and exposes their operations as a single MCP
// tool registry over stdio or HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
	"github.com/mojoassistant/mojoassistant/internal/embedding"
	"github.com/mojoassistant/mojoassistant/internal/llm"
	"github.com/mojoassistant/mojoassistant/internal/mcpserver"
	"github.com/mojoassistant/mojoassistant/internal/mcptools"
	"github.com/mojoassistant/mojoassistant/internal/memory"
	"github.com/mojoassistant/mojoassistant/internal/opencode"
	"github.com/mojoassistant/mojoassistant/internal/scheduler"
)

const version = "0.1.0"

// exit codes per the core process's external interface: 0 clean shutdown,
// 1 fatal startup error, 2 unrecoverable runtime error after initialisation.
const (
	exitOK       = 0
	exitStartup  = 1
	exitRuntime  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", "stdio", "transport mode: stdio or http")
	host := flag.String("host", "", "HTTP bind host (overrides SERVER_HOST)")
	port := flag.Int("port", 0, "HTTP bind port (overrides SERVER_PORT)")
	reload := flag.Bool("reload", false, "enable development auto-reload (stdio mode only watches nothing yet; reserved)")
	envFile := flag.String("env-file", "", "path to a .env file (default .env if present)")
	flag.Parse()

	startedAt := time.Now()
	logger := newLogger()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		return exitStartup
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *reload && !cfg.Server.IsDevelopment() {
		logger.Warn().Msg("--reload requested outside development environment; ignoring")
	}

	logger = logger.With().Str("mode", *mode).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embed, err := embedding.FromConfig(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build embedding service")
		return exitStartup
	}

	router, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build LLM router")
		return exitStartup
	}

	memSvc, err := memory.FromConfig(cfg, embed)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build memory service")
		return exitStartup
	}

	pipeline := dreaming.FromConfig(cfg, router)

	sched := scheduler.FromConfig(cfg, pipeline, memSvc, nil, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start scheduler")
		return exitStartup
	}
	defer sched.Stop()

	ocManager := opencode.FromConfig(cfg, logger)
	if err := ocManager.Load(); err != nil {
		logger.Error().Err(err).Msg("failed to load opencode manager state")
		return exitStartup
	}

	registry := mcptools.New(mcptools.Deps{
		Memory:    memSvc,
		Dreaming:  pipeline,
		Scheduler: sched,
		OpenCode:  ocManager,
		LLM:       router,
		Search:    cfg.Search,
		Version:   version,
		StartedAt: startedAt,
	})
	logger.Info().Int("tool_count", len(registry.List())).Strs("groups", registry.Groups()).Msg("tool registry ready")

	server := mcpserver.Build(registry)

	var runErr error
	switch *mode {
	case "stdio":
		logger.Info().Msg("serving MCP over stdio")
		runErr = mcpserver.ServeStdio(ctx, server)
	case "http":
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("serving MCP over http")
		runErr = mcpserver.ServeHTTP(ctx, server, addr)
	default:
		logger.Error().Str("mode", *mode).Msg("unrecognised --mode (want stdio or http)")
		return exitStartup
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error().Err(runErr).Msg("mcp server exited with error")
		return exitRuntime
	}

	logger.Info().Msg("shutdown complete")
	return exitOK
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}
