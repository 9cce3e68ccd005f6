// File: cmd/agent/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inbox-triage-agent/internal/config"
	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/adapters/llm"
	"inbox-triage-agent/internal/infra/inboxapi"
	"inbox-triage-agent/internal/infra/logging"
	"inbox-triage-agent/internal/infra/metrics"
	"inbox-triage-agent/internal/infra/sched"
	"inbox-triage-agent/internal/infra/web"
	"inbox-triage-agent/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file (optional; env wins)")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().
		Str("api_url", cfg.API.URL).
		Str("api_token", logging.Redact(cfg.API.Token, cfg.Runtime.Dev)).
		Str("llm_provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Msg("Inbox triage agent starting")

	metrics.MustRegister()

	// ---- Inbox API client ----
	apiClient, err := inboxapi.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout, cfg.API.MaxRetries, logger)
	if err != nil {
		log.Fatalf("inbox api: %v", err)
	}

	// ---- LLM adapter (ollama default; openai/gemini opt-in) ----
	var ai adapter.LLMAdapter
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "ollama":
		ai, err = llm.NewOllamaAdapter(cfg.LLM.OllamaURL, cfg.LLM.Model, cfg.API.Timeout, cfg.API.MaxRetries, logger)
		if err != nil {
			log.Fatalf("ollama adapter: %v", err)
		}
		logger.Info().Str("base", cfg.LLM.OllamaURL).Str("model", ai.Model()).Msg("LLM adapter: Ollama")
	case "openai":
		ai, err = llm.NewOpenAIAdapter(cfg.LLM.OpenAIKey, cfg.LLM.Model, cfg.LLM.OpenAIBaseURL, cfg.API.Timeout, cfg.API.MaxRetries, logger)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", ai.Model()).Msg("LLM adapter: OpenAI-compatible")
	case "gemini":
		ai, err = llm.NewGeminiAdapter(ctx, cfg.LLM.GeminiKey, cfg.LLM.GeminiURL, cfg.LLM.Model)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", ai.Model()).Msg("LLM adapter: Gemini")
	default:
		log.Fatalf("unknown llm provider %q (want ollama, openai or gemini)", cfg.LLM.Provider)
	}

	// ---- Engine and worker ----
	engine := usecase.NewClassificationEngine(ai, cfg.LLM.MinConfidence, logger)
	worker := sched.NewTriageWorker(
		apiClient,
		engine,
		cfg.Worker.PollInterval,
		cfg.Worker.BatchSize,
		cfg.Worker.ClaimMessages,
		logger,
	)

	// ---- Admin server (optional) ----
	var admin *web.Server
	if cfg.Admin.Port > 0 {
		admin = web.NewServer(cfg.Admin.Port, cfg.Admin.APIKey, worker.Metrics(), logger)
		go func() {
			if err := admin.Start(); err != nil {
				logger.Error().Err(err).Msg("Admin server error")
			}
		}()
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("Shutdown requested")
	cancel()
	<-workerDone

	if admin != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Admin server shutdown error")
		}
	}
}
