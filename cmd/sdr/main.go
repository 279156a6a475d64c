// SDR engine server — receives WhatsApp webhook events, runs the
// qualification agent and manages the follow-up scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/agent"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/api"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/buffer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/cache"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/conversation"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/crm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/database"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/humanizer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/llm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/scheduler"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/session"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/store"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/tools"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

// idleNudge is sent once when a session crosses the idle-warning threshold.
const idleNudge = "Oi! Você ainda está por aí? Se quiser, continuamos de onde paramos."

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	logger := newLogger()
	slog.SetDefault(logger)

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		logger.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	logger.Info("Starting SDR engine", "http_port", httpPort, "config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(*configDir)
	if err != nil {
		logger.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("Error closing database client", "error", err)
		}
	}()
	logger.Info("Connected to PostgreSQL database")

	st := store.New(dbClient.DB())

	// 3. External collaborators: WhatsApp gateway, LLM, CRM, calendar
	gateway := whatsapp.NewGateway(cfg.Gateway, logger)
	human := humanizer.New(cfg.Humanizer, logger)

	llmClient, err := llm.NewAnthropicClient(cfg.LLM, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	crmClient := crm.NewClient(cfg.CRM, logger)
	calClient := calendar.NewClient(cfg.Calendar, logger)
	dedup := cache.NewDeduper(cfg.Redis, logger)

	// 4. Session manager with the idle-warning nudge
	onIdle := func(ctx context.Context, phone string) {
		if err := human.Deliver(ctx, phone, idleNudge, analysis.MoodNeutral, false, gateway); err != nil {
			logger.Warn("Idle nudge delivery failed", "error", err)
		}
	}
	sessions := session.NewManager(cfg.Session, cfg.FollowUp.FirstDelay(),
		st.Conversations, st.FollowUps, onIdle, logger)
	sessions.Start()

	// 5. Agent: tool catalogue plus orchestrator
	registry, err := tools.NewCatalogue(tools.Deps{
		Leads:         st.Leads,
		Messages:      st.Messages,
		Conversations: st.Conversations,
		FollowUps:     st.FollowUps,
		CRM:           crmClient,
		Calendar:      calClient,
		Messenger:     gateway,
		Downloader:    gateway,
		Analyzer:      llmClient,
		Config:        cfg,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to build tool catalogue", "error", err)
		os.Exit(1)
	}
	orchestrator := agent.New(llmClient, registry, dedup, cfg.Agent, logger)

	// 6. Turn pipeline behind the coalescing buffer
	processor := conversation.NewProcessor(
		st.Leads, st.Conversations, st.Messages, sessions, orchestrator,
		human, gateway, gateway, llmClient,
		cfg.Agent, cfg.Session, cfg.Qualification, logger)
	coalescer := buffer.NewCoalescer(cfg.Buffer, processor.HandleBatch, logger)

	// 7. Follow-up worker
	worker, err := scheduler.NewWorker(st.FollowUps, st.Leads, llmClient, human,
		gateway, cfg.FollowUp, logger)
	if err != nil {
		logger.Error("Failed to build follow-up worker", "error", err)
		os.Exit(1)
	}
	if err := worker.Start(); err != nil {
		logger.Error("Failed to start follow-up worker", "error", err)
		os.Exit(1)
	}

	// 8. HTTP server (non-blocking)
	srv := api.NewServer(cfg.Webhook, dbClient.DB(), coalescer, gateway, sessions, logger)
	httpServer := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	logger.Info("SDR engine started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		logger.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: stop intake first, then the background loops,
	// then the HTTP listener.
	coalescer.Stop()
	worker.Stop()
	sessions.Stop()

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
