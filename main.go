package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/attachment"
	"github.com/silkycoders1/claimcheck/internal/config"
	"github.com/silkycoders1/claimcheck/internal/conversation"
	"github.com/silkycoders1/claimcheck/internal/logger"
	"github.com/silkycoders1/claimcheck/internal/observability"
	"github.com/silkycoders1/claimcheck/internal/policy"
	store "github.com/silkycoders1/claimcheck/internal/repository"
	"github.com/silkycoders1/claimcheck/internal/service"
	handler "github.com/silkycoders1/claimcheck/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	migrateDown := flag.Int("migrate-down", 0, "revert the last N PostgreSQL migrations and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "claimcheck: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "claimcheck: init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *migrateDown > 0 {
		reverted, err := store.RollbackPostgres(context.Background(), cfg.Database.URL, *migrateDown)
		for _, name := range reverted {
			log.Info("migration reverted", "name", name)
		}
		if err != nil {
			log.Error("migrate-down failed", "error", err)
			log.Sync()
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("claimcheck stopped", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting claimcheck",
		"http_port", cfg.Server.HTTPPort,
		"llm_base_url", cfg.LLM.BaseURL,
		"llm_model", cfg.LLM.Model,
	)

	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Version:     "0.1.0",
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Initialize store
	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewAttachmentEngine(ctx, cfg.Attachments.PolicyFile)
	if err != nil {
		return fmt.Errorf("init attachment policy: %w", err)
	}

	decoder := attachment.NewDecoder(policyEngine, cfg.Attachments.MaxBytes)
	builder := conversation.NewBuilder(conversation.NewNormalizer(decoder, log))
	llmClient := llm.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout(), log)

	svc := service.New(db, llmClient, builder, &cfg, log)
	server := handler.NewServer(svc, &cfg, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		log.Info("HTTP API listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down claimcheck")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
