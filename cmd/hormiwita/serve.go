package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/borjamrd/hormiwita/internal/categorize"
	"github.com/borjamrd/hormiwita/internal/config"
	"github.com/borjamrd/hormiwita/internal/conversation"
	"github.com/borjamrd/hormiwita/internal/llm"
	"github.com/borjamrd/hormiwita/internal/server"
	"github.com/borjamrd/hormiwita/internal/service"
	"github.com/borjamrd/hormiwita/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session API server",
		Long: `Start the HTTP API that drives onboarding conversations, statement
analysis, categorization, savings forecasts and roadmap progression.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("storage", "memory", "session store backend (memory, sqlite, redis)")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("storage.backend", cmd.Flags().Lookup("storage"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := newSessionStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("failed to close session store", "error", closeErr)
		}
	}()

	oracles, err := llm.NewOraclesForProvider(ctx, llm.Config{
		Provider:       cfg.Oracle.Provider,
		Model:          cfg.Oracle.Model,
		APIKey:         cfg.Oracle.APIKey,
		MaxRetries:     cfg.Oracle.MaxRetries,
		RateLimit:      cfg.Oracle.RateLimit,
		Temperature:    cfg.Oracle.Temperature,
		TextStatements: cfg.Oracle.TextStatements,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to set up oracles: %w", err)
	}
	defer oracles.Close()

	manager, err := conversation.NewManager(conversation.Config{
		Store:       store,
		Dialogue:    oracles.Dialogue,
		Categorizer: categorize.NewOrchestrator(oracles.Classify, slog.Default()),
		Analyzer:    oracles.Statement,
		Roadmaps:    oracles.Roadmap,
		Guided:      oracles.Guided,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(manager, slog.Default()).Router(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting API server",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Backend,
		"oracle", cfg.Oracle.Provider)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newSessionStore(ctx context.Context, cfg config.StorageConfig) (service.SessionStore, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		return storage.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisTTL)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
