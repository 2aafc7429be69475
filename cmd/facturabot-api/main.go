package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/facturabot/facturabot/internal/agent"
	"github.com/facturabot/facturabot/internal/api"
	"github.com/facturabot/facturabot/internal/catalog"
	catalogpostgres "github.com/facturabot/facturabot/internal/catalog/postgres"
	chatlogpostgres "github.com/facturabot/facturabot/internal/chatlog/postgres"
	"github.com/facturabot/facturabot/internal/config"
	"github.com/facturabot/facturabot/internal/llm"
	"github.com/facturabot/facturabot/internal/observability"
	querypostgres "github.com/facturabot/facturabot/internal/query/postgres"
	"github.com/facturabot/facturabot/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("facturabot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := catalogpostgres.Open(ctx, catalogpostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	refresher := catalog.NewRefresher(catalogpostgres.NewLoader(db), cfg.Catalog.RefreshInterval, logger)
	if err := refresher.Refresh(ctx); err != nil {
		logger.Error("failed to load reference catalog", slog.Any("error", err))
		os.Exit(1)
	}
	refresher.Start(ctx)

	aiClient, err := llm.NewClient(llm.Config{
		BaseURL:             cfg.AI.BaseURL,
		APIKey:              cfg.AI.APIKey,
		CompletionModel:     cfg.AI.CompletionModel,
		EmbeddingModel:      cfg.AI.EmbeddingModel,
		EmbeddingDimensions: cfg.AI.EmbeddingDimensions,
		Temperature:         cfg.AI.Temperature,
		Timeout:             cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize ai client", slog.Any("error", err))
		os.Exit(1)
	}

	analytics := chatlogpostgres.NewWriter(db)
	orchestrator := agent.NewOrchestrator(agent.OrchestratorConfig{
		Intents:   agent.NewIntentClassifier(aiClient, logger, cfg.Agent.HistoryPrefix, cfg.Agent.IntentHistoryWindow),
		Extractor: agent.NewEntityExtractor(aiClient, logger),
		Types:     agent.NewTypeClassifier(aiClient, logger),
		Static:    agent.NewStaticGenerator(aiClient, logger, cfg.Agent.ConversationWindow),
		Semantic:  agent.NewSemanticGenerator(aiClient, logger, cfg.Agent.SemanticRowLimit),
		Responder: agent.NewResponder(aiClient, logger, cfg.Agent.ResponseSampleRows, cfg.Agent.ConversationWindow),
		Executor:  querypostgres.NewExecutor(db),
		Catalog:   refresher,
		History:   session.NewStore(),
		Analytics: analytics,
		Logger:    logger,
		Timeout:   cfg.Agent.TurnTimeout,
	})

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Agent:             orchestrator,
		Catalog:           refresher,
		Feedback:          analytics,
		DependencyTimeout: time.Second,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabase(db),
			api.CheckCatalog(refresher),
		),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
