package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"seo-agents/backend/internal/agents/conductor"
	"seo-agents/backend/internal/agents/ghostwriter"
	"seo-agents/backend/internal/agents/scholar"
	"seo-agents/backend/internal/compliance"
	"seo-agents/backend/internal/config"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/metrics"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/internal/services"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	pool       *pgxpool.Pool
	store      *repository.PostgresStore
	compliance *compliance.Engine
	service    *services.AgentService
	telemetry  *metrics.Exporter
}

func loadConfig(path string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store := repository.NewPostgresStore(pool)

	telemetry, err := metrics.NewExporter(cfg.Metrics.Enabled)
	if err != nil {
		pool.Close()
		return nil, err
	}
	m, err := metrics.New(telemetry.Meter())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	model, err := llm.NewOpenAICompleter(llm.OpenAIConfig{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		Timeout:       cfg.LLM.Timeout,
		RetryAttempts: cfg.LLM.RetryAttempts,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	engine := compliance.NewEngine(model, logger,
		compliance.WithExcerptRunes(cfg.Compliance.SemanticExcerptRunes),
		compliance.WithSemanticMaxTokens(cfg.Compliance.SemanticMaxTokens),
		compliance.WithObserver(m.ComplianceObserver()),
	)

	credentials := providers.NewOAuthCredentials(
		cfg.Providers.OAuth.ClientID,
		cfg.Providers.OAuth.ClientSecret,
		cfg.Providers.OAuth.TokenURL,
		providers.EnvSecrets{},
	)
	search := providers.NewSearchConsoleClient(providers.HTTPConfig{
		BaseURL:    cfg.Providers.SearchConsoleURL,
		Timeout:    cfg.Providers.Timeout,
		RetryCount: cfg.Providers.RetryCount,
	}, credentials)
	research := providers.NewKeywordResearchClient(providers.HTTPConfig{
		BaseURL:    cfg.Providers.KeywordResearchURL,
		APIKey:     cfg.Providers.KeywordResearchKey,
		Timeout:    cfg.Providers.Timeout,
		RetryCount: cfg.Providers.RetryCount,
	})

	service, err := services.NewAgentService(store, services.Deps{
		Search:      search,
		Research:    research,
		Model:       model,
		Compliance:  engine,
		Credentials: credentials,
	}, services.Config{
		Scholar: scholar.Config{
			LookbackDays:    cfg.Scholar.LookbackDays,
			MinVolume:       cfg.Scholar.MinVolume,
			MaxDifficulty:   cfg.Scholar.MaxDifficulty,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
		Ghostwriter: ghostwriter.Config{
			MaxRewriteAttempts: cfg.Workflow.MaxRewriteAttempts,
			MaxOutputTokens:    cfg.LLM.MaxOutputTokens,
		},
		Conductor:   conductor.Config{MaxTopics: cfg.Conductor.MaxTopics},
		NodeTimeout: cfg.Workflow.NodeTimeout,
		Hooks:       []graph.StepHook{m.StepHook()},
		OnFinish:    m.RecordRun,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		store:      store,
		compliance: engine,
		service:    service,
		telemetry:  telemetry,
	}, nil
}

func (a *app) Close() {
	_ = a.telemetry.Shutdown(context.Background())
	a.pool.Close()
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
