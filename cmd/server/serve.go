package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"seo-agents/backend/internal/api"
	"seo-agents/backend/internal/mcp"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/internal/scheduler"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MCP endpoint and the scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("Starting SEO agents service")

	if err := repository.Migrate(ctx, cfg.DSN()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info("Database connected")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(otelecho.Middleware("seo-agents"))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	apiServer := api.NewServer(a.service, a.store, a.compliance, logger)
	e.HTTPErrorHandler = apiServer.ErrorHandler

	health := api.NewHandler(a.store)
	e.GET("/health", health.HandleHealth)
	e.GET("/ready", health.HandleReady)
	e.GET("/metrics", echo.WrapHandler(a.telemetry.Handler()))

	// Mount REST API handlers
	apiServer.RegisterRoutes(e.Group("/api/v1"))
	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(a.service, a.compliance)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, a.store, a.service, cfg.Scheduler.MaxConcurrent, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	// Workflow runs outlive a single request, so the write timeout stays generous.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if sched != nil {
			select {
			case <-sched.Stop().Done():
			case <-ctx.Done():
				logger.Warn("Scheduled runs still in flight at shutdown")
			}
		}
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}
