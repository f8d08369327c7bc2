package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/auth"
	"github.com/BuzzLyutic/tasksync/internal/config"
	"github.com/BuzzLyutic/tasksync/internal/database"
	"github.com/BuzzLyutic/tasksync/internal/handler"
	"github.com/BuzzLyutic/tasksync/internal/hub"
	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/middleware"
	"github.com/BuzzLyutic/tasksync/internal/repo"
	"github.com/BuzzLyutic/tasksync/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and WebSocket gateway",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(cmd)
	return cmd
}

// Flags win over the environment when set.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	cmd.Flags().String("database-url", "", "postgres URL or memory:// (overrides DATABASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		cfg.DatabaseURL = url
	}
	if cfg.JWTSecret == "dev_secret" {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks, users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewCollector(reg)

	registry := hub.NewRegistry(logger, rec)
	router := hub.NewRouter(registry, logger, rec, cfg.DispatchWorkers, cfg.DispatchQueue)
	router.Start(context.Background())

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute, logger)
	defer limiter.Stop()

	taskService := service.NewTaskService(tasks, router, logger, rec)
	authService := auth.NewService(users, tokens, logger)

	h := handler.Routes(handler.Deps{
		Tasks:       handler.NewTaskHandler(taskService, logger),
		Auth:        handler.NewAuthHandler(authService, logger),
		WS:          handler.NewWSHandler(tokens, registry, cfg.WS, cfg.CORSOrigins, logger),
		Verifier:    tokens,
		Limiter:     limiter,
		Metrics:     metrics.Handler(reg),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	// Hijacked WebSocket connections are invisible to Shutdown, so they hang
	// off a base context that is cancelled when shutdown starts.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			router.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	// every request is finished, so nothing publishes after this
	router.Stop()
	registry.CloseAll()

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.TaskRepository, repo.UserRepository, func(), error) {
	if cfg.DatabaseURL == config.MemoryDatabaseURL {
		logger.Warn("using in-memory store, data is lost on restart")
		store := repo.NewMemoryStore()
		return store, store.Users(), func() {}, nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, nil, nil, err
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("connected to the database")

	return repo.NewTaskRepo(pool), repo.NewUserRepo(pool), pool.Close, nil
}
