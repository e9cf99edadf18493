// cmd/resume-tailor/main.go
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

	"go.uber.org/zap"

	"resume-tailor/internal/access"
	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/database"
	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/common/observability"
	"resume-tailor/internal/completion"
	"resume-tailor/internal/rewrite"
	"resume-tailor/internal/tailor"
	"resume-tailor/internal/web"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	zapLog.Info("Starting resume tailor...",
		zap.String("backend", cfg.Access.Backend),
		zap.String("provider", cfg.Completion.Provider),
	)

	obs, err := observability.New(cfg.App.Name, cfg.Tracing)
	if err != nil {
		zapLog.Warn("observability setup failed, continuing without metrics export", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	var backends access.Backends

	if cfg.Access.Backend == config.BackendPostgres {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		backends.DB = pg.DB
		zapLog.Info("PostgreSQL connected successfully")
	}

	// redis is the store for the redis backend and an optional grant cache
	// in front of postgres
	useRedis := cfg.Access.Backend == config.BackendRedis ||
		(cfg.Access.Backend == config.BackendPostgres && cfg.Database.Redis.Address != "")
	if useRedis {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		backends.Redis = rdb.Client
		zapLog.Info("Redis connected successfully")
	}

	store, err := access.NewStore(ctx, cfg.Access, backends, log)
	if err != nil {
		zapLog.Fatal("access store init failed", zap.Error(err))
	}

	completer, err := completion.New(ctx, cfg.Completion, log)
	if err != nil {
		zapLog.Fatal("completion client init failed", zap.Error(err))
	}
	if cfg.Completion.APIKey == "" {
		zapLog.Warn("completion api key is empty, rewrites will fail until it is set")
	}

	rewriter := rewrite.New(completer, rewrite.Options{
		Concurrency: cfg.Completion.Concurrency,
		Obs:         obs,
	}, log)
	svc := tailor.NewService(store, rewriter, log)

	handler, err := web.NewHandler(web.Options{
		Config:  cfg,
		Service: svc,
		Store:   store,
		Obs:     obs,
		Logger:  log,
	})
	if err != nil {
		zapLog.Fatal("web handler init failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during server shutdown", zap.Error(err))
	}

	zapLog.Info("Resume tailor stopped")
}
