package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/auth"
	"github.com/mAmineChniti/SerialHub/internal/cache"
	"github.com/mAmineChniti/SerialHub/internal/config"
	"github.com/mAmineChniti/SerialHub/internal/covers"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"github.com/mAmineChniti/SerialHub/internal/logger"
	"github.com/mAmineChniti/SerialHub/internal/publishing"
	"github.com/mAmineChniti/SerialHub/internal/search"
	"github.com/mAmineChniti/SerialHub/internal/server"
	"go.uber.org/zap"
)

type closer func(ctx context.Context) error

func gracefulShutdown(apiServer *http.Server, log *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	// The server has 5 seconds to finish the requests it is currently handling.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")

	done <- true
}

// closeAll releases dependencies in reverse order of opening.
func closeAll(log *zap.Logger, closers []closer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			log.Warn("close dependency", zap.Error(err))
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.DBDriver == "memory" {
		return database.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return database.New(ctx, cfg.MongoDSN(), cfg.DBName)
}

func runReconcile(ctx context.Context, service *publishing.Service, log *zap.Logger) {
	report, err := service.Reconcile(ctx)
	if err != nil {
		log.Error("reconcile failed", zap.Error(err))
		return
	}
	log.Info("reconcile finished",
		zap.Int("stories", report.Stories),
		zap.Int("repaired", report.Repaired),
		zap.Int64("orphan_chapters", report.OrphanChapters),
		zap.Int64("orphan_comments", report.OrphanComments),
	)
}

func main() {
	if err := run(); err != nil {
		panic(fmt.Sprintf("serialhub: %s", err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Error("open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
		return fmt.Errorf("open store: %w", err)
	}
	closers := []closer{store.Close}
	defer func() { closeAll(log, closers) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []publishing.Option{publishing.WithLogger(log)}
	checks := map[string]server.HealthCheck{}

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			opts = append(opts, publishing.WithCache(redisCache))
			checks["cache"] = redisCache.Ping
			closers = append(closers, func(context.Context) error { return redisCache.Close() })
		}
	}

	var searcher search.Searcher
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		searcher = meili
		opts = append(opts, publishing.WithIndexer(meili))
	}

	if cfg.MinioEndpoint != "" {
		coverStore, err := covers.NewMinio(ctx, covers.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Warn("object storage unavailable, cover uploads disabled", zap.Error(err))
		} else {
			opts = append(opts, publishing.WithCovers(coverStore))
		}
	}

	service := publishing.New(store, opts...)

	apiServer := server.NewHTTPServer(cfg.Addr(), server.New(server.Options{
		Stories:        service,
		Verifier:       auth.NewVerifier(cfg.JWTSecret),
		Searcher:       searcher,
		Store:          store,
		Checks:         checks,
		Logger:         log,
		Debug:          cfg.Debug,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}))

	log.Info("server is running", zap.String("addr", apiServer.Addr), zap.String("driver", cfg.DBDriver))

	// Stopped by cancel before the dependencies are closed.
	go func() {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()

		runReconcile(ctx, service, log)

		for {
			select {
			case <-ticker.C:
				runReconcile(ctx, service, log)
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, log, done)

	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server error", zap.Error(err))
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	log.Info("graceful shutdown complete")
	return nil
}
