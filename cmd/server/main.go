package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visitor-tracker/internal/config"
	"github.com/iliyamo/visitor-tracker/internal/handler"
	"github.com/iliyamo/visitor-tracker/internal/logger"
	"github.com/iliyamo/visitor-tracker/internal/middleware"
	"github.com/iliyamo/visitor-tracker/internal/queue"
	"github.com/iliyamo/visitor-tracker/internal/repository"
	"github.com/iliyamo/visitor-tracker/internal/router"
	"github.com/iliyamo/visitor-tracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.InitZap(logger.OptionDebug(cfg.Debug))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repoOpts []repository.Option
	if cfg.RotateMaxRecords > 0 {
		repoOpts = append(repoOpts, repository.WithRotation(cfg.ArchiveDir, cfg.RotateMaxRecords))
	}
	repo := repository.NewVisitorRepo(cfg.DataFile, repoOpts...)
	if err := repo.EnsureInitialized(); err != nil {
		logger.LogEf("cannot initialise visitor store at %s: %v", repo.Path(), err)
		logger.Sync()
		os.Exit(1)
	}
	if cfg.RotateMaxRecords > 0 {
		if archives, err := repo.Archives(); err != nil {
			logger.LogWf("cannot list visitor archives in %s: %v", cfg.ArchiveDir, err)
		} else {
			logger.LogIf("rotation at %d records, %d archives in %s", cfg.RotateMaxRecords, len(archives), cfg.ArchiveDir)
		}
	}

	// Redis is only dialled for the opt-in cache and rate limiter.  Without
	// it responses are not cached and the limiter keeps its buckets in memory.
	var rdb *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		if rdb = config.NewRedisClient(ctx); rdb == nil {
			logger.LogW("redis unavailable; caching disabled, using in-memory rate limiter")
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	var limiter echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb)
	} else {
		limiter = middleware.NewLocalTokenBucket(ctx, cfg.RateLimit)
	}

	var invalidator handler.CacheInvalidator
	if ci := middleware.NewCacheInvalidator(cfg.Cache, rdb); ci != nil {
		invalidator = ci
	}

	var publisher handler.EventPublisher
	if cfg.Queue.Enabled {
		publisher = service.NewQueuePublisher(cfg.Queue.URL)
		go func() {
			if err := queue.StartVisitorConsumer(ctx, cfg.Queue.URL, cfg.Queue.LogFile); err != nil && !errors.Is(err, context.Canceled) {
				logger.LogEf("visitor consumer stopped: %v", err)
			}
		}()
	}

	h := handler.NewVisitorHandler(repo, publisher, invalidator)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, h, router.Options{
		AllowOrigins: cfg.AllowOrigins,
		RateLimit:    limiter,
		Cache:        middleware.NewRedisCache(cfg.Cache, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogEf("server stopped: %v", err)
			stop()
		}
	}()
	printBanner(os.Stdout, cfg.Port)
	logger.LogIf("listening on %s (env=%s, store=%s)", addr, cfg.Env, repo.Path())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.LogEf("shutdown: %v", err)
	}
	if err := h.WaitPublished(shutdownCtx); err != nil {
		logger.LogWf("shutdown: pending visitor events dropped: %v", err)
	}
	logger.LogI("server stopped")
}
