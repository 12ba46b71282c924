package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/board"
	"github.com/mrInvincible29/mission-control/internal/cronjobs"
	"github.com/mrInvincible29/mission-control/internal/feed"
	"github.com/mrInvincible29/mission-control/internal/gateway"
	"github.com/mrInvincible29/mission-control/internal/health"
	"github.com/mrInvincible29/mission-control/internal/ingest"
	"github.com/mrInvincible29/mission-control/internal/logview"
	"github.com/mrInvincible29/mission-control/internal/search"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard gateway",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.StandardLogger()

	repo, err := buildRepo(cfg)
	if err != nil {
		return err
	}
	cache := board.New(repo, logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cache.Refresh(ctx); err != nil {
		// the gateway still starts; the first refresh request recovers
		logger.WithError(err).Warn("initial board sync failed")
	}

	srv := &gateway.Server{Cache: cache, Log: logger}
	if dir, ok := repo.(taskrepo.Directory); ok {
		srv.Directory = dir
	}
	srv.Cron = cronjobs.NewBridge(cfg.CronBinary, logger)

	var redisClient *redis.Client
	if cfg.RedisConnectionString != "" {
		opts, err := cfg.RedisOptions()
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
	}

	var checks []health.Check
	if cfg.BackendURL != "" {
		checks = append(checks, health.NewHTTPCheck("backend", cfg.BackendURL+"/healthz", nil))
		srv.Feed = feed.NewClient(cfg.BackendURL, http.DefaultClient)
		srv.Logs = logview.NewClient(cfg.BackendURL, http.DefaultClient)
	}
	if redisClient != nil {
		checks = append(checks, health.NewRedisCheck("redis", redisClient))
	}
	if len(checks) > 0 {
		poller := health.NewPoller(cfg.HealthInterval, logger, checks...)
		go poller.Run(ctx)
		srv.Health = poller
	}

	if cfg.SearchIndexPath != "" {
		ix, err := search.Open(cfg.SearchIndexPath)
		if err != nil {
			return err
		}
		defer ix.Close()
		if cfg.NotesDir != "" {
			if n, err := ix.IndexDir(ctx, cfg.NotesDir); err != nil {
				logger.WithError(err).Warn("notes index rebuild failed")
			} else {
				logger.WithField("documents", n).Info("notes indexed")
			}
		}
		srv.Search = ix
	}

	if cfg.IntakeQueue != "" && redisClient != nil && cfg.StorageConnectionString != "" {
		queue, err := ingest.NewAzureQueue(cfg.StorageConnectionString, cfg.IntakeQueue)
		if err != nil {
			return err
		}
		deduper := ingest.NewRedisDeduper(redisClient, cfg.DedupTTL)
		runner := ingest.NewRunner(queue, deduper, repo, logger, 5*time.Second)
		go runner.Run(ctx)
	}

	e := echo.New()
	srv.Register(e)
	return e.Start(cfg.ListenAddr)
}
