package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the monitored services once",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var checks []health.Check
	if cfg.BackendURL != "" {
		checks = append(checks, health.NewHTTPCheck("backend", cfg.BackendURL+"/healthz", nil))
	}
	if cfg.RedisConnectionString != "" {
		opts, err := cfg.RedisOptions()
		if err != nil {
			return err
		}
		checks = append(checks, health.NewRedisCheck("redis", redis.NewClient(opts)))
	}
	if len(checks) == 0 {
		return errors.New("nothing to probe: set BACKEND_URL or REDIS_CONNECTION_STRING")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	poller := health.NewPoller(cfg.HealthInterval, log.StandardLogger(), checks...)
	failed := false
	for _, r := range poller.RunOnce(ctx) {
		state := "ok"
		if !r.Healthy {
			state = "down"
			failed = true
		}
		line := fmt.Sprintf("%-12s %-5s %s", r.Name, state, r.Latency.Round(time.Millisecond))
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}
