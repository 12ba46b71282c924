package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/feed"
)

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show recent board activity",
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "l", 50, "maximum entries")
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.BackendURL == "" {
		return errors.New("missing BACKEND_URL")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := feed.NewClient(cfg.BackendURL, http.DefaultClient).Recent(ctx, feedLimit)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, e := range entries {
		fmt.Fprintln(cmd.OutOrStdout(), feed.Format(e, now))
	}
	return nil
}
