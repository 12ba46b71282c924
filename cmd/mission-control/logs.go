package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/logview"
)

var (
	logsService string
	logsLevel   string
	logsLimit   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail service logs",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsService, "service", "s", "", "filter by service")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level (debug, info, warn, error)")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "l", 100, "maximum lines")
}

func runLogs(cmd *cobra.Command, args []string) error {
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
	entries, err := logview.NewClient(cfg.BackendURL, http.DefaultClient).Tail(ctx, logsService, logsLimit)
	if err != nil {
		return err
	}
	if logsLevel != "" {
		entries = logview.AtLeast(entries, logsLevel)
	}
	for _, e := range entries {
		fmt.Fprintln(cmd.OutOrStdout(), logview.Format(e))
	}
	return nil
}
