package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/cronjobs"
)

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Inspect and control scheduled jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, ctx, err := cronBridge(cmd)
			if err != nil {
				return err
			}
			jobs, err := bridge.List(ctx)
			if err != nil {
				return err
			}
			for _, j := range jobs {
				fmt.Fprintln(cmd.OutOrStdout(), cronjobs.Format(j))
			}
			return nil
		},
	})
	cmd.AddCommand(cronVerbCmd("enable", "Enable a job", (*cronjobs.Bridge).Enable))
	cmd.AddCommand(cronVerbCmd("disable", "Disable a job", (*cronjobs.Bridge).Disable))
	cmd.AddCommand(cronVerbCmd("run", "Run a job now", (*cronjobs.Bridge).RunNow))
	return cmd
}

func cronVerbCmd(use, short string, verb func(*cronjobs.Bridge, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [job]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, ctx, err := cronBridge(cmd)
			if err != nil {
				return err
			}
			return verb(bridge, ctx, args[0])
		},
	}
}

func cronBridge(cmd *cobra.Command) (*cronjobs.Bridge, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cronjobs.NewBridge(cfg.CronBinary, log.StandardLogger()), ctx, nil
}
