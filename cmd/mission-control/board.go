package main

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/board"
	"github.com/mrInvincible29/mission-control/internal/domain"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the kanban board",
	RunE:  runBoard,
}

var columnHeadings = map[domain.Status]string{
	domain.StatusTodo:       "To Do",
	domain.StatusInProgress: "In Progress",
	domain.StatusBlocked:    "Blocked",
	domain.StatusDone:       "Done",
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := buildRepo(cfg)
	if err != nil {
		return err
	}
	cache := board.New(repo, log.StandardLogger())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cache.Refresh(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range domain.Statuses {
		col := cache.Column(s)
		fmt.Fprintf(out, "%s (%d)\n%s\n", columnHeadings[s], len(col), strings.Repeat("-", 24))
		for _, t := range col {
			marker := " "
			if t.Priority == domain.PriorityUrgent {
				marker = "!"
			}
			line := fmt.Sprintf("%s [%s] %s", marker, t.Priority, t.Title)
			if t.Assignee != "" {
				line += " @" + t.Assignee
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}
	return nil
}
