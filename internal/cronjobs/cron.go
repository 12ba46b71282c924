// Package cronjobs bridges the dashboard to the local process-control CLI
// that owns scheduled jobs. The CLI is the source of truth; this package
// only shells out and formats.
package cronjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// Job is one scheduled job as the control CLI reports it.
type Job struct {
	ID         string     `json:"id"`
	Schedule   string     `json:"schedule"`
	Command    string     `json:"command"`
	Enabled    bool       `json:"enabled"`
	LastRun    *time.Time `json:"lastRun,omitempty"`
	LastStatus string     `json:"lastStatus,omitempty"`
}

// runFunc executes the control CLI; swapped out in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Bridge drives the local control CLI.
type Bridge struct {
	binary string
	run    runFunc
	log    *log.Logger
}

// NewBridge wires the bridge to the CLI at binary.
func NewBridge(binary string, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bridge{
		binary: binary,
		log:    logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// List returns every known job.
func (b *Bridge) List(ctx context.Context) ([]Job, error) {
	out, err := b.run(ctx, b.binary, "list", "--json")
	if err != nil {
		return nil, fmt.Errorf("cron list: %w", err)
	}
	var jobs []Job
	if err := json.Unmarshal(out, &jobs); err != nil {
		return nil, fmt.Errorf("cron list: %w", err)
	}
	return jobs, nil
}

// Enable turns a job on.
func (b *Bridge) Enable(ctx context.Context, id string) error {
	return b.control(ctx, "enable", id)
}

// Disable turns a job off.
func (b *Bridge) Disable(ctx context.Context, id string) error {
	return b.control(ctx, "disable", id)
}

// RunNow triggers an immediate run.
func (b *Bridge) RunNow(ctx context.Context, id string) error {
	return b.control(ctx, "run", id)
}

func (b *Bridge) control(ctx context.Context, verb, id string) error {
	if _, err := b.run(ctx, b.binary, verb, id); err != nil {
		return fmt.Errorf("cron %s %s: %w", verb, id, err)
	}
	b.log.WithFields(log.Fields{"verb": verb, "job": id}).Info("cron control applied")
	return nil
}

// Format renders one job as a cron tab line.
func Format(j Job) string {
	state := "off"
	if j.Enabled {
		state = "on"
	}
	last := "never"
	if j.LastRun != nil {
		last = j.LastRun.UTC().Format("2006-01-02 15:04")
		if j.LastStatus != "" {
			last += " " + j.LastStatus
		}
	}
	return fmt.Sprintf("%-12s %-3s %-16s last: %-22s %s", j.ID, state, j.Schedule, last, j.Command)
}
