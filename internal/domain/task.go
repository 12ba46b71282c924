// Package domain holds the board's data model.
package domain

import (
	"time"

	"github.com/mrInvincible29/mission-control/internal/order"
)

// Status determines which column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

// Valid reports whether s is a known column.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Priority is the task's urgency bucket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Source records how a task entered the board. Immutable after creation.
type Source string

const (
	SourceManual   Source = "manual"
	SourceCron     Source = "cron"
	SourceTelegram Source = "telegram"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCron, SourceTelegram:
		return true
	}
	return false
}

// Task is a single card on the board.
type Task struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      Status            `json:"status"`
	Assignee    string            `json:"assignee,omitempty"`
	Priority    Priority          `json:"priority"`
	Tags        []string          `json:"tags,omitempty"`
	Source      Source            `json:"source"`
	CronJobID   string            `json:"cronJobId,omitempty"`
	Position    order.Key         `json:"position"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Archived    bool              `json:"archived,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// Assignee is read-only reference data resolved by name.
type Assignee struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ValidationError reports a field rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// ValidateTitle enforces the one client-side rule: titles are never empty.
func ValidateTitle(title string) error {
	if isBlank(title) {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
