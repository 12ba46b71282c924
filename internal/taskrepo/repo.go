// Package taskrepo talks to the task store behind the board. The board only
// depends on the Repository contract; both the REST client and the table
// adapter implement it.
package taskrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
)

// Filter narrows List results.
type Filter struct {
	// IncludeArchived pulls archived tasks in as well; the live board never
	// sets it.
	IncludeArchived bool
}

// Draft carries the fields of a new task. Zero fields are filled with the
// store defaults: status todo, priority medium, source manual and an
// end-of-column position.
type Draft struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      domain.Status     `json:"status,omitempty"`
	Priority    domain.Priority   `json:"priority,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Source      domain.Source     `json:"source,omitempty"`
	CronJobID   string            `json:"cronJobId,omitempty"`
	Position    order.Key         `json:"position,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Patch is a partial task update; nil fields are left untouched.
type Patch struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *domain.Status     `json:"status,omitempty"`
	Assignee    *string            `json:"assignee,omitempty"`
	Priority    *domain.Priority   `json:"priority,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Position    *order.Key         `json:"position,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
	Archived    *bool              `json:"archived,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Assignee == nil && p.Priority == nil && p.Tags == nil &&
		p.Position == nil && p.Metadata == nil && p.Archived == nil
}

// Repository is the task store contract. The store owns updatedAt and the
// completedAt transitions: patching status to done stamps completedAt,
// patching it away from done clears it.
type Repository interface {
	List(ctx context.Context, f Filter) ([]domain.Task, error)
	Create(ctx context.Context, d Draft) (domain.Task, error)
	Update(ctx context.Context, id string, p Patch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// Directory resolves assignees. Read-only reference data.
type Directory interface {
	Assignees(ctx context.Context) ([]domain.Assignee, error)
}

// ErrRequestFailed is the condition every repository failure matches; the
// board does not distinguish transport errors from server refusals.
var ErrRequestFailed = errors.New("request failed")

// RequestFailedError wraps any repository call failure with its operation
// and, when the server answered at all, the status code.
type RequestFailedError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRequestFailed) match any wrapped failure.
func (e *RequestFailedError) Is(target error) bool { return target == ErrRequestFailed }

func requestFailed(op string, status int, err error) error {
	return &RequestFailedError{Op: op, StatusCode: status, Err: err}
}
