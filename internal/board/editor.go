package board

import (
	"context"
	"fmt"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

// Editor applies detail-pane edits through the same optimistic path the drag
// controller uses. Like Drag it is driven from the UI loop only.
type Editor struct {
	cache *Cache

	// armed holds the task id primed for deletion; destructive calls need
	// an arm-then-confirm pair.
	armed string
}

// NewEditor builds an editor over cache.
func NewEditor(cache *Cache) *Editor {
	return &Editor{cache: cache}
}

// QuickAdd creates a task at the end of the todo column and returns its
// temporary id.
func (e *Editor) QuickAdd(ctx context.Context, title string) (string, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return "", err
	}
	return e.cache.Apply(ctx, Create{Draft: taskrepo.Draft{Title: title}}), nil
}

// SetTitle renames a task. Empty titles never reach the network.
func (e *Editor) SetTitle(ctx context.Context, id, title string) error {
	if err := domain.ValidateTitle(title); err != nil {
		return err
	}
	return e.edit(ctx, id, taskrepo.Patch{Title: &title})
}

func (e *Editor) SetDescription(ctx context.Context, id, description string) error {
	return e.edit(ctx, id, taskrepo.Patch{Description: &description})
}

func (e *Editor) SetAssignee(ctx context.Context, id, assignee string) error {
	return e.edit(ctx, id, taskrepo.Patch{Assignee: &assignee})
}

func (e *Editor) SetPriority(ctx context.Context, id string, p domain.Priority) error {
	if !p.Valid() {
		return &domain.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", p)}
	}
	return e.edit(ctx, id, taskrepo.Patch{Priority: &p})
}

func (e *Editor) SetTags(ctx context.Context, id string, tags []string) error {
	return e.edit(ctx, id, taskrepo.Patch{Tags: &tags})
}

// SetStatus moves a task to the end of another column; the board view keeps
// its ordering invariant because the new position key is generated against
// the target column's tail.
func (e *Editor) SetStatus(ctx context.Context, id string, s domain.Status) error {
	if !s.Valid() {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", s)}
	}
	t, ok := e.cache.Task(id)
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	if t.Status == s {
		return nil
	}
	pos := e.cache.EndOfColumn(s)
	e.cache.Apply(ctx, Move{ID: id, Status: s, Position: pos})
	return nil
}

// Archive hides a task from the live board without deleting it.
func (e *Editor) Archive(ctx context.Context, id string) error {
	archived := true
	return e.edit(ctx, id, taskrepo.Patch{Archived: &archived})
}

// ArmDelete primes a task for deletion. The next ConfirmDelete for the same
// id goes through; anything else disarms.
func (e *Editor) ArmDelete(id string) {
	e.armed = id
}

// DisarmDelete clears a pending delete confirmation.
func (e *Editor) DisarmDelete() {
	e.armed = ""
}

// Armed returns the task id currently primed for deletion, if any.
func (e *Editor) Armed() string { return e.armed }

// ConfirmDelete issues the destructive call, but only when id was armed
// first.
func (e *Editor) ConfirmDelete(ctx context.Context, id string) error {
	if e.armed != id {
		e.armed = ""
		return fmt.Errorf("delete of %s not armed", id)
	}
	e.armed = ""
	if _, ok := e.cache.Task(id); !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	e.cache.Apply(ctx, Delete{ID: id})
	return nil
}

func (e *Editor) edit(ctx context.Context, id string, p taskrepo.Patch) error {
	if _, ok := e.cache.Task(id); !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	e.cache.Apply(ctx, Edit{ID: id, Patch: p})
	return nil
}
