// Package board holds the kanban engine: the column-partitioned task cache
// with optimistic mutations, the drag controller and the detail editor.
package board

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

const tempIDPrefix = "tmp-"

// Mutation is an explicit command against the board. Exactly one of the
// concrete types below is used per Apply call.
type Mutation interface {
	isMutation()
}

// Create adds a task optimistically under a temporary id until the next
// resync swaps in the store-confirmed row.
type Create struct {
	Draft taskrepo.Draft
}

// Move changes a task's column and/or position key.
type Move struct {
	ID       string
	Status   domain.Status
	Position order.Key
}

// Edit applies a partial field update.
type Edit struct {
	ID    string
	Patch taskrepo.Patch
}

// Delete removes a task permanently.
type Delete struct {
	ID string
}

func (Create) isMutation() {}
func (Move) isMutation()   {}
func (Edit) isMutation()   {}
func (Delete) isMutation() {}

// Cache is the authoritative-as-of-last-sync task list plus any optimistic
// patches. The optimistic state is a latency hack only: after every
// dispatched mutation, success or failure, a wholesale Refresh replaces it
// with whatever the store returns.
type Cache struct {
	repo taskrepo.Repository
	log  *log.Logger

	mu    sync.Mutex
	tasks []domain.Task

	// refreshMu serializes resyncs so a slow earlier fetch can never
	// replace state a later fetch already wrote.
	refreshMu sync.Mutex
	inflight  sync.WaitGroup
}

// New builds a cache over repo. Call Refresh before first render.
func New(repo taskrepo.Repository, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{repo: repo, log: logger}
}

// Refresh replaces the task list wholesale with the store's live view.
// Archived tasks never enter the cache.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	tasks, err := c.repo.List(ctx, taskrepo.Filter{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	return nil
}

// Task returns the task with the given id, if visible.
func (c *Cache) Task(id string) (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Column returns the tasks of one column sorted by position key.
func (c *Cache) Column(s domain.Status) []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columnLocked(s)
}

func (c *Cache) columnLocked(s domain.Status) []domain.Task {
	col := []domain.Task{}
	for _, t := range c.tasks {
		if t.Status == s {
			col = append(col, t)
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Position.Less(col[j].Position) })
	return col
}

// Columns returns the whole board, column-partitioned and position-sorted.
func (c *Cache) Columns() map[domain.Status][]domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.Status][]domain.Task, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out[s] = c.columnLocked(s)
	}
	return out
}

// Apply patches the in-memory list immediately so the next render reflects
// the change, then dispatches the store call without blocking. The returned
// id is the affected task id; for creates it is the temporary local id.
//
// There is no rollback and no retry: the follow-up Refresh is the only
// reconciliation, on success and failure alike.
func (c *Cache) Apply(ctx context.Context, m Mutation) string {
	id := c.applyOptimistic(m)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.dispatch(ctx, m)
	}()
	return id
}

// Wait blocks until every dispatched mutation has resolved and resynced.
// Used on shutdown and in tests; the UI loop never calls it.
func (c *Cache) Wait() {
	c.inflight.Wait()
}

func (c *Cache) applyOptimistic(m Mutation) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	switch mut := m.(type) {
	case Create:
		t := taskFromDraft(mut.Draft, now)
		t.ID = tempIDPrefix + uuid.NewString()
		if t.Position.IsZero() {
			t.Position = c.endOfColumnLocked(t.Status)
		}
		c.tasks = append(c.tasks, t)
		return t.ID
	case Move:
		for i := range c.tasks {
			if c.tasks[i].ID == mut.ID {
				applyStatus(&c.tasks[i], mut.Status, now)
				c.tasks[i].Position = mut.Position
				c.tasks[i].UpdatedAt = now
				break
			}
		}
		return mut.ID
	case Edit:
		for i := range c.tasks {
			if c.tasks[i].ID == mut.ID {
				applyPatch(&c.tasks[i], mut.Patch, now)
				if c.tasks[i].Archived {
					// archived tasks leave the live view immediately
					c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
				}
				break
			}
		}
		return mut.ID
	case Delete:
		for i := range c.tasks {
			if c.tasks[i].ID == mut.ID {
				c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
				break
			}
		}
		return mut.ID
	}
	return ""
}

func (c *Cache) dispatch(ctx context.Context, m Mutation) {
	var err error
	switch mut := m.(type) {
	case Create:
		_, err = c.repo.Create(ctx, mut.Draft)
	case Move:
		pos := mut.Position
		status := mut.Status
		_, err = c.repo.Update(ctx, mut.ID, taskrepo.Patch{Status: &status, Position: &pos})
	case Edit:
		_, err = c.repo.Update(ctx, mut.ID, mut.Patch)
	case Delete:
		err = c.repo.Delete(ctx, mut.ID)
	}
	if err != nil {
		c.log.WithError(err).Warn("board mutation rejected, resync will revert")
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.WithError(err).Error("board resync failed")
	}
}

func (c *Cache) endOfColumnLocked(s domain.Status) order.Key {
	var last order.Key
	for _, t := range c.tasks {
		if t.Status == s && last.Less(t.Position) {
			last = t.Position
		}
	}
	pos, err := order.Between(last, order.Key{})
	if err != nil {
		// only reachable with a corrupt stored key; fall back to the middle
		c.log.WithError(err).Warn("end-of-column key generation failed")
		pos, _ = order.Between(order.Key{}, order.Key{})
	}
	return pos
}

// EndOfColumn returns a position key after every task currently in s.
func (c *Cache) EndOfColumn(s domain.Status) order.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endOfColumnLocked(s)
}

func taskFromDraft(d taskrepo.Draft, now time.Time) domain.Task {
	t := domain.Task{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		Assignee:    d.Assignee,
		Tags:        d.Tags,
		Source:      d.Source,
		CronJobID:   d.CronJobID,
		Position:    d.Position,
		Metadata:    d.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = domain.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Source == "" {
		t.Source = domain.SourceManual
	}
	return t
}

// applyStatus mirrors the store's completedAt transitions so the optimistic
// view matches what the resync will bring back.
func applyStatus(t *domain.Task, s domain.Status, now time.Time) {
	if t.Status == s {
		return
	}
	if s == domain.StatusDone {
		t.CompletedAt = &now
	} else if t.Status == domain.StatusDone {
		t.CompletedAt = nil
	}
	t.Status = s
}

func applyPatch(t *domain.Task, p taskrepo.Patch, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		applyStatus(t, *p.Status, now)
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.Metadata != nil {
		t.Metadata = *p.Metadata
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	t.UpdatedAt = now
}
