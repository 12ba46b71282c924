package board

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

// fakeRepo is an in-memory Repository with the store-side contract the
// backend guarantees: id assignment, creation defaults, updatedAt and the
// completedAt transitions. failWrites makes every mutating call fail while
// List keeps serving the (unchanged) truth, which is exactly the rejected
// optimistic update case.
type fakeRepo struct {
	mu         sync.Mutex
	tasks      map[string]domain.Task
	seq        int
	failWrites bool

	lists, creates, updates, deletes int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: map[string]domain.Task{}}
}

func (f *fakeRepo) setFailWrites(v bool) {
	f.mu.Lock()
	f.failWrites = v
	f.mu.Unlock()
}

func (f *fakeRepo) writeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.updates + f.deletes
}

// seed inserts a task directly, bypassing counters.
func (f *fakeRepo) seed(id, title string, status domain.Status, pos string) domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := domain.Task{
		ID:        id,
		Title:     title,
		Status:    status,
		Priority:  domain.PriorityMedium,
		Source:    domain.SourceManual,
		Position:  order.MustParse(pos),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if status == domain.StatusDone {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	f.tasks[id] = t
	return t
}

func (f *fakeRepo) List(ctx context.Context, filter taskrepo.Filter) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := []domain.Task{}
	for _, t := range f.tasks {
		if t.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, d taskrepo.Draft) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failWrites {
		return domain.Task{}, errors.New("injected create failure")
	}
	f.seq++
	now := time.Now().UTC()
	t := domain.Task{
		ID:        "task-" + strconv.Itoa(f.seq),
		Title:     d.Title,
		Status:    d.Status,
		Priority:  d.Priority,
		Assignee:  d.Assignee,
		Tags:      d.Tags,
		Source:    d.Source,
		CronJobID: d.CronJobID,
		Position:  d.Position,
		Metadata:  d.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
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
	if t.Position.IsZero() {
		var last order.Key
		for _, existing := range f.tasks {
			if existing.Status == t.Status && last.Less(existing.Position) {
				last = existing.Position
			}
		}
		pos, err := order.Between(last, order.Key{})
		if err != nil {
			return domain.Task{}, err
		}
		t.Position = pos
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, p taskrepo.Patch) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failWrites {
		return domain.Task{}, errors.New("injected update failure")
	}
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, errors.New("no such task")
	}
	applyPatch(&t, p, time.Now().UTC())
	f.tasks[id] = t
	return t, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failWrites {
		return errors.New("injected delete failure")
	}
	if _, ok := f.tasks[id]; !ok {
		return errors.New("no such task")
	}
	delete(f.tasks, id)
	return nil
}
