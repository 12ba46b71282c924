package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

type fakeQueue struct {
	msgs    []Message
	deleted []string
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*Message, error) {
	if len(q.msgs) == 0 {
		return nil, nil
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return &msg, nil
}

func (q *fakeQueue) Delete(ctx context.Context, id, receipt string) error {
	q.deleted = append(q.deleted, id)
	return nil
}

type captureRepo struct {
	drafts []taskrepo.Draft
	fail   bool
}

func (c *captureRepo) List(ctx context.Context, f taskrepo.Filter) ([]domain.Task, error) {
	return nil, nil
}

func (c *captureRepo) Create(ctx context.Context, d taskrepo.Draft) (domain.Task, error) {
	if c.fail {
		return domain.Task{}, errors.New("injected create failure")
	}
	c.drafts = append(c.drafts, d)
	pos, _ := order.Between(order.Key{}, order.Key{})
	return domain.Task{ID: "task-1", Title: d.Title, Status: domain.StatusTodo, Position: pos}, nil
}

func (c *captureRepo) Update(ctx context.Context, id string, p taskrepo.Patch) (domain.Task, error) {
	return domain.Task{}, errors.New("not used")
}

func (c *captureRepo) Delete(ctx context.Context, id string) error {
	return errors.New("not used")
}

func newDeduper(t *testing.T) *RedisDeduper {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return NewRedisDeduper(client, time.Minute)
}

func TestPollFilesCronTaskIntoTodo(t *testing.T) {
	queue := &fakeQueue{msgs: []Message{{
		ID:      "m1",
		Receipt: "r1",
		Body:    `{"key":"cron-42","title":"rotate backups","source":"cron","cronJobId":"42","priority":"high"}`,
	}}}
	repo := &captureRepo{}
	runner := NewRunner(queue, newDeduper(t), repo, nil, time.Millisecond)

	worked, err := runner.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !worked {
		t.Fatal("message not consumed")
	}
	if len(repo.drafts) != 1 {
		t.Fatalf("expected one create, got %d", len(repo.drafts))
	}
	d := repo.drafts[0]
	if d.Status != domain.StatusTodo || d.Source != domain.SourceCron || d.CronJobID != "42" {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "m1" {
		t.Fatalf("message not deleted: %v", queue.deleted)
	}
}

func TestPollSkipsDuplicateKey(t *testing.T) {
	body := `{"key":"tg-7","title":"reply to Bob","source":"telegram"}`
	queue := &fakeQueue{msgs: []Message{
		{ID: "m1", Receipt: "r1", Body: body},
		{ID: "m2", Receipt: "r2", Body: body},
	}}
	repo := &captureRepo{}
	runner := NewRunner(queue, newDeduper(t), repo, nil, time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := runner.Poll(ctx); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if len(repo.drafts) != 1 {
		t.Fatalf("duplicate filed twice: %d creates", len(repo.drafts))
	}
	// both messages leave the queue either way
	if len(queue.deleted) != 2 {
		t.Fatalf("expected both messages deleted: %v", queue.deleted)
	}
}

func TestPollDropsMalformedAndBadProvenance(t *testing.T) {
	queue := &fakeQueue{msgs: []Message{
		{ID: "m1", Receipt: "r1", Body: `{not json`},
		{ID: "m2", Receipt: "r2", Body: `{"title":"no provenance"}`},
		{ID: "m3", Receipt: "r3", Body: `{"title":"manual sneaking in","source":"manual"}`},
	}}
	repo := &captureRepo{}
	runner := NewRunner(queue, newDeduper(t), repo, nil, time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := runner.Poll(ctx); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if len(repo.drafts) != 0 {
		t.Fatalf("bad messages created tasks: %+v", repo.drafts)
	}
	if len(queue.deleted) != 3 {
		t.Fatalf("bad messages must still be deleted: %v", queue.deleted)
	}
}

func TestPollRollsBackDedupOnCreateFailure(t *testing.T) {
	body := `{"key":"cron-9","title":"flaky","source":"cron"}`
	queue := &fakeQueue{msgs: []Message{
		{ID: "m1", Receipt: "r1", Body: body},
		{ID: "m2", Receipt: "r2", Body: body},
	}}
	repo := &captureRepo{fail: true}
	runner := NewRunner(queue, newDeduper(t), repo, nil, time.Millisecond)
	ctx := context.Background()

	if _, err := runner.Poll(ctx); err == nil {
		t.Fatal("expected create failure")
	}
	if len(queue.deleted) != 0 {
		t.Fatalf("failed message must stay queued: %v", queue.deleted)
	}

	// the key was rolled back, so the redelivered message can file the task
	repo.fail = false
	if _, err := runner.Poll(ctx); err != nil {
		t.Fatalf("retry poll: %v", err)
	}
	if len(repo.drafts) != 1 {
		t.Fatalf("retry did not file the task: %d creates", len(repo.drafts))
	}
}

func TestPollEmptyQueue(t *testing.T) {
	runner := NewRunner(&fakeQueue{}, newDeduper(t), &captureRepo{}, nil, time.Millisecond)
	worked, err := runner.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if worked {
		t.Fatal("empty queue reported work")
	}
}
