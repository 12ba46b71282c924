package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/mrInvincible29/mission-control/internal/board"
	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

type stubRepo struct {
	mu     sync.Mutex
	tasks  []domain.Task
	nextID int
}

func (r *stubRepo) seed(id, title string, s domain.Status, pos string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, domain.Task{
		ID:       id,
		Title:    title,
		Status:   s,
		Priority: domain.PriorityMedium,
		Source:   domain.SourceManual,
		Position: order.MustParse(pos),
	})
}

func (r *stubRepo) List(ctx context.Context, f taskrepo.Filter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Task{}
	for _, t := range r.tasks {
		if t.Archived && !f.IncludeArchived {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *stubRepo) Create(ctx context.Context, d taskrepo.Draft) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := domain.Task{
		ID:       fmt.Sprintf("task-%d", r.nextID),
		Title:    d.Title,
		Status:   d.Status,
		Priority: d.Priority,
		Source:   d.Source,
		Position: d.Position,
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
	r.tasks = append(r.tasks, t)
	return t, nil
}

func (r *stubRepo) Update(ctx context.Context, id string, p taskrepo.Patch) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		t := &r.tasks[i]
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.Position != nil {
			t.Position = *p.Position
		}
		if p.Archived != nil {
			t.Archived = *p.Archived
		}
		return *t, nil
	}
	return domain.Task{}, fmt.Errorf("unknown task %s", id)
}

func (r *stubRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown task %s", id)
}

func newTestServer(t *testing.T, repo *stubRepo) (*Server, *echo.Echo) {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	cache := board.New(repo, logger)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	s := &Server{Cache: cache, Log: logger}
	e := echo.New()
	s.Register(e)
	return s, e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetBoardGroupsColumns(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a")
	repo.seed("t2", "second", domain.StatusTodo, "b")
	repo.seed("t3", "doing", domain.StatusInProgress, "a")
	_, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodGet, "/api/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp boardResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	todo := resp.Columns[domain.StatusTodo]
	if len(todo) != 2 || todo[0].ID != "t1" || todo[1].ID != "t2" {
		t.Fatalf("unexpected todo column: %#v", todo)
	}
	if len(resp.Columns[domain.StatusInProgress]) != 1 {
		t.Fatalf("unexpected in_progress column: %#v", resp.Columns[domain.StatusInProgress])
	}
}

func TestPostTaskValidatesTitle(t *testing.T) {
	_, e := newTestServer(t, &stubRepo{})

	rec := doJSON(e, http.MethodPost, "/api/tasks", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/tasks", `{"title":"write report"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 got %d", rec.Code)
	}
	var resp map[string]string
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !strings.HasPrefix(resp["id"], "tmp-") {
		t.Fatalf("expected temporary id, got %q", resp["id"])
	}
}

func TestPatchTaskRejectsUnknownFields(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a")
	_, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodPatch, "/api/tasks/t1", `{"nope":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPatch, "/api/tasks/t1", `{"priority":"whenever"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestPatchTaskStatusLandsAtColumnEnd(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a")
	repo.seed("t2", "done already", domain.StatusDone, "m")
	s, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodPatch, "/api/tasks/t1", `{"status":"done"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 got %d", rec.Code)
	}
	s.Cache.Wait()
	done := s.Cache.Column(domain.StatusDone)
	if len(done) != 2 || done[1].ID != "t1" {
		t.Fatalf("expected t1 appended to done, got %#v", done)
	}
}

func TestMoveTaskBeforeSibling(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a0")
	repo.seed("t2", "second", domain.StatusTodo, "a2")
	repo.seed("t3", "third", domain.StatusTodo, "a4")
	s, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodPost, "/api/tasks/t3/move", `{"status":"todo","beforeTaskId":"t2"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 got %d: %s", rec.Code, rec.Body.String())
	}
	s.Cache.Wait()
	col := s.Cache.Column(domain.StatusTodo)
	if len(col) != 3 || col[0].ID != "t1" || col[1].ID != "t3" || col[2].ID != "t2" {
		ids := make([]string, len(col))
		for i, c := range col {
			ids[i] = c.ID
		}
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestMoveTaskOntoOwnSlotIsNoop(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a0")
	repo.seed("t2", "second", domain.StatusTodo, "a2")
	_, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodPost, "/api/tasks/t1/move", `{"status":"todo","beforeTaskId":"t2"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d", rec.Code)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a")
	s, e := newTestServer(t, repo)

	rec := doJSON(e, http.MethodDelete, "/api/tasks/t1?confirm=1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for unarmed delete, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodDelete, "/api/tasks/t1", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/tasks/t1?confirm=1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d", rec.Code)
	}
	s.Cache.Wait()
	if _, ok := s.Cache.Task("t1"); ok {
		t.Fatal("expected t1 gone after confirmed delete")
	}
}

func TestDeleteArmMismatchDisarms(t *testing.T) {
	repo := &stubRepo{}
	repo.seed("t1", "first", domain.StatusTodo, "a")
	repo.seed("t2", "second", domain.StatusTodo, "b")
	s, e := newTestServer(t, repo)

	doJSON(e, http.MethodDelete, "/api/tasks/t1", "")
	rec := doJSON(e, http.MethodDelete, "/api/tasks/t2?confirm=1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 got %d", rec.Code)
	}
	// the mismatch disarmed t1 too
	rec = doJSON(e, http.MethodDelete, "/api/tasks/t1?confirm=1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 got %d", rec.Code)
	}
	s.Cache.Wait()
	if _, ok := s.Cache.Task("t1"); !ok {
		t.Fatal("expected t1 untouched")
	}
}

func TestHealthz(t *testing.T) {
	_, e := newTestServer(t, &stubRepo{})
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
}

func TestBoardRefreshParam(t *testing.T) {
	repo := &stubRepo{}
	_, e := newTestServer(t, repo)
	repo.seed("late", "added after start", domain.StatusTodo, "a")

	rec := doJSON(e, http.MethodGet, "/api/board", "")
	var resp boardResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Columns[domain.StatusTodo]) != 0 {
		t.Fatal("expected stale view without refresh")
	}

	rec = doJSON(e, http.MethodGet, "/api/board?refresh=1", "")
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Columns[domain.StatusTodo]) != 1 {
		t.Fatal("expected refreshed view to include the new task")
	}
}
