package taskrepo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mrInvincible29/mission-control/internal/domain"
)

const errorBodyLimit = 4 << 10

// RESTRepository implements Repository against the managed backend's REST
// surface.
type RESTRepository struct {
	base   string
	client *http.Client
}

// NewREST builds a client for the backend at base. A nil httpClient falls
// back to a client with a sane timeout.
func NewREST(base string, httpClient *http.Client) *RESTRepository {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTRepository{base: strings.TrimRight(base, "/"), client: httpClient}
}

func (r *RESTRepository) List(ctx context.Context, f Filter) ([]domain.Task, error) {
	u := r.base + "/api/tasks"
	if f.IncludeArchived {
		u += "?archived=true"
	}
	var out struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := r.do(ctx, "list tasks", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (r *RESTRepository) Create(ctx context.Context, d Draft) (domain.Task, error) {
	var t domain.Task
	if err := r.do(ctx, "create task", http.MethodPost, r.base+"/api/tasks", d, &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *RESTRepository) Update(ctx context.Context, id string, p Patch) (domain.Task, error) {
	var t domain.Task
	u := r.base + "/api/tasks/" + url.PathEscape(id)
	if err := r.do(ctx, "update task", http.MethodPatch, u, p, &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *RESTRepository) Delete(ctx context.Context, id string) error {
	u := r.base + "/api/tasks/" + url.PathEscape(id)
	return r.do(ctx, "delete task", http.MethodDelete, u, nil, nil)
}

// Assignees implements Directory against the same backend.
func (r *RESTRepository) Assignees(ctx context.Context) ([]domain.Assignee, error) {
	var out struct {
		Assignees []domain.Assignee `json:"assignees"`
	}
	if err := r.do(ctx, "list assignees", http.MethodGet, r.base+"/api/assignees", nil, &out); err != nil {
		return nil, err
	}
	return out.Assignees, nil
}

func (r *RESTRepository) do(ctx context.Context, op, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return requestFailed(op, 0, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return requestFailed(op, 0, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return requestFailed(op, 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return requestFailed(op, resp.StatusCode, errors.New(strings.TrimSpace(string(msg))))
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return requestFailed(op, 0, err)
	}
	return nil
}
