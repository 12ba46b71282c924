package taskrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
)

// TableRepository implements Repository directly against the managed row
// store. All tasks of one board share a partition; the row key is the task
// id.
type TableRepository struct {
	table *aztables.Client
	board string
	now   func() time.Time
}

// NewTable connects to the row store named by connStr. board becomes the
// partition key for every task.
func NewTable(connStr, tableName, board string) (*TableRepository, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableRepository{table: svc.NewClient(tableName), board: board, now: time.Now}, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	Assignee    string `json:"Assignee"`
	Priority    string `json:"Priority"`
	Tags        string `json:"Tags"`
	Source      string `json:"Source"`
	CronJobID   string `json:"CronJobID"`
	Position    string `json:"Position"`
	Metadata    string `json:"Metadata"`
	Archived    bool   `json:"Archived"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
	CompletedAt string `json:"CompletedAt"`
}

func (r *TableRepository) List(ctx context.Context, f Filter) ([]domain.Task, error) {
	const op = "list tasks"
	filter := "PartitionKey eq '" + r.board + "'"
	pager := r.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, requestFailed(op, 0, err)
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, requestFailed(op, 0, err)
			}
			t, err := ent.task()
			if err != nil {
				return nil, requestFailed(op, 0, err)
			}
			if t.Archived && !f.IncludeArchived {
				continue
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (r *TableRepository) Create(ctx context.Context, d Draft) (domain.Task, error) {
	const op = "create task"
	now := r.now().UTC()
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Assignee:    d.Assignee,
		Priority:    d.Priority,
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
	if t.Position.IsZero() {
		pos, err := r.endOfColumn(ctx, t.Status)
		if err != nil {
			return domain.Task{}, err
		}
		t.Position = pos
	}
	if t.Status == domain.StatusDone {
		t.CompletedAt = &now
	}
	ent, err := entityFromTask(r.board, t)
	if err != nil {
		return domain.Task{}, requestFailed(op, 0, err)
	}
	if _, err := r.table.AddEntity(ctx, ent, nil); err != nil {
		return domain.Task{}, requestFailed(op, statusOf(err), err)
	}
	return t, nil
}

func (r *TableRepository) Update(ctx context.Context, id string, p Patch) (domain.Task, error) {
	const op = "update task"
	resp, err := r.table.GetEntity(ctx, r.board, id, nil)
	if err != nil {
		return domain.Task{}, requestFailed(op, statusOf(err), err)
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, requestFailed(op, 0, err)
	}
	t, err := ent.task()
	if err != nil {
		return domain.Task{}, requestFailed(op, 0, err)
	}
	now := r.now().UTC()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil && *p.Status != t.Status {
		if *p.Status == domain.StatusDone {
			t.CompletedAt = &now
		} else if t.Status == domain.StatusDone {
			// reopening clears the completion stamp
			t.CompletedAt = nil
		}
		t.Status = *p.Status
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
	updated, err := entityFromTask(r.board, t)
	if err != nil {
		return domain.Task{}, requestFailed(op, 0, err)
	}
	mode := aztables.UpdateModeReplace
	if _, err := r.table.UpdateEntity(ctx, updated, &aztables.UpdateEntityOptions{UpdateMode: mode}); err != nil {
		return domain.Task{}, requestFailed(op, statusOf(err), err)
	}
	return t, nil
}

func (r *TableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.table.DeleteEntity(ctx, r.board, id, nil); err != nil {
		return requestFailed("delete task", statusOf(err), err)
	}
	return nil
}

// endOfColumn computes the default position for a quick-add: after the last
// task currently in the column.
func (r *TableRepository) endOfColumn(ctx context.Context, status domain.Status) (order.Key, error) {
	tasks, err := r.List(ctx, Filter{})
	if err != nil {
		return order.Key{}, err
	}
	var last order.Key
	for _, t := range tasks {
		if t.Status == status && last.Less(t.Position) {
			last = t.Position
		}
	}
	pos, err := order.Between(last, order.Key{})
	if err != nil {
		return order.Key{}, requestFailed("create task", 0, err)
	}
	return pos, nil
}

func entityFromTask(board string, t domain.Task) ([]byte, error) {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, err
	}
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: board, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Assignee:    t.Assignee,
		Priority:    string(t.Priority),
		Tags:        string(tags),
		Source:      string(t.Source),
		CronJobID:   t.CronJobID,
		Position:    t.Position.String(),
		Metadata:    string(meta),
		Archived:    t.Archived,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.CompletedAt != nil {
		ent.CompletedAt = t.CompletedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(ent)
}

func (e taskEntity) task() (domain.Task, error) {
	pos, err := order.Parse(e.Position)
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Status:      domain.Status(e.Status),
		Assignee:    e.Assignee,
		Priority:    domain.Priority(e.Priority),
		Source:      domain.Source(e.Source),
		CronJobID:   e.CronJobID,
		Position:    pos,
		Archived:    e.Archived,
	}
	if e.Tags != "" {
		if err := json.Unmarshal([]byte(e.Tags), &t.Tags); err != nil {
			return domain.Task{}, err
		}
	}
	if e.Metadata != "" {
		if err := json.Unmarshal([]byte(e.Metadata), &t.Metadata); err != nil {
			return domain.Task{}, err
		}
	}
	if e.CreatedAt != "" {
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, e.CreatedAt); err != nil {
			return domain.Task{}, err
		}
	}
	if e.UpdatedAt != "" {
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, e.UpdatedAt); err != nil {
			return domain.Task{}, err
		}
	}
	if e.CompletedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, e.CompletedAt)
		if err != nil {
			return domain.Task{}, err
		}
		t.CompletedAt = &ts
	}
	return t, nil
}

func statusOf(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
