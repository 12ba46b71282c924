package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

// Message is one intake queue entry.
type Message struct {
	ID      string
	Receipt string
	Body    string
}

// Queue is the intake source. Dequeue returns nil when the queue is empty.
type Queue interface {
	Dequeue(ctx context.Context) (*Message, error)
	Delete(ctx context.Context, id, receipt string) error
}

// AzureQueue adapts an azqueue client to Queue.
type AzureQueue struct {
	client *azqueue.QueueClient
}

// NewAzureQueue connects to the named intake queue.
func NewAzureQueue(connStr, queueName string) (*AzureQueue, error) {
	client, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, nil)
	if err != nil {
		return nil, err
	}
	return &AzureQueue{client: client}, nil
}

func (q *AzureQueue) Dequeue(ctx context.Context) (*Message, error) {
	resp, err := q.client.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	msg := resp.Messages[0]
	out := &Message{}
	if msg.MessageID != nil {
		out.ID = *msg.MessageID
	}
	if msg.PopReceipt != nil {
		out.Receipt = *msg.PopReceipt
	}
	if msg.MessageText != nil {
		out.Body = *msg.MessageText
	}
	return out, nil
}

func (q *AzureQueue) Delete(ctx context.Context, id, receipt string) error {
	_, err := q.client.DeleteMessage(ctx, id, receipt, nil)
	return err
}

// intakeTask is the payload external producers put on the queue.
type intakeTask struct {
	Key         string            `json:"key,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Priority    domain.Priority   `json:"priority,omitempty"`
	Source      domain.Source     `json:"source"`
	CronJobID   string            `json:"cronJobId,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Runner polls the intake queue and files tasks into the todo column.
type Runner struct {
	queue   Queue
	deduper Deduper
	repo    taskrepo.Repository
	log     *log.Logger
	idle    time.Duration
}

// NewRunner wires a poller. idle is the sleep between polls of an empty
// queue.
func NewRunner(queue Queue, deduper Deduper, repo taskrepo.Repository, logger *log.Logger, idle time.Duration) *Runner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if idle <= 0 {
		idle = time.Second
	}
	return &Runner{queue: queue, deduper: deduper, repo: repo, log: logger, idle: idle}
}

// Run polls until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		worked, err := r.Poll(ctx)
		if err != nil {
			r.log.WithError(err).Error("intake poll failed")
		}
		if !worked {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.idle):
			}
		}
	}
}

// Poll handles at most one message and reports whether there was one.
func (r *Runner) Poll(ctx context.Context) (bool, error) {
	msg, err := r.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	if err := r.handle(ctx, msg); err != nil {
		// leave the message for the next visibility round
		return true, err
	}
	if err := r.queue.Delete(ctx, msg.ID, msg.Receipt); err != nil {
		r.log.WithError(err).Warn("intake message delete failed")
	}
	return true, nil
}

func (r *Runner) handle(ctx context.Context, msg *Message) error {
	var in intakeTask
	if err := json.Unmarshal([]byte(msg.Body), &in); err != nil || in.Title == "" {
		// malformed payloads are dropped, not retried
		r.log.WithField("message", msg.ID).Warn("dropping malformed intake message")
		return nil
	}
	if !in.Source.Valid() || in.Source == domain.SourceManual {
		r.log.WithFields(log.Fields{"message": msg.ID, "source": in.Source}).
			Warn("dropping intake message with bad provenance")
		return nil
	}
	key := in.Key
	if key == "" {
		key = uuid.NewString()
	}
	added, err := r.deduper.Add(ctx, key)
	if err != nil {
		return err
	}
	if !added {
		r.log.WithField("key", key).Debug("duplicate intake message skipped")
		return nil
	}
	_, err = r.repo.Create(ctx, taskrepo.Draft{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.StatusTodo,
		Source:      in.Source,
		CronJobID:   in.CronJobID,
		Tags:        in.Tags,
		Metadata:    in.Metadata,
	})
	if err != nil {
		// free the key so the message can retry after redelivery
		if derr := r.deduper.Remove(ctx, key); derr != nil {
			r.log.WithError(derr).Warn("dedup rollback failed")
		}
		return err
	}
	r.log.WithFields(log.Fields{"title": in.Title, "source": in.Source}).Info("intake task filed")
	return nil
}
