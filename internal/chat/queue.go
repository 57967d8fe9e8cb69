package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Queue carries serialized reply jobs between the API and the workers.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// ReplyJob asks a worker to generate the assistant reply to a user message.
type ReplyJob struct {
	ID      string   `json:"id"`
	UserID  string   `json:"userId"`
	Message string   `json:"message"`
	Context *Context `json:"context,omitempty"`
}

// Enqueuer hands reply jobs to the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, job ReplyJob) error
}

// Publisher enqueues reply jobs on a queue.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("chat: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

func (p *Publisher) Enqueue(ctx context.Context, job ReplyJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("chat: failed to encode job: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("chat: failed to enqueue job: %w", err)
	}
	p.logger.Debug("chat reply job enqueued", "job_id", job.ID, "user_id", job.UserID)
	return nil
}
