package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// ErrNoHandler is returned when a job of an unregistered kind is scheduled.
var ErrNoHandler = errors.New("scheduler: no handler registered for kind")

// Job is a one-shot unit of deferred work.
type Job struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	RunAt   time.Time       `json:"runAt"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewJob builds a job with a JSON payload. An empty id is replaced by a
// random one.
func NewJob(id, kind string, runAt time.Time, payload any) (Job, error) {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Job{}, fmt.Errorf("scheduler: marshal payload: %w", err)
		}
		raw = data
	}
	return Job{ID: id, Kind: kind, RunAt: runAt.UTC(), Payload: raw}, nil
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("scheduler: job %s has no payload", j.ID)
	}
	return json.Unmarshal(j.Payload, v)
}

// HandlerFunc executes a job. It runs with a context detached from whoever
// scheduled the job.
type HandlerFunc func(ctx context.Context, job Job) error

// Scheduler runs each scheduled job at most once, at or after its RunAt.
type Scheduler interface {
	Schedule(ctx context.Context, job Job) error
	Cancel(ctx context.Context, jobID string) error
	Handle(kind string, fn HandlerFunc)
}

type registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *logging.Logger
}

func newRegistry(logger *logging.Logger) *registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &registry{handlers: make(map[string]HandlerFunc), logger: logger}
}

func (r *registry) Handle(kind string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = fn
}

func (r *registry) has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

func (r *registry) dispatch(ctx context.Context, job Job) {
	r.mu.RLock()
	fn, ok := r.handlers[job.Kind]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("scheduler: dropping job without handler", "job_id", job.ID, "kind", job.Kind)
		return
	}
	if err := fn(ctx, job); err != nil {
		r.logger.Error("scheduler: job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
		return
	}
	r.logger.Debug("scheduler: job completed", "job_id", job.ID, "kind", job.Kind)
}
