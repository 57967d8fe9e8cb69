package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

const (
	defaultKeyPrefix = "docbook:scheduler"
	defaultBatchSize = 100
)

// RedisScheduler keeps jobs in a sorted set scored by due time (unix ms) and
// their bodies in a hash. Jobs survive process restarts; any number of
// processes may poll, and only the one whose ZREM succeeds runs a job.
type RedisScheduler struct {
	*registry
	client    *redis.Client
	dueKey    string
	jobsKey   string
	batchSize int64
	now       func() time.Time
}

// NewRedisScheduler creates a scheduler on client.
func NewRedisScheduler(client *redis.Client, logger *logging.Logger) *RedisScheduler {
	if client == nil {
		panic("scheduler: redis client cannot be nil")
	}
	return &RedisScheduler{
		registry:  newRegistry(logger),
		client:    client,
		dueKey:    defaultKeyPrefix + ":due",
		jobsKey:   defaultKeyPrefix + ":jobs",
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Schedule stores job; it becomes eligible once RunAt has passed.
func (s *RedisScheduler) Schedule(ctx context.Context, job Job) error {
	if !s.has(job.Kind) {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("scheduler: marshal job: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.jobsKey, job.ID, data)
		pipe.ZAdd(ctx, s.dueKey, redis.Z{Score: float64(job.RunAt.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scheduler: store job: %w", err)
	}
	return nil
}

// Cancel removes a pending job. Unknown ids are ignored.
func (s *RedisScheduler) Cancel(ctx context.Context, jobID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.dueKey, jobID)
		pipe.HDel(ctx, s.jobsKey, jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scheduler: cancel job: %w", err)
	}
	return nil
}

// RunDue claims and executes every job that is due. Returns the number of
// jobs this call executed.
func (s *RedisScheduler) RunDue(ctx context.Context) (int, error) {
	upper := strconv.FormatInt(s.now().UnixMilli(), 10)
	ids, err := s.client.ZRangeByScore(ctx, s.dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   upper,
		Count: s.batchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: list due: %w", err)
	}

	ran := 0
	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, s.dueKey, id).Result()
		if err != nil {
			return ran, fmt.Errorf("scheduler: claim %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}
		job, err := s.takeJob(ctx, id)
		if err != nil {
			s.logger.Error("scheduler: unreadable job", "job_id", id, "error", err)
			continue
		}
		s.dispatch(context.WithoutCancel(ctx), job)
		ran++
	}
	return ran, nil
}

// Run polls for due jobs every interval until ctx is cancelled.
func (s *RedisScheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler: polling redis", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return
		case <-ticker.C:
			if _, err := s.RunDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduler: poll failed", "error", err)
			}
		}
	}
}

func (s *RedisScheduler) takeJob(ctx context.Context, id string) (Job, error) {
	data, err := s.client.HGet(ctx, s.jobsKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Job{}, errors.New("scheduler: job body missing")
		}
		return Job{}, err
	}
	if err := s.client.HDel(ctx, s.jobsKey, id).Err(); err != nil {
		s.logger.Warn("scheduler: failed to delete job body", "job_id", id, "error", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("scheduler: decode job: %w", err)
	}
	return job, nil
}
