// Package redis provides the Redis-backed delay scheduler for job retries
// and the client constructor shared by Redis consumers.
//
// Scheduled envelopes live in a sorted set scored by their due time in unix
// milliseconds. A poll loop reads due members and claims each with ZREM;
// only the poller whose ZREM removed the member delivers it.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/phrazzld/measure-api/internal/config"
	"github.com/phrazzld/measure-api/internal/jobs"
	goredis "github.com/redis/go-redis/v9"
)

// defaultBatchSize caps the envelopes claimed per poll.
const defaultBatchSize = 100

// NewClient connects to the configured Redis server and verifies it answers.
func NewClient(ctx context.Context, cfg config.QueueConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// Scheduler implements jobs.Scheduler on a Redis sorted set.
type Scheduler struct {
	client   goredis.Cmdable
	key      string
	interval time.Duration
	batch    int64
	deliver  jobs.DeliverFunc
	logger   *slog.Logger
	now      func() time.Time
}

var _ jobs.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler storing envelopes under key. Due
// envelopes are handed to deliver by Run.
func NewScheduler(
	client goredis.Cmdable,
	key string,
	interval time.Duration,
	deliver jobs.DeliverFunc,
	logger *slog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		client:   client,
		key:      key,
		interval: interval,
		batch:    defaultBatchSize,
		deliver:  deliver,
		logger:   logger.With("component", "redis_scheduler"),
		now:      time.Now,
	}
}

// ScheduleAfter implements jobs.Scheduler.
func (s *Scheduler) ScheduleAfter(ctx context.Context, delay time.Duration, env jobs.Envelope) error {
	member, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	due := s.now().Add(delay)
	if err := s.client.ZAdd(ctx, s.key, goredis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(member),
	}).Err(); err != nil {
		return fmt.Errorf("failed to schedule %s job: %w", env.Type, err)
	}

	s.logger.Debug("job scheduled",
		"job_id", env.ID,
		"job_type", env.Type,
		"attempt", env.Attempt,
		"due_at", due.UTC())
	return nil
}

// Run polls for due envelopes until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("failed to poll scheduled jobs", "error", err)
			}
		}
	}
}

// Poll claims and delivers every envelope due now. It returns how many
// envelopes this call delivered.
func (s *Scheduler) Poll(ctx context.Context) (int, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: s.batch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due jobs: %w", err)
	}

	delivered := 0
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.key, member).Result()
		if err != nil {
			return delivered, fmt.Errorf("failed to claim scheduled job: %w", err)
		}
		if removed == 0 {
			// Another poller claimed it
			continue
		}

		var env jobs.Envelope
		if err := json.Unmarshal([]byte(member), &env); err != nil {
			s.logger.Error("dropping undecodable scheduled job", "error", err)
			continue
		}

		if err := s.deliver(ctx, env); err != nil {
			s.logger.Warn("failed to deliver scheduled job, rescheduling",
				"job_id", env.ID,
				"job_type", env.Type,
				"attempt", env.Attempt,
				"error", err)
			if err := s.ScheduleAfter(ctx, s.interval, env); err != nil {
				s.logger.Error("failed to reschedule job", "job_id", env.ID, "error", err)
			}
			continue
		}
		delivered++
	}

	return delivered, nil
}

// Pending returns the number of envelopes waiting in the set.
func (s *Scheduler) Pending(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, s.key).Result()
}
