package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/config"
	"github.com/phrazzld/measure-api/internal/jobs"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeliverer struct {
	mu   sync.Mutex
	envs []jobs.Envelope
	err  error
}

func (d *recordingDeliverer) deliver(ctx context.Context, env jobs.Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.envs = append(d.envs, env)
	return nil
}

func (d *recordingDeliverer) delivered() []jobs.Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]jobs.Envelope(nil), d.envs...)
}

func newTestScheduler(t *testing.T, deliver jobs.DeliverFunc) (*Scheduler, *goredis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(client, "test:retries", 10*time.Millisecond, deliver, logger), client
}

func TestSchedulerDeliversDueEnvelopesOnce(t *testing.T) {
	t.Parallel()

	rec := &recordingDeliverer{}
	s, _ := newTestScheduler(t, rec.deliver)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	due := jobs.Envelope{ID: uuid.New(), Type: "photo_processing", Payload: []byte(`{"photo_id":"a"}`), Attempt: 2}
	later := jobs.Envelope{ID: uuid.New(), Type: "photo_processing", Payload: []byte(`{"photo_id":"b"}`), Attempt: 3}
	require.NoError(t, s.ScheduleAfter(ctx, 0, due))
	require.NoError(t, s.ScheduleAfter(ctx, time.Minute, later))

	n, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.delivered(), 1)
	assert.Equal(t, due.ID, rec.delivered()[0].ID)
	assert.Equal(t, 2, rec.delivered()[0].Attempt)
	assert.JSONEq(t, `{"photo_id":"a"}`, string(rec.delivered()[0].Payload))

	n, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a delivered envelope is not delivered again")

	s.now = func() time.Time { return base.Add(61 * time.Second) }
	n, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSchedulerReschedulesFailedDelivery(t *testing.T) {
	t.Parallel()

	rec := &recordingDeliverer{err: jobs.ErrQueueFull}
	s, _ := newTestScheduler(t, rec.deliver)
	ctx := context.Background()

	require.NoError(t, s.ScheduleAfter(ctx, 0, jobs.Envelope{ID: uuid.New(), Type: "photo_processing", Attempt: 2}))

	n, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending, "undeliverable envelope goes back into the set")
}

func TestSchedulerRun(t *testing.T) {
	t.Parallel()

	rec := &recordingDeliverer{}
	s, _ := newTestScheduler(t, rec.deliver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.ScheduleAfter(ctx, 0, jobs.Envelope{ID: uuid.New(), Type: "photo_processing", Attempt: 2}))
	assert.Eventually(t, func() bool { return len(rec.delivered()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerRedisUnavailable(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(client, "test:retries", time.Second, func(ctx context.Context, env jobs.Envelope) error {
		return errors.New("unreachable")
	}, logger)

	err := s.ScheduleAfter(context.Background(), time.Second, jobs.Envelope{ID: uuid.New()})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.QueueConfig{RedisAddr: server.Addr()})
	require.NoError(t, err)
	_ = client.Close()

	addr := server.Addr()
	server.Close()
	_, err = NewClient(context.Background(), config.QueueConfig{RedisAddr: addr})
	assert.Error(t, err)
}
