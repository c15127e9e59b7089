package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRollback(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	task, err := domain.NewTask(uuid.New(), "Kitchen", "")
	require.NoError(t, err)
	m.PutTask(task)

	err = m.WithinTx(context.Background(), func(ctx context.Context, tx store.Stores) error {
		photo, err := domain.NewPhoto(task.ID, "photos/a.jpg", 10, 10, domain.PhotoMetadata{})
		require.NoError(t, err)
		require.NoError(t, tx.Photos.Create(ctx, photo))
		return errors.New("abort")
	})

	assert.EqualError(t, err, "abort")
	assert.Empty(t, m.Photos(), "rolled back photo must not remain")
	assert.Equal(t, 1, m.TxCalls.RolledBack)
}

func TestMemoryStoreMarkInProgressIfWaiting(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	tasks := m.Stores().Tasks
	task := &domain.Task{ID: uuid.New(), OwnerID: uuid.New(), Title: "t", Status: domain.TaskStatusWaiting}
	m.PutTask(task)

	flipped, err := tasks.MarkInProgressIfWaiting(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = tasks.MarkInProgressIfWaiting(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.Equal(t, domain.TaskStatusInProgress, m.Task(task.ID).Status)
}

func TestMemoryStorePhotoDeleteKeepsMeasurements(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	taskID := uuid.New()
	m.PutTask(&domain.Task{ID: taskID, OwnerID: uuid.New(), Title: "t", Status: domain.TaskStatusNew})
	photo, err := domain.NewPhoto(taskID, "photos/a.jpg", 10, 10, domain.PhotoMetadata{})
	require.NoError(t, err)
	m.PutPhoto(photo)

	value := 1000.0
	m.PutMeasurement(&domain.Measurement{
		ID: uuid.New(), TaskID: taskID, PhotoID: &photo.ID,
		Type: domain.MeasurementTypeLength, ValueMm: &value, CreatedAt: time.Now(),
	})

	require.NoError(t, m.Stores().Photos.Delete(context.Background(), photo.ID))
	measurements := m.Measurements()
	require.Len(t, measurements, 1)
	assert.Nil(t, measurements[0].PhotoID)
}
