//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/platform/postgres"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to MEASURE_TEST_DATABASE_URL and applies migrations.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("MEASURE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MEASURE_TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(context.Background(), db, "up", nil))
	return db
}

func createWaitingTask(t *testing.T, ctx context.Context, stores store.Stores) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), "Integration task", "")
	require.NoError(t, err)
	expires := time.Now().Add(24 * time.Hour)
	task.Status = domain.TaskStatusWaiting
	task.GuestToken = uuid.NewString()
	task.GuestExpiresAt = &expires
	require.NoError(t, stores.Tasks.Create(ctx, task))
	return task
}

func TestTaskStore_MarkInProgressIfWaiting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stores := postgres.NewStores(db, nil)

	task := createWaitingTask(t, ctx, stores)

	flipped, err := stores.Tasks.MarkInProgressIfWaiting(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = stores.Tasks.MarkInProgressIfWaiting(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, flipped, "second flip is a no-op")

	byToken, err := stores.Tasks.GetByGuestToken(ctx, task.GuestToken)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, byToken.Status)

	_, err = stores.Tasks.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestPhotoStore_RoundTripAndRecovery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stores := postgres.NewStores(db, nil)
	task := createWaitingTask(t, ctx, stores)

	photo, err := domain.NewPhoto(task.ID, "photos/x/task_x_1.jpg", 640, 480, domain.PhotoMetadata{MimeType: "image/jpeg"})
	require.NoError(t, err)
	require.NoError(t, stores.Photos.Create(ctx, photo))

	ppm := 4.2
	photo.MarkDispatched(1)
	photo.MarkSucceeded(&ppm, &domain.Marker{Corners: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}, "")
	require.NoError(t, stores.Photos.Update(ctx, photo))

	got, err := stores.Photos.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.Equal(t, domain.ProcessingStateSucceeded, got.State)
	require.NotNil(t, got.Metadata.PixelsPerMm)
	assert.Equal(t, 4.2, *got.Metadata.PixelsPerMm)

	hasProcessed, err := stores.Photos.HasProcessed(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, hasProcessed)

	stuck, err := domain.NewPhoto(task.ID, "photos/x/task_x_2.jpg", 1, 1, domain.PhotoMetadata{})
	require.NoError(t, err)
	stuck.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, stores.Photos.Create(ctx, stuck))

	recoverable, err := stores.Photos.ListRecoverable(ctx,
		[]domain.ProcessingState{domain.ProcessingStateUploaded}, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(recoverable))
	for _, p := range recoverable {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, stuck.ID)
	assert.NotContains(t, ids, photo.ID)
}

func TestMeasurementSurvivesPhotoDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stores := postgres.NewStores(db, nil)
	task := createWaitingTask(t, ctx, stores)

	photo, err := domain.NewPhoto(task.ID, "photos/x/task_x_3.jpg", 1, 1, domain.PhotoMetadata{})
	require.NoError(t, err)
	require.NoError(t, stores.Photos.Create(ctx, photo))

	value := 120.0
	m := &domain.Measurement{
		ID:               uuid.New(),
		TaskID:           task.ID,
		PhotoID:          &photo.ID,
		Type:             domain.MeasurementTypeLength,
		ValueMm:          &value,
		Points:           []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Confidence:       1,
		ProcessorVersion: domain.ProcessorVersionManual,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, stores.Measurements.Create(ctx, m))
	require.NoError(t, stores.Photos.Delete(ctx, photo.ID))

	got, err := stores.Measurements.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PhotoID)
	assert.Equal(t, m.Points, got.Points)
}

func TestTransactorRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tx := postgres.NewTransactor(db, nil)
	task := createWaitingTask(t, ctx, tx.Stores())

	photo, err := domain.NewPhoto(task.ID, "photos/x/task_x_4.jpg", 1, 1, domain.PhotoMetadata{})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
		if err := s.Photos.Create(ctx, photo); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = tx.Stores().Photos.GetByID(ctx, photo.ID)
	assert.ErrorIs(t, err, store.ErrPhotoNotFound)
}
