package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/store"
)

// MemoryStore is an in-memory implementation of every store interface and of
// store.Transactor. Entities are stored by value, so callers never share
// state with the store. A transaction that returns an error restores the
// state captured when it began.
type MemoryStore struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	tasks         map[uuid.UUID]domain.Task
	photos        map[uuid.UUID]domain.Photo
	measurements  map[uuid.UUID]domain.Measurement
	subtasks      map[uuid.UUID]domain.Subtask
	notifications []domain.NotificationLog

	// Fault injection hooks, called before the write they are named after.
	// A non-nil error aborts the write and is returned to the caller.
	OnPhotoCreate        func(photo *domain.Photo) error
	OnPhotoUpdate        func(photo *domain.Photo) error
	OnMeasurementCreate  func(m *domain.Measurement) error
	OnSubtaskUpdate      func(s *domain.Subtask) error
	OnNotificationCreate func(entry *domain.NotificationLog) error
	OnTaskUpdateMetadata func(id uuid.UUID) error

	// Call tracking for verification
	TxCalls struct {
		mu         sync.Mutex
		Count      int
		RolledBack int
	}
}

var _ store.Transactor = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:        make(map[uuid.UUID]domain.Task),
		photos:       make(map[uuid.UUID]domain.Photo),
		measurements: make(map[uuid.UUID]domain.Measurement),
		subtasks:     make(map[uuid.UUID]domain.Subtask),
	}
}

// Stores returns the store interfaces backed by m.
func (m *MemoryStore) Stores() store.Stores {
	return store.Stores{
		Tasks:         &memoryTaskStore{m},
		Photos:        &memoryPhotoStore{m},
		Measurements:  &memoryMeasurementStore{m},
		Subtasks:      &memorySubtaskStore{m},
		Notifications: &memoryNotificationStore{m},
	}
}

// WithinTx implements store.Transactor. Transactions are serialized.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.TxCalls.mu.Lock()
	m.TxCalls.Count++
	m.TxCalls.mu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx, m.Stores()); err != nil {
		m.restore(snap)
		m.TxCalls.mu.Lock()
		m.TxCalls.RolledBack++
		m.TxCalls.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	tasks         map[uuid.UUID]domain.Task
	photos        map[uuid.UUID]domain.Photo
	measurements  map[uuid.UUID]domain.Measurement
	subtasks      map[uuid.UUID]domain.Subtask
	notifications []domain.NotificationLog
}

func (m *MemoryStore) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memorySnapshot{
		tasks:         make(map[uuid.UUID]domain.Task, len(m.tasks)),
		photos:        make(map[uuid.UUID]domain.Photo, len(m.photos)),
		measurements:  make(map[uuid.UUID]domain.Measurement, len(m.measurements)),
		subtasks:      make(map[uuid.UUID]domain.Subtask, len(m.subtasks)),
		notifications: append([]domain.NotificationLog(nil), m.notifications...),
	}
	for k, v := range m.tasks {
		snap.tasks[k] = v
	}
	for k, v := range m.photos {
		snap.photos[k] = v
	}
	for k, v := range m.measurements {
		snap.measurements[k] = v
	}
	for k, v := range m.subtasks {
		snap.subtasks[k] = v
	}
	return snap
}

func (m *MemoryStore) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = snap.tasks
	m.photos = snap.photos
	m.measurements = snap.measurements
	m.subtasks = snap.subtasks
	m.notifications = snap.notifications
}

// Seeding helpers

// PutTask stores task as-is, bypassing validation.
func (m *MemoryStore) PutTask(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
}

// PutPhoto stores photo as-is, bypassing validation.
func (m *MemoryStore) PutPhoto(photo *domain.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[photo.ID] = *photo
}

// PutSubtask stores subtask as-is, bypassing validation.
func (m *MemoryStore) PutSubtask(subtask *domain.Subtask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subtasks[subtask.ID] = *subtask
}

// PutMeasurement stores measurement as-is, bypassing validation.
func (m *MemoryStore) PutMeasurement(measurement *domain.Measurement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.measurements[measurement.ID] = *measurement
}

// Accessors

// Task returns a copy of the stored task, or nil.
func (m *MemoryStore) Task(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return &t
	}
	return nil
}

// Photo returns a copy of the stored photo, or nil.
func (m *MemoryStore) Photo(id uuid.UUID) *domain.Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[id]; ok {
		return &p
	}
	return nil
}

// Photos returns copies of every stored photo, in creation order.
func (m *MemoryStore) Photos() []*domain.Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	photos := make([]*domain.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		p := p
		photos = append(photos, &p)
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].CreatedAt.Before(photos[j].CreatedAt) })
	return photos
}

// Subtask returns a copy of the stored subtask, or nil.
func (m *MemoryStore) Subtask(id uuid.UUID) *domain.Subtask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subtasks[id]; ok {
		return &s
	}
	return nil
}

// Measurements returns copies of every stored measurement, oldest first.
func (m *MemoryStore) Measurements() []*domain.Measurement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.measurementsWhere(func(domain.Measurement) bool { return true })
}

// Notifications returns copies of every notification log entry, in insertion order.
func (m *MemoryStore) Notifications() []*domain.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]*domain.NotificationLog, len(m.notifications))
	for i := range m.notifications {
		entry := m.notifications[i]
		entries[i] = &entry
	}
	return entries
}

func (m *MemoryStore) measurementsWhere(keep func(domain.Measurement) bool) []*domain.Measurement {
	result := make([]*domain.Measurement, 0)
	for _, v := range m.measurements {
		if keep(v) {
			v := v
			result = append(result, &v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// Task store

type memoryTaskStore struct{ m *MemoryStore }

func (s *memoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	if task.GuestToken != "" {
		for _, t := range s.m.tasks {
			if t.GuestToken == task.GuestToken {
				return store.ErrGuestTokenExists
			}
		}
	}
	s.m.tasks[task.ID] = *task
	return nil
}

func (s *memoryTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

func (s *memoryTaskStore) GetByGuestToken(ctx context.Context, token string) (*domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if token == "" {
		return nil, store.ErrTaskNotFound
	}
	for _, t := range s.m.tasks {
		if t.GuestToken == token {
			return &t, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *memoryTaskStore) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.TaskMetadata) error {
	if s.m.OnTaskUpdateMetadata != nil {
		if err := s.m.OnTaskUpdateMetadata(id); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Metadata = metadata
	t.UpdatedAt = time.Now().UTC()
	s.m.tasks[id] = t
	return nil
}

func (s *memoryTaskStore) MarkInProgressIfWaiting(ctx context.Context, id uuid.UUID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok || t.Status != domain.TaskStatusWaiting {
		return false, nil
	}
	t.Status = domain.TaskStatusInProgress
	t.UpdatedAt = time.Now().UTC()
	s.m.tasks[id] = t
	return true, nil
}

func (s *memoryTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

// Photo store

type memoryPhotoStore struct{ m *MemoryStore }

func (s *memoryPhotoStore) Create(ctx context.Context, photo *domain.Photo) error {
	if err := photo.Validate(); err != nil {
		return err
	}
	if s.m.OnPhotoCreate != nil {
		if err := s.m.OnPhotoCreate(photo); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[photo.TaskID]; !ok {
		return store.ErrInvalidEntity
	}
	s.m.photos[photo.ID] = *photo
	return nil
}

func (s *memoryPhotoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.photos[id]
	if !ok {
		return nil, store.ErrPhotoNotFound
	}
	return &p, nil
}

func (s *memoryPhotoStore) Update(ctx context.Context, photo *domain.Photo) error {
	if err := photo.Validate(); err != nil {
		return err
	}
	if s.m.OnPhotoUpdate != nil {
		if err := s.m.OnPhotoUpdate(photo); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	existing, ok := s.m.photos[photo.ID]
	if !ok {
		return store.ErrPhotoNotFound
	}
	existing.Processed = photo.Processed
	existing.State = photo.State
	existing.Attempts = photo.Attempts
	existing.Metadata = photo.Metadata
	existing.UpdatedAt = photo.UpdatedAt
	s.m.photos[photo.ID] = existing
	return nil
}

func (s *memoryPhotoStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.photos[id]; !ok {
		return store.ErrPhotoNotFound
	}
	delete(s.m.photos, id)
	for mid, meas := range s.m.measurements {
		if meas.PhotoID != nil && *meas.PhotoID == id {
			meas.PhotoID = nil
			s.m.measurements[mid] = meas
		}
	}
	return nil
}

func (s *memoryPhotoStore) CountByTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	count := 0
	for _, p := range s.m.photos {
		if p.TaskID == taskID {
			count++
		}
	}
	return count, nil
}

func (s *memoryPhotoStore) HasProcessed(ctx context.Context, taskID uuid.UUID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.photos {
		if p.TaskID == taskID && p.Processed {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryPhotoStore) ListRecoverable(
	ctx context.Context,
	states []domain.ProcessingState,
	updatedBefore time.Time,
	limit int,
) ([]*domain.Photo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	wanted := make(map[domain.ProcessingState]bool, len(states))
	for _, st := range states {
		wanted[st] = true
	}

	result := make([]*domain.Photo, 0)
	for _, p := range s.m.photos {
		if wanted[p.State] && p.UpdatedAt.Before(updatedBefore) {
			p := p
			result = append(result, &p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.Before(result[j].UpdatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *memoryPhotoStore) WithTx(tx *sql.Tx) store.PhotoStore { return s }

// Measurement store

type memoryMeasurementStore struct{ m *MemoryStore }

func (s *memoryMeasurementStore) Create(ctx context.Context, measurement *domain.Measurement) error {
	if err := measurement.Validate(); err != nil {
		return err
	}
	if s.m.OnMeasurementCreate != nil {
		if err := s.m.OnMeasurementCreate(measurement); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.measurements[measurement.ID] = *measurement
	return nil
}

func (s *memoryMeasurementStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Measurement, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	meas, ok := s.m.measurements[id]
	if !ok {
		return nil, store.ErrMeasurementNotFound
	}
	return &meas, nil
}

func (s *memoryMeasurementStore) UpdateRevision(ctx context.Context, measurement *domain.Measurement) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	existing, ok := s.m.measurements[measurement.ID]
	if !ok {
		return store.ErrMeasurementNotFound
	}
	existing.Points = measurement.Points
	existing.Confidence = measurement.Confidence
	existing.UpdatedAt = measurement.UpdatedAt
	s.m.measurements[measurement.ID] = existing
	return nil
}

func (s *memoryMeasurementStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.measurements[id]; !ok {
		return store.ErrMeasurementNotFound
	}
	delete(s.m.measurements, id)
	return nil
}

func (s *memoryMeasurementStore) ListByPhoto(ctx context.Context, photoID uuid.UUID) ([]*domain.Measurement, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.measurementsWhere(func(meas domain.Measurement) bool {
		return meas.PhotoID != nil && *meas.PhotoID == photoID
	}), nil
}

func (s *memoryMeasurementStore) WithTx(tx *sql.Tx) store.MeasurementStore { return s }

// Subtask store

type memorySubtaskStore struct{ m *MemoryStore }

func (s *memorySubtaskStore) Create(ctx context.Context, subtask *domain.Subtask) error {
	if err := subtask.Validate(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.subtasks[subtask.ID] = *subtask
	return nil
}

func (s *memorySubtaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtask, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.subtasks[id]
	if !ok {
		return nil, store.ErrSubtaskNotFound
	}
	return &sub, nil
}

func (s *memorySubtaskStore) Update(ctx context.Context, subtask *domain.Subtask) error {
	if err := subtask.Validate(); err != nil {
		return err
	}
	if s.m.OnSubtaskUpdate != nil {
		if err := s.m.OnSubtaskUpdate(subtask); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.subtasks[subtask.ID]; !ok {
		return store.ErrSubtaskNotFound
	}
	s.m.subtasks[subtask.ID] = *subtask
	return nil
}

func (s *memorySubtaskStore) WithTx(tx *sql.Tx) store.SubtaskStore { return s }

// Notification log store

type memoryNotificationStore struct{ m *MemoryStore }

func (s *memoryNotificationStore) Create(ctx context.Context, entry *domain.NotificationLog) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if s.m.OnNotificationCreate != nil {
		if err := s.m.OnNotificationCreate(entry); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.notifications = append(s.m.notifications, *entry)
	return nil
}

func (s *memoryNotificationStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.NotificationLog, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	entries := make([]*domain.NotificationLog, 0)
	for i := range s.m.notifications {
		entry := s.m.notifications[i]
		if entry.TaskID != nil && *entry.TaskID == taskID {
			entries = append(entries, &entry)
		}
	}
	return entries, nil
}

func (s *memoryNotificationStore) WithTx(tx *sql.Tx) store.NotificationLogStore { return s }
