package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // registers the JPEG decoder for image.DecodeConfig
	_ "image/png"  // registers the PNG decoder for image.DecodeConfig
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/storage"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/rwcarlsen/goexif/exif"
)

// UploadedByGuest is recorded on photos uploaded through a guest link.
const UploadedByGuest = "guest"

// Default upload limits.
const (
	DefaultMaxFiles    = 10
	DefaultMaxFileSize = 10 << 20
)

// allowedMediaTypes maps sniffed content types to stored file extensions.
var allowedMediaTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// ProcessingRequester starts asynchronous processing of a photo.
type ProcessingRequester interface {
	ProcessPhoto(ctx context.Context, photoID uuid.UUID) error
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name string
	Data []byte
}

// ContactInfo is the optional contact a guest leaves with an upload.
type ContactInfo struct {
	Email string `validate:"omitempty,email,max=255"`
	Phone string `validate:"omitempty,max=50"`
}

// UploadConfig limits the size of upload batches.
type UploadConfig struct {
	MaxFiles    int
	MaxFileSize int64
}

// GuestUploadResult reports the photos created by a guest upload.
type GuestUploadResult struct {
	TaskID uuid.UUID       `json:"task_id"`
	Photos []*domain.Photo `json:"photos"`
}

// GuestTokenStatus describes the task a valid guest token grants access to.
type GuestTokenStatus struct {
	TaskID     uuid.UUID `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	PhotoCount int       `json:"photo_count"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// UploadService accepts photos and hands them to the processing pipeline.
type UploadService interface {
	// GuestUpload stores a batch of photos for the task holding token.
	// The batch is all-or-nothing: on any failure no photo row and no stored
	// file survives.
	GuestUpload(ctx context.Context, token string, files []UploadFile, contact ContactInfo) (*GuestUploadResult, error)

	// CheckGuestToken reports whether token is usable and what it grants.
	CheckGuestToken(ctx context.Context, token string) (*GuestTokenStatus, error)

	// Reprocess resets photoID, which must belong to taskID, and requests
	// processing again.
	Reprocess(ctx context.Context, taskID, photoID uuid.UUID) (*domain.Photo, error)
}

// uploadServiceImpl implements the UploadService interface
type uploadServiceImpl struct {
	stores     store.Stores
	transactor store.Transactor
	objects    storage.ObjectStorage
	processing ProcessingRequester
	config     UploadConfig
	logger     *slog.Logger
	now        func() time.Time
}

// preparedFile is a validated upload waiting to be stored.
type preparedFile struct {
	name      string
	data      []byte
	mediaType string
	ext       string
	width     int
	height    int
	exif      json.RawMessage
}

// NewUploadService creates a new UploadService.
// It returns an error if any of the required dependencies are nil.
// Zero limits fall back to DefaultMaxFiles and DefaultMaxFileSize.
func NewUploadService(
	stores store.Stores,
	transactor store.Transactor,
	objects storage.ObjectStorage,
	processing ProcessingRequester,
	config UploadConfig,
	logger *slog.Logger,
) (UploadService, error) {
	if stores.Tasks == nil || stores.Photos == nil {
		return nil, &UploadServiceError{Operation: "create_service", Message: "stores cannot be nil"}
	}
	if transactor == nil {
		return nil, &UploadServiceError{Operation: "create_service", Message: "transactor cannot be nil"}
	}
	if objects == nil {
		return nil, &UploadServiceError{Operation: "create_service", Message: "object storage cannot be nil"}
	}
	if processing == nil {
		return nil, &UploadServiceError{Operation: "create_service", Message: "processing requester cannot be nil"}
	}

	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultMaxFiles
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &uploadServiceImpl{
		stores:     stores,
		transactor: transactor,
		objects:    objects,
		processing: processing,
		config:     config,
		logger:     logger.With("component", "upload_service"),
		now:        time.Now,
	}, nil
}

// GuestUpload implements UploadService.GuestUpload
func (s *uploadServiceImpl) GuestUpload(
	ctx context.Context,
	token string,
	files []UploadFile,
	contact ContactInfo,
) (*GuestUploadResult, error) {
	task, err := s.guestTask(ctx, token)
	if err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", task.ID)

	if err := validate.Struct(contact); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if len(files) == 0 || len(files) > s.config.MaxFiles {
		return nil, fmt.Errorf("%w: got %d, allowed 1 to %d", ErrTooManyFiles, len(files), s.config.MaxFiles)
	}

	prepared := make([]preparedFile, 0, len(files))
	for i, file := range files {
		p, err := s.prepare(file)
		if err != nil {
			log.Debug("rejected uploaded file", "error", err, "index", i, "name", file.Name)
			return nil, fmt.Errorf("photo %d (%s): %w", i+1, file.Name, err)
		}
		prepared = append(prepared, p)
	}

	var stored []string
	var photos []*domain.Photo
	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		for _, p := range prepared {
			key := storage.PhotoKey(task.ID, p.ext)
			if err := s.objects.Put(ctx, key, p.mediaType, p.data); err != nil {
				return fmt.Errorf("failed to store %s: %w", p.name, err)
			}
			stored = append(stored, key)

			photo, err := domain.NewPhoto(task.ID, key, p.width, p.height, domain.PhotoMetadata{
				OriginalName: p.name,
				MimeType:     p.mediaType,
				Size:         int64(len(p.data)),
				UploadedBy:   UploadedByGuest,
			})
			if err != nil {
				return err
			}
			photo.Exif = p.exif

			if err := tx.Photos.Create(ctx, photo); err != nil {
				return err
			}
			photos = append(photos, photo)
		}

		if contact.Email == "" && contact.Phone == "" {
			return nil
		}
		task.RecordGuestContact(contact.Email, contact.Phone, s.now())
		return tx.Tasks.UpdateMetadata(ctx, task.ID, task.Metadata)
	})
	if err != nil {
		s.cleanup(ctx, log, stored)
		log.Error("guest upload failed", "error", err, "stored_files", len(stored))
		return nil, NewUploadServiceError("guest_upload", "failed to store photos", err)
	}

	for _, photo := range photos {
		if err := s.processing.ProcessPhoto(ctx, photo.ID); err != nil {
			// The photo stays uploaded and is picked up by stuck photo recovery.
			log.Error("failed to request photo processing", "error", err, "photo_id", photo.ID)
		}
	}

	log.Info("guest upload stored", "photos", len(photos))

	return &GuestUploadResult{TaskID: task.ID, Photos: photos}, nil
}

// CheckGuestToken implements UploadService.CheckGuestToken
func (s *uploadServiceImpl) CheckGuestToken(ctx context.Context, token string) (*GuestTokenStatus, error) {
	task, err := s.guestTask(ctx, token)
	if err != nil {
		return nil, err
	}

	count, err := s.stores.Photos.CountByTask(ctx, task.ID)
	if err != nil {
		return nil, NewUploadServiceError("check_guest_token", "failed to count photos", err)
	}

	return &GuestTokenStatus{
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		PhotoCount: count,
		ExpiresAt:  *task.GuestExpiresAt,
	}, nil
}

// Reprocess implements UploadService.Reprocess
func (s *uploadServiceImpl) Reprocess(ctx context.Context, taskID, photoID uuid.UUID) (*domain.Photo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", taskID, "photo_id", photoID)

	photo, err := s.stores.Photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, NewUploadServiceError("reprocess", "failed to load photo", err)
	}
	if photo.TaskID != taskID {
		log.Warn("photo does not belong to task", "photo_task_id", photo.TaskID)
		return nil, ErrOwnershipMismatch
	}

	photo.ResetForReprocess()
	if err := s.stores.Photos.Update(ctx, photo); err != nil {
		return nil, NewUploadServiceError("reprocess", "failed to reset photo", err)
	}

	if err := s.processing.ProcessPhoto(ctx, photo.ID); err != nil {
		log.Error("failed to request photo processing", "error", err)
		return nil, NewUploadServiceError("reprocess", "failed to request processing", err)
	}

	log.Info("photo reprocessing requested")
	return photo, nil
}

// guestTask resolves token to its task, rejecting unknown and expired tokens.
func (s *uploadServiceImpl) guestTask(ctx context.Context, token string) (*domain.Task, error) {
	if token == "" {
		return nil, ErrInvalidGuestToken
	}

	task, err := s.stores.Tasks.GetByGuestToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGuestToken
		}
		return nil, NewUploadServiceError("guest_token", "failed to load task", err)
	}

	if !task.IsGuestTokenValid(s.now()) {
		return nil, ErrGuestTokenExpired
	}
	return task, nil
}

// prepare validates one file and extracts its dimensions and EXIF data.
func (s *uploadServiceImpl) prepare(file UploadFile) (preparedFile, error) {
	if int64(len(file.Data)) > s.config.MaxFileSize {
		return preparedFile{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(file.Data), s.config.MaxFileSize)
	}

	mediaType := http.DetectContentType(file.Data)
	ext, ok := allowedMediaTypes[mediaType]
	if !ok {
		return preparedFile{}, fmt.Errorf("%w: got %s", ErrUnsupportedMediaType, mediaType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return preparedFile{}, fmt.Errorf("%w: unreadable image: %v", domain.ErrValidation, err)
	}

	p := preparedFile{
		name:      file.Name,
		data:      file.Data,
		mediaType: mediaType,
		ext:       ext,
		width:     cfg.Width,
		height:    cfg.Height,
	}
	if mediaType == "image/jpeg" {
		p.exif = extractExif(file.Data)
	}
	return p, nil
}

// extractExif returns the EXIF block of a JPEG as JSON, or nil when the image
// has none or it cannot be parsed.
func extractExif(data []byte) json.RawMessage {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	raw, err := x.MarshalJSON()
	if err != nil {
		return nil
	}
	return raw
}

// cleanup removes files stored by a failed batch.
func (s *uploadServiceImpl) cleanup(ctx context.Context, log *slog.Logger, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			log.Error("failed to delete stored photo after failed upload", "error", err, "key", key)
		}
	}
}
