package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/service"
)

type mockMeasurementService struct {
	SubmitFn func(ctx context.Context, taskID, photoID uuid.UUID, submission service.Submission) (*service.SubmitResult, error)
	ReviseFn func(ctx context.Context, id uuid.UUID, revision service.Revision) (*domain.Measurement, error)
	GetFn    func(ctx context.Context, id uuid.UUID) (*domain.Measurement, error)
	DeleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockMeasurementService) Submit(ctx context.Context, taskID, photoID uuid.UUID, submission service.Submission) (*service.SubmitResult, error) {
	return m.SubmitFn(ctx, taskID, photoID, submission)
}

func (m *mockMeasurementService) Revise(ctx context.Context, id uuid.UUID, revision service.Revision) (*domain.Measurement, error) {
	return m.ReviseFn(ctx, id, revision)
}

func (m *mockMeasurementService) Get(ctx context.Context, id uuid.UUID) (*domain.Measurement, error) {
	return m.GetFn(ctx, id)
}

func (m *mockMeasurementService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.DeleteFn(ctx, id)
}

type mockUploadService struct {
	GuestUploadFn     func(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error)
	CheckGuestTokenFn func(ctx context.Context, token string) (*service.GuestTokenStatus, error)
	ReprocessFn       func(ctx context.Context, taskID, photoID uuid.UUID) (*domain.Photo, error)
}

func (m *mockUploadService) GuestUpload(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error) {
	return m.GuestUploadFn(ctx, token, files, contact)
}

func (m *mockUploadService) CheckGuestToken(ctx context.Context, token string) (*service.GuestTokenStatus, error) {
	return m.CheckGuestTokenFn(ctx, token)
}

func (m *mockUploadService) Reprocess(ctx context.Context, taskID, photoID uuid.UUID) (*domain.Photo, error) {
	return m.ReprocessFn(ctx, taskID, photoID)
}

var (
	_ service.MeasurementService = (*mockMeasurementService)(nil)
	_ service.UploadService      = (*mockUploadService)(nil)
)
