package mocks

import (
	"context"

	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/notify"
	"github.com/stretchr/testify/mock"
)

// TestifyMockPublisher is a mock of notify.Publisher for use with testify/mock
type TestifyMockPublisher struct {
	mock.Mock
}

var _ notify.Publisher = (*TestifyMockPublisher)(nil)

// Publish is a mock implementation of notify.Publisher.Publish
func (m *TestifyMockPublisher) Publish(ctx context.Context, entry *domain.NotificationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
