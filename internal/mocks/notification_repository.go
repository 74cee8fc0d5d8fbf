package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"bloodlink/internal/domain"
)

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

func (m *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *NotificationRepository) ListByRecipient(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, email, unreadOnly, params)
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllAsRead(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *NotificationRepository) DeleteByRequest(ctx context.Context, requestID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	args := m.Called(ctx, requestID, types)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) DeleteByOffer(ctx context.Context, offerID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	args := m.Called(ctx, offerID, types)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) DeleteForRecipient(ctx context.Context, requestID uuid.UUID, recipient string, types ...domain.NotificationType) (int64, error) {
	args := m.Called(ctx, requestID, recipient, types)
	return args.Get(0).(int64), args.Error(1)
}
