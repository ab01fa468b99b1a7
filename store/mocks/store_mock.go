package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/teamloft/teamloft/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, userId string) (models.User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetWhiteboard(ctx context.Context, whiteboardId string) (models.Whiteboard, error) {
	args := m.Called(ctx, whiteboardId)
	return args.Get(0).(models.Whiteboard), args.Error(1)
}

func (m *MockStore) SaveWhiteboard(ctx context.Context, whiteboard models.Whiteboard) error {
	args := m.Called(ctx, whiteboard)
	return args.Error(0)
}

func (m *MockStore) WriteActivityBatch(ctx context.Context, activities []models.Activity) ([]models.Activity, error) {
	args := m.Called(ctx, activities)
	var processed []models.Activity
	if args.Get(0) != nil {
		processed = args.Get(0).([]models.Activity)
	}
	return processed, args.Error(1)
}

func (m *MockStore) GetActivities(ctx context.Context, scope string, scopeId string, limit int) ([]models.Activity, error) {
	args := m.Called(ctx, scope, scopeId, limit)
	return args.Get(0).([]models.Activity), args.Error(1)
}

func (m *MockStore) CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error) {
	args := m.Called(ctx, notification)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *MockStore) GetNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, recipient, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockStore) MarkNotificationsRead(ctx context.Context, recipient string, notificationIds []string) error {
	args := m.Called(ctx, recipient, notificationIds)
	return args.Error(0)
}
