package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) SetPresence(ctx context.Context, roomKey string, userId string, connectionId string, ttl time.Duration) error {
	args := m.Called(ctx, roomKey, userId, connectionId, ttl)
	return args.Error(0)
}

func (m *MockCache) ClearPresence(ctx context.Context, roomKey string, userId string) error {
	args := m.Called(ctx, roomKey, userId)
	return args.Error(0)
}

func (m *MockCache) GetRoomPresence(ctx context.Context, roomKey string) ([]string, error) {
	args := m.Called(ctx, roomKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCache) IncrementUnreadCount(ctx context.Context, userId string) (int64, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) ResetUnreadCount(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockCache) GetUnreadCount(ctx context.Context, userId string) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}
