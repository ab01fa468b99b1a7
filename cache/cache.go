package cache

import (
	"context"
	"time"
)

// Pub/sub channels shared by every instance of the coordinator.
const (
	UserEventsChannel = "user-events"
	RoomEventsChannel = "room-events"
)

type TeamloftCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	SetPresence(ctx context.Context, roomKey string, userId string, connectionId string, ttl time.Duration) error
	ClearPresence(ctx context.Context, roomKey string, userId string) error
	GetRoomPresence(ctx context.Context, roomKey string) ([]string, error)

	IncrementUnreadCount(ctx context.Context, userId string) (int64, error)
	ResetUnreadCount(ctx context.Context, userId string) error
	GetUnreadCount(ctx context.Context, userId string) (int, error)
}
