package store

import (
	"context"
	"errors"

	"github.com/teamloft/teamloft/models"
)

type TeamloftStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userId string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	GetWhiteboard(ctx context.Context, whiteboardId string) (models.Whiteboard, error)
	SaveWhiteboard(ctx context.Context, whiteboard models.Whiteboard) error

	WriteActivityBatch(ctx context.Context, activities []models.Activity) ([]models.Activity, error)
	GetActivities(ctx context.Context, scope string, scopeId string, limit int) ([]models.Activity, error)

	CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error)
	GetNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, recipient string, notificationIds []string) error
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
