package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/teamloft/teamloft/cache"
	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/mq"
)

// Notify records a notification for the recipient, bumps their unread
// counter, and publishes it on the user-events bus for live delivery.
// The stored record is the source of truth; recipients with no live
// connections pick it up on their next fetch.
func (s *Service) Notify(ctx context.Context, notification models.Notification) (models.Notification, error) {
	notificationId, err := uuid.NewV7()
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to generate notification id: %w", err)
	}
	notification.Id = notificationId.String()
	notification.Read = false
	notification.CreatedAt = time.Now()

	created, err := s.teamloftStore.CreateNotification(ctx, notification)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to store notification for %s: %w", notification.Recipient, err)
	}

	if _, err := s.teamloftCache.IncrementUnreadCount(ctx, created.Recipient); err != nil {
		log.Printf("failed to increment unread count for %s: %v", created.Recipient, err)
	}

	s.publishUserEvent(ctx, created.Recipient, "notification", created)
	return created, nil
}

// DeliverMessage pushes a direct-message payload to the recipient's
// live connections. The conversation service owns the durable record;
// this is delivery only.
func (s *Service) DeliverMessage(ctx context.Context, recipientId string, message json.RawMessage) {
	s.publishUserEvent(ctx, recipientId, "new-message", message)
}

// EnqueueNotification puts a notification job on the queue instead of
// processing it inline, so REST producers get the same retry path as
// every other service feeding the queue.
func (s *Service) EnqueueNotification(ctx context.Context, job mq.Job) error {
	return s.notificationQueue.Enqueue(ctx, job)
}

// Notifications returns the recipient's stored notifications along with
// their unread count.
func (s *Service) Notifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, int, error) {
	notifications, err := s.teamloftStore.GetNotifications(ctx, recipient, unreadOnly)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.teamloftCache.GetUnreadCount(ctx, recipient)
	if err != nil {
		log.Printf("failed to read unread count for %s: %v", recipient, err)
		unread = 0
	}
	return notifications, unread, nil
}

// MarkNotificationsRead marks the given notifications read and resets
// the unread counter.
func (s *Service) MarkNotificationsRead(ctx context.Context, recipient string, notificationIds []string) error {
	if err := s.teamloftStore.MarkNotificationsRead(ctx, recipient, notificationIds); err != nil {
		return err
	}
	if err := s.teamloftCache.ResetUnreadCount(ctx, recipient); err != nil {
		log.Printf("failed to reset unread count for %s: %v", recipient, err)
	}
	return nil
}

// Activities returns the persisted activity feed for a project or
// workspace.
func (s *Service) Activities(ctx context.Context, scope string, scopeId string, limit int) ([]models.Activity, error) {
	if scope != "project" && scope != "workspace" {
		return nil, fmt.Errorf("unknown activity scope '%s'", scope)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.teamloftStore.GetActivities(ctx, scope, scopeId, limit)
}

func (s *Service) publishUserEvent(ctx context.Context, userId string, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal %s event for user %s: %v", event, userId, err)
		return
	}
	envelope, err := json.Marshal(models.UserEvent{
		UserId: userId,
		Event:  event,
		Data:   data,
	})
	if err != nil {
		log.Printf("failed to marshal user event envelope for %s: %v", userId, err)
		return
	}
	if err := s.teamloftCache.Publish(ctx, cache.UserEventsChannel, envelope); err != nil {
		log.Printf("failed to publish %s event for user %s: %v", event, userId, err)
	}
}
