package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/mq"
)

// Notifier records a notification and delivers it to the recipient's
// live connections.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) (models.Notification, error)
}

// NotifyConsumer drains the notification queue. Other services in the
// platform (mentions, task assignment, invites) enqueue jobs here
// instead of talking to the coordinator directly.
type NotifyConsumer struct {
	notificationQueue mq.NotificationQueue
	notifier          Notifier
}

func NewNotifyConsumer(notificationQueue mq.NotificationQueue, notifier Notifier) *NotifyConsumer {
	return &NotifyConsumer{
		notificationQueue: notificationQueue,
		notifier:          notifier,
	}
}

func (c *NotifyConsumer) Run(shutdownCtx context.Context) {
	for {
		if shutdownCtx.Err() != nil {
			return
		}

		delivery, err := c.notificationQueue.Receive(shutdownCtx, 30)
		if err != nil {
			if shutdownCtx.Err() != nil {
				return
			}
			log.Printf("failed to receive notification job: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if delivery == nil {
			continue
		}

		var job mq.Job
		if err := json.Unmarshal([]byte(delivery.Body), &job); err != nil {
			log.Printf("dropping malformed notification job: %v", err)
			c.delete(delivery)
			continue
		}
		if job.Recipient == "" {
			log.Printf("dropping notification job without recipient")
			c.delete(delivery)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = c.notifier.Notify(ctx, models.Notification{
			Recipient: job.Recipient,
			Type:      job.Type,
			Message:   job.Message,
			Link:      job.Link,
			Data:      job.Data,
		})
		cancel()
		if err != nil {
			// Leave the job on the queue for redelivery.
			log.Printf("failed to process notification job for %s: %v", job.Recipient, err)
			continue
		}

		c.delete(delivery)
	}
}

func (c *NotifyConsumer) delete(delivery *mq.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.notificationQueue.Delete(ctx, delivery); err != nil {
		log.Printf("failed to delete notification job: %v", err)
	}
}
