package mq

import "context"

// Job is the notification work item other platform services (mention
// detection, task assignment, due-date scans) put on the queue.
// Recipient is the user id the notification is addressed to.
type Job struct {
	Recipient string         `json:"recipient"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Link      string         `json:"link,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Delivery is one received queue entry. Body stays raw so the consumer
// owns the malformed-payload policy; ReceiptHandle acknowledges the
// entry on Delete.
type Delivery struct {
	ReceiptHandle string
	Body          string
}

type NotificationQueue interface {
	Enqueue(ctx context.Context, job Job) error
	Receive(ctx context.Context, visibilityTimeout int32) (*Delivery, error)
	Delete(ctx context.Context, delivery *Delivery) error
}
