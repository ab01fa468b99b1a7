package sqsmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/teamloft/teamloft/mq"
)

// SQSNotificationQueue backs mq.NotificationQueue with one SQS queue.
// Jobs travel as JSON bodies; the receipt handle of a received entry
// acknowledges it on Delete.
type SQSNotificationQueue struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSNotificationQueue(ctx context.Context, devMode bool, sqsEndpoint string, queueName string) (*SQSNotificationQueue, error) {
	client, err := newSQSClient(ctx, devMode, sqsEndpoint)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve SQS queue '%s': %w", queueName, err)
	}

	return &SQSNotificationQueue{
		client:   client,
		queueURL: aws.ToString(resp.QueueUrl),
	}, nil
}

func (q *SQSNotificationQueue) Enqueue(ctx context.Context, job mq.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	return err
}

func (q *SQSNotificationQueue) Receive(ctx context.Context, visibilityTimeout int32) (*mq.Delivery, error) {
	resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20, // long polling
		VisibilityTimeout:   visibilityTimeout,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Messages) == 0 {
		return nil, nil // no job this poll
	}

	msg := resp.Messages[0]
	return &mq.Delivery{
		ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		Body:          aws.ToString(msg.Body),
	}, nil
}

func (q *SQSNotificationQueue) Delete(ctx context.Context, delivery *mq.Delivery) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(delivery.ReceiptHandle),
	})
	return err
}
