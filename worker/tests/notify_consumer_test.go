package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/mq"
	mqmocks "github.com/teamloft/teamloft/mq/mocks"
	"github.com/teamloft/teamloft/worker"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, notification models.Notification) (models.Notification, error) {
	args := m.Called(ctx, notification)
	return args.Get(0).(models.Notification), args.Error(1)
}

func TestNotifyConsumer_ProcessesJob(t *testing.T) {
	mockMQ := new(mqmocks.MockMQ)
	notifier := new(mockNotifier)

	delivery := &mq.Delivery{
		ReceiptHandle: "receipt-1",
		Body:          `{"recipient":"u1","type":"mention","message":"Grace mentioned you"}`,
	}
	mockMQ.On("Receive", mock.Anything, int32(30)).Return(delivery, nil).Once()
	mockMQ.On("Receive", mock.Anything, int32(30)).Return(nil, nil)

	var notified models.Notification
	notifier.On("Notify", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		notified = args.Get(1).(models.Notification)
	}).Return(models.Notification{Id: "n1"}, nil)

	deleteDone := make(chan struct{})
	mockMQ.On("Delete", mock.Anything, delivery).Run(func(args mock.Arguments) {
		close(deleteDone)
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewNotifyConsumer(mockMQ, notifier).Run(ctx)

	select {
	case <-deleteDone:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for job delete")
	}

	assert.Equal(t, "u1", notified.Recipient)
	assert.Equal(t, "mention", notified.Type)
	assert.Equal(t, "Grace mentioned you", notified.Message)
}

func TestNotifyConsumer_DropsMalformedJob(t *testing.T) {
	mockMQ := new(mqmocks.MockMQ)
	notifier := new(mockNotifier)

	delivery := &mq.Delivery{ReceiptHandle: "receipt-1", Body: `{bad`}
	mockMQ.On("Receive", mock.Anything, int32(30)).Return(delivery, nil).Once()
	mockMQ.On("Receive", mock.Anything, int32(30)).Return(nil, nil)

	deleteDone := make(chan struct{})
	mockMQ.On("Delete", mock.Anything, delivery).Run(func(args mock.Arguments) {
		close(deleteDone)
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewNotifyConsumer(mockMQ, notifier).Run(ctx)

	select {
	case <-deleteDone:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for malformed job delete")
	}

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestNotifyConsumer_LeavesFailedJobForRedelivery(t *testing.T) {
	mockMQ := new(mqmocks.MockMQ)
	notifier := new(mockNotifier)

	delivery := &mq.Delivery{
		ReceiptHandle: "receipt-1",
		Body:          `{"recipient":"u1","type":"mention"}`,
	}
	mockMQ.On("Receive", mock.Anything, int32(30)).Return(delivery, nil).Once()

	received := make(chan struct{})
	mockMQ.On("Receive", mock.Anything, int32(30)).Run(func(args mock.Arguments) {
		select {
		case received <- struct{}{}:
		default:
		}
	}).Return(nil, nil)

	notifier.On("Notify", mock.Anything, mock.Anything).Return(models.Notification{}, assert.AnError)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewNotifyConsumer(mockMQ, notifier).Run(ctx)

	// Wait until the consumer moved past the failed job
	select {
	case <-received:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for next receive")
	}

	mockMQ.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
