package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/teamloft/teamloft/mq"
)

type MockMQ struct {
	mock.Mock
}

func (m *MockMQ) Enqueue(ctx context.Context, job mq.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockMQ) Receive(ctx context.Context, visibilityTimeout int32) (*mq.Delivery, error) {
	args := m.Called(ctx, visibilityTimeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mq.Delivery), args.Error(1)
}

func (m *MockMQ) Delete(ctx context.Context, delivery *mq.Delivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}
