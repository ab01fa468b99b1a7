package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/teamloft/teamloft/cache"
	cachemocks "github.com/teamloft/teamloft/cache/mocks"
	"github.com/teamloft/teamloft/models"
	storemocks "github.com/teamloft/teamloft/store/mocks"
	"github.com/teamloft/teamloft/worker"
)

func setupBatcher(tickerMilliseconds int) (*worker.ActivityBatcher, *storemocks.MockStore, *cachemocks.MockCache, chan []byte) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)

	published := make(chan []byte, 32)
	mockCache.On("Publish", mock.Anything, cache.RoomEventsChannel, mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(2).([]byte)
	}).Return(nil)

	return worker.NewActivityBatcher(mockStore, mockCache, tickerMilliseconds), mockStore, mockCache, published
}

func waitForEvent(t *testing.T, published chan []byte) models.RoomEvent {
	select {
	case message := <-published:
		var event models.RoomEvent
		assert.NoError(t, json.Unmarshal(message, &event))
		return event
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for room event")
		return models.RoomEvent{}
	}
}

func TestActivityBatcher_FlushesOnTicker(t *testing.T) {
	batcher, mockStore, _, published := setupBatcher(20)

	var written []models.Activity
	writeDone := make(chan struct{})
	mockStore.On("WriteActivityBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(1).([]models.Activity)
		close(writeDone)
	}).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go batcher.Run(ctx)

	batcher.WriteCh <- models.Activity{
		Id:      "a1",
		Type:    "whiteboard.element.added",
		UserId:  "u1",
		Project: "p1",
	}

	select {
	case <-writeDone:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for batch write")
	}
	assert.Len(t, written, 1)

	event := waitForEvent(t, published)
	assert.Equal(t, "project:p1", event.Room)
	assert.Equal(t, "activity", event.Event)

	var activity models.Activity
	assert.NoError(t, json.Unmarshal(event.Data, &activity))
	assert.Equal(t, "a1", activity.Id)
}

func TestActivityBatcher_FlushesFullBatch(t *testing.T) {
	batcher, mockStore, _, _ := setupBatcher(60000)

	var written []models.Activity
	writeDone := make(chan struct{})
	mockStore.On("WriteActivityBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(1).([]models.Activity)
		close(writeDone)
	}).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go batcher.Run(ctx)

	for i := 0; i < 25; i++ {
		batcher.WriteCh <- models.Activity{Id: "a", Workspace: "ws1"}
	}

	select {
	case <-writeDone:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for full batch write")
	}
	assert.Len(t, written, 25)
}

func TestActivityBatcher_FlushesOnShutdown(t *testing.T) {
	batcher, mockStore, _, _ := setupBatcher(60000)

	writeDone := make(chan struct{})
	mockStore.On("WriteActivityBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(writeDone)
	}).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	go batcher.Run(ctx)

	batcher.WriteCh <- models.Activity{Id: "a1", Project: "p1"}
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-writeDone:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for shutdown flush")
	}
}

func TestActivityBatcher_SkipsUnprocessedInPublish(t *testing.T) {
	batcher, mockStore, _, published := setupBatcher(20)

	unprocessed := []models.Activity{{Id: "a2", Project: "p1"}}
	mockStore.On("WriteActivityBatch", mock.Anything, mock.Anything).Return(unprocessed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go batcher.Run(ctx)

	batcher.WriteCh <- models.Activity{Id: "a1", Project: "p1"}
	batcher.WriteCh <- models.Activity{Id: "a2", Project: "p1"}

	event := waitForEvent(t, published)
	var activity models.Activity
	assert.NoError(t, json.Unmarshal(event.Data, &activity))
	assert.Equal(t, "a1", activity.Id)

	select {
	case <-published:
		assert.Fail(t, "unprocessed activity must not be published")
	case <-time.After(100 * time.Millisecond):
	}
}
