package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/teamloft/teamloft/cache/mocks"
	"github.com/teamloft/teamloft/models"
	mqmocks "github.com/teamloft/teamloft/mq/mocks"
	"github.com/teamloft/teamloft/service"
	storemocks "github.com/teamloft/teamloft/store/mocks"
	"github.com/teamloft/teamloft/worker"
)

// Helper to setup the service with mocks
func setupService(t *testing.T) (*service.Service, *storemocks.MockStore, *cachemocks.MockCache, *mqmocks.MockMQ, *worker.ActivityBatcher) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	// Real batcher is used but never run; tests read its channel directly
	activityBatcher := worker.NewActivityBatcher(mockStore, mockCache, 1000)

	svc, err := service.NewService(mockStore, mockCache, mockMQ, activityBatcher, "secret")
	assert.NoError(t, err)

	return svc, mockStore, mockCache, mockMQ, activityBatcher
}

func expectActivity(t *testing.T, batcher *worker.ActivityBatcher, activityType string) models.Activity {
	select {
	case activity := <-batcher.WriteCh:
		assert.Equal(t, activityType, activity.Type)
		return activity
	case <-time.After(100 * time.Millisecond):
		assert.Fail(t, "timed out waiting for activity "+activityType)
		return models.Activity{}
	}
}

func expectNoActivity(t *testing.T, batcher *worker.ActivityBatcher) {
	select {
	case activity := <-batcher.WriteCh:
		assert.Fail(t, "unexpected activity "+activity.Type)
	default:
	}
}

func testWhiteboard() models.Whiteboard {
	return models.Whiteboard{
		Id:        "wb1",
		Name:      "Roadmap",
		Project:   "p1",
		Workspace: "ws1",
		Elements: []models.Element{
			{
				Id:              "e1",
				Type:            models.ElementSticky,
				X:               10,
				Y:               20,
				Text:            "hello",
				BackgroundColor: "#ffd700",
			},
		},
	}
}

func TestAddElement_Success(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(testWhiteboard(), nil)

	var saved models.Whiteboard
	mockStore.On("SaveWhiteboard", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Whiteboard)
	}).Return(nil)

	element, err := svc.AddElement(ctx, "user1", "wb1", models.Element{
		Id:   "e2",
		Type: models.ElementShape,
		X:    5,
	})

	assert.NoError(t, err)
	assert.Equal(t, "user1", element.CreatedBy)
	assert.False(t, element.CreatedAt.IsZero())

	assert.Len(t, saved.Elements, 2)
	assert.Equal(t, "e2", saved.Elements[1].Id)
	assert.Equal(t, "user1", saved.LastModifiedBy)

	activity := expectActivity(t, activityBatcher, "whiteboard.element.added")
	assert.Equal(t, "user1", activity.UserId)
	assert.Equal(t, "p1", activity.Project)
	assert.Equal(t, "wb1", activity.TargetId)
	assert.Equal(t, "e2", activity.Metadata["elementId"])
}

func TestAddElement_StoreFailureStillStampsElement(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(models.Whiteboard{}, errors.New("dynamo down"))

	element, err := svc.AddElement(ctx, "user1", "wb1", models.Element{
		Id:   "e2",
		Type: models.ElementShape,
	})

	// The caller broadcasts the stamped element even when persistence failed
	assert.Error(t, err)
	assert.Equal(t, "user1", element.CreatedBy)
	assert.False(t, element.CreatedAt.IsZero())

	mockStore.AssertNotCalled(t, "SaveWhiteboard", mock.Anything, mock.Anything)
	expectNoActivity(t, activityBatcher)
}

func TestUpdateElement_MergesPartialUpdates(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	whiteboard := testWhiteboard()
	whiteboard.Elements[0].CreatedBy = "author"
	mockStore.On("GetWhiteboard", ctx, "wb1").Return(whiteboard, nil)

	var saved models.Whiteboard
	mockStore.On("SaveWhiteboard", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Whiteboard)
	}).Return(nil)

	err := svc.UpdateElement(ctx, "user1", "wb1", "e1", json.RawMessage(`{"x":42,"id":"evil"}`))
	assert.NoError(t, err)

	merged := saved.Elements[0]
	assert.Equal(t, float64(42), merged.X)
	// Fields absent from the update keep their stored values
	assert.Equal(t, float64(20), merged.Y)
	assert.Equal(t, "hello", merged.Text)
	assert.Equal(t, "#ffd700", merged.BackgroundColor)
	// Identity and authorship cannot be rewritten by the update
	assert.Equal(t, "e1", merged.Id)
	assert.Equal(t, "author", merged.CreatedBy)
	assert.False(t, merged.UpdatedAt.IsZero())

	expectActivity(t, activityBatcher, "whiteboard.element.updated")
}

func TestUpdateElement_ThrottlesActivityLog(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(testWhiteboard(), nil)
	mockStore.On("SaveWhiteboard", ctx, mock.Anything).Return(nil)

	assert.NoError(t, svc.UpdateElement(ctx, "user1", "wb1", "e1", json.RawMessage(`{"x":1}`)))
	expectActivity(t, activityBatcher, "whiteboard.element.updated")

	// Second update inside the window persists but is not logged
	assert.NoError(t, svc.UpdateElement(ctx, "user1", "wb1", "e1", json.RawMessage(`{"x":2}`)))
	expectNoActivity(t, activityBatcher)

	mockStore.AssertNumberOfCalls(t, "SaveWhiteboard", 2)

	// A different user on the same whiteboard gets its own window
	assert.NoError(t, svc.UpdateElement(ctx, "user2", "wb1", "e1", json.RawMessage(`{"x":3}`)))
	expectActivity(t, activityBatcher, "whiteboard.element.updated")
}

func TestUpdateElement_MissingElementSkipsPersistence(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(testWhiteboard(), nil)

	err := svc.UpdateElement(ctx, "user1", "wb1", "gone", json.RawMessage(`{"x":1}`))
	assert.NoError(t, err)

	mockStore.AssertNotCalled(t, "SaveWhiteboard", mock.Anything, mock.Anything)
	expectNoActivity(t, activityBatcher)
}

func TestDeleteElement_Success(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(testWhiteboard(), nil)

	var saved models.Whiteboard
	mockStore.On("SaveWhiteboard", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Whiteboard)
	}).Return(nil)

	err := svc.DeleteElement(ctx, "user1", "wb1", "e1")
	assert.NoError(t, err)
	assert.Empty(t, saved.Elements)

	activity := expectActivity(t, activityBatcher, "whiteboard.element.deleted")
	assert.Equal(t, "e1", activity.Metadata["elementId"])
}

func TestDeleteElement_AlreadyGoneIsNoop(t *testing.T) {
	svc, mockStore, _, _, activityBatcher := setupService(t)
	ctx := context.Background()

	mockStore.On("GetWhiteboard", ctx, "wb1").Return(testWhiteboard(), nil)

	err := svc.DeleteElement(ctx, "user1", "wb1", "gone")
	assert.NoError(t, err)

	mockStore.AssertNotCalled(t, "SaveWhiteboard", mock.Anything, mock.Anything)
	expectNoActivity(t, activityBatcher)
}
