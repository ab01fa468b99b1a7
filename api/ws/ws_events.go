package ws

import (
	"encoding/json"
	"time"

	"github.com/teamloft/teamloft/models"
)

// Every frame on the wire is a typed envelope. Inbound Data stays raw
// until the event-specific handler decodes it.
type wsRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsResponse struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func marshalEvent(event string, data any) ([]byte, error) {
	return json.Marshal(wsResponse{Type: event, Data: data})
}

// roomRef addresses an event to a room; embedded in every room-scoped
// payload so clients can route frames arriving on the shared socket.
type roomRef struct {
	RoomId   string `json:"roomId"`
	RoomType string `json:"roomType"`
}

type joinRoomRequest struct {
	roomRef
	User models.UserInfo `json:"user"`
}

type cursorMoveRequest struct {
	roomRef
	Cursor models.Cursor `json:"cursor"`
}

type activityUpdateRequest struct {
	roomRef
	Activity string `json:"activity"`
}

type viewportUpdateRequest struct {
	roomRef
	Viewport models.Viewport `json:"viewport"`
}

type selectionRequest struct {
	WhiteboardId string   `json:"whiteboardId"`
	ElementIds   []string `json:"elementIds"`
}

type elementAddRequest struct {
	WhiteboardId string         `json:"whiteboardId"`
	Element      models.Element `json:"element"`
}

type elementUpdateRequest struct {
	WhiteboardId string          `json:"whiteboardId"`
	ElementId    string          `json:"elementId"`
	Updates      json.RawMessage `json:"updates"`
}

type elementDeleteRequest struct {
	WhiteboardId string `json:"whiteboardId"`
	ElementId    string `json:"elementId"`
}

type userJoinedPayload struct {
	roomRef
	UserId string          `json:"userId"`
	User   models.UserInfo `json:"user"`
}

type userLeftPayload struct {
	roomRef
	UserId string `json:"userId"`
}

type roomMemberPayload struct {
	UserId   string                `json:"userId"`
	User     models.UserInfo       `json:"user"`
	Cursor   models.Cursor         `json:"cursor"`
	Activity models.ActivityStatus `json:"activity"`
	Viewport models.Viewport       `json:"viewport"`
}

type roomUsersPayload struct {
	roomRef
	Users []roomMemberPayload `json:"users"`
}

type cursorUpdatePayload struct {
	roomRef
	UserId string        `json:"userId"`
	Cursor models.Cursor `json:"cursor"`
}

type userActivityPayload struct {
	roomRef
	UserId    string                `json:"userId"`
	Activity  models.ActivityStatus `json:"activity"`
	Timestamp time.Time             `json:"timestamp"`
}

type viewportChangedPayload struct {
	roomRef
	UserId   string          `json:"userId"`
	Viewport models.Viewport `json:"viewport"`
}

type selectionPayload struct {
	WhiteboardId string   `json:"whiteboardId"`
	UserId       string   `json:"userId"`
	ElementIds   []string `json:"elementIds"`
}

type elementAddedPayload struct {
	WhiteboardId string         `json:"whiteboardId"`
	Element      models.Element `json:"element"`
	AddedBy      string         `json:"addedBy"`
}

type elementUpdatedPayload struct {
	WhiteboardId string          `json:"whiteboardId"`
	ElementId    string          `json:"elementId"`
	Updates      json.RawMessage `json:"updates"`
	UpdatedBy    string          `json:"updatedBy"`
}

type elementDeletedPayload struct {
	WhiteboardId string `json:"whiteboardId"`
	ElementId    string `json:"elementId"`
	DeletedBy    string `json:"deletedBy"`
}
