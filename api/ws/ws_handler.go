package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/rooms"
	"github.com/teamloft/teamloft/service"
)

const persistTimeout = 5 * time.Second

// Browsers cannot set Authorization on websocket handshakes, so the
// token rides in the subprotocol list: "access_token, <jwt>".
const tokenSubprotocol = "access_token"

type WsHandler struct {
	svc         *service.Service
	hub         *Hub
	upgrader    *websocket.Upgrader
	shutdownCtx context.Context
}

// NewWsHandler builds the websocket endpoint. Upgrades are refused
// unless the Origin header matches requiredOrigin; an empty
// requiredOrigin disables the check for local development.
func NewWsHandler(shutdownCtx context.Context, svc *service.Service, hub *Hub, requiredOrigin string) *WsHandler {
	return &WsHandler{
		svc: svc,
		hub: hub,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{tokenSubprotocol},
			CheckOrigin: func(r *http.Request) bool {
				if requiredOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == requiredOrigin
			},
		},
		shutdownCtx: shutdownCtx,
	}
}

// ServeWS authenticates the handshake, upgrades the connection, and
// starts its pumps. The connection id is minted here and identifies
// this socket for its entire lifetime.
func (h *WsHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := ""
	for _, proto := range websocket.Subprotocols(r) {
		if proto != tokenSubprotocol {
			token = proto
		}
	}
	if token == "" {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}

	user, err := h.svc.AuthenticateToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	connectionId, err := uuid.NewV4()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for user %s: %v", user.Id, err)
		return
	}

	client := NewClient(h.hub, conn, h, connectionId.String(), user)
	if err := h.hub.Register(client); err != nil {
		log.Printf("rejecting connection for user %s: %v", user.Id, err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"))
		conn.Close()
		return
	}

	log.Printf("user %s connected (connection %s)", user.Id, connectionId)

	go client.WritePump(h.shutdownCtx)
	go client.ReadPump()
}

// HandleWsMessage dispatches one inbound frame. Malformed frames and
// unknown events are logged and dropped; they never take the
// connection down.
func (h *WsHandler) HandleWsMessage(client *Client, message []byte) {
	var request wsRequest
	if err := json.Unmarshal(message, &request); err != nil {
		log.Printf("dropping malformed frame from connection %s: %v", client.connectionId, err)
		return
	}

	switch request.Type {
	case "join-room":
		h.handleJoinRoom(client, request.Data)
	case "leave-room":
		h.handleLeaveRoom(client, request.Data)
	case "cursor-move":
		h.handleCursorMove(client, request.Data)
	case "activity-update":
		h.handleActivityUpdate(client, request.Data)
	case "viewport-update":
		h.handleViewportUpdate(client, request.Data)
	case "whiteboard-selection":
		h.handleSelection(client, request.Data)
	case "whiteboard-element-add":
		h.handleElementAdd(client, request.Data)
	case "whiteboard-element-update":
		h.handleElementUpdate(client, request.Data)
	case "whiteboard-element-delete":
		h.handleElementDelete(client, request.Data)
	case "join-user-room":
		h.hub.JoinUserChannel(client)
	case "leave-user-room":
		h.hub.LeaveUserChannel(client)
	case "join-project":
		h.handleThinJoin(client, rooms.RoomProject, request.Data)
	case "leave-project":
		h.handleThinLeave(client, rooms.RoomProject, request.Data)
	case "join-workspace":
		h.handleThinJoin(client, rooms.RoomWorkspace, request.Data)
	case "leave-workspace":
		h.handleThinLeave(client, rooms.RoomWorkspace, request.Data)
	default:
		log.Printf("unknown event '%s' from connection %s", request.Type, client.connectionId)
	}
}

func (h *WsHandler) handleJoinRoom(client *Client, data json.RawMessage) {
	var request joinRoomRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed join-room from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateRoom(request.RoomType, request.RoomId); err != nil {
		log.Printf("dropping join-room from connection %s: %v", client.connectionId, err)
		return
	}

	// The identity in presence events is always the authenticated one;
	// the client only supplies presentation fields.
	info := request.User
	if info.Name == "" && info.Avatar == "" {
		info = service.PresenceInfo(client.user)
	}
	info.Id = client.user.Id

	key := rooms.Key{Type: rooms.RoomType(request.RoomType), Id: request.RoomId}
	h.hub.JoinRoom(client, key, info)
}

func (h *WsHandler) handleLeaveRoom(client *Client, data json.RawMessage) {
	var request roomRef
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed leave-room from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateRoom(request.RoomType, request.RoomId); err != nil {
		log.Printf("dropping leave-room from connection %s: %v", client.connectionId, err)
		return
	}

	h.hub.LeaveRoom(client, rooms.Key{Type: rooms.RoomType(request.RoomType), Id: request.RoomId})
}

// Cursor updates for rooms the sender never joined are tolerated: the
// position is not recorded but the broadcast still goes out, matching
// clients that start streaming before their join settles.
func (h *WsHandler) handleCursorMove(client *Client, data json.RawMessage) {
	var request cursorMoveRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed cursor-move from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateRoom(request.RoomType, request.RoomId); err != nil {
		log.Printf("dropping cursor-move from connection %s: %v", client.connectionId, err)
		return
	}

	key := rooms.Key{Type: rooms.RoomType(request.RoomType), Id: request.RoomId}
	h.hub.UpdateCursor(client, key, request.Cursor)
	h.hub.BroadcastEvent(key, client.connectionId, "cursor-update", cursorUpdatePayload{
		roomRef: request.roomRef,
		UserId:  client.user.Id,
		Cursor:  request.Cursor,
	})
}

func (h *WsHandler) handleActivityUpdate(client *Client, data json.RawMessage) {
	var request activityUpdateRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed activity-update from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateRoom(request.RoomType, request.RoomId); err != nil {
		log.Printf("dropping activity-update from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateActivityStatus(request.Activity); err != nil {
		log.Printf("dropping activity-update from connection %s: %v", client.connectionId, err)
		return
	}

	key := rooms.Key{Type: rooms.RoomType(request.RoomType), Id: request.RoomId}
	h.hub.UpdateActivity(client, key, models.ActivityStatus(request.Activity))
	h.hub.BroadcastEvent(key, client.connectionId, "user-activity", userActivityPayload{
		roomRef:   request.roomRef,
		UserId:    client.user.Id,
		Activity:  models.ActivityStatus(request.Activity),
		Timestamp: time.Now(),
	})
}

func (h *WsHandler) handleViewportUpdate(client *Client, data json.RawMessage) {
	var request viewportUpdateRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed viewport-update from connection %s: %v", client.connectionId, err)
		return
	}
	if err := service.ValidateRoom(request.RoomType, request.RoomId); err != nil {
		log.Printf("dropping viewport-update from connection %s: %v", client.connectionId, err)
		return
	}

	key := rooms.Key{Type: rooms.RoomType(request.RoomType), Id: request.RoomId}
	h.hub.UpdateViewport(client, key, request.Viewport)
	h.hub.BroadcastEvent(key, client.connectionId, "viewport-changed", viewportChangedPayload{
		roomRef:  request.roomRef,
		UserId:   client.user.Id,
		Viewport: request.Viewport,
	})
}

func (h *WsHandler) handleSelection(client *Client, data json.RawMessage) {
	var request selectionRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed whiteboard-selection from connection %s: %v", client.connectionId, err)
		return
	}
	if request.WhiteboardId == "" {
		return
	}
	if err := service.ValidateSelection(request.ElementIds); err != nil {
		log.Printf("dropping whiteboard-selection from connection %s: %v", client.connectionId, err)
		return
	}

	key := rooms.WhiteboardKey(request.WhiteboardId)
	h.hub.Touch(key, client.user.Id)
	h.hub.BroadcastEvent(key, client.connectionId, "whiteboard-user-selection", selectionPayload{
		WhiteboardId: request.WhiteboardId,
		UserId:       client.user.Id,
		ElementIds:   request.ElementIds,
	})
}

func (h *WsHandler) handleElementAdd(client *Client, data json.RawMessage) {
	var request elementAddRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed whiteboard-element-add from connection %s: %v", client.connectionId, err)
		return
	}
	if request.WhiteboardId == "" {
		return
	}
	if err := service.ValidateElement(request.Element); err != nil {
		log.Printf("dropping whiteboard-element-add from connection %s: %v", client.connectionId, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	// Persistence failures must not stall collaboration: the stamped
	// element is broadcast either way and the error is only logged.
	element, err := h.svc.AddElement(ctx, client.user.Id, request.WhiteboardId, request.Element)
	if err != nil {
		log.Printf("element add on whiteboard %s: %v", request.WhiteboardId, err)
	}

	key := rooms.WhiteboardKey(request.WhiteboardId)
	h.hub.Touch(key, client.user.Id)
	h.hub.BroadcastEvent(key, client.connectionId, "whiteboard-element-added", elementAddedPayload{
		WhiteboardId: request.WhiteboardId,
		Element:      element,
		AddedBy:      client.user.Id,
	})
}

func (h *WsHandler) handleElementUpdate(client *Client, data json.RawMessage) {
	var request elementUpdateRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed whiteboard-element-update from connection %s: %v", client.connectionId, err)
		return
	}
	if request.WhiteboardId == "" || request.ElementId == "" || len(request.Updates) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.svc.UpdateElement(ctx, client.user.Id, request.WhiteboardId, request.ElementId, request.Updates); err != nil {
		log.Printf("element update on whiteboard %s: %v", request.WhiteboardId, err)
	}

	key := rooms.WhiteboardKey(request.WhiteboardId)
	h.hub.Touch(key, client.user.Id)
	h.hub.BroadcastEvent(key, client.connectionId, "whiteboard-element-updated", elementUpdatedPayload{
		WhiteboardId: request.WhiteboardId,
		ElementId:    request.ElementId,
		Updates:      request.Updates,
		UpdatedBy:    client.user.Id,
	})
}

func (h *WsHandler) handleElementDelete(client *Client, data json.RawMessage) {
	var request elementDeleteRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("dropping malformed whiteboard-element-delete from connection %s: %v", client.connectionId, err)
		return
	}
	if request.WhiteboardId == "" || request.ElementId == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.svc.DeleteElement(ctx, client.user.Id, request.WhiteboardId, request.ElementId); err != nil {
		log.Printf("element delete on whiteboard %s: %v", request.WhiteboardId, err)
	}

	key := rooms.WhiteboardKey(request.WhiteboardId)
	h.hub.Touch(key, client.user.Id)
	h.hub.BroadcastEvent(key, client.connectionId, "whiteboard-element-deleted", elementDeletedPayload{
		WhiteboardId: request.WhiteboardId,
		ElementId:    request.ElementId,
		DeletedBy:    client.user.Id,
	})
}

// Thin rooms carry no presence; joining one only subscribes the
// connection to the room's event stream (activity updates, entity
// changes published by the REST services).
func (h *WsHandler) handleThinJoin(client *Client, roomType rooms.RoomType, data json.RawMessage) {
	roomId, ok := decodeRoomId(data)
	if !ok {
		log.Printf("dropping %s join with bad room id from connection %s", roomType, client.connectionId)
		return
	}
	h.hub.Subscribe(client, rooms.Key{Type: roomType, Id: roomId})
}

func (h *WsHandler) handleThinLeave(client *Client, roomType rooms.RoomType, data json.RawMessage) {
	roomId, ok := decodeRoomId(data)
	if !ok {
		log.Printf("dropping %s leave with bad room id from connection %s", roomType, client.connectionId)
		return
	}
	h.hub.LeaveRoom(client, rooms.Key{Type: roomType, Id: roomId})
}

func decodeRoomId(data json.RawMessage) (string, bool) {
	var roomId string
	if err := json.Unmarshal(data, &roomId); err != nil || roomId == "" {
		return "", false
	}
	return roomId, true
}
