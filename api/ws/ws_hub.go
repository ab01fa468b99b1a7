package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/teamloft/teamloft/cache"
	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/rooms"
	"github.com/teamloft/teamloft/service"
)

const (
	maxConnectionsPerUser = 5

	// Mirror TTL for the redis presence keys other services read.
	presenceTTL = 60 * time.Second
)

// Hub owns every live connection of this instance: the session
// registry, per-user connection sets, user-channel subscriptions, and
// the room directory. All maps are guarded by mu; broadcasts snapshot
// under RLock and hand messages off through non-blocking enqueues, so a
// slow connection never stalls the rest of a room.
type Hub struct {
	mu sync.RWMutex

	teamloftCache cache.TeamloftCache
	directory     *rooms.Directory
	throttle      *service.ThrottleGate

	sessions      map[string]*Client
	userToClients map[string]map[*Client]struct{}
	userChannels  map[string]map[*Client]struct{}
}

func NewHub(teamloftCache cache.TeamloftCache, throttle *service.ThrottleGate) *Hub {
	return &Hub{
		teamloftCache: teamloftCache,
		directory:     rooms.NewDirectory(),
		throttle:      throttle,
		sessions:      make(map[string]*Client),
		userToClients: make(map[string]map[*Client]struct{}),
		userChannels:  make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.userToClients[client.user.Id]) >= maxConnectionsPerUser {
		return fmt.Errorf("user %s exceeds %d concurrent connections", client.user.Id, maxConnectionsPerUser)
	}

	h.sessions[client.connectionId] = client
	if h.userToClients[client.user.Id] == nil {
		h.userToClients[client.user.Id] = make(map[*Client]struct{})
	}
	h.userToClients[client.user.Id][client] = struct{}{}
	return nil
}

// Unregister tears down everything the connection owned: each room
// membership it still holds (announcing the departure), its user
// channel subscription, and its session entry. Safe to call more than
// once and after a newer connection reused the user's memberships.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if h.sessions[client.connectionId] != client {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, client.connectionId)

	delete(h.userToClients[client.user.Id], client)
	remaining := len(h.userToClients[client.user.Id])
	if remaining == 0 {
		delete(h.userToClients, client.user.Id)
	}

	if client.userChannel {
		h.removeUserChannelLocked(client)
	}

	joined := make([]rooms.Key, 0, len(client.joinedRooms))
	for key := range client.joinedRooms {
		joined = append(joined, key)
	}
	client.joinedRooms = make(map[rooms.Key]struct{})
	h.mu.Unlock()

	for _, key := range joined {
		if m, ok := h.directory.Leave(key, client.user.Id, client.connectionId); ok {
			h.announceLeave(key, m, client.connectionId)
		}
	}

	if remaining == 0 {
		h.throttle.Forget(client.user.Id)
	}

	client.closeSend()
}

// JoinRoom records a presence membership, announces the arrival to the
// room, and replies to the joiner with the current membership. Full
// presence semantics apply to every room type here; broadcast-only
// subscriptions go through Subscribe instead.
func (h *Hub) JoinRoom(client *Client, key rooms.Key, info models.UserInfo) {
	superseded := h.directory.Join(key, rooms.Member{
		UserId:       client.user.Id,
		ConnectionId: client.connectionId,
		User:         info,
	})

	h.mu.Lock()
	client.joinedRooms[key] = struct{}{}
	h.mu.Unlock()

	h.setPresence(key, client.user.Id, client.connectionId)

	// A superseded join is the same user from a newer connection; the
	// room already saw them arrive.
	if !superseded {
		h.BroadcastEvent(key, client.connectionId, "user-joined", userJoinedPayload{
			roomRef: roomRef{RoomId: key.Id, RoomType: string(key.Type)},
			UserId:  client.user.Id,
			User:    info,
		})
	}

	members := h.directory.Snapshot(key, client.user.Id)
	users := make([]roomMemberPayload, 0, len(members))
	for _, m := range members {
		users = append(users, roomMemberPayload{
			UserId:   m.UserId,
			User:     m.User,
			Cursor:   m.Cursor,
			Activity: m.Activity,
			Viewport: m.Viewport,
		})
	}
	h.sendToClient(client, "room-users", roomUsersPayload{
		roomRef: roomRef{RoomId: key.Id, RoomType: string(key.Type)},
		Users:   users,
	})
}

// Subscribe attaches the connection to the room's broadcast stream as a
// silent member. No presence is carried and no arrival or departure is
// ever announced: these memberships exist only so entity and activity
// events from other services reach the connection.
func (h *Hub) Subscribe(client *Client, key rooms.Key) {
	h.directory.Join(key, rooms.Member{
		UserId:       client.user.Id,
		ConnectionId: client.connectionId,
		Silent:       true,
	})

	h.mu.Lock()
	client.joinedRooms[key] = struct{}{}
	h.mu.Unlock()

	h.setPresence(key, client.user.Id, client.connectionId)
}

func (h *Hub) LeaveRoom(client *Client, key rooms.Key) {
	h.mu.Lock()
	delete(client.joinedRooms, key)
	h.mu.Unlock()

	if m, ok := h.directory.Leave(key, client.user.Id, client.connectionId); ok {
		h.announceLeave(key, m, client.connectionId)
	}
}

func (h *Hub) announceLeave(key rooms.Key, m rooms.Member, originConnectionId string) {
	h.clearPresence(key, m.UserId)

	if m.Silent {
		return
	}
	h.BroadcastEvent(key, originConnectionId, "user-left", userLeftPayload{
		roomRef: roomRef{RoomId: key.Id, RoomType: string(key.Type)},
		UserId:  m.UserId,
	})
}

func (h *Hub) UpdateCursor(client *Client, key rooms.Key, cursor models.Cursor) bool {
	return h.directory.SetCursor(key, client.user.Id, cursor)
}

func (h *Hub) UpdateActivity(client *Client, key rooms.Key, activity models.ActivityStatus) bool {
	if h.directory.SetActivity(key, client.user.Id, activity) {
		h.setPresence(key, client.user.Id, client.connectionId)
		return true
	}
	return false
}

func (h *Hub) UpdateViewport(client *Client, key rooms.Key, viewport models.Viewport) bool {
	if h.directory.SetViewport(key, client.user.Id, viewport) {
		h.setPresence(key, client.user.Id, client.connectionId)
		return true
	}
	return false
}

// Touch refreshes the membership's staleness clock without changing
// presence state.
func (h *Hub) Touch(key rooms.Key, userId string) {
	h.directory.Touch(key, userId)
}

func (h *Hub) JoinUserChannel(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userChannels[client.user.Id] == nil {
		h.userChannels[client.user.Id] = make(map[*Client]struct{})
	}
	h.userChannels[client.user.Id][client] = struct{}{}
	client.userChannel = true
}

func (h *Hub) LeaveUserChannel(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeUserChannelLocked(client)
}

// removeUserChannelLocked must be called with h.mu held.
func (h *Hub) removeUserChannelLocked(client *Client) {
	delete(h.userChannels[client.user.Id], client)
	if len(h.userChannels[client.user.Id]) == 0 {
		delete(h.userChannels, client.user.Id)
	}
	client.userChannel = false
}

// BroadcastEvent delivers an event to the connection owning each
// membership in the room, excluding the originating connection.
func (h *Hub) BroadcastEvent(key rooms.Key, originConnectionId string, event string, data any) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("failed to marshal %s event for room %s: %v", event, key, err)
		return
	}

	members := h.directory.Members(key)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range members {
		if m.ConnectionId == originConnectionId {
			continue
		}
		if client, ok := h.sessions[m.ConnectionId]; ok {
			client.enqueue(message)
		}
	}
}

// SendToUser delivers an event to every connection subscribed to the
// user's channel.
func (h *Hub) SendToUser(userId string, event string, data json.RawMessage) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("failed to marshal %s event for user %s: %v", event, userId, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userChannels[userId] {
		client.enqueue(message)
	}
}

func (h *Hub) sendToClient(client *Client, event string, data any) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("failed to marshal %s event for connection %s: %v", event, client.connectionId, err)
		return
	}
	client.enqueue(message)
}

// Sweep evicts room members whose connection stopped refreshing within
// olderThan, announcing each departure, and re-arms the redis presence
// mirror for everyone still live. Backstop for close events the
// transport never delivered.
func (h *Hub) Sweep(olderThan time.Duration) int {
	evicted := h.directory.SweepStale(time.Now().Add(-olderThan))

	total := 0
	for key, members := range evicted {
		for _, m := range members {
			total++
			h.mu.Lock()
			if client, ok := h.sessions[m.ConnectionId]; ok {
				delete(client.joinedRooms, key)
			}
			h.mu.Unlock()
			h.announceLeave(key, m, m.ConnectionId)
		}
	}

	for _, key := range h.directory.Keys() {
		for _, m := range h.directory.Members(key) {
			h.setPresence(key, m.UserId, m.ConnectionId)
		}
	}
	return total
}

// InitSubscriptions attaches the hub to the shared event buses. User
// events fan out to user channels; room events from other services
// (REST mutations, the activity batcher) fan out to room members.
func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.teamloftCache.Subscribe(shutdownCtx, cache.UserEventsChannel, func(message []byte) {
		var event models.UserEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("dropping malformed user event: %v", err)
			return
		}
		h.SendToUser(event.UserId, event.Event, event.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cache.UserEventsChannel, err)
	}

	err = h.teamloftCache.Subscribe(shutdownCtx, cache.RoomEventsChannel, func(message []byte) {
		var event models.RoomEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("dropping malformed room event: %v", err)
			return
		}
		roomType, roomId, ok := strings.Cut(event.Room, ":")
		if !ok || !rooms.ValidRoomType(roomType) {
			log.Printf("dropping room event with bad room key '%s'", event.Room)
			return
		}
		key := rooms.Key{Type: rooms.RoomType(roomType), Id: roomId}
		h.BroadcastEvent(key, event.Origin, event.Event, event.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cache.RoomEventsChannel, err)
	}

	return nil
}

func (h *Hub) setPresence(key rooms.Key, userId string, connectionId string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.teamloftCache.SetPresence(ctx, key.String(), userId, connectionId, presenceTTL); err != nil {
			log.Printf("failed to set presence for %s in %s: %v", userId, key, err)
		}
	}()
}

func (h *Hub) clearPresence(key rooms.Key, userId string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.teamloftCache.ClearPresence(ctx, key.String(), userId); err != nil {
			log.Printf("failed to clear presence for %s in %s: %v", userId, key, err)
		}
	}()
}
