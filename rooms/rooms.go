package rooms

import (
	"sync"
	"time"

	"github.com/teamloft/teamloft/models"
)

type RoomType string

const (
	RoomProject    RoomType = "project"
	RoomWorkspace  RoomType = "workspace"
	RoomWhiteboard RoomType = "whiteboard"
	RoomPage       RoomType = "page"
)

func ValidRoomType(s string) bool {
	switch RoomType(s) {
	case RoomProject, RoomWorkspace, RoomWhiteboard, RoomPage:
		return true
	}
	return false
}

// Key identifies a broadcast room. Using a struct key instead of the
// "type:id" string keeps the directory's key space type-checked.
type Key struct {
	Type RoomType
	Id   string
}

func (k Key) String() string {
	return string(k.Type) + ":" + k.Id
}

func WhiteboardKey(whiteboardId string) Key {
	return Key{Type: RoomWhiteboard, Id: whiteboardId}
}

// Member is the ephemeral presence state of one user in one room. A
// silent member only subscribes to the room's broadcast stream: it has
// no presentation state, is left out of room-users snapshots, and its
// arrival and departure are never announced.
type Member struct {
	UserId       string
	ConnectionId string
	User         models.UserInfo
	Cursor       models.Cursor
	Activity     models.ActivityStatus
	Viewport     models.Viewport
	Silent       bool
	LastSeenAt   time.Time
}

// Directory is the authoritative in-memory record of who is present in
// which room. Membership is keyed by (room, user): a user joining the
// same room from a second connection supersedes the first membership,
// and removal is honored only for the connection that currently owns
// the membership, so a stale tab's disconnect cannot evict a live one.
type Directory struct {
	mu    sync.RWMutex
	rooms map[Key]map[string]*Member
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[Key]map[string]*Member),
	}
}

// Join adds or supersedes the membership for (key, m.UserId) and reports
// whether an existing membership was superseded.
func (d *Directory) Join(key Key, m Member) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[key]
	if !ok {
		members = make(map[string]*Member)
		d.rooms[key] = members
	}

	_, superseded := members[m.UserId]

	if m.Activity == "" {
		m.Activity = models.ActivityIdle
	}
	if m.Viewport.Zoom == 0 {
		m.Viewport.Zoom = 1
	}
	m.LastSeenAt = time.Now()
	members[m.UserId] = &m

	return superseded
}

// Leave removes the membership for (key, userId) if connectionId still
// owns it. An empty connectionId forces removal regardless of owner
// (used by the stale sweep). Returns the removed membership so callers
// can tell whether its departure needs announcing.
func (d *Directory) Leave(key Key, userId string, connectionId string) (Member, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[key]
	if !ok {
		return Member{}, false
	}
	m, ok := members[userId]
	if !ok {
		return Member{}, false
	}
	if connectionId != "" && m.ConnectionId != connectionId {
		return Member{}, false
	}

	removed := *m
	delete(members, userId)
	if len(members) == 0 {
		delete(d.rooms, key)
	}
	return removed, true
}

func (d *Directory) SetCursor(key Key, userId string, cursor models.Cursor) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m := d.member(key, userId); m != nil {
		m.Cursor = cursor
		m.LastSeenAt = time.Now()
		return true
	}
	return false
}

func (d *Directory) SetActivity(key Key, userId string, activity models.ActivityStatus) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m := d.member(key, userId); m != nil {
		m.Activity = activity
		m.LastSeenAt = time.Now()
		return true
	}
	return false
}

func (d *Directory) SetViewport(key Key, userId string, viewport models.Viewport) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m := d.member(key, userId); m != nil {
		m.Viewport = viewport
		m.LastSeenAt = time.Now()
		return true
	}
	return false
}

// Touch refreshes the membership's staleness clock.
func (d *Directory) Touch(key Key, userId string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m := d.member(key, userId); m != nil {
		m.LastSeenAt = time.Now()
	}
}

// Members returns a copy of the room's membership, safe to iterate while
// other connections mutate the room.
func (d *Directory) Members(key Key) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[key]
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, *m)
	}
	return out
}

// Snapshot returns the room's presence membership excluding one user,
// for the room-users reply sent to a joining connection. Silent
// members are not presence and stay out of the snapshot.
func (d *Directory) Snapshot(key Key, excludeUserId string) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[key]
	out := make([]Member, 0, len(members))
	for userId, m := range members {
		if userId == excludeUserId || m.Silent {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// Keys returns every room currently holding members.
func (d *Directory) Keys() []Key {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Key, 0, len(d.rooms))
	for key := range d.rooms {
		out = append(out, key)
	}
	return out
}

func (d *Directory) MemberCount(key Key) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[key])
}

// SweepStale removes every membership not refreshed since cutoff and
// returns the evicted members per room. This is the backstop for
// disconnect events lost by the transport.
func (d *Directory) SweepStale(cutoff time.Time) map[Key][]Member {
	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := make(map[Key][]Member)
	for key, members := range d.rooms {
		for userId, m := range members {
			if m.LastSeenAt.Before(cutoff) {
				evicted[key] = append(evicted[key], *m)
				delete(members, userId)
			}
		}
		if len(members) == 0 {
			delete(d.rooms, key)
		}
	}
	return evicted
}

// member must be called with d.mu held.
func (d *Directory) member(key Key, userId string) *Member {
	if members, ok := d.rooms[key]; ok {
		return members[userId]
	}
	return nil
}
