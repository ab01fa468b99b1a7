package service

import (
	"context"

	"github.com/teamloft/teamloft/rooms"
)

// RoomPresence lists the user ids with a live presence key for the
// room. Served from the redis mirror so it reflects every instance,
// not just this one.
func (s *Service) RoomPresence(ctx context.Context, roomType string, roomId string) ([]string, error) {
	if err := ValidateRoom(roomType, roomId); err != nil {
		return nil, err
	}
	key := rooms.Key{Type: rooms.RoomType(roomType), Id: roomId}
	return s.teamloftCache.GetRoomPresence(ctx, key.String())
}
