package models

import "encoding/json"

// UserEvent is the envelope published on the user-events bus. The hub
// delivers Data to every connection subscribed to the user's channel.
type UserEvent struct {
	UserId string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// RoomEvent is the envelope published on the room-events bus. Room is
// the "type:id" form of the room key. Origin, when set, is the
// connection id the event must not be delivered back to.
type RoomEvent struct {
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data"`
}
