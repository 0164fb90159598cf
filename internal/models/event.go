package models

import "encoding/json"

// Room event types pushed to devices.
const (
	EventPlaybackCommand = "playback_command"
	EventPlaybackState   = "playback_state"
	EventRoom            = "room"
	EventRoomMedia       = "room_media"
	EventPresence        = "presence"
	EventConnected       = "connected"
)

// RoomEvent is the envelope fanned out to every device subscribed to a room.
type RoomEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresencePayload announces a member's devices coming online or going offline.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// NewRoomEvent marshals payload into an event envelope.
func NewRoomEvent(eventType, roomID string, payload any) (RoomEvent, error) {
	ev := RoomEvent{Type: eventType, RoomID: roomID}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return RoomEvent{}, err
	}
	ev.Payload = raw
	return ev, nil
}
