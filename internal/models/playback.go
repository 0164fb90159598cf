package models

import "time"

// PlaybackState is the shared playback snapshot of a room, stored as JSON on the room row.
type PlaybackState struct {
	IsPlaying          bool       `json:"is_playing"`
	CurrentTrackURI    *string    `json:"current_track_uri"`
	ProgressMs         int64      `json:"progress_ms"`
	ControlledByUserID *string    `json:"controlled_by_user_id"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// IdlePlaybackState is the safe default served when no state is known.
func IdlePlaybackState() PlaybackState {
	return PlaybackState{}
}

// PlaybackSnapshot is a playback state together with the room version it was read at.
type PlaybackSnapshot struct {
	RoomID  string        `json:"room_id"`
	State   PlaybackState `json:"playback_state"`
	Version int64         `json:"version"`
}

// PlaybackUpdateRequest is the body of PUT /rooms/{room_id}/playback. Version, when
// present, must match the room's current playback version.
type PlaybackUpdateRequest struct {
	PlaybackState PlaybackState `json:"playback_state"`
	Version       *int64        `json:"version,omitempty"`
}

// PlaybackCommand is one entry of a room's append-only playback command log.
type PlaybackCommand struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RoomID            string    `gorm:"size:64;not null;index:idx_playback_commands_room_created,priority:1" json:"room_id"`
	Command           string    `gorm:"size:16" json:"command,omitempty"`
	Action            string    `gorm:"size:32" json:"action,omitempty"`
	TrackURI          *string   `gorm:"size:255" json:"track_uri,omitempty"`
	PositionMs        *int64    `json:"position_ms,omitempty"`
	Volume            *int      `json:"volume,omitempty"`
	RequestedAt       time.Time `gorm:"not null" json:"requested_at"`
	RequestedByUserID *string   `gorm:"size:128" json:"requested_by_user_id,omitempty"`
	CreatedAt         time.Time `gorm:"index:idx_playback_commands_room_created,priority:2,sort:desc" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PlaybackCommand) TableName() string {
	return "playback_commands"
}
