// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Room is the pairing unit linking at most two users and holding shared playback state.
type Room struct {
	RoomID          string                            `gorm:"column:room_id;primaryKey;size:64" json:"room_id"`
	User1           *string                           `gorm:"column:user_1;size:128;index" json:"user_1"`
	User2           *string                           `gorm:"column:user_2;size:128;index" json:"user_2"`
	Filled          bool                              `gorm:"not null;default:false" json:"filled"`
	PlaybackState   datatypes.JSONType[PlaybackState] `json:"playback_state"`
	PlaybackVersion int64                             `gorm:"not null;default:0" json:"playback_version"`
	CreatedAt       time.Time                         `json:"created_at"`
	UpdatedAt       time.Time                         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Room) TableName() string {
	return "room"
}

// BeforeCreate assigns a time-ordered id and keeps the derived fields consistent.
func (r *Room) BeforeCreate(_ *gorm.DB) error {
	if r.RoomID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.RoomID = id.String()
	}
	r.RecomputeFilled()
	return nil
}

// RecomputeFilled derives Filled from both slots.
func (r *Room) RecomputeFilled() {
	r.Filled = r.User1 != nil && r.User2 != nil
}

// Occupants returns the set user ids in slot order.
func (r *Room) Occupants() []string {
	out := make([]string, 0, 2)
	if r.User1 != nil {
		out = append(out, *r.User1)
	}
	if r.User2 != nil {
		out = append(out, *r.User2)
	}
	return out
}

// HasMember reports whether userID occupies either slot.
func (r *Room) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	return (r.User1 != nil && *r.User1 == userID) || (r.User2 != nil && *r.User2 == userID)
}

// Partner returns the other occupant, if any.
func (r *Room) Partner(userID string) (string, bool) {
	switch {
	case r.User1 != nil && *r.User1 == userID && r.User2 != nil:
		return *r.User2, true
	case r.User2 != nil && *r.User2 == userID && r.User1 != nil:
		return *r.User1, true
	}
	return "", false
}

// IsEmpty reports whether both slots are vacant.
func (r *Room) IsEmpty() bool {
	return r.User1 == nil && r.User2 == nil
}

// State returns the stored playback state.
func (r *Room) State() PlaybackState {
	return r.PlaybackState.Data()
}
