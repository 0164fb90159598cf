// Package repository contains the data access layer.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tandem/internal/models"
	"tandem/internal/observability"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a conditional playback state write loses the race.
var ErrVersionConflict = errors.New("playback state version conflict")

// ErrSlotTaken is returned when a room slot was filled by someone else first.
var ErrSlotTaken = errors.New("room slot already taken")

// Slot names a room occupant column.
type Slot string

const (
	SlotUser1 Slot = "user_1"
	SlotUser2 Slot = "user_2"
)

func (s Slot) other() Slot {
	if s == SlotUser1 {
		return SlotUser2
	}
	return SlotUser1
}

// RoomRepository defines the interface for room data operations
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, roomID string) (*models.Room, error)
	GetForUser(ctx context.Context, userID string) (*models.Room, error)
	ClaimSlot(ctx context.Context, roomID string, slot Slot, userID string) error
	ReleaseUser(ctx context.Context, roomID, userID string) error
	Delete(ctx context.Context, roomID string) error
	GetPlaybackState(ctx context.Context, roomID string) (*models.PlaybackSnapshot, error)
	UpdatePlaybackState(ctx context.Context, roomID string, state models.PlaybackState, expectedVersion *int64) (int64, error)
}

// roomRepository implements RoomRepository
type roomRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db, log: observability.NewRepoLogger("room")}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	defer observability.TrackQuery("create", "room")()

	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"room_id": room.RoomID})
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	defer observability.TrackQuery("read", "room")()

	var room models.Room
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) GetForUser(ctx context.Context, userID string) (*models.Room, error) {
	defer observability.TrackQuery("read", "room")()

	var room models.Room
	err := r.db.WithContext(ctx).
		Where("user_1 = ? OR user_2 = ?", userID, userID).
		Order("updated_at DESC").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ClaimSlot sets slot to userID only while it is still empty. Filled is recomputed
// in the same statement from both columns.
func (r *roomRepository) ClaimSlot(ctx context.Context, roomID string, slot Slot, userID string) error {
	defer observability.TrackQuery("update", "room")()

	res := r.db.WithContext(ctx).Model(&models.Room{}).
		Where(fmt.Sprintf("room_id = ? AND %s IS NULL", slot), roomID).
		Updates(map[string]interface{}{
			string(slot): userID,
			"filled":     gorm.Expr(fmt.Sprintf("%s IS NOT NULL", slot.other())),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "claim_slot")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOr(r.db.WithContext(ctx), roomID, ErrSlotTaken)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"room_id": roomID, "slot": string(slot)})
	return nil
}

// ReleaseUser clears whichever slot holds userID.
func (r *roomRepository) ReleaseUser(ctx context.Context, roomID, userID string) error {
	defer observability.TrackQuery("update", "room")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, slot := range []Slot{SlotUser1, SlotUser2} {
			err := tx.Model(&models.Room{}).
				Where(fmt.Sprintf("room_id = ? AND %s = ?", slot), roomID, userID).
				Updates(map[string]interface{}{
					string(slot): nil,
					"filled":     false,
					"updated_at": time.Now(),
				}).Error
			if err != nil {
				r.log.LogError(ctx, err, "release_user")
				return err
			}
		}
		return nil
	})
}

func (r *roomRepository) Delete(ctx context.Context, roomID string) error {
	defer observability.TrackQuery("delete", "room")()

	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.Room{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.log.LogDelete(ctx, map[string]interface{}{"room_id": roomID})
	return nil
}

func (r *roomRepository) GetPlaybackState(ctx context.Context, roomID string) (*models.PlaybackSnapshot, error) {
	defer observability.TrackQuery("read", "room")()

	var room models.Room
	err := r.db.WithContext(ctx).
		Select("room_id", "playback_state", "playback_version").
		Where("room_id = ?", roomID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &models.PlaybackSnapshot{
		RoomID:  room.RoomID,
		State:   room.State(),
		Version: room.PlaybackVersion,
	}, nil
}

// UpdatePlaybackState writes state and bumps the version. With expectedVersion set the
// write only applies if the stored version still matches.
func (r *roomRepository) UpdatePlaybackState(ctx context.Context, roomID string, state models.PlaybackState, expectedVersion *int64) (int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "UpdatePlaybackState", "room")
	defer span.End()
	defer observability.TrackQuery("update", "room")()

	var version int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Room{}).Where("room_id = ?", roomID)
		if expectedVersion != nil {
			q = q.Where("playback_version = ?", *expectedVersion)
		}
		res := q.Updates(map[string]interface{}{
			"playback_state":   datatypes.NewJSONType(state),
			"playback_version": gorm.Expr("playback_version + 1"),
			"updated_at":       time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOr(tx, roomID, ErrVersionConflict)
		}
		var versions []int64
		if err := tx.Model(&models.Room{}).Where("room_id = ?", roomID).Pluck("playback_version", &versions).Error; err != nil {
			return err
		}
		if len(versions) == 0 {
			return gorm.ErrRecordNotFound
		}
		version = versions[0]
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrVersionConflict) && !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "update_playback_state")
		}
		return 0, err
	}

	r.log.LogUpdate(ctx, map[string]interface{}{"room_id": roomID, "playback_version": version})
	return version, nil
}

// missingOr distinguishes "no such room" from a failed condition.
func missingOr(db *gorm.DB, roomID string, otherwise error) error {
	var count int64
	if err := db.Model(&models.Room{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return otherwise
}
