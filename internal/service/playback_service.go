package service

import (
	"context"
	"errors"
	"time"

	"tandem/internal/cache"
	"tandem/internal/database"
	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/playback"
	"tandem/internal/repository"

	"gorm.io/gorm"
)

// UpdatePlaybackInput is a full replacement of a room's playback state.
// ExpectedVersion, when set, makes the write conditional.
type UpdatePlaybackInput struct {
	State           models.PlaybackState
	ExpectedVersion *int64
}

// PlaybackService reads and writes the shared playback state of a room.
type PlaybackService struct {
	roomRepo  repository.RoomRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewPlaybackService returns a new PlaybackService. publisher may be nil.
func NewPlaybackService(roomRepo repository.RoomRepository, publisher EventPublisher) *PlaybackService {
	return &PlaybackService{roomRepo: roomRepo, publisher: publisher, now: time.Now}
}

// Get returns the room's playback snapshot. When the state cannot be read because the
// schema lacks it, the idle default is served instead of an error.
func (s *PlaybackService) Get(ctx context.Context, roomID, callerID string) (*models.PlaybackSnapshot, error) {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, callerID); err != nil {
		return nil, err
	}

	var snap models.PlaybackSnapshot
	err := cache.Aside(ctx, cache.PlaybackKey(roomID), &snap, cache.PlaybackTTL, func() error {
		got, err := s.roomRepo.GetPlaybackState(ctx, roomID)
		if err != nil {
			return err
		}
		snap = *got
		return nil
	})
	switch {
	case err == nil:
		return &snap, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, models.NewNotFoundError("Room", roomID)
	case database.IsMissingRelation(err):
		observability.ReportSwallowed(ctx, "read_playback_state", err, map[string]interface{}{"room_id": roomID})
		return &models.PlaybackSnapshot{RoomID: roomID, State: models.IdlePlaybackState()}, nil
	default:
		return nil, models.NewInternalError(err)
	}
}

// Update replaces the room's playback state and bumps its version.
func (s *PlaybackService) Update(ctx context.Context, roomID, callerID string, in UpdatePlaybackInput) (*models.PlaybackSnapshot, error) {
	span, ctx := observability.NewSpan(ctx, "PlaybackService.Update")
	defer span.End()

	room, err := loadMemberRoom(ctx, s.roomRepo, roomID, callerID)
	if err != nil {
		return nil, err
	}

	state := in.State
	if err := playback.ValidateState(room, state); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	state.UpdatedAt = &now

	version, err := s.roomRepo.UpdatePlaybackState(ctx, roomID, state, in.ExpectedVersion)
	if err != nil {
		span.SetError(err)
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			observability.PlaybackStateConflicts.Inc()
			return nil, models.NewConflictError("Playback state changed since it was read")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, models.NewNotFoundError("Room", roomID)
		default:
			return nil, models.NewInternalError(err)
		}
	}
	cache.InvalidatePlayback(ctx, roomID)

	snap := &models.PlaybackSnapshot{RoomID: roomID, State: state, Version: version}
	publish(ctx, s.publisher, models.EventPlaybackState, roomID, snap)
	return snap, nil
}
