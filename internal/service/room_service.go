package service

import (
	"context"
	"errors"
	"time"

	"tandem/internal/cache"
	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/playback"
	"tandem/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoomService manages the pairing lifecycle of two-person rooms.
type RoomService struct {
	roomRepo  repository.RoomRepository
	userRepo  repository.UserRepository
	mediaRepo repository.MediaRepository
	publisher EventPublisher
}

// NewRoomService returns a new RoomService. publisher may be nil.
func NewRoomService(
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	mediaRepo repository.MediaRepository,
	publisher EventPublisher,
) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		mediaRepo: mediaRepo,
		publisher: publisher,
	}
}

// CreateRoom opens a room with userID in the first slot. A room the user is waiting
// in alone is replaced; a user who is already paired gets a conflict.
func (s *RoomService) CreateRoom(ctx context.Context, userID string) (*models.Room, error) {
	if err := s.userRepo.Ensure(ctx, userID); err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.releaseSoloRoom(ctx, userID, ""); err != nil {
		return nil, err
	}

	room := &models.Room{
		User1:         &userID,
		PlaybackState: datatypes.NewJSONType(models.IdlePlaybackState()),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, storeError(err, "Room", room.RoomID)
	}
	return room, nil
}

// JoinRoom puts userID into the free slot of roomID. Joining a room you are
// already in is a no-op.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "Room", roomID)
	}
	if room.HasMember(userID) {
		return room, nil
	}

	var slot repository.Slot
	switch {
	case room.User1 == nil:
		slot = repository.SlotUser1
	case room.User2 == nil:
		slot = repository.SlotUser2
	default:
		return nil, models.NewConflictError("Room is already full")
	}

	if err := s.userRepo.Ensure(ctx, userID); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.releaseSoloRoom(ctx, userID, roomID); err != nil {
		return nil, err
	}

	if err := s.roomRepo.ClaimSlot(ctx, roomID, slot, userID); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, models.NewConflictError("Room is already full")
		}
		return nil, storeError(err, "Room", roomID)
	}

	room, err = s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "Room", roomID)
	}
	publish(ctx, s.publisher, models.EventRoom, roomID, room)
	return room, nil
}

// releaseSoloRoom deletes a room userID waits in alone so they can pair elsewhere.
// Being in a filled room other than keepRoomID is a conflict.
func (s *RoomService) releaseSoloRoom(ctx context.Context, userID, keepRoomID string) error {
	existing, err := s.roomRepo.GetForUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if existing.RoomID == keepRoomID {
		return nil
	}
	if existing.Filled {
		return models.NewConflictError("You are already paired in another room")
	}
	return s.deleteRoom(ctx, existing.RoomID)
}

// LeaveRoom removes userID from the room. The controller role is released if the
// leaver held it, and a room left empty is deleted.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	room, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID)
	if err != nil {
		return err
	}

	if err := s.roomRepo.ReleaseUser(ctx, roomID, userID); err != nil {
		return storeError(err, "Room", roomID)
	}

	var released *models.PlaybackSnapshot
	if state, changed := playback.WithoutController(room.State(), userID); changed {
		now := time.Now().UTC()
		state.UpdatedAt = &now
		version, err := s.roomRepo.UpdatePlaybackState(ctx, roomID, state, nil)
		if err != nil {
			observability.ReportSwallowed(ctx, "release_controller", err, map[string]interface{}{"room_id": roomID})
		} else {
			released = &models.PlaybackSnapshot{RoomID: roomID, State: state, Version: version}
		}
	}
	cache.InvalidatePlayback(ctx, roomID)

	room, err = s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return storeError(err, "Room", roomID)
	}
	if room.IsEmpty() {
		return s.deleteRoom(ctx, roomID)
	}
	if released != nil {
		publish(ctx, s.publisher, models.EventPlaybackState, roomID, released)
	}
	publish(ctx, s.publisher, models.EventRoom, roomID, room)
	return nil
}

// DeleteRoom removes a room. Only members may delete it.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, userID string) error {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return err
	}
	return s.deleteRoom(ctx, roomID)
}

func (s *RoomService) deleteRoom(ctx context.Context, roomID string) error {
	fields := map[string]interface{}{"room_id": roomID}
	if _, err := s.mediaRepo.DeleteSpotifyTrack(ctx, roomID); err != nil {
		observability.ReportSwallowed(ctx, "cleanup_spotify_track", err, fields)
	}
	if _, err := s.mediaRepo.DeleteYouTubeVideo(ctx, roomID); err != nil {
		observability.ReportSwallowed(ctx, "cleanup_youtube_video", err, fields)
	}

	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return storeError(err, "Room", roomID)
	}
	cache.InvalidatePlayback(ctx, roomID)
	publish(ctx, s.publisher, models.EventRoom, roomID, map[string]interface{}{"room_id": roomID, "deleted": true})
	return nil
}

// GetRoom returns a room the caller belongs to.
func (s *RoomService) GetRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	return loadMemberRoom(ctx, s.roomRepo, roomID, userID)
}

// GetMyRoom returns the caller's current room.
func (s *RoomService) GetMyRoom(ctx context.Context, userID string) (*models.Room, error) {
	room, err := s.roomRepo.GetForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Room for user", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return room, nil
}
