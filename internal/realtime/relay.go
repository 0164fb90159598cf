package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tandem/internal/cache"
	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/repository"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
)

// trackedRooms bounds how many rooms' playback versions the relay remembers.
// A room evicted here only costs one repeated playback_state event.
const trackedRooms = 4096

// Publisher is satisfied by notifications.Notifier.
type Publisher interface {
	PublishRoomEvent(ctx context.Context, event models.RoomEvent) error
}

// Relay rehydrates trigger payloads from the store and publishes full room events.
type Relay struct {
	rooms     repository.RoomRepository
	commands  repository.PlaybackCommandRepository
	publisher Publisher

	mu       sync.Mutex
	versions *lru.Cache[string, int64]
}

// NewRelay creates a Relay.
func NewRelay(rooms repository.RoomRepository, commands repository.PlaybackCommandRepository, publisher Publisher) *Relay {
	return newRelay(rooms, commands, publisher, trackedRooms)
}

func newRelay(rooms repository.RoomRepository, commands repository.PlaybackCommandRepository, publisher Publisher, size int) *Relay {
	versions, _ := lru.New[string, int64](size)
	return &Relay{
		rooms:     rooms,
		commands:  commands,
		publisher: publisher,
		versions:  versions,
	}
}

// Handle implements Handler.
func (r *Relay) Handle(ctx context.Context, n Notification) error {
	switch n.Channel {
	case ChannelPlaybackCommands:
		return r.handleCommand(ctx, n)
	case ChannelRoomChanges:
		return r.handleRoom(ctx, n)
	default:
		return fmt.Errorf("unexpected channel %q", n.Channel)
	}
}

func (r *Relay) handleCommand(ctx context.Context, n Notification) error {
	cmd, err := r.commands.GetByID(ctx, n.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// pruned before we got to it
		return nil
	}
	if err != nil {
		return fmt.Errorf("load command %d: %w", n.ID, err)
	}
	return r.publish(ctx, models.EventPlaybackCommand, cmd.RoomID, cmd)
}

// handleRoom always announces the room row and, when playback_version moved past
// what this relay last saw, the playback state as well. A notification for a
// deleted room drops its tracked version.
func (r *Relay) handleRoom(ctx context.Context, n Notification) error {
	room, err := r.rooms.GetByID(ctx, n.RoomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.forget(n.RoomID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load room %s: %w", n.RoomID, err)
	}
	if err := r.publish(ctx, models.EventRoom, room.RoomID, room); err != nil {
		return err
	}

	if !r.advance(room.RoomID, room.PlaybackVersion) {
		return nil
	}
	// the write bypassed the service, so the cached snapshot is stale
	cache.InvalidatePlayback(ctx, room.RoomID)
	snap := &models.PlaybackSnapshot{
		RoomID:  room.RoomID,
		State:   room.PlaybackState.Data(),
		Version: room.PlaybackVersion,
	}
	return r.publish(ctx, models.EventPlaybackState, room.RoomID, snap)
}

func (r *Relay) advance(roomID string, version int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, seen := r.versions.Get(roomID)
	if seen && version <= last {
		return false
	}
	r.versions.Add(roomID, version)
	return true
}

func (r *Relay) forget(roomID string) {
	r.mu.Lock()
	r.versions.Remove(roomID)
	r.mu.Unlock()
}

func (r *Relay) publish(ctx context.Context, eventType, roomID string, payload any) error {
	ev, err := models.NewRoomEvent(eventType, roomID, payload)
	if err != nil {
		return err
	}
	if err := r.publisher.PublishRoomEvent(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	observability.RealtimeEvents.WithLabelValues(eventType).Inc()
	return nil
}
