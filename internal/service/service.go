// Package service holds the business rules behind the HTTP handlers: room pairing,
// the playback command log, the shared playback state and shared media.
package service

import (
	"context"
	"errors"
	"strings"

	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/repository"

	"gorm.io/gorm"
)

// EventPublisher fans room events out to subscribed devices. A nil publisher is valid:
// with REALTIME_PG_LISTEN the database triggers feed the realtime layer instead.
type EventPublisher interface {
	PublishRoomEvent(ctx context.Context, event models.RoomEvent) error
}

func publish(ctx context.Context, p EventPublisher, eventType, roomID string, payload any) {
	if p == nil {
		return
	}
	ev, err := models.NewRoomEvent(eventType, roomID, payload)
	if err == nil {
		err = p.PublishRoomEvent(ctx, ev)
	}
	if err != nil {
		observability.ReportSwallowed(ctx, "publish_"+eventType, err, map[string]interface{}{"room_id": roomID})
		return
	}
	observability.RealtimeEvents.WithLabelValues(eventType).Inc()
}

// loadMemberRoom returns the room if userID occupies one of its slots.
func loadMemberRoom(ctx context.Context, rooms repository.RoomRepository, roomID, userID string) (*models.Room, error) {
	room, err := rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "Room", roomID)
	}
	if !room.HasMember(userID) {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}
	return room, nil
}

// storeError maps repository errors to caller-facing ones.
func storeError(err error, resource, id string) error {
	var appErr *models.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case isUniqueViolation(err):
		return models.NewConflictError(resource + " already exists")
	default:
		return models.NewInternalError(err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
