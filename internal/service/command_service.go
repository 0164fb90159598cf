package service

import (
	"context"
	"time"

	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/playback"
	"tandem/internal/repository"
)

// DefaultCommandRetention is how many commands a room keeps in its log.
const DefaultCommandRetention = 50

// Command listing bounds.
const (
	DefaultCommandListLimit = 10
	MaxCommandListLimit     = 100
)

// CommandService appends playback commands to a room's log and reads them back.
type CommandService struct {
	roomRepo    repository.RoomRepository
	commandRepo repository.PlaybackCommandRepository
	publisher   EventPublisher
	retention   int
	now         func() time.Time
}

// NewCommandService returns a new CommandService. retention <= 0 uses DefaultCommandRetention.
func NewCommandService(
	roomRepo repository.RoomRepository,
	commandRepo repository.PlaybackCommandRepository,
	publisher EventPublisher,
	retention int,
) *CommandService {
	if retention <= 0 {
		retention = DefaultCommandRetention
	}
	return &CommandService{
		roomRepo:    roomRepo,
		commandRepo: commandRepo,
		publisher:   publisher,
		retention:   retention,
		now:         time.Now,
	}
}

// Send validates payload, stores it as exactly one log row and trims the log.
// Trimming and fan-out failures do not fail the send.
func (s *CommandService) Send(ctx context.Context, roomID, callerID string, payload playback.Payload) (*models.PlaybackCommand, error) {
	span, ctx := observability.NewSpan(ctx, "CommandService.Send")
	defer span.End()

	now := s.now()
	env, err := playback.Decode(roomID, payload, now)
	if err != nil {
		return nil, err
	}

	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, callerID); err != nil {
		return nil, err
	}

	switch {
	case env.RequestedByUserID == nil:
		env.RequestedByUserID = &callerID
	case *env.RequestedByUserID != callerID:
		return nil, models.NewForbiddenError("requested_by_user_id must be the authenticated user")
	}

	// a device clock running ahead must not put the request after the insert
	if env.RequestedAt.After(now) {
		env.RequestedAt = now
	}
	env.CreatedAt = now

	rec := env.Record()
	if err := s.commandRepo.Create(ctx, &rec); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	observability.PlaybackCommands.WithLabelValues(rec.Command).Inc()

	if _, err := s.commandRepo.Prune(ctx, roomID, s.retention); err != nil {
		observability.ReportSwallowed(ctx, "prune_playback_commands", err, map[string]interface{}{"room_id": roomID})
	}

	publish(ctx, s.publisher, models.EventPlaybackCommand, roomID, rec)
	return &rec, nil
}

// ListRecent returns up to limit commands of the room, newest first.
// limit 0 means DefaultCommandListLimit.
func (s *CommandService) ListRecent(ctx context.Context, roomID, callerID string, limit int) ([]*models.PlaybackCommand, error) {
	if limit == 0 {
		limit = DefaultCommandListLimit
	}
	if limit < 1 || limit > MaxCommandListLimit {
		return nil, models.NewValidationError("limit must be between 1 and 100")
	}

	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, callerID); err != nil {
		return nil, err
	}

	cmds, err := s.commandRepo.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return cmds, nil
}
