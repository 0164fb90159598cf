package agent

import (
	"context"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
)

// CommandAPI is the part of APIClient the sender needs.
type CommandAPI interface {
	SendCommand(ctx context.Context, roomID string, p playback.Payload) (*models.PlaybackCommand, error)
}

// CommandSender posts playback intents to the room's command log, authored by the
// local user and stamped with the local clock.
type CommandSender struct {
	api    CommandAPI
	roomID string
	userID string
	now    func() time.Time
}

// NewCommandSender creates a sender for one user in one room.
func NewCommandSender(api CommandAPI, roomID, userID string) *CommandSender {
	return &CommandSender{api: api, roomID: roomID, userID: userID, now: time.Now}
}

// Send logs cmd. Invalid commands are rejected locally with the same validation the
// backend applies, so no request is made for them.
func (s *CommandSender) Send(ctx context.Context, cmd playback.Command) (*models.PlaybackCommand, error) {
	p := playback.ToPayload(cmd, s.userID, s.now().UTC())
	if _, err := playback.Decode(s.roomID, p, s.now()); err != nil {
		return nil, err
	}
	return s.api.SendCommand(ctx, s.roomID, p)
}
