package server

import (
	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendPlaybackCommand handles POST /api/rooms/:room_id/playback-command
// @Summary Send playback command
// @Description Append a command to the room's log. Either command or the legacy action field names it.
// @Tags playback
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body playback.Payload true "Command"
// @Success 201 {object} models.PlaybackCommand
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/playback-command [post]
func (s *Server) SendPlaybackCommand(c *fiber.Ctx) error {
	var payload playback.Payload
	if ok, err := parseBody(c, &payload); !ok {
		return err
	}

	rec, err := s.commandService.Send(c.UserContext(), roomIDParam(c), currentUserID(c), payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// ListPlaybackCommands handles GET /api/rooms/:room_id/playback-commands
// @Summary List playback commands
// @Description Return the most recent commands of the room, newest first.
// @Tags playback
// @Produce json
// @Param room_id path string true "Room ID"
// @Param limit query int false "Number of commands (1-100)" default(10)
// @Success 200 {array} models.PlaybackCommand
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/playback-commands [get]
func (s *Server) ListPlaybackCommands(c *fiber.Ctx) error {
	cmds, err := s.commandService.ListRecent(c.UserContext(), roomIDParam(c), currentUserID(c), parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cmds)
}

// GetPlayback handles GET /api/rooms/:room_id/playback
// @Summary Get playback state
// @Description Return the room's shared playback state with its version. An idle state is served when none is stored.
// @Tags playback
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} models.PlaybackSnapshot
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/playback [get]
func (s *Server) GetPlayback(c *fiber.Ctx) error {
	snap, err := s.playbackService.Get(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// UpdatePlayback handles PUT /api/rooms/:room_id/playback
// @Summary Replace playback state
// @Description Replace the room's shared playback state. A version, when sent, must match the current one.
// @Tags playback
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body models.PlaybackUpdateRequest true "Playback state"
// @Success 200 {object} models.PlaybackSnapshot
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/playback [put]
func (s *Server) UpdatePlayback(c *fiber.Ctx) error {
	var req models.PlaybackUpdateRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	snap, err := s.playbackService.Update(c.UserContext(), roomIDParam(c), currentUserID(c), service.UpdatePlaybackInput{
		State:           req.PlaybackState,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}
