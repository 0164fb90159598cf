package server

import (
	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
)

// MemberPresence reports whether a room member has a device connected.
type MemberPresence struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// CreateRoom handles POST /api/rooms
// @Summary Create room
// @Description Create a room with the caller in the first slot. A caller alone in a room moves to the new one.
// @Tags rooms
// @Produce json
// @Success 201 {object} models.Room
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms [post]
func (s *Server) CreateRoom(c *fiber.Ctx) error {
	room, err := s.roomService.CreateRoom(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// GetMyRoom handles GET /api/rooms/me
// @Summary Get my room
// @Description Return the room the caller occupies.
// @Tags rooms
// @Produce json
// @Success 200 {object} models.Room
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/me [get]
func (s *Server) GetMyRoom(c *fiber.Ctx) error {
	room, err := s.roomService.GetMyRoom(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// GetRoom handles GET /api/rooms/:room_id
// @Summary Get room
// @Description Return a room the caller belongs to.
// @Tags rooms
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} models.Room
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id} [get]
func (s *Server) GetRoom(c *fiber.Ctx) error {
	room, err := s.roomService.GetRoom(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// JoinRoom handles POST /api/rooms/:room_id/join
// @Summary Join room
// @Description Take the free slot of a room.
// @Tags rooms
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} models.Room
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/join [post]
func (s *Server) JoinRoom(c *fiber.Ctx) error {
	room, err := s.roomService.JoinRoom(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// LeaveRoom handles POST /api/rooms/:room_id/leave
// @Summary Leave room
// @Description Vacate the caller's slot. The room is deleted once both slots are empty.
// @Tags rooms
// @Param room_id path string true "Room ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/leave [post]
func (s *Server) LeaveRoom(c *fiber.Ctx) error {
	if err := s.roomService.LeaveRoom(c.UserContext(), roomIDParam(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteRoom handles DELETE /api/rooms/:room_id
// @Summary Delete room
// @Description Delete a room with its command log and media.
// @Tags rooms
// @Param room_id path string true "Room ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id} [delete]
func (s *Server) DeleteRoom(c *fiber.Ctx) error {
	if err := s.roomService.DeleteRoom(c.UserContext(), roomIDParam(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRoomPresence handles GET /api/rooms/:room_id/presence
// @Summary Room presence
// @Description Report which members have a device connected to the room feed.
// @Tags rooms
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {array} MemberPresence
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/presence [get]
func (s *Server) GetRoomPresence(c *fiber.Ctx) error {
	room, err := s.roomService.GetRoom(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(presenceOf(room, s.hub.IsOnline))
}

func presenceOf(room *models.Room, isOnline func(userID string) bool) []MemberPresence {
	members := room.Occupants()
	out := make([]MemberPresence, 0, len(members))
	for _, userID := range members {
		out = append(out, MemberPresence{UserID: userID, Online: isOnline(userID)})
	}
	return out
}
