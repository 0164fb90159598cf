package server

import (
	"encoding/json"

	"tandem/internal/middleware"
	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RoomWebSocketUpgrade admits upgrade requests from members of the room only.
func (s *Server) RoomWebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		roomID := roomIDParam(c)
		if _, err := s.roomService.GetRoom(c.UserContext(), roomID, currentUserID(c)); err != nil {
			return respondError(c, err)
		}
		c.Locals("roomID", roomID)
		return c.Next()
	}
}

// RoomWebSocketHandler streams room events to one device.
// @Summary Room event feed
// @Description WebSocket feed of playback commands, playback state, media and presence events for a room.
// @Tags realtime
// @Param room_id path string true "Room ID"
// @Param token query string false "JWT, when the Authorization header cannot be set"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/rooms/{room_id} [get]
func (s *Server) RoomWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		roomID, _ := conn.Locals("roomID").(string)
		if userID == "" || roomID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, roomID, conn)
		if err != nil {
			middleware.Logger.Warn("room feed registration failed", "room_id", roomID, "user_id", userID, "error", err)
			if frame, merr := json.Marshal(models.ErrorResponse{Error: err.Error()}); merr == nil {
				_ = conn.WriteMessage(websocket.TextMessage, frame)
			}
			_ = conn.Close()
			return
		}

		if ev, err := models.NewRoomEvent(models.EventConnected, roomID, fiber.Map{"user_id": userID}); err == nil {
			if frame, err := json.Marshal(ev); err == nil {
				client.TrySend(frame)
			}
		}

		go client.WritePump()
		client.ReadPump()
	})
}
