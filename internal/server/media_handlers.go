package server

import (
	"tandem/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SetSpotifyTrack handles PUT /api/rooms/:room_id/spotify-track
// @Summary Set shared track
// @Description Pin a Spotify track to a paired room. The track may be an id, URI or open.spotify.com link.
// @Tags media
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body service.SpotifyTrackInput true "Track"
// @Success 200 {object} models.RoomSpotifyTrack
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/spotify-track [put]
func (s *Server) SetSpotifyTrack(c *fiber.Ctx) error {
	var in service.SpotifyTrackInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	track, err := s.mediaService.SetSpotifyTrack(c.UserContext(), roomIDParam(c), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(track)
}

// GetSpotifyTrack handles GET /api/rooms/:room_id/spotify-track
// @Summary Get shared track
// @Tags media
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} models.RoomSpotifyTrack
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/spotify-track [get]
func (s *Server) GetSpotifyTrack(c *fiber.Ctx) error {
	track, err := s.mediaService.GetSpotifyTrack(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(track)
}

// UpdateSpotifyTrack handles PATCH /api/rooms/:room_id/spotify-track
// @Summary Edit shared track metadata
// @Description Only the member who added the track may edit it.
// @Tags media
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body service.SpotifyTrackPatch true "Metadata"
// @Success 200 {object} models.RoomSpotifyTrack
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/spotify-track [patch]
func (s *Server) UpdateSpotifyTrack(c *fiber.Ctx) error {
	var patch service.SpotifyTrackPatch
	if ok, err := parseBody(c, &patch); !ok {
		return err
	}
	track, err := s.mediaService.UpdateSpotifyTrack(c.UserContext(), roomIDParam(c), currentUserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(track)
}

// RemoveSpotifyTrack handles DELETE /api/rooms/:room_id/spotify-track
// @Summary Remove shared track
// @Tags media
// @Param room_id path string true "Room ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/spotify-track [delete]
func (s *Server) RemoveSpotifyTrack(c *fiber.Ctx) error {
	if err := s.mediaService.RemoveSpotifyTrack(c.UserContext(), roomIDParam(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetYouTubeVideo handles PUT /api/rooms/:room_id/youtube-video
// @Summary Set shared video
// @Description Pin a YouTube video to a paired room. The video may be an id or any youtube.com or youtu.be link.
// @Tags media
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body service.YouTubeVideoInput true "Video"
// @Success 200 {object} models.RoomYouTubeVideo
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/youtube-video [put]
func (s *Server) SetYouTubeVideo(c *fiber.Ctx) error {
	var in service.YouTubeVideoInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	video, err := s.mediaService.SetYouTubeVideo(c.UserContext(), roomIDParam(c), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

// GetYouTubeVideo handles GET /api/rooms/:room_id/youtube-video
// @Summary Get shared video
// @Tags media
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} models.RoomYouTubeVideo
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/youtube-video [get]
func (s *Server) GetYouTubeVideo(c *fiber.Ctx) error {
	video, err := s.mediaService.GetYouTubeVideo(c.UserContext(), roomIDParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

// UpdateYouTubeVideo handles PATCH /api/rooms/:room_id/youtube-video
// @Summary Edit shared video metadata
// @Description Only the member who added the video may edit it.
// @Tags media
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body service.YouTubeVideoPatch true "Metadata"
// @Success 200 {object} models.RoomYouTubeVideo
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/youtube-video [patch]
func (s *Server) UpdateYouTubeVideo(c *fiber.Ctx) error {
	var patch service.YouTubeVideoPatch
	if ok, err := parseBody(c, &patch); !ok {
		return err
	}
	video, err := s.mediaService.UpdateYouTubeVideo(c.UserContext(), roomIDParam(c), currentUserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

// RemoveYouTubeVideo handles DELETE /api/rooms/:room_id/youtube-video
// @Summary Remove shared video
// @Tags media
// @Param room_id path string true "Room ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rooms/{room_id}/youtube-video [delete]
func (s *Server) RemoveYouTubeVideo(c *fiber.Ctx) error {
	if err := s.mediaService.RemoveYouTubeVideo(c.UserContext(), roomIDParam(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
