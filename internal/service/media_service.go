package service

import (
	"context"
	"errors"
	"strings"

	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/repository"
	"tandem/internal/spotify"
	"tandem/internal/youtube"

	"gorm.io/gorm"
)

// TrackCatalog resolves Spotify track metadata.
type TrackCatalog interface {
	LookupTrack(ctx context.Context, trackID string) (*models.RoomSpotifyTrack, error)
}

// VideoCatalog resolves YouTube video metadata.
type VideoCatalog interface {
	LookupVideo(ctx context.Context, videoID string) (*models.RoomYouTubeVideo, error)
}

// SpotifyTrackInput sets a room's shared track. Metadata fields are optional when a
// catalog is configured.
type SpotifyTrackInput struct {
	Track       string `json:"track"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	AlbumArtURL string `json:"album_art_url"`
	DurationMs  int    `json:"duration_ms"`
}

// SpotifyTrackPatch edits metadata of the shared track.
type SpotifyTrackPatch struct {
	Name        *string `json:"name"`
	Artist      *string `json:"artist"`
	AlbumArtURL *string `json:"album_art_url"`
	DurationMs  *int    `json:"duration_ms"`
}

// YouTubeVideoInput sets a room's shared video from a link or id.
type YouTubeVideoInput struct {
	Video           string `json:"video"`
	Title           string `json:"title"`
	ChannelTitle    string `json:"channel_title"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// YouTubeVideoPatch edits metadata of the shared video.
type YouTubeVideoPatch struct {
	Title           *string `json:"title"`
	ChannelTitle    *string `json:"channel_title"`
	ThumbnailURL    *string `json:"thumbnail_url"`
	DurationSeconds *int    `json:"duration_seconds"`
}

// MediaService manages the single shared track and video of a room.
type MediaService struct {
	roomRepo  repository.RoomRepository
	mediaRepo repository.MediaRepository
	tracks    TrackCatalog
	videos    VideoCatalog
	publisher EventPublisher
}

// NewMediaService returns a new MediaService. Catalogs and publisher may be nil.
func NewMediaService(
	roomRepo repository.RoomRepository,
	mediaRepo repository.MediaRepository,
	tracks TrackCatalog,
	videos VideoCatalog,
	publisher EventPublisher,
) *MediaService {
	return &MediaService{
		roomRepo:  roomRepo,
		mediaRepo: mediaRepo,
		tracks:    tracks,
		videos:    videos,
		publisher: publisher,
	}
}

func (s *MediaService) pairedRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !room.Filled {
		return nil, models.NewValidationError("Room is not paired yet")
	}
	return room, nil
}

// SetSpotifyTrack replaces the room's shared track.
func (s *MediaService) SetSpotifyTrack(ctx context.Context, roomID, userID string, in SpotifyTrackInput) (*models.RoomSpotifyTrack, error) {
	if _, err := s.pairedRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	trackID, err := spotify.ParseTrackID(in.Track)
	if err != nil {
		return nil, models.NewValidationError("track must be a Spotify track id, URI or link")
	}

	track := &models.RoomSpotifyTrack{
		TrackID:     trackID,
		TrackURI:    spotify.TrackURI(trackID),
		Name:        strings.TrimSpace(in.Name),
		Artist:      strings.TrimSpace(in.Artist),
		AlbumArtURL: strings.TrimSpace(in.AlbumArtURL),
		DurationMs:  in.DurationMs,
	}
	if track.Name == "" && s.tracks != nil {
		if meta, err := s.tracks.LookupTrack(ctx, trackID); err != nil {
			observability.ReportSwallowed(ctx, "lookup_spotify_track", err, map[string]interface{}{"track_id": trackID})
		} else {
			track = meta
		}
	}
	track.RoomID = roomID
	track.AddedByUserID = userID

	if err := s.mediaRepo.ReplaceSpotifyTrack(ctx, track); err != nil {
		return nil, models.NewInternalError(err)
	}
	publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"spotify_track": track})
	return track, nil
}

// UpdateSpotifyTrack edits the shared track. Only the user who added it may.
func (s *MediaService) UpdateSpotifyTrack(ctx context.Context, roomID, userID string, patch SpotifyTrackPatch) (*models.RoomSpotifyTrack, error) {
	track, err := s.GetSpotifyTrack(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if track.AddedByUserID != userID {
		return nil, models.NewForbiddenError("Only the user who added the track can edit it")
	}

	if patch.Name != nil {
		track.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Artist != nil {
		track.Artist = strings.TrimSpace(*patch.Artist)
	}
	if patch.AlbumArtURL != nil {
		track.AlbumArtURL = strings.TrimSpace(*patch.AlbumArtURL)
	}
	if patch.DurationMs != nil {
		if *patch.DurationMs < 0 {
			return nil, models.NewValidationError("duration_ms must be >= 0")
		}
		track.DurationMs = *patch.DurationMs
	}

	if err := s.mediaRepo.UpdateSpotifyTrack(ctx, track); err != nil {
		return nil, models.NewInternalError(err)
	}
	publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"spotify_track": track})
	return track, nil
}

// GetSpotifyTrack returns the room's shared track.
func (s *MediaService) GetSpotifyTrack(ctx context.Context, roomID, userID string) (*models.RoomSpotifyTrack, error) {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return nil, err
	}
	track, err := s.mediaRepo.GetSpotifyTrack(ctx, roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Spotify track for room", roomID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return track, nil
}

// RemoveSpotifyTrack clears the shared track. Removing nothing is not an error.
func (s *MediaService) RemoveSpotifyTrack(ctx context.Context, roomID, userID string) error {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return err
	}
	n, err := s.mediaRepo.DeleteSpotifyTrack(ctx, roomID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if n > 0 {
		publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"spotify_track": nil})
	}
	return nil
}

// SetYouTubeVideo replaces the room's shared video.
func (s *MediaService) SetYouTubeVideo(ctx context.Context, roomID, userID string, in YouTubeVideoInput) (*models.RoomYouTubeVideo, error) {
	if _, err := s.pairedRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	videoID, err := youtube.ParseVideoID(in.Video)
	if err != nil {
		return nil, models.NewValidationError("video must be a YouTube video id or link")
	}

	video := &models.RoomYouTubeVideo{
		VideoID:         videoID,
		Title:           strings.TrimSpace(in.Title),
		ChannelTitle:    strings.TrimSpace(in.ChannelTitle),
		ThumbnailURL:    strings.TrimSpace(in.ThumbnailURL),
		DurationSeconds: in.DurationSeconds,
	}
	if video.Title == "" && s.videos != nil {
		meta, err := s.videos.LookupVideo(ctx, videoID)
		switch {
		case errors.Is(err, youtube.ErrVideoNotFound):
			return nil, models.NewValidationError("YouTube video does not exist")
		case err != nil:
			observability.ReportSwallowed(ctx, "lookup_youtube_video", err, map[string]interface{}{"video_id": videoID})
		default:
			video = meta
		}
	}
	video.RoomID = roomID
	video.AddedByUserID = userID

	if err := s.mediaRepo.ReplaceYouTubeVideo(ctx, video); err != nil {
		return nil, models.NewInternalError(err)
	}
	publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"youtube_video": video})
	return video, nil
}

// UpdateYouTubeVideo edits the shared video. Only the user who added it may.
func (s *MediaService) UpdateYouTubeVideo(ctx context.Context, roomID, userID string, patch YouTubeVideoPatch) (*models.RoomYouTubeVideo, error) {
	video, err := s.GetYouTubeVideo(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if video.AddedByUserID != userID {
		return nil, models.NewForbiddenError("Only the user who added the video can edit it")
	}

	if patch.Title != nil {
		video.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.ChannelTitle != nil {
		video.ChannelTitle = strings.TrimSpace(*patch.ChannelTitle)
	}
	if patch.ThumbnailURL != nil {
		video.ThumbnailURL = strings.TrimSpace(*patch.ThumbnailURL)
	}
	if patch.DurationSeconds != nil {
		if *patch.DurationSeconds < 0 {
			return nil, models.NewValidationError("duration_seconds must be >= 0")
		}
		video.DurationSeconds = *patch.DurationSeconds
	}

	if err := s.mediaRepo.UpdateYouTubeVideo(ctx, video); err != nil {
		return nil, models.NewInternalError(err)
	}
	publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"youtube_video": video})
	return video, nil
}

// GetYouTubeVideo returns the room's shared video.
func (s *MediaService) GetYouTubeVideo(ctx context.Context, roomID, userID string) (*models.RoomYouTubeVideo, error) {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return nil, err
	}
	video, err := s.mediaRepo.GetYouTubeVideo(ctx, roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("YouTube video for room", roomID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return video, nil
}

// RemoveYouTubeVideo clears the shared video. Removing nothing is not an error.
func (s *MediaService) RemoveYouTubeVideo(ctx context.Context, roomID, userID string) error {
	if _, err := loadMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return err
	}
	n, err := s.mediaRepo.DeleteYouTubeVideo(ctx, roomID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if n > 0 {
		publish(ctx, s.publisher, models.EventRoomMedia, roomID, map[string]interface{}{"youtube_video": nil})
	}
	return nil
}
