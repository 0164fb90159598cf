package repository

import (
	"context"

	"tandem/internal/models"
	"tandem/internal/observability"

	"gorm.io/gorm"
)

// MediaRepository stores the single shared Spotify track and YouTube video of each room.
type MediaRepository interface {
	ReplaceSpotifyTrack(ctx context.Context, track *models.RoomSpotifyTrack) error
	GetSpotifyTrack(ctx context.Context, roomID string) (*models.RoomSpotifyTrack, error)
	UpdateSpotifyTrack(ctx context.Context, track *models.RoomSpotifyTrack) error
	DeleteSpotifyTrack(ctx context.Context, roomID string) (int64, error)

	ReplaceYouTubeVideo(ctx context.Context, video *models.RoomYouTubeVideo) error
	GetYouTubeVideo(ctx context.Context, roomID string) (*models.RoomYouTubeVideo, error)
	UpdateYouTubeVideo(ctx context.Context, video *models.RoomYouTubeVideo) error
	DeleteYouTubeVideo(ctx context.Context, roomID string) (int64, error)
}

type mediaRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db, log: observability.NewRepoLogger("room_media")}
}

// ReplaceSpotifyTrack deletes the room's current track and inserts the new one atomically.
func (r *mediaRepository) ReplaceSpotifyTrack(ctx context.Context, track *models.RoomSpotifyTrack) error {
	defer observability.TrackQuery("replace", "room_spotify_tracks")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", track.RoomID).Delete(&models.RoomSpotifyTrack{}).Error; err != nil {
			return err
		}
		track.ID = 0
		return tx.Create(track).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "replace_spotify_track")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"room_id": track.RoomID, "track_id": track.TrackID})
	return nil
}

func (r *mediaRepository) GetSpotifyTrack(ctx context.Context, roomID string) (*models.RoomSpotifyTrack, error) {
	var track models.RoomSpotifyTrack
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&track).Error; err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *mediaRepository) UpdateSpotifyTrack(ctx context.Context, track *models.RoomSpotifyTrack) error {
	return r.db.WithContext(ctx).Save(track).Error
}

func (r *mediaRepository) DeleteSpotifyTrack(ctx context.Context, roomID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.RoomSpotifyTrack{})
	return res.RowsAffected, res.Error
}

// ReplaceYouTubeVideo deletes the room's current video and inserts the new one atomically.
func (r *mediaRepository) ReplaceYouTubeVideo(ctx context.Context, video *models.RoomYouTubeVideo) error {
	defer observability.TrackQuery("replace", "room_youtube_videos")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", video.RoomID).Delete(&models.RoomYouTubeVideo{}).Error; err != nil {
			return err
		}
		video.ID = 0
		return tx.Create(video).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "replace_youtube_video")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"room_id": video.RoomID, "video_id": video.VideoID})
	return nil
}

func (r *mediaRepository) GetYouTubeVideo(ctx context.Context, roomID string) (*models.RoomYouTubeVideo, error) {
	var video models.RoomYouTubeVideo
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *mediaRepository) UpdateYouTubeVideo(ctx context.Context, video *models.RoomYouTubeVideo) error {
	return r.db.WithContext(ctx).Save(video).Error
}

func (r *mediaRepository) DeleteYouTubeVideo(ctx context.Context, roomID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.RoomYouTubeVideo{})
	return res.RowsAffected, res.Error
}
