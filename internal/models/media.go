package models

import "time"

// RoomSpotifyTrack is the single shared Spotify track pinned to a room.
type RoomSpotifyTrack struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoomID        string    `gorm:"size:64;not null;uniqueIndex" json:"room_id"`
	TrackID       string    `gorm:"size:64;not null" json:"track_id"`
	TrackURI      string    `gorm:"size:255;not null" json:"track_uri"`
	Name          string    `gorm:"size:255" json:"name"`
	Artist        string    `gorm:"size:255" json:"artist"`
	AlbumArtURL   string    `gorm:"size:500" json:"album_art_url"`
	DurationMs    int       `json:"duration_ms"`
	AddedByUserID string    `gorm:"size:128;not null" json:"added_by_user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (RoomSpotifyTrack) TableName() string {
	return "room_spotify_tracks"
}

// RoomYouTubeVideo is the single shared YouTube video pinned to a room.
type RoomYouTubeVideo struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RoomID          string    `gorm:"size:64;not null;uniqueIndex" json:"room_id"`
	VideoID         string    `gorm:"size:32;not null" json:"video_id"`
	Title           string    `gorm:"size:255" json:"title"`
	ChannelTitle    string    `gorm:"size:255" json:"channel_title"`
	ThumbnailURL    string    `gorm:"size:500" json:"thumbnail_url"`
	DurationSeconds int       `json:"duration_seconds"`
	AddedByUserID   string    `gorm:"size:128;not null" json:"added_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (RoomYouTubeVideo) TableName() string {
	return "room_youtube_videos"
}
