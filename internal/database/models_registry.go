package database

import "tandem/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Room{},
		&models.PlaybackCommand{},
		&models.RoomSpotifyTrack{},
		&models.RoomYouTubeVideo{},
	}
}
