// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"testing"
	"time"

	"tandem/internal/database"
	"tandem/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory SQLite database with the full schema migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access sql pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// CreateRoom inserts a room with the given occupants. An empty string leaves the slot vacant.
func CreateRoom(t testing.TB, db *gorm.DB, user1, user2 string) *models.Room {
	t.Helper()

	room := &models.Room{}
	for _, id := range []string{user1, user2} {
		if id == "" {
			continue
		}
		if err := db.Where(models.User{ID: id}).FirstOrCreate(&models.User{ID: id, Username: id}).Error; err != nil {
			t.Fatalf("Failed to create user %s: %v", id, err)
		}
	}
	if user1 != "" {
		room.User1 = Ptr(user1)
	}
	if user2 != "" {
		room.User2 = Ptr(user2)
	}
	room.PlaybackState = datatypes.NewJSONType(models.IdlePlaybackState())
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}
	return room
}

// CreateCommand inserts a command row with an explicit created_at.
func CreateCommand(t testing.TB, db *gorm.DB, roomID, command string, createdAt time.Time) *models.PlaybackCommand {
	t.Helper()

	cmd := &models.PlaybackCommand{
		RoomID:      roomID,
		Command:     command,
		RequestedAt: createdAt,
		CreatedAt:   createdAt,
	}
	if err := db.Create(cmd).Error; err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}
	return cmd
}
