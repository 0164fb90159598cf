package seed

import (
	"fmt"
	"log"

	"tandem/internal/models"

	"gorm.io/gorm"
)

// Options configure the seeder.
type Options struct {
	NumRooms        int
	SoloRooms       int
	CommandsPerRoom int
	// MaxMinutes bounds how far back generated commands reach.
	MaxMinutes int
	WithMedia  bool
	DryRun     bool
	RandomSeed int64
}

// Seeder populates a database with demo rooms.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a seeder using default options.
func NewSeeder(db *gorm.DB) *Seeder {
	return NewSeederWithOptions(db, Options{})
}

// NewSeederWithOptions returns a seeder whose factory uses opts.
func NewSeederWithOptions(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying factory for callers composing their own data.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// Result summarizes what a seeding run created.
type Result struct {
	Users    []*models.User
	Rooms    []*models.Room
	Commands int
}

// SeedRooms creates opts.NumRooms paired rooms with command history and
// opts.SoloRooms rooms waiting for a partner.
func (s *Seeder) SeedRooms(opts Options) (*Result, error) {
	res := &Result{}
	f := s.factory

	for i := 0; i < opts.NumRooms; i++ {
		owner, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		partner, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		room, err := f.CreateRoom(owner, partner)
		if err != nil {
			return nil, err
		}
		cmds, err := f.CreateCommands(room, []*models.User{owner, partner}, opts.CommandsPerRoom)
		if err != nil {
			return nil, err
		}
		if opts.WithMedia {
			if _, err := f.CreateSpotifyTrack(room, owner); err != nil {
				return nil, err
			}
			if _, err := f.CreateYouTubeVideo(room, partner); err != nil {
				return nil, err
			}
		}
		res.Users = append(res.Users, owner, partner)
		res.Rooms = append(res.Rooms, room)
		res.Commands += len(cmds)
	}

	for i := 0; i < opts.SoloRooms; i++ {
		owner, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		room, err := f.CreateRoom(owner, nil)
		if err != nil {
			return nil, err
		}
		res.Users = append(res.Users, owner)
		res.Rooms = append(res.Rooms, room)
	}

	log.Printf("✓ seeded %d users, %d rooms, %d commands", len(res.Users), len(res.Rooms), res.Commands)
	return res, nil
}

// ClearAll removes every row the application owns.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(`TRUNCATE TABLE playback_commands, room_spotify_tracks, room_youtube_videos, room, users RESTART IDENTITY CASCADE`).Error
	}

	for _, model := range []interface{}{
		&models.PlaybackCommand{},
		&models.RoomSpotifyTrack{},
		&models.RoomYouTubeVideo{},
		&models.Room{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}
