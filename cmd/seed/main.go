// Command main runs the database seeder for Tandem.
package main

import (
	"context"
	"flag"
	"log"

	"tandem/internal/config"
	"tandem/internal/database"
	"tandem/internal/seed"
)

func main() {
	numRooms := flag.Int("rooms", 10, "Number of paired rooms to create")
	soloRooms := flag.Int("solo", 3, "Number of rooms waiting for a partner")
	commands := flag.Int("commands", 20, "Playback commands per paired room")
	minutes := flag.Int("minutes", 60, "How far back generated commands reach")
	withMedia := flag.Bool("media", true, "Attach a shared track and video to paired rooms")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixture := flag.String("fixture", "", "Apply a YAML fixture instead of generating random rooms")
	demo := flag.Bool("demo", false, "Apply the built-in demo fixture")
	seedValue := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	opts := seed.Options{
		NumRooms:        *numRooms,
		SoloRooms:       *soloRooms,
		CommandsPerRoom: *commands,
		MaxMinutes:      *minutes,
		WithMedia:       *withMedia,
		RandomSeed:      *seedValue,
	}
	s := seed.NewSeederWithOptions(db, opts)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	switch {
	case *demo:
		if err := seed.Demo(db); err != nil {
			log.Fatalf("❌ Demo seeding failed: %v", err)
		}
	case *fixture != "":
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if err := s.ApplyFixture(context.Background(), fx); err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
		log.Printf("Applied fixture %s: %d users, %d rooms", *fixture, len(fx.Users), len(fx.Rooms))
	default:
		log.Printf("Target: %d paired rooms, %d solo rooms, %d commands each, clean=%v", *numRooms, *soloRooms, *commands, *shouldClean)
		if _, err := s.SeedRooms(opts); err != nil {
			log.Fatalf("❌ Room seeding failed: %v", err)
		}
	}

	log.Println("✨ All done! Your database is now populated with test data.")
}
