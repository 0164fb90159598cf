package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"tandem/internal/models"
	"tandem/internal/repository"
	"tandem/internal/spotify"
	"tandem/internal/youtube"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed demo.yml
var demoFixture []byte

// Fixture names explicit users and rooms, for environments that need stable ids.
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
	Rooms []FixtureRoom `yaml:"rooms"`
}

// FixtureUser is one user entry of a fixture file.
type FixtureUser struct {
	ID          string `yaml:"id"`
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name"`
	AvatarURL   string `yaml:"avatar_url"`
}

// FixtureRoom is one room entry. Track and Video accept anything the API accepts.
type FixtureRoom struct {
	ID         string `yaml:"id"`
	User1      string `yaml:"user_1"`
	User2      string `yaml:"user_2"`
	Controller string `yaml:"controller"`
	Playing    bool   `yaml:"playing"`
	Track      string `yaml:"track"`
	Video      string `yaml:"video"`
	Commands   int    `yaml:"commands"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks that rooms only reference declared users.
func (fx *Fixture) Validate() error {
	known := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("fixture user %q has no id", u.Username)
		}
		known[u.ID] = true
	}

	var problems []string
	seen := make(map[string]bool, len(fx.Users))
	for i, r := range fx.Rooms {
		name := r.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if r.User1 == "" && r.User2 == "" {
			problems = append(problems, fmt.Sprintf("room %s has no users", name))
		}
		for _, uid := range []string{r.User1, r.User2} {
			if uid == "" {
				continue
			}
			if !known[uid] {
				problems = append(problems, fmt.Sprintf("room %s references unknown user %s", name, uid))
			}
			if seen[uid] {
				problems = append(problems, fmt.Sprintf("user %s is in more than one room", uid))
			}
			seen[uid] = true
		}
		if r.Controller != "" && r.Controller != r.User1 && r.Controller != r.User2 {
			problems = append(problems, fmt.Sprintf("room %s controller %s is not a member", name, r.Controller))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid fixture: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Demo applies the built-in demo fixture. It is safe to run repeatedly.
func Demo(db *gorm.DB) error {
	fx, err := ParseFixture(demoFixture)
	if err != nil {
		return err
	}
	return NewSeeder(db).ApplyFixture(context.Background(), fx)
}

// ApplyFixture upserts the fixture's users and rooms. Rooms keep their ids, so applying
// the same fixture twice leaves one copy.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) error {
	users := repository.NewUserRepository(s.db)
	media := repository.NewMediaRepository(s.db)
	byID := make(map[string]*models.User, len(fx.Users))

	for _, fu := range fx.Users {
		u := &models.User{ID: fu.ID, Username: fu.Username, DisplayName: fu.DisplayName, AvatarURL: fu.AvatarURL}
		if err := users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("upsert user %s: %w", fu.ID, err)
		}
		byID[u.ID] = u
	}

	for _, fr := range fx.Rooms {
		room, err := s.upsertRoom(ctx, fr)
		if err != nil {
			return err
		}

		adder := fr.User1
		if adder == "" {
			adder = fr.User2
		}
		if fr.Track != "" {
			trackID, err := spotify.ParseTrackID(fr.Track)
			if err != nil {
				return fmt.Errorf("room %s track: %w", room.RoomID, err)
			}
			if err := media.ReplaceSpotifyTrack(ctx, &models.RoomSpotifyTrack{
				RoomID:        room.RoomID,
				TrackID:       trackID,
				TrackURI:      spotify.TrackURI(trackID),
				AddedByUserID: adder,
			}); err != nil {
				return fmt.Errorf("room %s track: %w", room.RoomID, err)
			}
		}
		if fr.Video != "" {
			videoID, err := youtube.ParseVideoID(fr.Video)
			if err != nil {
				return fmt.Errorf("room %s video: %w", room.RoomID, err)
			}
			if err := media.ReplaceYouTubeVideo(ctx, &models.RoomYouTubeVideo{
				RoomID:        room.RoomID,
				VideoID:       videoID,
				AddedByUserID: adder,
			}); err != nil {
				return fmt.Errorf("room %s video: %w", room.RoomID, err)
			}
		}

		if fr.Commands > 0 {
			if err := s.db.WithContext(ctx).Where("room_id = ?", room.RoomID).Delete(&models.PlaybackCommand{}).Error; err != nil {
				return fmt.Errorf("room %s commands: %w", room.RoomID, err)
			}
			var members []*models.User
			for _, uid := range room.Occupants() {
				members = append(members, byID[uid])
			}
			if _, err := s.factory.CreateCommands(room, members, fr.Commands); err != nil {
				return fmt.Errorf("room %s commands: %w", room.RoomID, err)
			}
		}
	}
	return nil
}

func (s *Seeder) upsertRoom(ctx context.Context, fr FixtureRoom) (*models.Room, error) {
	room := &models.Room{RoomID: fr.ID}
	if fr.User1 != "" {
		room.User1 = &fr.User1
	}
	if fr.User2 != "" {
		room.User2 = &fr.User2
	}

	state := models.IdlePlaybackState()
	if fr.Controller != "" {
		controller := fr.Controller
		state.ControlledByUserID = &controller
	}
	if fr.Track != "" {
		if trackID, err := spotify.ParseTrackID(fr.Track); err == nil {
			uri := spotify.TrackURI(trackID)
			state.CurrentTrackURI = &uri
		}
	}
	state.IsPlaying = fr.Playing && state.CurrentTrackURI != nil
	now := time.Now().UTC()
	state.UpdatedAt = &now
	room.PlaybackState = datatypes.NewJSONType(state)
	room.RecomputeFilled()

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_1", "user_2", "filled", "playback_state", "updated_at"}),
	}).Create(room).Error; err != nil {
		return nil, fmt.Errorf("upsert room %s: %w", fr.ID, err)
	}
	return room, nil
}
