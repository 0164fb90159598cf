// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/spotify"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	trackIDs = []string{
		"4uLU6hMCjMI75M1A2tKUQC", "7qiZfU4dY1lWllzX7mPBI3", "0VjIjW4GlUZAMYd2vXMi3b",
		"3n3Ppam7vgaVa1iaRUc9Lp", "1mea3bSkSGXuIRvnydlB5b", "2takcwOaAZWiXQijPHIx7B",
		"5ghIJDpPoe3CfHMGu71E6T", "6habFhsOp2NvshLv26DqMb",
	}
	videoIDs = []string{"dQw4w9WgXcQ", "9bZkp7q19f0", "3JZ_D3ELwOQ", "L_jWHffIx5E", "kXYiU_JCYtU"}

	commandKinds = []playback.Kind{
		playback.KindPlay, playback.KindPause, playback.KindNext,
		playback.KindPrevious, playback.KindSeek, playback.KindVolume,
	}
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

// CreateUser creates a user with an identity-provider style id and fake profile.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first := gofakeit.FirstName()
	user := &models.User{
		ID:          "user_" + strings.ToLower(gofakeit.LetterN(24)),
		Username:    strings.ToLower(fmt.Sprintf("%s%d", first, gofakeit.Number(1, 999))),
		DisplayName: first + " " + gofakeit.LastName(),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateRoom creates a room for the given users. A nil partner leaves the second slot
// open. In a filled room the first user holds the controller role and a track is loaded.
func (f *Factory) CreateRoom(owner, partner *models.User, overrides ...func(*models.Room)) (*models.Room, error) {
	room := &models.Room{User1: &owner.ID}
	state := models.IdlePlaybackState()
	if partner != nil {
		room.User2 = &partner.ID
		uri := spotify.TrackURI(gofakeit.RandomString(trackIDs))
		updated := time.Now().UTC()
		state = models.PlaybackState{
			IsPlaying:          gofakeit.Bool(),
			CurrentTrackURI:    &uri,
			ProgressMs:         int64(gofakeit.Number(0, 180_000)),
			ControlledByUserID: &owner.ID,
			UpdatedAt:          &updated,
		}
		room.PlaybackVersion = int64(gofakeit.Number(1, 40))
	}
	room.PlaybackState = datatypes.NewJSONType(state)
	for _, override := range overrides {
		override(room)
	}
	room.RecomputeFilled()

	if f.opts.DryRun {
		if room.RoomID == "" {
			room.RoomID = fmt.Sprintf("dry-run-room-%d", f.syntheticID())
		}
		return room, nil
	}
	if err := f.db.Create(room).Error; err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// BuildCommand constructs a valid command row requested by user at the given time
// without persisting it.
func (f *Factory) BuildCommand(room *models.Room, user *models.User, at time.Time) (models.PlaybackCommand, error) {
	kind := commandKinds[f.rng.Intn(len(commandKinds))]
	p := playback.Payload{Command: string(kind), RequestedAt: &at, RequestedByUserID: &user.ID}
	switch kind {
	case playback.KindPlay:
		uri := spotify.TrackURI(gofakeit.RandomString(trackIDs))
		pos := int64(0)
		p.TrackURI, p.PositionMs = &uri, &pos
	case playback.KindSeek:
		pos := int64(f.rng.Intn(240_000))
		p.PositionMs = &pos
	case playback.KindVolume:
		vol := f.rng.Intn(101)
		p.Volume = &vol
	}

	env, err := playback.Decode(room.RoomID, p, at)
	if err != nil {
		return models.PlaybackCommand{}, err
	}
	env.CreatedAt = at
	return env.Record(), nil
}

// CreateCommands appends n commands to the room's log, alternating between members
// and spread over the last MaxMinutes minutes, oldest first.
func (f *Factory) CreateCommands(room *models.Room, members []*models.User, n int) ([]models.PlaybackCommand, error) {
	if n <= 0 || len(members) == 0 {
		return nil, nil
	}
	span := f.opts.MaxMinutes
	if span <= 0 {
		span = 60
	}
	start := time.Now().Add(-time.Duration(span) * time.Minute)
	step := time.Duration(span) * time.Minute / time.Duration(n)

	cmds := make([]models.PlaybackCommand, 0, n)
	for i := 0; i < n; i++ {
		cmd, err := f.BuildCommand(room, members[i%len(members)], start.Add(time.Duration(i)*step))
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	if f.opts.DryRun {
		for i := range cmds {
			cmds[i].ID = f.syntheticID()
		}
		return cmds, nil
	}
	if err := f.db.CreateInBatches(cmds, 100).Error; err != nil {
		return nil, fmt.Errorf("create commands: %w", err)
	}
	return cmds, nil
}

// CreateSpotifyTrack pins a fake track to the room.
func (f *Factory) CreateSpotifyTrack(room *models.Room, user *models.User) (*models.RoomSpotifyTrack, error) {
	id := gofakeit.RandomString(trackIDs)
	track := &models.RoomSpotifyTrack{
		RoomID:        room.RoomID,
		TrackID:       id,
		TrackURI:      spotify.TrackURI(id),
		Name:          strings.TrimSuffix(gofakeit.Sentence(3), "."),
		Artist:        gofakeit.Name(),
		AlbumArtURL:   fmt.Sprintf("https://picsum.photos/seed/%s/640/640", id),
		DurationMs:    gofakeit.Number(120_000, 300_000),
		AddedByUserID: user.ID,
	}
	if f.opts.DryRun {
		track.ID = f.syntheticID()
		return track, nil
	}
	if err := f.db.Create(track).Error; err != nil {
		return nil, fmt.Errorf("create spotify track: %w", err)
	}
	return track, nil
}

// CreateYouTubeVideo pins a fake video to the room.
func (f *Factory) CreateYouTubeVideo(room *models.Room, user *models.User) (*models.RoomYouTubeVideo, error) {
	id := gofakeit.RandomString(videoIDs)
	video := &models.RoomYouTubeVideo{
		RoomID:          room.RoomID,
		VideoID:         id,
		Title:           strings.TrimSuffix(gofakeit.Sentence(5), "."),
		ChannelTitle:    gofakeit.Company(),
		ThumbnailURL:    fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", id),
		DurationSeconds: gofakeit.Number(60, 900),
		AddedByUserID:   user.ID,
	}
	if f.opts.DryRun {
		video.ID = f.syntheticID()
		return video, nil
	}
	if err := f.db.Create(video).Error; err != nil {
		return nil, fmt.Errorf("create youtube video: %w", err)
	}
	return video, nil
}
