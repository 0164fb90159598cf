package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"tandem/internal/middleware"
	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/playback"
	"tandem/internal/spotify"
)

// ErrNoState is returned by mutation ops before the first snapshot arrived.
var ErrNoState = errors.New("agent: playback state not loaded yet")

// commandPullLimit is how many log rows a controller reads per pull.
const commandPullLimit = 20

// SynchronizerOptions configures a Synchronizer.
type SynchronizerOptions struct {
	RoomID       string
	UserID       string
	PollInterval time.Duration
	// Cooldown caps how long a local action waits on a provider rate limit before
	// its single retry.
	Cooldown time.Duration
}

// Synchronizer keeps this device's view of the room's playback state current and
// drives local auto-play. Push events and the polling fallback both feed reconcile,
// which is the only place the view changes.
type Synchronizer struct {
	api      RoomAPI
	sender   *CommandSender
	player   spotify.Player
	listener *Listener
	feed     EventSource
	opts     SynchronizerOptions
	now      func() time.Time

	mu             sync.Mutex
	ctx            context.Context
	current        *models.PlaybackSnapshot
	lastAutoPlayed string
	// lastCommandID is the newest log row already offered to the listener; zero
	// until the first pull after gaining control.
	lastCommandID uint
}

// NewSynchronizer wires the pieces of one device. feed may be nil to rely on polling.
func NewSynchronizer(api RoomAPI, sender *CommandSender, player spotify.Player, listener *Listener, feed EventSource, opts SynchronizerOptions) *Synchronizer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 7 * time.Second
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = spotify.DefaultCooldown
	}
	s := &Synchronizer{
		api:      api,
		sender:   sender,
		player:   player,
		listener: listener,
		feed:     feed,
		opts:     opts,
		now:      time.Now,
		ctx:      context.Background(),
	}
	listener.onStateWritten(s.stateWritten)
	return s
}

// Run fetches the state once, then follows push events and polls until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	defer s.listener.Stop()

	s.refresh(ctx)
	s.pullCommands(ctx)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var events <-chan Event
	if s.feed != nil {
		events = s.feed.Events()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refresh(ctx)
			s.pullCommands(ctx)
		case ev := <-events:
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Synchronizer) handleEvent(ctx context.Context, ev Event) {
	switch {
	case ev.State != nil:
		s.reconcile(ctx, *ev.State)
	case ev.Command != nil:
		if s.listener.Running() {
			s.listener.Handle(*ev.Command)
		}
	case ev.Presence != nil:
		middleware.Logger.Info("partner presence changed",
			"room_id", s.opts.RoomID,
			"user_id", ev.Presence.UserID,
			"online", ev.Presence.Online,
		)
	case ev.Type == EventResync:
		s.refresh(ctx)
		s.pullCommands(ctx)
	}
}

// pullCommands offers the partner's logged commands to the listener, oldest first.
// It covers polling without a feed and commands posted while the feed was down.
// On the first pull after gaining control, only rows created after the last state
// write count as unapplied; later pulls take every row newer than the last one seen.
// The listener drops redeliveries of rows the feed already brought.
func (s *Synchronizer) pullCommands(ctx context.Context) {
	if !s.listener.Running() {
		s.mu.Lock()
		s.lastCommandID = 0
		s.mu.Unlock()
		return
	}
	recs, err := s.api.ListCommands(ctx, s.opts.RoomID, commandPullLimit)
	if err != nil {
		observability.ReportSwallowed(ctx, "pull_commands", err, map[string]interface{}{"room_id": s.opts.RoomID})
		return
	}

	s.mu.Lock()
	last := s.lastCommandID
	var since time.Time
	if last == 0 && s.current != nil && s.current.State.UpdatedAt != nil {
		since = *s.current.State.UpdatedAt
	}
	var fresh []models.PlaybackCommand
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if rec.ID > s.lastCommandID {
			s.lastCommandID = rec.ID
		}
		if rec.ID <= last || (last == 0 && !rec.CreatedAt.After(since)) {
			continue
		}
		fresh = append(fresh, rec)
	}
	s.mu.Unlock()

	for _, rec := range fresh {
		s.listener.Handle(rec)
	}
}

// refresh pulls the state. When it cannot be read the current view is kept, or the
// idle default is used if there is none yet.
func (s *Synchronizer) refresh(ctx context.Context) {
	snap, err := s.api.GetPlayback(ctx, s.opts.RoomID)
	if err != nil {
		observability.ReportSwallowed(ctx, "fetch_playback_state", err, map[string]interface{}{"room_id": s.opts.RoomID})
		s.mu.Lock()
		empty := s.current == nil
		s.mu.Unlock()
		if !empty {
			return
		}
		snap = &models.PlaybackSnapshot{RoomID: s.opts.RoomID, State: models.IdlePlaybackState()}
	}
	s.reconcile(ctx, *snap)
}

// reconcile applies one observed snapshot: stale versions are ignored, the listener
// follows the controller role, and a non-controller auto-plays a newly playing track
// exactly once.
func (s *Synchronizer) reconcile(ctx context.Context, snap models.PlaybackSnapshot) {
	s.mu.Lock()
	if s.current != nil && snap.Version < s.current.Version {
		s.mu.Unlock()
		return
	}
	s.current = &snap
	state := snap.State
	isController := playback.IsController(state, s.opts.UserID)

	s.listener.SetBaseline(snap)
	if isController {
		s.listener.Start(s.ctx)
	} else {
		s.listener.Stop()
	}

	var autoPlay *string
	if !isController && state.IsPlaying && state.CurrentTrackURI != nil && *state.CurrentTrackURI != s.lastAutoPlayed {
		s.lastAutoPlayed = *state.CurrentTrackURI
		autoPlay = state.CurrentTrackURI
	}
	s.mu.Unlock()

	if autoPlay == nil {
		return
	}
	req := spotify.PlayRequest{TrackURI: autoPlay}
	if pos := s.expectedProgress(state); pos > 0 {
		req.PositionMs = &pos
	}
	if err := s.player.Play(ctx, req); err != nil {
		observability.ReportSwallowed(ctx, "auto_play", err, map[string]interface{}{
			"room_id":   s.opts.RoomID,
			"track_uri": *autoPlay,
		})
		return
	}
	middleware.Logger.Info("auto-played partner track", "room_id", s.opts.RoomID, "track_uri", *autoPlay)
}

func (s *Synchronizer) expectedProgress(state models.PlaybackState) int64 {
	if state.UpdatedAt == nil {
		return state.ProgressMs
	}
	return playback.CompensatedPosition(state.ProgressMs, *state.UpdatedAt, s.now())
}

// stateWritten feeds the listener's own writes back into the view.
func (s *Synchronizer) stateWritten(snap *models.PlaybackSnapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.reconcile(ctx, *snap)
}

// IsController reports whether this device currently controls the room's playback.
func (s *Synchronizer) IsController() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && playback.IsController(s.current.State, s.opts.UserID)
}

// State returns the last reconciled snapshot.
func (s *Synchronizer) State() (models.PlaybackSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.PlaybackSnapshot{}, false
	}
	return *s.current, true
}

// TogglePlayPause pauses when the room is playing and resumes otherwise.
func (s *Synchronizer) TogglePlayPause(ctx context.Context) error {
	snap, ok := s.State()
	if !ok {
		return ErrNoState
	}
	if snap.State.IsPlaying {
		return s.mutate(ctx, playback.Pause{})
	}
	return s.mutate(ctx, playback.Play{})
}

// PlayTrack starts uri from the beginning.
func (s *Synchronizer) PlayTrack(ctx context.Context, uri string) error {
	return s.mutate(ctx, playback.Play{TrackURI: &uri})
}

// SkipToNext skips forward.
func (s *Synchronizer) SkipToNext(ctx context.Context) error {
	return s.mutate(ctx, playback.Next{})
}

// SkipToPrevious skips back.
func (s *Synchronizer) SkipToPrevious(ctx context.Context) error {
	return s.mutate(ctx, playback.Previous{})
}

// mutate relays cmd to the controller when the partner holds that role. Otherwise
// this device acts locally and records the result, claiming control of an
// uncontrolled room.
// A provider rate limit on the local action is waited out and retried once before
// it is returned.
func (s *Synchronizer) mutate(ctx context.Context, cmd playback.Command) error {
	snap, ok := s.State()
	if !ok {
		return ErrNoState
	}

	ctrl := snap.State.ControlledByUserID
	if ctrl != nil && *ctrl != s.opts.UserID {
		_, err := s.sender.Send(ctx, cmd)
		return err
	}

	performed, _, err := performRetrying(ctx, s.player, cmd, s.now(), s.now, s.opts.Cooldown, func(wait time.Duration) {
		middleware.Logger.Warn("spotify rate limited, retrying after cooldown", "room_id", s.opts.RoomID, "cooldown", wait)
	})
	if err != nil {
		return err
	}
	state := projectState(ctx, s.player, snap.State, performed, s.opts.UserID)
	written, err := writeState(ctx, s.api, s.opts.RoomID, state, snap.Version)
	if err != nil {
		return err
	}
	s.reconcile(ctx, *written)
	return nil
}
