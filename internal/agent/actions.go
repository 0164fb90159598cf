package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/spotify"
)

// PlaybackAPI is the part of APIClient that reads and writes the room's shared state.
type PlaybackAPI interface {
	GetPlayback(ctx context.Context, roomID string) (*models.PlaybackSnapshot, error)
	PutPlayback(ctx context.Context, roomID string, state models.PlaybackState, version *int64) (*models.PlaybackSnapshot, error)
}

// CommandLogAPI reads the room's command log, newest first.
type CommandLogAPI interface {
	ListCommands(ctx context.Context, roomID string, limit int) ([]models.PlaybackCommand, error)
}

// RoomAPI is what a Synchronizer needs from the backend.
type RoomAPI interface {
	PlaybackAPI
	CommandLogAPI
}

// perform runs cmd against the local player. A play that carries a position is
// moved forward by the time elapsed since it was requested.
func perform(ctx context.Context, player spotify.Player, cmd playback.Command, requestedAt, now time.Time) (playback.Command, error) {
	switch c := cmd.(type) {
	case playback.Play:
		if c.PositionMs != nil {
			pos := playback.CompensatedPosition(*c.PositionMs, requestedAt, now)
			c.PositionMs = &pos
		}
		return c, player.Play(ctx, spotify.PlayRequest{TrackURI: c.TrackURI, PositionMs: c.PositionMs})
	case playback.Pause:
		return c, player.Pause(ctx)
	case playback.Next:
		return c, player.Next(ctx)
	case playback.Previous:
		return c, player.Previous(ctx)
	case playback.Seek:
		return c, player.Seek(ctx, c.PositionMs)
	case playback.Volume:
		return c, player.SetVolume(ctx, c.Percent)
	}
	return cmd, fmt.Errorf("unsupported command %T", cmd)
}

// performRetrying runs cmd and, when the provider answers 429, waits for its
// Retry-After (maxWait when absent or longer) and runs cmd once more. onWait, if set,
// is called with the wait before it starts. The second failure is returned as is.
func performRetrying(ctx context.Context, player spotify.Player, cmd playback.Command, requestedAt time.Time, now func() time.Time, maxWait time.Duration, onWait func(time.Duration)) (playback.Command, time.Duration, error) {
	performed, err := perform(ctx, player, cmd, requestedAt, now())
	wait := retryWait(err, maxWait)
	if wait == 0 {
		return performed, 0, err
	}
	if onWait != nil {
		onWait(wait)
	}
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return performed, wait, ctx.Err()
	case <-timer.C:
	}
	performed, err = perform(ctx, player, cmd, requestedAt, now())
	return performed, wait, err
}

// retryWait is how long to back off after err, or zero when err is not a rate limit.
func retryWait(err error, maxWait time.Duration) time.Duration {
	var rl *spotify.RateLimitError
	if !errors.As(err, &rl) {
		return 0
	}
	if maxWait <= 0 {
		maxWait = spotify.DefaultCooldown
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > maxWait {
		return maxWait
	}
	return rl.RetryAfter
}

// projectState is the room state a controller records after performing cmd.
// Skips ask the player which track it landed on.
func projectState(ctx context.Context, player spotify.Player, base models.PlaybackState, cmd playback.Command, controllerID string) models.PlaybackState {
	state := playback.Apply(base, cmd)
	state.ControlledByUserID = &controllerID
	state.UpdatedAt = nil

	switch cmd.(type) {
	case playback.Next, playback.Previous:
		if ps, err := player.State(ctx); err == nil && ps != nil && ps.TrackURI != "" {
			uri := ps.TrackURI
			state.CurrentTrackURI = &uri
			state.IsPlaying = ps.IsPlaying
			state.ProgressMs = ps.ProgressMs
		}
	}
	return state
}

// writeState records state at the version the controller last saw. When the partner
// wrote in between, the local action has already happened, so the write is retried
// once against the fresh version.
func writeState(ctx context.Context, api PlaybackAPI, roomID string, state models.PlaybackState, version int64) (*models.PlaybackSnapshot, error) {
	snap, err := api.PutPlayback(ctx, roomID, state, &version)
	if err == nil || !IsConflict(err) {
		return snap, err
	}
	fresh, err := api.GetPlayback(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return api.PutPlayback(ctx, roomID, state, &fresh.Version)
}
