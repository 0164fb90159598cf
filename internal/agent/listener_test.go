package agent

import (
	"context"
	"testing"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/spotify"
	"tandem/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func controlledBy(user string) models.PlaybackState {
	return models.PlaybackState{
		IsPlaying:          true,
		CurrentTrackURI:    testutil.Ptr("spotify:track:A"),
		ProgressMs:         500,
		ControlledByUserID: testutil.Ptr(user),
	}
}

func newTestListener(t *testing.T, player *fakePlayer, api *fakeAPI, creds *fakeCreds, debounce time.Duration) *Listener {
	t.Helper()
	l := NewListener(player, api, creds, ListenerOptions{
		RoomID:   "room-1",
		UserID:   "alice",
		Debounce: debounce,
		Cooldown: 50 * time.Millisecond,
	})
	l.SetBaseline(api.snap)
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func TestListener_IgnoresOwnCommands(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	l.Handle(commandRecord(1, "alice", playback.Pause{}))

	assert.Never(t, func() bool { return len(player.Calls()) > 0 }, 100*time.Millisecond, tick)
	assert.Empty(t, api.Puts())
}

func TestListener_ExecutesPartnerCommandAndRecordsState(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	written := make(chan *models.PlaybackSnapshot, 1)
	l.onStateWritten(func(s *models.PlaybackSnapshot) { written <- s })

	l.Handle(commandRecord(7, "bob", playback.Pause{}))

	select {
	case snap := <-written:
		assert.Equal(t, int64(2), snap.Version)
		assert.False(t, snap.State.IsPlaying)
		assert.Equal(t, "alice", *snap.State.ControlledByUserID)
	case <-time.After(waitFor):
		t.Fatal("state was not written")
	}
	require.Len(t, player.Calls(), 1)
	assert.Equal(t, "pause", player.Calls()[0].Op)

	puts := api.Puts()
	require.Len(t, puts, 1)
	require.NotNil(t, puts[0].Version)
	assert.Equal(t, int64(1), *puts[0].Version)
	assert.Equal(t, StateIdle, l.State())
}

func TestListener_DeduplicatesRedeliveredCommands(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	rec := commandRecord(3, "bob", playback.Next{})
	l.Handle(rec)
	require.Eventually(t, func() bool { return len(player.Calls()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)

	l.Handle(rec)
	assert.Never(t, func() bool { return len(player.Calls()) > 1 }, 100*time.Millisecond, tick)
}

func TestListener_DebounceKeepsLatestCommand(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 60*time.Millisecond)

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	l.Handle(commandRecord(2, "bob", playback.Seek{PositionMs: 4000}))
	l.Handle(commandRecord(3, "bob", playback.Volume{Percent: 30}))

	require.Eventually(t, func() bool { return len(player.Calls()) == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return len(player.Calls()) > 1 }, 120*time.Millisecond, tick)
	assert.Equal(t, playerCall{Op: "volume", Arg: 30}, player.Calls()[0])
}

func TestListener_DropsCommandsWhileExecuting(t *testing.T) {
	player := &fakePlayer{block: make(chan struct{}), started: make(chan struct{}, 4)}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	select {
	case <-player.started:
	case <-time.After(waitFor):
		t.Fatal("command did not start")
	}
	assert.Equal(t, StateExecuting, l.State())

	l.Handle(commandRecord(2, "bob", playback.Next{}))
	close(player.block)

	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)
	assert.Never(t, func() bool { return len(player.Calls()) > 1 }, 100*time.Millisecond, tick)
	assert.Equal(t, "pause", player.Calls()[0].Op)
}

func TestListener_RetriesOnceAfterRateLimit(t *testing.T) {
	player := &fakePlayer{err: &spotify.RateLimitError{RetryAfter: 100 * time.Millisecond}, errLeft: 1}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)
	l.opts.Cooldown = 200 * time.Millisecond

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	require.Eventually(t, func() bool { return l.State() == StateCoolingDown }, waitFor, tick)

	// arrives while the retry is pending and is dropped
	l.Handle(commandRecord(2, "bob", playback.Next{}))

	require.Eventually(t, func() bool { return len(api.Puts()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)

	calls := player.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "pause", calls[0].Op)
	assert.Equal(t, "pause", calls[1].Op)
	assert.False(t, api.Puts()[0].PlaybackState.IsPlaying)
}

func TestListener_RateLimitCoolsDownWhenRetryFails(t *testing.T) {
	player := &fakePlayer{err: &spotify.RateLimitError{RetryAfter: 150 * time.Millisecond}}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)
	l.opts.Cooldown = 200 * time.Millisecond

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	require.Eventually(t, func() bool { return len(player.Calls()) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return l.State() == StateCoolingDown }, waitFor, tick)

	// arrives during the cooldown and is not replayed later
	l.Handle(commandRecord(2, "bob", playback.Next{}))

	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)
	assert.Len(t, player.Calls(), 2)
	assert.Empty(t, api.Puts())

	player.setErr(nil)
	l.Handle(commandRecord(3, "bob", playback.Next{}))
	require.Eventually(t, func() bool { return len(player.Calls()) == 3 }, waitFor, tick)
}

func TestListener_RateLimitWithoutRetryAfterUsesDefaultCooldown(t *testing.T) {
	player := &fakePlayer{err: &spotify.RateLimitError{}}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	require.Eventually(t, func() bool { return l.State() == StateCoolingDown }, waitFor, tick)
	require.Eventually(t, func() bool { return len(player.Calls()) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)
}

func TestListener_UnauthorizedInvalidatesCredentials(t *testing.T) {
	player := &fakePlayer{err: spotify.ErrUnauthorized}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	creds := &fakeCreds{}
	l := newTestListener(t, player, api, creds, 0)

	l.Handle(commandRecord(1, "bob", playback.Pause{}))

	require.Eventually(t, func() bool { return creds.Count() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return l.State() == StateIdle }, waitFor, tick)
	assert.Empty(t, api.Puts())
}

func TestListener_CompensatesPlayPositionForDelay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		requestedAt time.Time
		want        int64
	}{
		{"two seconds late", now.Add(-2 * time.Second), 3000},
		{"sender clock ahead", now.Add(5 * time.Second), 1000},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			player := &fakePlayer{}
			api := newFakeAPI("room-1", controlledBy("alice"), 1)
			l := newTestListener(t, player, api, nil, 0)
			l.now = func() time.Time { return now }

			rec := commandRecord(uint(i+1), "bob", playback.Play{
				TrackURI:   testutil.Ptr("spotify:track:B"),
				PositionMs: testutil.Ptr(int64(1000)),
			})
			rec.RequestedAt = tc.requestedAt
			l.Handle(rec)

			require.Eventually(t, func() bool { return len(api.Puts()) == 1 }, waitFor, tick)
			call := player.Calls()[0]
			require.NotNil(t, call.Req.PositionMs)
			assert.Equal(t, tc.want, *call.Req.PositionMs)
			assert.Equal(t, "spotify:track:B", *call.Req.TrackURI)

			state := api.Puts()[0].PlaybackState
			assert.True(t, state.IsPlaying)
			assert.Equal(t, tc.want, state.ProgressMs)
			assert.Equal(t, "spotify:track:B", *state.CurrentTrackURI)
		})
	}
}

func TestListener_RetriesStateWriteOnConflict(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	// partner wrote after the listener's baseline was taken
	api.bumpPartner(controlledBy("alice"))
	l.Handle(commandRecord(1, "bob", playback.Pause{}))

	require.Eventually(t, func() bool { return len(api.Puts()) == 2 }, waitFor, tick)
	puts := api.Puts()
	assert.Equal(t, int64(1), *puts[0].Version)
	assert.Equal(t, int64(2), *puts[1].Version)
	assert.False(t, puts[1].PlaybackState.IsPlaying)
}

func TestListener_SkipRecordsProviderTrack(t *testing.T) {
	player := &fakePlayer{state: &spotify.PlayerState{IsPlaying: true, TrackURI: "spotify:track:N", ProgressMs: 20}}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	l.Handle(commandRecord(1, "bob", playback.Next{}))

	require.Eventually(t, func() bool { return len(api.Puts()) == 1 }, waitFor, tick)
	state := api.Puts()[0].PlaybackState
	assert.Equal(t, "spotify:track:N", *state.CurrentTrackURI)
	assert.Equal(t, int64(20), state.ProgressMs)
}

func TestListener_StoppedListenerDropsCommands(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 80*time.Millisecond)

	l.Handle(commandRecord(1, "bob", playback.Pause{}))
	l.Stop()
	assert.False(t, l.Running())

	l.Handle(commandRecord(2, "bob", playback.Pause{}))
	assert.Never(t, func() bool { return len(player.Calls()) > 0 }, 150*time.Millisecond, tick)
}

func TestListener_IgnoresInvalidRecords(t *testing.T) {
	player := &fakePlayer{}
	api := newFakeAPI("room-1", controlledBy("alice"), 1)
	l := newTestListener(t, player, api, nil, 0)

	l.Handle(models.PlaybackCommand{ID: 1, RoomID: "room-1", Command: "rewind", RequestedByUserID: testutil.Ptr("bob")})
	assert.Never(t, func() bool { return len(player.Calls()) > 0 }, 80*time.Millisecond, tick)
}

func TestListenerState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "executing", StateExecuting.String())
	assert.Equal(t, "cooling_down", StateCoolingDown.String())
	assert.Equal(t, "unknown", ListenerState(9).String())
}
