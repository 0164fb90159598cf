package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tandem/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestRoomHub_BroadcastIsScopedToRoom(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	a, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)
	b, err := hub.Register("bob", "r1", nil)
	require.NoError(t, err)
	other, err := hub.Register("carol", "r2", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.BroadcastRoom("r1", []byte("hello")))
	assert.Equal(t, []string{"hello"}, drain(a))
	assert.Equal(t, []string{"hello"}, drain(b))
	assert.Empty(t, drain(other))
	assert.Equal(t, 2, hub.ConnectionCount("r1"))
}

func TestRoomHub_RegisterValidation(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	_, err := hub.Register("alice", "", nil)
	assert.ErrorIs(t, err, ErrMissingRoomID)

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("alice", "r1", nil)
		require.NoError(t, err)
	}
	_, err = hub.Register("alice", "r1", nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register("bob", "r1", nil)
	assert.NoError(t, err)
}

func TestRoomHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	assert.NotPanics(t, func() { hub.UnregisterClient(c) })
	assert.Zero(t, hub.ConnectionCount("r1"))

	// sends to a closed client are counted as drops, not panics
	assert.False(t, c.TrySend([]byte("late")))
}

func TestRoomHub_FullBufferQueuesDropNotice(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
	assert.Len(t, drain(c), sendBuffer)
}

func TestRoomHub_AnswersPing(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)

	c.IncomingHandler(c, []byte(`{"type":"ping"}`))
	c.IncomingHandler(c, []byte(`not json`))
	assert.Equal(t, []string{`{"type":"pong"}`}, drain(c))
}

func TestRoomHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewRoomHub()
	c, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, ok := <-c.Send
	assert.False(t, ok)
	_, err = hub.Register("alice", "r1", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestRoomHub_WiringForwardsPublishedEvents(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewRoomHub(rdb)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	c, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)
	outsider, err := hub.Register("zed", "r9", nil)
	require.NoError(t, err)

	ev, err := models.NewRoomEvent(models.EventPlaybackCommand, "r1", map[string]string{"command": "pause"})
	require.NoError(t, err)
	require.NoError(t, notifier.PublishRoomEvent(context.Background(), ev))

	var got models.RoomEvent
	assert.Eventually(t, func() bool {
		for _, raw := range drain(c) {
			var decoded models.RoomEvent
			if json.Unmarshal([]byte(raw), &decoded) == nil && decoded.Type == models.EventPlaybackCommand {
				got = decoded
				return true
			}
		}
		return false
	}, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, "r1", got.RoomID)

	for _, raw := range drain(outsider) {
		assert.NotContains(t, raw, models.EventPlaybackCommand)
	}
}

func TestRoomHub_PresenceAnnouncedToRoom(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(20 * time.Millisecond)
	require.NoError(t, hub.StartWiring(context.Background(), NewNotifier(nil)))

	partner, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)
	drain(partner)

	device, err := hub.Register("bob", "r1", nil)
	require.NoError(t, err)

	presence := func(c *Client) []models.PresencePayload {
		var out []models.PresencePayload
		for _, raw := range drain(c) {
			var ev models.RoomEvent
			if json.Unmarshal([]byte(raw), &ev) != nil || ev.Type != models.EventPresence {
				continue
			}
			var p models.PresencePayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				out = append(out, p)
			}
		}
		return out
	}

	assert.Equal(t, []models.PresencePayload{{UserID: "bob", Online: true}}, presence(partner))
	assert.True(t, hub.IsOnline("bob"))

	hub.UnregisterClient(device)
	var seen []models.PresencePayload
	assert.Eventually(t, func() bool {
		seen = append(seen, presence(partner)...)
		return len(seen) > 0
	}, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, []models.PresencePayload{{UserID: "bob", Online: false}}, seen)
	assert.False(t, hub.IsOnline("bob"))
}

func TestRoomHub_GracePeriodSuppressesOfflineOnRapidReconnect(t *testing.T) {
	hub := NewRoomHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(40 * time.Millisecond)

	first, err := hub.Register("alice", "r1", nil)
	require.NoError(t, err)
	hub.UnregisterClient(first)
	_, err = hub.Register("alice", "r1", nil)
	require.NoError(t, err)

	assert.Never(t, func() bool {
		hub.presence.mu.RLock()
		defer hub.presence.mu.RUnlock()
		return hub.presence.offlineNotified["alice"]
	}, 20*testPollInterval, testPollInterval)
	assert.True(t, hub.IsOnline("alice"))
}

func TestConnectionManager_ReaperRemovesStalePresence(t *testing.T) {
	rdb := newTestRedis(t)

	var offline []string
	m := NewConnectionManager(rdb, ConnectionManagerConfig{
		OnUserOffline: func(userID string) { offline = append(offline, userID) },
	})
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, rdb.SAdd(ctx, defaultPresenceOnlineSetKey, "ghost").Err())

	m.reapOnce(ctx)

	isMember, err := rdb.SIsMember(ctx, defaultPresenceOnlineSetKey, "ghost").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
	assert.Equal(t, []string{"ghost"}, offline)

	// a user touched recently survives the reaper
	m.Touch(ctx, "alive")
	m.reapOnce(ctx)
	assert.True(t, m.IsOnline(ctx, "alive"))
}
