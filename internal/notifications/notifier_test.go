package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"tandem/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisWithoutSubscriberIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	err := n.PublishRoomEvent(context.Background(), models.RoomEvent{Type: models.EventRoom, RoomID: "r1"})
	assert.NoError(t, err)
}

func TestNotifier_NilRedisDeliversLocally(t *testing.T) {
	n := NewNotifier(nil)

	var gotChannel, gotPayload string
	require.NoError(t, n.StartRoomSubscriber(context.Background(), func(channel, payload string) {
		gotChannel, gotPayload = channel, payload
	}))

	ev, err := models.NewRoomEvent(models.EventPlaybackState, "r1", map[string]int{"version": 3})
	require.NoError(t, err)
	require.NoError(t, n.PublishRoomEvent(context.Background(), ev))

	assert.Equal(t, "room:r1", gotChannel)
	var decoded models.RoomEvent
	require.NoError(t, json.Unmarshal([]byte(gotPayload), &decoded))
	assert.Equal(t, models.EventPlaybackState, decoded.Type)
	assert.Equal(t, "r1", decoded.RoomID)
	assert.JSONEq(t, `{"version":3}`, string(decoded.Payload))
}

func TestNotifier_RejectsEventWithoutRoom(t *testing.T) {
	n := NewNotifier(nil)
	err := n.PublishRoomEvent(context.Background(), models.RoomEvent{Type: models.EventRoom})
	assert.Error(t, err)
}

func TestNotifier_LocalSubscriberPanicIsRecovered(t *testing.T) {
	n := NewNotifier(nil)
	require.NoError(t, n.StartRoomSubscriber(context.Background(), func(string, string) {
		panic("boom")
	}))
	assert.NotPanics(t, func() {
		_ = n.PublishRaw(context.Background(), "r1", "{}")
	})
}

func TestRoomChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "room:abc", RoomChannel("abc"))

	tests := []struct {
		channel string
		roomID  string
		ok      bool
	}{
		{"room:abc", "abc", true},
		{"room:", "", false},
		{"room:abc:playback", "", false},
		{"notifications:user:1", "", false},
	}
	for _, tt := range tests {
		roomID, ok := RoomIDFromChannel(tt.channel)
		assert.Equal(t, tt.ok, ok, tt.channel)
		assert.Equal(t, tt.roomID, roomID, tt.channel)
	}
}

func TestNotifier_StartRoomSubscriber_StopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	payloads := make(chan string, 2)
	require.NoError(t, n.StartRoomSubscriber(ctx, func(_ string, payload string) {
		atomic.AddInt32(&received, 1)
		payloads <- payload
	}))

	require.NoError(t, n.PublishRaw(context.Background(), "room-1", "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	// Drain the pre-cancel message to avoid false positives.
	select {
	case <-payloads:
	default:
	}

	require.NoError(t, n.PublishRaw(context.Background(), "room-1", "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
