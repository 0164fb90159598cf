package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomFrame(t *testing.T, typ string, payload interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	out, err := json.Marshal(models.RoomEvent{Type: typ, RoomID: "room-1", Payload: raw})
	require.NoError(t, err)
	return out
}

func TestDecodeEvent(t *testing.T) {
	cmd := commandRecord(4, "bob", playback.Pause{})

	tests := []struct {
		name    string
		frame   []byte
		want    string
		wantErr bool
	}{
		{"command", roomFrame(t, models.EventPlaybackCommand, cmd), models.EventPlaybackCommand, false},
		{"state", roomFrame(t, models.EventPlaybackState, models.PlaybackSnapshot{Version: 2}), models.EventPlaybackState, false},
		{"presence", roomFrame(t, models.EventPresence, models.PresencePayload{UserID: "bob", Online: true}), models.EventPresence, false},
		{"drop notice", []byte(`{"type":"messages_dropped"}`), EventResync, false},
		{"room update", roomFrame(t, models.EventRoom, map[string]string{}), "", false},
		{"pong", []byte(`{"type":"pong"}`), "", false},
		{"unknown", []byte(`{"type":"chat"}`), "", true},
		{"garbage", []byte(`not json`), "", true},
		{"bad payload", []byte(`{"type":"playback_state","payload":"x"}`), "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := decodeEvent(tc.frame)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.Type)
		})
	}
}

func TestDecodeEvent_StateInheritsRoomID(t *testing.T) {
	ev, err := decodeEvent(roomFrame(t, models.EventPlaybackState, models.PlaybackSnapshot{
		Version: 3,
		State:   models.PlaybackState{CurrentTrackURI: testutil.Ptr("spotify:track:X")},
	}))
	require.NoError(t, err)
	require.NotNil(t, ev.State)
	assert.Equal(t, "room-1", ev.State.RoomID)
	assert.Equal(t, int64(3), ev.State.Version)
}

func TestFeedClient_DeliversEventsAndResyncsAfterReconnect(t *testing.T) {
	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	frame := roomFrame(t, models.EventPresence, models.PresencePayload{UserID: "bob", Online: true})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Path != "/api/ws/rooms/room-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		if n == 1 {
			return
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	feed := NewFeedClient("ws"+strings.TrimPrefix(srv.URL, "http")+"/api", "room-1", "tok")
	feed.minBackoff = 10 * time.Millisecond
	feed.maxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	var got []string
	for len(got) < 3 {
		select {
		case ev := <-feed.Events():
			got = append(got, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []string{models.EventPresence, EventResync, models.EventPresence}, got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}
