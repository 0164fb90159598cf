package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tandem/internal/middleware"
	"tandem/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// EventResync is emitted after a reconnect or a server-side drop notice: events may
// have been missed and consumers should refetch.
const EventResync = "resync"

// Event is a decoded room event.
type Event struct {
	Type     string
	RoomID   string
	Command  *models.PlaybackCommand
	State    *models.PlaybackSnapshot
	Presence *models.PresencePayload
}

// EventSource is what the synchronizer consumes; FeedClient is the websocket one.
type EventSource interface {
	Events() <-chan Event
}

// FeedClient subscribes to a room's websocket feed and reconnects with backoff.
type FeedClient struct {
	url    string
	token  string
	dialer *websocket.Dialer
	events chan Event

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewFeedClient creates a feed for roomID. wsBaseURL is e.g. ws://host/api.
func NewFeedClient(wsBaseURL, roomID, token string) *FeedClient {
	return &FeedClient{
		url:        wsBaseURL + "/ws/rooms/" + url.PathEscape(roomID),
		token:      token,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		events:     make(chan Event, 64),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Events returns the channel events are delivered on. It is never closed.
func (f *FeedClient) Events() <-chan Event {
	return f.events
}

// Run keeps the subscription alive until ctx is cancelled.
func (f *FeedClient) Run(ctx context.Context) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     f.minBackoff,
		RandomizationFactor: 0.3,
		Multiplier:          2,
		MaxInterval:         f.maxBackoff,
	}
	b.Reset()

	connected := false
	for {
		err := f.session(ctx, func() {
			b.Reset()
			if connected {
				f.emit(ctx, Event{Type: EventResync})
			}
			connected = true
		})
		if ctx.Err() != nil {
			return nil
		}
		wait := b.NextBackOff()
		middleware.Logger.Warn("room feed disconnected, retrying", "error", err, "backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (f *FeedClient) session(ctx context.Context, onConnected func()) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.token)

	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", f.url, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	onConnected()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := decodeEvent(data)
		if err != nil {
			middleware.Logger.Warn("undecodable room event", "error", err)
			continue
		}
		if ev.Type == "" {
			continue
		}
		f.emit(ctx, ev)
	}
}

func (f *FeedClient) emit(ctx context.Context, ev Event) {
	select {
	case f.events <- ev:
	case <-ctx.Done():
	}
}

// decodeEvent turns a wire envelope into an Event. Frames the agent does not act on
// decode to an Event with an empty Type.
func decodeEvent(data []byte) (Event, error) {
	var raw models.RoomEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, err
	}
	ev := Event{Type: raw.Type, RoomID: raw.RoomID}

	var err error
	switch raw.Type {
	case models.EventPlaybackCommand:
		ev.Command = &models.PlaybackCommand{}
		err = json.Unmarshal(raw.Payload, ev.Command)
	case models.EventPlaybackState:
		ev.State = &models.PlaybackSnapshot{}
		err = json.Unmarshal(raw.Payload, ev.State)
		if err == nil && ev.State.RoomID == "" {
			ev.State.RoomID = raw.RoomID
		}
	case models.EventPresence:
		ev.Presence = &models.PresencePayload{}
		err = json.Unmarshal(raw.Payload, ev.Presence)
	case "messages_dropped":
		ev.Type = EventResync
	case models.EventRoom, models.EventRoomMedia, models.EventConnected, "pong":
		ev.Type = ""
	default:
		return Event{}, errors.New("unknown event type " + raw.Type)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	return ev, nil
}
