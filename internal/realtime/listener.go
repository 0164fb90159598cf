// Package realtime turns Postgres change notifications into room events, so writes
// that bypass the API still reach connected devices.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tandem/internal/middleware"
	"tandem/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Channels raised by the triggers in migration 000002.
const (
	ChannelRoomChanges      = "room_changes"
	ChannelPlaybackCommands = "playback_commands"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

// Notification is a decoded trigger payload.
type Notification struct {
	Channel string `json:"-"`
	RoomID  string `json:"room_id"`
	ID      uint   `json:"id,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// Handler consumes one notification. Errors are reported and do not stop the listener.
type Handler func(ctx context.Context, n Notification) error

type listenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// PGListener holds one dedicated pgx connection outside the gorm pool and LISTENs on
// the change channels, reconnecting with capped exponential backoff.
type PGListener struct {
	dial       func(ctx context.Context) (listenConn, error)
	handler    Handler
	channels   []string
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPGListener creates a listener for dsn.
func NewPGListener(dsn string, handler Handler) *PGListener {
	return &PGListener{
		dial: func(ctx context.Context) (listenConn, error) {
			conn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		handler:    handler,
		channels:   []string{ChannelRoomChanges, ChannelPlaybackCommands},
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Run blocks until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     l.minBackoff,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         l.maxBackoff,
	}
	b.Reset()

	for {
		err := l.session(ctx, b.Reset)
		if ctx.Err() != nil {
			return nil
		}
		wait := b.NextBackOff()
		middleware.Logger.Warn("pg listener disconnected, retrying",
			"error", err,
			"backoff", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection until it fails. onListening fires once LISTEN succeeded.
func (l *PGListener) session(ctx context.Context, onListening func()) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	for _, ch := range l.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	onListening()
	middleware.Logger.Info("pg listener ready", "channels", l.channels)

	for {
		pn, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, pn)
	}
}

func (l *PGListener) dispatch(ctx context.Context, pn *pgconn.Notification) {
	n, err := decodeNotification(pn)
	if err == nil {
		err = l.handler(ctx, n)
	}
	if err != nil {
		observability.ReportSwallowed(ctx, "pg_notification", err, map[string]interface{}{
			"channel": pn.Channel,
		})
	}
}

func decodeNotification(pn *pgconn.Notification) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(pn.Payload), &n); err != nil {
		return n, fmt.Errorf("decode %s payload: %w", pn.Channel, err)
	}
	if n.RoomID == "" {
		return n, errors.New("notification without room_id on " + pn.Channel)
	}
	n.Channel = pn.Channel
	return n, nil
}
