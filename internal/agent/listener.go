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

	lru "github.com/hashicorp/golang-lru/v2"
)

const seenCommandsSize = 256

// ListenerState is the controller's execution state.
type ListenerState int

const (
	StateIdle ListenerState = iota
	StateExecuting
	StateCoolingDown
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateCoolingDown:
		return "cooling_down"
	}
	return "unknown"
}

// CredentialInvalidator is implemented by spotify.Credentials.
type CredentialInvalidator interface {
	Invalidate()
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	RoomID   string
	UserID   string
	Debounce time.Duration
	Cooldown time.Duration
}

// Listener executes the partner's commands on this device while it is the room's
// controller. Delivery is at most once: commands that arrive while a command is
// executing or the provider is cooling down are dropped, not queued.
type Listener struct {
	player spotify.Player
	api    PlaybackAPI
	creds  CredentialInvalidator
	opts   ListenerOptions
	seen   *lru.Cache[uint, struct{}]
	now    func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	state    ListenerState
	pending  *playback.Envelope
	timer    *time.Timer
	baseline models.PlaybackSnapshot
	written  func(*models.PlaybackSnapshot)
}

// NewListener creates a stopped listener.
func NewListener(player spotify.Player, api PlaybackAPI, creds CredentialInvalidator, opts ListenerOptions) *Listener {
	seen, _ := lru.New[uint, struct{}](seenCommandsSize)
	if opts.Cooldown <= 0 {
		opts.Cooldown = spotify.DefaultCooldown
	}
	return &Listener{
		player: player,
		api:    api,
		creds:  creds,
		opts:   opts,
		seen:   seen,
		now:    time.Now,
	}
}

// Start begins accepting commands. Calling Start on a running listener is a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	middleware.Logger.Info("command listener started", "room_id", l.opts.RoomID)
}

// Stop discards any debounced command and cancels the one executing.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel = nil
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.pending = nil
	middleware.Logger.Info("command listener stopped", "room_id", l.opts.RoomID)
}

// Running reports whether the listener accepts commands.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// State returns the current execution state.
func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetBaseline records the latest room snapshot; executed commands are projected onto it.
func (l *Listener) SetBaseline(snap models.PlaybackSnapshot) {
	l.mu.Lock()
	if snap.Version >= l.baseline.Version {
		l.baseline = snap
	}
	l.mu.Unlock()
}

// onStateWritten registers fn to receive the snapshot written after each executed command.
func (l *Listener) onStateWritten(fn func(*models.PlaybackSnapshot)) {
	l.mu.Lock()
	l.written = fn
	l.mu.Unlock()
}

// Handle offers a new command log row to the listener.
func (l *Listener) Handle(rec models.PlaybackCommand) {
	env, err := playback.FromRecord(rec)
	if err != nil {
		count("invalid")
		return
	}
	if env.AuthoredBy(l.opts.UserID) {
		count("self")
		return
	}
	if rec.ID != 0 {
		if seen, _ := l.seen.ContainsOrAdd(rec.ID, struct{}{}); seen {
			count("duplicate")
			return
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil || l.state != StateIdle {
		count("dropped")
		return
	}
	if l.pending != nil {
		count("coalesced")
	}
	l.pending = &env
	if l.timer == nil {
		l.timer = time.AfterFunc(l.opts.Debounce, l.fire)
	}
}

func (l *Listener) fire() {
	l.mu.Lock()
	env := l.pending
	ctx := l.ctx
	l.pending = nil
	l.timer = nil
	if env == nil || l.cancel == nil {
		l.mu.Unlock()
		return
	}
	l.state = StateExecuting
	baseline := l.baseline
	l.mu.Unlock()

	cooldown, err := l.execute(ctx, *env, baseline)

	l.mu.Lock()
	if cooldown > 0 {
		l.state = StateCoolingDown
		time.AfterFunc(cooldown, func() {
			l.mu.Lock()
			l.state = StateIdle
			l.mu.Unlock()
		})
	} else {
		l.state = StateIdle
	}
	l.mu.Unlock()

	if err != nil {
		observability.ReportSwallowed(ctx, "listener_execute", err, map[string]interface{}{
			"room_id":    l.opts.RoomID,
			"command":    string(env.Command.Kind()),
			"command_id": env.ID,
		})
	}
}

// execute performs one command and returns how long to cool down, if at all.
// A provider rate limit is waited out and the command retried once; only a second
// rate limit cools the listener down and is reported. Expired credentials are handed
// to the credential layer.
func (l *Listener) execute(ctx context.Context, env playback.Envelope, baseline models.PlaybackSnapshot) (time.Duration, error) {
	performed, wait, err := performRetrying(ctx, l.player, env.Command, env.RequestedAt, l.now, l.opts.Cooldown, func(wait time.Duration) {
		count("rate_limited")
		middleware.Logger.Warn("spotify rate limited, retrying after cooldown", "room_id", l.opts.RoomID, "cooldown", wait)
		l.setState(StateCoolingDown)
	})
	if wait > 0 && ctx.Err() == nil {
		l.setState(StateExecuting)
	}
	var rl *spotify.RateLimitError
	switch {
	case errors.As(err, &rl):
		count("rate_limit_exhausted")
		return retryWait(err, l.opts.Cooldown), err
	case errors.Is(err, spotify.ErrUnauthorized):
		count("unauthorized")
		if l.creds != nil {
			l.creds.Invalidate()
		}
		return 0, nil
	case err != nil:
		count("failed")
		return 0, err
	}
	count("executed")

	state := projectState(ctx, l.player, baseline.State, performed, l.opts.UserID)
	snap, err := writeState(ctx, l.api, l.opts.RoomID, state, baseline.Version)
	if err != nil {
		return 0, err
	}
	l.SetBaseline(*snap)
	l.mu.Lock()
	written := l.written
	l.mu.Unlock()
	if written != nil {
		written(snap)
	}
	return 0, nil
}

func (l *Listener) setState(state ListenerState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func count(outcome string) {
	observability.AgentCommands.WithLabelValues(outcome).Inc()
}
