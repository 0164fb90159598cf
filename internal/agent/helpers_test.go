package agent

import (
	"context"
	"sync"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/spotify"
)

type playerCall struct {
	Op  string
	Req spotify.PlayRequest
	Arg int64
}

type fakePlayer struct {
	mu      sync.Mutex
	calls   []playerCall
	err     error
	errLeft int // when > 0, err is returned for that many more calls only
	state   *spotify.PlayerState
	block   chan struct{}
	started chan struct{}
}

func (p *fakePlayer) record(c playerCall) error {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	err, block, started := p.err, p.block, p.started
	if p.errLeft > 0 {
		p.errLeft--
		if p.errLeft == 0 {
			p.err = nil
		}
	}
	p.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (p *fakePlayer) Play(_ context.Context, req spotify.PlayRequest) error {
	return p.record(playerCall{Op: "play", Req: req})
}
func (p *fakePlayer) Pause(context.Context) error    { return p.record(playerCall{Op: "pause"}) }
func (p *fakePlayer) Next(context.Context) error     { return p.record(playerCall{Op: "next"}) }
func (p *fakePlayer) Previous(context.Context) error { return p.record(playerCall{Op: "previous"}) }
func (p *fakePlayer) Seek(_ context.Context, pos int64) error {
	return p.record(playerCall{Op: "seek", Arg: pos})
}
func (p *fakePlayer) SetVolume(_ context.Context, percent int) error {
	return p.record(playerCall{Op: "volume", Arg: int64(percent)})
}
func (p *fakePlayer) State(context.Context) (*spotify.PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

func (p *fakePlayer) Calls() []playerCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]playerCall(nil), p.calls...)
}

func (p *fakePlayer) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// fakeAPI is an in-memory room: a playback snapshot with optimistic versioning and a command log.
type fakeAPI struct {
	mu       sync.Mutex
	snap     models.PlaybackSnapshot
	getErr   error
	puts     []models.PlaybackUpdateRequest
	commands []playback.Payload
	log      []models.PlaybackCommand
	gets     int
	lists    int
}

func newFakeAPI(roomID string, state models.PlaybackState, version int64) *fakeAPI {
	return &fakeAPI{snap: models.PlaybackSnapshot{RoomID: roomID, State: state, Version: version}}
}

func (a *fakeAPI) GetPlayback(context.Context, string) (*models.PlaybackSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gets++
	if a.getErr != nil {
		return nil, a.getErr
	}
	snap := a.snap
	return &snap, nil
}

func (a *fakeAPI) PutPlayback(_ context.Context, _ string, state models.PlaybackState, version *int64) (*models.PlaybackSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.puts = append(a.puts, models.PlaybackUpdateRequest{PlaybackState: state, Version: version})
	if version != nil && *version != a.snap.Version {
		return nil, &APIError{Status: 409, Code: "VERSION_CONFLICT", Message: "playback state changed"}
	}
	a.snap.State = state
	a.snap.Version++
	snap := a.snap
	return &snap, nil
}

func (a *fakeAPI) SendCommand(_ context.Context, roomID string, p playback.Payload) (*models.PlaybackCommand, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands = append(a.commands, p)
	env, err := playback.Decode(roomID, p, *p.RequestedAt)
	if err != nil {
		return nil, err
	}
	env.ID = uint(len(a.log) + 1)
	rec := env.Record()
	rec.CreatedAt = time.Now()
	a.log = append(a.log, rec)
	return &rec, nil
}

func (a *fakeAPI) ListCommands(_ context.Context, _ string, limit int) ([]models.PlaybackCommand, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lists++
	var out []models.PlaybackCommand
	for i := len(a.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.log[i])
	}
	return out, nil
}

// logCommand appends a row the partner posted, numbered after the existing ones.
func (a *fakeAPI) logCommand(author string, cmd playback.Command, createdAt time.Time) models.PlaybackCommand {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := commandRecord(uint(len(a.log)+1), author, cmd)
	rec.CreatedAt = createdAt
	a.log = append(a.log, rec)
	return rec
}

func (a *fakeAPI) Lists() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lists
}

func (a *fakeAPI) Puts() []models.PlaybackUpdateRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.PlaybackUpdateRequest(nil), a.puts...)
}

func (a *fakeAPI) Commands() []playback.Payload {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]playback.Payload(nil), a.commands...)
}

// bumpPartner simulates a write by the partner's device.
func (a *fakeAPI) bumpPartner(state models.PlaybackState) {
	a.mu.Lock()
	a.snap.State = state
	a.snap.Version++
	a.mu.Unlock()
}

type fakeCreds struct {
	mu          sync.Mutex
	invalidated int
}

func (c *fakeCreds) Invalidate() {
	c.mu.Lock()
	c.invalidated++
	c.mu.Unlock()
}

func (c *fakeCreds) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

type chanSource chan Event

func (c chanSource) Events() <-chan Event { return c }

func commandRecord(id uint, author string, cmd playback.Command) models.PlaybackCommand {
	env := playback.Envelope{ID: id, RoomID: "room-1", Command: cmd, RequestedByUserID: &author}
	rec := env.Record()
	return rec
}
