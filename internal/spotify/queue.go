package spotify

import "context"

// Queue serializes calls to a Player so a device has at most one outstanding
// provider request. Blocked callers are admitted in arrival order.
type Queue struct {
	next Player
	slot chan struct{}
}

// NewQueue wraps p.
func NewQueue(p Player) *Queue {
	return &Queue{next: p, slot: make(chan struct{}, 1)}
}

func (q *Queue) do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case q.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.slot }()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (q *Queue) Play(ctx context.Context, req PlayRequest) error {
	return q.do(ctx, func(ctx context.Context) error { return q.next.Play(ctx, req) })
}

func (q *Queue) Pause(ctx context.Context) error {
	return q.do(ctx, q.next.Pause)
}

func (q *Queue) Next(ctx context.Context) error {
	return q.do(ctx, q.next.Next)
}

func (q *Queue) Previous(ctx context.Context) error {
	return q.do(ctx, q.next.Previous)
}

func (q *Queue) Seek(ctx context.Context, positionMs int64) error {
	return q.do(ctx, func(ctx context.Context) error { return q.next.Seek(ctx, positionMs) })
}

func (q *Queue) SetVolume(ctx context.Context, percent int) error {
	return q.do(ctx, func(ctx context.Context) error { return q.next.SetVolume(ctx, percent) })
}

func (q *Queue) State(ctx context.Context) (*PlayerState, error) {
	var st *PlayerState
	err := q.do(ctx, func(ctx context.Context) error {
		var err error
		st, err = q.next.State(ctx)
		return err
	})
	return st, err
}
