package spotify

import "context"

// PlayRequest starts or resumes playback. TrackURI nil resumes the current item.
type PlayRequest struct {
	TrackURI   *string
	PositionMs *int64
}

// PlayerState is what the device is doing right now.
type PlayerState struct {
	IsPlaying  bool
	TrackURI   string
	ProgressMs int64
	DurationMs int64
	DeviceID   string
}

// Player is the set of playback operations the listener and synchronizer drive.
type Player interface {
	Play(ctx context.Context, req PlayRequest) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, percent int) error
	State(ctx context.Context) (*PlayerState, error)
}
