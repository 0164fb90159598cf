// Package spotify adapts the Spotify Web API to the playback operations a paired
// device needs, with explicit per-session credentials and provider error classification.
package spotify

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCooldown is used when a 429 response carries no usable Retry-After.
const DefaultCooldown = 5 * time.Second

var (
	// ErrUnauthorized means the access token was rejected and a refresh did not help.
	ErrUnauthorized = errors.New("spotify: unauthorized")
	// ErrNoActiveDevice means the account has no device Spotify can control.
	ErrNoActiveDevice = errors.New("spotify: no active device")
	// ErrInvalidTrack is returned for input that is not a Spotify track id, URI or link.
	ErrInvalidTrack = errors.New("spotify: invalid track reference")
)

// RateLimitError is returned when Spotify answers 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("spotify: rate limited, retry after %s", e.RetryAfter)
}

// RetryAfterOf returns the cooldown carried by err, or ok=false if err is not a rate limit.
func RetryAfterOf(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return 0, false
	}
	if rl.RetryAfter <= 0 {
		return DefaultCooldown, true
	}
	return rl.RetryAfter, true
}
