package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type refresherStub struct {
	calls atomic.Int32
	err   error
}

func (r *refresherStub) RefreshToken(_ context.Context, _ *oauth2.Token) (*oauth2.Token, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &oauth2.Token{AccessToken: "fresh", TokenType: "Bearer"}, nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *refresherStub) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ref := &refresherStub{}
	creds := NewCredentials(&oauth2.Token{AccessToken: "stale", RefreshToken: "r1", TokenType: "Bearer"}, ref, nil)
	return NewClient(creds, WithBaseURL(srv.URL)), ref
}

func TestClient_Pause(t *testing.T) {
	var gotPath, gotMethod, gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotAuth = r.URL.Path, r.Method, r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Pause(context.Background()))
	assert.Equal(t, "/me/player/pause", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer stale", gotAuth)
}

func TestClient_RateLimitCarriesRetryAfter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":429,"message":"API rate limit exceeded"}}`))
	})

	err := c.Next(context.Background())
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)
}

func TestClient_RateLimitDefaultsCooldown(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.Previous(context.Background())
	wait, ok := RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, DefaultCooldown, wait)
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	var hits atomic.Int32
	c, ref := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Seek(context.Background(), 42000))
	assert.Equal(t, int32(1), ref.calls.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_UnauthorizedAfterRetry(t *testing.T) {
	var hits atomic.Int32
	c, ref := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.SetVolume(context.Background(), 30)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), ref.calls.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_NoActiveDevice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`))
	})

	err := c.Play(context.Background(), PlayRequest{})
	assert.ErrorIs(t, err, ErrNoActiveDevice)
}

func TestClient_PlayWithPositionSeeks(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		w.WriteHeader(http.StatusNoContent)
	})

	uri := "spotify:track:4uLU6hMCjMI75M1A2tKUQC"
	pos := int64(1500)
	require.NoError(t, c.Play(context.Background(), PlayRequest{TrackURI: &uri, PositionMs: &pos}))
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "/me/player/play")
	assert.Contains(t, paths[1], "/me/player/seek")
	assert.Contains(t, paths[1], "position_ms=1500")
}

func TestClient_State(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"device": {"id": "dev1", "is_active": true, "name": "phone", "type": "Smartphone", "volume_percent": 50},
			"progress_ms": 12000,
			"is_playing": true,
			"item": {"id": "4uLU6hMCjMI75M1A2tKUQC", "uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "name": "x", "duration_ms": 200000}
		}`))
	})

	st, err := c.State(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, int64(12000), st.ProgressMs)
	assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", st.TrackURI)
	assert.Equal(t, "dev1", st.DeviceID)
}

func TestCredentials_InvalidateForcesRefresh(t *testing.T) {
	ref := &refresherStub{}
	var saved *oauth2.Token
	creds := NewCredentials(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}, ref, func(tok *oauth2.Token) { saved = tok })

	tok, err := creds.Token()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Zero(t, ref.calls.Load())

	creds.Invalidate()
	tok, err = creds.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken, "refresh token carried over")
	require.NotNil(t, saved)
	assert.Equal(t, "fresh", saved.AccessToken)
}

func TestCredentials_RefreshFailure(t *testing.T) {
	ref := &refresherStub{err: errors.New("invalid_grant")}
	creds := NewCredentials(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}, ref, nil)

	_, err := creds.Token()
	assert.ErrorIs(t, err, ErrUnauthorized)

	noRefresh := NewCredentials(&oauth2.Token{AccessToken: "a"}, nil, nil)
	assert.ErrorIs(t, noRefresh.Refresh(context.Background()), ErrUnauthorized)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("-1", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
}
