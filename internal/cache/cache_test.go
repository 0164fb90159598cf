package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Version int64 `json:"version"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_FetchesOnceThenServesFromRedis(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *snapshot) func() error {
		return func() error {
			calls++
			dest.Version = 7
			return nil
		}
	}

	var first snapshot
	require.NoError(t, Aside(ctx, PlaybackKey("r1"), &first, PlaybackTTL, fetch(&first)))
	var second snapshot
	require.NoError(t, Aside(ctx, PlaybackKey("r1"), &second, PlaybackTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(7), second.Version)
	assert.True(t, mr.Exists("room:r1:playback"))

	mr.FastForward(PlaybackTTL)
	var third snapshot
	require.NoError(t, Aside(ctx, PlaybackKey("r1"), &third, PlaybackTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var dest snapshot
	err := Aside(context.Background(), PlaybackKey("r2"), &dest, PlaybackTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("room:r2:playback"))
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	mr := useMiniredis(t)
	mr.Close()

	var dest snapshot
	err := Aside(context.Background(), PlaybackKey("r3"), &dest, PlaybackTTL, func() error {
		dest.Version = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), dest.Version)
}

func TestInvalidatePlayback(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, PlaybackKey("r4"), snapshot{Version: 1}, PlaybackTTL))

	InvalidatePlayback(ctx, "r4")
	assert.False(t, mr.Exists("room:r4:playback"))
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	found, err := GetJSON(context.Background(), "x", &snapshot{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(context.Background(), "x", snapshot{}, PlaybackTTL))
	Invalidate(context.Background(), "x")
}
