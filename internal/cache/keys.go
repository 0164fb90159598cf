package cache

import (
	"context"
	"fmt"
	"time"
)

const PlaybackKeyPrefix = "room:%s:playback"

// PlaybackTTL bounds how stale a cached snapshot can be when an invalidation is missed.
const PlaybackTTL = 30 * time.Second

func PlaybackKey(roomID string) string {
	return fmt.Sprintf(PlaybackKeyPrefix, roomID)
}

func InvalidatePlayback(ctx context.Context, roomID string) {
	Invalidate(ctx, PlaybackKey(roomID))
}
