// Package notifications fans room events out to the devices connected to a room.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"tandem/internal/middleware"
	"tandem/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	roomChannelPrefix  = "room:"
	roomChannelPattern = roomChannelPrefix + "*"
)

// Notifier publishes room events on Redis so every API instance can reach its devices.
// Without Redis it delivers in-process to the subscriber registered on it.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(channel, payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishRoomEvent sends an event envelope to the room's channel.
func (n *Notifier) PublishRoomEvent(ctx context.Context, event models.RoomEvent) error {
	if event.RoomID == "" {
		return fmt.Errorf("publish %s event: missing room id", event.Type)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.PublishRaw(ctx, event.RoomID, string(payload))
}

// PublishRaw sends an already encoded envelope to the room's channel.
func (n *Notifier) PublishRaw(ctx context.Context, roomID, payload string) error {
	channel := RoomChannel(roomID)
	if n.rdb == nil {
		n.mu.RLock()
		local := n.local
		n.mu.RUnlock()
		if local != nil {
			deliver("local room subscriber", local, channel, payload)
		}
		return nil
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartRoomSubscriber subscribes to `room:*` and calls onMessage for every event.
// The subscription is confirmed before returning so publishes made afterwards are not lost.
func (n *Notifier) StartRoomSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local = onMessage
		n.mu.Unlock()
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, roomChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", roomChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver("room subscriber", onMessage, msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

func deliver(name string, fn func(channel, payload string), channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in "+name,
				"channel", channel,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(channel, payload)
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// RoomIDFromChannel extracts the room id from a channel built by RoomChannel.
func RoomIDFromChannel(channel string) (string, bool) {
	roomID, ok := strings.CutPrefix(channel, roomChannelPrefix)
	if !ok || roomID == "" || strings.Contains(roomID, ":") {
		return "", false
	}
	return roomID, true
}
