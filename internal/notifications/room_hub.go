package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"tandem/internal/models"
	"tandem/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user, across rooms and devices
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrHubClosed     = errors.New("hub is shutting down")
	ErrServerFull    = errors.New("server connection limit reached")
	ErrUserConnLimit = errors.New("user connection limit reached")
	ErrMissingRoomID = errors.New("room id is required")
)

var pongFrame = []byte(`{"type":"pong"}`)

// RoomHub maps roomID -> connected device clients. Every device subscribes to exactly
// one room; membership is checked by the HTTP layer before Register.
type RoomHub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]struct{}
	userConns  map[string]int
	userRooms  map[string]string
	totalConns int
	closed     bool

	presence *ConnectionManager
	notifier *Notifier
	logger   *observability.WSLogger
}

// NewRoomHub creates a hub. The optional Redis client backs cross-instance presence.
func NewRoomHub(redisClients ...*redis.Client) *RoomHub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	h := &RoomHub{
		rooms:     make(map[string]map[*Client]struct{}),
		userConns: make(map[string]int),
		userRooms: make(map[string]string),
		logger:    observability.NewWSLogger("room hub"),
	}
	h.presence = NewConnectionManager(redisClient, ConnectionManagerConfig{
		OnUserOnline:  func(userID string) { h.announcePresence(userID, true) },
		OnUserOffline: func(userID string) { h.announcePresence(userID, false) },
	})
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *RoomHub) Name() string { return "room hub" }

// Register subscribes a device connection to a room.
func (h *RoomHub) Register(userID, roomID string, conn *websocket.Conn) (*Client, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	if h.userConns[userID] >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, userID, roomID)
	client.OnActivity = func(uid string) {
		h.presence.Touch(context.Background(), uid)
	}
	client.IncomingHandler = handleClientFrame

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[client] = struct{}{}
	h.userConns[userID]++
	h.userRooms[userID] = roomID
	h.totalConns++
	observability.WebSocketRoomConnections.WithLabelValues(roomID).Set(float64(len(members)))
	observability.WebSocketConnectionsTotal.Set(float64(h.totalConns))
	h.mu.Unlock()

	h.presence.Register(context.Background(), userID)
	h.logger.LogConnect(context.Background(), userID, roomID)
	return client, nil
}

// UnregisterClient removes a client and closes its send channel. Safe to call twice.
func (h *RoomHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if members, ok := h.rooms[client.RoomID]; ok {
		if _, exists := members[client]; exists {
			delete(members, client)
			close(client.Send)
			removed = true
			h.totalConns--
			if n := h.userConns[client.UserID] - 1; n > 0 {
				h.userConns[client.UserID] = n
			} else {
				delete(h.userConns, client.UserID)
			}
		}
		if len(members) == 0 {
			delete(h.rooms, client.RoomID)
			observability.WebSocketRoomConnections.DeleteLabelValues(client.RoomID)
		} else {
			observability.WebSocketRoomConnections.WithLabelValues(client.RoomID).Set(float64(len(members)))
		}
	}
	observability.WebSocketConnectionsTotal.Set(float64(h.totalConns))
	h.mu.Unlock()

	if removed {
		h.presence.Unregister(context.Background(), client.UserID)
		h.logger.LogDisconnect(context.Background(), client.UserID, client.RoomID, "unregistered")
	}
}

// BroadcastRoom sends message to every device subscribed to roomID and returns how
// many accepted it without dropping.
func (h *RoomHub) BroadcastRoom(roomID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[roomID] {
		if c.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// ConnectionCount reports how many devices are subscribed to roomID on this instance.
func (h *RoomHub) ConnectionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// IsOnline reports whether a user has a connected device on any instance.
func (h *RoomHub) IsOnline(userID string) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// StartWiring connects the Notifier to this hub: every event published for a room is
// forwarded to the devices subscribed to it here.
func (h *RoomHub) StartWiring(ctx context.Context, n *Notifier) error {
	h.mu.Lock()
	h.notifier = n
	h.mu.Unlock()

	return n.StartRoomSubscriber(ctx, func(channel, payload string) {
		roomID, ok := RoomIDFromChannel(channel)
		if !ok {
			h.logger.LogError(ctx, "", "", errors.New("invalid room channel "+channel), "route")
			return
		}
		h.BroadcastRoom(roomID, []byte(payload))
	})
}

func (h *RoomHub) announcePresence(userID string, online bool) {
	h.mu.Lock()
	roomID := h.userRooms[userID]
	if !online {
		delete(h.userRooms, userID)
	}
	n := h.notifier
	h.mu.Unlock()

	if n == nil || roomID == "" {
		return
	}
	ev, err := models.NewRoomEvent(models.EventPresence, roomID, models.PresencePayload{UserID: userID, Online: online})
	if err == nil {
		err = n.PublishRoomEvent(context.Background(), ev)
	}
	if err != nil {
		observability.ReportSwallowed(context.Background(), "publish_presence", err, map[string]interface{}{
			"room_id": roomID,
			"user_id": userID,
		})
		return
	}
	observability.RealtimeEvents.WithLabelValues(models.EventPresence).Inc()
}

// handleClientFrame answers application-level pings; devices otherwise only listen.
func handleClientFrame(c *Client, message []byte) {
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}
	if frame.Type == "ping" {
		c.TrySend(pongFrame)
	}
}

// Shutdown gracefully closes all websocket connections
func (h *RoomHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true

	var clients []*Client
	for _, members := range h.rooms {
		for client := range members {
			clients = append(clients, client)
		}
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				h.logger.LogError(ctx, client.UserID, client.RoomID, err, "close_message")
			}
			if err := client.Conn.Close(); err != nil {
				h.logger.LogError(ctx, client.UserID, client.RoomID, err, "close")
			}
		}
		h.UnregisterClient(client)
	}
	h.presence.Stop()

	h.logger.LogLifecycle(ctx, "shutdown", map[string]interface{}{"closed_clients": len(clients)})
	return nil
}
