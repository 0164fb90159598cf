package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tandem_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketRoomConnections is the gauge of connections per room.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tandem_websocket_room_connections",
		Help: "Number of WebSocket connections per room",
	}, []string{"room_id"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tandem_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// RealtimeEvents counts room events fanned out to devices, by type.
	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_realtime_events_total",
		Help: "Total room events published by type",
	}, []string{"type"})

	// PlaybackCommands counts accepted playback commands by kind.
	PlaybackCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_playback_commands_total",
		Help: "Total playback commands accepted by kind",
	}, []string{"command"})

	// PlaybackCommandsPruned counts command-log rows removed by retention.
	PlaybackCommandsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tandem_playback_commands_pruned_total",
		Help: "Total playback commands deleted by retention",
	})

	// PlaybackStateConflicts counts rejected playback_state writes with a stale version.
	PlaybackStateConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tandem_playback_state_conflicts_total",
		Help: "Total playback state writes rejected because of a version mismatch",
	})

	// SwallowedErrors counts errors from best-effort paths, by operation.
	SwallowedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_swallowed_errors_total",
		Help: "Total errors intentionally not surfaced to callers",
	}, []string{"operation"})

	// AgentCommands counts device agent command outcomes (executed, dropped, self, duplicate, failed).
	AgentCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_agent_commands_total",
		Help: "Commands seen by the device listener by outcome",
	}, []string{"outcome"})

	// ProviderRequests counts calls to third-party playback providers by status.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_provider_requests_total",
		Help: "Requests made to media providers by provider, operation, and result",
	}, []string{"provider", "operation", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
