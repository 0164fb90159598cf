package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GlobalLogger
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { GlobalLogger = prev })
	return &buf
}

func TestReportSwallowed_LogsAndCounts(t *testing.T) {
	buf := captureLogs(t)
	before := testutil.ToFloat64(SwallowedErrors.WithLabelValues("autoplay"))

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ReportSwallowed(ctx, "autoplay", errors.New("no active device"), map[string]interface{}{
		"room_id": "room-1",
	})

	assert.Equal(t, before+1, testutil.ToFloat64(SwallowedErrors.WithLabelValues("autoplay")))
	out := buf.String()
	assert.Contains(t, out, `"operation":"autoplay"`)
	assert.Contains(t, out, `"error":"no active device"`)
	assert.Contains(t, out, `"room_id":"room-1"`)
	assert.Contains(t, out, `"correlation_id":"corr-1"`)
	assert.Contains(t, out, `"level":"WARN"`)
}

func TestReportSwallowed_NilErrorIsIgnored(t *testing.T) {
	buf := captureLogs(t)
	before := testutil.ToFloat64(SwallowedErrors.WithLabelValues("prune"))

	ReportSwallowed(context.Background(), "prune", nil, nil)

	assert.Equal(t, before, testutil.ToFloat64(SwallowedErrors.WithLabelValues("prune")))
	assert.Empty(t, buf.String())
}

func TestRepoLogger_RespectsConfig(t *testing.T) {
	buf := captureLogs(t)
	Config.EnableRepoLogging = false
	t.Cleanup(func() { Config.EnableRepoLogging = true })

	NewRepoLogger("room").LogError(context.Background(), errors.New("boom"), "update")
	assert.Empty(t, buf.String())

	Config.EnableRepoLogging = true
	NewRepoLogger("room").LogError(context.Background(), errors.New("boom"), "update")
	assert.Contains(t, buf.String(), `"table":"room"`)
}
