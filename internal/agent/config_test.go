package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8375/api", deriveWSURL("http://localhost:8375/api"))
	assert.Equal(t, "wss://tandem.example/api", deriveWSURL("https://tandem.example/api"))
	assert.Equal(t, "ws://already", deriveWSURL("ws://already"))
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TANDEM_API_URL", "https://tandem.example/api/")
	t.Setenv("TANDEM_ROOM_ID", "room-1")
	t.Setenv("TANDEM_USER_ID", "alice")
	t.Setenv("TANDEM_API_TOKEN", "tok")
	t.Setenv("TANDEM_DEBOUNCE", "80ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://tandem.example/api", cfg.APIURL)
	assert.Equal(t, "wss://tandem.example/api", cfg.WSURL)
	assert.Equal(t, 80*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 7*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Cooldown)
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{APIURL: "http://x", Debounce: -1}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"ROOM_ID", "USER_ID", "API_TOKEN", "POLL_INTERVAL", "DEBOUNCE", "COOLDOWN"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "API_URL")
}
