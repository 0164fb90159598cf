// Package agent is the device side of a paired room: it sends playback commands,
// executes the partner's commands while this device is the controller, and keeps the
// local player in step with the room's shared playback state.
package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the device agent's settings, loaded from agent.yml and TANDEM_* variables.
type Config struct {
	APIURL              string        `mapstructure:"API_URL"`
	WSURL               string        `mapstructure:"WS_URL"`
	RoomID              string        `mapstructure:"ROOM_ID"`
	UserID              string        `mapstructure:"USER_ID"`
	APIToken            string        `mapstructure:"API_TOKEN"`
	SpotifyTokenFile    string        `mapstructure:"SPOTIFY_TOKEN_FILE"`
	SpotifyClientID     string        `mapstructure:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string        `mapstructure:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURL  string        `mapstructure:"SPOTIFY_REDIRECT_URL"`
	SpotifyDeviceID     string        `mapstructure:"SPOTIFY_DEVICE_ID"`
	PollInterval        time.Duration `mapstructure:"POLL_INTERVAL"`
	Debounce            time.Duration `mapstructure:"DEBOUNCE"`
	Cooldown            time.Duration `mapstructure:"COOLDOWN"`
}

var configDefaults = map[string]interface{}{
	"API_URL":               "http://localhost:8375/api",
	"WS_URL":                "",
	"ROOM_ID":               "",
	"USER_ID":               "",
	"API_TOKEN":             "",
	"SPOTIFY_TOKEN_FILE":    "spotify_token.json",
	"SPOTIFY_CLIENT_ID":     "",
	"SPOTIFY_CLIENT_SECRET": "",
	"SPOTIFY_REDIRECT_URL":  "http://127.0.0.1:8976/callback",
	"SPOTIFY_DEVICE_ID":     "",
	"POLL_INTERVAL":         7 * time.Second,
	"DEBOUNCE":              50 * time.Millisecond,
	"COOLDOWN":              5 * time.Second,
}

// LoadConfig reads agent.yml from the working directory or ~/.tandem, then the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("agent")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.tandem")
	v.SetEnvPrefix("TANDEM")
	v.AutomaticEnv()

	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read agent.yml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.WSURL == "" {
		c.WSURL = deriveWSURL(c.APIURL)
	}
	c.WSURL = strings.TrimRight(c.WSURL, "/")
}

// deriveWSURL maps http(s)://host/api to ws(s)://host/api.
func deriveWSURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://")
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://")
	default:
		return apiURL
	}
}

// Validate checks the settings needed to join a room.
func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("API_URL is required"))
	}
	if c.RoomID == "" {
		errs = append(errs, errors.New("ROOM_ID is required"))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("USER_ID is required"))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("DEBOUNCE must not be negative"))
	}
	if c.Cooldown <= 0 {
		errs = append(errs, errors.New("COOLDOWN must be positive"))
	}
	return errors.Join(errs...)
}
