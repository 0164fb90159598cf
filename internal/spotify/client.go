package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tandem/internal/observability"

	zspotify "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Client implements Player against the Spotify Web API for one user session.
type Client struct {
	api      *zspotify.Client
	creds    *Credentials
	deviceID *zspotify.ID
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL  string
	deviceID string
	base     http.RoundTripper
}

// WithBaseURL points the client at a different API root. Tests use an httptest server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithDeviceID targets a specific Spotify Connect device instead of the active one.
func WithDeviceID(id string) Option {
	return func(o *clientOptions) { o.deviceID = id }
}

// WithTransport sets the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// NewClient builds a Client that authenticates every request with creds.
func NewClient(creds *Credentials, opts ...Option) *Client {
	o := clientOptions{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &statusRecorder{
			base: &oauth2.Transport{Source: creds, Base: o.base},
		},
	}

	var apiOpts []zspotify.ClientOption
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		apiOpts = append(apiOpts, zspotify.WithBaseURL(base))
	}

	c := &Client{api: zspotify.New(httpClient, apiOpts...), creds: creds}
	if o.deviceID != "" {
		id := zspotify.ID(o.deviceID)
		c.deviceID = &id
	}
	return c
}

func (c *Client) Play(ctx context.Context, req PlayRequest) error {
	err := c.with(ctx, "play", func(ctx context.Context) error {
		opt := &zspotify.PlayOptions{DeviceID: c.deviceID}
		if req.TrackURI != nil {
			opt.URIs = []zspotify.URI{zspotify.URI(*req.TrackURI)}
		}
		return c.api.PlayOpt(ctx, opt)
	})
	if err != nil || req.PositionMs == nil || *req.PositionMs == 0 {
		return err
	}
	return c.Seek(ctx, *req.PositionMs)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.with(ctx, "pause", func(ctx context.Context) error {
		return c.api.PauseOpt(ctx, &zspotify.PlayOptions{DeviceID: c.deviceID})
	})
}

func (c *Client) Next(ctx context.Context) error {
	return c.with(ctx, "next", func(ctx context.Context) error {
		return c.api.NextOpt(ctx, &zspotify.PlayOptions{DeviceID: c.deviceID})
	})
}

func (c *Client) Previous(ctx context.Context) error {
	return c.with(ctx, "previous", func(ctx context.Context) error {
		return c.api.PreviousOpt(ctx, &zspotify.PlayOptions{DeviceID: c.deviceID})
	})
}

func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	return c.with(ctx, "seek", func(ctx context.Context) error {
		return c.api.SeekOpt(ctx, int(positionMs), &zspotify.PlayOptions{DeviceID: c.deviceID})
	})
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.with(ctx, "volume", func(ctx context.Context) error {
		return c.api.VolumeOpt(ctx, percent, &zspotify.PlayOptions{DeviceID: c.deviceID})
	})
}

func (c *Client) State(ctx context.Context) (*PlayerState, error) {
	var out *PlayerState
	err := c.with(ctx, "state", func(ctx context.Context) error {
		st, err := c.api.PlayerState(ctx)
		if err != nil {
			return err
		}
		out = &PlayerState{
			IsPlaying:  st.Playing,
			ProgressMs: int64(st.Progress),
			DeviceID:   string(st.Device.ID),
		}
		if st.Item != nil {
			out.TrackURI = string(st.Item.URI)
			out.DurationMs = int64(st.Item.Duration)
		}
		return nil
	})
	return out, err
}

// with runs one API call: acquire credentials, call, refresh once on 401 and retry,
// then classify whatever error is left.
func (c *Client) with(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := observability.TraceProviderCall(ctx, "spotify", operation)
	defer span.End()

	rec := &callRecord{}
	ctx = context.WithValue(ctx, callRecordKey{}, rec)

	err := fn(ctx)
	if err != nil && rec.unauthorized(err) {
		if rerr := c.creds.Refresh(ctx); rerr == nil {
			rec.reset()
			err = fn(ctx)
		}
	}

	err = rec.classify(operation, err)
	observability.ProviderRequests.WithLabelValues("spotify", operation, resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func resultLabel(err error) string {
	var rl *RateLimitError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoActiveDevice):
		return "no_device"
	default:
		return "error"
	}
}

type callRecordKey struct{}

// callRecord captures the last response status of one logical call. The zmb3 client
// does not expose Retry-After and loses the status for empty error bodies.
type callRecord struct {
	status     int
	retryAfter time.Duration
}

func (r *callRecord) reset() {
	r.status = 0
	r.retryAfter = 0
}

func (r *callRecord) statusOf(err error) int {
	if r.status >= 400 {
		return r.status
	}
	var apiErr zspotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func (r *callRecord) unauthorized(err error) bool {
	return r.statusOf(err) == http.StatusUnauthorized || errors.Is(err, ErrUnauthorized)
}

func (r *callRecord) classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch r.statusOf(err) {
	case http.StatusTooManyRequests:
		wait := r.retryAfter
		if wait <= 0 {
			wait = DefaultCooldown
		}
		return &RateLimitError{RetryAfter: wait}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, operation)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNoActiveDevice, operation)
	}
	if errors.Is(err, ErrUnauthorized) {
		return err
	}
	return fmt.Errorf("spotify %s: %w", operation, err)
}

// statusRecorder stores the response status and Retry-After in the callRecord
// carried by the request context.
type statusRecorder struct {
	base http.RoundTripper
}

func (t *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if rec, ok := req.Context().Value(callRecordKey{}).(*callRecord); ok {
		rec.status = resp.StatusCode
		if resp.StatusCode == http.StatusTooManyRequests {
			rec.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
	}
	return resp, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
