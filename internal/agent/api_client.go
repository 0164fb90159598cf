package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// APIClient talks to the room REST endpoints on behalf of one user.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient creates a client for baseURL (including the /api prefix).
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SendCommand appends a command to the room's log.
func (c *APIClient) SendCommand(ctx context.Context, roomID string, p playback.Payload) (*models.PlaybackCommand, error) {
	var out models.PlaybackCommand
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "playback-command"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCommands returns up to limit recent commands, newest first.
func (c *APIClient) ListCommands(ctx context.Context, roomID string, limit int) ([]models.PlaybackCommand, error) {
	path := roomPath(roomID, "playback-commands") + "?limit=" + strconv.Itoa(limit)
	var out []models.PlaybackCommand
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPlayback reads the room's shared playback state.
func (c *APIClient) GetPlayback(ctx context.Context, roomID string) (*models.PlaybackSnapshot, error) {
	var out models.PlaybackSnapshot
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "playback"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutPlayback replaces the room's playback state. A non-nil version makes it conditional.
func (c *APIClient) PutPlayback(ctx context.Context, roomID string, state models.PlaybackState, version *int64) (*models.PlaybackSnapshot, error) {
	body := models.PlaybackUpdateRequest{PlaybackState: state, Version: version}
	var out models.PlaybackSnapshot
	if err := c.do(ctx, http.MethodPut, roomPath(roomID, "playback"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func roomPath(roomID, tail string) string {
	return "/rooms/" + url.PathEscape(roomID) + "/" + tail
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er models.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er) == nil && er.Error != "" {
			apiErr.Code = er.Code
			apiErr.Message = er.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
