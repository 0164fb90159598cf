// Package youtube resolves shared-video references and their metadata through the
// YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"tandem/internal/models"
	"tandem/internal/observability"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

var (
	// ErrInvalidVideo is returned for input that is neither a video id nor a YouTube link.
	ErrInvalidVideo = errors.New("youtube: invalid video reference")
	// ErrVideoNotFound is returned when the API knows no video with that id.
	ErrVideoNotFound = errors.New("youtube: video not found")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID accepts a bare id or a watch, short, embed or youtu.be link.
func ParseVideoID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if videoIDPattern.MatchString(ref) {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideo
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(parts) == 1 && parts[0] == "watch":
			id = u.Query().Get("v")
		case len(parts) == 2 && (parts[0] == "embed" || parts[0] == "shorts" || parts[0] == "live" || parts[0] == "v"):
			id = parts[1]
		}
	}
	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidVideo
	}
	return id, nil
}

// Client looks up video metadata.
type Client struct {
	svc *ytapi.Service
}

// NewClient creates an API-key authenticated client. Extra options (endpoint,
// HTTP client) are passed through to the generated service.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// LookupVideo returns a RoomYouTubeVideo with title, channel, thumbnail and duration filled in.
func (c *Client) LookupVideo(ctx context.Context, videoID string) (*models.RoomYouTubeVideo, error) {
	ctx, span := observability.TraceProviderCall(ctx, "youtube", "lookup_video")
	defer span.End()

	resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		observability.ProviderRequests.WithLabelValues("youtube", "lookup_video", "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	if len(resp.Items) == 0 {
		observability.ProviderRequests.WithLabelValues("youtube", "lookup_video", "not_found").Inc()
		return nil, ErrVideoNotFound
	}
	observability.ProviderRequests.WithLabelValues("youtube", "lookup_video", "ok").Inc()

	item := resp.Items[0]
	out := &models.RoomYouTubeVideo{VideoID: videoID}
	if s := item.Snippet; s != nil {
		out.Title = s.Title
		out.ChannelTitle = s.ChannelTitle
		out.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	if cd := item.ContentDetails; cd != nil {
		out.DurationSeconds = ParseDuration(cd.Duration)
	}
	return out, nil
}

func bestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts the API's ISO 8601 duration (PT1H2M3S) to seconds.
// Unparseable input yields 0.
func ParseDuration(iso string) int {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * unit
	}
	return total
}
