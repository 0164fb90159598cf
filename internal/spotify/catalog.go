package spotify

import (
	"context"
	"strings"

	"tandem/internal/models"
	"tandem/internal/observability"

	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Catalog resolves track metadata with app-level (client credentials) access.
type Catalog struct {
	api *zspotify.Client
}

// NewCatalog creates a catalog client. Tokens are fetched lazily on first use.
func NewCatalog(ctx context.Context, clientID, clientSecret string, opts ...zspotify.ClientOption) *Catalog {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Catalog{api: zspotify.New(cfg.Client(ctx), opts...)}
}

// LookupTrack returns a RoomSpotifyTrack with the catalog metadata of trackID filled in.
func (c *Catalog) LookupTrack(ctx context.Context, trackID string) (*models.RoomSpotifyTrack, error) {
	ctx, span := observability.TraceProviderCall(ctx, "spotify", "lookup_track")
	defer span.End()

	t, err := c.api.GetTrack(ctx, zspotify.ID(trackID))
	if err != nil {
		observability.ProviderRequests.WithLabelValues("spotify", "lookup_track", "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	observability.ProviderRequests.WithLabelValues("spotify", "lookup_track", "ok").Inc()

	out := &models.RoomSpotifyTrack{
		TrackID:    trackID,
		TrackURI:   string(t.URI),
		Name:       t.Name,
		DurationMs: int(t.Duration),
	}
	if out.TrackURI == "" {
		out.TrackURI = TrackURI(trackID)
	}
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	out.Artist = strings.Join(names, ", ")
	if len(t.Album.Images) > 0 {
		out.AlbumArtURL = t.Album.Images[0].URL
	}
	return out, nil
}
