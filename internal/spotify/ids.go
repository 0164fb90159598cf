package spotify

import (
	"net/url"
	"strings"
)

const trackURIPrefix = "spotify:track:"

// ParseTrackID extracts the track id from a spotify:track URI, an open.spotify.com
// link, or a bare id.
func ParseTrackID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, trackURIPrefix):
		ref = strings.TrimPrefix(ref, trackURIPrefix)
	case strings.Contains(ref, "://"):
		u, err := url.Parse(ref)
		if err != nil || !strings.HasSuffix(u.Host, "spotify.com") {
			return "", ErrInvalidTrack
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// links may carry a locale segment: /intl-de/track/<id>
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", ErrInvalidTrack
		}
		ref = parts[len(parts)-1]
	}
	if !validID(ref) {
		return "", ErrInvalidTrack
	}
	return ref, nil
}

// TrackURI renders a track id as a spotify:track URI.
func TrackURI(id string) string {
	return trackURIPrefix + id
}

func validID(id string) bool {
	if len(id) != 22 {
		return false
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
