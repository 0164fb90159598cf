package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestParseVideoID(t *testing.T) {
	const id = "dQw4w9WgXcQ"
	valid := []string{
		id,
		"https://www.youtube.com/watch?v=" + id,
		"https://m.youtube.com/watch?v=" + id + "&t=42s",
		"https://youtu.be/" + id,
		"https://www.youtube.com/embed/" + id,
		"https://youtube.com/shorts/" + id,
	}
	for _, in := range valid {
		got, err := ParseVideoID(in)
		require.NoError(t, err, in)
		assert.Equal(t, id, got, in)
	}

	invalid := []string{"", "short", "https://vimeo.com/" + id, "https://www.youtube.com/watch?list=abc", "https://www.youtube.com/channel/" + id}
	for _, in := range invalid {
		_, err := ParseVideoID(in)
		assert.ErrorIs(t, err, ErrInvalidVideo, in)
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 253, ParseDuration("PT4M13S"))
	assert.Equal(t, 3723, ParseDuration("PT1H2M3S"))
	assert.Equal(t, 86400+60, ParseDuration("P1DT1M"))
	assert.Equal(t, 0, ParseDuration("P0D"))
	assert.Equal(t, 0, ParseDuration("nonsense"))
}

func TestClient_LookupVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("id") != "dQw4w9WgXcQ" {
			_, _ = w.Write([]byte(`{"items": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{
			"id": "dQw4w9WgXcQ",
			"snippet": {"title": "Song", "channelTitle": "Channel",
				"thumbnails": {"default": {"url": "https://i.ytimg.com/d.jpg"}, "high": {"url": "https://i.ytimg.com/h.jpg"}}},
			"contentDetails": {"duration": "PT3M33S"}
		}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "k", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	v, err := c.LookupVideo(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Song", v.Title)
	assert.Equal(t, "Channel", v.ChannelTitle)
	assert.Equal(t, "https://i.ytimg.com/h.jpg", v.ThumbnailURL)
	assert.Equal(t, 213, v.DurationSeconds)

	_, err = c.LookupVideo(context.Background(), "aaaaaaaaaaa")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
