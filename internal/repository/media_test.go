package repository

import (
	"context"
	"testing"

	"tandem/internal/models"
	"tandem/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMediaRepository_ReplaceNotAppend(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMediaRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")

	first := &models.RoomSpotifyTrack{RoomID: room.RoomID, TrackID: "1", TrackURI: "spotify:track:1", AddedByUserID: "A"}
	second := &models.RoomSpotifyTrack{RoomID: room.RoomID, TrackID: "2", TrackURI: "spotify:track:2", AddedByUserID: "B"}
	require.NoError(t, repo.ReplaceSpotifyTrack(ctx, first))
	require.NoError(t, repo.ReplaceSpotifyTrack(ctx, second))

	var count int64
	db.Model(&models.RoomSpotifyTrack{}).Where("room_id = ?", room.RoomID).Count(&count)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetSpotifyTrack(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.TrackID)
	assert.Equal(t, "B", got.AddedByUserID)

	got.Name = "Renamed"
	require.NoError(t, repo.UpdateSpotifyTrack(ctx, got))
	got, err = repo.GetSpotifyTrack(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	n, err := repo.DeleteSpotifyTrack(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.GetSpotifyTrack(ctx, room.RoomID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMediaRepository_YouTubeVideo(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMediaRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")

	require.NoError(t, repo.ReplaceYouTubeVideo(ctx, &models.RoomYouTubeVideo{RoomID: room.RoomID, VideoID: "aaa", AddedByUserID: "A"}))
	require.NoError(t, repo.ReplaceYouTubeVideo(ctx, &models.RoomYouTubeVideo{RoomID: room.RoomID, VideoID: "bbb", AddedByUserID: "A"}))

	got, err := repo.GetYouTubeVideo(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "bbb", got.VideoID)

	n, err := repo.DeleteYouTubeVideo(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteYouTubeVideo(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
