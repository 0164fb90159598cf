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

func TestRoomRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	t.Run("Create assigns id and derives filled", func(t *testing.T) {
		room := &models.Room{User1: testutil.Ptr("a")}
		require.NoError(t, repo.Create(ctx, room))
		assert.NotEmpty(t, room.RoomID)
		assert.False(t, room.Filled)

		got, err := repo.GetByID(ctx, room.RoomID)
		require.NoError(t, err)
		assert.Equal(t, "a", *got.User1)
		assert.Nil(t, got.User2)
	})

	t.Run("ClaimSlot fills the room once", func(t *testing.T) {
		room := testutil.CreateRoom(t, db, "c", "")

		require.NoError(t, repo.ClaimSlot(ctx, room.RoomID, SlotUser2, "d"))
		got, err := repo.GetByID(ctx, room.RoomID)
		require.NoError(t, err)
		assert.True(t, got.Filled)
		assert.Equal(t, "d", *got.User2)

		err = repo.ClaimSlot(ctx, room.RoomID, SlotUser2, "e")
		assert.ErrorIs(t, err, ErrSlotTaken)

		err = repo.ClaimSlot(ctx, "missing", SlotUser2, "e")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("ReleaseUser clears the slot and filled", func(t *testing.T) {
		room := testutil.CreateRoom(t, db, "f", "g")

		require.NoError(t, repo.ReleaseUser(ctx, room.RoomID, "f"))
		got, err := repo.GetByID(ctx, room.RoomID)
		require.NoError(t, err)
		assert.Nil(t, got.User1)
		assert.Equal(t, "g", *got.User2)
		assert.False(t, got.Filled)

		// claiming the freed slot refills the room from both columns
		require.NoError(t, repo.ClaimSlot(ctx, room.RoomID, SlotUser1, "h"))
		got, err = repo.GetByID(ctx, room.RoomID)
		require.NoError(t, err)
		assert.True(t, got.Filled)
	})

	t.Run("GetForUser", func(t *testing.T) {
		room := testutil.CreateRoom(t, db, "i", "j")
		got, err := repo.GetForUser(ctx, "j")
		require.NoError(t, err)
		assert.Equal(t, room.RoomID, got.RoomID)

		_, err = repo.GetForUser(ctx, "nobody")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		room := testutil.CreateRoom(t, db, "k", "")
		require.NoError(t, repo.Delete(ctx, room.RoomID))
		assert.ErrorIs(t, repo.Delete(ctx, room.RoomID), gorm.ErrRecordNotFound)
	})
}

func TestRoomRepository_PlaybackStateVersioning(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")

	snap, err := repo.GetPlaybackState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Version)
	assert.False(t, snap.State.IsPlaying)

	state := models.PlaybackState{
		IsPlaying:          true,
		CurrentTrackURI:    testutil.Ptr("spotify:track:X"),
		ControlledByUserID: testutil.Ptr("A"),
	}

	// unconditional write still bumps the version
	v1, err := repo.UpdatePlaybackState(ctx, room.RoomID, state, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	// matching expected version wins
	state.ProgressMs = 1000
	v2, err := repo.UpdatePlaybackState(ctx, room.RoomID, state, &v1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	// the other device writing against the old version loses
	_, err = repo.UpdatePlaybackState(ctx, room.RoomID, models.PlaybackState{}, &v1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	snap, err = repo.GetPlaybackState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, int64(1000), snap.State.ProgressMs)
	assert.Equal(t, "spotify:track:X", *snap.State.CurrentTrackURI)
	assert.Equal(t, "A", *snap.State.ControlledByUserID)

	_, err = repo.UpdatePlaybackState(ctx, "missing", state, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
