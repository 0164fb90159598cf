package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"tandem/internal/models"
	"tandem/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPlaybackCommandRepository_CreateAndListRecent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPlaybackCommandRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")
	other := testutil.CreateRoom(t, db, "C", "")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.CreateCommand(t, db, room.RoomID, "pause", base.Add(time.Duration(i)*time.Second))
	}
	testutil.CreateCommand(t, db, other.RoomID, "play", base.Add(time.Minute))

	cmd := &models.PlaybackCommand{
		RoomID:            room.RoomID,
		Command:           "seek",
		PositionMs:        testutil.Ptr[int64](3000),
		RequestedAt:       time.Now().Add(-time.Second),
		RequestedByUserID: testutil.Ptr("B"),
	}
	require.NoError(t, repo.Create(ctx, cmd))
	assert.NotZero(t, cmd.ID)

	recent, err := repo.ListRecent(ctx, room.RoomID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, cmd.ID, recent[0].ID)
	assert.Equal(t, "B", *recent[0].RequestedByUserID)
	assert.False(t, recent[0].CreatedAt.Before(recent[0].RequestedAt))
	assert.True(t, recent[1].CreatedAt.After(recent[2].CreatedAt))
	for _, c := range recent {
		assert.Equal(t, room.RoomID, c.RoomID)
	}

	count, err := repo.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	got, err := repo.GetByID(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), *got.PositionMs)
}

func TestPlaybackCommandRepository_PruneKeepsNewest(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPlaybackCommandRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")

	base := time.Now().Add(-time.Hour)
	var ids []uint
	for i := 0; i < 51; i++ {
		c := testutil.CreateCommand(t, db, room.RoomID, "next", base.Add(time.Duration(i)*time.Second))
		ids = append(ids, c.ID)
	}

	deleted, err := repo.Prune(ctx, room.RoomID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := repo.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)

	_, err = repo.GetByID(ctx, ids[0])
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// second prune with no intervening insert changes nothing
	deleted, err = repo.Prune(ctx, room.RoomID, 50)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	count, err = repo.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}

func TestPlaybackCommandRepository_PruneTiesAndSmallLogs(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPlaybackCommandRepository(db)
	ctx := context.Background()
	room := testutil.CreateRoom(t, db, "A", "B")

	deleted, err := repo.Prune(ctx, room.RoomID, 50)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	same := time.Now().Add(-time.Minute)
	for i := 0; i < 4; i++ {
		testutil.CreateCommand(t, db, room.RoomID, "pause", same)
	}

	deleted, err = repo.Prune(ctx, room.RoomID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := repo.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPlaybackCommandRepository_PruneStoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "playback_commands"`).WillReturnError(errors.New("connection reset"))

	repo := NewPlaybackCommandRepository(db)
	_, err = repo.Prune(context.Background(), "room-1", 50)
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
