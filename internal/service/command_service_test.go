package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tandem/internal/models"
	"tandem/internal/playback"
	"tandem/internal/repository"
	"tandem/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandRepoStub struct {
	repository.PlaybackCommandRepository
	createErr error
	pruneErr  error
}

func (s *commandRepoStub) Create(ctx context.Context, cmd *models.PlaybackCommand) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.PlaybackCommandRepository.Create(ctx, cmd)
}

func (s *commandRepoStub) Prune(ctx context.Context, roomID string, keep int) (int64, error) {
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	return s.PlaybackCommandRepository.Prune(ctx, roomID, keep)
}

func TestCommandService_SendRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc := NewCommandService(f.rooms, f.commands, f.pub, 0)
	ctx := context.Background()
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	requestedAt := time.Now().Add(-2 * time.Second)
	cmd, err := svc.Send(ctx, room.RoomID, "bob", playback.Payload{
		Command:           "play",
		TrackURI:          testutil.Ptr("spotify:track:4uLU6hMCjMI75M1A2tKUQC"),
		PositionMs:        testutil.Ptr[int64](5000),
		RequestedAt:       &requestedAt,
		RequestedByUserID: testutil.Ptr("bob"),
	})
	require.NoError(t, err)
	assert.NotZero(t, cmd.ID)

	recent, err := svc.ListRecent(ctx, room.RoomID, "alice", 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "bob", *recent[0].RequestedByUserID)
	assert.Equal(t, "play", recent[0].Command)
	assert.False(t, recent[0].CreatedAt.Before(recent[0].RequestedAt))

	events := f.pub.eventsOfType(models.EventPlaybackCommand)
	require.Len(t, events, 1)
	var published models.PlaybackCommand
	require.NoError(t, json.Unmarshal(events[0].Payload, &published))
	assert.Equal(t, cmd.ID, published.ID)
	assert.Equal(t, room.RoomID, events[0].RoomID)
}

func TestCommandService_SendStampsCallerAndClampsFutureRequests(t *testing.T) {
	f := newFixture(t)
	svc := NewCommandService(f.rooms, f.commands, nil, 0)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	future := now.Add(time.Minute)
	cmd, err := svc.Send(context.Background(), room.RoomID, "alice", playback.Payload{
		Action:      "skip",
		RequestedAt: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, "next", cmd.Command)
	assert.Equal(t, "skip", cmd.Action)
	assert.Equal(t, "alice", *cmd.RequestedByUserID)
	assert.True(t, cmd.RequestedAt.Equal(now))
	assert.True(t, cmd.CreatedAt.Equal(now))
}

func TestCommandService_SendRejections(t *testing.T) {
	f := newFixture(t)
	svc := NewCommandService(f.rooms, f.commands, f.pub, 0)
	ctx := context.Background()
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	tests := []struct {
		name    string
		roomID  string
		caller  string
		payload playback.Payload
		code    string
	}{
		{"seek without position", room.RoomID, "alice", playback.Payload{Command: "seek"}, models.CodeValidation},
		{"negative seek", room.RoomID, "alice", playback.Payload{Command: "seek", PositionMs: testutil.Ptr[int64](-1)}, models.CodeValidation},
		{"volume out of range", room.RoomID, "alice", playback.Payload{Command: "volume", Volume: testutil.Ptr(101)}, models.CodeValidation},
		{"unknown command", room.RoomID, "alice", playback.Payload{Command: "rewind"}, models.CodeValidation},
		{"empty payload", room.RoomID, "alice", playback.Payload{}, models.CodeValidation},
		{"unknown room", "nope", "alice", playback.Payload{Command: "pause"}, models.CodeNotFound},
		{"not a member", room.RoomID, "mallory", playback.Payload{Command: "pause"}, models.CodeForbidden},
		{"impersonation", room.RoomID, "alice", playback.Payload{Command: "pause", RequestedByUserID: testutil.Ptr("bob")}, models.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, tt.roomID, tt.caller, tt.payload)
			requireAppCode(t, err, tt.code)
		})
	}

	count, err := f.commands.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected commands leave no rows")
	assert.Empty(t, f.pub.Calls)
}

func TestCommandService_RetainsNewestFifty(t *testing.T) {
	f := newFixture(t)
	svc := NewCommandService(f.rooms, f.commands, nil, DefaultCommandRetention)
	ctx := context.Background()
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	base := time.Now().Add(-time.Hour)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	var ids []uint
	for i := 0; i < 51; i++ {
		cmd, err := svc.Send(ctx, room.RoomID, "alice", playback.Payload{Command: "pause"})
		require.NoError(t, err)
		ids = append(ids, cmd.ID)
	}

	count, err := f.commands.Count(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)

	kept, err := svc.ListRecent(ctx, room.RoomID, "alice", 100)
	require.NoError(t, err)
	require.Len(t, kept, 50)
	assert.Equal(t, ids[50], kept[0].ID)
	assert.Equal(t, ids[1], kept[49].ID)
}

func TestCommandService_StoreFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	failing := NewCommandService(f.rooms, &commandRepoStub{PlaybackCommandRepository: f.commands, createErr: errors.New("disk full")}, f.pub, 0)
	_, err := failing.Send(ctx, room.RoomID, "alice", playback.Payload{Command: "pause"})
	requireAppCode(t, err, models.CodeInternal)

	pruneFails := NewCommandService(f.rooms, &commandRepoStub{PlaybackCommandRepository: f.commands, pruneErr: errors.New("lock timeout")}, f.pub, 0)
	cmd, err := pruneFails.Send(ctx, room.RoomID, "alice", playback.Payload{Command: "pause"})
	require.NoError(t, err, "pruning is best-effort")
	assert.NotZero(t, cmd.ID)
}

func TestCommandService_ListRecentLimits(t *testing.T) {
	f := newFixture(t)
	svc := NewCommandService(f.rooms, f.commands, nil, 0)
	ctx := context.Background()
	room := testutil.CreateRoom(t, f.db, "alice", "bob")

	for _, limit := range []int{-1, 101} {
		_, err := svc.ListRecent(ctx, room.RoomID, "alice", limit)
		requireAppCode(t, err, models.CodeValidation)
	}

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 12; i++ {
		testutil.CreateCommand(t, f.db, room.RoomID, "next", base.Add(time.Duration(i)*time.Second))
	}
	got, err := svc.ListRecent(ctx, room.RoomID, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultCommandListLimit)

	got, err = svc.ListRecent(ctx, room.RoomID, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
