package service

import (
	"context"
	"errors"
	"testing"

	"tandem/internal/cache"
	"tandem/internal/models"
	"tandem/internal/repository"
	"tandem/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) PublishRoomEvent(ctx context.Context, event models.RoomEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// eventsOfType returns the published events with the given type.
func (m *publisherMock) eventsOfType(eventType string) []models.RoomEvent {
	var out []models.RoomEvent
	for _, call := range m.Calls {
		ev := call.Arguments.Get(1).(models.RoomEvent)
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func newPublisher() *publisherMock {
	p := &publisherMock{}
	p.On("PublishRoomEvent", mock.Anything, mock.Anything).Return(nil)
	return p
}

type fixture struct {
	db       *gorm.DB
	rooms    repository.RoomRepository
	users    repository.UserRepository
	commands repository.PlaybackCommandRepository
	media    repository.MediaRepository
	pub      *publisherMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache.SetClient(nil)
	db := testutil.NewTestDB(t)
	return &fixture{
		db:       db,
		rooms:    repository.NewRoomRepository(db),
		users:    repository.NewUserRepository(db),
		commands: repository.NewPlaybackCommandRepository(db),
		media:    repository.NewMediaRepository(db),
		pub:      newPublisher(),
	}
}

func requireAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}
