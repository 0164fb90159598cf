package repository

import (
	"context"
	"errors"

	"tandem/internal/models"
	"tandem/internal/observability"

	"gorm.io/gorm"
)

// PlaybackCommandRepository defines the interface for the per-room playback command log
type PlaybackCommandRepository interface {
	Create(ctx context.Context, cmd *models.PlaybackCommand) error
	GetByID(ctx context.Context, id uint) (*models.PlaybackCommand, error)
	ListRecent(ctx context.Context, roomID string, limit int) ([]*models.PlaybackCommand, error)
	Count(ctx context.Context, roomID string) (int64, error)
	Prune(ctx context.Context, roomID string, keep int) (int64, error)
}

type playbackCommandRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPlaybackCommandRepository creates a new playback command repository
func NewPlaybackCommandRepository(db *gorm.DB) PlaybackCommandRepository {
	return &playbackCommandRepository{db: db, log: observability.NewRepoLogger("playback_commands")}
}

func (r *playbackCommandRepository) Create(ctx context.Context, cmd *models.PlaybackCommand) error {
	defer observability.TrackQuery("create", "playback_commands")()

	if err := r.db.WithContext(ctx).Create(cmd).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"room_id": cmd.RoomID, "id": cmd.ID, "command": cmd.Command})
	return nil
}

func (r *playbackCommandRepository) GetByID(ctx context.Context, id uint) (*models.PlaybackCommand, error) {
	var cmd models.PlaybackCommand
	if err := r.db.WithContext(ctx).First(&cmd, id).Error; err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ListRecent returns up to limit commands for the room, newest first.
func (r *playbackCommandRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]*models.PlaybackCommand, error) {
	defer observability.TrackQuery("read", "playback_commands")()

	var cmds []*models.PlaybackCommand
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&cmds).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_recent")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"room_id": roomID, "count": len(cmds)})
	return cmds, nil
}

func (r *playbackCommandRepository) Count(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PlaybackCommand{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

// Prune keeps the newest keep commands of a room. The keep-th newest row is the cutoff;
// everything strictly older is deleted, with id breaking created_at ties.
func (r *playbackCommandRepository) Prune(ctx context.Context, roomID string, keep int) (int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Prune", "playback_commands")
	defer span.End()
	defer observability.TrackQuery("delete", "playback_commands")()

	if keep < 1 {
		keep = 1
	}

	var cutoff models.PlaybackCommand
	err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset(keep - 1).
		Limit(1).
		Take(&cutoff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		r.log.LogError(ctx, err, "prune_cutoff")
		return 0, err
	}

	res := r.db.WithContext(ctx).
		Where("room_id = ? AND (created_at < ? OR (created_at = ? AND id < ?))",
			roomID, cutoff.CreatedAt, cutoff.CreatedAt, cutoff.ID).
		Delete(&models.PlaybackCommand{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "prune")
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		observability.PlaybackCommandsPruned.Add(float64(res.RowsAffected))
		r.log.LogDelete(ctx, map[string]interface{}{"room_id": roomID, "pruned": res.RowsAffected})
	}
	return res.RowsAffected, nil
}
