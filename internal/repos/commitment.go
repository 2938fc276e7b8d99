package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type CommitmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Commitment) ([]*types.Commitment, error)
	GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.Commitment, error)
	GetOpen(ctx context.Context, tx *gorm.DB) ([]*types.Commitment, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type commitmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommitmentRepo(db *gorm.DB, baseLog *logger.Logger) CommitmentRepo {
	return &commitmentRepo{db: db, log: baseLog.With("repo", "CommitmentRepo")}
}

func (r *commitmentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Commitment) ([]*types.Commitment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Commitment{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *commitmentRepo) GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.Commitment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Commitment
	if artifactID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("artifact_id = ?", artifactID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commitmentRepo) GetOpen(ctx context.Context, tx *gorm.DB) ([]*types.Commitment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Commitment
	if err := t.WithContext(ctx).Where("status = 'open'").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commitmentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.Commitment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
