package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type ExcerptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Excerpt) ([]*types.Excerpt, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Excerpt, error)
	GetByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) ([]*types.Excerpt, error)
	MarkRedacted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FullDeleteByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) error
}

type excerptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExcerptRepo(db *gorm.DB, baseLog *logger.Logger) ExcerptRepo {
	return &excerptRepo{db: db, log: baseLog.With("repo", "ExcerptRepo")}
}

func (r *excerptRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Excerpt) ([]*types.Excerpt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Excerpt{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *excerptRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Excerpt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Excerpt
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *excerptRepo) GetByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) ([]*types.Excerpt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Excerpt
	if len(artifactIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("artifact_id IN ?", artifactIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *excerptRepo) MarkRedacted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.Excerpt{}).
		Where("id = ?", id).
		Update("redaction_status", "redacted").Error
}

func (r *excerptRepo) FullDeleteByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(artifactIDs) == 0 {
		return nil
	}
	return t.WithContext(ctx).Where("artifact_id IN ?", artifactIDs).Delete(&types.Excerpt{}).Error
}
