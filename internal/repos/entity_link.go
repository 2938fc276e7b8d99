package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type EntityLinkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.EntityLink) ([]*types.EntityLink, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EntityLink, error)
	GetByPair(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID, entityType string, entityID uuid.UUID) (*types.EntityLink, error)
	GetByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) ([]*types.EntityLink, error)
	GetConfirmedByEntity(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) ([]*types.EntityLink, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.EntityLink) error
	FullDeleteByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) error
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type entityLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityLinkRepo(db *gorm.DB, baseLog *logger.Logger) EntityLinkRepo {
	return &entityLinkRepo{db: db, log: baseLog.With("repo", "EntityLinkRepo")}
}

func (r *entityLinkRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.EntityLink) ([]*types.EntityLink, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.EntityLink{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *entityLinkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EntityLink, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.EntityLink
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *entityLinkRepo) GetByPair(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID, entityType string, entityID uuid.UUID) (*types.EntityLink, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.EntityLink
	if err := t.WithContext(ctx).
		Where("from_artifact_id = ? AND to_entity_type = ? AND to_entity_id = ?", artifactID, entityType, entityID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *entityLinkRepo) GetByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) ([]*types.EntityLink, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.EntityLink
	if len(artifactIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("from_artifact_id IN ?", artifactIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityLinkRepo) GetConfirmedByEntity(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) ([]*types.EntityLink, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.EntityLink
	if err := t.WithContext(ctx).
		Where("to_entity_type = ? AND to_entity_id = ? AND status = 'confirmed'", entityType, entityID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityLinkRepo) Update(ctx context.Context, tx *gorm.DB, row *types.EntityLink) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).Save(row).Error
}

func (r *entityLinkRepo) FullDeleteByArtifactIDs(ctx context.Context, tx *gorm.DB, artifactIDs []uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(artifactIDs) == 0 {
		return nil
	}
	return t.WithContext(ctx).Where("from_artifact_id IN ?", artifactIDs).Delete(&types.EntityLink{}).Error
}

func (r *entityLinkRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := t.WithContext(ctx).
		Model(&types.EntityLink{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.N
	}
	return out, nil
}
