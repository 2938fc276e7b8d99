package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type FixDataRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.FixDataItem) ([]*types.FixDataItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FixDataItem, error)
	GetOpen(ctx context.Context, tx *gorm.DB, limit int) ([]*types.FixDataItem, error)
	Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID, resolver, notes string) error
	CountOpen(ctx context.Context, tx *gorm.DB) (int64, error)
}

type fixDataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFixDataRepo(db *gorm.DB, baseLog *logger.Logger) FixDataRepo {
	return &fixDataRepo{db: db, log: baseLog.With("repo", "FixDataRepo")}
}

func (r *fixDataRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.FixDataItem) ([]*types.FixDataItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.FixDataItem{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *fixDataRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FixDataItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.FixDataItem
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *fixDataRepo) GetOpen(ctx context.Context, tx *gorm.DB, limit int) ([]*types.FixDataItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var out []*types.FixDataItem
	if err := t.WithContext(ctx).
		Where("status = 'open'").
		Order("severity DESC, created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fixDataRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID, resolver, notes string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return t.WithContext(ctx).
		Model(&types.FixDataItem{}).
		Where("id = ? AND status = 'open'", id).
		Updates(map[string]interface{}{
			"status":      "resolved",
			"resolver":    resolver,
			"notes":       notes,
			"resolved_at": now,
			"updated_at":  now,
		}).Error
}

func (r *fixDataRepo) CountOpen(ctx context.Context, tx *gorm.DB) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(ctx).
		Model(&types.FixDataItem{}).
		Where("status = 'open'").
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
