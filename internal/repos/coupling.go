package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type CouplingRepo interface {
	ReplaceAll(ctx context.Context, tx *gorm.DB, rows []*types.Coupling) error
	GetByAnchor(ctx context.Context, tx *gorm.DB, anchorType string, anchorID uuid.UUID) ([]*types.Coupling, error)
	GetAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Coupling, error)
}

type couplingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCouplingRepo(db *gorm.DB, baseLog *logger.Logger) CouplingRepo {
	return &couplingRepo{db: db, log: baseLog.With("repo", "CouplingRepo")}
}

// ReplaceAll swaps the advisory coupling set wholesale; each discovery pass
// recomputes from scratch.
func (r *couplingRepo) ReplaceAll(ctx context.Context, tx *gorm.DB, rows []*types.Coupling) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).Where("1 = 1").Delete(&types.Coupling{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(ctx).Create(&rows).Error
}

func (r *couplingRepo) GetByAnchor(ctx context.Context, tx *gorm.DB, anchorType string, anchorID uuid.UUID) ([]*types.Coupling, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Coupling
	if err := t.WithContext(ctx).
		Where("anchor_ref_type = ? AND anchor_ref_id = ?", anchorType, anchorID).
		Order("strength DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *couplingRepo) GetAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Coupling, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var out []*types.Coupling
	if err := t.WithContext(ctx).Order("strength DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
