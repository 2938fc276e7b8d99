package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type HandoffRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Handoff) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Handoff, error)
	GetByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.Handoff, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Handoff) error
}

type handoffRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHandoffRepo(db *gorm.DB, baseLog *logger.Logger) HandoffRepo {
	return &handoffRepo{db: db, log: baseLog.With("repo", "HandoffRepo")}
}

func (r *handoffRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Handoff) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *handoffRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Handoff, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Handoff
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *handoffRepo) GetByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.Handoff, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Handoff
	if issueID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *handoffRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Handoff) error {
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
