package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type ProposalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Proposal) ([]*types.Proposal, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proposal, error)
	GetOpenByKey(ctx context.Context, tx *gorm.DB, refType string, refID uuid.UUID, proposalType string) (*types.Proposal, error)
	GetSurfaceable(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Proposal, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Proposal) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type proposalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepo(db *gorm.DB, baseLog *logger.Logger) ProposalRepo {
	return &proposalRepo{db: db, log: baseLog.With("repo", "ProposalRepo")}
}

func (r *proposalRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Proposal) ([]*types.Proposal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Proposal{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *proposalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proposal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Proposal
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// GetOpenByKey returns the live rolling proposal for one (entity, type) key.
// Open covers both actionable and insufficient-evidence rows; terminal and
// snoozed rows are not updated in place.
func (r *proposalRepo) GetOpenByKey(ctx context.Context, tx *gorm.DB, refType string, refID uuid.UUID, proposalType string) (*types.Proposal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Proposal
	if err := t.WithContext(ctx).
		Where("primary_ref_type = ? AND primary_ref_id = ? AND proposal_type = ? AND status IN ?",
			refType, refID, proposalType, []string{"open", "insufficient_evidence"}).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *proposalRepo) GetSurfaceable(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Proposal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	now := time.Now().UTC()
	var out []*types.Proposal
	if err := t.WithContext(ctx).
		Where("status = 'open' AND ui_exposure_level = 'surfaced' AND (snoozed_until IS NULL OR snoozed_until <= ?)", now).
		Order("score DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *proposalRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Proposal) error {
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

func (r *proposalRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(ctx).
		Model(&types.Proposal{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *proposalRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
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
		Model(&types.Proposal{}).
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
