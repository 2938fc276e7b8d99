package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type PolicyRepo interface {
	UpsertRole(ctx context.Context, tx *gorm.DB, row *types.AccessRole) error
	UpsertACLRule(ctx context.Context, tx *gorm.DB, row *types.ACLRule) error
	RuleExists(ctx context.Context, tx *gorm.DB, role, action, entityType string) (bool, error)
	UpsertRetentionRule(ctx context.Context, tx *gorm.DB, row *types.RetentionRule) error
	GetRetentionRules(ctx context.Context, tx *gorm.DB) ([]*types.RetentionRule, error)
	CreateRedactionMarker(ctx context.Context, tx *gorm.DB, row *types.RedactionMarker) error
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{db: db, log: baseLog.With("repo", "PolicyRepo")}
}

func (r *policyRepo) UpsertRole(ctx context.Context, tx *gorm.DB, row *types.AccessRole) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Role == "" {
		return nil
	}
	return t.WithContext(ctx).
		Where("role = ?", row.Role).
		FirstOrCreate(row).Error
}

func (r *policyRepo) UpsertACLRule(ctx context.Context, tx *gorm.DB, row *types.ACLRule) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Role == "" || row.Action == "" || row.EntityType == "" {
		return nil
	}
	return t.WithContext(ctx).
		Where("role = ? AND action = ? AND entity_type = ?", row.Role, row.Action, row.EntityType).
		FirstOrCreate(row).Error
}

func (r *policyRepo) RuleExists(ctx context.Context, tx *gorm.DB, role, action, entityType string) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(ctx).
		Model(&types.ACLRule{}).
		Where("role = ? AND action = ? AND entity_type = ?", role, action, entityType).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *policyRepo) UpsertRetentionRule(ctx context.Context, tx *gorm.DB, row *types.RetentionRule) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Source == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).
		Where("source = ? AND type = ?", row.Source, row.Type).
		Assign(map[string]interface{}{
			"max_age_days": row.MaxAgeDays,
			"legal_hold":   row.LegalHold,
			"updated_at":   row.UpdatedAt,
		}).
		FirstOrCreate(row).Error
}

func (r *policyRepo) GetRetentionRules(ctx context.Context, tx *gorm.DB) ([]*types.RetentionRule, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.RetentionRule
	if err := t.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *policyRepo) CreateRedactionMarker(ctx context.Context, tx *gorm.DB, row *types.RedactionMarker) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}
