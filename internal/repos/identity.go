package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type IdentityProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.IdentityProfile) ([]*types.IdentityProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IdentityProfile, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.IdentityProfile, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.IdentityProfile) error
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type identityProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityProfileRepo(db *gorm.DB, baseLog *logger.Logger) IdentityProfileRepo {
	return &identityProfileRepo{db: db, log: baseLog.With("repo", "IdentityProfileRepo")}
}

func (r *identityProfileRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.IdentityProfile) ([]*types.IdentityProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.IdentityProfile{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *identityProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IdentityProfile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *identityProfileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.IdentityProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.IdentityProfile
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *identityProfileRepo) Update(ctx context.Context, tx *gorm.DB, row *types.IdentityProfile) error {
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

func (r *identityProfileRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
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
		Model(&types.IdentityProfile{}).
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

type IdentityClaimRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.IdentityClaim) ([]*types.IdentityClaim, error)
	GetActiveByTypeAndValue(ctx context.Context, tx *gorm.DB, claimType, valueNormalized string) (*types.IdentityClaim, error)
	GetActiveByProfileIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.IdentityClaim, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.IdentityClaim) error
	MoveToProfile(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID, toProfileID uuid.UUID) error
}

type identityClaimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityClaimRepo(db *gorm.DB, baseLog *logger.Logger) IdentityClaimRepo {
	return &identityClaimRepo{db: db, log: baseLog.With("repo", "IdentityClaimRepo")}
}

func (r *identityClaimRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.IdentityClaim) ([]*types.IdentityClaim, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.IdentityClaim{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *identityClaimRepo) GetActiveByTypeAndValue(ctx context.Context, tx *gorm.DB, claimType, valueNormalized string) (*types.IdentityClaim, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.IdentityClaim
	if err := t.WithContext(ctx).
		Where("claim_type = ? AND value_normalized = ? AND status = 'active'", claimType, valueNormalized).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *identityClaimRepo) GetActiveByProfileIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.IdentityClaim, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.IdentityClaim
	if len(profileIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("profile_id IN ? AND status = 'active'", profileIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *identityClaimRepo) Update(ctx context.Context, tx *gorm.DB, row *types.IdentityClaim) error {
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

func (r *identityClaimRepo) MoveToProfile(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID, toProfileID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(claimIDs) == 0 || toProfileID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.IdentityClaim{}).
		Where("id IN ?", claimIDs).
		Updates(map[string]interface{}{
			"profile_id": toProfileID,
			"updated_at": time.Now().UTC(),
		}).Error
}

type IdentityOperationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.IdentityOperation) error
}

type identityOperationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityOperationRepo(db *gorm.DB, baseLog *logger.Logger) IdentityOperationRepo {
	return &identityOperationRepo{db: db, log: baseLog.With("repo", "IdentityOperationRepo")}
}

func (r *identityOperationRepo) Create(ctx context.Context, tx *gorm.DB, row *types.IdentityOperation) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}
