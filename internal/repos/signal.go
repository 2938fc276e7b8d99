package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type SignalDefinitionRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SignalDefinition) error
	GetAllActive(ctx context.Context, tx *gorm.DB) ([]*types.SignalDefinition, error)
	GetBySignalType(ctx context.Context, tx *gorm.DB, signalType string) (*types.SignalDefinition, error)
}

type signalDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) SignalDefinitionRepo {
	return &signalDefinitionRepo{db: db, log: baseLog.With("repo", "SignalDefinitionRepo")}
}

func (r *signalDefinitionRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SignalDefinition) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.SignalType == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).
		Where("signal_type = ?", row.SignalType).
		Assign(map[string]interface{}{
			"category":                row.Category,
			"required_evidence_types": row.RequiredEvidenceTypes,
			"min_link_confidence":     row.MinLinkConfidence,
			"min_confidence":          row.MinConfidence,
			"weight":                  row.Weight,
			"active":                  row.Active,
			"updated_at":              row.UpdatedAt,
		}).
		FirstOrCreate(row).Error
}

func (r *signalDefinitionRepo) GetAllActive(ctx context.Context, tx *gorm.DB) ([]*types.SignalDefinition, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.SignalDefinition
	if err := t.WithContext(ctx).Where("active = ?", true).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalDefinitionRepo) GetBySignalType(ctx context.Context, tx *gorm.DB, signalType string) (*types.SignalDefinition, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.SignalDefinition
	if err := t.WithContext(ctx).Where("signal_type = ?", signalType).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

type DetectorRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.DetectorRun) error
	GetRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DetectorRun, error)
}

type detectorRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDetectorRunRepo(db *gorm.DB, baseLog *logger.Logger) DetectorRunRepo {
	return &detectorRunRepo{db: db, log: baseLog.With("repo", "DetectorRunRepo")}
}

func (r *detectorRunRepo) Create(ctx context.Context, tx *gorm.DB, row *types.DetectorRun) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *detectorRunRepo) GetRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DetectorRun, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var out []*types.DetectorRun
	if err := t.WithContext(ctx).Order("ran_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type SignalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Signal) ([]*types.Signal, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Signal, error)
	GetActive(ctx context.Context, tx *gorm.DB) ([]*types.Signal, error)
	GetActiveByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Signal, error)
	GetActiveCritical(ctx context.Context, tx *gorm.DB, minSeverity, limit int) ([]*types.Signal, error)
	MarkConsumed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, issueID uuid.UUID) (int64, error)
	MarkDismissed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ExpireDue(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type signalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalRepo(db *gorm.DB, baseLog *logger.Logger) SignalRepo {
	return &signalRepo{db: db, log: baseLog.With("repo", "SignalRepo")}
}

func (r *signalRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Signal) ([]*types.Signal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Signal{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *signalRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Signal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Signal
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) GetActive(ctx context.Context, tx *gorm.DB) ([]*types.Signal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Signal
	if err := t.WithContext(ctx).
		Where("status = 'active'").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) GetActiveByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Signal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Signal
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("id IN ? AND status = 'active'", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) GetActiveCritical(ctx context.Context, tx *gorm.DB, minSeverity, limit int) ([]*types.Signal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var out []*types.Signal
	if err := t.WithContext(ctx).
		Where("status = 'active' AND severity >= ?", minSeverity).
		Order("severity DESC, created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkConsumed flips active signals only; the returned count lets the caller
// verify every signal was still consumable inside the transaction.
func (r *signalRepo) MarkConsumed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, issueID uuid.UUID) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.WithContext(ctx).
		Model(&types.Signal{}).
		Where("id IN ? AND status = 'active'", ids).
		Updates(map[string]interface{}{
			"status":               "consumed",
			"consumed_by_issue_id": issueID,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *signalRepo) MarkDismissed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.Signal{}).
		Where("id = ? AND status = 'active'", id).
		Updates(map[string]interface{}{
			"status":     "dismissed",
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *signalRepo) ExpireDue(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(ctx).
		Model(&types.Signal{}).
		Where("status = 'active' AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Updates(map[string]interface{}{
			"status":     "expired",
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *signalRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
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
		Model(&types.Signal{}).
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

type SignalFeedbackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.SignalFeedback) error
}

type signalFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) SignalFeedbackRepo {
	return &signalFeedbackRepo{db: db, log: baseLog.With("repo", "SignalFeedbackRepo")}
}

func (r *signalFeedbackRepo) Create(ctx context.Context, tx *gorm.DB, row *types.SignalFeedback) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

type ProtocolViolationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ProtocolViolation) error
}

type protocolViolationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProtocolViolationRepo(db *gorm.DB, baseLog *logger.Logger) ProtocolViolationRepo {
	return &protocolViolationRepo{db: db, log: baseLog.With("repo", "ProtocolViolationRepo")}
}

func (r *protocolViolationRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ProtocolViolation) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}
