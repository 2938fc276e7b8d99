package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type IssueRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Issue) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Issue, error)
	GetOpen(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Issue, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Issue) error
	AttachSignals(ctx context.Context, tx *gorm.DB, rows []*types.IssueSignal) error
	AttachEvidence(ctx context.Context, tx *gorm.DB, rows []*types.IssueEvidence) error
	GetSignalLinks(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.IssueSignal, error)
	AppendDecision(ctx context.Context, tx *gorm.DB, row *types.DecisionLog) error
	GetDecisions(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.DecisionLog, error)
	CountByState(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type issueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueRepo(db *gorm.DB, baseLog *logger.Logger) IssueRepo {
	return &issueRepo{db: db, log: baseLog.With("repo", "IssueRepo")}
}

func (r *issueRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Issue) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *issueRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Issue, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Issue
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *issueRepo) GetOpen(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Issue, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var out []*types.Issue
	if err := t.WithContext(ctx).
		Where("state NOT IN ?", []string{"resolved", "handed_over"}).
		Order("priority DESC, opened_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *issueRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Issue) error {
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

func (r *issueRepo) AttachSignals(ctx context.Context, tx *gorm.DB, rows []*types.IssueSignal) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(ctx).Create(&rows).Error
}

func (r *issueRepo) AttachEvidence(ctx context.Context, tx *gorm.DB, rows []*types.IssueEvidence) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(ctx).Create(&rows).Error
}

func (r *issueRepo) GetSignalLinks(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.IssueSignal, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.IssueSignal
	if issueID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("issue_id = ?", issueID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *issueRepo) AppendDecision(ctx context.Context, tx *gorm.DB, row *types.DecisionLog) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *issueRepo) GetDecisions(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.DecisionLog, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.DecisionLog
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

func (r *issueRepo) CountByState(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	type row struct {
		State string
		N     int64
	}
	var rows []row
	if err := t.WithContext(ctx).
		Model(&types.Issue{}).
		Select("state, count(*) as n").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.State] = rr.N
	}
	return out, nil
}
