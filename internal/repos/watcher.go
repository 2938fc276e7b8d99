package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type WatcherRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Watcher) ([]*types.Watcher, error)
	GetByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.Watcher, error)
	GetDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Watcher, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Watcher) error
	DeactivateByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) error
}

type watcherRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWatcherRepo(db *gorm.DB, baseLog *logger.Logger) WatcherRepo {
	return &watcherRepo{db: db, log: baseLog.With("repo", "WatcherRepo")}
}

func (r *watcherRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Watcher) ([]*types.Watcher, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Watcher{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *watcherRepo) GetByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]*types.Watcher, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Watcher
	if issueID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("issue_id = ?", issueID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *watcherRepo) GetDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Watcher, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var out []*types.Watcher
	if err := t.WithContext(ctx).
		Where("active = ? AND next_check_at <= ?", true, now).
		Order("next_check_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *watcherRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Watcher) error {
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

// Watchers are deactivated when their issue reaches a terminal state, never
// deleted.
func (r *watcherRepo) DeactivateByIssueID(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if issueID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.Watcher{}).
		Where("issue_id = ?", issueID).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now().UTC(),
		}).Error
}
