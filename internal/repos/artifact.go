package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// ArtifactFilters narrows FindArtifacts. Zero values are ignored.
type ArtifactFilters struct {
	Source    string
	Type      string
	Since     *time.Time
	Until     *time.Time
	ActorRef  string
}

type ArtifactRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Artifact) ([]*types.Artifact, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Artifact, error)
	GetBySourceKey(ctx context.Context, tx *gorm.DB, source, sourceID string) (*types.Artifact, error)
	Find(ctx context.Context, tx *gorm.DB, filters ArtifactFilters, limit int) ([]*types.Artifact, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Artifact) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	CountBySource(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
	OlderThan(ctx context.Context, tx *gorm.DB, source string, cutoff time.Time) ([]*types.Artifact, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Artifact) ([]*types.Artifact, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Artifact{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *artifactRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error) {
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

func (r *artifactRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Artifact, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Artifact
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) GetBySourceKey(ctx context.Context, tx *gorm.DB, source, sourceID string) (*types.Artifact, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Artifact
	if err := t.WithContext(ctx).
		Where("source = ? AND source_id = ?", source, sourceID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *artifactRepo) Find(ctx context.Context, tx *gorm.DB, filters ArtifactFilters, limit int) ([]*types.Artifact, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).Model(&types.Artifact{})
	if filters.Source != "" {
		q = q.Where("source = ?", filters.Source)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.ActorRef != "" {
		q = q.Where("actor_ref = ?", filters.ActorRef)
	}
	if filters.Since != nil {
		q = q.Where("occurred_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		q = q.Where("occurred_at < ?", *filters.Until)
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var out []*types.Artifact
	if err := q.Order("occurred_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Artifact) error {
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

func (r *artifactRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&types.Artifact{}).Error
}

func (r *artifactRepo) CountBySource(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	type row struct {
		Source string
		N      int64
	}
	var rows []row
	if err := t.WithContext(ctx).
		Model(&types.Artifact{}).
		Select("source, count(*) as n").
		Group("source").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Source] = rr.N
	}
	return out, nil
}

func (r *artifactRepo) OlderThan(ctx context.Context, tx *gorm.DB, source string, cutoff time.Time) ([]*types.Artifact, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Artifact
	if err := t.WithContext(ctx).
		Where("source = ? AND occurred_at < ?", source, cutoff).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
