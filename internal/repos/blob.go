package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type BlobRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.ArtifactBlob) error
	GetByContentHash(ctx context.Context, tx *gorm.DB, contentHash string) (*types.ArtifactBlob, error)
	FullDeleteByContentHashes(ctx context.Context, tx *gorm.DB, hashes []string) error
}

type blobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlobRepo(db *gorm.DB, baseLog *logger.Logger) BlobRepo {
	return &blobRepo{db: db, log: baseLog.With("repo", "BlobRepo")}
}

func (r *blobRepo) Put(ctx context.Context, tx *gorm.DB, row *types.ArtifactBlob) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	// Identical payloads share one blob row.
	return t.WithContext(ctx).
		Where("content_hash = ?", row.ContentHash).
		FirstOrCreate(row).Error
}

func (r *blobRepo) GetByContentHash(ctx context.Context, tx *gorm.DB, contentHash string) (*types.ArtifactBlob, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.ArtifactBlob
	if err := t.WithContext(ctx).
		Where("content_hash = ?", contentHash).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *blobRepo) FullDeleteByContentHashes(ctx context.Context, tx *gorm.DB, hashes []string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(hashes) == 0 {
		return nil
	}
	return t.WithContext(ctx).Where("content_hash IN ?", hashes).Delete(&types.ArtifactBlob{}).Error
}
