package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Artifact is a deduplicated, content-addressed record of one external event.
// (source, source_id) is the natural key; a payload change updates the row in
// place under a new content hash.
type Artifact struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source         string         `gorm:"column:source;not null;uniqueIndex:idx_artifact_source_source_id" json:"source"`
	SourceID       string         `gorm:"column:source_id;not null;uniqueIndex:idx_artifact_source_source_id" json:"source_id"`
	Type           string         `gorm:"column:type;not null;index" json:"type"`
	OccurredAt     time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	ActorRef       string         `gorm:"column:actor_ref" json:"actor_ref,omitempty"`
	ActorProfileID *uuid.UUID     `gorm:"column:actor_profile_id;type:uuid;index" json:"actor_profile_id,omitempty"`
	ContentHash    string         `gorm:"column:content_hash;not null" json:"content_hash"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	PayloadRef     string         `gorm:"column:payload_ref" json:"payload_ref,omitempty"`
	VisibilityTags datatypes.JSON `gorm:"column:visibility_tags;type:jsonb" json:"visibility_tags,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artifact) TableName() string { return "artifact" }

// ArtifactBlob holds an encrypted payload too large to inline. Addressed by
// the plaintext content hash so identical payloads share one row.
type ArtifactBlob struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentHash string    `gorm:"column:content_hash;not null;uniqueIndex" json:"content_hash"`
	Ciphertext  []byte    `gorm:"column:ciphertext;not null" json:"-"`
	Nonce       []byte    `gorm:"column:nonce;not null" json:"-"`
	SizeBytes   int64     `gorm:"column:size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ArtifactBlob) TableName() string { return "artifact_blob" }
