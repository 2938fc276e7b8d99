package types

import (
	"time"

	"github.com/google/uuid"
)

// Excerpt is an immutable anchored span of proof text. Redaction flips a flag
// and never deletes the row.
type Excerpt struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID      uuid.UUID `gorm:"column:artifact_id;type:uuid;not null;index" json:"artifact_id"`
	AnchorType      string    `gorm:"column:anchor_type;not null" json:"anchor_type"`
	AnchorStart     int       `gorm:"column:anchor_start" json:"anchor_start"`
	AnchorEnd       int       `gorm:"column:anchor_end" json:"anchor_end"`
	Text            string    `gorm:"column:text;not null" json:"text"`
	TextHash        string    `gorm:"column:text_hash;not null" json:"text_hash"`
	RedactionStatus string    `gorm:"column:redaction_status;not null;default:'clear'" json:"redaction_status"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Excerpt) TableName() string { return "excerpt" }
