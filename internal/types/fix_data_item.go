package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FixDataItem is one ticket in the data-quality queue. Low-confidence links
// and detector-reported gaps land here for human curation.
type FixDataItem struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FixType    string         `gorm:"column:fix_type;not null;index" json:"fix_type"`
	Severity   int            `gorm:"column:severity;not null" json:"severity"`
	ArtifactID *uuid.UUID     `gorm:"column:artifact_id;type:uuid" json:"artifact_id,omitempty"`
	EntityType string         `gorm:"column:entity_type" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `gorm:"column:entity_id;type:uuid" json:"entity_id,omitempty"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	Status     string         `gorm:"column:status;not null;default:'open';index" json:"status"`
	Resolver   string         `gorm:"column:resolver" json:"resolver,omitempty"`
	Notes      string         `gorm:"column:notes" json:"notes,omitempty"`
	ResolvedAt *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (FixDataItem) TableName() string { return "fix_data_item" }
