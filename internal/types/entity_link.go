package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EntityLink is a confidence-scored edge from an artifact to a domain entity.
// One row per (artifact, entity); confidence only ever increases.
type EntityLink struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FromArtifactID uuid.UUID      `gorm:"column:from_artifact_id;type:uuid;not null;uniqueIndex:idx_link_artifact_entity" json:"from_artifact_id"`
	ToEntityType   string         `gorm:"column:to_entity_type;not null;uniqueIndex:idx_link_artifact_entity" json:"to_entity_type"`
	ToEntityID     uuid.UUID      `gorm:"column:to_entity_id;type:uuid;not null;uniqueIndex:idx_link_artifact_entity" json:"to_entity_id"`
	Method         string         `gorm:"column:method;not null" json:"method"`
	Confidence     float64        `gorm:"column:confidence;not null" json:"confidence"`
	Status         string         `gorm:"column:status;not null;default:'proposed';index" json:"status"`
	Reasons        datatypes.JSON `gorm:"column:reasons;type:jsonb" json:"reasons,omitempty"`
	ConfirmedBy    string         `gorm:"column:confirmed_by" json:"confirmed_by,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (EntityLink) TableName() string { return "entity_link" }
