package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Coupling is an advisory cross-entity relationship inferred from shared
// signals. Recomputed wholesale on every discovery pass.
type Coupling struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AnchorRefType     string         `gorm:"column:anchor_ref_type;not null" json:"anchor_ref_type"`
	AnchorRefID       uuid.UUID      `gorm:"column:anchor_ref_id;type:uuid;not null;index" json:"anchor_ref_id"`
	EntityRefs        datatypes.JSON `gorm:"column:entity_refs;type:jsonb" json:"entity_refs"`
	CouplingType      string         `gorm:"column:coupling_type;not null" json:"coupling_type"`
	Strength          float64        `gorm:"column:strength;not null" json:"strength"`
	Why               string         `gorm:"column:why" json:"why"`
	InvestigationPath datatypes.JSON `gorm:"column:investigation_path;type:jsonb" json:"investigation_path,omitempty"`
	Confidence        float64        `gorm:"column:confidence;not null" json:"confidence"`
	ComputedAt        time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (Coupling) TableName() string { return "coupling" }

// Commitment is a promise extracted from an artifact (usually a message),
// tracked until met or missed.
type Commitment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID uuid.UUID  `gorm:"column:artifact_id;type:uuid;not null;index" json:"artifact_id"`
	ProfileID  *uuid.UUID `gorm:"column:profile_id;type:uuid" json:"profile_id,omitempty"`
	Text       string     `gorm:"column:text;not null" json:"text"`
	DueAt      *time.Time `gorm:"column:due_at" json:"due_at,omitempty"`
	Status     string     `gorm:"column:status;not null;default:'open'" json:"status"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Commitment) TableName() string { return "commitment" }
