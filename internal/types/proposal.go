package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Proposal is a rolling bundle of active signals for one (entity, category).
// Exposure is gated by the number of distinct proof excerpts.
type Proposal struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalType     string         `gorm:"column:proposal_type;not null;uniqueIndex:idx_proposal_entity_type" json:"proposal_type"`
	PrimaryRefType   string         `gorm:"column:primary_ref_type;not null;uniqueIndex:idx_proposal_entity_type" json:"primary_ref_type"`
	PrimaryRefID     uuid.UUID      `gorm:"column:primary_ref_id;type:uuid;not null;uniqueIndex:idx_proposal_entity_type" json:"primary_ref_id"`
	Headline         string         `gorm:"column:headline" json:"headline"`
	Hypotheses       datatypes.JSON `gorm:"column:hypotheses;type:jsonb" json:"hypotheses,omitempty"`
	Score            float64        `gorm:"column:score;not null" json:"score"`
	Trend            string         `gorm:"column:trend;not null;default:'flat'" json:"trend"`
	MaxSeverity      int            `gorm:"column:max_severity" json:"max_severity"`
	SignalIDs        datatypes.JSON `gorm:"column:signal_ids;type:jsonb" json:"signal_ids"`
	ProofExcerptIDs  datatypes.JSON `gorm:"column:proof_excerpt_ids;type:jsonb" json:"proof_excerpt_ids,omitempty"`
	ProofArtifactIDs datatypes.JSON `gorm:"column:proof_artifact_ids;type:jsonb" json:"proof_artifact_ids,omitempty"`
	UIExposureLevel  string         `gorm:"column:ui_exposure_level;not null;default:'none'" json:"ui_exposure_level"`
	Status           string         `gorm:"column:status;not null;index" json:"status"`
	OccurrenceCount  int            `gorm:"column:occurrence_count;not null;default:1" json:"occurrence_count"`
	SnoozedUntil     *time.Time     `gorm:"column:snoozed_until" json:"snoozed_until,omitempty"`
	DismissReason    string         `gorm:"column:dismiss_reason" json:"dismiss_reason,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposal" }
