package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SignalDefinition is the schema contract a detector must satisfy before a
// signal of its type is accepted.
type SignalDefinition struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SignalType            string         `gorm:"column:signal_type;not null;uniqueIndex" json:"signal_type"`
	Category              string         `gorm:"column:category;not null;index" json:"category"`
	RequiredEvidenceTypes datatypes.JSON `gorm:"column:required_evidence_types;type:jsonb" json:"required_evidence_types,omitempty"`
	MinLinkConfidence     float64        `gorm:"column:min_link_confidence" json:"min_link_confidence"`
	MinConfidence         float64        `gorm:"column:min_confidence" json:"min_confidence"`
	Weight                float64        `gorm:"column:weight;not null;default:1" json:"weight"`
	Active                bool           `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt             time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SignalDefinition) TableName() string { return "signal_definition" }

// DetectorRun is the audit row written around every detector invocation,
// completed or failed.
type DetectorRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DetectorID  string    `gorm:"column:detector_id;not null;index" json:"detector_id"`
	Version     string    `gorm:"column:version;not null" json:"version"`
	Status      string    `gorm:"column:status;not null" json:"status"`
	InputHash   string    `gorm:"column:input_hash" json:"input_hash"`
	DurationMS  int64     `gorm:"column:duration_ms" json:"duration_ms"`
	SignalCount int       `gorm:"column:signal_count" json:"signal_count"`
	Error       string    `gorm:"column:error" json:"error,omitempty"`
	RanAt       time.Time `gorm:"column:ran_at;not null" json:"ran_at"`
}

func (DetectorRun) TableName() string { return "detector_run" }

// Signal is an evidence-carrying fact about an entity. A signal funds at most
// one issue, ever; consumption is irreversible.
type Signal struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SignalType          string         `gorm:"column:signal_type;not null;index" json:"signal_type"`
	Category            string         `gorm:"column:category;not null;index" json:"category"`
	EntityRefType       string         `gorm:"column:entity_ref_type;not null;index:idx_signal_entity" json:"entity_ref_type"`
	EntityRefID         uuid.UUID      `gorm:"column:entity_ref_id;type:uuid;not null;index:idx_signal_entity" json:"entity_ref_id"`
	Value               datatypes.JSON `gorm:"column:value;type:jsonb" json:"value,omitempty"`
	Severity            int            `gorm:"column:severity;not null" json:"severity"`
	Confidence          float64        `gorm:"column:confidence;not null" json:"confidence"`
	DetectorID          string         `gorm:"column:detector_id;not null" json:"detector_id"`
	DetectorVersion     string         `gorm:"column:detector_version;not null" json:"detector_version"`
	EvidenceExcerptIDs  datatypes.JSON `gorm:"column:evidence_excerpt_ids;type:jsonb" json:"evidence_excerpt_ids,omitempty"`
	EvidenceArtifactIDs datatypes.JSON `gorm:"column:evidence_artifact_ids;type:jsonb" json:"evidence_artifact_ids,omitempty"`
	Status              string         `gorm:"column:status;not null;default:'active';index" json:"status"`
	ExpiresAt           *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	ConsumedByIssueID   *uuid.UUID     `gorm:"column:consumed_by_issue_id;type:uuid" json:"consumed_by_issue_id,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Signal) TableName() string { return "signal" }

type SignalFeedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SignalID  uuid.UUID `gorm:"column:signal_id;type:uuid;not null;index" json:"signal_id"`
	Actor     string    `gorm:"column:actor;not null" json:"actor"`
	Feedback  string    `gorm:"column:feedback;not null" json:"feedback"`
	Reason    string    `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (SignalFeedback) TableName() string { return "signal_feedback" }

// ProtocolViolation records a detector emitting something outside its
// contract (unknown signal type, missing provenance). The candidate is
// dropped; the violation is kept.
type ProtocolViolation struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       string         `gorm:"column:kind;not null" json:"kind"`
	DetectorID string         `gorm:"column:detector_id" json:"detector_id,omitempty"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ProtocolViolation) TableName() string { return "protocol_violation" }
