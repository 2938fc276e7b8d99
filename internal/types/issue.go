package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Issue is a monitored work loop created by tagging an accepted proposal.
type Issue struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SourceProposalID   uuid.UUID      `gorm:"column:source_proposal_id;type:uuid;not null;index" json:"source_proposal_id"`
	IssueType          string         `gorm:"column:issue_type;not null" json:"issue_type"`
	State              string         `gorm:"column:state;not null;index" json:"state"`
	Headline           string         `gorm:"column:headline" json:"headline"`
	PrimaryRefType     string         `gorm:"column:primary_ref_type;not null" json:"primary_ref_type"`
	PrimaryRefID       uuid.UUID      `gorm:"column:primary_ref_id;type:uuid;not null;index" json:"primary_ref_id"`
	ResolutionCriteria datatypes.JSON `gorm:"column:resolution_criteria;type:jsonb" json:"resolution_criteria"`
	Priority           float64        `gorm:"column:priority;not null" json:"priority"`
	OpenedAt           time.Time      `gorm:"column:opened_at;not null" json:"opened_at"`
	ClosedAt           *time.Time     `gorm:"column:closed_at" json:"closed_at,omitempty"`
	ClosedReason       string         `gorm:"column:closed_reason" json:"closed_reason,omitempty"`
	LastActivityAt     time.Time      `gorm:"column:last_activity_at;not null" json:"last_activity_at"`
	CreatedAt          time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Issue) TableName() string { return "issue" }

type IssueSignal struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID  uuid.UUID `gorm:"column:issue_id;type:uuid;not null;index" json:"issue_id"`
	SignalID uuid.UUID `gorm:"column:signal_id;type:uuid;not null;uniqueIndex" json:"signal_id"`
}

func (IssueSignal) TableName() string { return "issue_signal" }

type IssueEvidence struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID   uuid.UUID `gorm:"column:issue_id;type:uuid;not null;index" json:"issue_id"`
	ExcerptID uuid.UUID `gorm:"column:excerpt_id;type:uuid;not null" json:"excerpt_id"`
}

func (IssueEvidence) TableName() string { return "issue_evidence" }

// DecisionLog is append-only; every issue state transition writes one row so
// every change is attributable to an actor.
type DecisionLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID      uuid.UUID `gorm:"column:issue_id;type:uuid;not null;index" json:"issue_id"`
	DecisionType string    `gorm:"column:decision_type;not null" json:"decision_type"`
	Actor        string    `gorm:"column:actor;not null" json:"actor"`
	Note         string    `gorm:"column:note" json:"note,omitempty"`
	FromState    string    `gorm:"column:from_state" json:"from_state,omitempty"`
	ToState      string    `gorm:"column:to_state" json:"to_state,omitempty"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (DecisionLog) TableName() string { return "decision_log" }
