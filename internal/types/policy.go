package types

import (
	"time"

	"github.com/google/uuid"
)

type AccessRole struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role        string    `gorm:"column:role;not null;uniqueIndex" json:"role"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (AccessRole) TableName() string { return "access_role" }

// ACLRule allows one (role, action, entity_type) triple. Absence of a row
// means deny.
type ACLRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role       string    `gorm:"column:role;not null;uniqueIndex:idx_acl_role_action_entity" json:"role"`
	Action     string    `gorm:"column:action;not null;uniqueIndex:idx_acl_role_action_entity" json:"action"`
	EntityType string    `gorm:"column:entity_type;not null;uniqueIndex:idx_acl_role_action_entity" json:"entity_type"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ACLRule) TableName() string { return "acl_rule" }

type RetentionRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Source     string    `gorm:"column:source;not null;uniqueIndex:idx_retention_source_type" json:"source"`
	Type       string    `gorm:"column:type;uniqueIndex:idx_retention_source_type" json:"type,omitempty"`
	MaxAgeDays int       `gorm:"column:max_age_days;not null" json:"max_age_days"`
	LegalHold  bool      `gorm:"column:legal_hold;not null;default:false" json:"legal_hold"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (RetentionRule) TableName() string { return "retention_rule" }

type RedactionMarker struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExcerptID uuid.UUID `gorm:"column:excerpt_id;type:uuid;not null;index" json:"excerpt_id"`
	Reason    string    `gorm:"column:reason" json:"reason,omitempty"`
	Actor     string    `gorm:"column:actor;not null" json:"actor"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (RedactionMarker) TableName() string { return "redaction_marker" }
