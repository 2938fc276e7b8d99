package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IdentityProfile struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Type            string     `gorm:"column:type;not null" json:"type"`
	CanonicalName   string     `gorm:"column:canonical_name" json:"canonical_name"`
	CanonicalEmail  string     `gorm:"column:canonical_email" json:"canonical_email"`
	CanonicalDomain string     `gorm:"column:canonical_domain" json:"canonical_domain"`
	Status          string     `gorm:"column:status;not null;default:'active';index" json:"status"`
	MergedIntoID    *uuid.UUID `gorm:"column:merged_into_id;type:uuid" json:"merged_into_id,omitempty"`
	Attributes      datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (IdentityProfile) TableName() string { return "identity_profile" }

// IdentityClaim maps a normalized identifier to a profile. At most one active
// claim may exist per (claim_type, value_normalized); the invariant is
// enforced by the resolver, not the schema, so merges can move rows freely.
type IdentityClaim struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID       uuid.UUID `gorm:"column:profile_id;type:uuid;not null;index" json:"profile_id"`
	ClaimType       string    `gorm:"column:claim_type;not null;index:idx_claim_type_value" json:"claim_type"`
	Value           string    `gorm:"column:value;not null" json:"value"`
	ValueNormalized string    `gorm:"column:value_normalized;not null;index:idx_claim_type_value" json:"value_normalized"`
	Source          string    `gorm:"column:source" json:"source"`
	Confidence      float64   `gorm:"column:confidence;not null" json:"confidence"`
	Status          string    `gorm:"column:status;not null;default:'active'" json:"status"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (IdentityClaim) TableName() string { return "identity_claim" }

// IdentityOperation is the append-only audit trail for profile merges.
type IdentityOperation struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Operation      string         `gorm:"column:operation;not null" json:"operation"`
	FromProfileIDs datatypes.JSON `gorm:"column:from_profile_ids;type:jsonb" json:"from_profile_ids"`
	ToProfileID    uuid.UUID      `gorm:"column:to_profile_id;type:uuid;not null" json:"to_profile_id"`
	Reason         string         `gorm:"column:reason" json:"reason"`
	Actor          string         `gorm:"column:actor" json:"actor"`
	ClaimsMoved    int            `gorm:"column:claims_moved" json:"claims_moved"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (IdentityOperation) TableName() string { return "identity_operation" }
