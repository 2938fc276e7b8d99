package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, source, sourceID, typ string, payload []byte) *types.Artifact {
	tb.Helper()
	if payload == nil {
		payload = []byte("{}")
	}
	sum := sha256.Sum256(payload)
	a := &types.Artifact{
		ID:          uuid.New(),
		Source:      source,
		SourceID:    sourceID,
		Type:        typ,
		OccurredAt:  time.Now().UTC().Add(-time.Hour),
		ContentHash: hex.EncodeToString(sum[:]),
		Payload:     datatypes.JSON(payload),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return a
}

func SeedExcerpt(tb testing.TB, ctx context.Context, tx *gorm.DB, artifactID uuid.UUID, text string) *types.Excerpt {
	tb.Helper()
	sum := sha256.Sum256([]byte(text))
	e := &types.Excerpt{
		ID:              uuid.New(),
		ArtifactID:      artifactID,
		AnchorType:      "char_range",
		AnchorStart:     0,
		AnchorEnd:       len(text),
		Text:            text,
		TextHash:        hex.EncodeToString(sum[:]),
		RedactionStatus: "clear",
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed excerpt: %v", err)
	}
	return e
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, typ, name string) *types.IdentityProfile {
	tb.Helper()
	p := &types.IdentityProfile{
		ID:            uuid.New(),
		Type:          typ,
		CanonicalName: name,
		Status:        "active",
		Attributes:    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedClaim(tb testing.TB, ctx context.Context, tx *gorm.DB, profileID uuid.UUID, claimType, normalized string) *types.IdentityClaim {
	tb.Helper()
	c := &types.IdentityClaim{
		ID:              uuid.New(),
		ProfileID:       profileID,
		ClaimType:       claimType,
		Value:           normalized,
		ValueNormalized: normalized,
		Source:          "test",
		Confidence:      0.9,
		Status:          "active",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed claim: %v", err)
	}
	return c
}

func SeedLink(tb testing.TB, ctx context.Context, tx *gorm.DB, artifactID uuid.UUID, entityType string, entityID uuid.UUID, status string, confidence float64) *types.EntityLink {
	tb.Helper()
	l := &types.EntityLink{
		ID:             uuid.New(),
		FromArtifactID: artifactID,
		ToEntityType:   entityType,
		ToEntityID:     entityID,
		Method:         "explicit_ref",
		Confidence:     confidence,
		Status:         status,
		Reasons:        datatypes.JSON([]byte(`["test"]`)),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed link: %v", err)
	}
	return l
}

func SeedSignalDefinition(tb testing.TB, ctx context.Context, tx *gorm.DB, signalType, category string, minConfidence float64) *types.SignalDefinition {
	tb.Helper()
	d := &types.SignalDefinition{
		ID:                    uuid.New(),
		SignalType:            signalType,
		Category:              category,
		RequiredEvidenceTypes: datatypes.JSON([]byte(`["excerpt"]`)),
		MinConfidence:         minConfidence,
		Weight:                1,
		Active:                true,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed signal definition: %v", err)
	}
	return d
}

func SeedSignal(tb testing.TB, ctx context.Context, tx *gorm.DB, signalType, category, entityType string, entityID uuid.UUID, severity int, excerptIDs []uuid.UUID) *types.Signal {
	tb.Helper()
	excerpts := []byte("[]")
	if len(excerptIDs) > 0 {
		excerpts, _ = json.Marshal(excerptIDs)
	}
	s := &types.Signal{
		ID:                  uuid.New(),
		SignalType:          signalType,
		Category:            category,
		EntityRefType:       entityType,
		EntityRefID:         entityID,
		Value:               datatypes.JSON([]byte("{}")),
		Severity:            severity,
		Confidence:          0.8,
		DetectorID:          "test_detector",
		DetectorVersion:     "1.0.0",
		EvidenceExcerptIDs:  datatypes.JSON(excerpts),
		EvidenceArtifactIDs: datatypes.JSON([]byte("[]")),
		Status:              "active",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed signal: %v", err)
	}
	return s
}

func SeedIssue(tb testing.TB, ctx context.Context, tx *gorm.DB, proposalID uuid.UUID, state string, lastActivity time.Time) *types.Issue {
	tb.Helper()
	i := &types.Issue{
		ID:                 uuid.New(),
		SourceProposalID:   proposalID,
		IssueType:          "risk",
		State:              state,
		Headline:           "test issue",
		PrimaryRefType:     "project",
		PrimaryRefID:       uuid.New(),
		ResolutionCriteria: datatypes.JSON([]byte("[]")),
		Priority:           50,
		OpenedAt:           lastActivity,
		LastActivityAt:     lastActivity,
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed issue: %v", err)
	}
	return i
}
