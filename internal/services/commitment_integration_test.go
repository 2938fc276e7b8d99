package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// A detected promise must leave a durable excerpt behind, so the signal's
// evidence can later satisfy proposal proof requirements on its own.
func TestCommitmentDetectorPinsExcerptEvidence(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	artifactRepo := repos.NewArtifactRepo(tx, log)
	excerptRepo := repos.NewExcerptRepo(tx, log)
	commitmentRepo := repos.NewCommitmentRepo(tx, log)
	artifacts := NewArtifactService(tx, log, artifactRepo, excerptRepo, nil, 0)
	signals := NewSignalService(tx, log,
		repos.NewSignalDefinitionRepo(tx, log),
		repos.NewDetectorRunRepo(tx, log),
		repos.NewSignalRepo(tx, log),
		repos.NewSignalFeedbackRepo(tx, log),
		repos.NewProtocolViolationRepo(tx, log))
	signals.RegisterDetector(detectors.NewCommitmentDetector(artifactRepo, commitmentRepo, artifacts, artifacts))

	testutil.SeedSignalDefinition(t, ctx, tx, "commitment_made", "commitment", 0.5)

	body := "Sounds good. I'll send the revised deck tomorrow. Ping me if anything is off."
	payload, _ := json.Marshal(map[string]any{"text": body})
	msg := testutil.SeedArtifact(t, ctx, tx, "chat", "msg-204", "message", payload)
	author := testutil.SeedProfile(t, ctx, tx, "person", "Jane Doe")
	msg.ActorProfileID = testutil.PtrUUID(author.ID)
	if err := tx.WithContext(ctx).Save(msg).Error; err != nil {
		t.Fatalf("attach author: %v", err)
	}

	report, err := signals.RunAll(ctx, detectors.Scope{Since: time.Now().UTC().Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if report.TotalSignals != 1 {
		t.Fatalf("total signals: want=1 got=%d", report.TotalSignals)
	}

	var sig types.Signal
	if err := tx.WithContext(ctx).Where("detector_id = ?", "commitment_detector").First(&sig).Error; err != nil {
		t.Fatalf("load signal: %v", err)
	}
	var excerptIDs []uuid.UUID
	if err := json.Unmarshal(sig.EvidenceExcerptIDs, &excerptIDs); err != nil {
		t.Fatalf("decode evidence excerpts: %v", err)
	}
	if len(excerptIDs) != 1 {
		t.Fatalf("evidence excerpts: want=1 got=%d", len(excerptIDs))
	}

	var excerpt types.Excerpt
	if err := tx.WithContext(ctx).Where("id = ?", excerptIDs[0]).First(&excerpt).Error; err != nil {
		t.Fatalf("load excerpt: %v", err)
	}
	if excerpt.ArtifactID != msg.ID {
		t.Fatalf("excerpt artifact: want=%s got=%s", msg.ID, excerpt.ArtifactID)
	}
	if excerpt.Text != "I'll send the revised deck tomorrow" {
		t.Fatalf("excerpt text: %q", excerpt.Text)
	}
	if start := strings.Index(body, excerpt.Text); excerpt.AnchorStart != start {
		t.Fatalf("excerpt anchor: want start=%d got=%d", start, excerpt.AnchorStart)
	}

	// A second pass sees the tracked promise and pins nothing new.
	if _, err := signals.RunAll(ctx, detectors.Scope{Since: time.Now().UTC().Add(-24 * time.Hour)}); err != nil {
		t.Fatalf("second RunAll: %v", err)
	}
	var excerptCount int64
	if err := tx.WithContext(ctx).Model(&types.Excerpt{}).Where("artifact_id = ?", msg.ID).Count(&excerptCount).Error; err != nil {
		t.Fatalf("count excerpts: %v", err)
	}
	if excerptCount != 1 {
		t.Fatalf("excerpt rows after re-run: want=1 got=%d", excerptCount)
	}
}
