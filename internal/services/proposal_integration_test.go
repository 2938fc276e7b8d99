package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

func newTestProposalService(t *testing.T) (ProposalService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewProposalService(tx, log, repos.NewProposalRepo(tx, log), repos.NewSignalRepo(tx, log), repos.NewSignalDefinitionRepo(tx, log), ScoreConfig{})
	return svc, tx
}

func seedExcerpts(t *testing.T, ctx context.Context, tx *gorm.DB, artifactID uuid.UUID, texts ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(texts))
	for _, text := range texts {
		ids = append(ids, testutil.SeedExcerpt(t, ctx, tx, artifactID, text).ID)
	}
	return ids
}

func loadProposalByRef(t *testing.T, ctx context.Context, tx *gorm.DB, refID uuid.UUID) *types.Proposal {
	t.Helper()
	var row types.Proposal
	if err := tx.WithContext(ctx).First(&row, "primary_ref_id = ?", refID).Error; err != nil {
		t.Fatalf("load proposal: %v", err)
	}
	return &row
}

func TestGenerateFromSignalsEvidenceGating(t *testing.T) {
	svc, tx := newTestProposalService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "gen-1", "message", nil)
	strong := seedExcerpts(t, ctx, tx, a.ID, "deadline missed", "client escalated", "invoice unpaid")
	weak := seedExcerpts(t, ctx, tx, a.ID, "tone shifted")

	strongEntity := uuid.New()
	weakEntity := uuid.New()
	bareEntity := uuid.New()
	testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", strongEntity, 4, strong)
	testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", weakEntity, 3, weak)
	testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", bareEntity, 2, nil)

	report, err := svc.GenerateFromSignals(ctx)
	if err != nil {
		t.Fatalf("GenerateFromSignals: %v", err)
	}
	if report.Created != 3 || report.Updated != 0 {
		t.Fatalf("report: %+v", report)
	}

	full := loadProposalByRef(t, ctx, tx, strongEntity)
	if full.Status != "open" || full.UIExposureLevel != "surfaced" {
		t.Fatalf("three excerpts: status=%q exposure=%q", full.Status, full.UIExposureLevel)
	}
	partial := loadProposalByRef(t, ctx, tx, weakEntity)
	if partial.Status != "insufficient_evidence" || partial.UIExposureLevel != "briefable" {
		t.Fatalf("one excerpt: status=%q exposure=%q", partial.Status, partial.UIExposureLevel)
	}
	bare := loadProposalByRef(t, ctx, tx, bareEntity)
	if bare.Status != "insufficient_evidence" || bare.UIExposureLevel != "none" {
		t.Fatalf("no excerpts: status=%q exposure=%q", bare.Status, bare.UIExposureLevel)
	}
}

func TestGenerateFromSignalsUpdatesInPlace(t *testing.T) {
	svc, tx := newTestProposalService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "gen-2", "message", nil)
	first := seedExcerpts(t, ctx, tx, a.ID, "late again", "no response", "escalation")

	entity := uuid.New()
	testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", entity, 3, first)

	if _, err := svc.GenerateFromSignals(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	before := loadProposalByRef(t, ctx, tx, entity)

	more := seedExcerpts(t, ctx, tx, a.ID, "second escalation")
	testutil.SeedSignal(t, ctx, tx, "deadline_overdue", "risk", "project", entity, 5, more)

	report, err := svc.GenerateFromSignals(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.Created != 0 || report.Updated != 1 {
		t.Fatalf("second pass report: %+v", report)
	}

	after := loadProposalByRef(t, ctx, tx, entity)
	if after.ID != before.ID {
		t.Fatalf("second pass opened a new proposal")
	}
	if after.OccurrenceCount != before.OccurrenceCount+1 {
		t.Fatalf("occurrence count: before=%d after=%d", before.OccurrenceCount, after.OccurrenceCount)
	}
	if after.Score <= before.Score || after.Trend != "worsening" {
		t.Fatalf("score/trend after a severity-5 signal: score %v -> %v trend=%q", before.Score, after.Score, after.Trend)
	}
	if after.MaxSeverity != 5 {
		t.Fatalf("max severity: %d", after.MaxSeverity)
	}

	var sigIDs []uuid.UUID
	if err := json.Unmarshal(after.SignalIDs, &sigIDs); err != nil {
		t.Fatalf("signal ids: %v", err)
	}
	if len(sigIDs) != 2 {
		t.Fatalf("merged signal ids: want=2 got=%d", len(sigIDs))
	}
}

// Accepting claims a proposal without cutting the issue yet. The claimed
// proposal leaves the surface queue, refuses snooze and dismiss, and can still
// be tagged afterwards.
func TestAcceptClaimsProposalAheadOfTagging(t *testing.T) {
	svc, tx := newTestProposalService(t)
	ctx := context.Background()
	log := testutil.Logger(t)

	a := testutil.SeedArtifact(t, ctx, tx, "email", "gen-3", "message", nil)
	proof := seedExcerpts(t, ctx, tx, a.ID, "deadline missed", "client escalated", "invoice unpaid")
	entity := uuid.New()
	testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", entity, 4, proof)

	if _, err := svc.GenerateFromSignals(ctx); err != nil {
		t.Fatalf("GenerateFromSignals: %v", err)
	}
	proposal := loadProposalByRef(t, ctx, tx, entity)

	if err := svc.Accept(ctx, proposal.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	claimed := loadProposalByRef(t, ctx, tx, entity)
	if claimed.Status != "accepted" {
		t.Fatalf("accepted proposal status: %q", claimed.Status)
	}

	surfaceable, err := svc.GetSurfaceable(ctx, 10)
	if err != nil {
		t.Fatalf("GetSurfaceable: %v", err)
	}
	if len(surfaceable) != 0 {
		t.Fatalf("accepted proposal still surfaced: %d rows", len(surfaceable))
	}

	if err := svc.Accept(ctx, proposal.ID); err == nil {
		t.Fatal("accepting twice should fail")
	}
	if err := svc.Snooze(ctx, proposal.ID, time.Now().Add(time.Hour)); err == nil {
		t.Fatal("snoozing an accepted proposal should fail")
	}
	if err := svc.Dismiss(ctx, proposal.ID, "changed my mind"); err == nil {
		t.Fatal("dismissing an accepted proposal should fail")
	}

	issues := NewIssueService(tx, log, repos.NewIssueRepo(tx, log), repos.NewProposalRepo(tx, log), repos.NewSignalRepo(tx, log), repos.NewWatcherRepo(tx, log), repos.NewHandoffRepo(tx, log), IssueConfig{})
	issue, err := issues.TagProposal(ctx, proposal.ID, "operator-1")
	if err != nil {
		t.Fatalf("tagging an accepted proposal: %v", err)
	}
	if issue.State != IssueStateOpen || issue.SourceProposalID != proposal.ID {
		t.Fatalf("issue from accepted proposal: state=%q source=%s", issue.State, issue.SourceProposalID)
	}
}
