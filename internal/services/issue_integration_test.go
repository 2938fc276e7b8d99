package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

func newTestIssueService(t *testing.T) (IssueService, repos.SignalRepo, repos.WatcherRepo, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	signalRepo := repos.NewSignalRepo(tx, log)
	watcherRepo := repos.NewWatcherRepo(tx, log)
	svc := NewIssueService(tx, log, repos.NewIssueRepo(tx, log), repos.NewProposalRepo(tx, log), signalRepo, watcherRepo, repos.NewHandoffRepo(tx, log), IssueConfig{})
	return svc, signalRepo, watcherRepo, tx
}

func seedOpenProposal(t *testing.T, ctx context.Context, tx *gorm.DB, proposalType string, signalIDs, excerptIDs []uuid.UUID) *types.Proposal {
	t.Helper()
	sigJSON, _ := json.Marshal(signalIDs)
	excJSON, _ := json.Marshal(excerptIDs)
	p := &types.Proposal{
		ID:              uuid.New(),
		ProposalType:    proposalType,
		PrimaryRefType:  "project",
		PrimaryRefID:    uuid.New(),
		Headline:        "project at risk",
		Score:           72.5,
		Trend:           "flat",
		MaxSeverity:     4,
		SignalIDs:       datatypes.JSON(sigJSON),
		ProofExcerptIDs: datatypes.JSON(excJSON),
		UIExposureLevel: "surfaced",
		Status:          "open",
		OccurrenceCount: 1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return p
}

func TestTagProposalConsumesSignalsExactlyOnce(t *testing.T) {
	svc, signalRepo, watcherRepo, tx := newTestIssueService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "tag-1", "message", nil)
	var excerpts []uuid.UUID
	for _, text := range []string{"we are late", "client unhappy", "invoice overdue"} {
		excerpts = append(excerpts, testutil.SeedExcerpt(t, ctx, tx, a.ID, text).ID)
	}
	entity := uuid.New()
	s1 := testutil.SeedSignal(t, ctx, tx, "client_sentiment_negative", "risk", "project", entity, 4, excerpts[:2])
	s2 := testutil.SeedSignal(t, ctx, tx, "deadline_overdue", "risk", "project", entity, 3, excerpts[2:])
	proposal := seedOpenProposal(t, ctx, tx, "risk", []uuid.UUID{s1.ID, s2.ID}, excerpts)

	issue, err := svc.TagProposal(ctx, proposal.ID, "operator-1")
	if err != nil {
		t.Fatalf("TagProposal: %v", err)
	}
	if issue.State != IssueStateOpen {
		t.Fatalf("issue state: %q", issue.State)
	}
	if issue.Priority != proposal.Score {
		t.Fatalf("priority: want=%v got=%v", proposal.Score, issue.Priority)
	}

	// Both signals are consumed and pinned to the issue.
	stillActive, err := signalRepo.GetActiveByIDs(ctx, tx, []uuid.UUID{s1.ID, s2.ID})
	if err != nil {
		t.Fatalf("GetActiveByIDs: %v", err)
	}
	if len(stillActive) != 0 {
		t.Fatalf("signals still active after tag: %d", len(stillActive))
	}
	rows, err := signalRepo.GetByIDs(ctx, tx, []uuid.UUID{s1.ID, s2.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	for _, row := range rows {
		if row.ConsumedByIssueID == nil || *row.ConsumedByIssueID != issue.ID {
			t.Fatalf("signal %s not pinned to issue", row.ID)
		}
	}

	// Risk issues get the stale watcher plus the blocker watcher.
	watchers, err := watcherRepo.GetByIssueID(ctx, tx, issue.ID)
	if err != nil {
		t.Fatalf("watchers: %v", err)
	}
	if len(watchers) != 2 {
		t.Fatalf("watcher count: want=2 got=%d", len(watchers))
	}

	decisions, err := svc.GetDecisions(ctx, issue.ID)
	if err != nil {
		t.Fatalf("decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].DecisionType != "tagged" {
		t.Fatalf("decision log after tag: %+v", decisions)
	}

	// The proposal is no longer open, so a second tag is refused.
	if _, err := svc.TagProposal(ctx, proposal.ID, "operator-2"); err == nil {
		t.Fatal("second tag of the same proposal should fail")
	}
}

func TestTagProposalAbortsWhenASignalIsAlreadyConsumed(t *testing.T) {
	svc, signalRepo, _, tx := newTestIssueService(t)
	ctx := context.Background()

	entity := uuid.New()
	s1 := testutil.SeedSignal(t, ctx, tx, "deadline_overdue", "deadline", "task", entity, 3, nil)
	s2 := testutil.SeedSignal(t, ctx, tx, "deadline_overdue", "deadline", "task", entity, 4, nil)
	if _, err := signalRepo.MarkConsumed(ctx, tx, []uuid.UUID{s2.ID}, uuid.New()); err != nil {
		t.Fatalf("pre-consume: %v", err)
	}
	proposal := seedOpenProposal(t, ctx, tx, "deadline", []uuid.UUID{s1.ID, s2.ID}, nil)

	if _, err := svc.TagProposal(ctx, proposal.ID, "operator-1"); err == nil {
		t.Fatal("tag with a consumed signal should abort")
	}

	// The abort rolled everything back: the untouched signal stays active and
	// the proposal stays open.
	active, err := signalRepo.GetActiveByIDs(ctx, tx, []uuid.UUID{s1.ID})
	if err != nil {
		t.Fatalf("GetActiveByIDs: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("signal %s should still be active", s1.ID)
	}
	var after types.Proposal
	if err := tx.WithContext(ctx).First(&after, "id = ?", proposal.ID).Error; err != nil {
		t.Fatalf("reload proposal: %v", err)
	}
	if after.Status != "open" {
		t.Fatalf("proposal status after abort: %q", after.Status)
	}
}

func TestUpdateStateWalksTheLifecycle(t *testing.T) {
	svc, _, _, tx := newTestIssueService(t)
	ctx := context.Background()

	issue := testutil.SeedIssue(t, ctx, tx, uuid.New(), IssueStateOpen, time.Now().UTC())

	for _, next := range []string{IssueStateMonitoring, IssueStateBlocked, IssueStateMitigated} {
		updated, err := svc.UpdateState(ctx, issue.ID, next, "operator-1", "")
		if err != nil {
			t.Fatalf("UpdateState to %q: %v", next, err)
		}
		if updated.State != next {
			t.Fatalf("state after update: want=%q got=%q", next, updated.State)
		}
	}

	if _, err := svc.UpdateState(ctx, issue.ID, IssueStateAwaiting, "operator-1", ""); err == nil {
		t.Fatal("mitigated cannot re-enter awaiting")
	}
	if _, err := svc.UpdateState(ctx, issue.ID, "investigating", "operator-1", ""); err == nil {
		t.Fatal("unknown state should be rejected")
	}

	closed, err := svc.UpdateState(ctx, issue.ID, IssueStateResolved, "operator-1", "criteria met")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if closed.ClosedAt == nil || closed.ClosedReason != "criteria met" {
		t.Fatalf("terminal stamp: closed_at=%v reason=%q", closed.ClosedAt, closed.ClosedReason)
	}

	decisions, err := svc.GetDecisions(ctx, issue.ID)
	if err != nil {
		t.Fatalf("decisions: %v", err)
	}
	if len(decisions) != 4 {
		t.Fatalf("decision rows: want=4 got=%d", len(decisions))
	}
}

func TestHandoffCompletionClosesIssue(t *testing.T) {
	svc, _, watcherRepo, tx := newTestIssueService(t)
	ctx := context.Background()

	issue := testutil.SeedIssue(t, ctx, tx, uuid.New(), IssueStateMonitoring, time.Now().UTC())

	handoff, err := svc.CreateHandoff(ctx, CreateHandoffInput{
		IssueID:     issue.ID,
		FromPerson:  "jane",
		ToPerson:    "omar",
		Expectation: "chase the client for the overdue invoice",
	}, "jane")
	if err != nil {
		t.Fatalf("CreateHandoff: %v", err)
	}
	if handoff.State != "proposed" {
		t.Fatalf("new handoff state: %q", handoff.State)
	}

	// Proposing a handoff parks the issue in awaiting.
	parked, err := svc.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if parked.State != IssueStateAwaiting {
		t.Fatalf("issue after handoff proposal: %q", parked.State)
	}

	if _, err := svc.UpdateHandoffState(ctx, handoff.ID, "completed", "omar"); err == nil {
		t.Fatal("proposed handoff cannot complete directly")
	}
	if _, err := svc.UpdateHandoffState(ctx, handoff.ID, "accepted", "omar"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.UpdateHandoffState(ctx, handoff.ID, "completed", "omar"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	closed, err := svc.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if closed.State != IssueStateHandedOver || closed.ClosedAt == nil {
		t.Fatalf("issue after completion: state=%q closed_at=%v", closed.State, closed.ClosedAt)
	}

	watchers, err := watcherRepo.GetByIssueID(ctx, tx, issue.ID)
	if err != nil {
		t.Fatalf("watchers: %v", err)
	}
	for _, w := range watchers {
		if w.Active {
			t.Fatalf("watcher %s still active on terminal issue", w.ID)
		}
	}
}
