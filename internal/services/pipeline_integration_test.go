package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type cycleFixture struct {
	tx        *gorm.DB
	artifacts ArtifactService
	links     LinkService
	signals   SignalService
	proposals ProposalService
	issues    IssueService
	pipeline  PipelineService
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	artifactRepo := repos.NewArtifactRepo(tx, log)
	excerptRepo := repos.NewExcerptRepo(tx, log)
	linkRepo := repos.NewEntityLinkRepo(tx, log)
	fixDataRepo := repos.NewFixDataRepo(tx, log)
	signalRepo := repos.NewSignalRepo(tx, log)
	defRepo := repos.NewSignalDefinitionRepo(tx, log)
	proposalRepo := repos.NewProposalRepo(tx, log)
	issueRepo := repos.NewIssueRepo(tx, log)
	watcherRepo := repos.NewWatcherRepo(tx, log)
	couplingRepo := repos.NewCouplingRepo(tx, log)

	artifacts := NewArtifactService(tx, log, artifactRepo, excerptRepo, nil, 0)
	links := NewLinkService(tx, log, linkRepo, artifactRepo, fixDataRepo, LinkConfig{})
	signals := NewSignalService(tx, log, defRepo, repos.NewDetectorRunRepo(tx, log), signalRepo, repos.NewSignalFeedbackRepo(tx, log), repos.NewProtocolViolationRepo(tx, log))
	signals.RegisterDetector(detectors.NewDeadlineDetector(artifactRepo, linkRepo, artifacts))
	proposals := NewProposalService(tx, log, proposalRepo, signalRepo, defRepo, ScoreConfig{})
	watchers := NewWatcherService(tx, log, watcherRepo, issueRepo)
	couplings := NewCouplingService(tx, log, couplingRepo, signalRepo, CouplingConfig{})
	brief := NewBriefService(tx, log, proposalRepo, issueRepo, signalRepo, couplingRepo, fixDataRepo, nil)
	issues := NewIssueService(tx, log, issueRepo, proposalRepo, signalRepo, watcherRepo, repos.NewHandoffRepo(tx, log), IssueConfig{})
	pipeline := NewPipelineService(log, signals, proposals, watchers, couplings, brief)

	return &cycleFixture{
		tx:        tx,
		artifacts: artifacts,
		links:     links,
		signals:   signals,
		proposals: proposals,
		issues:    issues,
		pipeline:  pipeline,
	}
}

// Walks one report through the whole pipeline: an overdue task artifact is
// ingested, excerpted, and linked; a cycle turns it into a signal and a
// surfaceable proposal; an operator tags the proposal; the resulting issue
// carries consumed signals and live watchers.
func TestFullCycleFromArtifactToIssue(t *testing.T) {
	f := newCycleFixture(t)
	ctx := context.Background()

	testutil.SeedSignalDefinition(t, ctx, f.tx, "deadline_overdue", "deadline", 0.5)

	dueAt := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339)
	ingested, err := f.artifacts.Create(ctx, f.tx, CreateArtifactInput{
		Source:     "tasktracker",
		SourceID:   "task-771",
		Type:       "task",
		OccurredAt: time.Now().UTC().Add(-2 * time.Hour),
		Payload:    map[string]any{"title": "send the final invoice", "due_at": dueAt, "status": "open"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ingested.Outcome != ArtifactCreated {
		t.Fatalf("ingest outcome: %q", ingested.Outcome)
	}
	artifact := ingested.Artifact

	var excerptIDs []uuid.UUID
	for _, text := range []string{"due last monday", "client asked twice", "still unsent"} {
		e, err := f.artifacts.CreateExcerpt(ctx, f.tx, ExcerptInput{ArtifactID: artifact.ID, Text: text})
		if err != nil {
			t.Fatalf("excerpt: %v", err)
		}
		excerptIDs = append(excerptIDs, e.ID)
	}

	task := uuid.New()
	linked, err := f.links.CreateLink(ctx, f.tx, CreateLinkInput{
		ArtifactID:  artifact.ID,
		EntityType:  "task",
		EntityID:    task,
		Method:      "explicit_ref",
		Confidence:  0.9,
		AutoConfirm: true,
	})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.Link.Status != "confirmed" {
		t.Fatalf("high-confidence link not auto-confirmed: %q", linked.Link.Status)
	}

	// Operator-pinned excerpt evidence for the same task, so the proposal
	// clears the proof threshold.
	testutil.SeedSignal(t, ctx, f.tx, "deadline_overdue", "deadline", "task", task, 3, excerptIDs)

	report, err := f.pipeline.RunFullCycle(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("RunFullCycle: %v", err)
	}
	if report.Failed != 0 {
		t.Fatalf("cycle had failed stages: %+v", report.Stages)
	}

	// The detector found the overdue task on its own.
	var detected int64
	if err := f.tx.WithContext(ctx).Model(&types.Signal{}).
		Where("detector_id = ?", "deadline_detector").Count(&detected).Error; err != nil {
		t.Fatalf("count detected: %v", err)
	}
	if detected != 1 {
		t.Fatalf("deadline detector signals: want=1 got=%d", detected)
	}

	surfaceable, err := f.proposals.GetSurfaceable(ctx, 10)
	if err != nil {
		t.Fatalf("GetSurfaceable: %v", err)
	}
	if len(surfaceable) != 1 {
		t.Fatalf("surfaceable proposals: want=1 got=%d", len(surfaceable))
	}
	proposal := surfaceable[0]
	if proposal.PrimaryRefID != task || proposal.Status != "open" || proposal.UIExposureLevel != "surfaced" {
		t.Fatalf("proposal: ref=%s status=%q exposure=%q", proposal.PrimaryRefID, proposal.Status, proposal.UIExposureLevel)
	}

	issue, err := f.issues.TagProposal(ctx, proposal.ID, "operator-1")
	if err != nil {
		t.Fatalf("TagProposal: %v", err)
	}
	if issue.State != IssueStateOpen || issue.Priority != proposal.Score {
		t.Fatalf("issue: state=%q priority=%v", issue.State, issue.Priority)
	}

	var consumed int64
	if err := f.tx.WithContext(ctx).Model(&types.Signal{}).
		Where("consumed_by_issue_id = ?", issue.ID).Count(&consumed).Error; err != nil {
		t.Fatalf("count consumed: %v", err)
	}
	if consumed != 2 {
		t.Fatalf("consumed signals: want=2 got=%d", consumed)
	}

	var watcherCount int64
	if err := f.tx.WithContext(ctx).Model(&types.Watcher{}).
		Where("issue_id = ? AND active = ?", issue.ID, true).Count(&watcherCount).Error; err != nil {
		t.Fatalf("count watchers: %v", err)
	}
	if watcherCount == 0 {
		t.Fatal("tagged issue has no active watchers")
	}

	// A second cycle re-detects the still-overdue task and must not error.
	second, err := f.pipeline.RunFullCycle(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if second.Failed != 0 {
		t.Fatalf("second cycle had failed stages: %+v", second.Stages)
	}
}
