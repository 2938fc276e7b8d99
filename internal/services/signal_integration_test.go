package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type fakeDetector struct {
	id         string
	candidates []detectors.Candidate
	err        error
	panics     bool
}

func (d *fakeDetector) ID() string            { return d.id }
func (d *fakeDetector) Version() string       { return "1.0.0" }
func (d *fakeDetector) SignalTypes() []string { return []string{"deadline_overdue"} }

func (d *fakeDetector) Detect(ctx context.Context, scope detectors.Scope) ([]detectors.Candidate, error) {
	if d.panics {
		panic("detector blew up")
	}
	return d.candidates, d.err
}

func newTestSignalService(t *testing.T) (SignalService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewSignalService(tx, log,
		repos.NewSignalDefinitionRepo(tx, log),
		repos.NewDetectorRunRepo(tx, log),
		repos.NewSignalRepo(tx, log),
		repos.NewSignalFeedbackRepo(tx, log),
		repos.NewProtocolViolationRepo(tx, log))
	return svc, tx
}

func TestRunAllIsolatesFailingDetectors(t *testing.T) {
	svc, tx := newTestSignalService(t)
	ctx := context.Background()

	testutil.SeedSignalDefinition(t, ctx, tx, "deadline_overdue", "deadline", 0.5)
	a := testutil.SeedArtifact(t, ctx, tx, "tasktracker", "task-9", "task", nil)
	excerpt := testutil.SeedExcerpt(t, ctx, tx, a.ID, "due last friday")

	good := &fakeDetector{id: "good", candidates: []detectors.Candidate{{
		SignalType:         "deadline_overdue",
		EntityRefType:      "task",
		EntityRefID:        uuid.New(),
		Severity:           3,
		Confidence:         0.9,
		EvidenceExcerptIDs: []uuid.UUID{excerpt.ID},
	}}}
	svc.RegisterDetector(&fakeDetector{id: "panicky", panics: true})
	svc.RegisterDetector(&fakeDetector{id: "erroring", err: fmt.Errorf("upstream unavailable")})
	svc.RegisterDetector(good)

	report, err := svc.RunAll(ctx, detectors.Scope{Since: time.Now().UTC().Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(report.Runs) != 3 {
		t.Fatalf("run count: want=3 got=%d", len(report.Runs))
	}
	if report.TotalSignals != 1 {
		t.Fatalf("total signals: want=1 got=%d", report.TotalSignals)
	}
	byID := make(map[string]DetectorRunReport)
	for _, r := range report.Runs {
		byID[r.DetectorID] = r
	}
	if byID["panicky"].Status != "failed" || byID["panicky"].Error == "" {
		t.Fatalf("panicking detector run: %+v", byID["panicky"])
	}
	if byID["erroring"].Status != "failed" {
		t.Fatalf("erroring detector run: %+v", byID["erroring"])
	}
	if byID["good"].Status != "completed" || byID["good"].SignalsSaved != 1 {
		t.Fatalf("good detector run: %+v", byID["good"])
	}

	// Every pass leaves a run row, failures included.
	var runs []types.DetectorRun
	if err := tx.WithContext(ctx).Find(&runs).Error; err != nil {
		t.Fatalf("load detector runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("detector_run rows: want=3 got=%d", len(runs))
	}
}

func TestEmitRecordsProtocolViolations(t *testing.T) {
	svc, tx := newTestSignalService(t)
	ctx := context.Background()

	testutil.SeedSignalDefinition(t, ctx, tx, "deadline_overdue", "deadline", 0.5)
	a := testutil.SeedArtifact(t, ctx, tx, "tasktracker", "task-10", "task", nil)
	excerpt := testutil.SeedExcerpt(t, ctx, tx, a.ID, "slipping")

	bad := &fakeDetector{id: "sloppy", candidates: []detectors.Candidate{
		{
			// Unknown signal type.
			SignalType:         "made_up_type",
			EntityRefType:      "task",
			EntityRefID:        uuid.New(),
			Severity:           2,
			Confidence:         0.9,
			EvidenceExcerptIDs: []uuid.UUID{excerpt.ID},
		},
		{
			// No provenance at all.
			SignalType:    "deadline_overdue",
			EntityRefType: "task",
			EntityRefID:   uuid.New(),
			Severity:      2,
			Confidence:    0.9,
		},
		{
			// Severity out of range.
			SignalType:         "deadline_overdue",
			EntityRefType:      "task",
			EntityRefID:        uuid.New(),
			Severity:           9,
			Confidence:         0.9,
			EvidenceExcerptIDs: []uuid.UUID{excerpt.ID},
		},
	}}
	svc.RegisterDetector(bad)

	report, err := svc.RunAll(ctx, detectors.Scope{Since: time.Now().UTC().Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if report.TotalSignals != 0 {
		t.Fatalf("no candidate should persist, got %d", report.TotalSignals)
	}
	if report.Runs[0].Dropped != 3 {
		t.Fatalf("dropped: want=3 got=%d", report.Runs[0].Dropped)
	}

	var violations []types.ProtocolViolation
	if err := tx.WithContext(ctx).Order("kind").Find(&violations).Error; err != nil {
		t.Fatalf("load violations: %v", err)
	}
	if len(violations) != 3 {
		t.Fatalf("violation rows: want=3 got=%d", len(violations))
	}
	kinds := []string{violations[0].Kind, violations[1].Kind, violations[2].Kind}
	want := []string{"missing_provenance", "severity_out_of_range", "unknown_signal_type"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("violation kinds: want=%v got=%v", want, kinds)
		}
	}
}

func TestConfidenceFloorDropsQuietly(t *testing.T) {
	svc, tx := newTestSignalService(t)
	ctx := context.Background()

	testutil.SeedSignalDefinition(t, ctx, tx, "deadline_overdue", "deadline", 0.7)
	a := testutil.SeedArtifact(t, ctx, tx, "tasktracker", "task-11", "task", nil)
	excerpt := testutil.SeedExcerpt(t, ctx, tx, a.ID, "maybe late")

	svc.RegisterDetector(&fakeDetector{id: "timid", candidates: []detectors.Candidate{{
		SignalType:         "deadline_overdue",
		EntityRefType:      "task",
		EntityRefID:        uuid.New(),
		Severity:           2,
		Confidence:         0.4,
		EvidenceExcerptIDs: []uuid.UUID{excerpt.ID},
	}}})

	report, err := svc.RunAll(ctx, detectors.Scope{Since: time.Now().UTC().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if report.TotalSignals != 0 || report.Runs[0].Dropped != 1 {
		t.Fatalf("low-confidence candidate handling: %+v", report.Runs[0])
	}

	// Below-floor is a quiet drop, not a contract breach.
	var count int64
	if err := tx.WithContext(ctx).Model(&types.ProtocolViolation{}).Count(&count).Error; err != nil {
		t.Fatalf("count violations: %v", err)
	}
	if count != 0 {
		t.Fatalf("confidence floor must not record a violation, got %d", count)
	}
}

func TestDismissSignalRequiresActiveSignal(t *testing.T) {
	svc, tx := newTestSignalService(t)
	ctx := context.Background()

	sig := testutil.SeedSignal(t, ctx, tx, "deadline_overdue", "deadline", "task", uuid.New(), 2, nil)

	if err := svc.DismissSignal(ctx, sig.ID, "operator-1", "false positive"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if err := svc.DismissSignal(ctx, sig.ID, "operator-1", "again"); err == nil {
		t.Fatal("dismissing a dismissed signal should fail")
	}
	if err := svc.DismissSignal(ctx, sig.ID, "", "no actor"); err == nil {
		t.Fatal("dismiss without an actor should fail")
	}

	var feedback []types.SignalFeedback
	if err := tx.WithContext(ctx).Where("signal_id = ?", sig.ID).Find(&feedback).Error; err != nil {
		t.Fatalf("load feedback: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Feedback != "dismissed" {
		t.Fatalf("feedback rows: %+v", feedback)
	}
}
