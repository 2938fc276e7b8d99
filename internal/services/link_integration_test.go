package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
)

func newTestLinkService(t *testing.T) (LinkService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewLinkService(tx, log, repos.NewEntityLinkRepo(tx, log), repos.NewArtifactRepo(tx, log), repos.NewFixDataRepo(tx, log), LinkConfig{})
	return svc, tx
}

func TestLinkConfidenceNeverDecreases(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "m-1", "message", nil)
	project := uuid.New()

	created, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "project", EntityID: project, Method: "keyword", Confidence: 0.7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Outcome != LinkCreated || created.Link.Status != "proposed" {
		t.Fatalf("create: outcome=%q status=%q", created.Outcome, created.Link.Status)
	}

	lower, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "project", EntityID: project, Method: "keyword", Confidence: 0.5})
	if err != nil {
		t.Fatalf("relink lower: %v", err)
	}
	if lower.Outcome != LinkExisting || lower.Link.Confidence != 0.7 {
		t.Fatalf("lower confidence must not overwrite: outcome=%q confidence=%v", lower.Outcome, lower.Link.Confidence)
	}

	higher, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "project", EntityID: project, Method: "explicit_ref", Confidence: 0.9, AutoConfirm: true})
	if err != nil {
		t.Fatalf("relink higher: %v", err)
	}
	if higher.Outcome != LinkUpdated || higher.Link.Confidence != 0.9 {
		t.Fatalf("higher confidence should update: outcome=%q confidence=%v", higher.Outcome, higher.Link.Confidence)
	}
	if higher.Link.Status != "confirmed" || higher.Link.ConfirmedBy != "system" {
		t.Fatalf("auto confirm above threshold: status=%q by=%q", higher.Link.Status, higher.Link.ConfirmedBy)
	}
}

func TestHighConfidenceWithoutAutoConfirmStaysProposed(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "m-5", "message", nil)
	project := uuid.New()

	res, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "project", EntityID: project, Method: "explicit_ref", Confidence: 0.95})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Link.Status != "proposed" || res.Link.ConfirmedBy != "" {
		t.Fatalf("without auto_confirm: status=%q by=%q", res.Link.Status, res.Link.ConfirmedBy)
	}

	// Relinking higher without the flag raises confidence but not status.
	bumped, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "project", EntityID: project, Method: "manual", Confidence: 0.99})
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if bumped.Outcome != LinkUpdated || bumped.Link.Status != "proposed" {
		t.Fatalf("relink without auto_confirm: outcome=%q status=%q", bumped.Outcome, bumped.Link.Status)
	}
}

func TestConfirmedLinkCannotBeRejected(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "m-6", "message", nil)
	confirmed := testutil.SeedLink(t, ctx, tx, a.ID, "project", uuid.New(), "confirmed", 0.9)

	if _, err := svc.RejectLink(ctx, confirmed.ID, "operator-1"); err == nil {
		t.Fatal("rejecting a confirmed link should fail")
	}
	after, err := svc.ConfirmLink(ctx, confirmed.ID, "operator-1")
	if err != nil {
		t.Fatalf("re-confirm is a no-op: %v", err)
	}
	if after.Status != "confirmed" {
		t.Fatalf("status after re-confirm: %q", after.Status)
	}

	rejected := testutil.SeedLink(t, ctx, tx, a.ID, "client", uuid.New(), "rejected", 0.5)
	if _, err := svc.ConfirmLink(ctx, rejected.ID, "operator-1"); err == nil {
		t.Fatal("confirming a rejected link should fail")
	}

	proposed := testutil.SeedLink(t, ctx, tx, a.ID, "task", uuid.New(), "proposed", 0.7)
	row, err := svc.RejectLink(ctx, proposed.ID, "operator-1")
	if err != nil {
		t.Fatalf("reject proposed: %v", err)
	}
	if row.Status != "rejected" || row.ConfirmedBy != "operator-1" {
		t.Fatalf("rejected link: status=%q by=%q", row.Status, row.ConfirmedBy)
	}
}

func TestRejectedLinkStaysRejected(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "email", "m-2", "message", nil)
	client := uuid.New()
	seeded := testutil.SeedLink(t, ctx, tx, a.ID, "client", client, "rejected", 0.6)

	res, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "client", EntityID: client, Method: "manual", Confidence: 0.99})
	if err != nil {
		t.Fatalf("relink rejected: %v", err)
	}
	if res.Outcome != LinkExisting || res.Link.ID != seeded.ID || res.Link.Status != "rejected" {
		t.Fatalf("rejection must never reopen: outcome=%q status=%q", res.Outcome, res.Link.Status)
	}
}

func TestAmbiguousLinkOpensFixData(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()

	a := testutil.SeedArtifact(t, ctx, tx, "chat", "m-3", "message", nil)
	res, err := svc.CreateLink(ctx, tx, CreateLinkInput{ArtifactID: a.ID, EntityType: "task", EntityID: uuid.New(), Method: "keyword", Confidence: 0.4})
	if err != nil {
		t.Fatalf("create ambiguous: %v", err)
	}
	if res.Outcome != LinkCreated {
		t.Fatalf("outcome: %q", res.Outcome)
	}

	open, err := svc.GetOpenFixData(ctx, 10)
	if err != nil {
		t.Fatalf("GetOpenFixData: %v", err)
	}
	found := false
	for _, item := range open {
		if item.FixType == "ambiguous_link" && item.ArtifactID != nil && *item.ArtifactID == a.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("ambiguous link did not open a fix-data item")
	}
}

func TestCreateLinkValidation(t *testing.T) {
	svc, tx := newTestLinkService(t)
	ctx := context.Background()
	a := testutil.SeedArtifact(t, ctx, tx, "chat", "m-4", "message", nil)

	cases := []CreateLinkInput{
		{ArtifactID: a.ID, EntityType: "starship", EntityID: uuid.New(), Method: "keyword", Confidence: 0.5},
		{ArtifactID: a.ID, EntityType: "project", EntityID: uuid.New(), Method: "vibes", Confidence: 0.5},
		{ArtifactID: a.ID, EntityType: "project", EntityID: uuid.New(), Method: "keyword", Confidence: 1.5},
		{ArtifactID: a.ID, EntityType: "project", EntityID: uuid.New(), Method: "keyword", Confidence: 0},
	}
	for i, input := range cases {
		if _, err := svc.CreateLink(ctx, tx, input); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
