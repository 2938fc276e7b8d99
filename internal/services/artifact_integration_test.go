package services

import (
	"context"
	"testing"
	"time"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos/testutil"
)

func TestArtifactServiceCreateOutcomes(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	log := testutil.Logger(t)

	svc := NewArtifactService(tx, log, repos.NewArtifactRepo(tx, log), repos.NewExcerptRepo(tx, log), nil, 0)

	input := CreateArtifactInput{
		Source:     "email",
		SourceID:   "msg-100",
		Type:       "message",
		OccurredAt: time.Now().UTC().Add(-time.Hour),
		Payload:    map[string]any{"text": "invoice attached", "thread": "t-1"},
	}

	first, err := svc.Create(ctx, tx, input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Outcome != ArtifactCreated {
		t.Fatalf("first create outcome: want=%q got=%q", ArtifactCreated, first.Outcome)
	}

	second, err := svc.Create(ctx, tx, input)
	if err != nil {
		t.Fatalf("replay create: %v", err)
	}
	if second.Outcome != ArtifactUnchanged {
		t.Fatalf("replay outcome: want=%q got=%q", ArtifactUnchanged, second.Outcome)
	}
	if second.Artifact.ID != first.Artifact.ID {
		t.Fatalf("replay returned a different artifact: %s vs %s", second.Artifact.ID, first.Artifact.ID)
	}

	input.Payload["text"] = "invoice attached, corrected amount"
	third, err := svc.Create(ctx, tx, input)
	if err != nil {
		t.Fatalf("changed create: %v", err)
	}
	if third.Outcome != ArtifactUpdated {
		t.Fatalf("changed outcome: want=%q got=%q", ArtifactUpdated, third.Outcome)
	}
	if third.Artifact.ID != first.Artifact.ID {
		t.Fatalf("update created a new row: %s vs %s", third.Artifact.ID, first.Artifact.ID)
	}
	if third.Artifact.ContentHash == first.Artifact.ContentHash {
		t.Fatal("content hash did not change with the payload")
	}

	payload, err := svc.LoadPayload(ctx, third.Artifact)
	if err != nil {
		t.Fatalf("LoadPayload: %v", err)
	}
	if payload["text"] != "invoice attached, corrected amount" {
		t.Fatalf("payload text: got %v", payload["text"])
	}
}

func TestArtifactServiceCreateExcerpt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	log := testutil.Logger(t)

	svc := NewArtifactService(tx, log, repos.NewArtifactRepo(tx, log), repos.NewExcerptRepo(tx, log), nil, 0)
	a := testutil.SeedArtifact(t, ctx, tx, "chat", "c-1", "message", []byte(`{"text":"we are late"}`))

	e, err := svc.CreateExcerpt(ctx, tx, ExcerptInput{ArtifactID: a.ID, Text: "we are late", AnchorStart: 0, AnchorEnd: 11})
	if err != nil {
		t.Fatalf("CreateExcerpt: %v", err)
	}
	if e.TextHash == "" || e.RedactionStatus != "clear" {
		t.Fatalf("excerpt row: hash=%q status=%q", e.TextHash, e.RedactionStatus)
	}
	if e.AnchorType != "char_range" {
		t.Fatalf("default anchor type: got %q", e.AnchorType)
	}

	if _, err := svc.CreateExcerpt(ctx, tx, ExcerptInput{ArtifactID: a.ID, Text: "   "}); err == nil {
		t.Fatal("blank excerpt text should be rejected")
	}
}
