package detectors

import (
	"context"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
)

var closedTaskStatuses = map[string]bool{
	"done":      true,
	"cancelled": true,
}

// DeadlineDetector flags task artifacts whose due date has passed while the
// task is still open. Severity climbs with how long the deadline has slipped.
type DeadlineDetector struct {
	artifacts repos.ArtifactRepo
	links     repos.EntityLinkRepo
	payloads  PayloadReader
}

func NewDeadlineDetector(artifacts repos.ArtifactRepo, links repos.EntityLinkRepo, payloads PayloadReader) *DeadlineDetector {
	return &DeadlineDetector{artifacts: artifacts, links: links, payloads: payloads}
}

func (d *DeadlineDetector) ID() string            { return "deadline_detector" }
func (d *DeadlineDetector) Version() string       { return "1.1.0" }
func (d *DeadlineDetector) SignalTypes() []string { return []string{"deadline_overdue"} }

func (d *DeadlineDetector) Detect(ctx context.Context, scope Scope) ([]Candidate, error) {
	since := scope.Since
	arts, err := d.artifacts.Find(ctx, nil, repos.ArtifactFilters{Type: "task", Since: &since}, 1000)
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(arts))
	for _, a := range arts {
		ids = append(ids, a.ID)
	}
	links, err := d.links.GetByArtifactIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	taskByArtifact := make(map[uuid.UUID]uuid.UUID)
	for _, l := range links {
		if l.ToEntityType == "task" && l.Status == "confirmed" {
			taskByArtifact[l.FromArtifactID] = l.ToEntityID
		}
	}

	var out []Candidate
	for _, a := range arts {
		taskID, ok := taskByArtifact[a.ID]
		if !ok {
			continue
		}
		payload, err := d.payloads.LoadPayload(ctx, a)
		if err != nil {
			return nil, err
		}
		if closedTaskStatuses[payloadString(payload, "status")] {
			continue
		}
		dueAt, ok := payloadTime(payload, "due_at")
		if !ok || !dueAt.Before(scope.Now) {
			continue
		}
		daysOverdue := int(scope.Now.Sub(dueAt).Hours() / 24)
		severity := 3
		switch {
		case daysOverdue > 7:
			severity = 5
		case daysOverdue > 3:
			severity = 4
		}
		out = append(out, Candidate{
			SignalType:    "deadline_overdue",
			EntityRefType: "task",
			EntityRefID:   taskID,
			Value: map[string]any{
				"due_at":       dueAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
				"days_overdue": daysOverdue,
			},
			Severity:            severity,
			Confidence:          0.9,
			EvidenceArtifactIDs: []uuid.UUID{a.ID},
		})
	}
	return out, nil
}
