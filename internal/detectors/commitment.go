package detectors

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

var commitmentPattern = regexp.MustCompile(`(?i)\b(i['\x60]?ll|i will|we['\x60]?ll|we will)\b[^.!?\n]*`)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// CommitmentDetector extracts promises from message text. Each promise becomes
// a tracked commitment row; when the author resolves to a known person, a
// commitment_made signal is emitted as well.
type CommitmentDetector struct {
	artifacts   repos.ArtifactRepo
	commitments repos.CommitmentRepo
	payloads    PayloadReader
	excerpts    ExcerptWriter
}

func NewCommitmentDetector(artifacts repos.ArtifactRepo, commitments repos.CommitmentRepo, payloads PayloadReader, excerpts ExcerptWriter) *CommitmentDetector {
	return &CommitmentDetector{artifacts: artifacts, commitments: commitments, payloads: payloads, excerpts: excerpts}
}

func (d *CommitmentDetector) ID() string            { return "commitment_detector" }
func (d *CommitmentDetector) Version() string       { return "1.2.0" }
func (d *CommitmentDetector) SignalTypes() []string { return []string{"commitment_made"} }

// parseDueHint reads a coarse deadline out of the promise text. Absence of a
// hint is fine; the commitment is still tracked, just without a due date.
func parseDueHint(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "tomorrow") {
		due := now.Add(24 * time.Hour)
		return &due
	}
	if strings.Contains(lower, "eod") || strings.Contains(lower, "end of day") {
		due := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())
		return &due
	}
	for name, wd := range weekdays {
		if !strings.Contains(lower, "by "+name) {
			continue
		}
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		due := now.Add(time.Duration(days) * 24 * time.Hour)
		return &due
	}
	return nil
}

func (d *CommitmentDetector) Detect(ctx context.Context, scope Scope) ([]Candidate, error) {
	since := scope.Since
	arts, err := d.artifacts.Find(ctx, nil, repos.ArtifactFilters{Type: "message", Since: &since}, 1000)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, a := range arts {
		payload, err := d.payloads.LoadPayload(ctx, a)
		if err != nil {
			return nil, err
		}
		text := payloadString(payload, "text")
		if text == "" {
			continue
		}
		spans := commitmentPattern.FindAllStringIndex(text, -1)
		if len(spans) == 0 {
			continue
		}
		existing, err := d.commitments.GetByArtifactID(ctx, nil, a.ID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(existing))
		for _, c := range existing {
			seen[c.Text] = true
		}
		for _, span := range spans {
			promise := strings.TrimSpace(text[span[0]:span[1]])
			if promise == "" || seen[promise] {
				continue
			}
			seen[promise] = true
			row := &types.Commitment{
				ID:         uuid.New(),
				ArtifactID: a.ID,
				ProfileID:  a.ActorProfileID,
				Text:       promise,
				DueAt:      parseDueHint(promise, scope.Now),
				Status:     "open",
			}
			if _, err := d.commitments.Create(ctx, nil, []*types.Commitment{row}); err != nil {
				return nil, err
			}
			if a.ActorProfileID == nil {
				continue
			}
			// The matched span itself is the proof; pin it so the bundled
			// proposal carries excerpt evidence.
			excerpt, err := d.excerpts.ExcerptSpan(ctx, a.ID, promise, span[0], span[1])
			if err != nil {
				return nil, err
			}
			value := map[string]any{"commitment_id": row.ID.String(), "text": promise}
			if row.DueAt != nil {
				value["due_at"] = row.DueAt.UTC().Format(time.RFC3339)
			}
			out = append(out, Candidate{
				SignalType:          "commitment_made",
				EntityRefType:       "person",
				EntityRefID:         *a.ActorProfileID,
				Value:               value,
				Severity:            2,
				Confidence:          0.75,
				EvidenceExcerptIDs:  []uuid.UUID{excerpt.ID},
				EvidenceArtifactIDs: []uuid.UUID{a.ID},
			})
		}
	}
	return out, nil
}
