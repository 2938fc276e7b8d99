package detectors

import (
	"context"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
)

// ClientHealthDetector aggregates sentiment over recent client-linked
// messages. A sustained negative mean is a relationship signal, one noisy
// message is not, so a minimum sample applies.
type ClientHealthDetector struct {
	artifacts repos.ArtifactRepo
	links     repos.EntityLinkRepo
	payloads  PayloadReader

	minMessages int
}

func NewClientHealthDetector(artifacts repos.ArtifactRepo, links repos.EntityLinkRepo, payloads PayloadReader) *ClientHealthDetector {
	return &ClientHealthDetector{artifacts: artifacts, links: links, payloads: payloads, minMessages: 3}
}

func (d *ClientHealthDetector) ID() string            { return "client_health_detector" }
func (d *ClientHealthDetector) Version() string       { return "1.0.2" }
func (d *ClientHealthDetector) SignalTypes() []string { return []string{"client_sentiment_negative"} }

func (d *ClientHealthDetector) Detect(ctx context.Context, scope Scope) ([]Candidate, error) {
	since := scope.Since
	arts, err := d.artifacts.Find(ctx, nil, repos.ArtifactFilters{Type: "message", Since: &since}, 1000)
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(arts))
	byID := make(map[uuid.UUID]int, len(arts))
	for i, a := range arts {
		ids = append(ids, a.ID)
		byID[a.ID] = i
	}
	links, err := d.links.GetByArtifactIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sum       float64
		count     int
		artifacts []uuid.UUID
	}
	perClient := make(map[uuid.UUID]*bucket)
	for _, l := range links {
		if l.ToEntityType != "client" || l.Status != "confirmed" {
			continue
		}
		idx, ok := byID[l.FromArtifactID]
		if !ok {
			continue
		}
		payload, err := d.payloads.LoadPayload(ctx, arts[idx])
		if err != nil {
			return nil, err
		}
		sentiment, ok := payloadFloat(payload, "sentiment")
		if !ok {
			continue
		}
		b := perClient[l.ToEntityID]
		if b == nil {
			b = &bucket{}
			perClient[l.ToEntityID] = b
		}
		b.sum += sentiment
		b.count++
		b.artifacts = append(b.artifacts, l.FromArtifactID)
	}

	var out []Candidate
	for clientID, b := range perClient {
		if b.count < d.minMessages {
			continue
		}
		mean := b.sum / float64(b.count)
		if mean >= -0.2 {
			continue
		}
		severity := 3
		if mean < -0.5 {
			severity = 4
		}
		out = append(out, Candidate{
			SignalType:    "client_sentiment_negative",
			EntityRefType: "client",
			EntityRefID:   clientID,
			Value: map[string]any{
				"mean_sentiment": mean,
				"message_count":  b.count,
			},
			Severity:            severity,
			Confidence:          0.7,
			EvidenceArtifactIDs: b.artifacts,
		})
	}
	return out, nil
}
