package detectors

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// Scope bounds one detection pass. Detectors read artifacts that occurred in
// [Since, Now] and judge freshness against Now so a pass is reproducible.
type Scope struct {
	Since time.Time
	Now   time.Time
}

// Candidate is a would-be signal. The registry validates each candidate
// against its signal definition before anything is persisted; detectors never
// write signal rows themselves.
type Candidate struct {
	SignalType          string
	EntityRefType       string
	EntityRefID         uuid.UUID
	Value               map[string]any
	Severity            int
	Confidence          float64
	EvidenceExcerptIDs  []uuid.UUID
	EvidenceArtifactIDs []uuid.UUID
	ExpiresAt           *time.Time
}

type Detector interface {
	ID() string
	Version() string
	SignalTypes() []string
	Detect(ctx context.Context, scope Scope) ([]Candidate, error)
}

// PayloadReader resolves an artifact's payload whether it is stored inline or
// offloaded to the blob store.
type PayloadReader interface {
	LoadPayload(ctx context.Context, a *types.Artifact) (map[string]any, error)
}

// ExcerptWriter pins a text span from an artifact as a durable evidence
// excerpt, so detector-found evidence can count toward proposal proof.
type ExcerptWriter interface {
	ExcerptSpan(ctx context.Context, artifactID uuid.UUID, text string, start, end int) (*types.Excerpt, error)
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadFloat(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func payloadTime(payload map[string]any, key string) (time.Time, bool) {
	raw := payloadString(payload, key)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
