package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/blobstore"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

const (
	ArtifactCreated   = "created"
	ArtifactUpdated   = "updated"
	ArtifactUnchanged = "unchanged"
)

type CreateArtifactInput struct {
	Source         string         `json:"source"`
	SourceID       string         `json:"source_id"`
	Type           string         `json:"type"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Payload        map[string]any `json:"payload"`
	ActorRef       string         `json:"actor_ref,omitempty"`
	VisibilityTags []string       `json:"visibility_tags,omitempty"`
}

type CreateArtifactResult struct {
	Artifact *types.Artifact `json:"artifact"`
	Outcome  string          `json:"outcome"`
}

type ExcerptInput struct {
	ArtifactID  uuid.UUID `json:"artifact_id"`
	Text        string    `json:"text"`
	AnchorType  string    `json:"anchor_type"`
	AnchorStart int       `json:"anchor_start"`
	AnchorEnd   int       `json:"anchor_end"`
}

type ArtifactStats struct {
	BySource map[string]int64 `json:"by_source"`
}

type ArtifactService interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateArtifactInput) (*CreateArtifactResult, error)
	CreateExcerpt(ctx context.Context, tx *gorm.DB, input ExcerptInput) (*types.Excerpt, error)
	ExcerptSpan(ctx context.Context, artifactID uuid.UUID, text string, start, end int) (*types.Excerpt, error)
	GetArtifact(ctx context.Context, id uuid.UUID) (*types.Artifact, error)
	FindArtifacts(ctx context.Context, filters repos.ArtifactFilters, limit int) ([]*types.Artifact, error)
	LoadPayload(ctx context.Context, a *types.Artifact) (map[string]any, error)
	GetStats(ctx context.Context) (*ArtifactStats, error)
}

type artifactService struct {
	db             *gorm.DB
	log            *logger.Logger
	artifacts      repos.ArtifactRepo
	excerpts       repos.ExcerptRepo
	blobs          *blobstore.Store
	inlineMaxBytes int
}

func NewArtifactService(db *gorm.DB, baseLog *logger.Logger, artifacts repos.ArtifactRepo, excerpts repos.ExcerptRepo, blobs *blobstore.Store, inlineMaxBytes int) ArtifactService {
	if inlineMaxBytes <= 0 {
		inlineMaxBytes = 16 * 1024
	}
	return &artifactService{
		db:             db,
		log:            baseLog.With("service", "ArtifactService"),
		artifacts:      artifacts,
		excerpts:       excerpts,
		blobs:          blobs,
		inlineMaxBytes: inlineMaxBytes,
	}
}

// canonicalPayload produces the deterministic serialization the content hash
// is computed over. encoding/json writes map keys in sorted order, so a
// decoded payload always round-trips to the same bytes.
func canonicalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return json.Marshal(payload)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *artifactService) Create(ctx context.Context, tx *gorm.DB, input CreateArtifactInput) (*CreateArtifactResult, error) {
	source := strings.TrimSpace(input.Source)
	sourceID := strings.TrimSpace(input.SourceID)
	typ := strings.TrimSpace(strings.ToLower(input.Type))
	if source == "" || sourceID == "" {
		return nil, fmt.Errorf("source and source_id are required")
	}
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	if input.OccurredAt.IsZero() {
		return nil, fmt.Errorf("occurred_at is required")
	}

	canonical, err := canonicalPayload(input.Payload)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	contentHash := blobstore.HashPayload(canonical)

	var result *CreateArtifactResult
	run := func(t *gorm.DB) error {
		existing, err := s.artifacts.GetBySourceKey(ctx, t, source, sourceID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.ContentHash == contentHash {
				result = &CreateArtifactResult{Artifact: existing, Outcome: ArtifactUnchanged}
				return nil
			}
			// Same artifact identity, new content.
			if err := s.storePayload(ctx, t, existing, contentHash, canonical); err != nil {
				return err
			}
			existing.ContentHash = contentHash
			existing.OccurredAt = input.OccurredAt.UTC()
			if err := s.artifacts.Update(ctx, t, existing); err != nil {
				return err
			}
			result = &CreateArtifactResult{Artifact: existing, Outcome: ArtifactUpdated}
			return nil
		}

		row := &types.Artifact{
			ID:          uuid.New(),
			Source:      source,
			SourceID:    sourceID,
			Type:        typ,
			OccurredAt:  input.OccurredAt.UTC(),
			ActorRef:    strings.TrimSpace(input.ActorRef),
			ContentHash: contentHash,
		}
		if len(input.VisibilityTags) > 0 {
			b, _ := json.Marshal(input.VisibilityTags)
			row.VisibilityTags = datatypes.JSON(b)
		}
		if err := s.storePayload(ctx, t, row, contentHash, canonical); err != nil {
			return err
		}
		if _, err := s.artifacts.Create(ctx, t, []*types.Artifact{row}); err != nil {
			return err
		}
		result = &CreateArtifactResult{Artifact: row, Outcome: ArtifactCreated}
		return nil
	}

	if tx != nil {
		if err := run(tx); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := s.db.WithContext(ctx).Transaction(run); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *artifactService) storePayload(ctx context.Context, tx *gorm.DB, row *types.Artifact, contentHash string, canonical []byte) error {
	if len(canonical) > s.inlineMaxBytes && s.blobs != nil {
		if err := s.blobs.Put(ctx, tx, contentHash, canonical); err != nil {
			return err
		}
		row.Payload = nil
		row.PayloadRef = contentHash
		return nil
	}
	row.Payload = datatypes.JSON(canonical)
	row.PayloadRef = ""
	return nil
}

func (s *artifactService) CreateExcerpt(ctx context.Context, tx *gorm.DB, input ExcerptInput) (*types.Excerpt, error) {
	if input.ArtifactID == uuid.Nil {
		return nil, fmt.Errorf("artifact_id is required")
	}
	text := input.Text
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("excerpt text is required")
	}
	anchorType := strings.TrimSpace(input.AnchorType)
	if anchorType == "" {
		anchorType = "char_range"
	}
	a, err := s.artifacts.GetByID(ctx, tx, input.ArtifactID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("unknown artifact: %s", input.ArtifactID)
	}
	row := &types.Excerpt{
		ID:              uuid.New(),
		ArtifactID:      input.ArtifactID,
		AnchorType:      anchorType,
		AnchorStart:     input.AnchorStart,
		AnchorEnd:       input.AnchorEnd,
		Text:            text,
		TextHash:        hashText(text),
		RedactionStatus: "clear",
	}
	if _, err := s.excerpts.Create(ctx, tx, []*types.Excerpt{row}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *artifactService) ExcerptSpan(ctx context.Context, artifactID uuid.UUID, text string, start, end int) (*types.Excerpt, error) {
	return s.CreateExcerpt(ctx, nil, ExcerptInput{
		ArtifactID:  artifactID,
		Text:        text,
		AnchorStart: start,
		AnchorEnd:   end,
	})
}

func (s *artifactService) GetArtifact(ctx context.Context, id uuid.UUID) (*types.Artifact, error) {
	a, err := s.artifacts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	// Materialize blob-backed payloads so callers never see the indirection.
	if a.PayloadRef != "" && len(a.Payload) == 0 && s.blobs != nil {
		raw, err := s.blobs.Get(ctx, nil, a.PayloadRef)
		if err != nil {
			return nil, err
		}
		a.Payload = datatypes.JSON(raw)
	}
	return a, nil
}

func (s *artifactService) FindArtifacts(ctx context.Context, filters repos.ArtifactFilters, limit int) ([]*types.Artifact, error) {
	return s.artifacts.Find(ctx, nil, filters, limit)
}

func (s *artifactService) LoadPayload(ctx context.Context, a *types.Artifact) (map[string]any, error) {
	if a == nil {
		return nil, fmt.Errorf("nil artifact")
	}
	raw := []byte(a.Payload)
	if len(raw) == 0 && a.PayloadRef != "" && s.blobs != nil {
		b, err := s.blobs.Get(ctx, nil, a.PayloadRef)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func (s *artifactService) GetStats(ctx context.Context) (*ArtifactStats, error) {
	bySource, err := s.artifacts.CountBySource(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ArtifactStats{BySource: bySource}, nil
}
