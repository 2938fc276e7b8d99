package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

const (
	LinkCreated  = "created"
	LinkUpdated  = "updated"
	LinkExisting = "existing"
)

var validLinkEntityTypes = map[string]bool{
	"client":  true,
	"project": true,
	"task":    true,
	"person":  true,
}

var validLinkMethods = map[string]bool{
	"explicit_ref":    true,
	"inferred_domain": true,
	"keyword":         true,
	"actor_profile":   true,
	"manual":          true,
}

// LinkConfig carries the confidence thresholds the linker applies.
type LinkConfig struct {
	AutoConfirmThreshold float64
	AmbiguousThreshold   float64
}

func (c LinkConfig) withDefaults() LinkConfig {
	if c.AutoConfirmThreshold <= 0 {
		c.AutoConfirmThreshold = 0.85
	}
	if c.AmbiguousThreshold <= 0 {
		c.AmbiguousThreshold = 0.6
	}
	return c
}

type CreateLinkInput struct {
	ArtifactID  uuid.UUID `json:"artifact_id"`
	EntityType  string    `json:"entity_type"`
	EntityID    uuid.UUID `json:"entity_id"`
	Method      string    `json:"method"`
	Confidence  float64   `json:"confidence"`
	Reasons     []string  `json:"reasons,omitempty"`
	AutoConfirm bool      `json:"auto_confirm,omitempty"`
}

type CreateLinkResult struct {
	Link    *types.EntityLink `json:"link"`
	Outcome string            `json:"outcome"`
}

type LinkService interface {
	CreateLink(ctx context.Context, tx *gorm.DB, input CreateLinkInput) (*CreateLinkResult, error)
	ConfirmLink(ctx context.Context, id uuid.UUID, actor string) (*types.EntityLink, error)
	RejectLink(ctx context.Context, id uuid.UUID, actor string) (*types.EntityLink, error)
	GetLinksForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.EntityLink, error)
	ReportDataQuality(ctx context.Context, tx *gorm.DB, item *types.FixDataItem) error
	ResolveFixData(ctx context.Context, id uuid.UUID, resolver, notes string) error
	GetOpenFixData(ctx context.Context, limit int) ([]*types.FixDataItem, error)
	GetStats(ctx context.Context) (map[string]int64, error)
}

type linkService struct {
	db        *gorm.DB
	log       *logger.Logger
	links     repos.EntityLinkRepo
	artifacts repos.ArtifactRepo
	fixData   repos.FixDataRepo
	cfg       LinkConfig
}

func NewLinkService(db *gorm.DB, baseLog *logger.Logger, links repos.EntityLinkRepo, artifacts repos.ArtifactRepo, fixData repos.FixDataRepo, cfg LinkConfig) LinkService {
	return &linkService{
		db:        db,
		log:       baseLog.With("service", "LinkService"),
		links:     links,
		artifacts: artifacts,
		fixData:   fixData,
		cfg:       cfg.withDefaults(),
	}
}

func (s *linkService) CreateLink(ctx context.Context, tx *gorm.DB, input CreateLinkInput) (*CreateLinkResult, error) {
	if input.ArtifactID == uuid.Nil || input.EntityID == uuid.Nil {
		return nil, fmt.Errorf("artifact_id and entity_id are required")
	}
	entityType := strings.TrimSpace(strings.ToLower(input.EntityType))
	if !validLinkEntityTypes[entityType] {
		return nil, fmt.Errorf("unknown entity type: %q", input.EntityType)
	}
	if !validLinkMethods[input.Method] {
		return nil, fmt.Errorf("unknown link method: %q", input.Method)
	}
	if input.Confidence <= 0 || input.Confidence > 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1], got %v", input.Confidence)
	}

	var result *CreateLinkResult
	run := func(t *gorm.DB) error {
		a, err := s.artifacts.GetByID(ctx, t, input.ArtifactID)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("unknown artifact: %s", input.ArtifactID)
		}

		existing, err := s.links.GetByPair(ctx, t, input.ArtifactID, entityType, input.EntityID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Re-linking the same pair never lowers confidence and never
			// reopens a human rejection.
			if existing.Status == "rejected" || input.Confidence <= existing.Confidence {
				result = &CreateLinkResult{Link: existing, Outcome: LinkExisting}
				return nil
			}
			existing.Confidence = input.Confidence
			existing.Method = input.Method
			if len(input.Reasons) > 0 {
				b, _ := json.Marshal(input.Reasons)
				existing.Reasons = datatypes.JSON(b)
			}
			if existing.Status == "proposed" && input.AutoConfirm && input.Confidence >= s.cfg.AutoConfirmThreshold {
				existing.Status = "confirmed"
				existing.ConfirmedBy = "system"
			}
			if err := s.links.Update(ctx, t, existing); err != nil {
				return err
			}
			result = &CreateLinkResult{Link: existing, Outcome: LinkUpdated}
			return nil
		}

		row := &types.EntityLink{
			ID:             uuid.New(),
			FromArtifactID: input.ArtifactID,
			ToEntityType:   entityType,
			ToEntityID:     input.EntityID,
			Method:         input.Method,
			Confidence:     input.Confidence,
			Status:         "proposed",
		}
		if len(input.Reasons) > 0 {
			b, _ := json.Marshal(input.Reasons)
			row.Reasons = datatypes.JSON(b)
		}
		if input.AutoConfirm && input.Confidence >= s.cfg.AutoConfirmThreshold {
			row.Status = "confirmed"
			row.ConfirmedBy = "system"
		}
		if _, err := s.links.Create(ctx, t, []*types.EntityLink{row}); err != nil {
			return err
		}
		if input.Confidence < s.cfg.AmbiguousThreshold {
			details, _ := json.Marshal(map[string]any{
				"link_id":    row.ID.String(),
				"method":     input.Method,
				"confidence": input.Confidence,
			})
			artifactID := input.ArtifactID
			entityID := input.EntityID
			item := &types.FixDataItem{
				ID:         uuid.New(),
				FixType:    "ambiguous_link",
				Severity:   2,
				ArtifactID: &artifactID,
				EntityType: entityType,
				EntityID:   &entityID,
				Details:    datatypes.JSON(details),
				Status:     "open",
			}
			if _, err := s.fixData.Create(ctx, t, []*types.FixDataItem{item}); err != nil {
				return err
			}
		}
		result = &CreateLinkResult{Link: row, Outcome: LinkCreated}
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

func (s *linkService) ConfirmLink(ctx context.Context, id uuid.UUID, actor string) (*types.EntityLink, error) {
	return s.setLinkStatus(ctx, id, "confirmed", actor)
}

func (s *linkService) RejectLink(ctx context.Context, id uuid.UUID, actor string) (*types.EntityLink, error) {
	return s.setLinkStatus(ctx, id, "rejected", actor)
}

// setLinkStatus moves a proposed link to confirmed or rejected. Links that
// already left proposed keep their status; fresh evidence goes through
// CreateLink instead.
func (s *linkService) setLinkStatus(ctx context.Context, id uuid.UUID, status, actor string) (*types.EntityLink, error) {
	row, err := s.links.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("unknown link: %s", id)
	}
	if row.Status == status {
		return row, nil
	}
	if row.Status != "proposed" {
		return nil, fmt.Errorf("link %s is %s, only proposed links can be %s", id, row.Status, status)
	}
	row.Status = status
	row.ConfirmedBy = actor
	if err := s.links.Update(ctx, nil, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *linkService) GetLinksForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.EntityLink, error) {
	return s.links.GetByArtifactIDs(ctx, nil, []uuid.UUID{artifactID})
}

func (s *linkService) ReportDataQuality(ctx context.Context, tx *gorm.DB, item *types.FixDataItem) error {
	if item == nil || item.FixType == "" {
		return fmt.Errorf("fix_type is required")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = "open"
	}
	_, err := s.fixData.Create(ctx, tx, []*types.FixDataItem{item})
	return err
}

func (s *linkService) ResolveFixData(ctx context.Context, id uuid.UUID, resolver, notes string) error {
	item, err := s.fixData.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("unknown fix-data item: %s", id)
	}
	if item.Status != "open" {
		return fmt.Errorf("fix-data item %s is already %s", id, item.Status)
	}
	return s.fixData.Resolve(ctx, nil, id, resolver, notes)
}

func (s *linkService) GetOpenFixData(ctx context.Context, limit int) ([]*types.FixDataItem, error) {
	return s.fixData.GetOpen(ctx, nil, limit)
}

func (s *linkService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.links.CountByStatus(ctx, nil)
}
