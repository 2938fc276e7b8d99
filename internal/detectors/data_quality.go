package detectors

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// DataQualityDetector files fix-data tickets for task artifacts that cannot
// be attributed to any project. It emits no signals; gaps in the graph are a
// curation problem, not an entity fact.
type DataQualityDetector struct {
	artifacts repos.ArtifactRepo
	links     repos.EntityLinkRepo
	fixData   repos.FixDataRepo
}

func NewDataQualityDetector(artifacts repos.ArtifactRepo, links repos.EntityLinkRepo, fixData repos.FixDataRepo) *DataQualityDetector {
	return &DataQualityDetector{artifacts: artifacts, links: links, fixData: fixData}
}

func (d *DataQualityDetector) ID() string            { return "data_quality_detector" }
func (d *DataQualityDetector) Version() string       { return "1.0.0" }
func (d *DataQualityDetector) SignalTypes() []string { return nil }

func (d *DataQualityDetector) Detect(ctx context.Context, scope Scope) ([]Candidate, error) {
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
	hasProject := make(map[uuid.UUID]bool)
	for _, l := range links {
		if l.ToEntityType == "project" && l.Status != "rejected" {
			hasProject[l.FromArtifactID] = true
		}
	}

	open, err := d.fixData.GetOpen(ctx, nil, 500)
	if err != nil {
		return nil, err
	}
	alreadyFiled := make(map[uuid.UUID]bool)
	for _, item := range open {
		if item.FixType == "missing_project_link" && item.ArtifactID != nil {
			alreadyFiled[*item.ArtifactID] = true
		}
	}

	for _, a := range arts {
		if hasProject[a.ID] || alreadyFiled[a.ID] {
			continue
		}
		details, _ := json.Marshal(map[string]any{
			"source":    a.Source,
			"source_id": a.SourceID,
		})
		artifactID := a.ID
		item := &types.FixDataItem{
			ID:         uuid.New(),
			FixType:    "missing_project_link",
			Severity:   3,
			ArtifactID: &artifactID,
			Details:    datatypes.JSON(details),
			Status:     "open",
		}
		if _, err := d.fixData.Create(ctx, nil, []*types.FixDataItem{item}); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
