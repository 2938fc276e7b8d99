package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/blobstore"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type retentionFile struct {
	Retention []struct {
		Source     string `yaml:"source"`
		Type       string `yaml:"type"`
		MaxAgeDays int    `yaml:"max_age_days"`
		LegalHold  bool   `yaml:"legal_hold"`
	} `yaml:"retention"`
}

type PurgeReport struct {
	DryRun          bool             `json:"dry_run"`
	ArtifactsPurged int              `json:"artifacts_purged"`
	ExcerptsPurged  int              `json:"excerpts_purged"`
	BlobsPurged     int              `json:"blobs_purged"`
	HeldSources     []string         `json:"held_sources,omitempty"`
	BySource        map[string]int64 `json:"by_source,omitempty"`
}

type PolicyService interface {
	Authorize(ctx context.Context, role, action, entityType string) (bool, error)
	SeedDefaults(ctx context.Context) error
	LoadRetentionRules(ctx context.Context, path string) (int, error)
	PurgeExpiredArtifacts(ctx context.Context, dryRun bool) (*PurgeReport, error)
	RedactExcerpt(ctx context.Context, excerptID uuid.UUID, actor, reason string) error
}

type policyService struct {
	db        *gorm.DB
	log       *logger.Logger
	policy    repos.PolicyRepo
	artifacts repos.ArtifactRepo
	excerpts  repos.ExcerptRepo
	links     repos.EntityLinkRepo
	blobs     *blobstore.Store
}

func NewPolicyService(db *gorm.DB, baseLog *logger.Logger, policy repos.PolicyRepo, artifacts repos.ArtifactRepo, excerpts repos.ExcerptRepo, links repos.EntityLinkRepo, blobs *blobstore.Store) PolicyService {
	return &policyService{
		db:        db,
		log:       baseLog.With("service", "PolicyService"),
		policy:    policy,
		artifacts: artifacts,
		excerpts:  excerpts,
		links:     links,
		blobs:     blobs,
	}
}

// Authorize checks one (role, action, entity_type) triple against the ACL.
// No matching rule means deny.
func (s *policyService) Authorize(ctx context.Context, role, action, entityType string) (bool, error) {
	if role == "" || action == "" || entityType == "" {
		return false, nil
	}
	return s.policy.RuleExists(ctx, nil, role, action, entityType)
}

var defaultRoles = map[string]string{
	"admin":    "full access including purge and redaction",
	"operator": "day-to-day pipeline operation",
	"viewer":   "read-only access to surfaced output",
}

var defaultACL = map[string][][2]string{
	"viewer": {
		{"read", "proposal"}, {"read", "issue"}, {"read", "coupling"},
	},
	"operator": {
		{"read", "artifact"}, {"write", "artifact"},
		{"read", "proposal"}, {"write", "proposal"},
		{"read", "issue"}, {"write", "issue"},
		{"read", "signal"}, {"write", "signal"},
		{"read", "identity"}, {"write", "identity"},
		{"read", "link"}, {"write", "link"},
		{"read", "coupling"},
	},
	"admin": {
		{"read", "artifact"}, {"write", "artifact"}, {"purge", "artifact"},
		{"read", "proposal"}, {"write", "proposal"},
		{"read", "issue"}, {"write", "issue"},
		{"read", "signal"}, {"write", "signal"},
		{"read", "identity"}, {"write", "identity"},
		{"read", "link"}, {"write", "link"},
		{"read", "coupling"},
		{"redact", "excerpt"},
	},
}

func (s *policyService) SeedDefaults(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for role, desc := range defaultRoles {
			if err := s.policy.UpsertRole(ctx, tx, &types.AccessRole{
				ID:          uuid.New(),
				Role:        role,
				Description: desc,
			}); err != nil {
				return err
			}
		}
		for role, grants := range defaultACL {
			for _, g := range grants {
				if err := s.policy.UpsertACLRule(ctx, tx, &types.ACLRule{
					ID:         uuid.New(),
					Role:       role,
					Action:     g[0],
					EntityType: g[1],
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *policyService) LoadRetentionRules(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read retention rules: %w", err)
	}
	var file retentionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse retention rules: %w", err)
	}
	count := 0
	for _, rule := range file.Retention {
		if rule.Source == "" || rule.MaxAgeDays <= 0 {
			return count, fmt.Errorf("retention rule needs source and positive max_age_days")
		}
		if err := s.policy.UpsertRetentionRule(ctx, nil, &types.RetentionRule{
			ID:         uuid.New(),
			Source:     rule.Source,
			Type:       rule.Type,
			MaxAgeDays: rule.MaxAgeDays,
			LegalHold:  rule.LegalHold,
		}); err != nil {
			return count, err
		}
		count++
	}
	s.log.Info("retention rules loaded", "count", count, "path", path)
	return count, nil
}

// PurgeExpiredArtifacts applies retention rules to aged artifacts, cascading
// through excerpts, links, and orphaned blobs. Legal-hold rules are skipped
// entirely. The default invocation is a dry run; destruction is opt-in.
func (s *policyService) PurgeExpiredArtifacts(ctx context.Context, dryRun bool) (*PurgeReport, error) {
	rules, err := s.policy.GetRetentionRules(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{DryRun: dryRun, BySource: make(map[string]int64)}
	now := time.Now().UTC()
	for _, rule := range rules {
		if rule.LegalHold {
			report.HeldSources = append(report.HeldSources, rule.Source)
			continue
		}
		cutoff := now.Add(-time.Duration(rule.MaxAgeDays) * 24 * time.Hour)
		aged, err := s.artifacts.OlderThan(ctx, nil, rule.Source, cutoff)
		if err != nil {
			return nil, err
		}
		var victims []*types.Artifact
		for _, a := range aged {
			if rule.Type != "" && a.Type != rule.Type {
				continue
			}
			victims = append(victims, a)
		}
		if len(victims) == 0 {
			continue
		}

		ids := make([]uuid.UUID, 0, len(victims))
		hashes := make([]string, 0, len(victims))
		for _, a := range victims {
			ids = append(ids, a.ID)
			if a.PayloadRef != "" {
				hashes = append(hashes, a.PayloadRef)
			}
		}

		excerpts, err := s.excerpts.GetByArtifactIDs(ctx, nil, ids)
		if err != nil {
			return nil, err
		}

		report.ArtifactsPurged += len(victims)
		report.ExcerptsPurged += len(excerpts)
		report.BySource[rule.Source] += int64(len(victims))

		if dryRun {
			continue
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.excerpts.FullDeleteByArtifactIDs(ctx, tx, ids); err != nil {
				return err
			}
			if err := s.links.FullDeleteByArtifactIDs(ctx, tx, ids); err != nil {
				return err
			}
			if err := s.artifacts.FullDeleteByIDs(ctx, tx, ids); err != nil {
				return err
			}
			orphaned, err := s.orphanedHashes(ctx, tx, hashes)
			if err != nil {
				return err
			}
			if len(orphaned) > 0 && s.blobs != nil {
				if err := s.blobs.Delete(ctx, tx, orphaned); err != nil {
					return err
				}
				report.BlobsPurged += len(orphaned)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	s.log.Info("retention purge finished",
		"dry_run", dryRun,
		"artifacts", report.ArtifactsPurged,
		"excerpts", report.ExcerptsPurged,
		"blobs", report.BlobsPurged)
	return report, nil
}

// orphanedHashes filters out blob hashes still referenced by a surviving
// artifact. Blobs are content-addressed, so a hash may be shared.
func (s *policyService) orphanedHashes(ctx context.Context, tx *gorm.DB, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	var stillUsed []string
	if err := tx.WithContext(ctx).
		Model(&types.Artifact{}).
		Where("payload_ref IN ?", hashes).
		Distinct().
		Pluck("payload_ref", &stillUsed).Error; err != nil {
		return nil, err
	}
	used := make(map[string]bool, len(stillUsed))
	for _, h := range stillUsed {
		used[h] = true
	}
	var orphaned []string
	seen := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		if !used[h] && !seen[h] {
			orphaned = append(orphaned, h)
			seen[h] = true
		}
	}
	return orphaned, nil
}

func (s *policyService) RedactExcerpt(ctx context.Context, excerptID uuid.UUID, actor, reason string) error {
	if actor == "" {
		return fmt.Errorf("actor is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.excerpts.GetByIDs(ctx, tx, []uuid.UUID{excerptID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("unknown excerpt: %s", excerptID)
		}
		if err := s.excerpts.MarkRedacted(ctx, tx, excerptID); err != nil {
			return err
		}
		return s.policy.CreateRedactionMarker(ctx, tx, &types.RedactionMarker{
			ID:        uuid.New(),
			ExcerptID: excerptID,
			Reason:    reason,
			Actor:     actor,
		})
	})
}
