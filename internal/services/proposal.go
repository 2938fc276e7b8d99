package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// ScoreConfig tunes how signal bundles collapse into one priority number.
// Score is monotone in severity and signal count and capped at MaxScore.
type ScoreConfig struct {
	SeverityWeight   float64
	CountWeight      float64
	ConfidenceWeight float64
	MaxScore         float64
	TrendEpsilon     float64
	MinProofExcerpts int
}

func (c ScoreConfig) withDefaults() ScoreConfig {
	if c.SeverityWeight <= 0 {
		c.SeverityWeight = 15
	}
	if c.CountWeight <= 0 {
		c.CountWeight = 20
	}
	if c.ConfidenceWeight <= 0 {
		c.ConfidenceWeight = 10
	}
	if c.MaxScore <= 0 {
		c.MaxScore = 100
	}
	if c.TrendEpsilon <= 0 {
		c.TrendEpsilon = 0.5
	}
	if c.MinProofExcerpts <= 0 {
		c.MinProofExcerpts = 3
	}
	return c
}

type GenerateReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type ProposalService interface {
	GenerateFromSignals(ctx context.Context) (*GenerateReport, error)
	GetSurfaceable(ctx context.Context, limit int) ([]*types.Proposal, error)
	GetProposal(ctx context.Context, id uuid.UUID) (*types.Proposal, error)
	Accept(ctx context.Context, id uuid.UUID) error
	Snooze(ctx context.Context, id uuid.UUID, until time.Time) error
	Dismiss(ctx context.Context, id uuid.UUID, reason string) error
	GetStats(ctx context.Context) (map[string]int64, error)
}

type proposalService struct {
	db        *gorm.DB
	log       *logger.Logger
	proposals repos.ProposalRepo
	signals   repos.SignalRepo
	defs      repos.SignalDefinitionRepo
	cfg       ScoreConfig
}

func NewProposalService(db *gorm.DB, baseLog *logger.Logger, proposals repos.ProposalRepo, signals repos.SignalRepo, defs repos.SignalDefinitionRepo, cfg ScoreConfig) ProposalService {
	return &proposalService{
		db:        db,
		log:       baseLog.With("service", "ProposalService"),
		proposals: proposals,
		signals:   signals,
		defs:      defs,
		cfg:       cfg.withDefaults(),
	}
}

// ComputeScore is the bundle scoring function. Severity dominates, extra
// signals add a diminishing bonus, and confidence nudges the result.
func ComputeScore(cfg ScoreConfig, maxSeverity, signalCount int, meanConfidence, meanWeight float64) float64 {
	cfg = cfg.withDefaults()
	if signalCount <= 0 {
		return 0
	}
	countBonus := cfg.CountWeight * (1 - 1/(1+float64(signalCount)))
	score := cfg.SeverityWeight*float64(maxSeverity) + countBonus + cfg.ConfidenceWeight*meanConfidence*meanWeight
	return math.Min(math.Round(score*100)/100, cfg.MaxScore)
}

type signalGroup struct {
	proposalType string
	refType      string
	refID        uuid.UUID
	signals      []*types.Signal
}

func uuidSetToJSON(set map[uuid.UUID]bool) datatypes.JSON {
	if len(set) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

func collectUUIDs(raw datatypes.JSON, into map[uuid.UUID]bool) {
	if len(raw) == 0 {
		return
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return
	}
	for _, id := range ids {
		into[id] = true
	}
}

func (s *proposalService) GenerateFromSignals(ctx context.Context) (*GenerateReport, error) {
	active, err := s.signals.GetActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	defs, err := s.defs.GetAllActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	weightByType := make(map[string]float64, len(defs))
	for _, def := range defs {
		weightByType[def.SignalType] = def.Weight
	}

	groups := make(map[string]*signalGroup)
	for _, sig := range active {
		key := sig.Category + "|" + sig.EntityRefType + "|" + sig.EntityRefID.String()
		g := groups[key]
		if g == nil {
			g = &signalGroup{
				proposalType: sig.Category,
				refType:      sig.EntityRefType,
				refID:        sig.EntityRefID,
			}
			groups[key] = g
		}
		g.signals = append(g.signals, sig)
	}

	report := &GenerateReport{}
	for _, g := range groups {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			created, err := s.upsertProposal(ctx, tx, g, weightByType)
			if err != nil {
				return err
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *proposalService) upsertProposal(ctx context.Context, tx *gorm.DB, g *signalGroup, weightByType map[string]float64) (bool, error) {
	signalIDs := make(map[uuid.UUID]bool)
	excerptIDs := make(map[uuid.UUID]bool)
	artifactIDs := make(map[uuid.UUID]bool)
	maxSeverity := 0
	confSum, weightSum := 0.0, 0.0
	for _, sig := range g.signals {
		signalIDs[sig.ID] = true
		collectUUIDs(sig.EvidenceExcerptIDs, excerptIDs)
		collectUUIDs(sig.EvidenceArtifactIDs, artifactIDs)
		if sig.Severity > maxSeverity {
			maxSeverity = sig.Severity
		}
		confSum += sig.Confidence
		w := weightByType[sig.SignalType]
		if w <= 0 {
			w = 1
		}
		weightSum += w
	}
	n := len(g.signals)
	score := ComputeScore(s.cfg, maxSeverity, n, confSum/float64(n), weightSum/float64(n))

	status := "insufficient_evidence"
	exposure := "none"
	switch {
	case len(excerptIDs) >= s.cfg.MinProofExcerpts:
		status = "open"
		exposure = "surfaced"
	case len(excerptIDs) > 0:
		exposure = "briefable"
	}

	headline := fmt.Sprintf("%s: %d active signal(s) for %s", g.proposalType, n, g.refType)
	hypotheses := s.buildHypotheses(g.signals)

	existing, err := s.proposals.GetOpenByKey(ctx, tx, g.refType, g.refID, g.proposalType)
	if err != nil {
		return false, err
	}
	if existing != nil {
		trend := "flat"
		switch {
		case score > existing.Score+s.cfg.TrendEpsilon:
			trend = "worsening"
		case score < existing.Score-s.cfg.TrendEpsilon:
			trend = "improving"
		}
		existing.Headline = headline
		existing.Hypotheses = hypotheses
		existing.Score = score
		existing.Trend = trend
		existing.MaxSeverity = maxSeverity
		existing.SignalIDs = uuidSetToJSON(signalIDs)
		existing.ProofExcerptIDs = uuidSetToJSON(excerptIDs)
		existing.ProofArtifactIDs = uuidSetToJSON(artifactIDs)
		existing.Status = status
		existing.UIExposureLevel = exposure
		existing.OccurrenceCount++
		return false, s.proposals.Update(ctx, tx, existing)
	}

	row := &types.Proposal{
		ID:               uuid.New(),
		ProposalType:     g.proposalType,
		PrimaryRefType:   g.refType,
		PrimaryRefID:     g.refID,
		Headline:         headline,
		Hypotheses:       hypotheses,
		Score:            score,
		Trend:            "flat",
		MaxSeverity:      maxSeverity,
		SignalIDs:        uuidSetToJSON(signalIDs),
		ProofExcerptIDs:  uuidSetToJSON(excerptIDs),
		ProofArtifactIDs: uuidSetToJSON(artifactIDs),
		UIExposureLevel:  exposure,
		Status:           status,
		OccurrenceCount:  1,
	}
	_, err = s.proposals.Create(ctx, tx, []*types.Proposal{row})
	return true, err
}

func (s *proposalService) buildHypotheses(signals []*types.Signal) datatypes.JSON {
	type entry struct {
		signalType string
		severity   int
		count      int
	}
	byType := make(map[string]*entry)
	for _, sig := range signals {
		e := byType[sig.SignalType]
		if e == nil {
			e = &entry{signalType: sig.SignalType}
			byType[sig.SignalType] = e
		}
		e.count++
		if sig.Severity > e.severity {
			e.severity = sig.Severity
		}
	}
	entries := make([]*entry, 0, len(byType))
	for _, e := range byType {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].severity != entries[j].severity {
			return entries[i].severity > entries[j].severity
		}
		return entries[i].signalType < entries[j].signalType
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s (severity %d)", strings.ReplaceAll(e.signalType, "_", " "), e.severity)
		if e.count > 1 {
			line = fmt.Sprintf("%s x%d", line, e.count)
		}
		lines = append(lines, line)
	}
	b, _ := json.Marshal(lines)
	return datatypes.JSON(b)
}

func (s *proposalService) GetSurfaceable(ctx context.Context, limit int) ([]*types.Proposal, error) {
	return s.proposals.GetSurfaceable(ctx, nil, limit)
}

func (s *proposalService) GetProposal(ctx context.Context, id uuid.UUID) (*types.Proposal, error) {
	return s.proposals.GetByID(ctx, nil, id)
}

// Accept claims an open proposal ahead of tagging. Tagging performs the same
// flip on its own, so the explicit step is optional; once accepted, a proposal
// leaves the surface queue and can no longer be snoozed or dismissed.
func (s *proposalService) Accept(ctx context.Context, id uuid.UUID) error {
	row, err := s.proposals.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("unknown proposal: %s", id)
	}
	if row.Status != "open" {
		return fmt.Errorf("proposal %s is %s, only open proposals can be accepted", id, row.Status)
	}
	return s.proposals.UpdateFields(ctx, nil, id, map[string]interface{}{
		"status": "accepted",
	})
}

func (s *proposalService) Snooze(ctx context.Context, id uuid.UUID, until time.Time) error {
	row, err := s.proposals.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("unknown proposal: %s", id)
	}
	if row.Status != "open" {
		return fmt.Errorf("proposal %s is %s, only open proposals can be snoozed", id, row.Status)
	}
	if !until.After(time.Now()) {
		return fmt.Errorf("snooze time must be in the future")
	}
	return s.proposals.UpdateFields(ctx, nil, id, map[string]interface{}{
		"snoozed_until": until.UTC(),
	})
}

func (s *proposalService) Dismiss(ctx context.Context, id uuid.UUID, reason string) error {
	row, err := s.proposals.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("unknown proposal: %s", id)
	}
	if row.Status != "open" && row.Status != "insufficient_evidence" {
		return fmt.Errorf("proposal %s is %s and cannot be dismissed", id, row.Status)
	}
	return s.proposals.UpdateFields(ctx, nil, id, map[string]interface{}{
		"status":            "dismissed",
		"dismiss_reason":    reason,
		"ui_exposure_level": "none",
	})
}

func (s *proposalService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.proposals.CountByStatus(ctx, nil)
}
