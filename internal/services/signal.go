package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

type signalDefinitionFile struct {
	Signals []struct {
		SignalType            string   `yaml:"signal_type"`
		Category              string   `yaml:"category"`
		RequiredEvidenceTypes []string `yaml:"required_evidence_types"`
		MinLinkConfidence     float64  `yaml:"min_link_confidence"`
		MinConfidence         float64  `yaml:"min_confidence"`
		Weight                float64  `yaml:"weight"`
		Active                *bool    `yaml:"active"`
	} `yaml:"signals"`
}

type DetectorRunReport struct {
	DetectorID   string `json:"detector_id"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	SignalsSaved int    `json:"signals_saved"`
	Dropped      int    `json:"dropped"`
	Error        string `json:"error,omitempty"`
}

type DetectionReport struct {
	Runs         []DetectorRunReport `json:"runs"`
	TotalSignals int                 `json:"total_signals"`
}

type SignalService interface {
	LoadDefinitions(ctx context.Context, path string) (int, error)
	RegisterDetector(d detectors.Detector)
	RunAll(ctx context.Context, scope detectors.Scope) (*DetectionReport, error)
	DismissSignal(ctx context.Context, id uuid.UUID, actor, reason string) error
	ExpireDue(ctx context.Context) (int64, error)
	GetActiveSignals(ctx context.Context) ([]*types.Signal, error)
	GetStats(ctx context.Context) (map[string]int64, error)
}

type signalService struct {
	db         *gorm.DB
	log        *logger.Logger
	defs       repos.SignalDefinitionRepo
	runs       repos.DetectorRunRepo
	signals    repos.SignalRepo
	feedback   repos.SignalFeedbackRepo
	violations repos.ProtocolViolationRepo

	mu        sync.RWMutex
	defCache  map[string]*types.SignalDefinition
	detectors []detectors.Detector
}

func NewSignalService(db *gorm.DB, baseLog *logger.Logger, defs repos.SignalDefinitionRepo, runs repos.DetectorRunRepo, signals repos.SignalRepo, feedback repos.SignalFeedbackRepo, violations repos.ProtocolViolationRepo) SignalService {
	return &signalService{
		db:         db,
		log:        baseLog.With("service", "SignalService"),
		defs:       defs,
		runs:       runs,
		signals:    signals,
		feedback:   feedback,
		violations: violations,
		defCache:   make(map[string]*types.SignalDefinition),
	}
}

func (s *signalService) LoadDefinitions(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read signal definitions: %w", err)
	}
	var file signalDefinitionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse signal definitions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, def := range file.Signals {
		if def.SignalType == "" || def.Category == "" {
			return count, fmt.Errorf("signal definition missing signal_type or category")
		}
		active := true
		if def.Active != nil {
			active = *def.Active
		}
		weight := def.Weight
		if weight <= 0 {
			weight = 1
		}
		row := &types.SignalDefinition{
			ID:                uuid.New(),
			SignalType:        def.SignalType,
			Category:          def.Category,
			MinLinkConfidence: def.MinLinkConfidence,
			MinConfidence:     def.MinConfidence,
			Weight:            weight,
			Active:            active,
		}
		if len(def.RequiredEvidenceTypes) > 0 {
			b, _ := json.Marshal(def.RequiredEvidenceTypes)
			row.RequiredEvidenceTypes = datatypes.JSON(b)
		}
		if err := s.defs.Upsert(ctx, nil, row); err != nil {
			return count, err
		}
		s.defCache[row.SignalType] = row
		count++
	}
	s.log.Info("signal definitions loaded", "count", count, "path", path)
	return count, nil
}

func (s *signalService) RegisterDetector(d detectors.Detector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectors = append(s.detectors, d)
}

func (s *signalService) definition(ctx context.Context, signalType string) (*types.SignalDefinition, error) {
	s.mu.RLock()
	def, ok := s.defCache[signalType]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}
	def, err := s.defs.GetBySignalType(ctx, nil, signalType)
	if err != nil {
		return nil, err
	}
	if def != nil {
		s.mu.Lock()
		s.defCache[signalType] = def
		s.mu.Unlock()
	}
	return def, nil
}

func scopeInputHash(detectorID, version string, scope detectors.Scope) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d", detectorID, version, scope.Since.Unix(), scope.Now.Unix())
	return hex.EncodeToString(h.Sum(nil))
}

func (s *signalService) RunAll(ctx context.Context, scope detectors.Scope) (*DetectionReport, error) {
	if scope.Now.IsZero() {
		scope.Now = time.Now().UTC()
	}
	s.mu.RLock()
	active := make([]detectors.Detector, len(s.detectors))
	copy(active, s.detectors)
	s.mu.RUnlock()

	report := &DetectionReport{}
	for _, d := range active {
		run := s.runDetector(ctx, d, scope)
		report.Runs = append(report.Runs, run)
		report.TotalSignals += run.SignalsSaved
	}
	return report, nil
}

// runDetector isolates one detector invocation. A panic or error is recorded
// on the detector_run row and never aborts the pass.
func (s *signalService) runDetector(ctx context.Context, d detectors.Detector, scope detectors.Scope) DetectorRunReport {
	report := DetectorRunReport{DetectorID: d.ID(), Version: d.Version(), Status: "completed"}
	started := time.Now()

	var candidates []detectors.Candidate
	func() {
		defer func() {
			if r := recover(); r != nil {
				report.Status = "failed"
				report.Error = fmt.Sprintf("panic: %v", r)
			}
		}()
		var err error
		candidates, err = d.Detect(ctx, scope)
		if err != nil {
			report.Status = "failed"
			report.Error = err.Error()
		}
	}()

	if report.Status == "completed" {
		for _, c := range candidates {
			saved, err := s.emit(ctx, d, c)
			if err != nil {
				report.Status = "failed"
				report.Error = err.Error()
				break
			}
			if saved {
				report.SignalsSaved++
			} else {
				report.Dropped++
			}
		}
	}

	row := &types.DetectorRun{
		ID:          uuid.New(),
		DetectorID:  d.ID(),
		Version:     d.Version(),
		Status:      report.Status,
		InputHash:   scopeInputHash(d.ID(), d.Version(), scope),
		DurationMS:  time.Since(started).Milliseconds(),
		SignalCount: report.SignalsSaved,
		Error:       report.Error,
		RanAt:       started.UTC(),
	}
	if err := s.runs.Create(ctx, nil, row); err != nil {
		s.log.Error("failed to record detector run", "detector_id", d.ID(), "error", err)
	}
	if report.Status == "failed" {
		s.log.Error("detector run failed", "detector_id", d.ID(), "error", report.Error)
	}
	return report
}

// emit validates a candidate against its definition and persists it. Contract
// breaches are recorded as protocol violations and the candidate is dropped.
func (s *signalService) emit(ctx context.Context, d detectors.Detector, c detectors.Candidate) (bool, error) {
	def, err := s.definition(ctx, c.SignalType)
	if err != nil {
		return false, err
	}
	if def == nil || !def.Active {
		return false, s.recordViolation(ctx, d.ID(), "unknown_signal_type", map[string]any{
			"signal_type": c.SignalType,
		})
	}
	if len(c.EvidenceExcerptIDs) == 0 && len(c.EvidenceArtifactIDs) == 0 {
		return false, s.recordViolation(ctx, d.ID(), "missing_provenance", map[string]any{
			"signal_type": c.SignalType,
		})
	}
	if c.EntityRefType == "" || c.EntityRefID == uuid.Nil {
		return false, s.recordViolation(ctx, d.ID(), "missing_entity_ref", map[string]any{
			"signal_type": c.SignalType,
		})
	}
	if c.Confidence < def.MinConfidence {
		s.log.Debug("candidate below confidence floor",
			"signal_type", c.SignalType, "confidence", c.Confidence, "floor", def.MinConfidence)
		return false, nil
	}
	if c.Severity < 1 || c.Severity > 5 {
		return false, s.recordViolation(ctx, d.ID(), "severity_out_of_range", map[string]any{
			"signal_type": c.SignalType,
			"severity":    c.Severity,
		})
	}

	row := &types.Signal{
		ID:              uuid.New(),
		SignalType:      c.SignalType,
		Category:        def.Category,
		EntityRefType:   c.EntityRefType,
		EntityRefID:     c.EntityRefID,
		Severity:        c.Severity,
		Confidence:      c.Confidence,
		DetectorID:      d.ID(),
		DetectorVersion: d.Version(),
		Status:          "active",
		ExpiresAt:       c.ExpiresAt,
	}
	if c.Value != nil {
		b, _ := json.Marshal(c.Value)
		row.Value = datatypes.JSON(b)
	}
	if len(c.EvidenceExcerptIDs) > 0 {
		b, _ := json.Marshal(c.EvidenceExcerptIDs)
		row.EvidenceExcerptIDs = datatypes.JSON(b)
	}
	if len(c.EvidenceArtifactIDs) > 0 {
		b, _ := json.Marshal(c.EvidenceArtifactIDs)
		row.EvidenceArtifactIDs = datatypes.JSON(b)
	}
	if _, err := s.signals.Create(ctx, nil, []*types.Signal{row}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *signalService) recordViolation(ctx context.Context, detectorID, kind string, details map[string]any) error {
	b, _ := json.Marshal(details)
	return s.violations.Create(ctx, nil, &types.ProtocolViolation{
		ID:         uuid.New(),
		Kind:       kind,
		DetectorID: detectorID,
		Details:    datatypes.JSON(b),
	})
}

func (s *signalService) DismissSignal(ctx context.Context, id uuid.UUID, actor, reason string) error {
	if actor == "" {
		return fmt.Errorf("actor is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.signals.GetActiveByIDs(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("signal %s is not active", id)
		}
		if err := s.signals.MarkDismissed(ctx, tx, id); err != nil {
			return err
		}
		return s.feedback.Create(ctx, tx, &types.SignalFeedback{
			ID:       uuid.New(),
			SignalID: id,
			Actor:    actor,
			Feedback: "dismissed",
			Reason:   reason,
		})
	})
}

func (s *signalService) ExpireDue(ctx context.Context) (int64, error) {
	return s.signals.ExpireDue(ctx, nil, time.Now().UTC())
}

func (s *signalService) GetActiveSignals(ctx context.Context) ([]*types.Signal, error) {
	return s.signals.GetActive(ctx, nil)
}

func (s *signalService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.signals.CountByStatus(ctx, nil)
}
