package services

import (
	"context"
	"time"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
)

// StageResult reports one pipeline stage. A failed stage is recorded and the
// cycle continues; downstream stages run on whatever state exists.
type StageResult struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
}

type CycleReport struct {
	StartedAt time.Time     `json:"started_at"`
	Stages    []StageResult `json:"stages"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

type PipelineService interface {
	RunFullCycle(ctx context.Context, lookback time.Duration) (*CycleReport, error)
}

type pipelineService struct {
	log       *logger.Logger
	signals   SignalService
	proposals ProposalService
	watchers  WatcherService
	couplings CouplingService
	brief     BriefService
}

func NewPipelineService(baseLog *logger.Logger, signals SignalService, proposals ProposalService, watchers WatcherService, couplings CouplingService, brief BriefService) PipelineService {
	return &pipelineService{
		log:       baseLog.With("service", "PipelineService"),
		signals:   signals,
		proposals: proposals,
		watchers:  watchers,
		couplings: couplings,
		brief:     brief,
	}
}

func (s *pipelineService) runStage(report *CycleReport, stage string, fn func() (int, error)) {
	started := time.Now()
	count, err := fn()
	result := StageResult{
		Stage:      stage,
		Status:     "ok",
		Count:      count,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		result.Status = "failed"
		result.Detail = err.Error()
		report.Failed++
		s.log.Error("pipeline stage failed", "stage", stage, "error", err)
	} else {
		report.Succeeded++
	}
	report.Stages = append(report.Stages, result)
}

// RunFullCycle drives one detection-to-surface pass: expire stale signals,
// run detectors, regenerate proposals, sweep watchers, rediscover couplings,
// drop the cached brief.
func (s *pipelineService) RunFullCycle(ctx context.Context, lookback time.Duration) (*CycleReport, error) {
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	now := time.Now().UTC()
	report := &CycleReport{StartedAt: now}

	s.runStage(report, "expire_signals", func() (int, error) {
		n, err := s.signals.ExpireDue(ctx)
		return int(n), err
	})
	s.runStage(report, "detect", func() (int, error) {
		detection, err := s.signals.RunAll(ctx, detectors.Scope{Since: now.Add(-lookback), Now: now})
		if err != nil {
			return 0, err
		}
		return detection.TotalSignals, nil
	})
	s.runStage(report, "propose", func() (int, error) {
		gen, err := s.proposals.GenerateFromSignals(ctx)
		if err != nil {
			return 0, err
		}
		return gen.Created + gen.Updated, nil
	})
	s.runStage(report, "watch", func() (int, error) {
		sweep, err := s.watchers.EvaluateWatchers(ctx)
		if err != nil {
			return 0, err
		}
		return sweep.Triggered, nil
	})
	s.runStage(report, "couple", func() (int, error) {
		return s.couplings.DiscoverCouplings(ctx)
	})
	s.runStage(report, "invalidate_brief", func() (int, error) {
		return 0, s.brief.InvalidateBrief(ctx)
	})

	s.log.Info("pipeline cycle finished", "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}
