package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	rediscache "github.com/Fleezyflo/moh-time-os-sub004/internal/clients/redis"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

const (
	briefCacheKey = "brief:executive"
	briefCacheTTL = 5 * time.Minute
)

// Brief is the at-a-glance operational summary: what needs attention now and
// how loaded each stage of the pipeline is.
type Brief struct {
	GeneratedAt     time.Time          `json:"generated_at"`
	Proposals       []*types.Proposal  `json:"proposals"`
	OpenIssues      []*types.Issue     `json:"open_issues"`
	CriticalSignals []*types.Signal    `json:"critical_signals"`
	TopCouplings    []*types.Coupling  `json:"top_couplings"`
	OpenFixData     int64              `json:"open_fix_data"`
	SignalCounts    map[string]int64   `json:"signal_counts"`
	FromCache       bool               `json:"from_cache"`
}

type BriefService interface {
	ExecutiveBrief(ctx context.Context) (*Brief, error)
	InvalidateBrief(ctx context.Context) error
}

type briefService struct {
	db        *gorm.DB
	log       *logger.Logger
	proposals repos.ProposalRepo
	issues    repos.IssueRepo
	signals   repos.SignalRepo
	couplings repos.CouplingRepo
	fixData   repos.FixDataRepo
	cache     rediscache.Cache
}

func NewBriefService(db *gorm.DB, baseLog *logger.Logger, proposals repos.ProposalRepo, issues repos.IssueRepo, signals repos.SignalRepo, couplings repos.CouplingRepo, fixData repos.FixDataRepo, cache rediscache.Cache) BriefService {
	return &briefService{
		db:        db,
		log:       baseLog.With("service", "BriefService"),
		proposals: proposals,
		issues:    issues,
		signals:   signals,
		couplings: couplings,
		fixData:   fixData,
		cache:     cache,
	}
}

func (s *briefService) ExecutiveBrief(ctx context.Context) (*Brief, error) {
	if s.cache != nil {
		var cached Brief
		hit, err := s.cache.Get(ctx, briefCacheKey, &cached)
		if err != nil {
			s.log.Warn("brief cache read failed", "error", err)
		} else if hit {
			cached.FromCache = true
			return &cached, nil
		}
	}

	brief := &Brief{GeneratedAt: time.Now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		brief.Proposals, err = s.proposals.GetSurfaceable(gctx, nil, 10)
		return err
	})
	g.Go(func() error {
		var err error
		brief.OpenIssues, err = s.issues.GetOpen(gctx, nil, 10)
		return err
	})
	g.Go(func() error {
		var err error
		brief.CriticalSignals, err = s.signals.GetActiveCritical(gctx, nil, 4, 10)
		return err
	})
	g.Go(func() error {
		var err error
		brief.TopCouplings, err = s.couplings.GetAll(gctx, nil, 5)
		return err
	})
	g.Go(func() error {
		var err error
		brief.OpenFixData, err = s.fixData.CountOpen(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		brief.SignalCounts, err = s.signals.CountByStatus(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, briefCacheKey, brief, briefCacheTTL); err != nil {
			s.log.Warn("brief cache write failed", "error", err)
		}
	}
	return brief, nil
}

func (s *briefService) InvalidateBrief(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, briefCacheKey)
}
