package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// WatcherPredicate decides whether a due watcher fires. Predicates read the
// issue, never write it; a sweep only updates watcher bookkeeping.
type WatcherPredicate func(issue *types.Issue, params map[string]any, now time.Time) bool

type SweepReport struct {
	Checked     int `json:"checked"`
	Triggered   int `json:"triggered"`
	Deactivated int `json:"deactivated"`
	Skipped     int `json:"skipped"`
}

type WatcherService interface {
	RegisterPredicate(watchType string, p WatcherPredicate)
	EvaluateWatchers(ctx context.Context) (*SweepReport, error)
	GetWatchersForIssue(ctx context.Context, issueID uuid.UUID) ([]*types.Watcher, error)
}

type watcherService struct {
	db         *gorm.DB
	log        *logger.Logger
	watchers   repos.WatcherRepo
	issues     repos.IssueRepo
	predicates map[string]WatcherPredicate
}

func NewWatcherService(db *gorm.DB, baseLog *logger.Logger, watchers repos.WatcherRepo, issues repos.IssueRepo) WatcherService {
	s := &watcherService{
		db:         db,
		log:        baseLog.With("service", "WatcherService"),
		watchers:   watchers,
		issues:     issues,
		predicates: make(map[string]WatcherPredicate),
	}
	s.RegisterPredicate("no_status_change_by", staleIssuePredicate)
	s.RegisterPredicate("blocker_age", blockerAgePredicate)
	return s
}

func paramInt(params map[string]any, key string, fallback int) int {
	if v, ok := params[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}

func staleIssuePredicate(issue *types.Issue, params map[string]any, now time.Time) bool {
	maxStaleDays := paramInt(params, "max_stale_days", 5)
	return now.Sub(issue.LastActivityAt) > time.Duration(maxStaleDays)*24*time.Hour
}

func blockerAgePredicate(issue *types.Issue, params map[string]any, now time.Time) bool {
	if issue.State != IssueStateAwaiting {
		return false
	}
	maxAgeDays := paramInt(params, "max_age_days", 7)
	return now.Sub(issue.LastActivityAt) > time.Duration(maxAgeDays)*24*time.Hour
}

func (s *watcherService) RegisterPredicate(watchType string, p WatcherPredicate) {
	s.predicates[watchType] = p
}

// EvaluateWatchers runs one sweep over due watchers. Watchers on terminal
// issues are deactivated; watchers with an unregistered type are rescheduled
// untouched so a taxonomy addition is forward compatible.
func (s *watcherService) EvaluateWatchers(ctx context.Context) (*SweepReport, error) {
	now := time.Now().UTC()
	due, err := s.watchers.GetDue(ctx, nil, now, 1000)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for _, w := range due {
		report.Checked++
		issue, err := s.issues.GetByID(ctx, nil, w.IssueID)
		if err != nil {
			return nil, err
		}
		if issue == nil || IsTerminalIssueState(issue.State) {
			w.Active = false
			if err := s.watchers.Update(ctx, nil, w); err != nil {
				return nil, err
			}
			report.Deactivated++
			continue
		}

		predicate, known := s.predicates[w.WatchType]
		if known {
			var params map[string]any
			if len(w.Params) > 0 {
				_ = json.Unmarshal(w.Params, &params)
			}
			if predicate(issue, params, now) {
				w.TriggerCount++
				triggered := now
				w.TriggeredAt = &triggered
				report.Triggered++
				s.log.Warn("watcher triggered",
					"watch_type", w.WatchType,
					"issue_id", issue.ID,
					"issue_state", issue.State,
					"trigger_count", w.TriggerCount)
			}
		} else {
			report.Skipped++
			s.log.Debug("unknown watch type, rescheduling", "watch_type", w.WatchType)
		}

		w.NextCheckAt = now.Add(time.Duration(w.CadenceHours) * time.Hour)
		if err := s.watchers.Update(ctx, nil, w); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *watcherService) GetWatchersForIssue(ctx context.Context, issueID uuid.UUID) ([]*types.Watcher, error) {
	return s.watchers.GetByIssueID(ctx, nil, issueID)
}
