package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

const (
	IssueStateOpen       = "open"
	IssueStateMonitoring = "monitoring"
	IssueStateAwaiting   = "awaiting"
	IssueStateBlocked    = "blocked"
	IssueStateMitigated  = "mitigated"
	IssueStateResolved   = "resolved"
	IssueStateHandedOver = "handed_over"
)

// issueTransitions is the full transition relation. Anything absent is
// rejected; terminal states have no outgoing edges.
var issueTransitions = map[string][]string{
	IssueStateOpen:       {IssueStateMonitoring, IssueStateAwaiting, IssueStateBlocked, IssueStateMitigated, IssueStateResolved, IssueStateHandedOver},
	IssueStateMonitoring: {IssueStateOpen, IssueStateAwaiting, IssueStateBlocked, IssueStateMitigated, IssueStateResolved, IssueStateHandedOver},
	IssueStateAwaiting:   {IssueStateMonitoring, IssueStateBlocked, IssueStateMitigated, IssueStateResolved, IssueStateHandedOver},
	IssueStateBlocked:    {IssueStateMonitoring, IssueStateAwaiting, IssueStateMitigated, IssueStateResolved, IssueStateHandedOver},
	IssueStateMitigated:  {IssueStateMonitoring, IssueStateResolved, IssueStateHandedOver},
	IssueStateResolved:   {},
	IssueStateHandedOver: {},
}

func IsTerminalIssueState(state string) bool {
	return state == IssueStateResolved || state == IssueStateHandedOver
}

func CanTransitionIssue(from, to string) bool {
	for _, next := range issueTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var defaultResolutionCriteria = map[string][]string{
	"risk":     {"underlying signals expired or dismissed", "mitigation recorded in decision log"},
	"deadline": {"deadline met or formally moved", "no overdue signals remain for the entity"},
	"payment":  {"outstanding balance cleared", "client confirmed receipt"},
}

type IssueConfig struct {
	StaleDays           int
	WatcherCadenceHours int
	BlockerMaxAgeDays   int
}

func (c IssueConfig) withDefaults() IssueConfig {
	if c.StaleDays <= 0 {
		c.StaleDays = 5
	}
	if c.WatcherCadenceHours <= 0 {
		c.WatcherCadenceHours = 24
	}
	if c.BlockerMaxAgeDays <= 0 {
		c.BlockerMaxAgeDays = 7
	}
	return c
}

type CreateHandoffInput struct {
	IssueID        uuid.UUID  `json:"issue_id"`
	FromPerson     string     `json:"from_person"`
	ToPerson       string     `json:"to_person"`
	Expectation    string     `json:"expectation"`
	DoneDefinition string     `json:"done_definition,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`
}

type IssueService interface {
	TagProposal(ctx context.Context, proposalID uuid.UUID, actor string) (*types.Issue, error)
	UpdateState(ctx context.Context, issueID uuid.UUID, newState, actor, note string) (*types.Issue, error)
	GetIssue(ctx context.Context, id uuid.UUID) (*types.Issue, error)
	GetOpenIssues(ctx context.Context, limit int) ([]*types.Issue, error)
	GetDecisions(ctx context.Context, issueID uuid.UUID) ([]*types.DecisionLog, error)
	CreateHandoff(ctx context.Context, input CreateHandoffInput, actor string) (*types.Handoff, error)
	UpdateHandoffState(ctx context.Context, handoffID uuid.UUID, newState, actor string) (*types.Handoff, error)
	GetStats(ctx context.Context) (map[string]int64, error)
}

type issueService struct {
	db        *gorm.DB
	log       *logger.Logger
	issues    repos.IssueRepo
	proposals repos.ProposalRepo
	signals   repos.SignalRepo
	watchers  repos.WatcherRepo
	handoffs  repos.HandoffRepo
	cfg       IssueConfig
}

func NewIssueService(db *gorm.DB, baseLog *logger.Logger, issues repos.IssueRepo, proposals repos.ProposalRepo, signals repos.SignalRepo, watchers repos.WatcherRepo, handoffs repos.HandoffRepo, cfg IssueConfig) IssueService {
	return &issueService{
		db:        db,
		log:       baseLog.With("service", "IssueService"),
		issues:    issues,
		proposals: proposals,
		signals:   signals,
		watchers:  watchers,
		handoffs:  handoffs,
		cfg:       cfg.withDefaults(),
	}
}

// TagProposal promotes an open proposal into a monitored issue. The proposal
// flip, signal consumption, evidence attachment, watcher creation, and the
// first decision log row commit or roll back as one unit.
func (s *issueService) TagProposal(ctx context.Context, proposalID uuid.UUID, actor string) (*types.Issue, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}

	var issue *types.Issue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposal, err := s.proposals.GetByID(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if proposal == nil {
			return fmt.Errorf("unknown proposal: %s", proposalID)
		}
		if proposal.Status != "open" && proposal.Status != "accepted" {
			return fmt.Errorf("proposal %s is %s, only open or accepted proposals can be tagged", proposalID, proposal.Status)
		}

		var signalIDs []uuid.UUID
		if len(proposal.SignalIDs) > 0 {
			if err := json.Unmarshal(proposal.SignalIDs, &signalIDs); err != nil {
				return fmt.Errorf("decode proposal signal ids: %w", err)
			}
		}
		if len(signalIDs) == 0 {
			return fmt.Errorf("proposal %s carries no signals", proposalID)
		}

		now := time.Now().UTC()
		criteria := defaultResolutionCriteria[proposal.ProposalType]
		criteria = append(append([]string{}, criteria...), "manual resolution by owner")
		criteriaJSON, _ := json.Marshal(criteria)

		issue = &types.Issue{
			ID:                 uuid.New(),
			SourceProposalID:   proposal.ID,
			IssueType:          proposal.ProposalType,
			State:              IssueStateOpen,
			Headline:           proposal.Headline,
			PrimaryRefType:     proposal.PrimaryRefType,
			PrimaryRefID:       proposal.PrimaryRefID,
			ResolutionCriteria: datatypes.JSON(criteriaJSON),
			Priority:           proposal.Score,
			OpenedAt:           now,
			LastActivityAt:     now,
		}
		if err := s.issues.Create(ctx, tx, issue); err != nil {
			return err
		}

		// Every funding signal must still be active here. A lower count means
		// a concurrent tag already consumed one; the whole tag aborts.
		consumed, err := s.signals.MarkConsumed(ctx, tx, signalIDs, issue.ID)
		if err != nil {
			return err
		}
		if consumed != int64(len(signalIDs)) {
			return fmt.Errorf("proposal %s: %d of %d signals no longer consumable", proposalID, int64(len(signalIDs))-consumed, len(signalIDs))
		}

		links := make([]*types.IssueSignal, 0, len(signalIDs))
		for _, sid := range signalIDs {
			links = append(links, &types.IssueSignal{ID: uuid.New(), IssueID: issue.ID, SignalID: sid})
		}
		if err := s.issues.AttachSignals(ctx, tx, links); err != nil {
			return err
		}

		var excerptIDs []uuid.UUID
		if len(proposal.ProofExcerptIDs) > 0 {
			if err := json.Unmarshal(proposal.ProofExcerptIDs, &excerptIDs); err != nil {
				return fmt.Errorf("decode proposal excerpt ids: %w", err)
			}
		}
		evidence := make([]*types.IssueEvidence, 0, len(excerptIDs))
		for _, eid := range excerptIDs {
			evidence = append(evidence, &types.IssueEvidence{ID: uuid.New(), IssueID: issue.ID, ExcerptID: eid})
		}
		if err := s.issues.AttachEvidence(ctx, tx, evidence); err != nil {
			return err
		}

		if err := s.proposals.UpdateFields(ctx, tx, proposal.ID, map[string]interface{}{
			"status":            "accepted",
			"ui_exposure_level": "none",
		}); err != nil {
			return err
		}

		if _, err := s.watchers.Create(ctx, tx, s.defaultWatchers(issue, now)); err != nil {
			return err
		}

		return s.issues.AppendDecision(ctx, tx, &types.DecisionLog{
			ID:           uuid.New(),
			IssueID:      issue.ID,
			DecisionType: "tagged",
			Actor:        actor,
			Note:         fmt.Sprintf("created from proposal %s", proposal.ID),
			ToState:      IssueStateOpen,
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("proposal tagged into issue", "proposal_id", proposalID, "issue_id", issue.ID)
	return issue, nil
}

func (s *issueService) defaultWatchers(issue *types.Issue, now time.Time) []*types.Watcher {
	cadence := s.cfg.WatcherCadenceHours
	staleParams, _ := json.Marshal(map[string]any{"max_stale_days": s.cfg.StaleDays})
	rows := []*types.Watcher{{
		ID:           uuid.New(),
		IssueID:      issue.ID,
		WatchType:    "no_status_change_by",
		Params:       datatypes.JSON(staleParams),
		Active:       true,
		CadenceHours: cadence,
		NextCheckAt:  now.Add(time.Duration(cadence) * time.Hour),
	}}
	if issue.IssueType == "risk" {
		blockerParams, _ := json.Marshal(map[string]any{"max_age_days": s.cfg.BlockerMaxAgeDays})
		rows = append(rows, &types.Watcher{
			ID:           uuid.New(),
			IssueID:      issue.ID,
			WatchType:    "blocker_age",
			Params:       datatypes.JSON(blockerParams),
			Active:       true,
			CadenceHours: cadence / 2,
			NextCheckAt:  now.Add(time.Duration(cadence/2) * time.Hour),
		})
	}
	return rows
}

func (s *issueService) UpdateState(ctx context.Context, issueID uuid.UUID, newState, actor, note string) (*types.Issue, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}
	if _, ok := issueTransitions[newState]; !ok {
		return nil, fmt.Errorf("unknown issue state: %q", newState)
	}

	var issue *types.Issue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		issue, err = s.issues.GetByID(ctx, tx, issueID)
		if err != nil {
			return err
		}
		if issue == nil {
			return fmt.Errorf("unknown issue: %s", issueID)
		}
		if !CanTransitionIssue(issue.State, newState) {
			return fmt.Errorf("issue %s cannot move from %s to %s", issueID, issue.State, newState)
		}
		fromState := issue.State
		now := time.Now().UTC()
		issue.State = newState
		issue.LastActivityAt = now
		if IsTerminalIssueState(newState) {
			issue.ClosedAt = &now
			issue.ClosedReason = note
		}
		if err := s.issues.Update(ctx, tx, issue); err != nil {
			return err
		}
		if IsTerminalIssueState(newState) {
			if err := s.watchers.DeactivateByIssueID(ctx, tx, issueID); err != nil {
				return err
			}
		}
		return s.issues.AppendDecision(ctx, tx, &types.DecisionLog{
			ID:           uuid.New(),
			IssueID:      issueID,
			DecisionType: "state_change",
			Actor:        actor,
			Note:         note,
			FromState:    fromState,
			ToState:      newState,
		})
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *issueService) GetIssue(ctx context.Context, id uuid.UUID) (*types.Issue, error) {
	return s.issues.GetByID(ctx, nil, id)
}

func (s *issueService) GetOpenIssues(ctx context.Context, limit int) ([]*types.Issue, error) {
	return s.issues.GetOpen(ctx, nil, limit)
}

func (s *issueService) GetDecisions(ctx context.Context, issueID uuid.UUID) ([]*types.DecisionLog, error) {
	return s.issues.GetDecisions(ctx, nil, issueID)
}

func (s *issueService) CreateHandoff(ctx context.Context, input CreateHandoffInput, actor string) (*types.Handoff, error) {
	if input.FromPerson == "" || input.ToPerson == "" {
		return nil, fmt.Errorf("from_person and to_person are required")
	}
	if input.Expectation == "" {
		return nil, fmt.Errorf("expectation is required")
	}

	var handoff *types.Handoff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, err := s.issues.GetByID(ctx, tx, input.IssueID)
		if err != nil {
			return err
		}
		if issue == nil {
			return fmt.Errorf("unknown issue: %s", input.IssueID)
		}
		if IsTerminalIssueState(issue.State) {
			return fmt.Errorf("issue %s is %s, no handoff possible", issue.ID, issue.State)
		}
		handoff = &types.Handoff{
			ID:             uuid.New(),
			IssueID:        issue.ID,
			FromPerson:     input.FromPerson,
			ToPerson:       input.ToPerson,
			Expectation:    input.Expectation,
			DoneDefinition: input.DoneDefinition,
			DueAt:          input.DueAt,
			State:          "proposed",
		}
		if err := s.handoffs.Create(ctx, tx, handoff); err != nil {
			return err
		}
		fromState := issue.State
		issue.State = IssueStateAwaiting
		issue.LastActivityAt = time.Now().UTC()
		if err := s.issues.Update(ctx, tx, issue); err != nil {
			return err
		}
		return s.issues.AppendDecision(ctx, tx, &types.DecisionLog{
			ID:           uuid.New(),
			IssueID:      issue.ID,
			DecisionType: "handoff_proposed",
			Actor:        actor,
			Note:         fmt.Sprintf("%s -> %s: %s", input.FromPerson, input.ToPerson, input.Expectation),
			FromState:    fromState,
			ToState:      IssueStateAwaiting,
		})
	})
	if err != nil {
		return nil, err
	}
	return handoff, nil
}

var handoffTransitions = map[string][]string{
	"proposed": {"accepted", "rejected"},
	"accepted": {"completed"},
}

// UpdateHandoffState moves a handoff along proposed -> accepted -> completed
// (or proposed -> rejected). Completing a handoff closes the issue as
// handed_over in the same transaction.
func (s *issueService) UpdateHandoffState(ctx context.Context, handoffID uuid.UUID, newState, actor string) (*types.Handoff, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}

	var handoff *types.Handoff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		handoff, err = s.handoffs.GetByID(ctx, tx, handoffID)
		if err != nil {
			return err
		}
		if handoff == nil {
			return fmt.Errorf("unknown handoff: %s", handoffID)
		}
		allowed := false
		for _, next := range handoffTransitions[handoff.State] {
			if next == newState {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("handoff %s cannot move from %s to %s", handoffID, handoff.State, newState)
		}
		handoff.State = newState
		if err := s.handoffs.Update(ctx, tx, handoff); err != nil {
			return err
		}
		if err := s.issues.AppendDecision(ctx, tx, &types.DecisionLog{
			ID:           uuid.New(),
			IssueID:      handoff.IssueID,
			DecisionType: "handoff_" + newState,
			Actor:        actor,
		}); err != nil {
			return err
		}
		if newState != "completed" {
			return nil
		}
		issue, err := s.issues.GetByID(ctx, tx, handoff.IssueID)
		if err != nil {
			return err
		}
		if issue == nil || IsTerminalIssueState(issue.State) {
			return nil
		}
		now := time.Now().UTC()
		fromState := issue.State
		issue.State = IssueStateHandedOver
		issue.LastActivityAt = now
		issue.ClosedAt = &now
		issue.ClosedReason = "handoff completed"
		if err := s.issues.Update(ctx, tx, issue); err != nil {
			return err
		}
		if err := s.watchers.DeactivateByIssueID(ctx, tx, issue.ID); err != nil {
			return err
		}
		return s.issues.AppendDecision(ctx, tx, &types.DecisionLog{
			ID:           uuid.New(),
			IssueID:      issue.ID,
			DecisionType: "state_change",
			Actor:        actor,
			Note:         "handoff completed",
			FromState:    fromState,
			ToState:      IssueStateHandedOver,
		})
	})
	if err != nil {
		return nil, err
	}
	return handoff, nil
}

func (s *issueService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.issues.CountByState(ctx, nil)
}
