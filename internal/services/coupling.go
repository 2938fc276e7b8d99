package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// CouplingConfig names the signal categories treated as risk-bearing when
// clustering entities.
type CouplingConfig struct {
	RiskCategories []string
}

func (c CouplingConfig) withDefaults() CouplingConfig {
	if len(c.RiskCategories) == 0 {
		c.RiskCategories = []string{"risk", "deadline", "payment"}
	}
	return c
}

type entityRef struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

func (e entityRef) key() string { return e.Type + "|" + e.ID.String() }

type CouplingService interface {
	DiscoverCouplings(ctx context.Context) (int, error)
	GetForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*types.Coupling, error)
	GetAll(ctx context.Context, limit int) ([]*types.Coupling, error)
}

type couplingService struct {
	db        *gorm.DB
	log       *logger.Logger
	couplings repos.CouplingRepo
	signals   repos.SignalRepo
	cfg       CouplingConfig
}

func NewCouplingService(db *gorm.DB, baseLog *logger.Logger, couplings repos.CouplingRepo, signals repos.SignalRepo, cfg CouplingConfig) CouplingService {
	return &couplingService{
		db:        db,
		log:       baseLog.With("service", "CouplingService"),
		couplings: couplings,
		signals:   signals,
		cfg:       cfg.withDefaults(),
	}
}

// DiscoverCouplings recomputes the advisory coupling set from active signals.
// Two entity kinds of couplings are produced: pairs that share a signal type,
// and clusters of entities each carrying signals from multiple risk
// categories.
func (s *couplingService) DiscoverCouplings(ctx context.Context) (int, error) {
	active, err := s.signals.GetActive(ctx, nil)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := append(s.sharedSignalPairs(active, now), s.riskClusters(active, now)...)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.couplings.ReplaceAll(ctx, tx, rows)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("coupling discovery completed", "couplings", len(rows), "active_signals", len(active))
	return len(rows), nil
}

func (s *couplingService) sharedSignalPairs(active []*types.Signal, now time.Time) []*types.Coupling {
	entitiesByType := make(map[string]map[string]entityRef)
	for _, sig := range active {
		m := entitiesByType[sig.SignalType]
		if m == nil {
			m = make(map[string]entityRef)
			entitiesByType[sig.SignalType] = m
		}
		ref := entityRef{Type: sig.EntityRefType, ID: sig.EntityRefID}
		m[ref.key()] = ref
	}

	type pairStat struct {
		a, b  entityRef
		types []string
	}
	pairs := make(map[string]*pairStat)
	for signalType, m := range entitiesByType {
		refs := make([]entityRef, 0, len(m))
		for _, r := range m {
			refs = append(refs, r)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].key() < refs[j].key() })
		for i := 0; i < len(refs); i++ {
			for j := i + 1; j < len(refs); j++ {
				key := refs[i].key() + "||" + refs[j].key()
				p := pairs[key]
				if p == nil {
					p = &pairStat{a: refs[i], b: refs[j]}
					pairs[key] = p
				}
				p.types = append(p.types, signalType)
			}
		}
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*types.Coupling
	for _, k := range keys {
		p := pairs[k]
		sort.Strings(p.types)
		shared := len(p.types)
		strength := 1 - 1/(1+float64(shared))
		refsJSON, _ := json.Marshal([]entityRef{p.a, p.b})
		pathJSON, _ := json.Marshal(p.types)
		out = append(out, &types.Coupling{
			ID:                uuid.New(),
			AnchorRefType:     p.a.Type,
			AnchorRefID:       p.a.ID,
			EntityRefs:        datatypes.JSON(refsJSON),
			CouplingType:      "shared_signal_type",
			Strength:          strength,
			Why:               fmt.Sprintf("both entities carry %d shared signal type(s)", shared),
			InvestigationPath: datatypes.JSON(pathJSON),
			Confidence:        0.6,
			ComputedAt:        now,
		})
	}
	return out
}

func (s *couplingService) riskClusters(active []*types.Signal, now time.Time) []*types.Coupling {
	risky := make(map[string]bool, len(s.cfg.RiskCategories))
	for _, c := range s.cfg.RiskCategories {
		risky[c] = true
	}

	categoriesByEntity := make(map[string]map[string]bool)
	refByKey := make(map[string]entityRef)
	for _, sig := range active {
		if !risky[sig.Category] {
			continue
		}
		ref := entityRef{Type: sig.EntityRefType, ID: sig.EntityRefID}
		key := ref.key()
		refByKey[key] = ref
		if categoriesByEntity[key] == nil {
			categoriesByEntity[key] = make(map[string]bool)
		}
		categoriesByEntity[key][sig.Category] = true
	}

	var members []entityRef
	var categories = make(map[string]bool)
	for key, cats := range categoriesByEntity {
		if len(cats) < 2 {
			continue
		}
		members = append(members, refByKey[key])
		for c := range cats {
			categories[c] = true
		}
	}
	if len(members) < 2 {
		return nil
	}
	sort.Slice(members, func(i, j int) bool { return members[i].key() < members[j].key() })

	catList := make([]string, 0, len(categories))
	for c := range categories {
		catList = append(catList, c)
	}
	sort.Strings(catList)

	refsJSON, _ := json.Marshal(members)
	pathJSON, _ := json.Marshal(catList)
	return []*types.Coupling{{
		ID:                uuid.New(),
		AnchorRefType:     members[0].Type,
		AnchorRefID:       members[0].ID,
		EntityRefs:        datatypes.JSON(refsJSON),
		CouplingType:      "risk_cluster",
		Strength:          1 - 1/(1+float64(len(members))),
		Why:               fmt.Sprintf("%d entities each carry active signals in 2+ risk categories", len(members)),
		InvestigationPath: datatypes.JSON(pathJSON),
		Confidence:        0.5,
		ComputedAt:        now,
	}}
}

func (s *couplingService) GetForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*types.Coupling, error) {
	return s.couplings.GetByAnchor(ctx, nil, entityType, entityID)
}

func (s *couplingService) GetAll(ctx context.Context, limit int) ([]*types.Coupling, error) {
	return s.couplings.GetAll(ctx, nil, limit)
}
