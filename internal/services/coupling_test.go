package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

func newCouplingFixture() (*couplingService, []*types.Signal) {
	svc := &couplingService{cfg: CouplingConfig{}.withDefaults()}

	projectA := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	projectB := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	clientC := uuid.MustParse("33333333-3333-3333-3333-333333333333")

	signals := []*types.Signal{
		{SignalType: "deadline_overdue", Category: "deadline", EntityRefType: "project", EntityRefID: projectA},
		{SignalType: "deadline_overdue", Category: "deadline", EntityRefType: "project", EntityRefID: projectB},
		{SignalType: "client_sentiment_negative", Category: "risk", EntityRefType: "project", EntityRefID: projectA},
		{SignalType: "client_sentiment_negative", Category: "risk", EntityRefType: "project", EntityRefID: projectB},
		{SignalType: "invoice_overdue", Category: "payment", EntityRefType: "client", EntityRefID: clientC},
		{SignalType: "client_sentiment_negative", Category: "risk", EntityRefType: "client", EntityRefID: clientC},
	}
	return svc, signals
}

func TestSharedSignalPairs(t *testing.T) {
	svc, signals := newCouplingFixture()
	now := time.Now().UTC()

	pairs := svc.sharedSignalPairs(signals, now)
	// project A + project B share two signal types, and each project shares
	// client_sentiment_negative with client C.
	if len(pairs) != 3 {
		t.Fatalf("pair count: want=3 got=%d", len(pairs))
	}

	var abPair *types.Coupling
	for _, p := range pairs {
		var path []string
		if err := json.Unmarshal(p.InvestigationPath, &path); err != nil {
			t.Fatalf("investigation path: %v", err)
		}
		if len(path) == 2 {
			abPair = p
		}
	}
	if abPair == nil {
		t.Fatal("no pair with two shared signal types")
	}
	if abPair.CouplingType != "shared_signal_type" {
		t.Fatalf("coupling type: %q", abPair.CouplingType)
	}
	// strength = 1 - 1/(1+shared); two shared types give 2/3.
	if abPair.Strength < 0.66 || abPair.Strength > 0.67 {
		t.Fatalf("strength for two shared types: %v", abPair.Strength)
	}
}

func TestSharedSignalPairsDeterministicOrder(t *testing.T) {
	svc, signals := newCouplingFixture()
	now := time.Now().UTC()

	first := svc.sharedSignalPairs(signals, now)

	// Same signals, reversed input order.
	reversed := make([]*types.Signal, len(signals))
	for i, s := range signals {
		reversed[len(signals)-1-i] = s
	}
	second := svc.sharedSignalPairs(reversed, now)

	if len(first) != len(second) {
		t.Fatalf("pair counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if string(first[i].EntityRefs) != string(second[i].EntityRefs) {
			t.Fatalf("pair %d refs differ:\n%s\n%s", i, first[i].EntityRefs, second[i].EntityRefs)
		}
		if string(first[i].InvestigationPath) != string(second[i].InvestigationPath) {
			t.Fatalf("pair %d paths differ", i)
		}
		if first[i].Strength != second[i].Strength {
			t.Fatalf("pair %d strengths differ", i)
		}
	}
}

func TestRiskClusters(t *testing.T) {
	svc, signals := newCouplingFixture()
	now := time.Now().UTC()

	clusters := svc.riskClusters(signals, now)
	// Projects A and B each carry deadline + risk signals; client C carries
	// payment + risk. All three cluster together.
	if len(clusters) != 1 {
		t.Fatalf("cluster count: want=1 got=%d", len(clusters))
	}
	c := clusters[0]
	if c.CouplingType != "risk_cluster" {
		t.Fatalf("coupling type: %q", c.CouplingType)
	}
	var refs []entityRef
	if err := json.Unmarshal(c.EntityRefs, &refs); err != nil {
		t.Fatalf("entity refs: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("cluster members: want=3 got=%d", len(refs))
	}
}

func TestRiskClustersNeedTwoMembers(t *testing.T) {
	svc, _ := newCouplingFixture()
	now := time.Now().UTC()

	// A single multi-category entity is not a cluster.
	only := uuid.New()
	signals := []*types.Signal{
		{SignalType: "deadline_overdue", Category: "deadline", EntityRefType: "project", EntityRefID: only},
		{SignalType: "client_sentiment_negative", Category: "risk", EntityRefType: "project", EntityRefID: only},
	}
	if got := svc.riskClusters(signals, now); got != nil {
		t.Fatalf("single entity produced a cluster: %+v", got)
	}

	// Single-category entities never cluster no matter how many there are.
	signals = []*types.Signal{
		{SignalType: "deadline_overdue", Category: "deadline", EntityRefType: "project", EntityRefID: uuid.New()},
		{SignalType: "deadline_overdue", Category: "deadline", EntityRefType: "project", EntityRefID: uuid.New()},
	}
	if got := svc.riskClusters(signals, now); got != nil {
		t.Fatalf("single-category entities produced a cluster: %+v", got)
	}
}
