package risk

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type stubReputation struct {
	listing Listing
	found   bool
	err     error
}

func (s *stubReputation) Lookup(_ context.Context, _ string) (Listing, bool, error) {
	return s.listing, s.found, s.err
}

func TestReputationAgentScamDestination(t *testing.T) {
	source := &stubReputation{
		listing: Listing{Address: "0xdead", Label: "fake-airdrop", Tags: []string{"scam"}},
		found:   true,
	}
	agent := NewReputationAgent(source)
	tx := &InputTx{To: common.HexToAddress("0xdead"), Value: big.NewInt(1)}

	report, err := agent.Evaluate(context.Background(), tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Severity != SeverityCritical || report.Recommendation != RecommendBlock {
		t.Fatalf("expected CRITICAL/BLOCK, got %s/%s", report.Severity, report.Recommendation)
	}
	if report.Score < 70 {
		t.Fatalf("expected high score, got %d", report.Score)
	}
}

func TestReputationAgentLookupFailureDegrades(t *testing.T) {
	agent := NewReputationAgent(&stubReputation{err: errors.New("feed down")})

	report, err := agent.Evaluate(context.Background(), &InputTx{})
	if err != nil {
		t.Fatalf("capability failure must degrade, not fail: %v", err)
	}
	if report.Recommendation != RecommendAllow || report.Severity != SeverityLow {
		t.Fatalf("expected low-risk degraded report, got %+v", report)
	}
	if report.Confidence != degradedConfidence {
		t.Fatalf("expected degraded confidence, got %d", report.Confidence)
	}
}

func TestStaticReputationSourceNormalizesCase(t *testing.T) {
	source := NewStaticReputationSource([]Listing{
		{Address: "0xABCDEF0123456789ABCDEF0123456789ABCDEF01", Label: "drainer", Tags: []string{"scam"}},
	})

	listing, found, err := source.Lookup(context.Background(), strings.ToLower("0xABCDEF0123456789ABCDEF0123456789ABCDEF01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || listing.Label != "drainer" {
		t.Fatalf("lookup should be case-insensitive, got found=%v listing=%+v", found, listing)
	}
	if source.Size() != 1 {
		t.Fatalf("unexpected size %d", source.Size())
	}
}

func TestCoordinatorStrengthensConsensusBlock(t *testing.T) {
	coordinator := NewCoordinatorAgent()
	peers := []*Report{
		{AgentID: "a", Score: 85, Recommendation: RecommendBlock, Severity: SeverityCritical},
		{AgentID: "b", Score: 75, Recommendation: RecommendBlock, Severity: SeverityHigh},
		{AgentID: "c", Score: 10, Recommendation: RecommendAllow, Severity: SeverityLow},
	}

	report, err := coordinator.EvaluateWithPeers(context.Background(), &InputTx{}, peers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Recommendation != RecommendBlock {
		t.Fatalf("expected coordinator to confirm block, got %s", report.Recommendation)
	}
	// Peer reports must remain untouched.
	if peers[2].Recommendation != RecommendAllow || peers[0].Score != 85 {
		t.Fatalf("coordinator mutated peer reports: %+v", peers)
	}
}

func TestCoordinatorFlagsDisagreement(t *testing.T) {
	coordinator := NewCoordinatorAgent()
	peers := []*Report{
		{AgentID: "a", Score: 90, Recommendation: RecommendBlock, Severity: SeverityCritical},
		{AgentID: "b", Score: 5, Recommendation: RecommendAllow, Severity: SeverityLow},
		{AgentID: "c", Score: 5, Recommendation: RecommendAllow, Severity: SeverityLow},
	}

	report, err := coordinator.EvaluateWithPeers(context.Background(), &InputTx{}, peers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Recommendation != RecommendReview {
		t.Fatalf("split verdict should request review, got %s", report.Recommendation)
	}
}
