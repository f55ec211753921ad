package risk

import (
	"context"
	"testing"
)

func TestLiquidationAgentImminent(t *testing.T) {
	agent := NewLiquidationAgent()
	tx := &InputTx{Meta: Metadata{HealthFactor: Float(1.04)}}

	report, err := agent.Evaluate(context.Background(), tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Severity != SeverityCritical {
		t.Fatalf("expected CRITICAL severity, got %s", report.Severity)
	}
	if report.Recommendation != RecommendBlock {
		t.Fatalf("expected BLOCK recommendation, got %s", report.Recommendation)
	}
	if report.Score < 80 {
		t.Fatalf("expected score >= 80, got %d", report.Score)
	}
}

func TestLiquidationAgentHealthy(t *testing.T) {
	agent := NewLiquidationAgent()
	tx := &InputTx{Meta: Metadata{HealthFactor: Float(1.3)}}

	report, err := agent.Evaluate(context.Background(), tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Severity != SeverityLow && report.Severity != SeverityMedium {
		t.Fatalf("expected LOW or MEDIUM severity, got %s", report.Severity)
	}
	if report.Recommendation != RecommendAllow {
		t.Fatalf("expected ALLOW recommendation, got %s", report.Recommendation)
	}
}

func TestLiquidationAgentTiers(t *testing.T) {
	agent := NewLiquidationAgent()
	cases := []struct {
		name        string
		hf          float64
		minSeverity Severity
	}{
		{"safe", 2.0, SeverityLow},
		{"watch", 1.45, SeverityMedium},
		{"danger", 1.15, SeverityHigh},
		{"imminent", 1.01, SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &InputTx{Meta: Metadata{HealthFactor: Float(tc.hf)}}
			report, err := agent.Evaluate(context.Background(), tx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Severity.Rank() < tc.minSeverity.Rank() {
				t.Fatalf("hf %.2f: expected at least %s, got %s", tc.hf, tc.minSeverity, report.Severity)
			}
		})
	}
}

func TestLiquidationAgentNoSignal(t *testing.T) {
	agent := NewLiquidationAgent()

	report, err := agent.Evaluate(context.Background(), &InputTx{})
	if err != nil {
		t.Fatalf("missing metadata must not fail the run: %v", err)
	}
	if report.Severity != SeverityLow || report.Recommendation != RecommendAllow {
		t.Fatalf("expected low-risk no-signal report, got %+v", report)
	}
	if report.Confidence >= heuristicConfidence {
		t.Fatalf("no-signal report should carry low confidence, got %d", report.Confidence)
	}
}
