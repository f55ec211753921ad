package risk

import "testing"

func TestSeverityOrdering(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("expected %s > %s", order[i], order[i-1])
		}
	}
	if MaxSeverity(SeverityLow, SeverityCritical) != SeverityCritical {
		t.Fatalf("max severity should pick the higher rank")
	}
	if MaxSeverity(SeverityHigh, SeverityMedium) != SeverityHigh {
		t.Fatalf("max severity should be commutative on order")
	}
}

func TestSealClampsScore(t *testing.T) {
	draft := newDraft("test", KindLiquidation, 0, strongConfidence)
	draft.add(250, SeverityLow, "overflow")
	report := draft.seal()
	if report.Score != ScoreMax {
		t.Fatalf("expected score clamped to %d, got %d", ScoreMax, report.Score)
	}

	draft = newDraft("test", KindLiquidation, -10, strongConfidence)
	report = draft.seal()
	if report.Score != ScoreMin {
		t.Fatalf("expected score clamped to %d, got %d", ScoreMin, report.Score)
	}
}

// Severity promotion must be monotonic: a higher score never yields a lower
// final severity.
func TestSealPromotionMonotonic(t *testing.T) {
	previous := SeverityLow
	for score := 0; score <= 100; score++ {
		draft := newDraft("test", KindApproval, score, strongConfidence)
		report := draft.seal()
		if report.Severity.Rank() < previous.Rank() {
			t.Fatalf("severity decreased at score %d: %s -> %s", score, previous, report.Severity)
		}
		previous = report.Severity
	}

	at60 := newDraft("test", KindApproval, 60, strongConfidence).seal()
	if at60.Severity.Rank() < SeverityHigh.Rank() {
		t.Fatalf("score 60 must promote to at least HIGH, got %s", at60.Severity)
	}
	at80 := newDraft("test", KindApproval, 80, strongConfidence).seal()
	if at80.Severity != SeverityCritical {
		t.Fatalf("score 80 must promote to CRITICAL, got %s", at80.Severity)
	}
}

func TestSealDoesNotDemoteDimensionRule(t *testing.T) {
	draft := newDraft("test", KindReputation, 10, strongConfidence)
	draft.add(0, SeverityCritical, "dimension rule says critical")
	report := draft.seal()
	if report.Severity != SeverityCritical {
		t.Fatalf("dimension severity must survive promotion, got %s", report.Severity)
	}
}
