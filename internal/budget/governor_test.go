package budget

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGovernorPerAppCapBoundary(t *testing.T) {
	gov := NewGovernor(Config{TreasuryUSD: 1000, DailyCapUSD: 500, PerAppCapUSD: 10})

	if verdict := gov.CanAllocate(10); !verdict.Allowed {
		t.Fatalf("amount equal to cap must be allowed: %+v", verdict)
	}
	verdict := gov.CanAllocate(11)
	if verdict.Allowed {
		t.Fatalf("amount above cap must be denied")
	}
	if verdict.Reason != ReasonPerAppCap {
		t.Fatalf("expected per-app cap reason, got %s", verdict.Reason)
	}
}

func TestGovernorDailyCap(t *testing.T) {
	gov := NewGovernor(Config{TreasuryUSD: 1000, DailyCapUSD: 50, PerAppCapUSD: 40})

	if verdict := gov.RecordSpend(35); !verdict.Allowed {
		t.Fatalf("first spend should pass: %+v", verdict)
	}
	verdict := gov.RecordSpend(20)
	if verdict.Allowed {
		t.Fatalf("35 + 20 exceeds the daily cap of 50")
	}
	if verdict.Reason != ReasonDailyCap {
		t.Fatalf("expected daily cap reason, got %s", verdict.Reason)
	}

	state := gov.Snapshot()
	if state.DailyBurnUSD != 35 {
		t.Fatalf("denied spend must not mutate state, burn=%f", state.DailyBurnUSD)
	}
}

func TestGovernorTreasuryFloor(t *testing.T) {
	gov := NewGovernor(Config{TreasuryUSD: 30, DailyCapUSD: 0, PerAppCapUSD: 0})

	if verdict := gov.RecordSpend(25); !verdict.Allowed {
		t.Fatalf("spend within treasury should pass: %+v", verdict)
	}
	verdict := gov.RecordSpend(10)
	if verdict.Allowed || verdict.Reason != ReasonTreasury {
		t.Fatalf("expected treasury exhaustion, got %+v", verdict)
	}
}

func TestGovernorDailyRollover(t *testing.T) {
	current := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	gov := NewGovernor(Config{TreasuryUSD: 1000, DailyCapUSD: 50, PerAppCapUSD: 50}, WithClock(clock))

	if verdict := gov.RecordSpend(50); !verdict.Allowed {
		t.Fatalf("spend up to cap should pass: %+v", verdict)
	}
	if verdict := gov.RecordSpend(1); verdict.Allowed {
		t.Fatalf("cap is exhausted for the day")
	}

	mu.Lock()
	current = current.Add(2 * time.Hour) // crosses midnight
	mu.Unlock()

	if verdict := gov.RecordSpend(30); !verdict.Allowed {
		t.Fatalf("daily burn should reset on date change: %+v", verdict)
	}
	state := gov.Snapshot()
	if state.DailyBurnUSD != 30 {
		t.Fatalf("expected fresh daily burn 30, got %f", state.DailyBurnUSD)
	}
	if state.TreasuryUSD != 920 {
		t.Fatalf("treasury must keep decreasing across days, got %f", state.TreasuryUSD)
	}
}

func TestGovernorConcurrentSpends(t *testing.T) {
	gov := NewGovernor(Config{TreasuryUSD: 100, DailyCapUSD: 100, PerAppCapUSD: 10})

	var wg sync.WaitGroup
	allowed := make(chan struct{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gov.RecordSpend(10).Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	granted := 0
	for range allowed {
		granted++
	}
	if granted != 10 {
		t.Fatalf("expected exactly 10 grants of 10 USD against a 100 USD cap, got %d", granted)
	}
	if state := gov.Snapshot(); state.DailyBurnUSD != 100 {
		t.Fatalf("burn accounting drifted under concurrency: %f", state.DailyBurnUSD)
	}
}

func TestEvaluateDeployNamedChecks(t *testing.T) {
	gov := NewGovernor(Config{TreasuryUSD: 1000, DailyCapUSD: 50, PerAppCapUSD: 10})

	decision := gov.EvaluateDeploy(21)
	if decision.Deploy {
		t.Fatalf("21 against per-app cap 10 must not deploy")
	}
	if decision.Reason != ReasonPerAppCap {
		t.Fatalf("expected per-app reason, got %s", decision.Reason)
	}
	if len(decision.Checks) != 3 || decision.Checks[0].Label != CheckPerAppCap || decision.Checks[0].Passed {
		t.Fatalf("unexpected checks: %+v", decision.Checks)
	}
}

func TestEvaluateDeployGlobalBurn(t *testing.T) {
	clock := fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	gov := NewGovernor(Config{TreasuryUSD: 1000, DailyCapUSD: 50, PerAppCapUSD: 25}, WithClock(clock))
	if verdict := gov.RecordSpend(25); !verdict.Allowed {
		t.Fatalf("seed spend failed: %+v", verdict)
	}
	if verdict := gov.RecordSpend(10); !verdict.Allowed {
		t.Fatalf("seed spend failed: %+v", verdict)
	}

	// Daily burn is now 35; 20 more would cross the 50 USD global cap.
	decision := gov.EvaluateDeploy(20)
	if decision.Deploy {
		t.Fatalf("35 + 20 crosses the global cap of 50")
	}
	if decision.Reason != ReasonDailyCap {
		t.Fatalf("expected global burn reason, got %s", decision.Reason)
	}
	for _, check := range decision.Checks {
		if check.Label == CheckGlobalBurn && check.Passed {
			t.Fatalf("globalBurnLimit check should fail: %+v", decision.Checks)
		}
		if check.Label == CheckPerAppCap && !check.Passed {
			t.Fatalf("perAppCap check should pass for 20 against 25: %+v", decision.Checks)
		}
	}
}
