package incubation

import (
	"testing"
	"time"
)

func newClock(t time.Time) (func() time.Time, func(time.Duration)) {
	current := t
	return func() time.Time { return current },
		func(d time.Duration) { current = current.Add(d) }
}

func TestEvaluatorSupportedThenHandedToUser(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock, advance := newClock(start.Add(10 * 24 * time.Hour))
	eval := NewEvaluator(Config{
		WindowDays:    14,
		MaturityDays:  30,
		MinUsers:      50,
		MinRevenueUSD: 10,
	}, WithNow(clock))

	app := &App{ID: "app-1", Status: StatusIncubating, StartedAt: start}
	metrics := Metrics{Users: 60, RevenueUSD: 15}

	decision := eval.Evaluate(app, metrics)
	if decision.NextStatus != StatusSupported {
		t.Fatalf("inside window with metrics above thresholds: got %s (%s)",
			decision.NextStatus, decision.Reason)
	}
	Apply(app, decision, clock())

	// 31 days later the app is past the maturity period.
	advance(31 * 24 * time.Hour)
	decision = eval.Evaluate(app, metrics)
	if decision.NextStatus != StatusHandedToUser {
		t.Fatalf("supported app past maturity should be handed over: got %s (%s)",
			decision.NextStatus, decision.Reason)
	}
	if decision.RevenueShareBps != 500 {
		t.Fatalf("handover must record the protocol revenue share, got %d", decision.RevenueShareBps)
	}
	Apply(app, decision, clock())
	if app.RevenueShareBps != 500 {
		t.Fatalf("Apply should persist the revenue share, got %d", app.RevenueShareBps)
	}
}

func TestEvaluatorDropsBelowThreshold(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock, _ := newClock(start.Add(5 * 24 * time.Hour))
	eval := NewEvaluator(Config{WindowDays: 14, MaturityDays: 30, MinUsers: 50, MinRevenueUSD: 10}, WithNow(clock))

	cases := []struct {
		name    string
		metrics Metrics
	}{
		{"low users", Metrics{Users: 49, RevenueUSD: 15}},
		{"low revenue", Metrics{Users: 60, RevenueUSD: 9.99}},
		{"both low", Metrics{Users: 1, RevenueUSD: 0}},
	}
	for _, tc := range cases {
		app := &App{ID: "app-1", Status: StatusIncubating, StartedAt: start}
		decision := eval.Evaluate(app, tc.metrics)
		if decision.NextStatus != StatusDropped {
			t.Fatalf("%s: expected DROPPED, got %s", tc.name, decision.NextStatus)
		}
	}
}

func TestEvaluatorSupportedBeforeMaturityStaysSupported(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock, _ := newClock(start.Add(20 * 24 * time.Hour))
	eval := NewEvaluator(Config{WindowDays: 14, MaturityDays: 30, MinUsers: 50, MinRevenueUSD: 10}, WithNow(clock))

	app := &App{ID: "app-1", Status: StatusSupported, StartedAt: start}
	decision := eval.Evaluate(app, Metrics{Users: 100, RevenueUSD: 40})
	if decision.NextStatus != StatusSupported {
		t.Fatalf("past window but before maturity should stay SUPPORTED, got %s", decision.NextStatus)
	}
	if decision.RevenueShareBps != 0 {
		t.Fatalf("revenue share must only be set on handover")
	}
}

func TestEvaluatorTerminalStatesAreAbsorbing(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock, _ := newClock(start.Add(100 * 24 * time.Hour))
	eval := NewEvaluator(Config{}, WithNow(clock))

	for _, status := range []Status{StatusDropped, StatusHandedToUser} {
		app := &App{ID: "app-1", Status: status, StartedAt: start}
		decision := eval.Evaluate(app, Metrics{Users: 100000, RevenueUSD: 100000})
		if decision.NextStatus != status {
			t.Fatalf("terminal status %s must never transition, got %s", status, decision.NextStatus)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	eval := NewEvaluator(Config{})
	if eval.cfg.WindowDays != 14 || eval.cfg.MaturityDays != 30 {
		t.Fatalf("unexpected default windows: %+v", eval.cfg)
	}
	if eval.cfg.MinUsers != 50 || eval.cfg.MinRevenueUSD != 10 {
		t.Fatalf("unexpected default thresholds: %+v", eval.cfg)
	}
}
