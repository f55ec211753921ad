package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNormalizeRef(t *testing.T) {
	cases := map[string]string{
		"  PAY-123  ": "pay-123",
		"Pay-123":     "pay-123",
		"pay-123":     "pay-123",
		"\tREF\n":     "ref",
	}
	for in, want := range cases {
		if got := NormalizeRef(in); got != want {
			t.Fatalf("NormalizeRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemoryGuardMarkAndLookup(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	used, err := guard.IsUsed(ctx, "pay-1")
	if err != nil || used {
		t.Fatalf("fresh ref should be unused: used=%v err=%v", used, err)
	}
	claimed, err := guard.Claim(ctx, "pay-1")
	if err != nil || !claimed {
		t.Fatalf("first claim must win: claimed=%v err=%v", claimed, err)
	}

	// Lookup is idempotent and must see identity through normalization.
	for i := 0; i < 2; i++ {
		used, err = guard.IsUsed(ctx, "  PAY-1 ")
		if err != nil || !used {
			t.Fatalf("normalized ref should read as used: used=%v err=%v", used, err)
		}
	}

	claimed, err = guard.Claim(ctx, " PAY-1 ")
	if err != nil || claimed {
		t.Fatalf("second claim must lose: claimed=%v err=%v", claimed, err)
	}
	if err := guard.Release(ctx, "pay-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if used, _ := guard.IsUsed(ctx, "pay-1"); used {
		t.Fatalf("released ref should read as unused")
	}
}

func TestMemoryGuardEmptyRef(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()
	if _, err := guard.IsUsed(ctx, "   "); !errors.Is(err, ErrEmptyRef) {
		t.Fatalf("expected ErrEmptyRef, got %v", err)
	}
	if _, err := guard.Claim(ctx, ""); !errors.Is(err, ErrEmptyRef) {
		t.Fatalf("expected ErrEmptyRef, got %v", err)
	}
}

func TestMemoryGuardExpiry(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guard := NewMemoryGuard(
		WithTTL(time.Hour),
		WithNow(func() time.Time { return current }),
	)
	ctx := context.Background()

	if claimed, err := guard.Claim(ctx, "pay-1"); err != nil || !claimed {
		t.Fatalf("Claim: claimed=%v err=%v", claimed, err)
	}
	if used, _ := guard.IsUsed(ctx, "pay-1"); !used {
		t.Fatalf("ref should be used inside the TTL window")
	}

	current = current.Add(2 * time.Hour)
	if used, _ := guard.IsUsed(ctx, "pay-1"); used {
		t.Fatalf("ref should expire after the TTL window")
	}
	if guard.Size() != 0 {
		t.Fatalf("expired entry should be lazily evicted, size=%d", guard.Size())
	}
	if claimed, _ := guard.Claim(ctx, "pay-1"); !claimed {
		t.Fatalf("expired ref should be claimable again")
	}
}

func TestMemoryGuardCapacityPruning(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guard := NewMemoryGuard(
		WithTTL(time.Hour),
		WithCapacity(10),
		WithNow(func() time.Time { return current }),
	)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		if claimed, err := guard.Claim(ctx, fmt.Sprintf("pay-%02d", i)); err != nil || !claimed {
			t.Fatalf("Claim: claimed=%v err=%v", claimed, err)
		}
		// Each entry expires one minute after the previous one.
		current = current.Add(time.Minute)
	}

	// Crossing capacity prunes back to 80%, dropping the oldest-expiring first.
	if size := guard.Size(); size != 8 {
		t.Fatalf("expected 8 entries after pruning, got %d", size)
	}
	if used, _ := guard.IsUsed(ctx, "pay-00"); used {
		t.Fatalf("oldest-expiring entry should have been pruned")
	}
	if used, _ := guard.IsUsed(ctx, "pay-10"); !used {
		t.Fatalf("newest entry must survive pruning")
	}
}

func TestProcessorConsumeOncePerWindow(t *testing.T) {
	guard := NewMemoryGuard()
	calls := 0
	verifier := VerifierFunc(func(context.Context, string) (VerifyStatus, error) {
		calls++
		return VerifyOK, nil
	})
	proc := NewProcessor(verifier, guard)
	ctx := context.Background()

	status, err := proc.Consume(ctx, "Pay-1")
	if err != nil || status != VerifyOK {
		t.Fatalf("first consume: status=%s err=%v", status, err)
	}
	status, err = proc.Consume(ctx, " pay-1 ")
	if err != nil || status != VerifyReplayed {
		t.Fatalf("second consume must be flagged as replay: status=%s err=%v", status, err)
	}
	if calls != 1 {
		t.Fatalf("verifier must not run for replayed refs, calls=%d", calls)
	}
}

func TestProcessorInsufficientFundsNotConsumed(t *testing.T) {
	guard := NewMemoryGuard()
	verifier := VerifierFunc(func(context.Context, string) (VerifyStatus, error) {
		return VerifyInsufficientFunds, nil
	})
	proc := NewProcessor(verifier, guard)
	ctx := context.Background()

	status, err := proc.Consume(ctx, "pay-1")
	if err != nil || status != VerifyInsufficientFunds {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if used, _ := guard.IsUsed(ctx, "pay-1"); used {
		t.Fatalf("a rejected payment must not consume the reference")
	}
}

func TestProcessorConcurrentConsumeSingleWinner(t *testing.T) {
	guard := NewMemoryGuard()
	// A slow verifier widens the window between claim and completion.
	verifier := VerifierFunc(func(context.Context, string) (VerifyStatus, error) {
		time.Sleep(20 * time.Millisecond)
		return VerifyOK, nil
	})
	proc := NewProcessor(verifier, guard)
	ctx := context.Background()

	const workers = 8
	results := make(chan VerifyStatus, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := proc.Consume(ctx, "pay-race")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			results <- status
		}()
	}
	wg.Wait()
	close(results)

	oks, replays := 0, 0
	for status := range results {
		switch status {
		case VerifyOK:
			oks++
		case VerifyReplayed:
			replays++
		default:
			t.Fatalf("unexpected status %s", status)
		}
	}
	if oks != 1 {
		t.Fatalf("exactly one concurrent consume may succeed, got %d", oks)
	}
	if replays != workers-1 {
		t.Fatalf("losers must see REPLAYED, got %d of %d", replays, workers-1)
	}
}

func TestProcessorVerifierErrorReleasesClaim(t *testing.T) {
	guard := NewMemoryGuard()
	broken := VerifierFunc(func(context.Context, string) (VerifyStatus, error) {
		return VerifyInsufficientFunds, errors.New("上游不可用")
	})
	proc := NewProcessor(broken, guard)
	ctx := context.Background()

	if status, err := proc.Consume(ctx, "pay-1"); err == nil || status != VerifyInsufficientFunds {
		t.Fatalf("capability failure must degrade: status=%s err=%v", status, err)
	}
	// The failed attempt must not burn the reference.
	status, err := proc.Consume(ctx, "pay-1")
	_ = status
	if err == nil {
		t.Fatalf("broken verifier should keep failing")
	}
	if used, _ := guard.IsUsed(ctx, "pay-1"); used {
		t.Fatalf("a failed verification must release the claim")
	}
}
