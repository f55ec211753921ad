package provenance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ChainSentry/internal/risk"
)

type flakyLedger struct {
	failOn map[string]bool
	calls  int
}

func (l *flakyLedger) Append(_ context.Context, record *Record) (string, error) {
	l.calls++
	if l.failOn[record.AgentID] {
		return "", errors.New("ledger unavailable")
	}
	return "test:" + record.ReportID, nil
}

func sampleReports() []*risk.Report {
	now := time.Now().UTC().Unix()
	return []*risk.Report{
		{ID: "rep-1", AgentID: "liquidation-health", Score: 90, Severity: risk.SeverityCritical, Recommendation: risk.RecommendBlock, CreatedAt: now},
		{ID: "rep-2", AgentID: "approval-analyzer", Score: 5, Severity: risk.SeverityLow, Recommendation: risk.RecommendAllow, CreatedAt: now},
		{ID: "rep-3", AgentID: "scam-reputation", Score: 0, Severity: risk.SeverityLow, Recommendation: risk.RecommendAllow, CreatedAt: now},
	}
}

func TestRecordAllHappyPath(t *testing.T) {
	ledger := NewMemoryLedger()
	queue := NewMemoryQueue(8)
	recorder := NewRecorder(ledger, queue)

	records := recorder.RecordAll(context.Background(), "run-1", sampleReports())
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, record := range records {
		if record.RunID != "run-1" || record.Digest == "" || record.Anchor == "" || !record.Recorded {
			t.Fatalf("incomplete record: %+v", record)
		}
	}
	if stored := ledger.Records(); len(stored) != 3 {
		t.Fatalf("ledger should hold every record, got %d", len(stored))
	}

	// Announcements carry the full record as JSON.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	seen := make(chan Record, 3)
	go func() {
		_ = queue.Consume(ctx, 1, func(_ context.Context, payload string) error {
			var record Record
			if err := json.Unmarshal([]byte(payload), &record); err != nil {
				t.Errorf("bad payload: %v", err)
				return err
			}
			seen <- record
			return nil
		})
	}()
	for i := 0; i < 3; i++ {
		select {
		case record := <-seen:
			if record.RunID != "run-1" {
				t.Fatalf("unexpected run id %s", record.RunID)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for queue announcements")
		}
	}
}

func TestRecordAllPartialSuccess(t *testing.T) {
	ledger := &flakyLedger{failOn: map[string]bool{"approval-analyzer": true}}
	recorder := NewRecorder(ledger, nil)

	records := recorder.RecordAll(context.Background(), "run-1", sampleReports())
	if len(records) != 3 {
		t.Fatalf("every report keeps its record, got %d", len(records))
	}
	if ledger.calls != 3 {
		t.Fatalf("a failed write must not stop the remaining reports, calls=%d", ledger.calls)
	}
	recorded := 0
	for _, record := range records {
		if record.AgentID == "approval-analyzer" {
			if record.Recorded || record.Anchor != "" {
				t.Fatalf("failed write must be returned unrecorded: %+v", record)
			}
			continue
		}
		if !record.Recorded {
			t.Fatalf("successful write must be flagged recorded: %+v", record)
		}
		recorded++
	}
	if recorded != 2 {
		t.Fatalf("expected 2 recorded entries, got %d", recorded)
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	report := sampleReports()[0]
	first := NewRecord("run-1", report)
	second := NewRecord("run-1", report)
	if first.Digest != second.Digest {
		t.Fatalf("same report must digest identically: %s vs %s", first.Digest, second.Digest)
	}
	if first.ID == second.ID {
		t.Fatalf("record ids must be unique")
	}
}

func TestMemoryQueuePublishDoesNotBlockWhenFull(t *testing.T) {
	queue := NewMemoryQueue(1)
	ctx := context.Background()

	if err := queue.Publish(ctx, "first"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := queue.Publish(ctx, "second"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("full buffer must reject immediately, got %v", err)
	}
}

func TestRecordAllReturnsWithoutConsumer(t *testing.T) {
	ledger := NewMemoryLedger()
	// A size-1 queue with nobody draining it fills after the first record.
	recorder := NewRecorder(ledger, NewMemoryQueue(1))

	start := time.Now()
	records := recorder.RecordAll(context.Background(), "run-1", sampleReports())
	elapsed := time.Since(start)

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, record := range records {
		if !record.Recorded {
			t.Fatalf("ledger writes must succeed even when announcements are dropped: %+v", record)
		}
	}
	if elapsed > time.Second {
		t.Fatalf("a full queue must not stall recording, took %s", elapsed)
	}
}
