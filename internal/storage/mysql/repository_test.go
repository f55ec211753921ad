package mysql

import (
	"context"
	"testing"
	"time"

	xerrors "ChainSentry/internal/errors"
	"ChainSentry/internal/incubation"
)

func TestMemoryRunRepositorySaveAndFind(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	record := RunRecord{
		RunID:    "run-1",
		Severity: "CRITICAL",
		Score:    95,
		Decision: "BLOCK",
		Action:   "BLOCK_TX",
	}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := repo.FindByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Decision != "BLOCK" || found.Score != 95 {
		t.Fatalf("unexpected record: %+v", found)
	}

	_, err = repo.FindByID(ctx, "missing")
	if xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestMemoryRunRepositoryListLatest(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := repo.Save(ctx, RunRecord{RunID: id, Severity: "LOW", Decision: "ALLOW", Action: "EXECUTE_TX"}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	latest, err := repo.ListLatest(ctx, 2)
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	if len(latest) != 2 || latest[0].RunID != "run-3" || latest[1].RunID != "run-2" {
		t.Fatalf("expected newest first, got %+v", latest)
	}
}

func TestMemoryRunRepositoryRejectsEmptyID(t *testing.T) {
	repo := NewMemoryRunRepository()
	err := repo.Save(context.Background(), RunRecord{})
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestMemoryAppRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryAppRepository()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	record := AppRecord{
		App:     incubation.App{ID: "app-1", Name: "quote-bot", Status: incubation.StatusIncubating, StartedAt: start},
		Metrics: incubation.Metrics{Users: 60, RevenueUSD: 15},
	}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	record.App.Status = incubation.StatusSupported
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("update: %v", err)
	}

	found, err := repo.FindByID(ctx, "app-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.App.Status != incubation.StatusSupported {
		t.Fatalf("expected SUPPORTED, got %s", found.App.Status)
	}

	supported, err := repo.ListByStatus(ctx, incubation.StatusSupported)
	if err != nil || len(supported) != 1 {
		t.Fatalf("ListByStatus: %v, len=%d", err, len(supported))
	}
	dropped, err := repo.ListByStatus(ctx, incubation.StatusDropped)
	if err != nil || len(dropped) != 0 {
		t.Fatalf("expected no dropped apps, got %d", len(dropped))
	}
}

func TestMigrationFilesWellFormed(t *testing.T) {
	files, err := loadMigrationFiles()
	if err != nil {
		t.Fatalf("loadMigrationFiles: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected at least two migrations, got %d", len(files))
	}
	seen := make(map[string]bool)
	for _, file := range files {
		if file.version == "" || len(file.statements) == 0 {
			t.Fatalf("malformed migration %q: %+v", file.name, file)
		}
		if seen[file.version] {
			t.Fatalf("duplicate migration version %s", file.version)
		}
		seen[file.version] = true
	}
}
