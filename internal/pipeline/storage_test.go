package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *FileStorage {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return storage
}

func TestFileStorageRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	rec := &Record{
		UserID:    "alice",
		SiteURL:   "https://example.com",
		CreatedAt: time.Now().UTC(),
	}
	id, err := storage.SaveAnalysis(ctx, rec)
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated analysis ID")
	}

	records, err := storage.LoadHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != id || records[0].SiteURL != "https://example.com" {
		t.Errorf("loaded record = %+v", records[0])
	}

	if err := storage.DeleteAnalysis(ctx, id); err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	records, err = storage.LoadHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadHistory after delete: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records after delete, got %d", len(records))
	}
}

func TestFileStorageHistoryFiltersAndSorts(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	older := &Record{UserID: "alice", SiteURL: "https://a.example.com", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &Record{UserID: "alice", SiteURL: "https://b.example.com", CreatedAt: time.Now()}
	other := &Record{UserID: "bob", SiteURL: "https://c.example.com", CreatedAt: time.Now()}
	for _, rec := range []*Record{older, newer, other} {
		if _, err := storage.SaveAnalysis(ctx, rec); err != nil {
			t.Fatalf("SaveAnalysis: %v", err)
		}
	}

	records, err := storage.LoadHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected alice's 2 records, got %d", len(records))
	}
	if records[0].SiteURL != "https://b.example.com" {
		t.Errorf("newest record must come first, got %s", records[0].SiteURL)
	}
}

func TestFileStorageSkipsCorruptRecords(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if _, err := storage.SaveAnalysis(ctx, &Record{UserID: "alice", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if err := os.WriteFile(filepath.Join(storage.dir, "broken.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	records, err := storage.LoadHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadHistory should skip corrupt records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected the 1 healthy record, got %d", len(records))
	}
}

func TestFileStorageUsage(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.IncrementUsage(ctx, "alice", 10); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}
	if err := storage.IncrementUsage(ctx, "alice", 5); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}
	if err := storage.IncrementUsage(ctx, "bob", 3); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(storage.dir, "usage.json"))
	if err != nil {
		t.Fatalf("read usage file: %v", err)
	}
	for _, want := range []string{`"alice": 15`, `"bob": 3`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("usage file missing %s:\n%s", want, data)
		}
	}

	// The usage sidecar must never surface as an analysis.
	records, err := storage.LoadHistory(ctx, "")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("usage.json leaked into history: %+v", records)
	}
}

func TestFileStorageDeleteMissing(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.DeleteAnalysis(context.Background(), "no-such-id"); err == nil {
		t.Error("expected error deleting a missing analysis")
	}
}
