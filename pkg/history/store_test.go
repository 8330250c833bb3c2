package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/secscan/pkg/engine"
)

func run(id string) engine.ScanRun {
	return engine.ScanRun{
		ID:             id,
		Repo:           "test-repo",
		Timestamp:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		OverallVerdict: engine.VerdictPass,
		CategoryVerdicts: map[engine.Category]engine.Verdict{
			engine.CategorySecrets: engine.VerdictPass,
		},
	}
}

func TestAppendAndReadBackInOrder(t *testing.T) {
	store := NewStore(t.TempDir())

	// 1. Append N runs sequentially.
	const n = 5
	for i := 0; i < n; i++ {
		if err := store.Append(run(fmt.Sprintf("run-%d", i))); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	// 2. ReadAll returns exactly N records in insertion order.
	runs, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(runs) != n {
		t.Fatalf("expected %d runs, got %d", n, len(runs))
	}
	for i, r := range runs {
		if want := fmt.Sprintf("run-%d", i); r.ID != want {
			t.Errorf("runs[%d].ID = %s, want %s", i, r.ID, want)
		}
	}
}

func TestReadLatest(t *testing.T) {
	store := NewStore(t.TempDir())
	for i := 0; i < 7; i++ {
		if err := store.Append(run(fmt.Sprintf("run-%d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	latest, err := store.ReadLatest(3)
	if err != nil {
		t.Fatalf("ReadLatest failed: %v", err)
	}
	if len(latest) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(latest))
	}
	if latest[0].ID != "run-4" || latest[2].ID != "run-6" {
		t.Errorf("got window %s..%s, want run-4..run-6", latest[0].ID, latest[2].ID)
	}

	// n larger than history returns everything.
	all, err := store.ReadLatest(100)
	if err != nil {
		t.Fatalf("ReadLatest(100) failed: %v", err)
	}
	if len(all) != 7 {
		t.Errorf("expected 7 runs, got %d", len(all))
	}
}

func TestConcurrentAppendsNeverCorrupt(t *testing.T) {
	store := NewStore(t.TempDir())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Append(run(fmt.Sprintf("run-%d", i))); err != nil {
				t.Errorf("concurrent Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	runs, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll after concurrent appends failed: %v", err)
	}
	if len(runs) != n {
		t.Fatalf("expected %d runs, got %d (merged or lost append)", n, len(runs))
	}
	seen := make(map[string]bool)
	for _, r := range runs {
		if seen[r.ID] {
			t.Errorf("duplicate run %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestAppendRefusesCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Append(run("run-0")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Truncate the file mid-record to simulate a torn write from outside.
	path := filepath.Join(dir, DefaultFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)/2], 0o644); err != nil {
		t.Fatalf("truncate history: %v", err)
	}

	err = store.Append(run("run-1"))
	if err == nil {
		t.Fatal("expected append against corrupt history to fail")
	}
	if _, ok := err.(*WriteError); !ok {
		t.Errorf("expected *WriteError, got %T", err)
	}

	// The corrupt file was not clobbered by the failed append.
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-read history: %v", err)
	}
	if string(after) != string(data[:len(data)/2]) {
		t.Error("failed append modified the backing file")
	}
}
