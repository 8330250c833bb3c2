// Package history is the append-only, crash-safe log of past scan runs.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/secscan/pkg/engine"
)

// DefaultFile is the history artifact name inside the reports directory.
const DefaultFile = "history.json"

// WriteError means an append could not be persisted. Prior history entries
// are never affected by a failed append.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("history write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store persists ScanRuns as a JSON array on disk. It is the single shared
// mutable resource of the pipeline: Append serializes concurrent runs so
// two appends can never interleave, and every write goes through a temp
// file plus rename so readers never observe a truncated array.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, DefaultFile)}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Append adds one run at the end of the history. Once appended a run is
// never edited or removed. A corrupt existing file fails the append
// instead of clobbering whatever is still recoverable.
func (s *Store) Append(run engine.ScanRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.read()
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	runs = append(runs, run)

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	if err := atomicWrite(s.path, data); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}

// ReadAll returns the full history in insertion order.
func (s *Store) ReadAll() ([]engine.ScanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// ReadLatest returns the n most recent runs, oldest first. n larger than
// the history returns everything.
func (s *Store) ReadLatest(n int) ([]engine.ScanRun, error) {
	runs, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	if n < len(runs) {
		runs = runs[len(runs)-n:]
	}
	return runs, nil
}

func (s *Store) read() ([]engine.ScanRun, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var runs []engine.ScanRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("corrupt history: %w", err)
	}
	return runs, nil
}

// atomicWrite lands data at path via temp-file-then-rename in the same
// directory, so the rename cannot cross filesystems.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
