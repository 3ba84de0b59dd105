package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.CreateRun(context.Background(), Run{
		ID:                id,
		BaseURL:           "http://localhost:8080",
		FixtureProvenance: "discovered",
		FixtureIDs:        []int64{1, 2},
		StartedAt:         "2024-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateRun(%q) failed: %v", id, err)
	}
	return run
}

// createTestVerdict builds a verdict with minimal required fields.
func createTestVerdict(runID, scenario, target string, seq int64, kind string) Verdict {
	return Verdict{
		RunID:    runID,
		Seq:      seq,
		Scenario: scenario,
		Target:   target,
		Intent:   "valid_lookup",
		Status:   200,
		Kind:     kind,
		Evidence: map[string]string{"envelope.status": "200"},
	}
}
