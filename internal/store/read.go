package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetRun returns one run. Wraps ErrRunNotFound when absent.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, base_url, fixture_provenance, fixture_ids, fixture_digest, started_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every run with verdict counts, oldest first.
// Ordered by seq ASC, id COLLATE BINARY ASC. Returns an empty slice (not
// nil) when the ledger is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.base_url, r.fixture_provenance, r.fixture_ids, r.fixture_digest, r.started_at,
		       COUNT(v.id),
		       COALESCE(SUM(CASE WHEN v.kind = 'violation' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN verdicts v ON v.run_id = r.id
		GROUP BY r.id
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var (
			sum     RunSummary
			idsJSON string
		)
		if err := rows.Scan(
			&sum.ID, &sum.Seq, &sum.BaseURL, &sum.FixtureProvenance, &idsJSON,
			&sum.FixtureDigest, &sum.StartedAt, &sum.Verdicts, &sum.Violations,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.FixtureIDs, err = unmarshalIDs(idsJSON); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return summaries, nil
}

// ReadVerdicts returns the verdicts of a run.
// Ordered by seq ASC, id COLLATE BINARY ASC. Returns an empty slice (not
// nil) when the run has none.
func (s *Store) ReadVerdicts(ctx context.Context, runID string) ([]Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, scenario, target, intent, status, kind, channel, reason, evidence
		FROM verdicts
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []Verdict{}
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return verdicts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		idsJSON string
	)
	if err := row.Scan(
		&run.ID, &run.Seq, &run.BaseURL, &run.FixtureProvenance, &idsJSON,
		&run.FixtureDigest, &run.StartedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	ids, err := unmarshalIDs(idsJSON)
	if err != nil {
		return Run{}, err
	}
	run.FixtureIDs = ids
	return run, nil
}

func scanVerdict(row scanner) (Verdict, error) {
	var (
		v      Verdict
		evJSON string
	)
	if err := row.Scan(
		&v.ID, &v.RunID, &v.Seq, &v.Scenario, &v.Target, &v.Intent,
		&v.Status, &v.Kind, &v.Channel, &v.Reason, &evJSON,
	); err != nil {
		return Verdict{}, fmt.Errorf("scan verdict: %w", err)
	}
	ev, err := unmarshalEvidence(evJSON)
	if err != nil {
		return Verdict{}, err
	}
	v.Evidence = ev
	return v, nil
}
