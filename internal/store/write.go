package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/profilecheck/internal/canon"
)

// CreateRun inserts a run and assigns it the next seq. The fixture digest
// is computed from provenance and ids. Returns the stored run.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	idsJSON, err := marshalIDs(run.FixtureIDs)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	digest, err := canon.FixtureDigest(run.FixtureProvenance, run.FixtureIDs)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("create run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, base_url, fixture_provenance, fixture_ids, fixture_digest, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.BaseURL,
		run.FixtureProvenance,
		idsJSON,
		digest,
		run.StartedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("create run: commit: %w", err)
	}

	run.Seq = seq
	run.FixtureDigest = digest
	return run, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteVerdict inserts a verdict and returns its content-addressed id.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; a different outcome for
// an already recorded (run, scenario, target) still fails on the UNIQUE
// constraint.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteVerdict(ctx context.Context, v Verdict) (string, error) {
	return insertVerdict(ctx, s.db, v)
}

// WriteVerdicts records a batch in one transaction and fills in each id.
func (s *Store) WriteVerdicts(ctx context.Context, verdicts []Verdict) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write verdicts: %w", err)
	}
	defer tx.Rollback()

	for i := range verdicts {
		id, err := insertVerdict(ctx, tx, verdicts[i])
		if err != nil {
			return err
		}
		verdicts[i].ID = id
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write verdicts: commit: %w", err)
	}
	return nil
}

func insertVerdict(ctx context.Context, db execer, v Verdict) (string, error) {
	id, err := canon.VerdictID(v.RunID, v.Scenario, v.Target, v.canonical())
	if err != nil {
		return "", fmt.Errorf("write verdict: %w", err)
	}
	evJSON, err := marshalEvidence(v.Evidence)
	if err != nil {
		return "", fmt.Errorf("write verdict: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO verdicts
		(id, run_id, seq, scenario, target, intent, status, kind, channel, reason, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		v.RunID,
		v.Seq,
		v.Scenario,
		v.Target,
		v.Intent,
		v.Status,
		v.Kind,
		v.Channel,
		v.Reason,
		evJSON,
	)
	if err != nil {
		return "", fmt.Errorf("write verdict %s/%s: %w", v.Scenario, v.Target, err)
	}
	return id, nil
}
