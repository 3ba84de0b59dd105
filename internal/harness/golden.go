package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/profilecheck/internal/canon"
)

// Snapshot converts a result to the generic form accepted by
// canon.Marshal. Request ids are omitted so snapshots are deterministic.
func Snapshot(result *Result) map[string]any {
	verdicts := make([]any, len(result.Verdicts))
	for i, v := range result.Verdicts {
		m := map[string]any{
			"target":  v.Target,
			"request": v.Request,
		}
		if v.StatusCode != 0 {
			m["status_code"] = v.StatusCode
		}
		if v.Inconclusive != "" {
			m["inconclusive"] = v.Inconclusive
		} else {
			m["outcome"] = v.Outcome.Canonical()
		}
		verdicts[i] = m
	}
	return map[string]any{
		"scenario": result.Scenario,
		"intent":   result.Intent,
		"status":   string(result.Status),
		"verdicts": verdicts,
	}
}

// AssertGolden compares the result's canonical snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := canon.Marshal(Snapshot(result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
