package store

import "errors"

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Run is one suite execution.
type Run struct {
	ID                string  `json:"id"`
	Seq               int64   `json:"seq"`
	BaseURL           string  `json:"base_url"`
	FixtureProvenance string  `json:"fixture_provenance"`
	FixtureIDs        []int64 `json:"fixture_ids"`
	FixtureDigest     string  `json:"fixture_digest"`
	// StartedAt is RFC 3339 and informational only.
	StartedAt string `json:"started_at"`
}

// RunSummary is a run with its verdict counts by kind.
type RunSummary struct {
	Run
	Verdicts   int `json:"verdicts"`
	Violations int `json:"violations"`
}

// Verdict is one classified response within a run.
type Verdict struct {
	ID       string
	RunID    string
	Seq      int64
	Scenario string
	// Target identifies the request within the scenario, e.g. "id=7".
	Target   string
	Intent   string
	Status   int
	Kind     string
	Channel  string
	Reason   string
	Evidence map[string]string
}

// Outcome renders the verdict as kind, kind(channel) or kind(reason).
func (v Verdict) Outcome() string {
	switch {
	case v.Reason != "":
		return v.Kind + "(" + v.Reason + ")"
	case v.Channel != "":
		return v.Kind + "(" + v.Channel + ")"
	}
	return v.Kind
}

// canonical is the content hashed into the verdict id.
func (v Verdict) canonical() map[string]any {
	m := map[string]any{
		"intent":   v.Intent,
		"status":   v.Status,
		"kind":     v.Kind,
		"evidence": copyEvidence(v.Evidence),
	}
	if v.Channel != "" {
		m["channel"] = v.Channel
	}
	if v.Reason != "" {
		m["reason"] = v.Reason
	}
	return m
}

// Change is one (scenario, target) pair whose outcome differs between two
// runs. Before or After is empty when the pair exists in only one run.
type Change struct {
	Scenario string `json:"scenario"`
	Target   string `json:"target"`
	Before   string `json:"before"`
	After    string `json:"after"`
}

func copyEvidence(ev map[string]string) map[string]string {
	out := make(map[string]string, len(ev))
	for k, v := range ev {
		out[k] = v
	}
	return out
}
