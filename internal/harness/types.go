package harness

import (
	"github.com/roach88/profilecheck/internal/conformance"
)

// Status is a scenario's overall result.
type Status string

const (
	StatusPass         Status = "pass"
	StatusFail         Status = "fail"
	StatusInconclusive Status = "inconclusive"
)

// Verdict is the result of one request.
type Verdict struct {
	Target     string `json:"target"`
	Request    string `json:"request"`
	StatusCode int    `json:"status_code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	// Outcome is unset when Inconclusive is non-empty.
	Outcome conformance.Outcome `json:"outcome"`

	// Inconclusive explains why no outcome could be produced, e.g. a
	// transport failure or an unparseable body.
	Inconclusive string `json:"inconclusive,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario    string    `json:"scenario"`
	Description string    `json:"description"`
	Intent      string    `json:"intent"`
	Status      Status    `json:"status"`
	Verdicts    []Verdict `json:"verdicts"`

	// Errors contains human-readable failure descriptions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with no verdicts.
func NewResult(s *Scenario) *Result {
	return &Result{
		Scenario:    s.Name,
		Description: s.Description,
		Intent:      s.Intent,
		Status:      StatusPass,
		Verdicts:    []Verdict{},
		Errors:      []string{},
	}
}

// AddVerdict appends a verdict and updates the status. Fail takes
// precedence over inconclusive.
func (r *Result) AddVerdict(v Verdict) {
	r.Verdicts = append(r.Verdicts, v)
	switch {
	case v.Inconclusive != "":
		r.Errors = append(r.Errors, v.Target+": inconclusive: "+v.Inconclusive)
		if r.Status == StatusPass {
			r.Status = StatusInconclusive
		}
	case v.Outcome.Kind == conformance.Violation:
		r.Errors = append(r.Errors, v.Target+": "+v.Outcome.String())
		r.Status = StatusFail
	}
}

// Pass reports whether every verdict was acceptable.
func (r *Result) Pass() bool {
	return r.Status == StatusPass
}
