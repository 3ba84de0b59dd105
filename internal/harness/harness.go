package harness

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/profilecheck/internal/conformance"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/fixture"
	"github.com/roach88/profilecheck/internal/metrics"
	"github.com/roach88/profilecheck/internal/transport"
)

// Runner executes scenarios for one session. It is safe for concurrent
// use: the fixture set and contract are read-only after construction.
type Runner struct {
	requester transport.Requester
	decoder   *envelope.Decoder
	contract  *contract.Contract
	fixtures  fixture.Set
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records verdict and scenario counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithDecoder replaces the default-alias decoder.
func WithDecoder(d *envelope.Decoder) Option {
	return func(r *Runner) {
		if d != nil {
			r.decoder = d
		}
	}
}

// NewRunner creates a runner over a discovered fixture set.
func NewRunner(requester transport.Requester, c *contract.Contract, fixtures fixture.Set, opts ...Option) *Runner {
	if c == nil {
		c = contract.Default()
	}
	r := &Runner{
		requester: requester,
		decoder:   envelope.NewDecoder(nil),
		contract:  c,
		fixtures:  fixtures,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fixtures returns the session's fixture set.
func (r *Runner) Fixtures() fixture.Set {
	return r.fixtures
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario against the contract
//  2. Expand its target into requests
//  3. Send each request, decode the body and classify it
//
// An error is returned only when the scenario itself is invalid. Transport
// failures and unparseable bodies produce inconclusive verdicts.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	plan, err := Compile(s, r.contract)
	if err != nil {
		return nil, err
	}
	reqs, err := plan.expand(r.contract, r.fixtures)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	logger := r.logger.With(zap.String("scenario", s.Name))
	result := NewResult(s)
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := r.execute(ctx, plan, req, logger)
		if v.Inconclusive == "" {
			r.metrics.IncVerdict(string(v.Outcome.Kind), string(v.Outcome.Channel))
		}
		result.AddVerdict(v)
	}

	r.metrics.IncScenario(string(result.Status))
	logger.Info("scenario finished",
		zap.String("status", string(result.Status)),
		zap.Int("verdicts", len(result.Verdicts)),
	)
	return result, nil
}

func (r *Runner) execute(ctx context.Context, plan *Plan, req request, logger *zap.Logger) Verdict {
	path, err := req.req.Path()
	if err != nil {
		logger.Warn("request not built", zap.String("target", req.target), zap.Error(err))
		return Verdict{Target: req.target, Request: http.MethodGet + " " + req.req.PathTemplate, Inconclusive: err.Error()}
	}
	if q := req.req.Query.Encode(); q != "" {
		path += "?" + q
	}
	v := Verdict{Target: req.target, Request: http.MethodGet + " " + path}

	resp, err := r.requester.Do(ctx, req.req)
	if err != nil {
		logger.Warn("request failed", zap.String("target", req.target), zap.Error(err))
		v.Inconclusive = err.Error()
		return v
	}
	v.StatusCode = resp.StatusCode
	v.RequestID = resp.RequestID

	env, err := r.decoder.Decode(resp.StatusCode, resp.Body)
	if err != nil {
		r.metrics.IncDecodeError()
		logger.Warn("response body could not be parsed", zap.String("target", req.target), zap.Error(err))
		v.Inconclusive = err.Error()
		return v
	}

	intent := plan.Intent
	intent.Target = req.target
	intent.TargetID = req.targetID
	intent.Context = r.fixtures.Evidence()

	v.Outcome = conformance.Classify(env, intent)
	logger.Debug("response classified",
		zap.String("target", req.target),
		zap.Int("status", resp.StatusCode),
		zap.Stringer("outcome", v.Outcome),
	)
	return v
}

// RunSuite executes scenarios with at most parallel running at once.
// Results are returned in input order. The first invalid scenario cancels
// the rest and its error is returned.
func (r *Runner) RunSuite(ctx context.Context, scenarios []*Scenario, parallel int) ([]*Result, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]*Result, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, s := range scenarios {
		g.Go(func() error {
			res, err := r.Run(gctx, s)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary counts results by status.
func Summary(results []*Result) map[Status]int {
	counts := map[Status]int{StatusPass: 0, StatusFail: 0, StatusInconclusive: 0}
	for _, res := range results {
		counts[res.Status]++
	}
	return counts
}
