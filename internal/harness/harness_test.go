package harness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/profilecheck/internal/conformance"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/fixture"
	"github.com/roach88/profilecheck/internal/metrics"
	"github.com/roach88/profilecheck/internal/mockapi"
	"github.com/roach88/profilecheck/internal/transport"
)

// newSession starts a mock API with the given behavior, discovers
// fixtures against it and returns a runner.
func newSession(t *testing.T, b mockapi.Behavior, opts ...Option) *Runner {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(b, nil))
	t.Cleanup(srv.Close)

	client, err := transport.NewClient(srv.URL,
		transport.WithRetryMax(2),
		transport.WithRetryWait(time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)

	c := contract.Default()
	fixtures := fixture.Discover(context.Background(), client, nil, c.FixtureOptions(), zap.NewNop())
	return NewRunner(client, c, fixtures, opts...)
}

func runDefaultSuite(t *testing.T, r *Runner) map[string]*Result {
	t.Helper()
	scenarios, err := DefaultSuite()
	require.NoError(t, err)

	results, err := r.RunSuite(context.Background(), scenarios, 4)
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))

	byName := make(map[string]*Result, len(results))
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, scenarios[i].Name, res.Scenario, "results keep input order")
		byName[res.Scenario] = res
	}
	return byName
}

func TestDefaultSuite_ConformingAPI(t *testing.T) {
	r := newSession(t, mockapi.ConformingBehavior())
	assert.Equal(t, fixture.Discovered, r.Fixtures().Provenance())
	assert.Equal(t, []int64{1, 2, 5, 8}, r.Fixtures().IDs())

	results := runDefaultSuite(t, r)
	for name, res := range results {
		assert.Equal(t, StatusPass, res.Status, "%s: %v", name, res.Errors)
	}

	neg := results["profile_negative_id"]
	require.Len(t, neg.Verdicts, 1)
	assert.Equal(t, conformance.AcceptableError, neg.Verdicts[0].Outcome.Kind)
	assert.Equal(t, conformance.ChannelStatus, neg.Verdicts[0].Outcome.Channel)
	assert.Equal(t, http.StatusBadRequest, neg.Verdicts[0].StatusCode)

	assert.Len(t, results["profile_every_fixture"].Verdicts, 4)
	assert.Len(t, results["profile_non_numeric_id"].Verdicts, 3)
	assert.Len(t, results["list_each_category"].Verdicts, 4)
}

func TestDefaultSuite_ObservedAPI(t *testing.T) {
	r := newSession(t, mockapi.DefaultBehavior())
	results := runDefaultSuite(t, r)

	missing := results["list_missing_filter"]
	assert.Equal(t, StatusFail, missing.Status)
	require.Len(t, missing.Verdicts, 1)
	assert.Equal(t, conformance.ReasonSilentAcceptance, missing.Verdicts[0].Outcome.Reason)

	neg := results["profile_negative_id"]
	assert.Equal(t, StatusPass, neg.Status)
	assert.Equal(t, conformance.ChannelBodyFlag, neg.Verdicts[0].Outcome.Channel)

	oor := results["profile_out_of_range"]
	assert.Equal(t, StatusPass, oor.Status)
	assert.Equal(t, "not_found", oor.Verdicts[0].Outcome.Evidence["detail.shape"])

	valid := results["profile_valid_id"]
	assert.Equal(t, StatusPass, valid.Status)
	ev := valid.Verdicts[0].Outcome.Evidence
	assert.Equal(t, "documented=isSuccess observed=success", ev["drift.success"])
	assert.Equal(t, "discovered", ev["fixture.provenance"])

	list := results["list_inclusive_filter"]
	assert.Equal(t, "documented=result observed=idList", list.Verdicts[0].Outcome.Evidence["drift.ids"])

	for name, res := range results {
		if name != "list_missing_filter" {
			assert.Equal(t, StatusPass, res.Status, "%s: %v", name, res.Errors)
		}
	}
}

func TestRun_IdentifierCollision(t *testing.T) {
	b := mockapi.ConformingBehavior()
	b.NotFound = mockapi.NotFoundCollision
	r := newSession(t, b)

	res, err := r.Run(context.Background(), mustParse(t, `
name: oor
description: out of range
endpoint: profile
intent: out_of_range
target: {values: ["2147483647"]}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, conformance.ReasonIdentifierCollision, res.Verdicts[0].Outcome.Reason)
	assert.Len(t, res.Errors, 1)
}

func TestRun_SilentAcceptanceOfInvalidID(t *testing.T) {
	b := mockapi.DefaultBehavior()
	b.AcceptInvalidID = true
	r := newSession(t, b)

	res, err := r.Run(context.Background(), mustParse(t, `
name: neg
description: negative
endpoint: profile
intent: invalid_parameter
target: {values: ["-1"]}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, conformance.ReasonSilentAcceptance, res.Verdicts[0].Outcome.Reason)
}

func TestRun_IncompleteErrorBody(t *testing.T) {
	b := mockapi.DefaultBehavior()
	b.OmitErrorMessage = true
	r := newSession(t, b)

	res, err := r.Run(context.Background(), mustParse(t, `
name: neg
description: negative
endpoint: profile
intent: invalid_parameter
target: {values: ["-1"]}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, conformance.ReasonIncompleteErrorBody, res.Verdicts[0].Outcome.Reason)
	assert.Equal(t, "error_message", res.Verdicts[0].Outcome.Evidence["detail.missing"])
}

func TestRun_RetriesGatewayErrors(t *testing.T) {
	b := mockapi.ConformingBehavior()
	b.FailFirst = 2
	r := newSession(t, b)

	assert.Equal(t, fixture.Discovered, r.Fixtures().Provenance(), "discovery succeeds after retries")
}

func TestRun_FallbackFixturesRecordedAsEvidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/test/users" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "errorCode": 0, "user": {"id": 1, "name": "A", "gender": "male", "age": 30, "city": "X", "registrationDate": "2020-01-01T00:00:00"}}`))
	}))
	defer srv.Close()

	client, err := transport.NewClient(srv.URL, transport.WithRetryMax(0))
	require.NoError(t, err)
	c := contract.Default()
	fixtures := fixture.Discover(context.Background(), client, nil, c.FixtureOptions(), zap.NewNop())
	require.True(t, fixtures.Degraded())

	res, err := NewRunner(client, c, fixtures).Run(context.Background(), mustParse(t, `
name: valid
description: valid
endpoint: profile
intent: valid_lookup
target: {fixture: first}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusPass, res.Status, res.Errors)
	assert.Equal(t, "fallback", res.Verdicts[0].Outcome.Evidence["fixture.provenance"])
	assert.Equal(t, fixture.ReasonStatus, res.Verdicts[0].Outcome.Evidence["fixture.degraded"])
}

func TestRun_DecodeErrorIsInconclusive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	client, err := transport.NewClient(srv.URL, transport.WithRetryMax(0))
	require.NoError(t, err)
	m := metrics.New()
	r := NewRunner(client, nil, fixture.NewSet([]int64{1}, fixture.Discovered), WithMetrics(m))

	res, err := r.Run(context.Background(), mustParse(t, `
name: valid
description: valid
endpoint: profile
intent: valid_lookup
target: {fixture: first}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusInconclusive, res.Status)
	assert.NotEmpty(t, res.Verdicts[0].Inconclusive)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scenarios.WithLabelValues("inconclusive")))
}

// failingRequester fails every request.
type failingRequester struct{ err error }

func (f failingRequester) Do(context.Context, transport.Request) (transport.Response, error) {
	return transport.Response{}, f.err
}

func TestRun_TransportErrorIsInconclusive(t *testing.T) {
	r := NewRunner(failingRequester{errors.New("connection refused")}, nil, fixture.NewSet([]int64{1}, fixture.Discovered))

	res, err := r.Run(context.Background(), mustParse(t, `
name: neg
description: negative
endpoint: profile
intent: invalid_parameter
target: {values: ["-1", "abc"]}
`))
	require.NoError(t, err)
	assert.Equal(t, StatusInconclusive, res.Status)
	require.Len(t, res.Verdicts, 2)
	assert.Equal(t, "connection refused", res.Verdicts[0].Inconclusive)
	assert.Equal(t, "GET /api/test/user/-1", res.Verdicts[0].Request)
}

func TestExecute_UnbuildablePathIsInconclusive(t *testing.T) {
	requester := &countingRequester{}
	r := NewRunner(requester, nil, fixture.NewSet([]int64{1}, fixture.Discovered))
	plan, err := Compile(mustParse(t, "name: a\ndescription: b\nendpoint: profile\nintent: valid_lookup\ntarget: {fixture: first}\n"), contract.Default())
	require.NoError(t, err)

	req := request{target: "id=1", req: transport.Request{PathTemplate: "/api/test/user/{id}"}}
	v := r.execute(context.Background(), plan, req, zap.NewNop())

	assert.Contains(t, v.Inconclusive, `no value for path parameter "id"`)
	assert.Equal(t, "GET /api/test/user/{id}", v.Request)
	assert.Zero(t, requester.calls, "nothing is sent for an unbuildable path")
}

// countingRequester records how often it is called.
type countingRequester struct{ calls int }

func (c *countingRequester) Do(context.Context, transport.Request) (transport.Response, error) {
	c.calls++
	return transport.Response{StatusCode: http.StatusOK}, nil
}

func TestRun_InvalidScenario(t *testing.T) {
	r := NewRunner(failingRequester{errors.New("unused")}, nil, fixture.NewSet(nil, fixture.Discovered))
	_, err := r.Run(context.Background(), &Scenario{Name: "x", Endpoint: EndpointList, Intent: "teapot", Target: Target{Omit: true}})
	assert.Error(t, err)
}

func TestRunSuite_StopsOnInvalidScenario(t *testing.T) {
	r := NewRunner(failingRequester{errors.New("down")}, nil, fixture.NewSet(nil, fixture.Discovered))
	scenarios := []*Scenario{
		{Name: "ok", Description: "d", Endpoint: EndpointList, Intent: "missing_parameter", Target: Target{Omit: true}},
		{Name: "bad", Description: "d", Endpoint: EndpointList, Intent: "teapot", Target: Target{Omit: true}},
	}
	_, err := r.RunSuite(context.Background(), scenarios, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestRun_CanceledContext(t *testing.T) {
	r := NewRunner(failingRequester{errors.New("down")}, nil, fixture.NewSet(nil, fixture.Discovered))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, mustParse(t, "name: a\ndescription: b\nendpoint: list\nintent: missing_parameter\ntarget: {omit: true}\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_MetricsCountVerdicts(t *testing.T) {
	m := metrics.New()
	r := newSession(t, mockapi.ConformingBehavior(), WithMetrics(m))

	_, err := r.Run(context.Background(), mustParse(t, `
name: neg
description: negative
endpoint: profile
intent: invalid_parameter
target: {values: ["-1", "abc"]}
`))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("acceptable_error", "status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scenarios.WithLabelValues("pass")))
}

func TestSummary(t *testing.T) {
	counts := Summary([]*Result{{Status: StatusPass}, {Status: StatusFail}, {Status: StatusPass}})
	assert.Equal(t, map[Status]int{StatusPass: 2, StatusFail: 1, StatusInconclusive: 0}, counts)
}
