package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/profilecheck/internal/fixture"
	"github.com/roach88/profilecheck/internal/harness"
	"github.com/roach88/profilecheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL     string
	Contract    string
	Database    string
	Parallel    int
	Filter      string
	Pushgateway string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
	// Clock allows overriding the run start time (for testing).
	Clock Clock
}

// FixtureReport describes the session's fixture set.
type FixtureReport struct {
	Provenance string  `json:"provenance"`
	IDs        []int64 `json:"ids"`
	Degraded   string  `json:"degraded,omitempty"`
}

// RunReport is the run command's result.
type RunReport struct {
	RunID    string                 `json:"run_id"`
	BaseURL  string                 `json:"base_url"`
	Fixtures FixtureReport          `json:"fixtures"`
	Results  []*harness.Result      `json:"results"`
	Summary  map[harness.Status]int `json:"summary"`
	Recorded bool                   `json:"recorded"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenarios-dir]",
		Short: "Run conformance scenarios against the API",
		Long: `Discover fixture ids, run the conformance scenarios and report verdicts.

Without a directory the built-in suite is used. Scenarios run in parallel
(--parallel) and are reported in name order. With --db the run and every
verdict are recorded to the SQLite ledger for later history and diff.

Exit code is 0 when every scenario passed, 1 when any failed or was
inconclusive, 2 on command errors.

Example:
  profilecheck run --base-url http://localhost:8080
  profilecheck run --db ./ledger.db --filter 'profile_*' ./scenarios`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runSuite(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "API base URL (overrides config)")
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "path to CUE contract (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger; records the run when set")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "scenarios to run concurrently (overrides config)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.Pushgateway, "pushgateway", "", "Prometheus Pushgateway URL (overrides config)")

	return cmd
}

func runSuite(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	scenarios, err := loadScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to load scenarios", err)
	}
	scenarios, err = harness.Filter(scenarios, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "invalid filter", err)
	}
	if len(scenarios) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "no scenarios matched", nil)
	}

	sess, err := newSession(opts.RootOptions, overrides{
		BaseURL:  opts.BaseURL,
		Contract: opts.Contract,
		Database: opts.Database,
		Parallel: opts.Parallel,
	})
	if err != nil {
		return err
	}
	defer sess.close()
	if opts.Pushgateway != "" {
		sess.cfg.Pushgateway = opts.Pushgateway
	}
	logger := sess.logger

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	runID := runIDs.Generate()
	startedAt := clock.Now().UTC().Format(time.RFC3339)
	logger = logger.With(zap.String("run", runID))

	fixtures := fixture.Discover(ctx, sess.client, nil, sess.contract.FixtureOptions(), logger.Named("fixture"))
	if fixtures.Degraded() {
		sess.metrics.IncFixtureFallback(fixtures.Reason())
	}
	formatter.VerboseLog("fixtures: %s", fixtures)

	runner := harness.NewRunner(sess.client, sess.contract, fixtures,
		harness.WithLogger(logger.Named("harness")),
		harness.WithMetrics(sess.metrics),
	)
	results, err := runner.RunSuite(ctx, scenarios, sess.cfg.Parallel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to run scenarios", err)
	}

	report := RunReport{
		RunID:   runID,
		BaseURL: sess.cfg.BaseURL,
		Fixtures: FixtureReport{
			Provenance: string(fixtures.Provenance()),
			IDs:        fixtures.IDs(),
			Degraded:   fixtures.Reason(),
		},
		Results: results,
		Summary: harness.Summary(results),
	}

	if sess.cfg.Database != "" {
		if err := recordRun(ctx, sess.cfg.Database, report, startedAt); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to record run", err)
		}
		report.Recorded = true
		logger.Info("run recorded", zap.String("db", sess.cfg.Database))
	}

	if sess.cfg.Pushgateway != "" {
		if err := sess.metrics.Push(ctx, sess.cfg.Pushgateway, runID); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}

	if err := outputRunReport(formatter, report); err != nil {
		return err
	}

	if report.Summary[harness.StatusPass] != len(results) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failed, %d inconclusive",
			report.Summary[harness.StatusFail], report.Summary[harness.StatusInconclusive]))
	}
	return nil
}

// loadScenarios returns the built-in suite or the directory's scenarios.
func loadScenarios(dir string) ([]*harness.Scenario, error) {
	if dir == "" {
		return harness.DefaultSuite()
	}
	return harness.LoadDir(dir)
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// recordRun writes the run and its verdicts to the ledger.
func recordRun(ctx context.Context, path string, report RunReport, startedAt string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.CreateRun(ctx, store.Run{
		ID:                report.RunID,
		BaseURL:           report.BaseURL,
		FixtureProvenance: report.Fixtures.Provenance,
		FixtureIDs:        report.Fixtures.IDs,
		StartedAt:         startedAt,
	}); err != nil {
		return err
	}
	return st.WriteVerdicts(ctx, ledgerVerdicts(report.RunID, report.Results))
}

// ledgerVerdicts flattens results into ledger rows, numbered in report
// order.
func ledgerVerdicts(runID string, results []*harness.Result) []store.Verdict {
	var out []store.Verdict
	var seq int64
	for _, res := range results {
		for _, v := range res.Verdicts {
			seq++
			row := store.Verdict{
				RunID:    runID,
				Seq:      seq,
				Scenario: res.Scenario,
				Target:   v.Target,
				Intent:   res.Intent,
				Status:   v.StatusCode,
			}
			if v.Inconclusive != "" {
				row.Kind = string(harness.StatusInconclusive)
				row.Evidence = map[string]string{"inconclusive": v.Inconclusive}
			} else {
				row.Kind = string(v.Outcome.Kind)
				row.Channel = string(v.Outcome.Channel)
				row.Reason = string(v.Outcome.Reason)
				row.Evidence = v.Outcome.Evidence
			}
			out = append(out, row)
		}
	}
	return out
}

func outputRunReport(formatter *OutputFormatter, report RunReport) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if report.Recorded {
			resp.RunID = report.RunID
		}
		return json.NewEncoder(formatter.Writer).Encode(resp)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Fixtures: %s [%s]", report.Fixtures.Provenance, joinIDs(report.Fixtures.IDs))
	if report.Fixtures.Degraded != "" {
		fmt.Fprintf(w, " (degraded: %s)", report.Fixtures.Degraded)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	for _, res := range report.Results {
		writeResult(w, res, formatter.Verbose)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d inconclusive, %d total\n",
		report.Summary[harness.StatusPass],
		report.Summary[harness.StatusFail],
		report.Summary[harness.StatusInconclusive],
		len(report.Results))
	if report.Recorded {
		fmt.Fprintf(w, "Recorded run %s\n", report.RunID)
	}
	return nil
}

func writeResult(w io.Writer, res *harness.Result, verbose bool) {
	switch res.Status {
	case harness.StatusPass:
		fmt.Fprintf(w, "✓ %s\n", res.Scenario)
	case harness.StatusFail:
		fmt.Fprintf(w, "✗ %s\n", res.Scenario)
	default:
		fmt.Fprintf(w, "? %s\n", res.Scenario)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if !verbose {
		return
	}
	for _, v := range res.Verdicts {
		if v.Inconclusive != "" {
			continue
		}
		fmt.Fprintf(w, "  %s -> %d %s\n", v.Request, v.StatusCode, v.Outcome)
	}
}

func joinIDs(ids []int64) string {
	b := make([]byte, 0, len(ids)*3)
	for i, id := range ids {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = fmt.Appendf(b, "%d", id)
	}
	return string(b)
}
