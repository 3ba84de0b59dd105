package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/profilecheck/internal/conformance"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/harness"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	Intent   string
	Scenario string
	Status   int
	BodyFile string
	Target   int64
	Payload  string
	Contract string

	// Stdin is read when BodyFile is "-" (for testing).
	Stdin io.Reader
}

// ClassifyResult is the classify command's output.
type ClassifyResult struct {
	Envelope map[string]string   `json:"envelope"`
	Outcome  conformance.Outcome `json:"outcome"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	return newClassifyCommand(&ClassifyOptions{RootOptions: rootOpts})
}

func newClassifyCommand(opts *ClassifyOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a captured response offline",
		Long: `Decode a captured response body and classify it against an intent
without contacting the API.

The intent comes from --intent, or from a built-in scenario with
--scenario (which also brings its field rules).

Example:
  profilecheck classify --intent invalid_parameter --status 200 --body-file resp.json
  curl -s localhost:8080/api/test/user/7 | profilecheck classify --scenario profile_data_format --target 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Intent, "intent", "", "intent kind (valid_lookup|invalid_parameter|out_of_range|missing_parameter|enumerated_field)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "take the intent from a built-in scenario")
	cmd.Flags().IntVar(&opts.Status, "status", 200, "HTTP status of the captured response")
	cmd.Flags().StringVar(&opts.BodyFile, "body-file", "-", "response body file (- for stdin)")
	cmd.Flags().Int64Var(&opts.Target, "target", 0, "requested profile id; checked against the returned id")
	cmd.Flags().StringVar(&opts.Payload, "payload", "profile", "expected payload (profile|ids)")
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "path to CUE contract")

	return cmd
}

func runClassify(opts *ClassifyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := contract.Load(opts.Contract)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeContract, "failed to load contract", err)
	}

	intent, err := classifyIntent(opts, c)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "invalid intent", err)
	}

	body, err := readBody(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "failed to read body", err)
	}

	env, err := envelope.Decode(opts.Status, body)
	if err != nil {
		// Unparseable bodies are inconclusive, which is not a pass.
		return formatter.Fail(ExitFailure, ErrCodeInput, "inconclusive", err)
	}

	outcome := conformance.Classify(env, intent)
	result := ClassifyResult{Envelope: env.Summary(), Outcome: outcome}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, outcome)
		for _, k := range slices.Sorted(maps.Keys(outcome.Evidence)) {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", k, outcome.Evidence[k])
		}
	}

	if outcome.Kind == conformance.Violation {
		return NewExitError(ExitFailure, outcome.String())
	}
	return nil
}

// classifyIntent builds the intent from --scenario or --intent.
func classifyIntent(opts *ClassifyOptions, c *contract.Contract) (conformance.Intent, error) {
	if (opts.Scenario == "") == (opts.Intent == "") {
		return conformance.Intent{}, fmt.Errorf("exactly one of --intent or --scenario is required")
	}

	var intent conformance.Intent
	if opts.Scenario != "" {
		scenarios, err := harness.DefaultSuite()
		if err != nil {
			return conformance.Intent{}, err
		}
		selected, err := harness.Filter(scenarios, opts.Scenario)
		if err != nil {
			return conformance.Intent{}, err
		}
		if len(selected) != 1 {
			return conformance.Intent{}, fmt.Errorf("unknown scenario %q", opts.Scenario)
		}
		plan, err := harness.Compile(selected[0], c)
		if err != nil {
			return conformance.Intent{}, err
		}
		intent = plan.Intent
	} else {
		kind, err := conformance.ParseIntentKind(opts.Intent)
		if err != nil {
			return conformance.Intent{}, err
		}
		documented, err := c.DocumentedAliases()
		if err != nil {
			return conformance.Intent{}, err
		}
		intent = conformance.Intent{Kind: kind, Documented: documented}
		switch opts.Payload {
		case "profile":
			intent.Payload = envelope.PayloadProfile
		case "ids":
			intent.Payload = envelope.PayloadIDs
		default:
			return conformance.Intent{}, fmt.Errorf("unknown payload %q", opts.Payload)
		}
	}

	if opts.Target > 0 {
		intent.Target = fmt.Sprintf("id=%d", opts.Target)
		if intent.Kind.ExpectsSuccess() {
			intent.TargetID = opts.Target
		}
	}
	if err := intent.Validate(); err != nil {
		return conformance.Intent{}, err
	}
	return intent, nil
}

func readBody(opts *ClassifyOptions, cmd *cobra.Command) ([]byte, error) {
	if opts.BodyFile != "-" {
		return os.ReadFile(opts.BodyFile)
	}
	in := opts.Stdin
	if in == nil {
		in = cmd.InOrStdin()
	}
	return io.ReadAll(in)
}
