package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/profilecheck/internal/fixture"
)

// DiscoverOptions holds flags for the discover command.
type DiscoverOptions struct {
	*RootOptions
	BaseURL  string
	Contract string
}

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscoverOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Print the fixture ids a run would use",
		Long: `Query the listing endpoint with the inclusive filter and print the
identifiers found. When the listing is unusable the fallback set is
printed together with the reason; discovery itself never fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "API base URL (overrides config)")
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "path to CUE contract (overrides config)")

	return cmd
}

func runDiscover(opts *DiscoverOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, err := newSession(opts.RootOptions, overrides{BaseURL: opts.BaseURL, Contract: opts.Contract})
	if err != nil {
		return err
	}
	defer sess.close()

	set := fixture.Discover(commandContext(cmd), sess.client, nil, sess.contract.FixtureOptions(), sess.logger.Named("fixture"))
	report := FixtureReport{
		Provenance: string(set.Provenance()),
		IDs:        set.IDs(),
		Degraded:   set.Reason(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "Provenance: %s\n", report.Provenance)
	fmt.Fprintf(formatter.Writer, "IDs:        %s\n", joinIDs(report.IDs))
	if report.Degraded != "" {
		fmt.Fprintf(formatter.Writer, "Degraded:   %s\n", report.Degraded)
	}
	return nil
}
