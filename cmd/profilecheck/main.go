// Command profilecheck runs conformance scenarios against the user profile API.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/profilecheck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
