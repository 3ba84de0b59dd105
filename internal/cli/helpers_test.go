package cli

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/profilecheck/internal/mockapi"
)

// startMock serves the simulator for the duration of the test.
func startMock(t *testing.T, b mockapi.Behavior) string {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(b, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

// execute runs cmd with args and returns everything written to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
