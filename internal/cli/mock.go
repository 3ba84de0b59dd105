package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/profilecheck/internal/mockapi"
)

// MockOptions holds flags for the mock command.
type MockOptions struct {
	*RootOptions
	Addr         string
	Behavior     string
	ErrorChannel string
	NotFound     string
	FailFirst    int64

	// Ready, when set, receives the bound address once listening (for testing).
	Ready chan<- string
}

// NewMockCommand creates the mock command.
func NewMockCommand(rootOpts *RootOptions) *cobra.Command {
	return newMockCommand(&MockOptions{RootOptions: rootOpts})
}

func newMockCommand(opts *MockOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a simulated profile API",
		Long: `Serve the profile API simulator for local runs.

--behavior observed reproduces the deviations seen in the real API
(success/idList names, body-flag errors, null profile for unknown ids,
missing filter accepted). --behavior conforming follows the documentation.
Individual quirks can be switched with the remaining flags.

Example:
  profilecheck mock --addr :8080
  profilecheck mock --behavior conforming --not-found collision`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMock(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Behavior, "behavior", "observed", "base behavior (observed|conforming)")
	cmd.Flags().StringVar(&opts.ErrorChannel, "error-channel", "", "error signaling (status|body_flag)")
	cmd.Flags().StringVar(&opts.NotFound, "not-found", "", "unknown id answer (status|null_profile|error_body|collision)")
	cmd.Flags().Int64Var(&opts.FailFirst, "fail-first", 0, "answer the first n requests with 503")

	return cmd
}

// mockBehavior resolves the flags into a simulator behavior.
func mockBehavior(opts *MockOptions) (mockapi.Behavior, error) {
	var b mockapi.Behavior
	switch opts.Behavior {
	case "observed":
		b = mockapi.DefaultBehavior()
	case "conforming":
		b = mockapi.ConformingBehavior()
	default:
		return b, fmt.Errorf("unknown behavior %q", opts.Behavior)
	}

	switch ch := mockapi.ErrorChannel(opts.ErrorChannel); ch {
	case "":
	case mockapi.ChannelStatus, mockapi.ChannelBodyFlag:
		b.ErrorChannel = ch
	default:
		return b, fmt.Errorf("unknown error channel %q", opts.ErrorChannel)
	}

	switch nf := mockapi.NotFoundShape(opts.NotFound); nf {
	case "":
	case mockapi.NotFoundStatus, mockapi.NotFoundNullProfile, mockapi.NotFoundErrorBody, mockapi.NotFoundCollision:
		b.NotFound = nf
	default:
		return b, fmt.Errorf("unknown not-found shape %q", opts.NotFound)
	}

	if opts.FailFirst < 0 {
		return b, fmt.Errorf("fail-first must not be negative")
	}
	b.FailFirst = opts.FailFirst
	return b, nil
}

func runMock(opts *MockOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	b, err := mockBehavior(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "invalid mock behavior", err)
	}

	_, logger, err := loadSettings(opts.RootOptions, overrides{})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           mockapi.New(b, nil, mockapi.WithLogger(logger.Named("mockapi"))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("mock API listening", zap.String("addr", addr), zap.String("behavior", opts.Behavior))
	fmt.Fprintf(formatter.GetErrWriter(), "Mock API listening on %s. Press Ctrl-C to stop.\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "mock server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "mock server shutdown failed", err)
	}
	logger.Info("mock API stopped")
	return nil
}
