package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/profilecheck/internal/config"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/logging"
	"github.com/roach88/profilecheck/internal/metrics"
	"github.com/roach88/profilecheck/internal/transport"
)

// overrides are command flags that take precedence over config values.
// Zero values leave the config untouched.
type overrides struct {
	BaseURL  string
	Contract string
	Database string
	Parallel int
}

// session bundles what the network commands share.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	contract *contract.Contract
	metrics  *metrics.Metrics
	client   *transport.Client
}

// loadSettings resolves config, flag overrides and the logger.
func loadSettings(opts *RootOptions, ov overrides) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if ov.BaseURL != "" {
		cfg.BaseURL = ov.BaseURL
	}
	if ov.Contract != "" {
		cfg.Contract = ov.Contract
	}
	if ov.Database != "" {
		cfg.Database = ov.Database
	}
	if ov.Parallel > 0 {
		cfg.Parallel = ov.Parallel
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	return cfg, logger, nil
}

// newSession builds the contract, metrics and HTTP client for a run.
func newSession(opts *RootOptions, ov overrides) (*session, error) {
	cfg, logger, err := loadSettings(opts, ov)
	if err != nil {
		return nil, err
	}

	c, err := contract.Load(cfg.Contract)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load contract", err)
	}

	m := metrics.New()
	client, err := transport.NewClient(cfg.BaseURL,
		transport.WithTimeout(cfg.Timeout),
		transport.WithRetryMax(cfg.RetryMax),
		transport.WithRetryWait(cfg.RetryWaitMin, cfg.RetryWaitMax),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithLogger(logger.Named("transport")),
		transport.WithObserver(m.ObserveRequest),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create client", fmt.Errorf("base_url %q: %w", cfg.BaseURL, err))
	}

	return &session{cfg: cfg, logger: logger, contract: c, metrics: m, client: client}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}
