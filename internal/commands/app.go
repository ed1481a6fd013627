package commands

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/accounts"
	"github.com/clinicbooks/clinicbooks/internal/auditlog"
	"github.com/clinicbooks/clinicbooks/internal/config"
	"github.com/clinicbooks/clinicbooks/internal/consolidate"
	"github.com/clinicbooks/clinicbooks/internal/ledger"
	"github.com/clinicbooks/clinicbooks/internal/period"
	"github.com/clinicbooks/clinicbooks/internal/store"
	"github.com/clinicbooks/clinicbooks/internal/store/filestore"
	"github.com/clinicbooks/clinicbooks/internal/store/sqlstore"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

// app is the wired service graph shared by every command that touches data.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  store.Store
	closer io.Closer

	params       tax.Parameters
	ledger       *ledger.Service
	accounts     *accounts.Service
	aggregator   *period.Aggregator
	estimator    *tax.Estimator
	consolidator *consolidate.Consolidator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openApp loads the configuration, opens the configured store behind the
// retry policy and builds the services. The returned context carries the
// logger.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app, context.Context, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := logger.WithContext(cmd.Context())

	params, err := tax.LoadParameters(cfg.Resolve(cfg.Tax.ParametersFile))
	if err != nil {
		return nil, nil, err
	}

	raw, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	s := store.WithRetry(raw, cfg.RetryPolicy())

	acctSvc := accounts.NewService(s)
	agg := period.NewAggregator(s)
	est := tax.NewEstimator(agg, s)
	a := &app{
		cfg:        cfg,
		logger:     logger,
		store:      s,
		closer:     closer,
		params:     params,
		accounts:   acctSvc,
		aggregator: agg,
		estimator:  est,
		ledger: ledger.NewService(ledger.Params{
			Entries:  s,
			Owners:   s,
			Accounts: acctSvc,
			Audit:    auditlog.NewFileRecorder(cfg.Resolve(".")),
			Actor:    cfg.Practice.Actor,
		}),
		consolidator: consolidate.New(s, agg, consolidate.Options{
			PageSize:    cfg.Admin.PageSize,
			Concurrency: cfg.Admin.Concurrency,
			Estimator:   est,
			Parameters:  params,
		}),
	}
	return a, ctx, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		s, err := sqlstore.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := filestore.Open(ctx, cfg.Resolve(cfg.Store.Dir))
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	}
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	out := w
	if cfg.Log.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	a, ctx, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing store")
		}
	}()
	return fn(ctx, a)
}
