package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/httpapi"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				api := httpapi.New(serverConfig(a, addr))
				return api.Start(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func serverConfig(a *app, addr string) httpapi.Config {
	return httpapi.Config{
		Addr:            addr,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		Dependencies: httpapi.Dependencies{
			Logger:       a.logger,
			Ledger:       a.ledger,
			Accounts:     a.accounts,
			Aggregator:   a.aggregator,
			Estimator:    a.estimator,
			Parameters:   a.params,
			Consolidator: a.consolidator,
		},
	}
}
