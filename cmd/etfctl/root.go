package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irfndi/etfflow-go/internal/app"
	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/services"
)

type rootOptions struct {
	logLevel string
	force    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "etfctl",
		Short: "Spot BTC ETF flows and their correlation with the BTC price",
		Long: `etfctl loads the spot BTC ETF flow table (live API, cache or demo data),
correlates daily net inflows with the BTC price and prints the result.

Examples:
  etfctl correlate
  etfctl correlate --json
  etfctl export --output flows.csv
  etfctl stats --period 7`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.force, "force", false, "Bypass the flow cache")

	cmd.AddCommand(newCorrelateCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	return cmd
}

// snapshot builds the service graph and runs one refresh.
func (o *rootOptions) snapshot(ctx context.Context) (*app.App, *services.Snapshot, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.NewLogger(o.logLevel, "text")

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	snap, err := a.Refresher.Refresh(ctx, o.force)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to refresh data: %w", err)
	}
	return a, snap, nil
}
