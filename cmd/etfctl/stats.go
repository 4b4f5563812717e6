package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/utils"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var period int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print flow statistics, trend and significant movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			if period < 0 {
				return utils.NewValidationErrorf("period must not be negative, got %d", period)
			}
			a, snap, err := root.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			records := snap.Dataset.Records
			fmt.Fprintf(out, "%s\n\n", snap.Dataset.Message)

			if snap.Statistics != nil {
				fmt.Fprintf(out, "Latest day: %s\n", models.DateKey(snap.Statistics.Date))
				for _, m := range snap.Statistics.Metrics {
					fmt.Fprintf(out, "  %-12s %12s  %s\n", m.Label, m.Formatted, m.Change)
				}
				fmt.Fprintln(out)
			}

			analysis := a.Analytics.Analyze(records, period)
			fmt.Fprintf(out, "Trend (%d days): %s (%s)\n", analysis.Trend.Period, analysis.Trend.Trend, utils.FormatPercent(analysis.Trend.ChangePct))
			fmt.Fprintf(out, "Volatility:      %.0f\n", analysis.Volatility)
			fmt.Fprintf(out, "Outliers:        %d\n", len(analysis.Outliers))

			movements := a.Analytics.SignificantMovements(records)
			if len(movements) > 0 {
				fmt.Fprintln(out, "\nSignificant movements:")
				for _, m := range movements {
					fmt.Fprintf(out, "  %s  %-7s %s\n", models.DateKey(m.Date), m.Type, m.Formatted)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&period, "period", 0, "Trend window in days (default from configuration)")
	return cmd
}
