package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/utils"
)

func newCorrelateCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate daily ETF net inflows with the BTC price",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, snap, err := root.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result := snap.Correlation
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Data source:   %s (%d records)\n", snap.Dataset.Source, len(snap.Dataset.Records))
			fmt.Fprintf(out, "Coefficient:   %.4f\n", result.Coefficient)
			fmt.Fprintf(out, "Strength:      %s %s\n", result.Strength, result.Direction)
			fmt.Fprintf(out, "Method:        %s (%d samples, prices from %s)\n", result.Method, result.Samples, result.PriceSource)
			if result.Method == models.MethodEstimated {
				fmt.Fprintf(out, "Reason:        %s\n", result.Reason)
			}
			fmt.Fprintf(out, "Reading:       %s\n", result.Strength.Interpretation())
			if snap.Statistics != nil && len(snap.Statistics.Metrics) > 0 {
				inflow := snap.Statistics.Metrics[0]
				fmt.Fprintf(out, "Latest inflow: %s (%s)\n", inflow.Formatted, utils.FormatPercent(inflow.ChangePct))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}
