package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/irfndi/etfflow-go/internal/reporting"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		output string
		query  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the flow table as CSV",
		Long: `Export the flow table, most recent first, as CSV.
--output - writes to stdout; without --output the file is named etf_btc_<date>.csv.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, snap, err := root.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.Analytics.Filter(snap.Dataset.Records, query)

			var w io.Writer = cmd.OutOrStdout()
			if output == "" {
				output = reporting.ExportFilename(time.Now())
			}
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("failed to close %s: %w", output, cerr)
					}
				}()
				w = f
			}

			if err := reporting.WriteFlowsCSV(w, records); err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d records to %s\n", len(records), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only export rows matching this search term")
	return cmd
}
