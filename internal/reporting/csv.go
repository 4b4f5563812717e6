// Package reporting exports the flow table for download.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/irfndi/etfflow-go/internal/models"
)

// Header is the first row of every exported file.
var Header = []string{"Date", "Net Inflow", "Volume", "Net Assets", "Cum Inflow", "BTC Price"}

// ContentType is served with exported files.
const ContentType = "text/csv"

// ExportFilename names a download taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("etf_btc_%s.csv", now.Format(models.DateLayout))
}

// WriteFlowsCSV writes records in the given order with raw numeric values.
// Rows without a BTC price leave that column empty.
func WriteFlowsCSV(w io.Writer, records models.FlowRecords) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		price := ""
		if r.BTCPrice.IsPositive() {
			price = r.BTCPrice.String()
		}
		row := []string{
			models.DateKey(r.Date),
			r.TotalNetInflow.String(),
			r.TotalValueTraded.String(),
			r.TotalNetAssets.String(),
			r.CumNetInflow.String(),
			price,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", models.DateKey(r.Date), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
