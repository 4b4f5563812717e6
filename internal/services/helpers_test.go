package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/etfflow-go/internal/models"
)

var testEnd = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

// makeRecords builds n consecutive daily rows ending at testEnd, oldest first.
func makeRecords(n int, inflow func(i int) float64) models.FlowRecords {
	out := make(models.FlowRecords, n)
	start := testEnd.AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		v := inflow(i)
		out[i] = models.FlowRecord{
			Date:             start.AddDate(0, 0, i),
			TotalNetInflow:   decimal.NewFromFloat(v),
			TotalValueTraded: decimal.NewFromInt(1_000_000_000),
			TotalNetAssets:   decimal.NewFromInt(50_000_000_000),
			CumNetInflow:     decimal.NewFromInt(15_000_000_000),
			BTCPrice:         decimal.NewFromFloat(v * 0.0004),
		}
	}
	return out
}

func constantInflow(v float64) func(int) float64 {
	return func(int) float64 { return v }
}
