package synth

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/etfflow-go/internal/models"
)

// DemoParams shapes the synthetic ETF flow table served in demo mode.
type DemoParams struct {
	InflowMin   float64
	InflowMax   float64
	Volatility  float64
	TrendFactor float64
}

// DefaultDemoParams mirrors the flow ranges seen on US spot BTC ETFs.
func DefaultDemoParams() DemoParams {
	return DemoParams{
		InflowMin:   -50_000_000,
		InflowMax:   150_000_000,
		Volatility:  50_000_000,
		TrendFactor: 100_000,
	}
}

func demoPriceParams() WalkParams {
	return WalkParams{
		Base:       45000,
		Volatility: 0.04,
		Min:        20000,
		Max:        150000,
	}
}

// DemoFlows generates n consecutive daily flow rows ending at end, ascending
// by date. Each row carries a BTC price from an independent walk.
func (s *Synthesizer) DemoFlows(n int, end time.Time, p DemoParams) models.FlowRecords {
	if n <= 0 {
		return models.FlowRecords{}
	}

	prices := s.Walk(n, end, demoPriceParams())
	out := make(models.FlowRecords, 0, n)

	for idx, price := range prices {
		// i counts days back from end, matching the decay of the trend term.
		i := n - 1 - idx

		base := p.InflowMin + s.rng.Float64()*(p.InflowMax-p.InflowMin)
		wave := math.Sin(float64(i)/30) * p.Volatility
		trend := float64(n-i) * p.TrendFactor
		inflow := math.Round(base + wave + trend)

		volume := math.Round(math.Abs(inflow) * (2 + s.rng.Float64()*3))
		assets := math.Round(50e9 + float64(i)*1e8 + s.rng.Float64()*5e9)
		cumulative := math.Round(assets*0.7 + s.rng.Float64()*1e10)

		out = append(out, models.FlowRecord{
			Date:             price.Date,
			TotalNetInflow:   decimal.NewFromFloat(inflow),
			TotalValueTraded: decimal.NewFromFloat(volume),
			TotalNetAssets:   decimal.NewFromFloat(assets),
			CumNetInflow:     decimal.NewFromFloat(cumulative),
			BTCPrice:         decimal.NewFromFloat(math.Round(price.Value)),
		})
	}

	return out
}
