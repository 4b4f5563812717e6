package correlation

import (
	"fmt"
	"math"

	"github.com/irfndi/etfflow-go/internal/models"
)

// PercentChange returns the change from previous to current in percent of
// |previous|. A zero previous value yields 0.
func PercentChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}

// PercentChanges returns the day-over-day percent changes of values. The
// result has one fewer element than values and is empty for fewer than two.
func PercentChanges(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = PercentChange(values[i-1], values[i])
	}
	return out
}

// PairedChanges computes the change series of both sides of pair and drops
// every index where either change is an outlier or not a finite number.
func PairedChanges(pair models.AlignedPair, t Thresholds) (inflow, price []float64, err error) {
	flowChanges := PercentChanges(pair.Flows.Values())
	priceChanges := PercentChanges(pair.Prices.Values())
	n := min(len(flowChanges), len(priceChanges))

	inflow = make([]float64, 0, n)
	price = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		fc, pc := flowChanges[i], priceChanges[i]
		if !finite(fc) || !finite(pc) {
			continue
		}
		if math.Abs(fc) >= t.InflowOutlier || math.Abs(pc) >= t.PriceOutlier {
			continue
		}
		inflow = append(inflow, fc)
		price = append(price, pc)
	}

	if len(inflow) < t.MinSamples {
		return inflow, price, fmt.Errorf("%w: %d of %d changes kept, need %d",
			ErrInsufficientSamples, len(inflow), n, t.MinSamples)
	}
	return inflow, price, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
