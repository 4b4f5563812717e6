package correlation

import "github.com/irfndi/etfflow-go/internal/models"

// FallbackLookback is the number of most recent flows the estimator averages.
const FallbackLookback = 10

// EstimateFromFlowTrend guesses a coefficient from the recent average inflow
// when a measured correlation is unavailable. It is a heuristic bucket, never
// negative, and 0 for an empty series.
func EstimateFromFlowTrend(flows models.Series) float64 {
	if len(flows) == 0 {
		return 0
	}

	recent := flows.Sort().Tail(FallbackLookback)
	var sum float64
	for _, r := range recent {
		sum += r.Value
	}
	mean := sum / float64(len(recent))

	switch {
	case mean > 100_000_000:
		return 0.65
	case mean > 0:
		return 0.45
	case mean > -50_000_000:
		return 0.25
	default:
		return 0.15
	}
}
