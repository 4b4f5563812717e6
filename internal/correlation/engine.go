package correlation

import "github.com/irfndi/etfflow-go/internal/models"

// Engine runs the align, transform and correlate pipeline. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine returns an engine using params.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine tuning.
func (e *Engine) Params() Params {
	return e.params
}

// Analyze correlates inflow changes with price changes. It never fails:
// fewer than two flows yields a zero coefficient, and insufficient paired
// data or samples fall back to EstimateFromFlowTrend. CalculatedAt and
// PriceSource are left for the caller to stamp.
func (e *Engine) Analyze(flows, prices models.Series) models.CorrelationResult {
	if flows.Len() < 2 {
		strength, direction := Classify(0, e.params.Breakpoints)
		return models.CorrelationResult{
			Strength:  strength,
			Direction: direction,
			Method:    models.MethodNone,
			Reason:    "fewer than two flow records",
		}
	}

	pair, err := Align(flows, prices, e.params.Window, e.params.MinPairedPoints)
	if err != nil {
		return e.estimate(flows, nil, err)
	}

	inflow, price, err := PairedChanges(pair, e.params.Thresholds)
	if err != nil {
		return e.estimate(flows, &pair, err)
	}

	r := Pearson(inflow, price)
	strength, direction := Classify(r, e.params.Breakpoints)
	return models.CorrelationResult{
		Coefficient:   r,
		Strength:      strength,
		Direction:     direction,
		Method:        models.MethodPearson,
		Samples:       len(inflow),
		Pair:          &pair,
		InflowChanges: inflow,
		PriceChanges:  price,
	}
}

func (e *Engine) estimate(flows models.Series, pair *models.AlignedPair, cause error) models.CorrelationResult {
	r := EstimateFromFlowTrend(flows)
	strength, direction := Classify(r, e.params.Breakpoints)
	return models.CorrelationResult{
		Coefficient: r,
		Strength:    strength,
		Direction:   direction,
		Method:      models.MethodEstimated,
		Reason:      cause.Error(),
		Pair:        pair,
	}
}
