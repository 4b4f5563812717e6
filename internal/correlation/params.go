// Package correlation aligns an ETF inflow series with a BTC price series
// and measures how their day-over-day changes co-move.
package correlation

import "errors"

var (
	// ErrInsufficientData is returned when too few dates are shared by both series.
	ErrInsufficientData = errors.New("insufficient paired data")
	// ErrInsufficientSamples is returned when outlier screening leaves too few change pairs.
	ErrInsufficientSamples = errors.New("insufficient samples after outlier screening")
)

// Thresholds controls outlier screening of paired change series.
type Thresholds struct {
	// InflowOutlier drops a pair whose inflow change magnitude, in percent, reaches it.
	InflowOutlier float64
	// PriceOutlier drops a pair whose price change magnitude, in percent, reaches it.
	PriceOutlier float64
	MinSamples   int
}

// Breakpoints are the exclusive lower bounds of each strength label on |r|.
type Breakpoints struct {
	VeryStrong float64
	Strong     float64
	Moderate   float64
	Weak       float64
}

// Params configures an Engine.
type Params struct {
	Window          int
	MinPairedPoints int
	Thresholds      Thresholds
	Breakpoints     Breakpoints
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		Window:          30,
		MinPairedPoints: 10,
		Thresholds: Thresholds{
			InflowOutlier: 500,
			PriceOutlier:  50,
			MinSamples:    5,
		},
		Breakpoints: Breakpoints{
			VeryStrong: 0.7,
			Strong:     0.5,
			Moderate:   0.3,
			Weak:       0.1,
		},
	}
}
