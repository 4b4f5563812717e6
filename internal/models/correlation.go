package models

import "time"

// Strength labels the magnitude of a correlation coefficient.
type Strength string

const (
	StrengthVeryWeak   Strength = "very-weak"
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very-strong"
)

// Interpretation returns a short human reading of the strength label.
func (s Strength) Interpretation() string {
	switch s {
	case StrengthVeryStrong:
		return "ETF flows and BTC price move in lockstep"
	case StrengthStrong:
		return "significant relationship between ETF flows and BTC price"
	case StrengthModerate:
		return "partial relationship between ETF flows and BTC price"
	case StrengthWeak:
		return "little relationship between ETF flows and BTC price"
	default:
		return "ETF flows and BTC price move independently"
	}
}

// Direction is the sign of a correlation coefficient.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Method records how a coefficient was obtained.
type Method string

const (
	MethodPearson   Method = "pearson"
	MethodEstimated Method = "estimated"
	MethodNone      Method = "none"
)

// CorrelationResult is the outcome of one pipeline run. It is never mutated
// after being returned.
type CorrelationResult struct {
	Coefficient   float64      `json:"coefficient"`
	Strength      Strength     `json:"strength"`
	Direction     Direction    `json:"direction"`
	Method        Method       `json:"method"`
	Samples       int          `json:"samples"`
	Reason        string       `json:"reason,omitempty"`
	PriceSource   string       `json:"price_source,omitempty"`
	Pair          *AlignedPair `json:"pair,omitempty"`
	InflowChanges []float64    `json:"inflow_changes,omitempty"`
	PriceChanges  []float64    `json:"price_changes,omitempty"`
	CalculatedAt  time.Time    `json:"calculated_at"`
}
