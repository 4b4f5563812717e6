package correlation

import (
	"math"

	"github.com/irfndi/etfflow-go/internal/models"
)

// Pearson returns the sample correlation coefficient of x and y over their
// common prefix. Degenerate input (fewer than two points, zero variance or a
// non-finite result) yields 0. The result always lies in [-1, 1].
func Pearson(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n < 2 {
		return 0
	}
	x, y = x[:n], y[:n]
	if constant(x) || constant(y) {
		return 0
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
		sumYY += y[i] * y[i]
	}

	fn := float64(n)
	numerator := fn*sumXY - sumX*sumY
	denominator := math.Sqrt((fn*sumXX - sumX*sumX) * (fn*sumYY - sumY*sumY))
	if denominator == 0 || !finite(denominator) {
		return 0
	}

	r := numerator / denominator
	if !finite(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// Classify labels r by magnitude and sign.
func Classify(r float64, b Breakpoints) (models.Strength, models.Direction) {
	direction := models.DirectionNegative
	if r > 0 {
		direction = models.DirectionPositive
	}

	abs := math.Abs(r)
	switch {
	case abs > b.VeryStrong:
		return models.StrengthVeryStrong, direction
	case abs > b.Strong:
		return models.StrengthStrong, direction
	case abs > b.Moderate:
		return models.StrengthModerate, direction
	case abs > b.Weak:
		return models.StrengthWeak, direction
	default:
		return models.StrengthVeryWeak, direction
	}
}
