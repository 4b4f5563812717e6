package synth

import (
	"math"
	"time"

	"github.com/irfndi/etfflow-go/internal/models"
)

const (
	estimateBase  = 45000.0
	estimateDecay = 1.001
	estimateMin   = 20000.0
	estimateMax   = 150000.0
)

// EstimatePrice returns a deterministic BTC price for date, decaying from a
// fixed base the further date lies before now.
func EstimatePrice(date, now time.Time) float64 {
	days := math.Floor(models.Day(now).Sub(models.Day(date)).Hours() / 24)
	if days < 0 {
		days = 0
	}

	longTerm := math.Pow(estimateDecay, days)
	seasonal := math.Sin(days/7)*0.05 + math.Cos(days/30)*0.03

	estimate := estimateBase / longTerm * (1 + seasonal)
	return math.Round(clamp(estimate, estimateMin, estimateMax))
}
