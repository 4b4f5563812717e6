// Package synth produces deterministic synthetic series used when no
// upstream data is available.
package synth

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/irfndi/etfflow-go/internal/models"
)

// WalkParams shapes a multiplicative random walk.
type WalkParams struct {
	Base       float64
	Volatility float64
	// WeekendDamping scales the random move on Saturdays and Sundays.
	// Zero disables damping.
	WeekendDamping float64
	TrendAmplitude float64
	TrendPeriod    float64
	Min            float64
	Max            float64
}

// PriceWalkParams returns the BTC price walk used for synthetic prices.
func PriceWalkParams() WalkParams {
	return WalkParams{
		Base:           43000,
		Volatility:     0.04,
		WeekendDamping: 0.5,
		TrendAmplitude: 0.0002,
		TrendPeriod:    7,
		Min:            20000,
		Max:            150000,
	}
}

// Synthesizer owns a seeded random source. It is not safe for concurrent use.
type Synthesizer struct {
	rng *rand.Rand
}

// New returns a synthesizer whose output is fully determined by seed.
func New(seed uint64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom returns a synthesizer seeded from the wall clock.
func NewRandom() *Synthesizer {
	return New(uint64(time.Now().UnixNano()))
}

// uniform returns a value in [-1, 1).
func (s *Synthesizer) uniform() float64 {
	return s.rng.Float64()*2 - 1
}

// Walk generates n daily values ending at end, walking backward one day at
// a time, and returns them in ascending date order.
func (s *Synthesizer) Walk(n int, end time.Time, p WalkParams) models.Series {
	if n <= 0 {
		return models.Series{}
	}

	end = models.Day(end)
	value := clamp(p.Base, p.Min, p.Max)
	out := make(models.Series, 0, n)

	for i := 0; i < n; i++ {
		date := end.AddDate(0, 0, -i)

		move := s.uniform() * p.Volatility
		if p.WeekendDamping > 0 && isWeekend(date) {
			move *= p.WeekendDamping
		}
		var trend float64
		if p.TrendPeriod != 0 {
			trend = p.TrendAmplitude * math.Sin(float64(i)/p.TrendPeriod)
		}

		value = clamp(value*(1+move+trend), p.Min, p.Max)
		out = append(out, models.DailyRecord{Date: date, Value: value})
	}

	slices.Reverse(out)
	return out
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func clamp(v, lo, hi float64) float64 {
	if hi > lo {
		return math.Min(hi, math.Max(lo, v))
	}
	return v
}
