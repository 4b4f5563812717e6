package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/models"
)

func TestCorrelationParams(t *testing.T) {
	params := CorrelationParams(config.CorrelationConfig{
		Window:          45,
		MinPairedPoints: 12,
		MinSamples:      6,
		InflowOutlier:   400,
		PriceOutlier:    40,
		VeryStrong:      0.8,
		Strong:          0.6,
		Moderate:        0.4,
		Weak:            0.2,
	})

	assert.Equal(t, 45, params.Window)
	assert.Equal(t, 12, params.MinPairedPoints)
	assert.Equal(t, 6, params.Thresholds.MinSamples)
	assert.Equal(t, 400.0, params.Thresholds.InflowOutlier)
	assert.Equal(t, 40.0, params.Thresholds.PriceOutlier)
	assert.Equal(t, 0.8, params.Breakpoints.VeryStrong)
	assert.Equal(t, 0.2, params.Breakpoints.Weak)
}

func TestCorrelationService_LockstepPrices(t *testing.T) {
	records := makeRecords(40, func(i int) float64 {
		return 100_000_000 + 10_000_000*math.Sin(float64(i))
	})
	prices := NewPriceService(logging.Discard(), nil, NewEmbeddedPriceSource())
	svc := NewCorrelationService(correlation.NewEngine(correlation.DefaultParams()), prices, logging.Discard(), nil)

	result := svc.Compute(context.Background(), records)

	assert.Equal(t, models.MethodPearson, result.Method)
	assert.InDelta(t, 1.0, result.Coefficient, 1e-6)
	assert.Equal(t, models.StrengthVeryStrong, result.Strength)
	assert.Equal(t, models.DirectionPositive, result.Direction)
	assert.Equal(t, "embedded", result.PriceSource)
	assert.False(t, result.CalculatedAt.IsZero())
}

func TestCorrelationService_NoPricesEstimates(t *testing.T) {
	records := makeRecords(20, constantInflow(200_000_000))
	prices := NewPriceService(logging.Discard(), nil, &stubPriceSource{name: "down", err: errors.New("down")})
	svc := NewCorrelationService(correlation.NewEngine(correlation.DefaultParams()), prices, logging.Discard(), nil)

	result := svc.Compute(context.Background(), records)

	assert.Equal(t, models.MethodEstimated, result.Method)
	assert.Equal(t, PriceSourceNone, result.PriceSource)
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, 0.65, result.Coefficient)
}

func TestCorrelationService_TooFewFlows(t *testing.T) {
	prices := NewPriceService(logging.Discard(), nil, NewEmbeddedPriceSource())
	svc := NewCorrelationService(correlation.NewEngine(correlation.DefaultParams()), prices, logging.Discard(), nil)

	result := svc.Compute(context.Background(), makeRecords(1, constantInflow(1)))

	assert.Equal(t, models.MethodNone, result.Method)
	assert.Equal(t, 0.0, result.Coefficient)
}
