package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/utils"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, alert Alert) error {
	return m.Called(ctx, alert).Error(0)
}

func testAlertsConfig() config.AlertsConfig {
	return config.AlertsConfig{
		Enabled:         true,
		LargeInflow:     500_000_000,
		LargeOutflow:    -200_000_000,
		VolumeChangePct: 50,
	}
}

func TestAlertService_Generate(t *testing.T) {
	svc := NewAlertService(testAlertsConfig(), nil, logging.Discard(), nil)

	t.Run("empty", func(t *testing.T) {
		alerts := svc.Generate(nil)
		assert.NotNil(t, alerts)
		assert.Empty(t, alerts)
	})

	t.Run("large inflow", func(t *testing.T) {
		records := makeRecords(3, func(i int) float64 { return []float64{1, 2, 600_000_000}[i] })
		alerts := svc.Generate(records)
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertLargeInflow, alerts[0].Type)
		assert.Equal(t, LevelSuccess, alerts[0].Level)
		assert.Contains(t, alerts[0].Message, "$600.00M")
		assert.True(t, alerts[0].Date.Equal(testEnd))
		assert.NotEmpty(t, alerts[0].ID)
	})

	t.Run("large outflow", func(t *testing.T) {
		records := makeRecords(2, func(i int) float64 { return []float64{1, -300_000_000}[i] })
		alerts := svc.Generate(records.SortDesc())
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertLargeOutflow, alerts[0].Type)
		assert.Equal(t, LevelDanger, alerts[0].Level)
		assert.Contains(t, alerts[0].Message, "$300.00M")
	})

	t.Run("single row", func(t *testing.T) {
		assert.Empty(t, svc.Generate(makeRecords(1, constantInflow(600_000_000))))
	})

	t.Run("within limits", func(t *testing.T) {
		assert.Empty(t, svc.Generate(makeRecords(5, constantInflow(100_000_000))))
	})

	t.Run("volume anomaly", func(t *testing.T) {
		records := makeRecords(2, constantInflow(1))
		records[1].TotalValueTraded = records[0].TotalValueTraded.Mul(decimal.NewFromInt(3))
		alerts := svc.Generate(records)
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertVolumeAnomaly, alerts[0].Type)
		assert.Contains(t, alerts[0].Message, "+200.00%")
	})
}

func TestAlertService_AddRuleValidation(t *testing.T) {
	svc := NewAlertService(testAlertsConfig(), nil, logging.Discard(), nil)

	_, err := svc.AddRule("bogus", decimal.NewFromInt(1), ConditionAbove)
	assert.True(t, utils.IsValidationError(err))

	_, err = svc.AddRule(models.MetricInflow, decimal.NewFromInt(1), "sideways")
	assert.True(t, utils.IsValidationError(err))

	assert.Empty(t, svc.Rules())
}

func TestAlertService_RulesFireOnce(t *testing.T) {
	svc := NewAlertService(testAlertsConfig(), nil, logging.Discard(), nil)
	records := makeRecords(3, constantInflow(150_000_000))

	above, err := svc.AddRule(models.MetricInflow, decimal.NewFromInt(100_000_000), ConditionAbove)
	require.NoError(t, err)
	_, err = svc.AddRule(models.MetricBTCPrice, decimal.NewFromInt(10_000), ConditionBelow)
	require.NoError(t, err)

	alerts := svc.Check(records)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertThresholdRule, alerts[0].Type)
	assert.Equal(t, LevelWarning, alerts[0].Level)
	assert.Contains(t, alerts[0].Message, "above")

	assert.Empty(t, svc.Check(records))

	rules := svc.Rules()
	require.Len(t, rules, 2)
	for _, r := range rules {
		assert.Equal(t, r.ID == above, r.Triggered)
	}

	assert.True(t, svc.RemoveRule(above))
	assert.False(t, svc.RemoveRule(above))
	assert.Len(t, svc.Rules(), 1)
}

func TestAlertService_CheckEmpty(t *testing.T) {
	svc := NewAlertService(testAlertsConfig(), nil, logging.Discard(), nil)
	_, err := svc.AddRule(models.MetricInflow, decimal.Zero, ConditionAbove)
	require.NoError(t, err)
	assert.Empty(t, svc.Check(nil))
}

func TestAlertService_Dispatch(t *testing.T) {
	notifier := new(MockNotifier)
	svc := NewAlertService(testAlertsConfig(), notifier, logging.Discard(), nil)

	ok := svc.newAlert(AlertLargeInflow, LevelSuccess, "high", "Large Inflow", "ok", testEnd)
	bad := svc.newAlert(AlertLargeOutflow, LevelDanger, "high", "Large Outflow", "bad", testEnd)

	notifier.On("Notify", mock.Anything, ok).Return(nil).Once()
	notifier.On("Notify", mock.Anything, bad).Return(errors.New("telegram down")).Once()

	err := svc.Dispatch(context.Background(), []Alert{ok, bad})
	assert.ErrorContains(t, err, "telegram down")
	notifier.AssertExpectations(t)

	assert.NoError(t, svc.Dispatch(context.Background(), nil))
}
