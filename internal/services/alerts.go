package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/utils"
)

// Alert types.
const (
	AlertLargeInflow   = "large_inflow"
	AlertLargeOutflow  = "large_outflow"
	AlertVolumeAnomaly = "volume_anomaly"
	AlertThresholdRule = "threshold_rule"
)

// AlertLevel is the display severity of an alert.
type AlertLevel string

const (
	LevelSuccess AlertLevel = "success"
	LevelDanger  AlertLevel = "danger"
	LevelInfo    AlertLevel = "info"
	LevelWarning AlertLevel = "warning"
)

// Alert is a notable condition in the flow table.
type Alert struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Level     AlertLevel `json:"level"`
	Priority  string     `json:"priority"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Date      time.Time  `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
}

// RuleCondition is the comparison a threshold rule applies.
type RuleCondition string

const (
	ConditionAbove RuleCondition = "above"
	ConditionBelow RuleCondition = "below"
)

// AlertRule fires once when the latest value of Metric crosses Threshold.
type AlertRule struct {
	ID        string            `json:"id"`
	Metric    models.FlowMetric `json:"metric"`
	Threshold decimal.Decimal   `json:"threshold"`
	Condition RuleCondition     `json:"condition"`
	Triggered bool              `json:"triggered"`
	CreatedAt time.Time         `json:"created_at"`
}

// AlertService raises flow alerts and evaluates user threshold rules. Rules
// are guarded by a mutex; everything else is stateless.
type AlertService struct {
	cfg      config.AlertsConfig
	notifier Notifier
	logger   *logrus.Entry
	metrics  *metrics.Registry
	now      func() time.Time

	mu    sync.Mutex
	rules map[string]*AlertRule
}

// NewAlertService creates an alert service. A nil notifier drops dispatches.
func NewAlertService(cfg config.AlertsConfig, notifier Notifier, logger logrus.FieldLogger, registry *metrics.Registry) *AlertService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &AlertService{
		cfg:      cfg,
		notifier: notifier,
		logger:   logger.WithField("service", "alerts"),
		metrics:  registry,
		now:      time.Now,
		rules:    make(map[string]*AlertRule),
	}
}

// Generate compares the latest row with the one before it for large
// inflows, large outflows and abnormal volume changes. A table with fewer
// than two rows raises nothing.
func (s *AlertService) Generate(records models.FlowRecords) []Alert {
	alerts := []Alert{}
	if len(records) < 2 {
		return alerts
	}

	desc := records.SortDesc()
	latest, previous := desc[0], desc[1]
	inflow := latest.TotalNetInflow.InexactFloat64()

	if inflow > s.cfg.LargeInflow {
		alerts = append(alerts, s.newAlert(AlertLargeInflow, LevelSuccess, "high", "Large Inflow",
			fmt.Sprintf("Significant inflow of %s", utils.FormatCurrency(latest.TotalNetInflow)), latest.Date))
	} else if inflow < s.cfg.LargeOutflow {
		alerts = append(alerts, s.newAlert(AlertLargeOutflow, LevelDanger, "high", "Large Outflow",
			fmt.Sprintf("Significant outflow of %s", utils.FormatCurrency(latest.TotalNetInflow.Abs())), latest.Date))
	}

	change := correlation.PercentChange(previous.TotalValueTraded.InexactFloat64(), latest.TotalValueTraded.InexactFloat64())
	if s.cfg.VolumeChangePct > 0 && abs(change) > s.cfg.VolumeChangePct {
		alerts = append(alerts, s.newAlert(AlertVolumeAnomaly, LevelInfo, "medium", "Abnormal Volume",
			fmt.Sprintf("Volume changed %s day over day", utils.FormatPercent(change)), latest.Date))
	}

	for _, a := range alerts {
		s.metrics.ObserveAlert(a.Type)
	}
	return alerts
}

// AddRule registers a threshold rule and returns its ID.
func (s *AlertService) AddRule(metric models.FlowMetric, threshold decimal.Decimal, condition RuleCondition) (string, error) {
	if !metric.Valid() {
		return "", utils.NewValidationErrorf("unknown metric %q", metric)
	}
	if condition != ConditionAbove && condition != ConditionBelow {
		return "", utils.NewValidationErrorf("condition must be %q or %q", ConditionAbove, ConditionBelow)
	}

	rule := &AlertRule{
		ID:        uuid.NewString(),
		Metric:    metric,
		Threshold: threshold,
		Condition: condition,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.rules[rule.ID] = rule
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"metric":    metric,
		"condition": condition,
		"threshold": threshold.String(),
	}).Info("Alert rule added")
	return rule.ID, nil
}

// RemoveRule deletes a rule and reports whether it existed.
func (s *AlertService) RemoveRule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return false
	}
	delete(s.rules, id)
	return true
}

// Rules returns a snapshot of every rule ordered by creation time.
func (s *AlertService) Rules() []AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Check evaluates untriggered rules against the latest row. A rule fires at
// most once.
func (s *AlertService) Check(records models.FlowRecords) []Alert {
	alerts := []Alert{}
	if len(records) == 0 {
		return alerts
	}
	latest := records.SortDesc()[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range s.rules {
		if rule.Triggered {
			continue
		}
		value := latest.Metric(rule.Metric)
		crossed := (rule.Condition == ConditionAbove && value.GreaterThan(rule.Threshold)) ||
			(rule.Condition == ConditionBelow && value.LessThan(rule.Threshold))
		if !crossed {
			continue
		}
		rule.Triggered = true
		alerts = append(alerts, s.newAlert(AlertThresholdRule, LevelWarning, "medium", MetricLabel(rule.Metric)+" Threshold",
			fmt.Sprintf("%s is %s %s (now %s)", MetricLabel(rule.Metric), rule.Condition,
				utils.FormatCurrency(rule.Threshold), utils.FormatCurrency(value)), latest.Date))
		s.metrics.ObserveAlert(AlertThresholdRule)
	}
	return alerts
}

// Dispatch sends every alert to the notifier and joins the failures.
func (s *AlertService) Dispatch(ctx context.Context, alerts []Alert) error {
	var errs []error
	for _, a := range alerts {
		if err := s.notifier.Notify(ctx, a); err != nil {
			s.logger.WithError(err).WithField("alert_id", a.ID).Warn("Failed to dispatch alert")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *AlertService) newAlert(kind string, level AlertLevel, priority, title, message string, date time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      kind,
		Level:     level,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Date:      date,
		CreatedAt: s.now(),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
