package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/utils"
)

// ErrNoData is returned when an analysis needs at least one flow row.
var ErrNoData = errors.New("no flow data")

// Trend labels.
const (
	TrendStrongUp     = "strong_uptrend"
	TrendUp           = "uptrend"
	TrendSideways     = "sideways"
	TrendDown         = "downtrend"
	TrendStrongDown   = "strong_downtrend"
	TrendInsufficient = "insufficient_data"
)

const (
	MovementInflow  = "inflow"
	MovementOutflow = "outflow"
)

const defaultOutlierScore = 2.0

var statisticMetrics = []models.FlowMetric{
	models.MetricInflow,
	models.MetricVolume,
	models.MetricAssets,
	models.MetricCumInflow,
}

// title upper-cases the first letter of each word. A Caser is stateful, so
// one is built per call.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// MetricLabel returns the display name of a metric.
func MetricLabel(m models.FlowMetric) string {
	return title(strings.ReplaceAll(string(m), "_", " "))
}

// MetricStat is the latest value of one metric and its change from the day before.
type MetricStat struct {
	Metric    models.FlowMetric `json:"metric"`
	Label     string            `json:"label"`
	Value     decimal.Decimal   `json:"value"`
	Formatted string            `json:"formatted"`
	ChangePct float64           `json:"change_pct"`
	Change    string            `json:"change"`
	Positive  bool              `json:"positive"`
}

// Statistics summarizes the most recent trading day.
type Statistics struct {
	Date    time.Time    `json:"date"`
	Records int          `json:"records"`
	Metrics []MetricStat `json:"metrics"`
}

// TrendResult compares the mean inflow of the latest window with the one before.
type TrendResult struct {
	Trend        string  `json:"trend"`
	Period       int     `json:"period"`
	ChangePct    float64 `json:"change_pct"`
	RecentMean   float64 `json:"recent_mean"`
	PreviousMean float64 `json:"previous_mean"`
}

// Outlier is a flow row whose inflow deviates strongly from the mean.
type Outlier struct {
	Record models.FlowRecord `json:"record"`
	ZScore float64           `json:"z_score"`
}

// Movement is a large day-over-day change in net inflow.
type Movement struct {
	Date      time.Time       `json:"date"`
	Inflow    decimal.Decimal `json:"inflow"`
	Change    decimal.Decimal `json:"change"`
	Formatted string          `json:"formatted"`
	Type      string          `json:"type"`
}

// Analysis bundles the derived views of the flow table.
type Analysis struct {
	MovingAverage []models.DailyRecord `json:"moving_average"`
	Trend         TrendResult          `json:"trend"`
	Volatility    float64              `json:"volatility"`
	Outliers      []Outlier            `json:"outliers"`
}

// AnalyticsService derives statistics and table views from flow rows.
// Inputs may be in any order.
type AnalyticsService struct {
	maPeriod        int
	trendPeriod     int
	significantMove decimal.Decimal
	maxMovements    int
	outlierScore    float64
}

// NewAnalyticsService creates an analytics service.
func NewAnalyticsService(dashboard config.DashboardConfig, alerts config.AlertsConfig) *AnalyticsService {
	s := &AnalyticsService{
		maPeriod:        dashboard.MovingAverage,
		trendPeriod:     dashboard.TrendPeriod,
		significantMove: decimal.NewFromFloat(alerts.SignificantMove),
		maxMovements:    alerts.MaxMovements,
		outlierScore:    alerts.OutlierThreshold,
	}
	if s.maPeriod <= 0 {
		s.maPeriod = 7
	}
	if s.trendPeriod <= 0 {
		s.trendPeriod = 14
	}
	if !s.significantMove.IsPositive() {
		s.significantMove = decimal.NewFromInt(100_000_000)
	}
	if s.maxMovements <= 0 {
		s.maxMovements = 10
	}
	if s.outlierScore <= 0 {
		s.outlierScore = defaultOutlierScore
	}
	return s
}

// TrendPeriod is the default window used by Analyze.
func (s *AnalyticsService) TrendPeriod() int {
	return s.trendPeriod
}

// Statistics reports the latest value of each headline metric and its
// percentage change from the previous row.
func (s *AnalyticsService) Statistics(records models.FlowRecords) (*Statistics, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	desc := records.SortDesc()
	latest := desc[0]
	previous := latest
	if len(desc) > 1 {
		previous = desc[1]
	}

	stats := &Statistics{Date: latest.Date, Records: len(records)}
	for _, m := range statisticMetrics {
		value := latest.Metric(m)
		change := correlation.PercentChange(previous.Metric(m).InexactFloat64(), value.InexactFloat64())
		stats.Metrics = append(stats.Metrics, MetricStat{
			Metric:    m,
			Label:     MetricLabel(m),
			Value:     value,
			Formatted: utils.FormatCurrency(value),
			ChangePct: change,
			Change:    utils.FormatPercent(change),
			Positive:  change >= 0,
		})
	}
	return stats, nil
}

// MovingAverage returns the simple moving average of net inflow, one point
// per day once the window is full.
func (s *AnalyticsService) MovingAverage(records models.FlowRecords, period int) ([]models.DailyRecord, error) {
	if period <= 0 {
		return nil, utils.NewValidationErrorf("moving average period must be positive, got %d", period)
	}
	series := records.Series(models.MetricInflow)
	if series.Len() < period {
		return nil, utils.NewValidationErrorf("moving average period %d exceeds %d records", period, series.Len())
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(series.Values())))

	offset := series.Len() - len(values)
	out := make([]models.DailyRecord, len(values))
	for i, v := range values {
		out[i] = models.DailyRecord{Date: series[offset+i].Date, Value: v}
	}
	return out, nil
}

// Trend compares the mean net inflow of the latest period rows with the
// period rows before them.
func (s *AnalyticsService) Trend(records models.FlowRecords, period int) TrendResult {
	result := TrendResult{Trend: TrendInsufficient, Period: period}
	if period <= 0 || len(records) < period*2 {
		return result
	}

	desc := records.SortDesc()
	result.RecentMean = meanInflow(desc[:period])
	result.PreviousMean = meanInflow(desc[period : period*2])
	result.ChangePct = correlation.PercentChange(result.PreviousMean, result.RecentMean)

	switch {
	case result.ChangePct > 10:
		result.Trend = TrendStrongUp
	case result.ChangePct > 5:
		result.Trend = TrendUp
	case result.ChangePct < -10:
		result.Trend = TrendStrongDown
	case result.ChangePct < -5:
		result.Trend = TrendDown
	default:
		result.Trend = TrendSideways
	}
	return result
}

// Volatility is the population standard deviation of net inflow over the
// latest period rows, or 0 when there are fewer rows than period.
func (s *AnalyticsService) Volatility(records models.FlowRecords, period int) float64 {
	if period <= 0 || len(records) < period {
		return 0
	}
	_, std := meanStd(inflows(records.SortDesc()[:period]))
	return std
}

// Outliers returns rows whose inflow z-score magnitude exceeds threshold,
// most recent first.
func (s *AnalyticsService) Outliers(records models.FlowRecords, threshold float64) []Outlier {
	if len(records) == 0 {
		return []Outlier{}
	}
	if threshold <= 0 {
		threshold = s.outlierScore
	}

	desc := records.SortDesc()
	mean, std := meanStd(inflows(desc))
	out := []Outlier{}
	if std == 0 {
		return out
	}
	for _, r := range desc {
		z := (r.TotalNetInflow.InexactFloat64() - mean) / std
		if math.Abs(z) > threshold {
			out = append(out, Outlier{Record: r, ZScore: z})
		}
	}
	return out
}

// SignificantMovements lists day-over-day inflow changes larger than the
// configured threshold, most recent first, capped at the configured limit.
func (s *AnalyticsService) SignificantMovements(records models.FlowRecords) []Movement {
	asc := records.SortAsc()
	out := []Movement{}
	for i := len(asc) - 1; i > 0 && len(out) < s.maxMovements; i-- {
		cur, prev := asc[i].TotalNetInflow, asc[i-1].TotalNetInflow
		change := cur.Sub(prev)
		if change.Abs().LessThanOrEqual(s.significantMove) {
			continue
		}
		kind := MovementOutflow
		if change.IsPositive() {
			kind = MovementInflow
		}
		out = append(out, Movement{
			Date:      asc[i].Date,
			Inflow:    cur,
			Change:    change,
			Formatted: utils.FormatCurrency(change),
			Type:      kind,
		})
	}
	return out
}

// Filter keeps rows whose rendered table row contains term, ignoring case.
// An empty term keeps everything.
func (s *AnalyticsService) Filter(records models.FlowRecords, term string) models.FlowRecords {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	out := models.FlowRecords{}
	for _, r := range records {
		if strings.Contains(strings.ToLower(RenderRow(r)), term) {
			out = append(out, r)
		}
	}
	return out
}

// Analyze computes every derived view with the configured periods.
func (s *AnalyticsService) Analyze(records models.FlowRecords, period int) Analysis {
	if period <= 0 {
		period = s.trendPeriod
	}
	ma, err := s.MovingAverage(records, s.maPeriod)
	if err != nil {
		ma = []models.DailyRecord{}
	}
	return Analysis{
		MovingAverage: ma,
		Trend:         s.Trend(records, period),
		Volatility:    s.Volatility(records, period),
		Outliers:      s.Outliers(records, s.outlierScore),
	}
}

// RenderRow renders a flow row the way the table displays it.
func RenderRow(r models.FlowRecord) string {
	price := "-"
	if r.BTCPrice.IsPositive() {
		price = "$" + r.BTCPrice.StringFixed(0)
	}
	return strings.Join([]string{
		models.DateKey(r.Date),
		r.Date.Format("02/01/2006"),
		utils.FormatCurrency(r.TotalNetInflow),
		utils.FormatCurrency(r.TotalValueTraded),
		utils.FormatCurrency(r.TotalNetAssets),
		utils.FormatCurrency(r.CumNetInflow),
		price,
	}, " ")
}

func inflows(records models.FlowRecords) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.TotalNetInflow.InexactFloat64()
	}
	return out
}

func meanInflow(records models.FlowRecords) float64 {
	mean, _ := meanStd(inflows(records))
	return mean
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
