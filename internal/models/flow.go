package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FlowMetric names one column of the ETF flow table.
type FlowMetric string

const (
	MetricInflow    FlowMetric = "inflow"
	MetricVolume    FlowMetric = "volume"
	MetricAssets    FlowMetric = "assets"
	MetricCumInflow FlowMetric = "cum_inflow"
	MetricBTCPrice  FlowMetric = "btc_price"
)

// Valid reports whether m is a known metric.
func (m FlowMetric) Valid() bool {
	switch m {
	case MetricInflow, MetricVolume, MetricAssets, MetricCumInflow, MetricBTCPrice:
		return true
	}
	return false
}

// FlowRecord is one trading day of aggregated spot BTC ETF activity.
type FlowRecord struct {
	Date             time.Time       `json:"date"`
	TotalNetInflow   decimal.Decimal `json:"total_net_inflow"`
	TotalValueTraded decimal.Decimal `json:"total_value_traded"`
	TotalNetAssets   decimal.Decimal `json:"total_net_assets"`
	CumNetInflow     decimal.Decimal `json:"cum_net_inflow"`
	BTCPrice         decimal.Decimal `json:"btc_price"`
}

// Metric returns the value of the given column.
func (r FlowRecord) Metric(m FlowMetric) decimal.Decimal {
	switch m {
	case MetricVolume:
		return r.TotalValueTraded
	case MetricAssets:
		return r.TotalNetAssets
	case MetricCumInflow:
		return r.CumNetInflow
	case MetricBTCPrice:
		return r.BTCPrice
	default:
		return r.TotalNetInflow
	}
}

// FlowRecords is a table of flow rows in no guaranteed order.
type FlowRecords []FlowRecord

// SortAsc returns a copy ordered oldest first.
func (rs FlowRecords) SortAsc() FlowRecords {
	out := make(FlowRecords, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SortDesc returns a copy ordered most recent first.
func (rs FlowRecords) SortDesc() FlowRecords {
	out := make(FlowRecords, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Series projects one metric into a chronological series. Rows without a
// BTC price are skipped when projecting MetricBTCPrice.
func (rs FlowRecords) Series(m FlowMetric) Series {
	out := make(Series, 0, len(rs))
	for _, r := range rs {
		v := r.Metric(m)
		if m == MetricBTCPrice && !v.IsPositive() {
			continue
		}
		out = append(out, DailyRecord{Date: r.Date, Value: v.InexactFloat64()})
	}
	return out.Sort()
}

// DateSet returns the set of day keys covered by the table.
func (rs FlowRecords) DateSet() map[string]struct{} {
	set := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		set[DateKey(r.Date)] = struct{}{}
	}
	return set
}

// Span returns the earliest and latest dates in the table.
func (rs FlowRecords) Span() (first, last time.Time, ok bool) {
	if len(rs) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = rs[0].Date, rs[0].Date
	for _, r := range rs[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return Day(first), Day(last), true
}

// DataSource records where a dataset came from.
type DataSource string

const (
	SourceAPI      DataSource = "api"
	SourceCache    DataSource = "cache"
	SourceDemo     DataSource = "demo"
	SourceFallback DataSource = "fallback"
)

// FlowDataset is a loaded flow table together with its provenance.
type FlowDataset struct {
	Records   FlowRecords `json:"records"`
	Source    DataSource  `json:"source"`
	Message   string      `json:"message"`
	FetchedAt time.Time   `json:"fetched_at"`
}
