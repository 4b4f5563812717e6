package models

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used for keys, CSV rows and API payloads.
const DateLayout = "2006-01-02"

// DailyRecord is a single value observed on a UTC calendar day.
type DailyRecord struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a chronological sequence of daily records with unique dates.
type Series []DailyRecord

// AlignedPair holds two series sharing exactly the same dates, index for index.
type AlignedPair struct {
	Dates  []time.Time `json:"dates"`
	Flows  Series      `json:"flows"`
	Prices Series      `json:"prices"`
}

// Len returns the number of paired dates.
func (p AlignedPair) Len() int {
	return len(p.Dates)
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey renders the UTC calendar day of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate accepts a plain calendar date or an RFC3339 timestamp and
// returns the UTC day it falls on.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return Day(t), nil
		}
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Len returns the number of records.
func (s Series) Len() int {
	return len(s)
}

// Sort returns a copy ordered by ascending date with dates normalized to UTC
// days. When a day occurs more than once the later record wins.
func (s Series) Sort() Series {
	byDay := make(map[string]DailyRecord, len(s))
	for _, r := range s {
		r.Date = Day(r.Date)
		byDay[DateKey(r.Date)] = r
	}
	out := make(Series, 0, len(byDay))
	for _, r := range byDay {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Dates returns the record dates in order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, r := range s {
		out[i] = r.Date
	}
	return out
}

// Values returns the record values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Value
	}
	return out
}

// DateSet returns the set of day keys present in the series.
func (s Series) DateSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for _, r := range s {
		set[DateKey(r.Date)] = struct{}{}
	}
	return set
}

// Tail returns the last n records (or all of them when n exceeds the length).
func (s Series) Tail(n int) Series {
	if n <= 0 {
		return Series{}
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
