package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Setting is one row of the settings table. Watch namespaces and the
// migration flag are stored here as JSON text.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Company identifies an SEC filer.
type Company struct {
	CIK    int64  `json:"cik"`
	Ticker string `json:"ticker,omitempty"`
	Name   string `json:"name"`
}

// YearValue is one fiscal-year figure in an API response.
type YearValue struct {
	Year  int             `json:"year"`
	Value decimal.Decimal `json:"value"`
}

// PeriodValue is one trailing-period average in an API response.
type PeriodValue struct {
	Period int             `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

// MetricReport is the response body of the per-metric endpoint.
type MetricReport struct {
	Company    Company       `json:"company"`
	Metric     string        `json:"metric"`
	ReadyYears []int         `json:"ready_years"`
	Values     []YearValue   `json:"values"`
	Growth     []YearValue   `json:"growth"`
	Averages   []PeriodValue `json:"averages"`
}

// WatchReport is the response body of the watch endpoints.
type WatchReport struct {
	Company    Company     `json:"company"`
	Metric     string      `json:"metric"`
	Namespace  string      `json:"namespace"`
	Facts      []WatchFact `json:"facts"`
	ReadyYears []int       `json:"ready_years"`
}

// WatchFact is one tracked (key, year) pair.
type WatchFact struct {
	Key  string `json:"key"`
	Year int    `json:"year"`
}
