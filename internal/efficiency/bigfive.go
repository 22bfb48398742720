package efficiency

import (
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
)

// HistoricalWindows are the CAGR spans, in years, of the Big-Five rates.
var HistoricalWindows = []int{10, 7, 5, 3}

// lookback is the history a year needs before any rate is reported.
const lookback = 10

// Sources supply the four growth metrics for the historical rates.
type Sources struct {
	Sales  growth.Formula
	EPS    growth.Formula
	Equity growth.Formula
	FCF    growth.Formula
}

// DefaultSources reads the stock concepts. Free cash flow requires both
// operating cash flow and capital expenditures here.
func DefaultSources() Sources {
	return Sources{
		Sales:  growth.KeyValue(facts.KeyRevenue),
		EPS:    growth.KeyValue(facts.KeyEPSDiluted),
		Equity: growth.KeyValue(facts.KeyStockholdersEquity),
		FCF:    growth.StrictFCFValue(facts.KeyOperatingCashFlow, facts.KeyCapitalExpenditures),
	}
}

// MetricRates holds one metric's window CAGRs and their average.
type MetricRates struct {
	Windows map[int]float64 `json:"windows"`
	Average *float64        `json:"average,omitempty"`
}

// HistoricalRates is the Big-Five bundle for one year.
type HistoricalRates struct {
	Year            int         `json:"year"`
	Sales           MetricRates `json:"sales"`
	EPS             MetricRates `json:"eps"`
	Equity          MetricRates `json:"equity"`
	FCF             MetricRates `json:"fcf"`
	EstimatedGrowth *float64    `json:"estimated_growth,omitempty"`
}

func (s Sources) each() []growth.Formula {
	return []growth.Formula{s.Sales, s.EPS, s.Equity, s.FCF}
}

func windowRates(value growth.Formula, cf *facts.CompanyFacts, year int) MetricRates {
	rates := MetricRates{Windows: make(map[int]float64)}
	if value == nil {
		return rates
	}
	end, ok := value(cf, year)
	if !ok {
		return rates
	}

	var found []float64
	for _, w := range HistoricalWindows {
		start, ok := value(cf, year-w)
		if !ok {
			continue
		}
		if g, ok := growth.CAGR(start, end, w); ok {
			rates.Windows[w] = g
			found = append(found, g)
		}
	}
	if avg, ok := growth.Mean(found); ok {
		rates.Average = &avg
	}
	return rates
}

// HistoricalRates computes the Big-Five bundle for year. The bundle is
// absent unless some metric has a value exactly ten years earlier. One such
// metric is enough, so the others may lack a 10-year window or any window.
func (c *Calculator) HistoricalRates(cf *facts.CompanyFacts, year int) (HistoricalRates, bool) {
	if cf == nil {
		return HistoricalRates{}, false
	}

	anchored := false
	for _, value := range c.sources.each() {
		if value == nil {
			continue
		}
		if _, ok := value(cf, year-lookback); ok {
			anchored = true
			break
		}
	}
	if !anchored {
		return HistoricalRates{}, false
	}

	hr := HistoricalRates{
		Year:   year,
		Sales:  windowRates(c.sources.Sales, cf, year),
		EPS:    windowRates(c.sources.EPS, cf, year),
		Equity: windowRates(c.sources.Equity, cf, year),
		FCF:    windowRates(c.sources.FCF, cf, year),
	}

	var averages []float64
	for _, m := range []MetricRates{hr.Sales, hr.EPS, hr.Equity, hr.FCF} {
		if m.Average != nil {
			averages = append(averages, *m.Average)
		}
	}
	if est, ok := growth.Mean(averages); ok {
		hr.EstimatedGrowth = &est
	}
	return hr, true
}

// HistoricalRatesByYear computes the bundle for every ROIC year that has
// one.
func (c *Calculator) HistoricalRatesByYear(companyID int64, cf *facts.CompanyFacts) map[int]HistoricalRates {
	out := make(map[int]HistoricalRates)
	for _, y := range c.Years(companyID, cf) {
		if hr, ok := c.HistoricalRates(cf, y); ok {
			out[y] = hr
		}
	}
	return out
}

// EstimatedGrowth returns the estimated future growth rate for year.
func (c *Calculator) EstimatedGrowth(cf *facts.CompanyFacts, year int) (float64, bool) {
	hr, ok := c.HistoricalRates(cf, year)
	if !ok || hr.EstimatedGrowth == nil {
		return 0, false
	}
	return *hr.EstimatedGrowth, true
}
