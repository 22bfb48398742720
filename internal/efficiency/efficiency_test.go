package efficiency

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const company int64 = 2000

func annual(year int, value float64) facts.DataPoint {
	return facts.DataPoint{
		FiscalYear: year,
		Value:      value,
		FilingType: facts.AnnualForm,
		FiledDate:  time.Date(year+1, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:  time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func ptr(v float64) *float64 { return &v }

func roicFacts(year int, oi, assets, cash, liabilities float64) *facts.CompanyFacts {
	cf := facts.New(company, "Capital Co")
	addROICYear(cf, year, oi, assets, cash, liabilities)
	return cf
}

func addROICYear(cf *facts.CompanyFacts, year int, oi, assets, cash, liabilities float64) {
	cf.Add("us-gaap", facts.KeyOperatingIncome, "USD", annual(year, oi))
	cf.Add("us-gaap", facts.KeyAssets, "USD", annual(year, assets))
	cf.Add("us-gaap", facts.KeyCash, "USD", annual(year, cash))
	cf.Add("us-gaap", facts.KeyLiabilities, "USD", annual(year, liabilities))
}

func TestEffectiveTaxRate(t *testing.T) {
	tests := []struct {
		name   string
		tax    *float64
		pretax *float64
		want   float64
	}{
		{name: "normal", tax: ptr(25), pretax: ptr(100), want: 0.25},
		{name: "clamped high", tax: ptr(80), pretax: ptr(100), want: MaxTaxRate},
		{name: "negative tax clamps to zero", tax: ptr(-10), pretax: ptr(100), want: 0},
		{name: "pretax loss", tax: ptr(5), pretax: ptr(-100), want: FallbackTaxRate},
		{name: "zero pretax", tax: ptr(5), pretax: ptr(0), want: FallbackTaxRate},
		{name: "missing tax", pretax: ptr(100), want: FallbackTaxRate},
		{name: "missing pretax", tax: ptr(25), want: FallbackTaxRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EffectiveTaxRate(tt.tax, tt.pretax), 1e-12)
		})
	}
}

func TestComputeROIC(t *testing.T) {
	b := Compute(Inputs{
		OperatingIncome:  100,
		Assets:           500,
		Cash:             50,
		Liabilities:      200,
		IncomeTaxExpense: ptr(25),
		IncomeBeforeTax:  ptr(100),
	})
	assert.InDelta(t, 0.25, b.EffectiveTaxRate, 1e-12)
	assert.InDelta(t, 75.0, b.NOPAT, 1e-9)
	assert.InDelta(t, 250.0, b.InvestedCapital, 1e-9)
	assert.InDelta(t, 30.0, b.ROIC, 1e-9)

	zero := Compute(Inputs{OperatingIncome: 100, Assets: 250, Cash: 50, Liabilities: 200})
	assert.Equal(t, 0.0, zero.ROIC)
	assert.InDelta(t, 79.0, zero.NOPAT, 1e-9, "fallback rate applies")
}

func TestCalculatorROICFromFacts(t *testing.T) {
	ctx := context.Background()
	cf := roicFacts(2023, 100, 500, 50, 200)
	cf.Add("us-gaap", facts.KeyIncomeTaxExpense, "USD", annual(2023, 25))
	cf.Add("us-gaap", facts.KeyIncomeBeforeTax, "USD", annual(2023, 100))
	cf.Add("us-gaap", facts.KeyLongTermDebt, "USD", annual(2023, 100))
	cf.Add("us-gaap", facts.KeyLongTermInvestments, "USD", annual(2023, 25))

	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())
	assert.Empty(t, c.ROICByYear(company, cf), "untracked company")

	c.Gather(ctx, company, cf)
	assert.Len(t, c.Registry().Facts(company), 8)

	b, ok := c.Breakdown(cf, 2023)
	require.True(t, ok)
	assert.InDelta(t, 375.0, b.InvestedCapital, 1e-9)
	assert.InDelta(t, 20.0, b.ROIC, 1e-9)
	assert.Equal(t, map[int]float64{2023: b.ROIC}, c.ROICByYear(company, cf))

	_, ok = c.ROIC(cf, 2022)
	assert.False(t, ok)
}

func TestROICRequiresMandatoryInputs(t *testing.T) {
	ctx := context.Background()
	cf := roicFacts(2023, 100, 500, 50, 200)
	cf.Add("us-gaap", facts.KeyOperatingIncome, "USD", annual(2022, 90))
	cf.Add("us-gaap", facts.KeyAssets, "USD", annual(2022, 450))

	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())
	c.Gather(ctx, company, cf)

	assert.Equal(t, []int{2023}, c.Years(company, cf))
	b, ok := c.Breakdown(cf, 2023)
	require.True(t, ok)
	assert.InDelta(t, FallbackTaxRate, b.EffectiveTaxRate, 1e-12)
}

func TestROICTrailingAveragesNeedFullCoverage(t *testing.T) {
	cf := roicFacts(2021, 10, 150, 50, 0)
	addROICYear(cf, 2022, 20, 150, 50, 0)
	addROICYear(cf, 2023, 30, 150, 50, 0)

	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())
	c.Gather(context.Background(), company, cf)

	avgs := c.TrailingAverages(company, cf, []int{10, 5, 3, 1})
	require.Len(t, avgs, 2)
	assert.InDelta(t, 15.8, avgs[3], 1e-9)
	assert.InDelta(t, 23.7, avgs[1], 1e-9)
	assert.Len(t, c.Breakdowns(company, cf), 3)
}

func TestHistoricalRates(t *testing.T) {
	cf := facts.New(company, "Compounder")
	for y := 2013; y <= 2023; y++ {
		n := float64(y - 2013)
		cf.Add("us-gaap", facts.KeyRevenue, "USD", annual(y, 100*math.Pow(1.1, n)))
		cf.Add("us-gaap", facts.KeyStockholdersEquity, "USD", annual(y, 50*math.Pow(1.2, n)))
		cf.Add("us-gaap", facts.KeyOperatingCashFlow, "USD", annual(y, 40))
	}
	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())

	hr, ok := c.HistoricalRates(cf, 2023)
	require.True(t, ok)
	assert.Equal(t, 2023, hr.Year)

	require.Len(t, hr.Sales.Windows, 4)
	for _, w := range HistoricalWindows {
		assert.InDelta(t, 10.0, hr.Sales.Windows[w], 1e-9, "sales window %d", w)
		assert.InDelta(t, 20.0, hr.Equity.Windows[w], 1e-9, "equity window %d", w)
	}
	require.NotNil(t, hr.Sales.Average)
	require.NotNil(t, hr.Equity.Average)
	assert.Nil(t, hr.EPS.Average)
	assert.Nil(t, hr.FCF.Average, "capex is required for historical fcf")

	require.NotNil(t, hr.EstimatedGrowth)
	assert.InDelta(t, 15.0, *hr.EstimatedGrowth, 1e-9)

	g, ok := c.EstimatedGrowth(cf, 2023)
	require.True(t, ok)
	assert.InDelta(t, 15.0, g, 1e-9)

	_, ok = c.HistoricalRates(cf, 2022)
	assert.False(t, ok, "no value ten years earlier")
}

func TestHistoricalRatesPartialWindows(t *testing.T) {
	cf := facts.New(company, "Sparse")
	cf.Add("us-gaap", facts.KeyRevenue, "USD", annual(2013, 0), annual(2018, 100), annual(2023, 200))
	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())

	hr, ok := c.HistoricalRates(cf, 2023)
	require.True(t, ok, "anchored by a zero value")
	assert.Equal(t, []int{5}, keys(hr.Sales.Windows), "zero start and missing years are skipped")
	require.NotNil(t, hr.EstimatedGrowth)
	assert.InDelta(t, (math.Pow(2, 0.2)-1)*100, *hr.EstimatedGrowth, 1e-9)
}

func TestHistoricalRatesOneAnchorIsEnough(t *testing.T) {
	cf := facts.New(company, "Young Equity")
	cf.Add("us-gaap", facts.KeyRevenue, "USD", annual(2013, 100), annual(2023, 200))
	for y := 2018; y <= 2023; y++ {
		cf.Add("us-gaap", facts.KeyStockholdersEquity, "USD", annual(y, 50*math.Pow(1.2, float64(y-2018))))
	}
	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())

	hr, ok := c.HistoricalRates(cf, 2023)
	require.True(t, ok, "sales anchors the bundle")
	assert.Equal(t, []int{10}, keys(hr.Sales.Windows))
	assert.ElementsMatch(t, []int{3, 5}, keys(hr.Equity.Windows), "equity has no 10-year window")
	assert.Empty(t, hr.EPS.Windows)
	require.NotNil(t, hr.Equity.Average)
	assert.InDelta(t, 20.0, *hr.Equity.Average, 1e-9)
}

func TestHistoricalRatesByYearFollowsROICYears(t *testing.T) {
	cf := roicFacts(2023, 100, 500, 50, 200)
	addROICYear(cf, 2020, 100, 500, 50, 200)
	cf.Add("us-gaap", facts.KeyRevenue, "USD", annual(2013, 100), annual(2023, 200))

	c := NewROIC(watch.NewMemoryStore(), DefaultKeys(), DefaultSources(), zerolog.Nop())
	c.Gather(context.Background(), company, cf)

	byYear := c.HistoricalRatesByYear(company, cf)
	require.Len(t, byYear, 1)
	assert.Contains(t, byYear, 2023)
}

func TestCapitalEfficiency(t *testing.T) {
	ctx := context.Background()
	cf := facts.New(company, "Employed Co")
	cf.Add("us-gaap", facts.KeyNetIncome, "USD", annual(2022, 40), annual(2023, 50))
	cf.Add("us-gaap", facts.KeyAssets, "USD", annual(2022, 300), annual(2023, 300))
	cf.Add("us-gaap", facts.KeyCurrentLiabilities, "USD", annual(2022, 100), annual(2023, 300))

	c := NewCapitalEfficiency(watch.NewMemoryStore(), DefaultCapitalKeys(), zerolog.Nop())
	assert.Equal(t, watch.NamespaceROIC, c.Registry().Config().Namespace)

	c.Gather(ctx, company, cf)
	assert.Equal(t, []int{2023, 2022}, c.ReadyYears(company, cf))

	returns := c.ReturnsByYear(company, cf)
	assert.InDelta(t, 20.0, returns[2022], 1e-9)
	assert.Equal(t, 0.0, returns[2023], "zero capital employed")

	ni, ok := c.NetIncome(cf, 2023)
	require.True(t, ok)
	assert.Equal(t, 50.0, ni)

	c.Toggle(ctx, company, facts.KeyAssets, 2023)
	assert.Equal(t, []int{2022}, keys(c.WatchedReturns(company, cf)))
}

func keys(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
