package growth

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

const company int64 = 1000

func annual(year int, value float64) facts.DataPoint {
	return facts.DataPoint{
		FiscalYear: year,
		Value:      value,
		FilingType: facts.AnnualForm,
		FiledDate:  time.Date(year+1, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:  time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func seriesFacts(key string, values map[int]float64) *facts.CompanyFacts {
	cf := facts.New(company, "Growth Co")
	for y, v := range values {
		cf.Add("us-gaap", key, "USD", annual(y, v))
	}
	return cf
}

func gathered(t *testing.T, cfg Config, cf *facts.CompanyFacts) *Calculator {
	t.Helper()
	c := New(watch.NewMemoryStore(), cfg, zerolog.Nop())
	c.Gather(context.Background(), company, cf)
	return c
}

func TestCAGR(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		end    float64
		years  int
		want   float64
		wantOK bool
	}{
		{name: "eps ten years", start: 1.42, end: 6.13, years: 10, want: 15.749, wantOK: true},
		{name: "doubling in one year", start: 100, end: 200, years: 1, want: 100, wantOK: true},
		{name: "flat", start: 50, end: 50, years: 5, want: 0, wantOK: true},
		{name: "decline", start: 200, end: 100, years: 1, want: -50, wantOK: true},
		{name: "zero start", start: 0, end: 100, years: 3},
		{name: "zero span", start: 10, end: 20, years: 0},
		{name: "sign change over even span", start: -10, end: 20, years: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CAGR(tt.start, tt.end, tt.years)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.01)
			}
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestCAGRRoundTrip(t *testing.T) {
	cases := []struct {
		v0, v1 float64
		n      int
	}{
		{1.42, 6.13, 10}, {100, 50, 3}, {7, 7000, 7}, {-10, -40, 5}, {3, 9, -2}, {0.5, 0.25, 1},
	}
	for _, c := range cases {
		g, ok := CAGR(c.v0, c.v1, c.n)
		require.True(t, ok)
		rebuilt := c.v0 * math.Pow(1+g/100, float64(c.n))
		assert.InDelta(t, c.v1, rebuilt, 1e-9*math.Max(1, math.Abs(c.v1)))
	}
}

func TestSimpleGrowth(t *testing.T) {
	g, ok := SimpleGrowth(100, 125)
	require.True(t, ok)
	assert.InDelta(t, 25.0, g, 1e-9)

	g, ok = SimpleGrowth(-2, 1)
	require.True(t, ok)
	assert.InDelta(t, -150.0, g, 1e-9)

	_, ok = SimpleGrowth(0, 5)
	assert.False(t, ok)
}

func TestSalesGrowthAndTrailingAverages(t *testing.T) {
	cf := seriesFacts(facts.KeyRevenue, map[int]float64{2020: 100, 2021: 110, 2022: 121, 2023: 133.1})
	c := gathered(t, Sales(facts.KeyRevenue), cf)

	assert.Equal(t, []int{2023, 2022, 2021, 2020}, c.ReadyYears(company, cf))

	rates := c.GrowthRates(company, cf)
	require.Len(t, rates, 3)
	for _, y := range []int{2020, 2021, 2022} {
		assert.InDelta(t, 10.0, rates[y], 1e-9, "start year %d", y)
	}

	avgs := c.TrailingAverages(company, cf, DefaultPeriods)
	require.Len(t, avgs, 5)
	for p, v := range avgs {
		assert.InDelta(t, 10.0, v, 1e-9, "period %d", p)
	}
}

func TestTrailingAverageWindowsUseMostRecentYears(t *testing.T) {
	// growth: 2019->2020 +100%, then +10% per year
	cf := seriesFacts(facts.KeyEPSDiluted, map[int]float64{2019: 1, 2020: 2, 2021: 2.2, 2022: 2.42})
	c := gathered(t, EPS(facts.KeyEPSDiluted), cf)

	one, ok := c.TrailingAverage(company, cf, 1)
	require.True(t, ok)
	assert.InDelta(t, 10.0, one, 1e-9)

	two, ok := c.TrailingAverage(company, cf, 2)
	require.True(t, ok)
	assert.InDelta(t, 10.0, two, 1e-9)

	three, ok := c.TrailingAverage(company, cf, 3)
	require.True(t, ok)
	assert.InDelta(t, 40.0, three, 1e-9)
}

func TestZeroStartIsExcludedFromAverages(t *testing.T) {
	cf := seriesFacts(facts.KeyRevenue, map[int]float64{2021: 0, 2022: 100, 2023: 110})
	c := gathered(t, Sales(facts.KeyRevenue), cf)

	rates := c.GrowthRates(company, cf)
	assert.NotContains(t, rates, 2021)
	assert.InDelta(t, 10.0, rates[2022], 1e-9)

	avg, ok := c.TrailingAverage(company, cf, 3)
	require.True(t, ok)
	assert.InDelta(t, 10.0, avg, 1e-9)

	for _, v := range c.TrailingAverages(company, cf, DefaultPeriods) {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestAllZeroStartsLeavePeriodOut(t *testing.T) {
	cf := seriesFacts(facts.KeyRevenue, map[int]float64{2022: 0, 2023: 110})
	c := gathered(t, Sales(facts.KeyRevenue), cf)

	assert.Empty(t, c.TrailingAverages(company, cf, DefaultPeriods))
	assert.Empty(t, c.GrowthRates(company, cf))
}

func TestEquityCompoundsOverGaps(t *testing.T) {
	cf := seriesFacts(facts.KeyStockholdersEquity, map[int]float64{2019: 100, 2021: 121, 2022: 133.1})
	c := gathered(t, Equity(facts.KeyStockholdersEquity), cf)

	rates := c.GrowthRates(company, cf)
	assert.InDelta(t, 10.0, rates[2019], 1e-9, "two-year gap compounds")
	assert.InDelta(t, 10.0, rates[2021], 1e-9)

	avgs := c.TrailingAverages(company, cf, DefaultPeriods)
	assert.NotContains(t, avgs, 1, "compound windows hold p years")
	assert.InDelta(t, 10.0, avgs[3], 1e-9)
	assert.InDelta(t, 10.0, avgs[10], 1e-9)

	g, ok := c.GrowthBetween(company, cf, 2019, 2022)
	require.True(t, ok)
	assert.InDelta(t, 10.0, g, 1e-9)

	_, ok = c.GrowthBetween(company, cf, 2019, 2019)
	assert.False(t, ok)
	_, ok = c.GrowthBetween(company, cf, 2018, 2022)
	assert.False(t, ok)
}

func TestFCFDefaultsMissingCapexToZero(t *testing.T) {
	cf := facts.New(company, "Cash Co")
	cf.Add("us-gaap", facts.KeyOperatingCashFlow, "USD", annual(2021, 100), annual(2022, 120), annual(2023, 150))
	cf.Add("us-gaap", facts.KeyCapitalExpenditures, "USD", annual(2021, 20), annual(2023, 30))
	c := gathered(t, FCF(facts.KeyOperatingCashFlow, facts.KeyCapitalExpenditures), cf)

	assert.Equal(t, []int{2023, 2022, 2021}, c.ReadyYears(company, cf))
	assert.Equal(t, map[int]float64{2021: 80, 2022: 120, 2023: 120}, c.Values(company, cf))

	strict := StrictFCFValue(facts.KeyOperatingCashFlow, facts.KeyCapitalExpenditures)
	_, ok := strict(cf, 2022)
	assert.False(t, ok)
	v, ok := strict(cf, 2023)
	require.True(t, ok)
	assert.Equal(t, 120.0, v)
}

func TestBookValuePerShare(t *testing.T) {
	cf := facts.New(company, "Book Co")
	cf.Add("us-gaap", facts.KeyStockholdersEquity, "USD", annual(2022, 1000), annual(2023, 1100))
	cf.Add("us-gaap", facts.KeySharesOutstanding, "shares", annual(2022, 100), annual(2023, 0))
	c := gathered(t, BookValue(facts.KeyStockholdersEquity, facts.KeySharesOutstanding), cf)

	assert.Equal(t, []int{2023, 2022}, c.ReadyYears(company, cf))
	assert.Equal(t, map[int]float64{2022: 10}, c.Values(company, cf), "zero shares leaves the year undefined")
	assert.Empty(t, c.GrowthRates(company, cf))
}

func TestUntrackedCompanyHasNoResults(t *testing.T) {
	cf := seriesFacts(facts.KeyRevenue, map[int]float64{2022: 100, 2023: 110})
	c := New(watch.NewMemoryStore(), Sales(facts.KeyRevenue), zerolog.Nop())

	assert.Empty(t, c.ReadyYears(company, cf))
	assert.Empty(t, c.TrailingAverages(company, cf, DefaultPeriods))
}

func TestCalculatorWatchDelegation(t *testing.T) {
	ctx := context.Background()
	c := New(watch.NewMemoryStore(), Sales(facts.KeyRevenue), zerolog.Nop())

	assert.True(t, c.Toggle(ctx, company, facts.KeyRevenue, 2023))
	assert.True(t, c.IsWatched(company, facts.KeyRevenue, 2023))
	c.ClearCompany(ctx, company)
	assert.False(t, c.IsWatched(company, facts.KeyRevenue, 2023))

	c.Toggle(ctx, company, facts.KeyRevenue, 2023)
	c.ClearAll(ctx)
	assert.Empty(t, c.Registry().Companies())
}

func TestCalculatorToggleIgnoresForeignKey(t *testing.T) {
	ctx := context.Background()
	c := New(watch.NewMemoryStore(), Sales(facts.KeyRevenue), zerolog.Nop())

	assert.False(t, c.Toggle(ctx, company, facts.KeyAssets, 2023))
	assert.False(t, c.IsWatched(company, facts.KeyAssets, 2023))
	assert.Empty(t, c.Registry().Facts(company))
}
