// Package efficiency computes return on invested capital per fiscal year
// and synthesises a historical growth estimate from long CAGR windows.
package efficiency

import (
	"context"
	"sort"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
)

// Tax rate policy.
const (
	FallbackTaxRate = 0.21
	MaxTaxRate      = 0.5
)

// Keys names the concepts the ROIC calculator reads.
type Keys struct {
	OperatingIncome     string `yaml:"operating_income"`
	Assets              string `yaml:"assets"`
	Cash                string `yaml:"cash"`
	Liabilities         string `yaml:"liabilities"`
	LongTermDebt        string `yaml:"long_term_debt"`
	LongTermInvestments string `yaml:"long_term_investments"`
	IncomeTaxExpense    string `yaml:"income_tax_expense"`
	IncomeBeforeTax     string `yaml:"income_before_tax"`
}

// DefaultKeys returns the stock us-gaap concepts.
func DefaultKeys() Keys {
	return Keys{
		OperatingIncome:     facts.KeyOperatingIncome,
		Assets:              facts.KeyAssets,
		Cash:                facts.KeyCash,
		Liabilities:         facts.KeyLiabilities,
		LongTermDebt:        facts.KeyLongTermDebt,
		LongTermInvestments: facts.KeyLongTermInvestments,
		IncomeTaxExpense:    facts.KeyIncomeTaxExpense,
		IncomeBeforeTax:     facts.KeyIncomeBeforeTax,
	}
}

// Mandatory are the keys every ROIC year must have.
func (k Keys) Mandatory() []string {
	return []string{k.OperatingIncome, k.Assets, k.Cash, k.Liabilities}
}

// All is the registry whitelist.
func (k Keys) All() []string {
	return append(k.Mandatory(), k.LongTermDebt, k.LongTermInvestments, k.IncomeTaxExpense, k.IncomeBeforeTax)
}

// Inputs are the figures for one year. Tax inputs are optional.
type Inputs struct {
	OperatingIncome     float64
	Assets              float64
	Cash                float64
	Liabilities         float64
	LongTermDebt        float64
	LongTermInvestments float64
	IncomeTaxExpense    *float64
	IncomeBeforeTax     *float64
}

// Breakdown is one year's ROIC with its intermediate figures.
type Breakdown struct {
	Year             int     `json:"year"`
	EffectiveTaxRate float64 `json:"effective_tax_rate"`
	NOPAT            float64 `json:"nopat"`
	InvestedCapital  float64 `json:"invested_capital"`
	ROIC             float64 `json:"roic"`
}

// EffectiveTaxRate is tax/pretax clamped to [0, MaxTaxRate], or the
// fallback rate when pretax income is missing or not positive.
func EffectiveTaxRate(taxExpense, incomeBeforeTax *float64) float64 {
	if taxExpense == nil || incomeBeforeTax == nil || *incomeBeforeTax <= 0 {
		return FallbackTaxRate
	}
	return min(max(*taxExpense / *incomeBeforeTax, 0), MaxTaxRate)
}

// Compute derives NOPAT, invested capital and ROIC (percent). A zero
// invested capital yields a ROIC of 0.
func Compute(in Inputs) Breakdown {
	rate := EffectiveTaxRate(in.IncomeTaxExpense, in.IncomeBeforeTax)
	nopat := in.OperatingIncome * (1 - rate)
	invested := in.Assets - in.Cash - in.Liabilities + in.LongTermDebt + in.LongTermInvestments

	roic := 0.0
	if invested != 0 {
		roic = nopat / invested * 100
	}
	return Breakdown{
		EffectiveTaxRate: rate,
		NOPAT:            nopat,
		InvestedCapital:  invested,
		ROIC:             roic,
	}
}

// Calculator computes ROIC per year and the Big-Five historical rates.
type Calculator struct {
	keys     Keys
	sources  Sources
	registry *watch.Registry
}

// NewROIC creates the ROIC calculator. Call Load to restore watch sets.
func NewROIC(store watch.Store, keys Keys, sources Sources, logger zerolog.Logger) *Calculator {
	return &Calculator{
		keys:    keys,
		sources: sources,
		registry: watch.New(store, watch.Config{
			Name:         "roic",
			Namespace:    watch.NamespaceROICBigFive,
			RequiredKeys: keys.All(),
		}, logger),
	}
}

// Keys returns the configured concepts.
func (c *Calculator) Keys() Keys { return c.keys }

// Registry exposes the underlying watch registry.
func (c *Calculator) Registry() *watch.Registry { return c.registry }

// Load restores persisted watch sets.
func (c *Calculator) Load(ctx context.Context) { c.registry.Load(ctx) }

// Gather tracks every annual fact of the ROIC keys.
func (c *Calculator) Gather(ctx context.Context, companyID int64, cf *facts.CompanyFacts) {
	c.registry.Gather(ctx, companyID, cf, c.keys.All())
}

// ClearCompany drops a company's watch set.
func (c *Calculator) ClearCompany(ctx context.Context, companyID int64) {
	c.registry.ClearCompany(ctx, companyID)
}

// ClearAll drops every watch set.
func (c *Calculator) ClearAll(ctx context.Context) { c.registry.ClearAll(ctx) }

// Years returns the years with all mandatory inputs, newest first.
func (c *Calculator) Years(companyID int64, cf *facts.CompanyFacts) []int {
	return c.registry.ReadyYears(companyID, cf, c.keys.Mandatory())
}

// Breakdown computes ROIC for one year.
func (c *Calculator) Breakdown(cf *facts.CompanyFacts, year int) (Breakdown, bool) {
	var in Inputs
	for _, req := range []struct {
		key string
		dst *float64
	}{
		{c.keys.OperatingIncome, &in.OperatingIncome},
		{c.keys.Assets, &in.Assets},
		{c.keys.Cash, &in.Cash},
		{c.keys.Liabilities, &in.Liabilities},
	} {
		v, ok := cf.Value(req.key, year)
		if !ok {
			return Breakdown{}, false
		}
		*req.dst = v
	}
	in.LongTermDebt, _ = cf.Value(c.keys.LongTermDebt, year)
	in.LongTermInvestments, _ = cf.Value(c.keys.LongTermInvestments, year)
	if v, ok := cf.Value(c.keys.IncomeTaxExpense, year); ok {
		in.IncomeTaxExpense = &v
	}
	if v, ok := cf.Value(c.keys.IncomeBeforeTax, year); ok {
		in.IncomeBeforeTax = &v
	}

	b := Compute(in)
	b.Year = year
	return b, true
}

// ROIC returns one year's ROIC in percent.
func (c *Calculator) ROIC(cf *facts.CompanyFacts, year int) (float64, bool) {
	b, ok := c.Breakdown(cf, year)
	return b.ROIC, ok
}

// ROICByYear computes ROIC for every ready year.
func (c *Calculator) ROICByYear(companyID int64, cf *facts.CompanyFacts) map[int]float64 {
	out := make(map[int]float64)
	for _, y := range c.Years(companyID, cf) {
		if v, ok := c.ROIC(cf, y); ok {
			out[y] = v
		}
	}
	return out
}

// Breakdowns lists per-year breakdowns, newest first.
func (c *Calculator) Breakdowns(companyID int64, cf *facts.CompanyFacts) []Breakdown {
	var out []Breakdown
	for _, y := range c.Years(companyID, cf) {
		if b, ok := c.Breakdown(cf, y); ok {
			out = append(out, b)
		}
	}
	return out
}

// TrailingAverages is the mean ROIC of the most recent p years, reported
// only for periods fully covered by data.
func (c *Calculator) TrailingAverages(companyID int64, cf *facts.CompanyFacts, periods []int) map[int]float64 {
	byYear := c.ROICByYear(companyID, cf)
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	out := make(map[int]float64)
	for _, p := range periods {
		if p <= 0 || p > len(years) {
			continue
		}
		vals := make([]float64, 0, p)
		for _, y := range years[:p] {
			vals = append(vals, byYear[y])
		}
		if avg, ok := growth.Mean(vals); ok {
			out[p] = avg
		}
	}
	return out
}
