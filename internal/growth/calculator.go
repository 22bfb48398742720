package growth

import (
	"context"
	"sort"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
)

// DefaultPeriods are the trailing windows, in years, reported by default.
var DefaultPeriods = []int{10, 7, 5, 3, 1}

// Formula computes a metric's point-in-time value for one fiscal year.
type Formula func(cf *facts.CompanyFacts, year int) (float64, bool)

// Config specialises a Calculator for one financial concept.
type Config struct {
	Name      string
	Namespace string
	// RequiredKeys are gathered and form the registry whitelist.
	RequiredKeys []string
	// MandatoryKeys decide readiness. Defaults to RequiredKeys; keys left
	// out may be defaulted by Value.
	MandatoryKeys []string
	Value         Formula
	// Pair is used between consecutive ready years.
	Pair Mode
	// Trailing is used inside trailing-period windows.
	Trailing Mode
}

// Mandatory returns the keys that decide readiness.
func (c Config) Mandatory() []string {
	if len(c.MandatoryKeys) > 0 {
		return c.MandatoryKeys
	}
	return c.RequiredKeys
}

// Calculator computes values, growth and trailing averages for one concept
// on top of its own watch registry.
type Calculator struct {
	cfg      Config
	registry *watch.Registry
}

// New creates a calculator. Call Load to restore persisted watch sets.
func New(store watch.Store, cfg Config, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cfg: cfg,
		registry: watch.New(store, watch.Config{
			Name:         cfg.Name,
			Namespace:    cfg.Namespace,
			RequiredKeys: cfg.RequiredKeys,
		}, logger),
	}
}

// Name returns the calculator name.
func (c *Calculator) Name() string { return c.cfg.Name }

// Config returns the calculator configuration.
func (c *Calculator) Config() Config { return c.cfg }

// Registry exposes the underlying watch registry.
func (c *Calculator) Registry() *watch.Registry { return c.registry }

// Load restores persisted watch sets.
func (c *Calculator) Load(ctx context.Context) { c.registry.Load(ctx) }

// Gather tracks every annual fact of the calculator's keys.
func (c *Calculator) Gather(ctx context.Context, companyID int64, cf *facts.CompanyFacts) {
	c.registry.Gather(ctx, companyID, cf, c.cfg.RequiredKeys)
}

// Toggle flips one tracked fact.
func (c *Calculator) Toggle(ctx context.Context, companyID int64, key string, year int) bool {
	return c.registry.Toggle(ctx, companyID, key, year)
}

// IsWatched reports whether a fact is tracked.
func (c *Calculator) IsWatched(companyID int64, key string, year int) bool {
	return c.registry.IsWatched(companyID, key, year)
}

// ClearCompany drops a company's watch set.
func (c *Calculator) ClearCompany(ctx context.Context, companyID int64) {
	c.registry.ClearCompany(ctx, companyID)
}

// ClearAll drops every watch set.
func (c *Calculator) ClearAll(ctx context.Context) { c.registry.ClearAll(ctx) }

// ReadyYears returns the years with every mandatory key present, newest
// first.
func (c *Calculator) ReadyYears(companyID int64, cf *facts.CompanyFacts) []int {
	return c.registry.ReadyYears(companyID, cf, c.cfg.Mandatory())
}

// Value computes the metric for one year.
func (c *Calculator) Value(companyID int64, year int, cf *facts.CompanyFacts) (float64, bool) {
	if cf == nil || c.cfg.Value == nil {
		return 0, false
	}
	return c.cfg.Value(cf, year)
}

// Values computes the metric for every ready year.
func (c *Calculator) Values(companyID int64, cf *facts.CompanyFacts) map[int]float64 {
	out := make(map[int]float64)
	for _, y := range c.ReadyYears(companyID, cf) {
		if v, ok := c.Value(companyID, y, cf); ok {
			out[y] = v
		}
	}
	return out
}

// GrowthRates maps each ready year to the growth from it to the next ready
// year, using the pair mode.
func (c *Calculator) GrowthRates(companyID int64, cf *facts.CompanyFacts) map[int]float64 {
	years := ascending(c.ReadyYears(companyID, cf))
	values := c.Values(companyID, cf)
	out := make(map[int]float64)
	for i := 0; i+1 < len(years); i++ {
		if g, ok := c.pairGrowth(c.cfg.Pair, values, years[i], years[i+1]); ok {
			out[years[i]] = g
		}
	}
	return out
}

// GrowthBetween is the power-law CAGR between any two years.
func (c *Calculator) GrowthBetween(companyID int64, cf *facts.CompanyFacts, startYear, endYear int) (float64, bool) {
	if startYear == endYear {
		return 0, false
	}
	start, ok := c.Value(companyID, startYear, cf)
	if !ok {
		return 0, false
	}
	end, ok := c.Value(companyID, endYear, cf)
	if !ok {
		return 0, false
	}
	return CAGR(start, end, endYear-startYear)
}

// TrailingAverages averages consecutive growth over the most recent ready
// years for each period. Simple windows span p+1 ready years, compound
// windows p. A period with fewer than two years, or no defined growth, is
// left out.
func (c *Calculator) TrailingAverages(companyID int64, cf *facts.CompanyFacts, periods []int) map[int]float64 {
	ready := c.ReadyYears(companyID, cf)
	values := c.Values(companyID, cf)
	out := make(map[int]float64)

	for _, p := range periods {
		n := p + 1
		if c.cfg.Trailing == Compound {
			n = p
		}
		if n > len(ready) {
			n = len(ready)
		}
		if n < 2 {
			continue
		}
		window := ascending(ready[:n])

		var rates []float64
		for i := 0; i+1 < len(window); i++ {
			if g, ok := c.pairGrowth(c.cfg.Trailing, values, window[i], window[i+1]); ok {
				rates = append(rates, g)
			}
		}
		if avg, ok := Mean(rates); ok {
			out[p] = avg
		}
	}
	return out
}

// TrailingAverage is TrailingAverages for a single period.
func (c *Calculator) TrailingAverage(companyID int64, cf *facts.CompanyFacts, period int) (float64, bool) {
	v, ok := c.TrailingAverages(companyID, cf, []int{period})[period]
	return v, ok
}

func (c *Calculator) pairGrowth(mode Mode, values map[int]float64, startYear, endYear int) (float64, bool) {
	start, ok := values[startYear]
	if !ok {
		return 0, false
	}
	end, ok := values[endYear]
	if !ok {
		return 0, false
	}
	return mode.between(startYear, start, endYear, end)
}

func ascending(years []int) []int {
	out := append([]int(nil), years...)
	sort.Ints(out)
	return out
}
