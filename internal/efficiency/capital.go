package efficiency

import (
	"context"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
)

// CapitalKeys names the concepts of the capital efficiency variant.
type CapitalKeys struct {
	NetIncome          string `yaml:"net_income"`
	Assets             string `yaml:"assets"`
	CurrentLiabilities string `yaml:"current_liabilities"`
}

// DefaultCapitalKeys returns the stock us-gaap concepts.
func DefaultCapitalKeys() CapitalKeys {
	return CapitalKeys{
		NetIncome:          facts.KeyNetIncome,
		Assets:             facts.KeyAssets,
		CurrentLiabilities: facts.KeyCurrentLiabilities,
	}
}

// All lists the three keys; every one is required.
func (k CapitalKeys) All() []string {
	return []string{k.NetIncome, k.Assets, k.CurrentLiabilities}
}

// CapitalEfficiency is net income over capital employed, backing the
// watch-driven views. Its registry owns the ROIC watch namespace.
type CapitalEfficiency struct {
	keys     CapitalKeys
	registry *watch.Registry
}

// NewCapitalEfficiency creates the variant. Call Load to restore watch
// sets.
func NewCapitalEfficiency(store watch.Store, keys CapitalKeys, logger zerolog.Logger) *CapitalEfficiency {
	return &CapitalEfficiency{
		keys: keys,
		registry: watch.New(store, watch.Config{
			Name:         "capital-efficiency",
			Namespace:    watch.NamespaceROIC,
			RequiredKeys: keys.All(),
		}, logger),
	}
}

// Keys returns the configured concepts.
func (c *CapitalEfficiency) Keys() CapitalKeys { return c.keys }

// Registry exposes the underlying watch registry.
func (c *CapitalEfficiency) Registry() *watch.Registry { return c.registry }

// Load restores persisted watch sets.
func (c *CapitalEfficiency) Load(ctx context.Context) { c.registry.Load(ctx) }

// Gather tracks every annual fact of the three keys.
func (c *CapitalEfficiency) Gather(ctx context.Context, companyID int64, cf *facts.CompanyFacts) {
	c.registry.Gather(ctx, companyID, cf, c.keys.All())
}

// Toggle flips one tracked fact.
func (c *CapitalEfficiency) Toggle(ctx context.Context, companyID int64, key string, year int) bool {
	return c.registry.Toggle(ctx, companyID, key, year)
}

// ReadyYears returns years with all three keys, newest first.
func (c *CapitalEfficiency) ReadyYears(companyID int64, cf *facts.CompanyFacts) []int {
	return c.registry.ReadyYears(companyID, cf, c.keys.All())
}

// Return is netIncome / (assets - currentLiabilities) in percent, 0 when
// capital employed is zero.
func (c *CapitalEfficiency) Return(cf *facts.CompanyFacts, year int) (float64, bool) {
	ni, ok := cf.Value(c.keys.NetIncome, year)
	if !ok {
		return 0, false
	}
	assets, ok := cf.Value(c.keys.Assets, year)
	if !ok {
		return 0, false
	}
	cl, ok := cf.Value(c.keys.CurrentLiabilities, year)
	if !ok {
		return 0, false
	}
	employed := assets - cl
	if employed == 0 {
		return 0, true
	}
	return ni / employed * 100, true
}

// ReturnsByYear computes the return for every ready year.
func (c *CapitalEfficiency) ReturnsByYear(companyID int64, cf *facts.CompanyFacts) map[int]float64 {
	return c.returnsFor(c.ReadyYears(companyID, cf), cf)
}

// WatchedReturns computes the return only for years whose three facts are
// all in the company's watch set.
func (c *CapitalEfficiency) WatchedReturns(companyID int64, cf *facts.CompanyFacts) map[int]float64 {
	return c.returnsFor(c.registry.SelectedYears(companyID, c.keys.All()), cf)
}

func (c *CapitalEfficiency) returnsFor(years []int, cf *facts.CompanyFacts) map[int]float64 {
	out := make(map[int]float64)
	for _, y := range years {
		if v, ok := c.Return(cf, y); ok {
			out[y] = v
		}
	}
	return out
}

// NetIncome returns net income for year.
func (c *CapitalEfficiency) NetIncome(cf *facts.CompanyFacts, year int) (float64, bool) {
	return c.registry.Value(cf.CompanyID, year, c.keys.NetIncome, cf)
}
