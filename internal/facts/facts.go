// Package facts models the company facts consumed by the metrics engine.
// Facts are read-only: calculators borrow them for one computation and
// never write back.
package facts

import (
	"sort"
	"time"
)

// AnnualForm is the filing type that marks a data point as annual.
const AnnualForm = "10-K"

// DataPoint is one disclosed fact.
type DataPoint struct {
	FiscalYear   int        `json:"fy"`
	FiscalPeriod string     `json:"fp,omitempty"`
	Value        float64    `json:"val"`
	FilingType   string     `json:"form"`
	FiledDate    time.Time  `json:"filed"`
	PeriodStart  *time.Time `json:"start,omitempty"`
	PeriodEnd    time.Time  `json:"end"`
	Unit         string     `json:"unit,omitempty"`
}

// IsAnnual reports whether the point comes from an annual report.
func (p DataPoint) IsAnnual() bool {
	return p.FilingType == AnnualForm
}

// supersedes reports whether p is more authoritative than q for the same
// fiscal year: latest filing wins, then latest period end, then larger value.
func (p DataPoint) supersedes(q DataPoint) bool {
	if !p.FiledDate.Equal(q.FiledDate) {
		return p.FiledDate.After(q.FiledDate)
	}
	if !p.PeriodEnd.Equal(q.PeriodEnd) {
		return p.PeriodEnd.After(q.PeriodEnd)
	}
	return p.Value > q.Value
}

// Units maps a reporting unit (USD, USD/shares, shares) to its points.
type Units map[string][]DataPoint

// CompanyFacts is the nested taxonomy -> metric key -> unit -> points
// structure for one company.
type CompanyFacts struct {
	CompanyID  int64                       `json:"cik"`
	EntityName string                      `json:"entityName"`
	Facts      map[string]map[string]Units `json:"facts"`
}

// New returns an empty fact set for a company.
func New(companyID int64, entityName string) *CompanyFacts {
	return &CompanyFacts{
		CompanyID:  companyID,
		EntityName: entityName,
		Facts:      make(map[string]map[string]Units),
	}
}

// Add appends points under taxonomy/key/unit.
func (c *CompanyFacts) Add(taxonomy, key, unit string, points ...DataPoint) {
	if c.Facts == nil {
		c.Facts = make(map[string]map[string]Units)
	}
	keys, ok := c.Facts[taxonomy]
	if !ok {
		keys = make(map[string]Units)
		c.Facts[taxonomy] = keys
	}
	units, ok := keys[key]
	if !ok {
		units = make(Units)
		keys[key] = units
	}
	for _, p := range points {
		if p.Unit == "" {
			p.Unit = unit
		}
		units[unit] = append(units[unit], p)
	}
}

var preferredTaxonomies = []string{"us-gaap", "ifrs-full", "dei"}

// taxonomyOrder lists the taxonomies present, preferred ones first.
func (c *CompanyFacts) taxonomyOrder() []string {
	order := make([]string, 0, len(c.Facts))
	seen := make(map[string]bool, len(preferredTaxonomies))
	for _, t := range preferredTaxonomies {
		if _, ok := c.Facts[t]; ok {
			order = append(order, t)
		}
		seen[t] = true
	}
	var rest []string
	for t := range c.Facts {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Points returns the points for a metric key from the first taxonomy that
// defines it. Within the key, the first unit (alphabetically) carrying an
// annual point is used; if none does, the first unit is used.
func (c *CompanyFacts) Points(key string) []DataPoint {
	if c == nil {
		return nil
	}
	for _, taxonomy := range c.taxonomyOrder() {
		units, ok := c.Facts[taxonomy][key]
		if !ok || len(units) == 0 {
			continue
		}
		names := make([]string, 0, len(units))
		for u := range units {
			names = append(names, u)
		}
		sort.Strings(names)
		for _, u := range names {
			for _, p := range units[u] {
				if p.IsAnnual() {
					return units[u]
				}
			}
		}
		return units[names[0]]
	}
	return nil
}

// AnnualPoints returns only the 10-K points for a key.
func (c *CompanyFacts) AnnualPoints(key string) []DataPoint {
	var out []DataPoint
	for _, p := range c.Points(key) {
		if p.IsAnnual() {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether any taxonomy defines the key.
func (c *CompanyFacts) Has(key string) bool {
	return len(c.Points(key)) > 0
}

// Series builds the authoritative per-year values for a key.
func (c *CompanyFacts) Series(key string) Series {
	return Dedup(c.AnnualPoints(key))
}

// AnnualYears returns the fiscal years with at least one annual point.
func (c *CompanyFacts) AnnualYears(key string) map[int]struct{} {
	years := make(map[int]struct{})
	for _, p := range c.AnnualPoints(key) {
		years[p.FiscalYear] = struct{}{}
	}
	return years
}

// Value returns the authoritative annual value for key in year.
func (c *CompanyFacts) Value(key string, year int) (float64, bool) {
	var best *DataPoint
	for _, p := range c.AnnualPoints(key) {
		if p.FiscalYear != year {
			continue
		}
		if best == nil || p.supersedes(*best) {
			p := p
			best = &p
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Value, true
}

// Keys lists every metric key across taxonomies, sorted.
func (c *CompanyFacts) Keys() []string {
	seen := make(map[string]struct{})
	for _, keys := range c.Facts {
		for k := range keys {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
