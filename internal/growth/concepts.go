package growth

import (
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/watch"
)

// KeyValue reads a single key as the metric value.
func KeyValue(key string) Formula {
	return func(cf *facts.CompanyFacts, year int) (float64, bool) {
		return cf.Value(key, year)
	}
}

// FCFValue is operating cash flow less capital expenditures. A missing
// capex figure counts as zero; operating cash flow is required.
func FCFValue(ocfKey, capexKey string) Formula {
	return func(cf *facts.CompanyFacts, year int) (float64, bool) {
		ocf, ok := cf.Value(ocfKey, year)
		if !ok {
			return 0, false
		}
		capex, _ := cf.Value(capexKey, year)
		return ocf - capex, true
	}
}

// StrictFCFValue is FCFValue with capital expenditures required.
func StrictFCFValue(ocfKey, capexKey string) Formula {
	return func(cf *facts.CompanyFacts, year int) (float64, bool) {
		ocf, ok := cf.Value(ocfKey, year)
		if !ok {
			return 0, false
		}
		capex, ok := cf.Value(capexKey, year)
		if !ok {
			return 0, false
		}
		return ocf - capex, true
	}
}

// PerShareValue divides a total by a share count.
func PerShareValue(totalKey, sharesKey string) Formula {
	return func(cf *facts.CompanyFacts, year int) (float64, bool) {
		total, ok := cf.Value(totalKey, year)
		if !ok {
			return 0, false
		}
		shares, ok := cf.Value(sharesKey, year)
		if !ok || shares == 0 {
			return 0, false
		}
		return total / shares, true
	}
}

// Sales tracks revenue.
func Sales(revenueKey string) Config {
	return Config{
		Name:         "sales",
		Namespace:    watch.NamespaceSales,
		RequiredKeys: []string{revenueKey},
		Value:        KeyValue(revenueKey),
		Pair:         Simple,
		Trailing:     Simple,
	}
}

// EPS tracks diluted earnings per share.
func EPS(epsKey string) Config {
	return Config{
		Name:         "eps",
		Namespace:    watch.NamespaceEPS,
		RequiredKeys: []string{epsKey},
		Value:        KeyValue(epsKey),
		Pair:         Simple,
		Trailing:     Simple,
	}
}

// Equity tracks book equity; growth compounds over year gaps.
func Equity(equityKey string) Config {
	return Config{
		Name:         "equity",
		Namespace:    watch.NamespaceEquity,
		RequiredKeys: []string{equityKey},
		Value:        KeyValue(equityKey),
		Pair:         Compound,
		Trailing:     Compound,
	}
}

// FCF tracks free cash flow. Only operating cash flow decides readiness.
func FCF(ocfKey, capexKey string) Config {
	return Config{
		Name:          "fcf",
		Namespace:     watch.NamespaceFCF,
		RequiredKeys:  []string{ocfKey, capexKey},
		MandatoryKeys: []string{ocfKey},
		Value:         FCFValue(ocfKey, capexKey),
		Pair:          Simple,
		Trailing:      Compound,
	}
}

// BookValue tracks book value per share.
func BookValue(equityKey, sharesKey string) Config {
	return Config{
		Name:         "bookvalue",
		Namespace:    watch.NamespaceBookValue,
		RequiredKeys: []string{equityKey, sharesKey},
		Value:        PerShareValue(equityKey, sharesKey),
		Pair:         Simple,
		Trailing:     Simple,
	}
}

// DefaultConfigs returns every concept with the stock us-gaap keys.
func DefaultConfigs() []Config {
	return []Config{
		Sales(facts.KeyRevenue),
		EPS(facts.KeyEPSDiluted),
		Equity(facts.KeyStockholdersEquity),
		FCF(facts.KeyOperatingCashFlow, facts.KeyCapitalExpenditures),
		BookValue(facts.KeyStockholdersEquity, facts.KeySharesOutstanding),
	}
}
