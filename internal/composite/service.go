package composite

import (
	"sort"

	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/rs/zerolog"
)

// Quote carries market inputs that do not come from filings.
type Quote struct {
	PE *float64 `json:"pe,omitempty"`
}

// Scores is the composite bundle for one company.
type Scores struct {
	ValueCreation     *float64 `json:"value_creation,omitempty"`
	CompositeGrowth   *float64 `json:"composite_growth,omitempty"`
	FCFConsistency    *float64 `json:"fcf_consistency,omitempty"`
	PEG               *float64 `json:"peg,omitempty"`
	RuleOf40          *float64 `json:"rule_of_40,omitempty"`
	PassesRuleOf40    bool     `json:"passes_rule_of_40"`
	FinancialStrength *float64 `json:"financial_strength,omitempty"`
}

// Calculators are the inputs the service reads.
type Calculators struct {
	ROIC       *efficiency.Calculator
	Efficiency *efficiency.CapitalEfficiency
	Sales      *growth.Calculator
	EPS        *growth.Calculator
	Equity     *growth.Calculator
	FCF        *growth.Calculator
}

// Service computes Scores from the calculators' current watch state.
type Service struct {
	calc   Calculators
	logger zerolog.Logger
}

// NewService creates a composite service.
func NewService(calc Calculators, logger zerolog.Logger) *Service {
	return &Service{
		calc:   calc,
		logger: logger.With().Str("component", "composite").Logger(),
	}
}

// Calculate computes every score. Growth calculators report percentages;
// PEG and Rule of 40 take fractions.
func (s *Service) Calculate(companyID int64, cf *facts.CompanyFacts, quote Quote) Scores {
	var out Scores
	if cf == nil {
		return out
	}

	roicAvgs := s.calc.ROIC.TrailingAverages(companyID, cf, []int{5, 3})
	roic5 := lookup(roicAvgs, 5)
	roic3 := lookup(roicAvgs, 3)

	eps5 := trailing(s.calc.EPS, companyID, cf, 5)
	sales5 := trailing(s.calc.Sales, companyID, cf, 5)
	equity5 := trailing(s.calc.Equity, companyID, cf, 5)
	fcf5 := trailing(s.calc.FCF, companyID, cf, 5)

	out.CompositeGrowth = CompositeGrowth(eps5, sales5, equity5, fcf5)
	out.ValueCreation = ValueCreation(roic5, roic3, out.CompositeGrowth)
	out.FCFConsistency = FCFConsistency(orderedValues(s.calc.FCF.Values(companyID, cf)))
	out.PEG = PEG(quote.PE, fraction(eps5))
	out.RuleOf40 = s.ruleOf40(companyID, cf)
	out.PassesRuleOf40 = PassesRuleOf40(out.RuleOf40)

	roic := roic5
	if roic == nil {
		roic = roic3
	}
	out.FinancialStrength = FinancialStrength(roic, out.CompositeGrowth, out.FCFConsistency, equity5)

	s.logger.Debug().
		Int64("company", companyID).
		Bool("value_creation", out.ValueCreation != nil).
		Bool("financial_strength", out.FinancialStrength != nil).
		Msg("scores calculated")
	return out
}

// ruleOf40 uses the most recent sales-ready year.
func (s *Service) ruleOf40(companyID int64, cf *facts.CompanyFacts) *float64 {
	years := s.calc.Sales.ReadyYears(companyID, cf)
	if len(years) == 0 {
		return nil
	}
	year := years[0]

	revenue, ok := s.calc.Sales.Value(companyID, year, cf)
	if !ok {
		return nil
	}
	netIncome, ok := s.calc.Efficiency.NetIncome(cf, year)
	if !ok {
		return nil
	}
	return RuleOf40(fraction(trailing(s.calc.Sales, companyID, cf, 1)), revenue, netIncome)
}

func trailing(c *growth.Calculator, companyID int64, cf *facts.CompanyFacts, period int) *float64 {
	if v, ok := c.TrailingAverage(companyID, cf, period); ok {
		return &v
	}
	return nil
}

func lookup(m map[int]float64, key int) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func fraction(pct *float64) *float64 {
	if pct == nil {
		return nil
	}
	return ptr(*pct / 100)
}

func orderedValues(byYear map[int]float64) []float64 {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	out := make([]float64, 0, len(years))
	for _, y := range years {
		out = append(out, byYear[y])
	}
	return out
}
