// Package composite blends ROIC and growth metrics into 0-100 health and
// valuation scores. Absent inputs are nil and propagate upward.
package composite

import (
	"math"
)

// Composite growth weights. They are not renormalised on partial data.
const (
	WeightEPSGrowth    = 0.35
	WeightSalesGrowth  = 0.30
	WeightEquityGrowth = 0.20
	WeightFCFGrowth    = 0.15
)

// Financial strength weights. These are renormalised over present inputs.
const (
	StrengthWeightROIC           = 0.30
	StrengthWeightGrowth         = 0.25
	StrengthWeightFCFConsistency = 0.20
	StrengthWeightEquityGrowth   = 0.25

	// MinStrengthWeight is the share of nominal weight that must be backed
	// by data.
	MinStrengthWeight = 0.5
)

// Scaling ranges, in percent, mapped onto 0-100.
const (
	ROICRange         = 30.0
	GrowthRange       = 30.0
	EquityGrowthRange = 25.0
)

// Value creation caps, in percent.
const (
	ValueCreationROICCap   = 30.0
	ValueCreationGrowthCap = 25.0
)

// RuleOf40Threshold is the passing score.
const RuleOf40Threshold = 40.0

// MinConsistencyYears is the history FCFConsistency needs.
const MinConsistencyYears = 3

// ClampFloat64 bounds v to [lo, hi].
func ClampFloat64(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func ptr(v float64) *float64 { return &v }

// ValueCreation scores ROIC against growth. The 5-year ROIC average is
// preferred over the 3-year one.
//
// score = min(max(roic,0),30)*2 + min(max(growth,0),25)*1.6
func ValueCreation(roic5, roic3, compositeGrowth *float64) *float64 {
	roic := roic5
	if roic == nil {
		roic = roic3
	}
	if roic == nil || compositeGrowth == nil {
		return nil
	}
	score := ClampFloat64(*roic, 0, ValueCreationROICCap)*2 +
		ClampFloat64(*compositeGrowth, 0, ValueCreationGrowthCap)*1.6
	return &score
}

// CompositeGrowth is the weighted sum of the available 5-year growth rates.
// Missing terms contribute nothing; the result is absent only when every
// term is missing.
func CompositeGrowth(eps, sales, equity, fcf *float64) *float64 {
	terms := []struct {
		v *float64
		w float64
	}{
		{eps, WeightEPSGrowth},
		{sales, WeightSalesGrowth},
		{equity, WeightEquityGrowth},
		{fcf, WeightFCFGrowth},
	}

	sum, n := 0.0, 0
	for _, t := range terms {
		if t.v == nil {
			continue
		}
		sum += *t.v * t.w
		n++
	}
	if n == 0 {
		return nil
	}
	return &sum
}

// FCFConsistency rewards stable, positive free cash flow.
//
// base = clamp(100*(1-stddev/|mean|), 0, 100), bonus = 20*positiveShare
func FCFConsistency(values []float64) *float64 {
	if len(values) < MinConsistencyYears {
		return nil
	}

	mean := Mean(values)
	std := Stddev(values)

	base := 0.0
	if mean != 0 {
		cv := std / math.Abs(mean)
		base = ClampFloat64(100*(1-cv), 0, 100)
	}

	positive := 0
	for _, v := range values {
		if v > 0 {
			positive++
		}
	}
	bonus := 20 * float64(positive) / float64(len(values))

	return ptr(math.Min(base+bonus, 100))
}

// PEG divides the P/E ratio by 5-year EPS growth expressed as a fraction.
// Zero or negative growth leaves it undefined.
func PEG(pe, epsGrowth5 *float64) *float64 {
	if pe == nil || epsGrowth5 == nil || *epsGrowth5 <= 0 {
		return nil
	}
	return ptr(*pe / (*epsGrowth5 * 100))
}

// RuleOf40 adds 1-year sales growth (fraction) and net margin, both as
// percentages.
func RuleOf40(salesGrowth1 *float64, revenue, netIncome float64) *float64 {
	if salesGrowth1 == nil || revenue <= 0 {
		return nil
	}
	return ptr(*salesGrowth1*100 + netIncome/revenue*100)
}

// PassesRuleOf40 reports whether score meets the threshold.
func PassesRuleOf40(score *float64) bool {
	return score != nil && *score >= RuleOf40Threshold
}

// FinancialStrength blends ROIC, composite growth, FCF consistency and
// 5-year equity growth, each scaled to 0-100. Weights are renormalised
// over the present components; below MinStrengthWeight the score is
// absent.
func FinancialStrength(roic, compositeGrowth, fcfConsistency, equityGrowth5 *float64) *float64 {
	components := []struct {
		v     *float64
		scale float64
		w     float64
	}{
		{roic, ROICRange, StrengthWeightROIC},
		{compositeGrowth, GrowthRange, StrengthWeightGrowth},
		{fcfConsistency, 100, StrengthWeightFCFConsistency},
		{equityGrowth5, EquityGrowthRange, StrengthWeightEquityGrowth},
	}

	sum, weight := 0.0, 0.0
	for _, c := range components {
		if c.v == nil {
			continue
		}
		sum += ClampFloat64(*c.v/c.scale*100, 0, 100) * c.w
		weight += c.w
	}
	// tolerate float drift on the 0.5 boundary
	if weight < MinStrengthWeight-1e-9 {
		return nil
	}
	return ptr(ClampFloat64(sum/weight, 0, 100))
}

// Mean is the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev is the population standard deviation.
func Stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
