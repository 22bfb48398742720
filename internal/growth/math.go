// Package growth turns sparse yearly facts into growth rates and
// trailing-period averages. All rates are expressed in percent.
package growth

import "math"

// CAGR is the compound annual growth rate between two values `years`
// apart, in percent. It is undefined for a zero start, a zero span, or a
// ratio that has no real root (negative over an even span, for example).
func CAGR(start, end float64, years int) (float64, bool) {
	if start == 0 || years == 0 {
		return 0, false
	}
	r := (math.Pow(end/start, 1/float64(years)) - 1) * 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// SimpleGrowth is the plain percent change from start to end.
func SimpleGrowth(start, end float64) (float64, bool) {
	if start == 0 {
		return 0, false
	}
	r := (end - start) / start * 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Mean is the arithmetic mean; false for an empty slice.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Mode selects the growth formula used between two years.
type Mode int

const (
	// Simple is the percent change, ignoring the gap between years.
	Simple Mode = iota
	// Compound is the power-law CAGR over the gap between years.
	Compound
)

func (m Mode) String() string {
	if m == Compound {
		return "compound"
	}
	return "simple"
}

// between applies the mode to two (year, value) observations.
func (m Mode) between(startYear int, start float64, endYear int, end float64) (float64, bool) {
	if startYear == endYear {
		return 0, false
	}
	if m == Compound {
		return CAGR(start, end, endYear-startYear)
	}
	return SimpleGrowth(start, end)
}
