package facts

import "sort"

// Series maps fiscal year to the single authoritative value for one metric.
type Series map[int]float64

// Dedup collapses restated points to one value per fiscal year.
func Dedup(points []DataPoint) Series {
	best := make(map[int]DataPoint, len(points))
	for _, p := range points {
		cur, ok := best[p.FiscalYear]
		if !ok || p.supersedes(cur) {
			best[p.FiscalYear] = p
		}
	}
	s := make(Series, len(best))
	for y, p := range best {
		s[y] = p.Value
	}
	return s
}

// Get returns the value for year.
func (s Series) Get(year int) (float64, bool) {
	v, ok := s[year]
	return v, ok
}

// Years returns the series' years in descending order.
func (s Series) Years() []int {
	years := make([]int, 0, len(s))
	for y := range s {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Latest returns the most recent year and its value.
func (s Series) Latest() (int, float64, bool) {
	years := s.Years()
	if len(years) == 0 {
		return 0, 0, false
	}
	return years[0], s[years[0]], true
}
