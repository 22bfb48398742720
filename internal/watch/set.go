package watch

// Set is an unordered collection of comparable values.
type Set[T comparable] map[T]struct{}

// NewSet builds a set from values.
func NewSet[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v and reports whether it was absent.
func (s Set[T]) Add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Intersect returns the values present in every set. No sets yields an
// empty set.
func Intersect[T comparable](sets ...Set[T]) Set[T] {
	out := make(Set[T])
	if len(sets) == 0 {
		return out
	}
	smallest := 0
	for i, s := range sets {
		if len(s) < len(sets[smallest]) {
			smallest = i
		}
	}
	for v := range sets[smallest] {
		inAll := true
		for i, s := range sets {
			if i != smallest && !s.Has(v) {
				inAll = false
				break
			}
		}
		if inAll {
			out[v] = struct{}{}
		}
	}
	return out
}
