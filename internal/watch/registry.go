// Package watch tracks, per company, which (metric key, fiscal year) facts
// are of interest and answers readiness queries over company facts.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/rs/zerolog"
)

// Fact identifies one tracked (metric key, fiscal year) pair.
type Fact struct {
	Key  string `json:"key"`
	Year int    `json:"year"`
}

// Config describes one registry instance.
type Config struct {
	Name      string
	Namespace string
	// RequiredKeys is the whitelist of metric keys this registry may hold.
	// Empty means unrestricted.
	RequiredKeys []string
}

// Registry holds the watch sets of one calculator.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	allowed Set[string]
	store   Store
	logger  zerolog.Logger
	sets    map[int64]Set[Fact]
}

// New creates an empty registry. Call Load to restore persisted state.
func New(store Store, cfg Config, logger zerolog.Logger) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	var allowed Set[string]
	if len(cfg.RequiredKeys) > 0 {
		allowed = NewSet(cfg.RequiredKeys...)
	}
	return &Registry{
		cfg:     cfg,
		allowed: allowed,
		store:   store,
		logger:  logger.With().Str("registry", cfg.Name).Str("namespace", cfg.Namespace).Logger(),
		sets:    make(map[int64]Set[Fact]),
	}
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Allows reports whether key is on the whitelist.
func (r *Registry) Allows(key string) bool {
	return r.allowed == nil || r.allowed.Has(key)
}

// Load replaces the in-memory state with the persisted one. Missing or
// unreadable data leaves the registry empty.
func (r *Registry) Load(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sets = make(map[int64]Set[Fact])

	data, ok, err := r.store.Get(ctx, r.cfg.Namespace)
	if err != nil {
		r.logger.Warn().Err(err).Msg("loading watch sets, starting empty")
		return
	}
	if !ok {
		return
	}

	sets, err := decodeSets(data)
	if err != nil {
		r.logger.Warn().Err(err).Msg("decoding watch sets, starting empty")
		return
	}

	for id, set := range sets {
		for f := range set {
			if !r.Allows(f.Key) {
				r.logger.Warn().Str("key", f.Key).Int64("company", id).Msg("dropping persisted fact outside whitelist")
				delete(set, f)
			}
		}
		if len(set) > 0 {
			r.sets[id] = set
		}
	}
	r.logger.Debug().Int("companies", len(r.sets)).Msg("watch sets loaded")
}

// Save persists the full map. Failures are logged; memory stays
// authoritative.
func (r *Registry) Save(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveLocked(ctx)
}

func (r *Registry) saveLocked(ctx context.Context) {
	data, err := encodeSets(r.sets)
	if err != nil {
		r.logger.Error().Err(err).Msg("encoding watch sets")
		return
	}
	if err := r.store.Put(ctx, r.cfg.Namespace, data); err != nil {
		r.logger.Error().Err(err).Msg("saving watch sets")
	}
}

// Toggle flips membership of (key, year) and returns the new state. Keys
// outside the whitelist are rejected with a warning and report false.
func (r *Registry) Toggle(ctx context.Context, companyID int64, key string, year int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Allows(key) {
		r.logger.Warn().Str("key", key).Int("year", year).Int64("company", companyID).Msg("ignoring toggle of key outside whitelist")
		return false
	}

	f := Fact{Key: key, Year: year}
	set, ok := r.sets[companyID]
	if !ok {
		set = make(Set[Fact])
		r.sets[companyID] = set
	}

	watched := set.Add(f)
	if !watched {
		delete(set, f)
	}
	if len(set) == 0 {
		delete(r.sets, companyID)
	}

	r.saveLocked(ctx)
	return watched
}

// IsWatched reports whether (key, year) is tracked for the company.
func (r *Registry) IsWatched(companyID int64, key string, year int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[companyID].Has(Fact{Key: key, Year: year})
}

// Gather inserts every annual point of the given keys. Keys outside the
// whitelist are skipped with a warning. Existing selections are kept.
func (r *Registry) Gather(ctx context.Context, companyID int64, cf *facts.CompanyFacts, keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[companyID]
	if !ok {
		set = make(Set[Fact])
	}

	added := 0
	for _, key := range keys {
		if !r.Allows(key) {
			r.logger.Warn().Str("key", key).Int64("company", companyID).Msg("skipping key outside whitelist")
			continue
		}
		for _, p := range cf.AnnualPoints(key) {
			if set.Add(Fact{Key: key, Year: p.FiscalYear}) {
				added++
			}
		}
	}

	if len(set) == 0 {
		return
	}
	r.sets[companyID] = set

	if added > 0 {
		r.saveLocked(ctx)
	}
	r.logger.Debug().Int64("company", companyID).Int("added", added).Int("total", len(set)).Msg("gathered facts")
}

// ReadyYears returns, newest first, the years for which every key has an
// annual point in cf. A company without a watch set has no ready years.
func (r *Registry) ReadyYears(companyID int64, cf *facts.CompanyFacts, keys []string) []int {
	r.mu.Lock()
	_, tracked := r.sets[companyID]
	r.mu.Unlock()

	if !tracked || len(keys) == 0 {
		return nil
	}
	return ReadyYears(cf, keys)
}

// ReadyYears intersects the annual years of every key, newest first.
func ReadyYears(cf *facts.CompanyFacts, keys []string) []int {
	if len(keys) == 0 {
		return nil
	}
	sets := make([]Set[int], 0, len(keys))
	for _, key := range keys {
		sets = append(sets, Set[int](cf.AnnualYears(key)))
	}
	return descending(Intersect(sets...))
}

// SelectedYears returns, newest first, the years for which every key/year
// identity is present in the company's watch set.
func (r *Registry) SelectedYears(companyID int64, keys []string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[companyID]
	if !ok || len(keys) == 0 {
		return nil
	}
	perKey := make(map[string]Set[int], len(keys))
	for _, key := range keys {
		perKey[key] = make(Set[int])
	}
	for f := range set {
		if years, ok := perKey[f.Key]; ok {
			years.Add(f.Year)
		}
	}
	sets := make([]Set[int], 0, len(keys))
	for _, key := range keys {
		sets = append(sets, perKey[key])
	}
	return descending(Intersect(sets...))
}

// Value returns the latest-filed annual value of key in year.
func (r *Registry) Value(companyID int64, year int, key string, cf *facts.CompanyFacts) (float64, bool) {
	if cf == nil {
		return 0, false
	}
	return cf.Value(key, year)
}

// ClearCompany removes one company's watch set.
func (r *Registry) ClearCompany(ctx context.Context, companyID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sets[companyID]; !ok {
		return
	}
	delete(r.sets, companyID)
	r.saveLocked(ctx)
}

// ClearAll removes every watch set.
func (r *Registry) ClearAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sets = make(map[int64]Set[Fact])
	r.saveLocked(ctx)
}

// Companies lists companies with a non-empty watch set.
func (r *Registry) Companies() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.sets))
	for id := range r.sets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Facts returns a company's watch set sorted by key then year.
func (r *Registry) Facts(companyID int64) []Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedFacts(r.sets[companyID])
}

func sortedFacts(set Set[Fact]) []Fact {
	out := make([]Fact, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Year < out[j].Year
	})
	return out
}

func descending(years Set[int]) []int {
	out := make([]int, 0, len(years))
	for y := range years {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// encodeSets serialises company sets as {"<companyId>": [facts...]}.
func encodeSets(sets map[int64]Set[Fact]) ([]byte, error) {
	out := make(map[string][]Fact, len(sets))
	for id, set := range sets {
		if len(set) == 0 {
			continue
		}
		out[strconv.FormatInt(id, 10)] = sortedFacts(set)
	}
	return json.Marshal(out)
}

func decodeSets(data []byte) (map[int64]Set[Fact], error) {
	var raw map[string][]Fact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing watch sets: %w", err)
	}
	sets := make(map[int64]Set[Fact], len(raw))
	for k, list := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing company id %q: %w", k, err)
		}
		set := make(Set[Fact], len(list))
		for _, f := range list {
			set.Add(f)
		}
		sets[id] = set
	}
	return sets, nil
}
