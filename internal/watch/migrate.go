package watch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Storage namespaces, one per registry.
const (
	NamespaceROIC        = "watch.roic"
	NamespaceROICBigFive = "watch.roic.bigfive"
	NamespaceEPS         = "watch.eps"
	NamespaceSales       = "watch.sales"
	NamespaceEquity      = "watch.equity"
	NamespaceFCF         = "watch.fcf"
	NamespaceBookValue   = "watch.bookvalue"
	NamespaceUser        = "watch.user"

	// LegacyNamespace held the combined watch sets before they were split.
	LegacyNamespace = "watchedMetrics"
	// MigrationFlag is set once the legacy sets have been split.
	MigrationFlag = "watch.migration.v1"
)

// MigrateLegacy splits the legacy combined watch sets into the ROIC and
// user namespaces by membership of roicKeys. It runs at most once per store
// and must run before registries are loaded.
func MigrateLegacy(ctx context.Context, store Store, roicKeys []string, logger zerolog.Logger) {
	log := logger.With().Str("component", "watch-migration").Logger()

	if _, done, err := store.Get(ctx, MigrationFlag); err != nil {
		log.Warn().Err(err).Msg("checking migration flag, skipping")
		return
	} else if done {
		return
	}

	// Read failures leave the legacy key and flag alone so the next start
	// retries. Only missing or undecodable data counts as empty.
	legacy, err := loadSets(ctx, store, LegacyNamespace, log)
	if err != nil {
		log.Warn().Err(err).Msg("reading legacy watch sets, will retry")
		return
	}
	roic, err := loadSets(ctx, store, NamespaceROIC, log)
	if err != nil {
		log.Warn().Err(err).Msg("reading roic watch sets, will retry")
		return
	}
	user, err := loadSets(ctx, store, NamespaceUser, log)
	if err != nil {
		log.Warn().Err(err).Msg("reading user watch sets, will retry")
		return
	}
	isROIC := NewSet(roicKeys...)

	moved := 0
	for id, set := range legacy {
		for f := range set {
			target := user
			if isROIC.Has(f.Key) {
				target = roic
			}
			if target[id] == nil {
				target[id] = make(Set[Fact])
			}
			target[id].Add(f)
			moved++
		}
	}

	if moved > 0 {
		if !putSets(ctx, store, NamespaceROIC, roic, log) || !putSets(ctx, store, NamespaceUser, user, log) {
			// leave the legacy key and flag alone so the next start retries
			return
		}
	}

	if err := store.Delete(ctx, LegacyNamespace); err != nil {
		log.Warn().Err(err).Msg("deleting legacy watch sets")
	}
	if err := store.Put(ctx, MigrationFlag, []byte("true")); err != nil {
		log.Warn().Err(err).Msg("persisting migration flag")
		return
	}
	log.Info().Int("facts", moved).Int("companies", len(legacy)).Msg("legacy watch sets migrated")
}

// loadSets returns the decoded sets under namespace. A missing key or
// undecodable data yields an empty map; a store error is returned.
func loadSets(ctx context.Context, store Store, namespace string, log zerolog.Logger) (map[int64]Set[Fact], error) {
	data, ok, err := store.Get(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", namespace, err)
	}
	if !ok {
		return map[int64]Set[Fact]{}, nil
	}
	sets, err := decodeSets(data)
	if err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("watch sets unreadable, treating as empty")
		return map[int64]Set[Fact]{}, nil
	}
	return sets, nil
}

func putSets(ctx context.Context, store Store, namespace string, sets map[int64]Set[Fact], log zerolog.Logger) bool {
	data, err := encodeSets(sets)
	if err == nil {
		err = store.Put(ctx, namespace, data)
	}
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("writing migrated watch sets")
		return false
	}
	return true
}
