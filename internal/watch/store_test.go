package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "watch.json")
	s := NewFileStore(path, zerolog.Nop())

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, NamespaceEPS, []byte(`{"1":[{"key":"EarningsPerShareDiluted","year":2023}]}`)))
	require.NoError(t, s.Put(ctx, MigrationFlag, []byte(`true`)))

	v, ok, err := s.Get(ctx, NamespaceEPS)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"1":[{"key":"EarningsPerShareDiluted","year":2023}]}`, string(v))

	require.NoError(t, s.Delete(ctx, NamespaceEPS))
	_, ok, err = s.Get(ctx, NamespaceEPS)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = NewFileStore(path, zerolog.Nop()).Get(ctx, MigrationFlag)
	require.NoError(t, err)
	assert.True(t, ok, "state survives a new store instance")
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "watch.json"), zerolog.Nop())
	assert.Error(t, s.Put(context.Background(), "k", []byte("nope")))
}

func TestRegistryOverCorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "watch.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	r := New(NewFileStore(path, zerolog.Nop()), Config{Name: "eps", Namespace: NamespaceEPS, RequiredKeys: []string{"EarningsPerShareDiluted"}}, zerolog.Nop())
	r.Load(ctx)
	assert.Empty(t, r.Companies())

	// the next mutation replaces the corrupt file
	r.Toggle(ctx, 9, "EarningsPerShareDiluted", 2020)
	reloaded := New(NewFileStore(path, zerolog.Nop()), r.Config(), zerolog.Nop())
	reloaded.Load(ctx)
	assert.True(t, reloaded.IsWatched(9, "EarningsPerShareDiluted", 2020))
}

func TestFileStoreMovesCorruptFileAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "watch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"watch.sales": [`), 0o644))

	var buf bytes.Buffer
	s := NewFileStore(path, zerolog.New(&buf))

	_, _, err := s.Get(ctx, NamespaceSales)
	assert.ErrorIs(t, err, errCorruptState)

	require.NoError(t, s.Put(ctx, NamespaceEPS, []byte(`{}`)))
	assert.Contains(t, buf.String(), "state file unreadable")

	kept, err := os.ReadFile(path + ".bad")
	require.NoError(t, err)
	assert.Equal(t, `{"watch.sales": [`, string(kept))

	v, ok, err := s.Get(ctx, NamespaceEPS)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{}`, string(v))
}
