package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/source"
)

func TestStoreCreateUpdateFetch(t *testing.T) {
	t.Parallel()

	n := 0
	store := New(WithIDGenerator(func() string {
		n++
		return []string{"a", "b", "c"}[n-1]
	}))
	ctx := context.Background()

	store.Seed("sites", source.Record{"name": "Harbor"})
	id, err := store.Create(ctx, "sites", map[string]any{"name": "Depot"})
	require.NoError(t, err)
	require.Equal(t, "b", id)

	_, err = store.Update(ctx, "sites", "b", map[string]any{"name": "Depot 2", "id": "ignored"})
	require.NoError(t, err)

	records, err := store.Fetch(ctx, "sites")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].String("id"))
	require.Equal(t, "Depot 2", records[1].String("name"))
	require.Equal(t, "b", records[1].String("id"))

	records[0]["name"] = "mutated"
	got, ok := store.Get("sites", "a")
	require.True(t, ok)
	require.Equal(t, "Harbor", got.String("name"))
}

func TestStoreUpdateMissing(t *testing.T) {
	t.Parallel()

	_, err := New().Update(context.Background(), "sites", "nope", nil)
	require.Error(t, err)
	require.Equal(t, source.KindServer, source.KindOf(err))
}

func TestStoreCancelledContextIsTransient(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Fetch(ctx, "sites")
	require.True(t, source.IsTransient(err))
}

func TestSeedDocument(t *testing.T) {
	t.Parallel()

	store := New()
	n, err := store.SeedDocument([]byte(`{"sites":[{"id":"1","name":"Harbor"},{"name":"Depot"}],"payments":[]}`))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, store.Len("sites"))

	rec, ok := store.Get("sites", "1")
	require.True(t, ok)
	require.Equal(t, "Harbor", rec["name"])

	_, err = store.SeedDocument([]byte("sites: [unterminated"))
	require.Error(t, err)
}

func TestSeedFileMissing(t *testing.T) {
	t.Parallel()

	_, err := New().SeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
