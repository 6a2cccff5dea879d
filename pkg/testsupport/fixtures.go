// Package testsupport holds fixture and golden file helpers shared by tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/source/memory"
)

// Fixture returns the absolute path of a file under this package's testdata
// directory. screens.yaml and records.yaml describe a small payments domain.
func Fixture(name string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("testdata", name)
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

// MustLoadCatalog loads a screens fixture.
func MustLoadCatalog(t *testing.T, path string) *schema.Catalog {
	t.Helper()

	cat, err := schema.LoadFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

// MustSeedStore returns a memory store seeded from a records fixture.
func MustSeedStore(t *testing.T, path string, opts ...memory.Option) *memory.Store {
	t.Helper()

	store := memory.New(opts...)
	if _, err := store.SeedFile(path); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

// SequentialIDs returns an id generator yielding "new-1", "new-2", ...
func SequentialIDs() memory.Option {
	n := 0
	return memory.WithIDGenerator(func() string {
		n++
		return "new-" + strconv.Itoa(n)
	})
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
