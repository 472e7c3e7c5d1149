package testsupport

import (
	"context"
	"testing"

	"specimatch/internal/config"
	"specimatch/internal/specimen"
)

// MustOpenStore opens a specimen store against the test config and closes it
// when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *specimen.Store {
	t.Helper()

	store, err := specimen.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedSpecimen inserts a specimen and fails the test on error.
func SeedSpecimen(t testing.TB, store *specimen.Store, sp specimen.Specimen) *specimen.Specimen {
	t.Helper()

	inserted, err := store.Insert(context.Background(), sp)
	if err != nil {
		t.Fatalf("seed specimen: %v", err)
	}
	return inserted
}
