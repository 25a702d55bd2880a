package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sumstate/internal/store"
)

// NewStore opens a store in a per-test temp directory and closes it on
// cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
