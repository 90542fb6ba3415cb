package testutil

import (
	"path/filepath"
	"testing"

	"github.com/wesm/catalogview/internal/store"
)

// NewTestStore opens an empty mirror in a temporary directory.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	return OpenTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
}

// OpenTestStore opens the mirror at path and creates its schema. The
// store is closed when the test ends; closing it earlier is fine.
func OpenTestStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	MustNoErr(t, err, "open mirror "+path)
	t.Cleanup(func() { _ = st.Close() })
	MustNoErr(t, st.InitSchema(), "init mirror schema")
	return st
}
