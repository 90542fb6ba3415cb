// Package testutil provides test helpers for catalogview tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, AssertContainsAll)
//   - store_helpers.go: database test setup (NewTestStore)
//   - builders.go: catalog record builders
//
// Subpackages provide an in-memory catalog (catalogtest) and a seeded
// mirror fixture (storetest).
package testutil
