// Package storetest provides a Fixture for tests that exercise the
// catalog mirror through its public API.
package storetest

import (
	"context"
	"testing"

	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/store"
	"github.com/wesm/catalogview/internal/testutil"
	"github.com/wesm/catalogview/internal/testutil/catalogtest"
)

// Fixture holds common test state for mirror-level tests.
type Fixture struct {
	T     *testing.T
	Store *store.Store
}

// New creates a Fixture with a fresh, empty mirror.
func New(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{T: t, Store: testutil.NewTestStore(t)}
}

// Seeded creates a Fixture whose mirror holds the catalogtest.Seed
// catalog.
func Seeded(t *testing.T) *Fixture {
	t.Helper()
	f := New(t)
	b := catalogtest.New()
	catalogtest.Seed(b)
	f.Load(b)
	return f
}

// Load replaces the mirror's contents with everything src lists.
func (f *Fixture) Load(src catalog.Source) store.Snapshot {
	f.T.Helper()
	snap := Snapshot(f.T, src)
	testutil.MustNoErr(f.T, f.Store.ReplaceAll(context.Background(), snap), "ReplaceAll")
	return snap
}

// Replace replaces the mirror's contents with snap.
func (f *Fixture) Replace(snap store.Snapshot) {
	f.T.Helper()
	testutil.MustNoErr(f.T, f.Store.ReplaceAll(context.Background(), snap), "ReplaceAll")
}

// Snapshot reads every collection of src.
func Snapshot(t *testing.T, src catalog.Source) store.Snapshot {
	t.Helper()
	ctx := context.Background()
	var (
		snap store.Snapshot
		err  error
	)
	snap.Orders, err = catalog.CollectAll(ctx, src.ListOrders, nil, 0)
	testutil.MustNoErr(t, err, "collect orders")
	snap.Portfolios, err = catalog.CollectAll(ctx, src.ListPortfolios, nil, 0)
	testutil.MustNoErr(t, err, "collect portfolios")
	snap.PortfolioItems, err = catalog.CollectAll(ctx, src.ListPortfolioItems, nil, 0)
	testutil.MustNoErr(t, err, "collect portfolio items")
	snap.Platforms, err = src.ListPlatforms(ctx)
	testutil.MustNoErr(t, err, "list platforms")
	return snap
}
