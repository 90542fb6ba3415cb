// Package mirror copies a catalog into the local SQLite mirror.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/store"
	"golang.org/x/sync/errgroup"
)

// Collection names reported to Progress.
const (
	CollectionOrders         = "orders"
	CollectionPortfolios     = "portfolios"
	CollectionPortfolioItems = "portfolio_items"
	CollectionPlatforms      = "platforms"
)

// Options configures sync behavior.
type Options struct {
	// PageSize is the page size used to walk each collection (default: 100)
	PageSize int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{PageSize: 100}
}

// Summary describes a finished sync.
type Summary struct {
	SyncID    int64
	StartTime time.Time
	Duration  time.Duration
	Counts    store.SyncCounts
}

// Progress reports sync progress to the caller.
type Progress interface {
	// OnCollection is called when a collection has been read in full.
	// Collections are read concurrently.
	OnCollection(name string, count int)
	// OnComplete is called when the mirror has been replaced.
	OnComplete(summary *Summary)
}

// NullProgress is a no-op progress reporter.
type NullProgress struct{}

func (NullProgress) OnCollection(name string, count int) {}
func (NullProgress) OnComplete(summary *Summary)         {}

// Syncer mirrors a catalog source into a store.
type Syncer struct {
	source   catalog.Source
	store    *store.Store
	logger   *slog.Logger
	progress Progress
	opts     *Options
}

// New creates a new Syncer.
func New(source catalog.Source, st *store.Store, opts *Options) *Syncer {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Syncer{
		source:   source,
		store:    st,
		logger:   slog.Default(),
		progress: NullProgress{},
		opts:     opts,
	}
}

// WithLogger sets the logger.
func (s *Syncer) WithLogger(logger *slog.Logger) *Syncer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithProgress sets the progress reporter.
func (s *Syncer) WithProgress(p Progress) *Syncer {
	s.progress = p
	return s
}

// Run reads every collection of the source and replaces the mirror's
// contents with them. The mirror is left untouched if any read fails.
func (s *Syncer) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	syncID, err := s.store.StartSync()
	if err != nil {
		return nil, fmt.Errorf("start sync: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.store.FailSync(syncID, fmt.Sprintf("panic: %v", r))
			panic(r)
		}
	}()

	snap, err := s.collect(ctx)
	if err != nil {
		_ = s.store.FailSync(syncID, err.Error())
		return nil, err
	}

	if err := s.store.ReplaceAll(ctx, snap); err != nil {
		_ = s.store.FailSync(syncID, err.Error())
		return nil, fmt.Errorf("replace mirror: %w", err)
	}

	counts := snap.Counts()
	if err := s.store.CompleteSync(syncID, counts); err != nil {
		s.logger.Warn("failed to record sync completion", "sync_id", syncID, "error", err)
	}

	summary := &Summary{
		SyncID:    syncID,
		StartTime: start,
		Duration:  time.Since(start),
		Counts:    counts,
	}
	s.logger.Info("mirror sync complete",
		"sync_id", syncID,
		"orders", counts.Orders,
		"portfolios", counts.Portfolios,
		"portfolio_items", counts.PortfolioItems,
		"platforms", counts.Platforms,
		"duration", summary.Duration)
	s.progress.OnComplete(summary)
	return summary, nil
}

// collect reads the four collections concurrently.
func (s *Syncer) collect(ctx context.Context) (store.Snapshot, error) {
	var snap store.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := catalog.CollectAll(gctx, s.source.ListOrders, nil, s.opts.PageSize)
		if err != nil {
			return fmt.Errorf("collect orders: %w", err)
		}
		snap.Orders = orders
		s.progress.OnCollection(CollectionOrders, len(orders))
		return nil
	})
	g.Go(func() error {
		portfolios, err := catalog.CollectAll(gctx, s.source.ListPortfolios, nil, s.opts.PageSize)
		if err != nil {
			return fmt.Errorf("collect portfolios: %w", err)
		}
		snap.Portfolios = portfolios
		s.progress.OnCollection(CollectionPortfolios, len(portfolios))
		return nil
	})
	g.Go(func() error {
		items, err := catalog.CollectAll(gctx, s.source.ListPortfolioItems, nil, s.opts.PageSize)
		if err != nil {
			return fmt.Errorf("collect portfolio items: %w", err)
		}
		snap.PortfolioItems = items
		s.progress.OnCollection(CollectionPortfolioItems, len(items))
		return nil
	})
	g.Go(func() error {
		platforms, err := s.source.ListPlatforms(gctx)
		if err != nil {
			return fmt.Errorf("list platforms: %w", err)
		}
		snap.Platforms = platforms
		s.progress.OnCollection(CollectionPlatforms, len(platforms))
		return nil
	})

	if err := g.Wait(); err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}
