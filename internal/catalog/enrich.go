package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wesm/catalogview/internal/listctl"
)

// OrderRow is an order decorated for display.
type OrderRow struct {
	Order
	Name         string
	IconURL      string
	PlatformID   string
	PlatformName string
	PortfolioID  string
}

// PortfolioItemRow is a portfolio item decorated for display.
type PortfolioItemRow struct {
	PortfolioItem
	PlatformName string
}

// Enricher derives display fields for orders from the reference data
// loaded alongside them. It is safe for concurrent use; the reference
// data is swapped in whole by the preloads.
type Enricher struct {
	apiBase    string
	standalone bool

	mu        sync.RWMutex
	items     map[string]PortfolioItem
	platforms map[string]Platform
}

// NewEnricher returns an Enricher. apiBase is the catalog API root used
// to build icon URLs. In standalone deployments platform and portfolio
// ids come from the data embedded in each order instead of the loaded
// portfolio items.
func NewEnricher(apiBase string, standalone bool) *Enricher {
	return &Enricher{
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		standalone: standalone,
		items:      map[string]PortfolioItem{},
		platforms:  map[string]Platform{},
	}
}

// SetPortfolioItems replaces the known portfolio items.
func (e *Enricher) SetPortfolioItems(items []PortfolioItem) {
	m := make(map[string]PortfolioItem, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	e.mu.Lock()
	e.items = m
	e.mu.Unlock()
}

// SetPlatforms replaces the known platforms.
func (e *Enricher) SetPlatforms(platforms []Platform) {
	m := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		m[p.ID] = p
	}
	e.mu.Lock()
	e.platforms = m
	e.mu.Unlock()
}

// PlatformsPreload returns the loader that populates the platforms
// from src.
func (e *Enricher) PlatformsPreload(src Source) listctl.Preload {
	return func(ctx context.Context) error {
		platforms, err := src.ListPlatforms(ctx)
		if err != nil {
			return fmt.Errorf("load platforms: %w", err)
		}
		e.SetPlatforms(platforms)
		return nil
	}
}

// Preloads returns the loaders that populate the enricher from src.
func (e *Enricher) Preloads(src Source, pageSize int) []listctl.Preload {
	return []listctl.Preload{
		e.PlatformsPreload(src),
		func(ctx context.Context) error {
			items, err := CollectAll[PortfolioItem](ctx, src.ListPortfolioItems, nil, pageSize)
			if err != nil {
				return fmt.Errorf("load portfolio items: %w", err)
			}
			e.SetPortfolioItems(items)
			return nil
		},
	}
}

// Order decorates o. It matches listctl's decorate signature.
func (e *Enricher) Order(o Order) OrderRow {
	row := OrderRow{Order: o}

	var first *OrderItem
	if len(o.OrderItems) > 0 {
		first = &o.OrderItems[0]
	}

	e.mu.RLock()
	var item *PortfolioItem
	if first != nil {
		if it, ok := e.items[first.PortfolioItemID]; ok {
			item = &it
		}
	}

	if item != nil {
		row.Name = item.Name
	} else {
		row.Name = "Order " + o.ID
	}
	if first != nil && e.apiBase != "" {
		row.IconURL = fmt.Sprintf("%s/portfolio_items/%s/icon", e.apiBase, first.PortfolioItemID)
	}

	source := item
	if e.standalone {
		source = embeddedPortfolioItem(o)
	}
	if source != nil {
		row.PlatformID = source.ServiceOfferingSourceRef
		row.PortfolioID = source.PortfolioID
	}
	if p, ok := e.platforms[row.PlatformID]; ok {
		row.PlatformName = p.Name
	}
	e.mu.RUnlock()

	return row
}

// PortfolioItem decorates it with its platform name. An unknown
// platform shows its id.
func (e *Enricher) PortfolioItem(it PortfolioItem) PortfolioItemRow {
	row := PortfolioItemRow{PortfolioItem: it, PlatformName: it.ServiceOfferingSourceRef}
	e.mu.RLock()
	if p, ok := e.platforms[it.ServiceOfferingSourceRef]; ok {
		row.PlatformName = p.Name
	}
	e.mu.RUnlock()
	return row
}

// embeddedPortfolioItem returns the portfolio item a standalone
// deployment embeds in the order's first order item.
func embeddedPortfolioItem(o Order) *PortfolioItem {
	if o.ExtraData == nil || len(o.ExtraData.OrderItems) == 0 {
		return nil
	}
	extra := o.ExtraData.OrderItems[0].ExtraData
	if extra == nil {
		return nil
	}
	return extra.PortfolioItem
}
