// Package catalogtest provides an in-memory catalog.Backend for tests
// that need a catalog without a network or database.
package catalogtest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// Backend is an in-memory catalog. Filtering follows the catalog API:
// state matches exactly, name and owner match case-insensitive
// substrings, portfolio matches the item's portfolio id.
type Backend struct {
	mu         sync.Mutex
	orders     []catalog.Order
	portfolios []catalog.Portfolio
	items      []catalog.PortfolioItem
	platforms  []catalog.Platform
	nextID     int

	// Err, when set, is returned by every call.
	Err error
	// Calls counts calls per method name.
	Calls map[string]int
}

// Compile-time check that Backend implements catalog.Backend.
var _ catalog.Backend = (*Backend)(nil)

// New returns an empty backend.
func New() *Backend {
	return &Backend{Calls: make(map[string]int)}
}

// AddPortfolio stores p and returns it.
func (b *Backend) AddPortfolio(p catalog.Portfolio) catalog.Portfolio {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.newID()
	}
	b.portfolios = append(b.portfolios, p)
	return p
}

// AddPortfolioItem stores it and returns it.
func (b *Backend) AddPortfolioItem(it catalog.PortfolioItem) catalog.PortfolioItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it.ID == "" {
		it.ID = b.newID()
	}
	b.items = append(b.items, it)
	return it
}

// AddPlatform stores p.
func (b *Backend) AddPlatform(p catalog.Platform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.platforms = append(b.platforms, p)
}

// AddOrder stores o with an order item for each portfolio item id.
func (b *Backend) AddOrder(o catalog.Order, portfolioItemIDs ...string) catalog.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.ID == "" {
		o.ID = b.newID()
	}
	if o.State == "" {
		o.State = catalog.StateCreated
	}
	for _, id := range portfolioItemIDs {
		o.OrderItems = append(o.OrderItems, catalog.OrderItem{
			ID:              b.newID(),
			OrderID:         o.ID,
			PortfolioItemID: id,
			State:           o.State,
		})
	}
	b.orders = append(b.orders, o)
	return o
}

func (b *Backend) newID() string {
	b.nextID++
	return fmt.Sprintf("%d", b.nextID)
}

func (b *Backend) enter(method string) error {
	b.Calls[method]++
	return b.Err
}

// CallCount returns how many times method was called.
func (b *Backend) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[method]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// page filters, pages and counts items.
func page[T any](all []T, match func(T) bool, q listctl.Query) listctl.ResultSet[T] {
	var matched []T
	for _, it := range all {
		if match(it) {
			matched = append(matched, it)
		}
	}
	limit := q.Pagination.Limit
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	offset := min(max(q.Pagination.Offset, 0), len(matched))
	end := min(offset+limit, len(matched))
	return listctl.ResultSet[T]{
		Items: slices.Clone(matched[offset:end]),
		Meta: listctl.Meta{
			Count:       len(matched),
			Limit:       limit,
			Offset:      offset,
			NoDataAtAll: len(all) == 0,
		},
	}
}

func cloneOrder(o catalog.Order) catalog.Order {
	o.OrderItems = slices.Clone(o.OrderItems)
	return o
}

// ListOrders returns orders newest first.
func (b *Backend) ListOrders(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Order], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListOrders"); err != nil {
		return listctl.ResultSet[catalog.Order]{}, err
	}

	sorted := make([]catalog.Order, len(b.orders))
	for i, o := range b.orders {
		sorted[i] = cloneOrder(o)
	}
	slices.SortStableFunc(sorted, func(a, b catalog.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	states := q.Filters[catalog.FieldState].Values
	owner := q.Filters[catalog.FieldOwner].Text
	return page(sorted, func(o catalog.Order) bool {
		if len(states) > 0 && !slices.Contains(states, o.State) {
			return false
		}
		return owner == "" || containsFold(o.Owner, owner)
	}, q), nil
}

// GetOrder returns one order with its items.
func (b *Backend) GetOrder(ctx context.Context, id string) (catalog.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetOrder"); err != nil {
		return catalog.Order{}, err
	}
	for _, o := range b.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return catalog.Order{}, catalog.ErrNotFound
}

// ListPortfolios returns portfolios sorted by name.
func (b *Backend) ListPortfolios(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Portfolio], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListPortfolios"); err != nil {
		return listctl.ResultSet[catalog.Portfolio]{}, err
	}
	sorted := slices.Clone(b.portfolios)
	slices.SortStableFunc(sorted, func(a, b catalog.Portfolio) int { return cmp.Compare(a.Name, b.Name) })

	name := q.Filters[catalog.FieldName].Text
	return page(sorted, func(p catalog.Portfolio) bool {
		return name == "" || containsFold(p.Name, name)
	}, q), nil
}

// ListPortfolioItems returns portfolio items sorted by name.
func (b *Backend) ListPortfolioItems(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.PortfolioItem], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListPortfolioItems"); err != nil {
		return listctl.ResultSet[catalog.PortfolioItem]{}, err
	}
	sorted := slices.Clone(b.items)
	slices.SortStableFunc(sorted, func(a, b catalog.PortfolioItem) int { return cmp.Compare(a.Name, b.Name) })

	name := q.Filters[catalog.FieldName].Text
	portfolio := q.Filters[catalog.FieldPortfolio].Text
	return page(sorted, func(it catalog.PortfolioItem) bool {
		if portfolio != "" && it.PortfolioID != portfolio {
			return false
		}
		return name == "" || containsFold(it.Name, name)
	}, q), nil
}

// ListPlatforms returns every platform.
func (b *Backend) ListPlatforms(ctx context.Context) ([]catalog.Platform, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListPlatforms"); err != nil {
		return nil, err
	}
	return slices.Clone(b.platforms), nil
}

// SubmitOrder creates an order in the Ordered state.
func (b *Backend) SubmitOrder(ctx context.Context, req catalog.OrderRequest) (catalog.Order, error) {
	if err := req.Validate(); err != nil {
		return catalog.Order{}, err
	}
	b.mu.Lock()
	if err := b.enter("SubmitOrder"); err != nil {
		b.mu.Unlock()
		return catalog.Order{}, err
	}
	b.mu.Unlock()

	now := time.Now().UTC()
	o := b.AddOrder(catalog.Order{
		State:              catalog.StateOrdered,
		CreatedAt:          now,
		OrderRequestSentAt: &now,
	}, req.PortfolioItemID)
	return cloneOrder(o), nil
}

// CancelOrder moves an order to Canceled. Completed orders cannot be
// canceled.
func (b *Backend) CancelOrder(ctx context.Context, id string) (catalog.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CancelOrder"); err != nil {
		return catalog.Order{}, err
	}
	for i := range b.orders {
		if b.orders[i].ID != id {
			continue
		}
		if b.orders[i].State == catalog.StateCompleted {
			return catalog.Order{}, fmt.Errorf("%w: order %s is completed", catalog.ErrInvalidRequest, id)
		}
		b.orders[i].State = catalog.StateCanceled
		return cloneOrder(b.orders[i]), nil
	}
	return catalog.Order{}, catalog.ErrNotFound
}

// RemovePortfolio deletes a portfolio and its items.
func (b *Backend) RemovePortfolio(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("RemovePortfolio"); err != nil {
		return err
	}
	i := slices.IndexFunc(b.portfolios, func(p catalog.Portfolio) bool { return p.ID == id })
	if i < 0 {
		return catalog.ErrNotFound
	}
	b.portfolios = slices.Delete(b.portfolios, i, i+1)
	b.items = slices.DeleteFunc(b.items, func(it catalog.PortfolioItem) bool { return it.PortfolioID == id })
	return nil
}

// Seed fills b with a small catalog: two portfolios, three items, one
// platform and four orders in distinct states.
func Seed(b *Backend) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b.AddPlatform(catalog.Platform{ID: "plat-1", Name: "Ansible Tower"})

	infra := b.AddPortfolio(catalog.Portfolio{ID: "pf-infra", Name: "Infrastructure", Owner: "alice", CreatedAt: base})
	apps := b.AddPortfolio(catalog.Portfolio{ID: "pf-apps", Name: "Applications", Owner: "bob", CreatedAt: base})

	b.AddPortfolioItem(catalog.PortfolioItem{ID: "pi-vm", Name: "Virtual Machine", PortfolioID: infra.ID, ServiceOfferingSourceRef: "plat-1", CreatedAt: base})
	b.AddPortfolioItem(catalog.PortfolioItem{ID: "pi-db", Name: "Database", PortfolioID: infra.ID, ServiceOfferingSourceRef: "plat-1", CreatedAt: base})
	b.AddPortfolioItem(catalog.PortfolioItem{ID: "pi-wiki", Name: "Wiki", PortfolioID: apps.ID, ServiceOfferingSourceRef: "plat-1", CreatedAt: base})

	b.AddOrder(catalog.Order{ID: "o-1", State: catalog.StateCompleted, Owner: "alice", CreatedAt: base.Add(1 * time.Hour)}, "pi-vm")
	b.AddOrder(catalog.Order{ID: "o-2", State: catalog.StateFailed, Owner: "bob", CreatedAt: base.Add(2 * time.Hour)}, "pi-db")
	b.AddOrder(catalog.Order{ID: "o-3", State: catalog.StateOrdered, Owner: "Alice", CreatedAt: base.Add(3 * time.Hour)}, "pi-wiki")
	b.AddOrder(catalog.Order{ID: "o-4", State: catalog.StateCanceled, Owner: "carol", CreatedAt: base.Add(4 * time.Hour)}, "pi-vm")
}
