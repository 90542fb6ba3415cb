package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wesm/catalogview/internal/catalog"
)

// maxDrafts bounds orders created but never submitted.
const maxDrafts = 1024

type draftOrder struct {
	order catalog.Order
	item  *catalog.OrderItem
	req   catalog.OrderRequest
}

// draftOrders holds orders between creation and submission. The
// backend only sees complete requests.
type draftOrders struct {
	mu     sync.Mutex
	drafts map[string]*draftOrder
	order  []string // creation order, for eviction
}

func newDraftOrders() *draftOrders {
	return &draftOrders{drafts: make(map[string]*draftOrder)}
}

func (d *draftOrders) create(owner string) catalog.Order {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.order) >= maxDrafts {
		delete(d.drafts, d.order[0])
		d.order = d.order[1:]
	}

	o := catalog.Order{
		ID:        uuid.NewString(),
		State:     catalog.StateCreated,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
	d.drafts[o.ID] = &draftOrder{order: o}
	d.order = append(d.order, o.ID)
	return o
}

// addItem sets the draft's item. Orders carry a single item; a second
// call replaces the first.
func (d *draftOrders) addItem(orderID string, req catalog.OrderRequest) (catalog.OrderItem, error) {
	if err := req.Validate(); err != nil {
		return catalog.OrderItem{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	draft, ok := d.drafts[orderID]
	if !ok {
		return catalog.OrderItem{}, catalog.ErrNotFound
	}
	item := catalog.OrderItem{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		PortfolioItemID: req.PortfolioItemID,
		State:           catalog.StateCreated,
	}
	draft.item = &item
	draft.req = req
	return item, nil
}

// take removes a draft that has an item.
func (d *draftOrders) take(orderID string) (catalog.OrderRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	draft, ok := d.drafts[orderID]
	if !ok {
		return catalog.OrderRequest{}, catalog.ErrNotFound
	}
	if draft.item == nil {
		return catalog.OrderRequest{}, catalog.ErrInvalidRequest
	}
	delete(d.drafts, orderID)
	for i, id := range d.order {
		if id == orderID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return draft.req, nil
}

func (d *draftOrders) get(orderID string) (catalog.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft, ok := d.drafts[orderID]
	if !ok {
		return catalog.Order{}, false
	}
	o := draft.order
	if draft.item != nil {
		o.OrderItems = []catalog.OrderItem{*draft.item}
	}
	return o, true
}
