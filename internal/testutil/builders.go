package testutil

import (
	"fmt"
	"time"

	"github.com/wesm/catalogview/internal/catalog"
)

// OrderBuilder provides a fluent API for constructing catalog.Order in tests.
type OrderBuilder struct {
	o catalog.Order
}

// NewOrder creates a builder with sensible defaults.
func NewOrder(id string) *OrderBuilder {
	return &OrderBuilder{
		o: catalog.Order{
			ID:        id,
			State:     catalog.StateCreated,
			Owner:     "owner",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *OrderBuilder) WithState(s string) *OrderBuilder {
	b.o.State = s
	return b
}

func (b *OrderBuilder) WithOwner(o string) *OrderBuilder {
	b.o.Owner = o
	return b
}

func (b *OrderBuilder) WithCreatedAt(t time.Time) *OrderBuilder {
	b.o.CreatedAt = t
	return b
}

// WithSentAt sets OrderRequestSentAt, handling pointer conversion internally.
func (b *OrderBuilder) WithSentAt(t time.Time) *OrderBuilder {
	b.o.OrderRequestSentAt = &t
	return b
}

// WithItems adds one order item per portfolio item id. Item ids are
// derived from the order id.
func (b *OrderBuilder) WithItems(portfolioItemIDs ...string) *OrderBuilder {
	for _, pid := range portfolioItemIDs {
		b.o.OrderItems = append(b.o.OrderItems, catalog.OrderItem{
			ID:              fmt.Sprintf("%s-item-%d", b.o.ID, len(b.o.OrderItems)+1),
			OrderID:         b.o.ID,
			PortfolioItemID: pid,
			State:           b.o.State,
		})
	}
	return b
}

// WithEmbeddedItems copies the order items into ExtraData the way
// standalone deployments return them.
func (b *OrderBuilder) WithEmbeddedItems() *OrderBuilder {
	b.o.ExtraData = &catalog.OrderExtra{OrderItems: append([]catalog.OrderItem(nil), b.o.OrderItems...)}
	return b
}

func (b *OrderBuilder) Build() catalog.Order {
	return b.o
}

// PortfolioItemBuilder provides a fluent API for constructing
// catalog.PortfolioItem in tests.
type PortfolioItemBuilder struct {
	it catalog.PortfolioItem
}

// NewPortfolioItem creates a builder with sensible defaults.
func NewPortfolioItem(id, portfolioID string) *PortfolioItemBuilder {
	return &PortfolioItemBuilder{
		it: catalog.PortfolioItem{
			ID:          id,
			Name:        "Item " + id,
			PortfolioID: portfolioID,
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *PortfolioItemBuilder) WithName(n string) *PortfolioItemBuilder {
	b.it.Name = n
	return b
}

func (b *PortfolioItemBuilder) WithDescription(d string) *PortfolioItemBuilder {
	b.it.Description = d
	return b
}

func (b *PortfolioItemBuilder) WithPlatform(id string) *PortfolioItemBuilder {
	b.it.ServiceOfferingSourceRef = id
	return b
}

func (b *PortfolioItemBuilder) Build() catalog.PortfolioItem {
	return b.it
}
