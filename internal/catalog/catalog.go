// Package catalog defines the self-service catalog domain: portfolios,
// the items they offer, and the orders placed against those items.
package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/wesm/catalogview/internal/listctl"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotSupported is returned by backends that cannot perform an
	// operation, such as writes against the offline mirror.
	ErrNotSupported = errors.New("operation not supported by this backend")
)

// Portfolio groups portfolio items for sharing.
type Portfolio struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PortfolioItem is an orderable product inside a portfolio.
type PortfolioItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PortfolioID string `json:"portfolio_id"`
	// ServiceOfferingSourceRef is the id of the platform the item is
	// provisioned on.
	ServiceOfferingSourceRef string    `json:"service_offering_source_ref,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// Platform is a provisioning backend that portfolio items come from.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderItem is one ordered portfolio item.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	PortfolioItemID string          `json:"portfolio_item_id"`
	State           string          `json:"state,omitempty"`
	ExtraData       *OrderItemExtra `json:"extra_data,omitempty"`
}

// OrderItemExtra is the denormalised data standalone deployments embed
// in order items.
type OrderItemExtra struct {
	PortfolioItem *PortfolioItem `json:"portfolio_item,omitempty"`
}

// Order is a request to provision one or more portfolio items.
type Order struct {
	ID                 string      `json:"id"`
	State              string      `json:"state"`
	Owner              string      `json:"owner"`
	CreatedAt          time.Time   `json:"created_at"`
	OrderRequestSentAt *time.Time  `json:"order_request_sent_at,omitempty"`
	ExtraData          *OrderExtra `json:"extra_data,omitempty"`
	// OrderItems is attached by the client; the orders endpoint does not
	// return it.
	OrderItems []OrderItem `json:"order_items,omitempty"`
}

// OrderExtra is the denormalised data standalone deployments embed in
// orders.
type OrderExtra struct {
	OrderItems []OrderItem `json:"order_items,omitempty"`
}

// Order states reported by the catalog.
const (
	StateApprovalPending = "Approval Pending"
	StateCanceled        = "Canceled"
	StateCompleted       = "Completed"
	StateCreated         = "Created"
	StateFailed          = "Failed"
	StateOrdered         = "Ordered"
)

// OrderStates lists every order state in display order.
var OrderStates = []string{
	StateApprovalPending,
	StateCanceled,
	StateCompleted,
	StateCreated,
	StateFailed,
	StateOrdered,
}

// IsOrderState reports whether s is one of OrderStates.
func IsOrderState(s string) bool {
	return slices.Contains(OrderStates, s)
}

// StateLabel normalises the casing of an order state for display
// ("approval_pending" and "APPROVAL PENDING" both become
// "Approval Pending").
func StateLabel(state string) string {
	s := strings.TrimSpace(strings.ReplaceAll(state, "_", " "))
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}

// Source lists catalog collections. Implemented by the remote client
// and the offline mirror.
type Source interface {
	ListOrders(ctx context.Context, q listctl.Query) (listctl.ResultSet[Order], error)
	ListPortfolios(ctx context.Context, q listctl.Query) (listctl.ResultSet[Portfolio], error)
	ListPortfolioItems(ctx context.Context, q listctl.Query) (listctl.ResultSet[PortfolioItem], error)
	ListPlatforms(ctx context.Context) ([]Platform, error)
	GetOrder(ctx context.Context, id string) (Order, error)
}

// Actions performs catalog writes.
type Actions interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, id string) (Order, error)
	RemovePortfolio(ctx context.Context, id string) error
}

// Backend is a Source that can also perform writes.
type Backend interface {
	Source
	Actions
}

// CollectAll pages through fetch until every record matching filters
// has been read.
func CollectAll[T any](ctx context.Context, fetch listctl.Fetcher[T], filters listctl.Filters, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = listctl.DefaultLimit
	}
	var all []T
	q := listctl.Query{Filters: filters, Pagination: listctl.Pagination{Limit: pageSize}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, rs.Items...)
		if len(rs.Items) == 0 || q.Pagination.Offset+len(rs.Items) >= rs.Meta.Count {
			return all, nil
		}
		q.Pagination.Offset += len(rs.Items)
	}
}
