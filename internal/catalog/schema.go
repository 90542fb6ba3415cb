package catalog

import "github.com/wesm/catalogview/internal/listctl"

// Filter field names.
const (
	FieldState     = "state"
	FieldOwner     = "owner"
	FieldName      = "name"
	FieldPortfolio = "portfolio"
)

// View names, used for log context and view tokens.
const (
	ViewOrders         = "orders"
	ViewPortfolios     = "portfolios"
	ViewPortfolioItems = "portfolio_items"
)

// OrdersSchema filters orders by state (checkboxes) and owner (text).
var OrdersSchema = listctl.MustSchema(
	listctl.Field{Name: FieldState, Label: "State", Kind: listctl.KindMulti, Options: stateOptions()},
	listctl.Field{Name: FieldOwner, Label: "Owner", Kind: listctl.KindScalar},
)

// PortfoliosSchema filters portfolios by name.
var PortfoliosSchema = listctl.MustSchema(
	listctl.Field{Name: FieldName, Label: "Name", Kind: listctl.KindScalar},
)

// PortfolioItemsSchema filters portfolio items by name and owning
// portfolio id.
var PortfolioItemsSchema = listctl.MustSchema(
	listctl.Field{Name: FieldName, Label: "Name", Kind: listctl.KindScalar},
	listctl.Field{Name: FieldPortfolio, Label: "Portfolio", Kind: listctl.KindScalar},
)

func stateOptions() []listctl.Option {
	opts := make([]listctl.Option, len(OrderStates))
	for i, s := range OrderStates {
		opts[i] = listctl.Option{Value: s, Label: StateLabel(s)}
	}
	return opts
}

// EmptyMessage returns the title and body shown for an empty list.
func EmptyMessage(view string, e listctl.EmptyState) (title, body string) {
	switch e {
	case listctl.EmptyNoData:
		switch view {
		case ViewPortfolios:
			return "No portfolios", "No portfolios have been created yet."
		case ViewPortfolioItems:
			return "No products", "No products have been added to any portfolio yet."
		default:
			return "No orders", "No orders have been created."
		}
	case listctl.EmptyNoResults:
		return "No results found", "No results match the filter criteria. Remove all filters or clear all filters to show results."
	}
	return "", ""
}
