package remote

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/wesm/catalogview/internal/catalog"
)

type orderItemRequest struct {
	OrderID         string            `json:"order_id"`
	PortfolioItemID string            `json:"portfolio_item_id"`
	Parameters      map[string]string `json:"service_parameters,omitempty"`
}

// SubmitOrder creates an order, adds the requested item and submits it.
func (c *Client) SubmitOrder(ctx context.Context, req catalog.OrderRequest) (catalog.Order, error) {
	if err := req.Validate(); err != nil {
		return catalog.Order{}, err
	}

	var order catalog.Order
	if err := c.do(ctx, "POST", "/orders", nil, struct{}{}, &order); err != nil {
		return catalog.Order{}, eris.Wrap(err, "create order")
	}

	path := "/orders/" + url.PathEscape(order.ID)
	item := orderItemRequest{
		OrderID:         order.ID,
		PortfolioItemID: req.PortfolioItemID,
		Parameters:      req.Parameters,
	}
	var created catalog.OrderItem
	if err := c.do(ctx, "POST", path+"/order_items", nil, item, &created); err != nil {
		return catalog.Order{}, eris.Wrapf(err, "add item to order %s", order.ID)
	}

	var submitted catalog.Order
	if err := c.do(ctx, "POST", path+"/submit_order", nil, nil, &submitted); err != nil {
		return catalog.Order{}, eris.Wrapf(err, "submit order %s", order.ID)
	}
	if len(submitted.OrderItems) == 0 {
		submitted.OrderItems = []catalog.OrderItem{created}
	}
	return submitted, nil
}

// CancelOrder cancels an order that has not completed.
func (c *Client) CancelOrder(ctx context.Context, id string) (catalog.Order, error) {
	var order catalog.Order
	if err := c.do(ctx, "PATCH", "/orders/"+url.PathEscape(id)+"/cancel", nil, nil, &order); err != nil {
		return catalog.Order{}, eris.Wrapf(err, "cancel order %s", id)
	}
	return order, nil
}

// RemovePortfolio deletes a portfolio.
func (c *Client) RemovePortfolio(ctx context.Context, id string) error {
	if err := c.do(ctx, "DELETE", "/portfolios/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return eris.Wrapf(err, "remove portfolio %s", id)
	}
	return nil
}
