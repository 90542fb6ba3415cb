package remote

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// Compile-time check that Client implements catalog.Backend.
var _ catalog.Backend = (*Client)(nil)

// listPage fetches one page of a collection and fills NoDataAtAll. When
// a filtered page comes back empty an unfiltered request tells "nothing
// matches" apart from "nothing exists".
func listPage[T any](ctx context.Context, c *Client, path string, params map[string]catalog.APIFilter, q listctl.Query, sortBy string) (listctl.ResultSet[T], error) {
	var rs listctl.ResultSet[T]
	if err := c.do(ctx, "GET", path, catalog.EncodeQuery(params, q, sortBy), nil, &rs); err != nil {
		return listctl.ResultSet[T]{}, err
	}
	if rs.Meta.Limit == 0 {
		rs.Meta.Limit = q.Pagination.Limit
		rs.Meta.Offset = q.Pagination.Offset
	}
	if len(rs.Items) > 0 || rs.Meta.Count > 0 {
		return rs, nil
	}

	if !catalog.HasActiveFilters(params, q.Filters) {
		rs.Meta.NoDataAtAll = true
		return rs, nil
	}

	unfiltered := listctl.Query{Pagination: listctl.Pagination{Limit: 1}}
	var all listctl.ResultSet[T]
	if err := c.do(ctx, "GET", path, catalog.EncodeQuery(params, unfiltered, ""), nil, &all); err != nil {
		return listctl.ResultSet[T]{}, eris.Wrap(err, "check for unfiltered records")
	}
	rs.Meta.NoDataAtAll = all.Meta.Count == 0 && len(all.Items) == 0
	return rs, nil
}

// ListOrders fetches a page of orders, newest first, with their order
// items attached.
func (c *Client) ListOrders(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Order], error) {
	rs, err := listPage[catalog.Order](ctx, c, "/orders", catalog.OrderAPIFilters, q, "created_at:desc")
	if err != nil {
		return rs, err
	}
	if err := c.attachOrderItems(ctx, rs.Items); err != nil {
		return listctl.ResultSet[catalog.Order]{}, err
	}
	return rs, nil
}

var orderItemFilters = map[string]catalog.APIFilter{"order_id": {Field: "order_id", Op: "eq"}}

// attachOrderItems loads the order items of orders, paging until every
// item has been read.
func (c *Client) attachOrderItems(ctx context.Context, orders []catalog.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	fetch := func(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.OrderItem], error) {
		var rs listctl.ResultSet[catalog.OrderItem]
		err := c.do(ctx, "GET", "/order_items", catalog.EncodeQuery(orderItemFilters, q, ""), nil, &rs)
		return rs, err
	}
	items, err := catalog.CollectAll[catalog.OrderItem](ctx, fetch, listctl.Filters{"order_id": {Values: ids}}, 100)
	if err != nil {
		return eris.Wrap(err, "load order items")
	}
	for _, it := range items {
		if i, ok := index[it.OrderID]; ok {
			orders[i].OrderItems = append(orders[i].OrderItems, it)
		}
	}
	return nil
}

// GetOrder fetches one order with its order items.
func (c *Client) GetOrder(ctx context.Context, id string) (catalog.Order, error) {
	var o catalog.Order
	if err := c.do(ctx, "GET", "/orders/"+url.PathEscape(id), nil, nil, &o); err != nil {
		return catalog.Order{}, eris.Wrapf(err, "get order %s", id)
	}
	orders := []catalog.Order{o}
	if err := c.attachOrderItems(ctx, orders); err != nil {
		return catalog.Order{}, err
	}
	return orders[0], nil
}

// ListPortfolios fetches a page of portfolios.
func (c *Client) ListPortfolios(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Portfolio], error) {
	return listPage[catalog.Portfolio](ctx, c, "/portfolios", catalog.PortfolioAPIFilters, q, "name:asc")
}

// ListPortfolioItems fetches a page of portfolio items.
func (c *Client) ListPortfolioItems(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.PortfolioItem], error) {
	return listPage[catalog.PortfolioItem](ctx, c, "/portfolio_items", catalog.PortfolioItemAPIFilters, q, "name:asc")
}

// ListPlatforms fetches every platform.
func (c *Client) ListPlatforms(ctx context.Context) ([]catalog.Platform, error) {
	fetch := func(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Platform], error) {
		var rs listctl.ResultSet[catalog.Platform]
		err := c.do(ctx, "GET", "/platforms", catalog.EncodeQuery(nil, q, ""), nil, &rs)
		return rs, err
	}
	platforms, err := catalog.CollectAll[catalog.Platform](ctx, fetch, nil, 100)
	if err != nil {
		return nil, eris.Wrap(err, "list platforms")
	}
	return platforms, nil
}
