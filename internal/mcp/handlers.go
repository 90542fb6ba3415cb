package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

const maxLimit = 1000

type handlers struct {
	source   catalog.Source
	enricher *catalog.Enricher
}

func newHandlers(src catalog.Source) *handlers {
	return &handlers{source: src, enricher: catalog.NewEnricher("", false)}
}

// orderResult is an order with its display fields.
type orderResult struct {
	catalog.Order
	Name         string `json:"name"`
	PlatformName string `json:"platform_name,omitempty"`
	PortfolioID  string `json:"portfolio_id,omitempty"`
}

type listResult[T any] struct {
	Items []T          `json:"data"`
	Meta  listctl.Meta `json:"meta"`
}

func pagination(args map[string]any) listctl.Pagination {
	limit := limitArg(args, "limit", listctl.DefaultLimit)
	if limit == 0 {
		limit = listctl.DefaultLimit
	}
	return listctl.Pagination{Limit: limit, Offset: limitArg(args, "offset", 0)}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// stringsArg extracts an optional list of strings. JSON arrays arrive
// as []any.
func stringsArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func (h *handlers) listOrders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	states, err := stringsArg(args, "state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filters := listctl.Filters{}
	if len(states) > 0 {
		filters[catalog.FieldState] = listctl.Multi(states...)
	}
	if owner := stringArg(args, "owner"); owner != "" {
		filters[catalog.FieldOwner] = listctl.Text(owner)
	}

	for _, load := range h.enricher.Preloads(h.source, maxLimit) {
		if err := load(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
	}

	rs, err := h.source.ListOrders(ctx, listctl.Query{Filters: filters, Pagination: pagination(args)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}

	out := listResult[orderResult]{Items: make([]orderResult, 0, len(rs.Items)), Meta: rs.Meta}
	for _, o := range rs.Items {
		row := h.enricher.Order(o)
		out.Items = append(out.Items, orderResult{
			Order:        o,
			Name:         row.Name,
			PlatformName: row.PlatformName,
			PortfolioID:  row.PortfolioID,
		})
	}
	return jsonResult(out)
}

func (h *handlers) getOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(req.GetArguments(), "id")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	o, err := h.source.GetOrder(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("order %s not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get order failed: %v", err)), nil
	}
	return jsonResult(o)
}

func (h *handlers) listPortfolios(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filters := listctl.Filters{}
	if name := stringArg(args, "name"); name != "" {
		filters[catalog.FieldName] = listctl.Text(name)
	}

	rs, err := h.source.ListPortfolios(ctx, listctl.Query{Filters: filters, Pagination: pagination(args)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(listResult[catalog.Portfolio]{Items: rs.Items, Meta: rs.Meta})
}

func (h *handlers) listPortfolioItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filters := listctl.Filters{}
	if name := stringArg(args, "name"); name != "" {
		filters[catalog.FieldName] = listctl.Text(name)
	}
	if pid := stringArg(args, "portfolio_id"); pid != "" {
		filters[catalog.FieldPortfolio] = listctl.Text(pid)
	}

	rs, err := h.source.ListPortfolioItems(ctx, listctl.Query{Filters: filters, Pagination: pagination(args)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(listResult[catalog.PortfolioItem]{Items: rs.Items, Meta: rs.Meta})
}

func (h *handlers) listPlatforms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platforms, err := h.source.ListPlatforms(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if platforms == nil {
		platforms = []catalog.Platform{}
	}
	return jsonResult(platforms)
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
