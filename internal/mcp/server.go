// Package mcp exposes catalog listings as Model Context Protocol tools.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/catalogview/internal/catalog"
)

// Tool name constants.
const (
	ToolListOrders         = "list_orders"
	ToolGetOrder           = "get_order"
	ToolListPortfolios     = "list_portfolios"
	ToolListPortfolioItems = "list_portfolio_items"
	ToolListPlatforms      = "list_platforms"
)

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withOffset() mcp.ToolOption {
	return mcp.WithNumber("offset",
		mcp.Description("Number of results to skip for pagination (default 0)"),
	)
}

func withName(what string) mcp.ToolOption {
	return mcp.WithString("name",
		mcp.Description("Only "+what+" whose name contains this text (case-insensitive)"),
	)
}

// Serve creates an MCP server with catalog tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, src catalog.Source, version string) error {
	stdio := server.NewStdioServer(NewServer(src, version))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// NewServer returns an MCP server whose tools read from src.
func NewServer(src catalog.Source, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"catalogview",
		version,
		server.WithToolCapabilities(false),
	)

	h := newHandlers(src)

	s.AddTool(listOrdersTool(), h.listOrders)
	s.AddTool(getOrderTool(), h.getOrder)
	s.AddTool(listPortfoliosTool(), h.listPortfolios)
	s.AddTool(listPortfolioItemsTool(), h.listPortfolioItems)
	s.AddTool(listPlatformsTool(), h.listPlatforms)
	return s
}

func listOrdersTool() mcp.Tool {
	return mcp.NewTool(ToolListOrders,
		mcp.WithDescription("List orders, newest first, with the ordered product and platform. Filters combine with AND."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("state",
			mcp.Description("Only orders in any of these states"),
			mcp.Items(map[string]any{"type": "string", "enum": catalog.OrderStates}),
		),
		mcp.WithString("owner",
			mcp.Description("Only orders whose owner contains this text (case-insensitive)"),
		),
		withLimit("50"),
		withOffset(),
	)
}

func getOrderTool() mcp.Tool {
	return mcp.NewTool(ToolGetOrder,
		mcp.WithDescription("Get one order with its order items by order ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Order ID"),
		),
	)
}

func listPortfoliosTool() mcp.Tool {
	return mcp.NewTool(ToolListPortfolios,
		mcp.WithDescription("List portfolios sorted by name."),
		mcp.WithReadOnlyHintAnnotation(true),
		withName("portfolios"),
		withLimit("50"),
		withOffset(),
	)
}

func listPortfolioItemsTool() mcp.Tool {
	return mcp.NewTool(ToolListPortfolioItems,
		mcp.WithDescription("List portfolio items (products) sorted by name."),
		mcp.WithReadOnlyHintAnnotation(true),
		withName("products"),
		mcp.WithString("portfolio_id",
			mcp.Description("Only products in this portfolio"),
		),
		withLimit("50"),
		withOffset(),
	)
}

func listPlatformsTool() mcp.Tool {
	return mcp.NewTool(ToolListPlatforms,
		mcp.WithDescription("List the provisioning platforms products come from."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
