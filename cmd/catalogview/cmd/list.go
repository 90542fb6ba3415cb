package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

var (
	listLimit     int
	listOffset    int
	listJSON      bool
	listStates    []string
	listOwner     string
	listName      string
	listPortfolio string
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders, newest first",
	Long: `List orders with their product name and platform.

Examples:
  catalogview orders --state Failed --state Ordered
  catalogview orders --owner alice --limit 20
  catalogview orders --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, s := range listStates {
			if !catalog.IsOrderState(s) {
				return fmt.Errorf("unknown order state %q (want one of %s)", s, strings.Join(catalog.OrderStates, ", "))
			}
		}

		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		enricher := catalog.NewEnricher(b.apiBase, cfg.Catalog.Standalone)
		for _, preload := range enricher.Preloads(b, cfg.List.PageSize) {
			if err := preload(ctx); err != nil {
				return err
			}
		}

		rs, err := b.ListOrders(ctx, listQuery(listctl.Filters{
			catalog.FieldState: listctl.Multi(listStates...),
			catalog.FieldOwner: listctl.Text(listOwner),
		}))
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		rows := make([]catalog.OrderRow, len(rs.Items))
		for i, o := range rs.Items {
			rows[i] = enricher.Order(o)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			return outputJSON(out, listctl.ResultSet[catalog.OrderRow]{Items: rows, Meta: rs.Meta})
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, emptyText(catalog.ViewOrders, rs))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATE\tOWNER\tPLATFORM\tCREATED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, truncate(r.Name, 40), catalog.StateLabel(r.State), r.Owner, r.PlatformName, formatDate(r.CreatedAt))
		}
		w.Flush()
		printPageFooter(out, rs.Meta)
		return nil
	},
}

var portfoliosCmd = &cobra.Command{
	Use:   "portfolios",
	Short: "List portfolios by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		rs, err := b.ListPortfolios(cmd.Context(), listQuery(listctl.Filters{
			catalog.FieldName: listctl.Text(listName),
		}))
		if err != nil {
			return fmt.Errorf("list portfolios: %w", err)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			return outputJSON(out, rs)
		}
		if len(rs.Items) == 0 {
			fmt.Fprintln(out, emptyText(catalog.ViewPortfolios, rs))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tOWNER\tDESCRIPTION\tCREATED")
		for _, p := range rs.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID, truncate(p.Name, 40), p.Owner, truncate(p.Description, 50), formatDate(p.CreatedAt))
		}
		w.Flush()
		printPageFooter(out, rs.Meta)
		return nil
	},
}

var portfolioItemsCmd = &cobra.Command{
	Use:     "portfolio-items",
	Aliases: []string{"products"},
	Short:   "List products (portfolio items)",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		enricher := catalog.NewEnricher(b.apiBase, cfg.Catalog.Standalone)
		if err := enricher.PlatformsPreload(b)(ctx); err != nil {
			return err
		}

		rs, err := b.ListPortfolioItems(ctx, listQuery(listctl.Filters{
			catalog.FieldName:      listctl.Text(listName),
			catalog.FieldPortfolio: listctl.Text(listPortfolio),
		}))
		if err != nil {
			return fmt.Errorf("list portfolio items: %w", err)
		}
		rows := make([]catalog.PortfolioItemRow, len(rs.Items))
		for i, it := range rs.Items {
			rows[i] = enricher.PortfolioItem(it)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			return outputJSON(out, listctl.ResultSet[catalog.PortfolioItemRow]{Items: rows, Meta: rs.Meta})
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, emptyText(catalog.ViewPortfolioItems, rs))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPORTFOLIO\tPLATFORM\tDESCRIPTION")
		for _, it := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				it.ID, truncate(it.Name, 40), it.PortfolioID, it.PlatformName, truncate(it.Description, 50))
		}
		w.Flush()
		printPageFooter(out, rs.Meta)
		return nil
	},
}

func listQuery(f listctl.Filters) listctl.Query {
	return listctl.Query{
		Filters:    f,
		Pagination: listctl.Pagination{Limit: listLimit, Offset: listOffset},
	}
}

// emptyText explains an empty listing the way the TUI does.
func emptyText[T any](view string, rs listctl.ResultSet[T]) string {
	title, body := catalog.EmptyMessage(view, listctl.SelectEmptyState(rs.Meta, len(rs.Items), false))
	if title == "" {
		return "Nothing to show."
	}
	return title + ". " + body
}

func printPageFooter(w io.Writer, m listctl.Meta) {
	page, pages := m.Page()
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page, pages, m.Count)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to max terminal cells.
func truncate(s string, max int) string {
	return runewidth.Truncate(strings.ReplaceAll(s, "\n", " "), max, "...")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&listLimit, "limit", "n", listctl.DefaultLimit, "Maximum number of results")
	cmd.Flags().IntVar(&listOffset, "offset", 0, "Number of results to skip")
	cmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

func init() {
	for _, c := range []*cobra.Command{ordersCmd, portfoliosCmd, portfolioItemsCmd} {
		addListFlags(c)
		rootCmd.AddCommand(c)
	}
	ordersCmd.Flags().StringSliceVar(&listStates, "state", nil, "Filter by order state (repeatable)")
	ordersCmd.Flags().StringVar(&listOwner, "owner", "", "Filter by owner (substring)")
	portfoliosCmd.Flags().StringVar(&listName, "name", "", "Filter by name (substring)")
	portfolioItemsCmd.Flags().StringVar(&listName, "name", "", "Filter by name (substring)")
	portfolioItemsCmd.Flags().StringVar(&listPortfolio, "portfolio", "", "Filter by portfolio id")
}
