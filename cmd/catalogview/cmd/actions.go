package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

var (
	assumeYes   bool
	orderParams []string
	orderJSON   bool
)

var showOrderCmd = &cobra.Command{
	Use:   "order <id>",
	Short: "Show one order with its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		o, err := b.GetOrder(ctx, args[0])
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("order %s: %w", args[0], catalog.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}

		enricher := catalog.NewEnricher(b.apiBase, cfg.Catalog.Standalone)
		for _, preload := range enricher.Preloads(b, cfg.List.PageSize) {
			if err := preload(ctx); err != nil {
				return err
			}
		}
		row := enricher.Order(o)

		out := cmd.OutOrStdout()
		if orderJSON {
			return outputJSON(out, row)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID:\t%s\n", row.ID)
		fmt.Fprintf(w, "Name:\t%s\n", row.Name)
		fmt.Fprintf(w, "State:\t%s\n", catalog.StateLabel(row.State))
		fmt.Fprintf(w, "Owner:\t%s\n", row.Owner)
		fmt.Fprintf(w, "Platform:\t%s\n", row.PlatformName)
		fmt.Fprintf(w, "Portfolio:\t%s\n", row.PortfolioID)
		fmt.Fprintf(w, "Created:\t%s\n", formatDate(row.CreatedAt))
		if row.OrderRequestSentAt != nil {
			fmt.Fprintf(w, "Sent:\t%s\n", formatDate(*row.OrderRequestSentAt))
		}
		if row.IconURL != "" {
			fmt.Fprintf(w, "Icon:\t%s\n", row.IconURL)
		}
		w.Flush()

		if len(o.OrderItems) > 0 {
			fmt.Fprintln(out, "\nItems:")
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  ID\tPORTFOLIO ITEM\tSTATE")
			for _, it := range o.OrderItems {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", it.ID, it.PortfolioItemID, catalog.StateLabel(it.State))
			}
			w.Flush()
		}
		return nil
	},
}

var submitOrderCmd = &cobra.Command{
	Use:   "submit-order <portfolio-item-id>",
	Short: "Order a product",
	Long: `Create an order for a product and submit it.

Examples:
  catalogview submit-order 42
  catalogview submit-order 42 --param size=large --param region=eu --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeRemote("submit-order"); err != nil {
			return err
		}
		params, err := parseParams(orderParams)
		if err != nil {
			return err
		}
		req := catalog.OrderRequest{PortfolioItemID: args[0], Parameters: params, Name: args[0]}
		if err := req.Validate(); err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		confirmed, err := confirm(fmt.Sprintf("Order product %s?", args[0]))
		if err != nil {
			return err
		}
		order, outcome, err := newCLIDispatcher(b, cmd.ErrOrStderr()).SubmitOrder(cmd.Context(), req, confirmed)
		if err != nil {
			return err
		}
		if outcome == catalog.OutcomeDone {
			fmt.Fprintln(cmd.OutOrStdout(), order.ID)
		}
		return nil
	},
}

var cancelOrderCmd = &cobra.Command{
	Use:   "cancel-order <id>",
	Short: "Cancel an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeRemote("cancel-order"); err != nil {
			return err
		}
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		confirmed, err := confirm(fmt.Sprintf("Cancel order %s?", args[0]))
		if err != nil {
			return err
		}
		_, _, err = newCLIDispatcher(b, cmd.ErrOrStderr()).CancelOrder(cmd.Context(), args[0], confirmed)
		return err
	},
}

var removePortfolioCmd = &cobra.Command{
	Use:   "remove-portfolio <id>",
	Short: "Remove a portfolio and its products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeRemote("remove-portfolio"); err != nil {
			return err
		}
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		all, err := catalog.CollectAll[catalog.Portfolio](ctx, b.ListPortfolios, nil, cfg.List.PageSize)
		if err != nil {
			return fmt.Errorf("list portfolios: %w", err)
		}
		p, ok := findPortfolio(all, args[0])
		if !ok {
			return fmt.Errorf("portfolio %s not found", args[0])
		}

		confirmed, err := confirm(fmt.Sprintf("Remove portfolio %s and all of its products?", p.Name))
		if err != nil {
			return err
		}
		_, err = newCLIDispatcher(b, cmd.ErrOrStderr()).RemovePortfolio(ctx, p, confirmed)
		return err
	},
}

func findPortfolio(all []catalog.Portfolio, id string) (catalog.Portfolio, bool) {
	for _, p := range all {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Portfolio{}, false
}

// newCLIDispatcher reports action outcomes on w.
func newCLIDispatcher(b catalog.Actions, w io.Writer) *catalog.Dispatcher {
	return catalog.NewDispatcher(b, listctl.NotifierFunc(func(n listctl.Notification) {
		if n.Description != "" {
			fmt.Fprintf(w, "%s: %s\n", n.Title, n.Description)
			return
		}
		fmt.Fprintln(w, n.Title)
	}), logger)
}

// confirm asks the user a yes/no question. --yes answers it up front;
// without a terminal there is nobody to ask.
func confirm(question string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to confirm")
	}
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// parseParams parses repeated key=value flags.
func parseParams(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q (want key=value)", kv)
		}
		params[k] = v
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(showOrderCmd, submitOrderCmd, cancelOrderCmd, removePortfolioCmd)
	showOrderCmd.Flags().BoolVar(&orderJSON, "json", false, "Output as JSON")
	submitOrderCmd.Flags().StringArrayVar(&orderParams, "param", nil, "Service parameter as key=value (repeatable)")
	for _, c := range []*cobra.Command{submitOrderCmd, cancelOrderCmd, removePortfolioCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	}
}
