package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/clock"
	"github.com/wesm/catalogview/internal/listctl"
	"github.com/wesm/catalogview/internal/tui"
)

var tuiViewToken string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open an interactive terminal UI for browsing the catalog.

Views:
  1 Orders       filter by state (checkboxes) or owner
  2 Portfolios   filter by name
  3 Products     filter by name or portfolio id

Filtering:
  /           Edit the active filter (typing is debounced)
  f           Cycle the active filter field
  x           Remove the last filter chip
  c           Clear all filters

Navigation:
  ↑/k, ↓/j    Move up/down
  n, p        Next / previous page
  Tab, 1-3    Switch view
  r           Reload the current page
  d           Cancel the order / remove the portfolio under the cursor
  y           Show a token that reopens the current filters (--view)
  q           Quit

Reads from the catalog API when [catalog] url is configured, otherwise
from the local mirror written by 'catalogview sync'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := listctl.ParseLocation(tuiViewToken)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		model, err := tui.New(b, tui.Options{
			Version:      Version,
			APIBase:      b.apiBase,
			Standalone:   cfg.Catalog.Standalone,
			PageSize:     cfg.List.PageSize,
			DebounceWait: cfg.DebounceWait(),
			DiscardStale: cfg.List.DiscardStale,
			Location:     loc,
			Clock:        clock.Real(),
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer model.Close()

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&tuiViewToken, "view", "", "view token to reopen (press y in the TUI to get one)")
}
