package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/mirror"
	"github.com/wesm/catalogview/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the catalog into the local mirror",
	Long: `Read every order, portfolio, product and platform from the catalog API
and replace the local SQLite mirror with them in one transaction.

The mirror backs --local and is used automatically when no catalog URL
is configured. Run it on a schedule with 'catalogview serve' and
[sync] schedule in config.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		s, err := openMirror()
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Syncing %s\n", client.BaseURL())
		summary, err := runMirrorSync(cmd.Context(), client, s, &CLIProgress{w: out})
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		fmt.Fprintf(out, "Done in %s.\n", formatDuration(summary.Duration))
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "sync-status",
	Short: "Show the last mirror sync and mirror size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openMirror()
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		run, err := s.LastSync()
		if err != nil {
			return fmt.Errorf("last sync: %w", err)
		}
		if run == nil {
			fmt.Fprintln(out, "The mirror has never been synced. Run 'catalogview sync'.")
			return nil
		}
		fmt.Fprintf(out, "Last sync:  #%d %s at %s\n", run.ID, run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if run.ErrorMessage.Valid {
			fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage.String)
		}

		stats, err := s.GetStats()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fmt.Fprintf(out, "Orders:     %d\n", stats.OrderCount)
		fmt.Fprintf(out, "Portfolios: %d\n", stats.PortfolioCount)
		fmt.Fprintf(out, "Products:   %d\n", stats.PortfolioItemCount)
		fmt.Fprintf(out, "Platforms:  %d\n", stats.PlatformCount)
		fmt.Fprintf(out, "Size:       %s\n", formatSize(stats.DatabaseSize))
		return nil
	},
}

func runMirrorSync(ctx context.Context, src catalog.Source, s *store.Store, progress mirror.Progress) (*mirror.Summary, error) {
	opts := mirror.DefaultOptions()
	opts.PageSize = cfg.Sync.PageSize
	return mirror.New(src, s, opts).
		WithLogger(logger).
		WithProgress(progress).
		Run(ctx)
}

// CLIProgress implements mirror.Progress for terminal output.
type CLIProgress struct {
	w  io.Writer
	mu sync.Mutex
}

func (p *CLIProgress) OnCollection(name string, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  %-16s %d\n", name, count)
}

func (p *CLIProgress) OnComplete(summary *mirror.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := summary.Counts
	fmt.Fprintf(p.w, "Mirrored %d orders, %d portfolios, %d products, %d platforms (sync #%d).\n",
		c.Orders, c.Portfolios, c.PortfolioItems, c.Platforms, summary.SyncID)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// formatSize formats a byte count as a human-readable string (e.g., "1.5 KB").
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(syncCmd, syncStatusCmd)
}
