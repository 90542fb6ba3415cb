package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/config"
)

var (
	cfgFile  string
	verbose  bool
	useLocal bool // Read from the local mirror even when a catalog URL is configured
	cfg      *config.Config
	logger   *slog.Logger
	logFile  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "catalogview",
	Short: "Browse a self-service catalog from the terminal",
	Long: `catalogview browses the orders, portfolios and products of a
self-service catalog API. It offers an interactive terminal UI with
debounced filters and paging, list commands for scripts, an offline
SQLite mirror, a local API server and an MCP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		// The TUI owns the terminal, so it logs to a file instead.
		var out io.Writer = os.Stderr
		if cmd.Name() == "tui" {
			f, err := openLogFile(cfg.LogsDir())
			if err != nil {
				return err
			}
			out, logFile = f, f
		}
		logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
	},
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "catalogview.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.catalogview/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&useLocal, "local", false, "read from the local mirror instead of the catalog API")
}
