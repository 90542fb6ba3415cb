package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/api"
	"github.com/wesm/catalogview/internal/mirror"
	"github.com/wesm/catalogview/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API locally with scheduled mirror syncs",
	Long: `Run catalogview as a long-running daemon.

The daemon runs in the foreground and performs:
  - HTTP API server on the configured port (default: 8181) exposing the
    catalog API routes under /api/catalog/v1
  - Scheduled mirror syncs when [sync] schedule is set

With --local, or when no catalog URL is configured, the API serves the
local mirror (read-only). Otherwise it forwards to the catalog API.

Configure in config.toml:
  [server]
  port = 8181
  token = "secret"          # required when bind_addr is not loopback

  [sync]
  schedule = "*/15 * * * *" # cron format

Use Ctrl+C to stop the daemon gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.Sync.Schedule != "" {
		var closeMirror func() error
		sched, closeMirror, err = newMirrorScheduler()
		if err != nil {
			return err
		}
		defer closeMirror()
		sched.Start()
	}

	var schedAPI api.SyncScheduler
	if sched != nil {
		schedAPI = sched
	}
	apiServer := api.NewServer(cfg, b, schedAPI, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "catalogview daemon started\n")
	fmt.Fprintf(out, "  API server: http://%s%s\n", net.JoinHostPort(cfg.Server.BindAddr, strconv.Itoa(cfg.Server.Port)), api.BasePath)
	if IsRemoteMode() {
		fmt.Fprintf(out, "  Catalog: %s\n", b.apiBase)
	} else {
		fmt.Fprintf(out, "  Catalog: local mirror %s\n", cfg.DatabasePath())
	}
	if sched != nil {
		st := sched.Status()
		fmt.Fprintf(out, "  Mirror sync: %s, next at %s\n", st.Schedule, st.NextRun.Local().Format("2006-01-02 15:04:05"))
		if st.LastSyncID != 0 {
			fmt.Fprintf(out, "  Last sync: #%d %s\n", st.LastSyncID, st.LastStatus)
		}
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop.")

	select {
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		fmt.Fprintf(out, "\nAPI server error: %v\n", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		fmt.Fprintln(out, "\nShutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	if sched != nil {
		fmt.Fprintln(out, "Waiting for running syncs to complete...")
		select {
		case <-sched.Stop().Done():
		case <-time.After(30 * time.Second):
			fmt.Fprintln(out, "Shutdown timed out after 30 seconds.")
		}
	}
	return nil
}

// newMirrorScheduler schedules mirror syncs from the catalog API. The
// mirror it opens records each run and backs the schedule status; the
// returned func closes it.
func newMirrorScheduler() (*scheduler.Scheduler, func() error, error) {
	client, err := openClient()
	if err != nil {
		return nil, nil, fmt.Errorf("[sync] schedule needs the catalog API: %w", err)
	}
	s, err := openMirror()
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeAll := func() error {
		_ = client.Close()
		return s.Close()
	}

	sched := scheduler.New(func(ctx context.Context) error {
		_, err := runMirrorSync(ctx, client, s, mirror.NullProgress{})
		return err
	}).WithLogger(logger).WithHistory(s)
	if _, err := sched.ScheduleFromConfig(cfg); err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	return sched, closeAll, nil
}
