package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/catalogview/internal/config"
)

// newTestRootCmd creates a fresh root command for testing, avoiding mutation
// of the global rootCmd which could cause race conditions in parallel tests.
func newTestRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogview",
		Short: "Browse a self-service catalog from the terminal",
	}
}

// TestExecuteContext_CancellationPropagates verifies that context cancellation
// from ExecuteContext propagates to command handlers.
func TestExecuteContext_CancellationPropagates(t *testing.T) {
	var contextWasCancelled atomic.Bool
	handlerStarted := make(chan struct{})

	testRoot := newTestRootCmd()
	testRoot.AddCommand(&cobra.Command{
		Use: "test-cancel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			close(handlerStarted)
			select {
			case <-ctx.Done():
				contextWasCancelled.Store(true)
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		testRoot.SetArgs([]string{"test-cancel"})
		done <- testRoot.ExecuteContext(ctx)
	}()

	select {
	case <-handlerStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler did not start in time")
	}

	// Simulates SIGINT/SIGTERM
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command did not complete after context cancellation")
	}

	if !contextWasCancelled.Load() {
		t.Error("command handler did not observe context cancellation")
	}
}

func TestIsRemoteMode(t *testing.T) {
	savedCfg, savedLocal := cfg, useLocal
	t.Cleanup(func() { cfg, useLocal = savedCfg, savedLocal })

	tests := []struct {
		name  string
		url   string
		local bool
		want  bool
	}{
		{"no url", "", false, false},
		{"url configured", "https://console.example.com/api/catalog/v1", false, true},
		{"local flag wins", "https://console.example.com/api/catalog/v1", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = config.NewDefaultConfig()
			cfg.Catalog.URL = tt.url
			useLocal = tt.local
			if got := IsRemoteMode(); got != tt.want {
				t.Errorf("IsRemoteMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustBeRemote(t *testing.T) {
	savedCfg, savedLocal := cfg, useLocal
	t.Cleanup(func() { cfg, useLocal = savedCfg, savedLocal })

	cfg = config.NewDefaultConfig()
	useLocal = false
	if err := MustBeRemote("cancel-order"); err == nil {
		t.Error("expected an error without a catalog URL")
	}

	cfg.Catalog.URL = "https://console.example.com/api/catalog/v1"
	useLocal = true
	if err := MustBeRemote("cancel-order"); err == nil {
		t.Error("expected an error with --local")
	}

	useLocal = false
	if err := MustBeRemote("cancel-order"); err != nil {
		t.Errorf("unexpected error in remote mode: %v", err)
	}
}
