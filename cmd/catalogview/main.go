package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesm/catalogview/cmd/catalogview/cmd"
	"github.com/wesm/catalogview/internal/catalog"
)

const (
	exitCodeError       = 1
	exitCodeNotFound    = 3
	exitCodeUnsupported = 4
	exitCodeInterrupted = 130 // 128 + SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := exitCode(ctx, cmd.ExecuteContext(ctx))
	cancel()
	os.Exit(code)
}

// exitCode maps the error a command returned to the process status.
// Scripts can tell a missing record or a write against the read-only
// mirror apart from other failures.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return exitCodeInterrupted
	case errors.Is(err, catalog.ErrNotFound):
		return exitCodeNotFound
	case errors.Is(err, catalog.ErrNotSupported):
		return exitCodeUnsupported
	}
	return exitCodeError
}
