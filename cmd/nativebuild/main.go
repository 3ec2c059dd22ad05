// Command nativebuild builds the native library, its optional GPU kernels and
// the optional bundled compiler library.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Signals that cancel a running build.
var cancelSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	// Use a minimal logger until the run configures the real one.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), cancelSignals...)
	code := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	os.Exit(code)
}
