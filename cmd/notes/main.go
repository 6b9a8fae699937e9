// Package main is the entry point for the notes binary.
//
// The main package is kept minimal: it sets up signal handling and hands
// over to internal/cli, where every command (server, add, list, import,
// export, db backup) lives. Settings and logging are the commands' job.
//
// SIGNALS:
// signal.NotifyContext returns a context that is cancelled on Ctrl+C
// (SIGINT) or SIGTERM. The server command shuts down gracefully when it
// sees the cancellation; short commands just abort their database work.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/notes/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx)

	// os.Exit skips deferred calls, so release the signal handler first.
	stop()
	os.Exit(code)
}
