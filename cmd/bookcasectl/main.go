// Command bookcasectl is the operator tool for a Bookcase data directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookcaseapp/bookcase-server/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
