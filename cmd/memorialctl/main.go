// Package main provides memorialctl, a command line client for the memorial
// registry API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simp-lee/memorial/cmd/memorialctl/commands"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := commands.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
	if err := commands.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, info); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
