// Package main provides the entry point for the testinator CLI.
package main

import (
	"context"
	"os"

	"github.com/sgeisler/testinator/internal/cli"
)

// Set at build time via ldflags.
//
//nolint:gochecknoglobals // ldflags targets
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx := context.Background()
	os.Exit(cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date}))
}
