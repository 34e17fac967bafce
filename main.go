// Package main is the entry point for the katapult server.
package main

import (
	"fmt"
	"os"

	"github.com/km-arc/katapult/cmd"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "katapult:", err)
		os.Exit(1)
	}
}
