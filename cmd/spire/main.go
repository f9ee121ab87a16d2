// Package main is the entry point for the spire CLI.
//
// spire configures the supervisor nodes of a homeworld cluster over SSH.
// Every setup step is a named procedure that queues remote operations and
// runs them in order, stopping at the first failure.
//
// Commands: setup <procedure>, hosts, version.
//
// For detailed usage information, run:
//
//	spire --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/spire/cmd/spire/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
