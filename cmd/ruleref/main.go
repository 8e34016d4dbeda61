package main

import (
	"github.com/ruleref/ruleref/internal/interface/cli"
)

// Version information (injected at build time via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
