// Package main provides the stablecore CLI entry point.
package main

import (
	"os"

	"github.com/stablecore-labs/stablecore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
