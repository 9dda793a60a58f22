// Package main provides the CLI for the Lumagraph image pipeline workbench.
package main

import (
	"os"

	"github.com/lumagraph-labs/lumagraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
