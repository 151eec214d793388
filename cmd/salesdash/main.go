// Package main provides the salesdash CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/salesdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
