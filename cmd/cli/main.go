// Package main is the entry point for the cronctl CLI.
package main

import (
	"os"

	"cronplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
