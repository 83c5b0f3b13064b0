// Package main is the entry point for the charlie CLI.
package main

import (
	"os"

	"github.com/charlielabs/charlie/cmd/charlie/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
