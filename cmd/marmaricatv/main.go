// Package main is the entry point for the marmaricatv orchestrator.
package main

import (
	"os"

	"github.com/pokerist/marmaricatv-sub001/cmd/marmaricatv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
