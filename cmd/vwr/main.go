// Package main is the entry point for the vwr CLI tool.
package main

import (
	"os"

	"github.com/trylock/viewer-sub003/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
