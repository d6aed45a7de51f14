// Package main is the entry point for the habitd CLI.
package main

import (
	"os"

	"github.com/runger/habitd/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
