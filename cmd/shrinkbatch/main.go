// Package main is the entry point for the shrinkbatch command.
package main

import (
	"os"

	"github.com/gwlsn/shrinkbatch/cmd/shrinkbatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
