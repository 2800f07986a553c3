// Package main is the entry point for ppcpctl, the maintenance CLI that works
// directly on the configured entry store.
package main

import (
	"os"

	"ppcp-backend/cmd/ppcpctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
