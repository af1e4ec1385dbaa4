// Package main provides the entry point for the rspecgen CLI.
package main

import (
	"os"

	"github.com/A-iswarya/RspecGeneratorPublic/cmd/rspecgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
