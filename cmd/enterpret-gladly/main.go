// Package main provides the entry point for the enterpret-gladly CLI.
package main

import (
	"fmt"
	"os"

	"github.com/sayamjn/enterpret-gladly/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
