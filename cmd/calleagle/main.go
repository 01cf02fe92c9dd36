// Package main is the entry point for the calleagle CLI.
package main

import (
	"fmt"
	"os"

	"github.com/imyousuf/CallEagle/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
