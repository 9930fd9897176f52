// Package main is the entry point for the automation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/lumabook/automation/cmd/automation/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
