// Package main provides the entry point for the gujimcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/gujimcp/cmd/gujimcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
