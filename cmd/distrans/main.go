// Package main is the entry point for the distrans application.
package main

import (
	"os"

	"github.com/mistvane/distrans/cmd/distrans/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
