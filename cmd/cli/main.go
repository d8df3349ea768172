// Package main is the entry point for the motor-tariff CLI.
package main

import (
	"os"

	"motor-tariff/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
