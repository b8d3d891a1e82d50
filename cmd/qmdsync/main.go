// Package main provides the entry point for the qmdsync CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/qmdsync/cmd/qmdsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
