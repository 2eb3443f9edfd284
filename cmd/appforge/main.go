// Package main provides the entry point for the AppForge service.
package main

import (
	"fmt"
	"os"

	"github.com/appforge-ai/appforge/cmd/appforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
