// Package main provides the entry point for the reqsketch CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/reqsketch/cmd/reqsketch/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
