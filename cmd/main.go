package main

import (
	"fmt"
	"os"

	"github.com/ViolaAI/viola-crowdsale/cmd/viola/launcher"
)

func main() {

	// Gather the full list of command-line arguments
	arguments := os.Args

	err := launcher.Launch(arguments)

	if err != nil {

		// Report the issue to stderr so the operator sees it
		fmt.Fprintln(os.Stderr, "Error:", err)

		os.Exit(1)
	}
}
