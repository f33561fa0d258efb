// ABOUTME: Entry point for pubfeed CLI
// ABOUTME: Initializes and executes root command, mapping run results to exit codes

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
