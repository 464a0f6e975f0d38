package cmd

import (
	"fmt"
	"os"
)

// info prints to stdout unless quiet
func info(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Printf(format+"\n", args...)
}

// errorf prints to stderr regardless of verbosity
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
