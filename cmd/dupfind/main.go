package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd := NewRootCommand(setupSignalHandler())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dupfind: %v\n", err)
		os.Exit(1)
	}
}
