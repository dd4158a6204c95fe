// Command prefetchctl runs a prefetching loader over simulated slow items and
// prints the results in key order.
package main

import (
	"os"
)

func main() {
	rootCmd := NewRootCommand()
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
