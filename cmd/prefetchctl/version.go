package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/prefetchkit/version"
)

// NewVersionCommand returns the command that prints build information.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the prefetchctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "prefetchctl", version.Get().String())
			return err
		},
	}
}
