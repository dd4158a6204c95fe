package main

import (
	"github.com/spf13/cobra"
)

const configFlag = "config"

// NewRootCommand returns the top-level command. Subcommands read a YAML file
// given with --config, then PREFETCH_-prefixed environment variables, then
// their own flags, each overriding the last.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefetchctl",
		Short: "Run and inspect bounded-lookahead prefetching loaders",
		Long: `prefetchctl drives a prefetching loader: a fixed pool of workers computes
items for keys drawn from a source, keeping workers × prefetch-factor items in
flight while results are consumed strictly in key order.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(configFlag, "", "path to a YAML config file")
	return cmd
}
