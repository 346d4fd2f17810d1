package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screenctl",
		Short: "Offline instrument screening",
		Long: "screenctl screens instruments from a YAML dataset against the BDS, defense,\n" +
			"surveillance and shariah policies and prints the results as JSON.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newScreenCmd())
	root.AddCommand(newValidateConfigCmd())
	root.Version = version
	return root
}
