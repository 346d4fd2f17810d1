package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"screener/internal/screening/engine"
)

func newValidateConfigCmd() *cobra.Command {
	var printEffective bool
	cmd := &cobra.Command{
		Use:   "validate-config [PATH]",
		Short: "Check an engine config overlay",
		Long:  "Loads PATH over the built-in defaults and validates the result. With no PATH the defaults are checked.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := engine.LoadConfig(path)
			if err != nil {
				return err
			}
			if printEffective {
				return writeJSON(cmd.OutOrStdout(), cfg, false)
			}
			if path == "" {
				path = "defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printEffective, "print", false, "print the effective config as JSON")
	return cmd
}
