package main

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the findings schema and load the sample scan results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.findings.Seed(cmd.Context())
	},
}
