package main

import (
	"github.com/spf13/cobra"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat and artifact API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx, appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		return server.New(a.runner, a.blobs).Run(ctx, appConfig.HTTPAddr)
	},
}
