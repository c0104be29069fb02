package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintex/trade-processor/pkg/server"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Runs the read-only HTTP query API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newServer(server.ModeAPI)
		if err != nil {
			return err
		}

		if err := srv.Start(cmd.Context()); err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}

		log.Info("API server exited - cya!")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
