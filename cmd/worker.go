package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintex/trade-processor/pkg/server"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the queue consumer for trade statistics and block jobs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newServer(server.ModeWorker)
		if err != nil {
			return err
		}

		if err := srv.Start(cmd.Context()); err != nil {
			return fmt.Errorf("worker failed: %w", err)
		}

		log.Info("Worker exited - cya!")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
