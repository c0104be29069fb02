package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintex/trade-processor/pkg/server"
)

var producerCmd = &cobra.Command{
	Use:   "producer",
	Short: "Runs the trade statistics job producer loop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newServer(server.ModeProducer)
		if err != nil {
			return err
		}

		if err := srv.Start(cmd.Context()); err != nil {
			return fmt.Errorf("producer failed: %w", err)
		}

		log.Info("Producer exited - cya!")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(producerCmd)
}
