package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintex/trade-processor/pkg/server"
)

var crawlerCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Runs the block crawler loop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newServer(server.ModeCrawler)
		if err != nil {
			return err
		}

		if err := srv.Start(cmd.Context()); err != nil {
			return fmt.Errorf("crawler failed: %w", err)
		}

		log.Info("Crawler exited - cya!")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlerCmd)
}
