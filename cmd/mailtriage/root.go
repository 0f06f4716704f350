package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mailtriage",
		Short:         "Classify inbound mail and send drafted replies",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(
		runCmd(),
		sendTestCmd(),
	)
	return cmd
}
