package main

import (
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "feeder",
		Short:        "Automatic pet feeder service: meal schedules, feed now and device pairing",
		Version:      Version + " (" + CommitSHA + ")",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newNextCmd())
	root.AddCommand(newCountdownCmd())

	return root
}
