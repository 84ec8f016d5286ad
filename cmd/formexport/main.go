package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "formexport",
		Short:        "Export form submissions to CSV and email them on a schedule",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newExportCommand(),
		newSendCommand(),
		newHashPasswordCommand(),
	)
	return root
}
