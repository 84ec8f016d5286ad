package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one CSV per form for the configured window and print the paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			opts, err := a.options.Load(ctx)
			if err != nil {
				return err
			}

			files, err := a.exports.RunExport(ctx, opts, limit)
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the N most recent submissions per form (0 = all)")
	return cmd
}
