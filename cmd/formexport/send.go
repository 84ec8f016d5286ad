package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"formexport/internal/export"
	"formexport/internal/service"
)

func newSendCommand() *cobra.Command {
	var (
		test  bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Export and email the files once",
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

			var result *service.RunResult
			if test {
				if limit > 0 {
					opts.TestLimit = limit
				}
				result, err = a.exports.SendTest(ctx, opts)
			} else {
				result, err = a.exports.RunExportAndSend(ctx, service.TriggerManual, opts, limit)
			}

			var deliveryErr *export.DeliveryError
			if err != nil && !errors.As(err, &deliveryErr) {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d file(s), %d submission(s)\n", result.RunID, len(result.Files), result.Submissions)
			switch {
			case deliveryErr != nil:
				fmt.Fprintf(out, "delivery failed: %v\n", deliveryErr.Err)
			case result.Delivered:
				fmt.Fprintf(out, "sent to %v\n", result.Recipients)
			default:
				fmt.Fprintln(out, "no recipients configured, nothing sent")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "send only to the test address with the test limit")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the N most recent submissions per form")
	return cmd
}
