package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func reclassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Retry unassigned transactions against a tenant's current rules",
		Long: `Load transactions that no rule matched when they were processed and
classify them again with the tenant's current rules. Matches are saved;
the rest stay unassigned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := tenantFlag(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), false)
			defer stop()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			eng, err := newEngine(store, cli.NewProgressBar(cmd.ErrOrStderr(), "Reclassifying..."), nil)
			if err != nil {
				return err
			}

			result, err := eng.Reclassify(ctx, tenantID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cli.RenderBatchResult(out, result)
			for _, msg := range result.Errors {
				fmt.Fprintln(out, cli.FormatWarning(msg))
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d transactions newly assigned", result.ClassifiedCount)))
			return nil
		},
	}

	addTenantFlag(cmd)
	cmd.Flags().Int("limit", 0, "Maximum transactions to load (default: classification.reclassify_limit)")

	return cmd
}
