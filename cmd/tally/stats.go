package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a tenant's classification statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tenantID, err := tenantFlag(cmd)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			stats, err := store.GetClassificationStats(ctx, tenantID)
			if err != nil {
				return err
			}
			counts, err := store.GetCategoryCounts(ctx, tenantID)
			if err != nil {
				return err
			}

			rows := make([]cli.CategoryCount, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, cli.CategoryCount{Name: c.Name, Count: c.Count})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Classification stats for "+tenantID))
			cli.RenderStats(out, stats, rows)
			return nil
		},
	}

	addTenantFlag(cmd)

	return cmd
}
