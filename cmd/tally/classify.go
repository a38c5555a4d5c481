package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/parser"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Classify a bank export without saving anything",
		Long: `Parse a bank export (CSV, TSV, OFX or QFX) and show the verdict for every
transaction. Nothing is written to the ledger; use 'tally process' for that.

Examples:
  tally classify export.csv --tenant acme
  tally classify statement.ofx --tenant acme --admin   # consider every tenant's rules`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	addTenantFlag(cmd)
	cmd.Flags().Bool("admin", false, "Classify against the rules of every tenant")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	tenantID, err := tenantFlag(cmd)
	if err != nil {
		return err
	}
	admin, _ := cmd.Flags().GetBool("admin")

	txns, err := parser.ParseFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), false)
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	eng, err := newEngine(store, nil, nil)
	if err != nil {
		return err
	}

	outcome := eng.ClassifyBatch(ctx, engine.BatchRequest{
		TenantID:     tenantID,
		Transactions: txns,
		Privileged:   admin,
	})

	out := cmd.OutOrStdout()
	cli.RenderResults(out, txns, outcome.Results)
	fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Summary", summarize(outcome)))
	for _, msg := range outcome.Errors {
		fmt.Fprintln(out, cli.FormatWarning(msg))
	}

	return nil
}

// summarize lists batch totals followed by per-category counts, largest first.
func summarize(outcome engine.BatchOutcome) string {
	stats := outcome.Stats

	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\nClassified: %d (%.1f%%)\nUnclassified: %d\nDuration: %s",
		stats.Total, stats.Classified, stats.Rate(), stats.Unclassified, stats.Duration.Round(time.Millisecond))

	names := categoryNames(outcome.Results)
	ids := make([]string, 0, len(stats.ByCategory))
	for id := range stats.ByCategory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if stats.ByCategory[ids[i]] != stats.ByCategory[ids[j]] {
			return stats.ByCategory[ids[i]] > stats.ByCategory[ids[j]]
		}
		return names[ids[i]] < names[ids[j]]
	})

	for _, id := range ids {
		fmt.Fprintf(&b, "\n  %s: %d", names[id], stats.ByCategory[id])
	}
	return b.String()
}

func categoryNames(results []model.Result) map[string]string {
	names := make(map[string]string)
	for _, r := range results {
		if r.IsClassified {
			names[r.CategoryID] = r.CategoryName
		}
	}
	return names
}
