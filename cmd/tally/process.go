package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/metrics"
	"github.com/Veraticus/tally/internal/parser"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Classify a bank export and save the results",
		Long: `Parse a bank export, classify it in groups and save every group to the
ledger as soon as it is classified. Unmatched transactions are saved
unassigned so 'tally reclassify' can pick them up after rules change.

Examples:
  tally process export.csv --tenant acme
  tally process export.csv --tenant acme --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}

	addTenantFlag(cmd)
	cmd.Flags().Bool("admin", false, "Classify against the rules of every tenant")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while processing")

	_ = viper.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	tenantID, err := tenantFlag(cmd)
	if err != nil {
		return err
	}
	admin, _ := cmd.Flags().GetBool("admin")

	txns, err := parser.ParseFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(), true)
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	collector := metrics.NewCollector(slog.Default())
	if addr := viper.GetString(config.KeyMetricsAddr); addr != "" {
		server := collector.StartServer(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := collector.Shutdown(shutdownCtx, server); err != nil {
				slog.Warn("Failed to stop metrics server", "error", err)
			}
		}()
	}

	eng, err := newEngine(store, cli.NewProgressBar(cmd.ErrOrStderr(), "Classifying transactions..."), collector)
	if err != nil {
		return err
	}

	result, err := eng.SaveAndClassify(ctx, engine.BatchRequest{
		TenantID:     tenantID,
		Transactions: txns,
		Privileged:   admin,
	})

	out := cmd.OutOrStdout()
	cli.RenderBatchResult(out, result)
	for _, msg := range result.Errors {
		fmt.Fprintln(out, cli.FormatWarning(msg))
	}

	if err != nil {
		if errors.Is(err, common.ErrPersistence) {
			return common.NewUserError(
				fmt.Sprintf("saving stopped after %d transactions; earlier groups are kept", result.TotalProcessed), err)
		}
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d transactions for %s", result.TotalProcessed, tenantID)))
	return nil
}
