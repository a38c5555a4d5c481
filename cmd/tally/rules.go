package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ruleset"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long:  `Import, list, enable and disable the rules tenants classify with.`,
	}

	cmd.AddCommand(importRulesCmd())
	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(setRuleActiveCmd("enable", true))
	cmd.AddCommand(setRuleActiveCmd("disable", false))

	return cmd
}

func importRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace tenant rules with a YAML or JSON rule document",
		Long: `Validate a rule document and replace the rules of every tenant it lists.
Tenants missing from the document keep their rules.

Example:
  tally rules import rules.yaml
  tally rules import rules.yaml --check   # validate only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			check, _ := cmd.Flags().GetBool("check")

			doc, err := ruleset.Load(args[0])
			if err != nil {
				return err
			}
			if check {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is valid (%d tenants)", args[0], len(doc.Tenants))))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			manager, err := newRuleManager(store)
			if err != nil {
				return err
			}
			count, err := manager.Import(ctx, doc)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d rules for %d tenants", count, len(doc.Tenants))))
			return nil
		},
	}

	cmd.Flags().Bool("check", false, "Validate the document without storing it")

	return cmd
}

func listRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules, including disabled ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tenantID, _ := cmd.Flags().GetString("tenant")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.ListRules(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No rules found. Use 'tally rules import' to add some."))
				return nil
			}

			cli.RenderRules(cmd.OutOrStdout(), rules)
			return nil
		},
	}

	addTenantFlag(cmd)

	return cmd
}

func setRuleActiveCmd(use string, active bool) *cobra.Command {
	short := "Disable a tenant's rule so it no longer matches"
	if active {
		short = "Enable a previously disabled rule"
	}

	cmd := &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			manager, err := newRuleManager(store)
			if err != nil {
				return err
			}
			if err := manager.SetActive(ctx, tenantID, args[0], active); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %s %sd", args[0], use)))
			return nil
		},
	}

	addTenantFlag(cmd)

	return cmd
}
