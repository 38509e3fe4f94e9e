package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"caveat/internal/filter"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [paths...]",
		Short: "Print the effective warning filters in precedence order",
		Long: `Rules loads caveat.toml, the scripts under paths (for their custom
categories) and -W flags, then lists the compiled rules. The first rule
listed is consulted first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setup, err := loadSession(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if setup.cfg.Path != "" {
				fmt.Fprintf(out, "config: %s\n", setup.cfg.Path)
			}
			fmt.Fprintf(out, "dedup: %s\n", setup.dedup)
			return printRules(out, setup.rules)
		},
	}
	cmd.Flags().StringArrayP("filterwarnings", "W", nil, "warning filter action:message:category:module:lineno (repeatable)")
	cmd.Flags().String("warnings-dedup", "", "default-action dedup key (location|phase)")
	return cmd
}

// printRules lists rules in precedence order.
func printRules(out io.Writer, rules *filter.List) error {
	for i, r := range rules.Rules() {
		if _, err := fmt.Fprintf(out, "%3d  %-40s  (%s)\n", i+1, r.String(), r.Origin); err != nil {
			return err
		}
	}
	return nil
}
