package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLexiconCmd creates the lexicon command
func NewLexiconCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lexicon",
		Short: "List the trigger warning categories",
		Long: `List the trigger warning categories the analyzer reports, in report order.
Set analysis.lexicon_path in the config file (or LEXICON_PATH) to use a custom table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			acfg, err := cfg.Analyzer()
			if err != nil {
				return err
			}
			for _, c := range acfg.Lexicon.Categories() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
