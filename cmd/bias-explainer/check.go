package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bias-explainer/internal/extract"
	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/internal/results"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report listed models that are absent from the result files",
	Long: `Check loads the result files and the model lists and prints every listed
model that a source lacks. Gaps in optional sources are informational; a gap
in a required source makes the command fail. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	views, err := loadViews()
	if err != nil {
		return err
	}
	sets, err := results.LoadAll(inputsConfig(), modelids.SourcesUsed(views))
	if err != nil {
		return err
	}

	gaps := extract.Coverage(views, sets)
	out := cmd.OutOrStdout()
	for _, g := range gaps {
		fmt.Fprintln(out, g.String())
	}

	required := extract.Required(gaps)
	fmt.Fprintf(out, "\n%d view(s), %d gap(s), %d in required sources\n", len(views), len(gaps), len(required))
	if len(required) > 0 {
		return &extract.MissingError{Gaps: required}
	}
	return nil
}
