package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bias-explainer/internal/extract"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write the minimal display dataset (default command)",
	Long: `Extract reads the three result files, selects each model list's records in
list order, and writes one artifact. Nothing is written when a file is
missing, a file is not valid JSON, or (with --on-missing=fail) a listed model
is absent from a required source. An existing artifact is replaced whole.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := extractionConfig()
	if err != nil {
		return err
	}
	views, err := loadViews()
	if err != nil {
		return err
	}

	summary, err := extract.Run(context.Background(), cfg, views, extract.Options{
		Logger: logger,
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	printSummary(cmd.ErrOrStderr(), summary)
	return nil
}

// extractionConfig assembles and checks the run configuration from flags,
// environment, and config file.
func extractionConfig() (types.ExtractionConfig, error) {
	cfg := types.ExtractionConfig{
		Inputs: inputsConfig(),
		Output: types.OutputConfig{
			Path:   viper.GetString("output.path"),
			Format: types.OutputFormat(viper.GetString("output.format")),
		},
		Precision: viper.GetInt("precision"),
		OnMissing: types.MissingPolicy(viper.GetString("on_missing")),
		ViewsFile: viper.GetString("views_file"),
	}
	return cfg, validateExtraction(cfg)
}

func validateExtraction(cfg types.ExtractionConfig) error {
	switch cfg.Output.Format {
	case types.FormatJSON, types.FormatYAML, types.FormatModule:
	default:
		return fmt.Errorf("unsupported format %q: use json, yaml, or module", cfg.Output.Format)
	}
	switch cfg.OnMissing {
	case types.MissingFail, types.MissingSkip:
	default:
		return fmt.Errorf("unsupported on-missing policy %q: use fail or skip", cfg.OnMissing)
	}
	if cfg.Output.Path == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}

func printSummary(w io.Writer, s extract.Summary) {
	dest := s.Path
	if dest == types.StdoutPath {
		dest = "stdout"
	}
	fmt.Fprintf(w, "wrote %s (%d bytes)\n", dest, s.Bytes)
	for _, v := range s.Views {
		if v.Skipped > 0 {
			fmt.Fprintf(w, "  %-22s %3d of %d (%d skipped)\n", v.Name, v.Written, v.Listed, v.Skipped)
			continue
		}
		fmt.Fprintf(w, "  %-22s %3d\n", v.Name, v.Written)
	}
}
