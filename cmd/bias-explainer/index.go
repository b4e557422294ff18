// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bias-explainer/internal/resultstore"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the SQLite result index (build, query, coverage)",
	Long: `Index keeps a local SQLite copy of the result files for inspection.
Use subcommands to build it, look up a model, or check list coverage.`,
}

// --- build subcommand ---

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load the result files into the index",
	Long: `Build reads each result file and replaces its rows in the index.
Files unchanged since the last build are skipped.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), inputsConfig(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d source(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var indexQueryCmd = &cobra.Command{
	Use:   "query <model-id>",
	Short: "Show every indexed metric for a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexQuery,
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.Lookup(context.Background(), args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(cmd.OutOrStdout(), rows, jsonOutput)
}

func formatQueryOutput(w io.Writer, rows []resultstore.MetricRow, jsonOutput bool) error {
	if jsonOutput {
		if rows == nil {
			rows = []resultstore.MetricRow{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-16s  %-30s  %s\n", "Source", "Metric", "Value")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, r := range rows {
		metric := r.Metric
		if len(metric) > 30 {
			metric = metric[:27] + "..."
		}
		fmt.Fprintf(w, "%-16s  %-30s  %v\n", r.Source, metric, r.Value)
	}
	fmt.Fprintf(w, "\n%d metrics\n", len(rows))
	return nil
}

// --- coverage subcommand ---

var indexCoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "List indexed sources missing models named by the views",
	Args:  cobra.NoArgs,
	RunE:  runIndexCoverage,
}

func runIndexCoverage(cmd *cobra.Command, args []string) error {
	views, err := loadViews()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, src := range types.Sources {
		ok, err := store.Indexed(ctx, src)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("source %s is not indexed: run `bias-explainer index build` first", src)
		}
	}

	absences := []resultstore.Absence{}
	for _, v := range views {
		a, err := store.Coverage(ctx, v)
		if err != nil {
			return err
		}
		absences = append(absences, a...)
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(absences)
	}
	for _, a := range absences {
		marker := "required"
		if a.Optional {
			marker = "optional"
		}
		fmt.Fprintf(out, "%-22s  %-28s  %-16s  %s\n", a.View, a.ModelID, a.Source, marker)
	}
	fmt.Fprintf(out, "\n%d absence(s)\n", len(absences))
	return nil
}

// --- shared helpers ---

func openStore() (*resultstore.Store, error) {
	cfg := types.IndexConfig{
		IndexDir:   viper.GetString("index_dir"),
		MaxResults: viper.GetInt("max_results"),
	}
	return resultstore.NewStore(cfg, logger)
}

func init() {
	indexQueryCmd.Flags().Bool("json", false, "output results as JSON")
	indexCoverageCmd.Flags().Bool("json", false, "output results as JSON")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexCoverageCmd)

	rootCmd.AddCommand(indexCmd)
}
