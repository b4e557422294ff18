// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bias-explainer CLI.
// Running it with no arguments performs the extraction.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is replaced in PersistentPreRunE once flags are parsed.
var logger = zap.NewNop()

var verbose bool

// rootCmd is the base command for the bias-explainer CLI.
var rootCmd = &cobra.Command{
	Use:   "bias-explainer",
	Short: "Build the display dataset for the alphabetisation-bias explainer",
	Long: `bias-explainer reads the raw alphabetisation-bias result files and writes
the minimal dataset the explainer front end renders: one sequence per named
model list (demoModelIds, allModelIds, finalSummaryModelIds,
additiveModelIds), each entry carrying a model identifier and its display
metrics.

Run without arguments to extract with the default inputs and output.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./bias-explainer.yaml or ~/.config/bias-explainer/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("bias-all", types.DefaultBiasAllPath, "all-converged bias results")
	flags.String("bias-differed", types.DefaultBiasDifferedPath, "differed-in-control results")
	flags.String("bias-controlled", types.DefaultBiasControlledPath, "controlled results")
	flags.String("views", "", "YAML views file replacing the built-in model lists")
	flags.StringP("output", "o", types.DefaultOutputPath, `artifact path, or "-" for stdout`)
	flags.String("format", string(types.FormatJSON), "artifact format: json, yaml, or module")
	flags.Int("precision", types.DefaultPrecision, "decimal places for float metrics (negative keeps full precision)")
	flags.String("on-missing", string(types.MissingFail), "when a listed model is absent from a required source: fail or skip")
	flags.String("index-dir", types.DefaultIndexDir, "directory holding the SQLite result index")

	mustBind("inputs.bias_all", "bias-all")
	mustBind("inputs.bias_differed", "bias-differed")
	mustBind("inputs.bias_controlled", "bias-controlled")
	mustBind("views_file", "views")
	mustBind("output.path", "output")
	mustBind("output.format", "format")
	mustBind("precision", "precision")
	mustBind("on_missing", "on-missing")
	mustBind("index_dir", "index-dir")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bias-explainer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bias-explainer"))
		}
	}

	viper.SetEnvPrefix("BIAS_EXPLAINER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// mustBind binds a persistent flag to a config key. It panics on a wiring
// mistake.
func mustBind(key, flagName string) {
	f := rootCmd.PersistentFlags().Lookup(flagName)
	if f == nil {
		panic("unknown flag " + flagName)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// inputsConfig reads the configured input paths.
func inputsConfig() types.InputsConfig {
	return types.InputsConfig{
		BiasAll:        viper.GetString("inputs.bias_all"),
		BiasDiffered:   viper.GetString("inputs.bias_differed"),
		BiasControlled: viper.GetString("inputs.bias_controlled"),
	}
}

// loadViews returns the views from the configured views file, or the
// built-in ones.
func loadViews() ([]modelids.View, error) {
	path := viper.GetString("views_file")
	if path == "" {
		return modelids.Default(), nil
	}
	views, err := modelids.LoadViews(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded views file", zap.String("path", path), zap.Int("views", len(views)))
	return views, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
