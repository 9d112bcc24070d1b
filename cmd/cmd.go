// Package cmd defines the command-line interface for actimerge.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/actimerge/core"
	"github.com/huangsam/actimerge/internal/contract"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runsCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	defaults := contract.DefaultRawInput()

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("timestamp-column", defaults.TimestampColumn, "Join key column shared by all inputs")
	rootCmd.PersistentFlags().String("signal-column", defaults.SignalColumn, "Signal column scaled into the export")
	rootCmd.PersistentFlags().String("indicator-columns", defaults.IndicatorColumns, "Comma-separated indicator columns OR-reduced into the imputed flag")
	rootCmd.PersistentFlags().Float64("scale", defaults.Scale, "Multiplier applied to the signal (g to mg)")
	rootCmd.PersistentFlags().String("sample-rate", defaults.SampleRate, "Sample rate annotation written into the header")
	rootCmd.PersistentFlags().String("timezone", defaults.Timezone, "Location for timestamps without an offset")
	rootCmd.PersistentFlags().String("format", defaults.Format, "Export format: csv or parquet")
	rootCmd.PersistentFlags().String("summary", defaults.Summary, "Run summary on stdout: text or json or none")
	rootCmd.PersistentFlags().String("color", defaults.Color, "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("run-backend", defaults.RunBackend, "Run ledger backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for the run ledger (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log stage diagnostics to stderr")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of inspectCmd to Viper
	inspectCmd.Flags().Bool("json", false, "Print the object listing as JSON")
	inspectCmd.Flags().Int("depth", core.DefaultInspectDepth, "Levels of nested lists to descend into")
	if err := viper.BindPFlags(inspectCmd.Flags()); err != nil {
		contract.LogFatal("Error binding inspect flags", err)
	}

	// Bind all flags of runsExportCmd to Viper
	runsExportCmd.Flags().String("output-file", "", "Path prefix for the exported Parquet files")
	if err := viper.BindPFlags(runsExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs export flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
