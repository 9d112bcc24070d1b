package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/huangsam/actimerge/core"
	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/runstore"
	"github.com/huangsam/actimerge/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// logger receives stage diagnostics once sharedSetup has run.
var logger = zap.NewNop()

// runStore is the run ledger; nil when tracking is disabled.
var runStore contract.RunStore

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	// Start CPU profiling
	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	// Memory profiling will be captured at the end
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	// Write memory profile
	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd merges one participant's GGIR workspaces into the two exports.
var rootCmd = &cobra.Command{
	Use:   "actimerge <meta.RData> <ms2.RData> <signal.csv> <output-prefix>",
	Short: "Merge GGIR imputation flags onto actigraphy signals.",
	Long: `Actimerge joins the imputation indicators of a GGIR part 2 workspace onto
the 5-second signal of the part 1 workspace and onto a pre-imputed CSV, and
writes <prefix>orig.csv and <prefix>imputed.csv.

Each signal row takes the flags of the latest coarse epoch at or before it.
A row is flagged imputed when r1 or r3 is positive.

Examples:
  # Merge one participant
  actimerge meta_p01.csv.RData p01.csv.RData p01.csv out/p01_

  # Write Parquet and record the run in the local ledger
  actimerge --format parquet --run-backend sqlite meta.RData ms2.RData p01.csv out/p01_`,
	Version:            version,
	Args:               cobra.ExactArgs(4),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := rootCtx
		if runStore != nil {
			ctx = core.WithRunStore(ctx, runStore)
		}
		return core.ExecuteMerge(ctx, cfg, logger)
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".actimerge") // Name of config file (without extension)
		viper.SetConfigType("yaml")       // We'll use YAML format
		viper.AddConfigPath(".")          // Look in the current directory
		viper.AddConfigPath("$HOME")      // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("ACTIMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	defaults := contract.DefaultRawInput()
	viper.SetDefault("timestamp-column", defaults.TimestampColumn)
	viper.SetDefault("signal-column", defaults.SignalColumn)
	viper.SetDefault("indicator-columns", defaults.IndicatorColumns)
	viper.SetDefault("scale", defaults.Scale)
	viper.SetDefault("sample-rate", defaults.SampleRate)
	viper.SetDefault("timezone", defaults.Timezone)
	viper.SetDefault("format", defaults.Format)
	viper.SetDefault("summary", defaults.Summary)
	viper.SetDefault("color", defaults.Color)
	viper.SetDefault("run-backend", defaults.RunBackend)
	viper.SetDefault("run-db-connect", "")
}

// readConfigFile reads the config file when one exists.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// Handle profiling flag
	if prefix := viper.GetString("profile"); prefix != "" {
		profile.Enabled = true
		profile.Prefix = prefix
		if err := startProfiling(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	if len(args) == 4 {
		input.MetaPath = args[0]
		input.MS2Path = args[1]
		input.CSVPath = args[2]
		input.OutputPrefix = args[3]
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	var err error
	if logger, err = contract.NewLogger(cfg.Verbose); err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	// 5. Open the run ledger. A broken ledger never blocks the merge.
	if cfg.RunBackend != schema.NoneBackend {
		store, err := runstore.NewRunStore(cfg.RunBackend, cfg.RunDBConnect)
		if err != nil {
			contract.LogWarn("Run tracking disabled", err)
		} else {
			runStore = store
		}
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Shutdown stops profiling and releases the run ledger.
func Shutdown() error {
	var errs []error
	if err := stopProfiling(); err != nil {
		errs = append(errs, err)
	}
	if runStore != nil {
		if err := runStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close run ledger: %w", err))
		}
	}
	_ = logger.Sync()
	return errors.Join(errs...)
}
