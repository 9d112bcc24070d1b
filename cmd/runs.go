package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/runstore"
	"github.com/huangsam/actimerge/schema"
)

// runsSetup loads the minimal configuration needed for ledger operations.
// It skips input validation since no merge takes place.
func runsSetup() (schema.DatabaseBackend, string, error) {
	if err := readConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("run-backend")
	connStr := viper.GetString("run-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// runsStoreSetup opens the configured ledger for read access.
func runsStoreSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsSetup()
	if err != nil {
		return err
	}
	store, err := runstore.NewRunStore(backend, connStr)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	runStore = store
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsConfigSetup records the ledger settings without opening the ledger,
// so migrate and clear work on a fresh or damaged database.
func runsConfigSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsSetup()
	if err != nil {
		return err
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsCmd focuses on run ledger management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the run ledger",
	Long: `Manage the optional ledger of merge runs.

When --run-backend is set, actimerge records every merge run:
- Run metadata (timestamp, configuration, duration, signal rows)
- One record per export (path, rows, imputed rows, unmatched rows, time span)

The ledger never stores signal data.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default)

Subcommands:
  status  - Show ledger statistics
  export  - Export the ledger to Parquet
  clear   - Remove all ledger data
  migrate - Run database schema migrations`,
}

// runsStatusCmd shows ledger status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display ledger statistics and connection details",
	Long: `Show the backend, connection state, run count, the last and oldest run
and the size of every ledger table.

Examples:
  actimerge runs status --run-backend sqlite`,
	Args:    cobra.NoArgs,
	PreRunE: runsStoreSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := runStore.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get run status: %w", err)
		}
		runstore.PrintRunStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// runsClearCmd clears the ledger.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run ledger data",
	Long: `Delete all recorded runs and exports.

For SQLite the database file is removed. For MySQL and PostgreSQL the ledger
tables and the migration table are dropped.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  actimerge runs export --run-backend sqlite --output-file backup
  actimerge runs clear --run-backend sqlite`,
	Args:    cobra.NoArgs,
	PreRunE: runsConfigSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		dbFilePath := cfg.RunDBConnect
		if dbFilePath == "" {
			dbFilePath = contract.GetRunDBFilePath()
		}
		if err := runstore.ClearRuns(cfg.RunBackend, dbFilePath, cfg.RunDBConnect); err != nil {
			return fmt.Errorf("failed to clear run data: %w", err)
		}
		fmt.Println("Run data cleared successfully.")
		return nil
	},
}

// runsExportCmd exports the ledger to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run ledger to Parquet for analytics",
	Long: `Export the ledger to two Parquet files:
- <output-file>.runs.parquet - one row per merge run
- <output-file>.exports.parquet - one row per written export

Requires: --output-file parameter

Examples:
  actimerge runs export --run-backend sqlite --output-file ledger
  duckdb -c "SELECT * FROM read_parquet('ledger.exports.parquet') LIMIT 10"`,
	Args:    cobra.NoArgs,
	PreRunE: runsStoreSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runstore.ExportParquet(runStore, viper.GetString("output-file"), os.Stdout)
	},
}

// runsMigrateCmd runs database migrations for the ledger.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run ledger.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  actimerge runs migrate --run-backend postgresql --run-db-connect "host=... dbname=..."

  # Rollback everything
  actimerge runs migrate --run-backend sqlite --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: runsConfigSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		targetVersion := viper.GetInt("target-version")
		if err := runstore.Migrate(cfg.RunBackend, cfg.RunDBConnect, targetVersion, os.Stdout); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	},
}
