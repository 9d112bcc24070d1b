package runstore

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore opens the ledger for backend and migrates it to the latest
// schema. The none backend returns a store that records nothing.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend || backend == "" {
		return &RunStoreImpl{backend: schema.NoneBackend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := migrateDB(db, backend, -1, io.Discard); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

func (rs *RunStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

func (rs *RunStoreImpl) table(name string) string {
	return quoteTableName(name, rs.backend)
}

// BeginRun creates a new run entry and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	configJSON, err := sonic.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, rs.table(runsTable))
		err = rs.db.QueryRow(query, formatTime(startTime, rs.backend), string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, rs.table(runsTable))
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// RecordExport stores the counters of one written export.
func (rs *RunStoreImpl) RecordExport(runID int64, export schema.ExportSummary) error {
	if rs.disabled() {
		return nil
	}

	p := func(n int) string { return placeholder(rs.backend, n) }
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, variant, output_path, row_count, imputed_count,
		                unmatched_count, first_timestamp, last_timestamp)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)
	`, rs.table(exportsTable), p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8))

	_, err := rs.db.Exec(query,
		runID, string(export.Variant), export.Path, export.Rows, export.ImputedRows, export.UnmatchedRows,
		formatOptionalTime(export.FirstTimestamp, rs.backend),
		formatOptionalTime(export.LastTimestamp, rs.backend),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export %s of run %d: %w", export.Variant, runID, err)
	}
	return nil
}

// EndRun updates the run entry with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, signalRows int) error {
	if rs.disabled() {
		return nil
	}

	// First, get the start_time to calculate duration
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, rs.table(runsTable), placeholder(rs.backend, 1))
	var raw any
	if err := rs.db.QueryRow(query, runID).Scan(&raw); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := parseTime(raw)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	p := func(n int) string { return placeholder(rs.backend, n) }
	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, signal_rows = %s WHERE run_id = %s`,
		rs.table(runsTable), p(1), p(2), p(3), p(4))
	if _, err := rs.db.Exec(update, formatTime(endTime, rs.backend), durationMs, signalRows, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the ledger.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(runsTable)))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var raw any
		row = rs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", rs.table(runsTable)))
		if err := row.Scan(&status.LastRunID, &raw); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastRunTime, err := parseTime(raw)
		if err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		status.LastRunTime = lastRunTime

		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", rs.table(runsTable)))
		if err := row.Scan(&raw); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestRunTime, err := parseTime(raw)
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime

		row = rs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(signal_rows), 0) FROM %s", rs.table(runsTable)))
		if err := row.Scan(&status.TotalRows); err != nil {
			return status, fmt.Errorf("failed to get total signal rows: %w", err)
		}
	}

	for _, table := range ledgerTables {
		var count int64
		row = rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(table)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the ledger.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, signal_rows, config_params FROM %s ORDER BY run_id", rs.table(runsTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var startRaw, endRaw any
		if err := rows.Scan(&record.RunID, &startRaw, &endRaw, &record.RunDurationMs, &record.SignalRows, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, err = parseTime(startRaw); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if record.EndTime, err = parseOptionalTime(endRaw); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllExports retrieves all export records from the ledger.
func (rs *RunStoreImpl) GetAllExports() ([]schema.ExportRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, variant, output_path, row_count, imputed_count,
    unmatched_count, first_timestamp, last_timestamp
    FROM %s ORDER BY run_id, variant`, rs.table(exportsTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ExportRecord
	for rows.Next() {
		var record schema.ExportRecord
		var firstRaw, lastRaw any
		if err := rows.Scan(&record.RunID, &record.Variant, &record.OutputPath, &record.RowCount,
			&record.ImputedCount, &record.UnmatchedCount, &firstRaw, &lastRaw); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		if record.FirstTimestamp, err = parseOptionalTime(firstRaw); err != nil {
			return nil, fmt.Errorf("failed to parse first_timestamp: %w", err)
		}
		if record.LastTimestamp, err = parseOptionalTime(lastRaw); err != nil {
			return nil, fmt.Errorf("failed to parse last_timestamp: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exports: %w", err)
	}
	return results, nil
}
