// Package main provides a performance benchmarking tool for the actimerge CLI.
// It generates synthetic participants of increasing recording length, merges
// each one several times with and without the SQLite run ledger, treats the
// first tracked run as cold and averages the rest as warm, and writes the
// timings to CSV for performance analysis and documentation.
//
// Prerequisites:
// - actimerge binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where participants and exports are written
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/huangsam/actimerge/internal/rdata/rdatatest"
)

// epochsPerDay is the number of 5-second epochs in a day.
const epochsPerDay = 17280

// coarseEvery is the number of short epochs per 15-minute long epoch.
const coarseEvery = 180

// BenchmarkResult holds the result of a benchmark run (untracked average, cold run and average of warm runs).
type BenchmarkResult struct {
	Participant string
	Format      string
	NoLedger    string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir      string
	Timeout      time.Duration
	NoLedgerRuns int
	LedgerRuns   int
	Days         []int
	Formats      []string
}

// participant is one generated set of merge inputs.
type participant struct {
	name   string
	meta   string
	ms2    string
	csv    string
	prefix string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:      os.Args[1],
		Timeout:      5 * time.Minute,
		NoLedgerRuns: 3,
		LedgerRuns:   4,
		Days:         []int{1, 7, 30},
		Formats:      []string{"csv", "parquet"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	ledgerPath := filepath.Join(config.WorkDir, "benchmark_runs.db")
	_ = os.Remove(ledgerPath)

	var participants []participant
	for _, days := range config.Days {
		p, err := generateParticipant(config.WorkDir, days)
		if err != nil {
			fmt.Printf("Failed to generate participant: %v\n", err)
			os.Exit(1)
		}
		participants = append(participants, p)
	}

	results := runBenchmarks(config, participants, ledgerPath)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the actimerge binary and the work dir exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("actimerge"); err != nil {
		return fmt.Errorf("actimerge binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work dir %s: %w", config.WorkDir, err)
	}
	return nil
}

// generateParticipant writes a recording of the given length: ENMO cycling
// through a daily pattern and every eighth coarse epoch flagged by r1.
func generateParticipant(dir string, days int) (participant, error) {
	name := fmt.Sprintf("p%02dd", days)
	p := participant{
		name:   name,
		meta:   filepath.Join(dir, "meta_"+name+".csv.RData"),
		ms2:    filepath.Join(dir, name+".csv.RData"),
		csv:    filepath.Join(dir, name+".csv"),
		prefix: filepath.Join(dir, name+"_"),
	}

	n := days * epochsPerDay
	start := time.Date(2013, 11, 14, 15, 0, 0, 0, time.FixedZone("", 3600))
	shortTimes := make([]string, n)
	enmo := make([]float64, n)
	var longTimes []string
	for i := range n {
		ts := start.Add(time.Duration(i) * 5 * time.Second).Format("2006-01-02T15:04:05-0700")
		shortTimes[i] = ts
		enmo[i] = float64(i%epochsPerDay) / epochsPerDay * 0.1
		if i%coarseEvery == 0 {
			longTimes = append(longTimes, ts)
		}
	}
	r1 := make([]float64, len(longTimes))
	r3 := make([]float64, len(longTimes))
	for i := range r1 {
		if i%8 == 0 {
			r1[i] = 1
		}
	}

	files := map[string][]byte{
		p.meta: rdatatest.MetaWorkspace(shortTimes, enmo, longTimes).Compress(rdatatest.Gzip).Bytes(),
		p.ms2:  rdatatest.MS2Workspace(r1, r3).Compress(rdatatest.Gzip).Bytes(),
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return p, err
		}
	}

	f, err := os.Create(p.csv)
	if err != nil {
		return p, err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"timestamp", "ENMO"})
	for i := range n {
		_ = w.Write([]string{shortTimes[i], fmt.Sprintf("%.4f", enmo[i])})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return p, err
	}
	return p, f.Close()
}

// runBenchmarks executes all benchmark suites across generated participants
func runBenchmarks(config BenchmarkConfig, participants []participant, ledgerPath string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d participants, %v timeout, no-ledger: %d runs, ledger: %d runs\n",
		len(participants), config.Timeout, config.NoLedgerRuns, config.LedgerRuns)

	for _, p := range participants {
		for _, format := range config.Formats {
			results = append(results, runBenchmarkSuite(config, p, format, ledgerPath))
		}
	}
	return results
}

// runBenchmarkSuite runs both untracked and tracked benchmarks for a participant
func runBenchmarkSuite(config BenchmarkConfig, p participant, format, ledgerPath string) BenchmarkResult {
	fmt.Printf("Merging %s as %s\n", p.name, format)

	// Helper to run a benchmark phase
	runPhase := func(ledgerArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, p, format, ledgerArgs, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: untracked runs
	_, noLedgerAvg := runPhase([]string{"--run-backend", "none"}, config.NoLedgerRuns, "No-ledger")

	// Phase 2: tracked runs
	coldTime, warmAvg := runPhase([]string{"--run-backend", "sqlite", "--run-db-connect", ledgerPath}, config.LedgerRuns, "Ledger")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-ledger average: %s, Cold time: %s, Warm average: %s\n", noLedgerAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Participant: p.name,
		Format:      format,
		NoLedger:    noLedgerAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark merges a participant multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, p participant, format string, ledgerArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{"--summary", "none", "--format", format}, ledgerArgs...)
	args = append(args, p.meta, p.ms2, p.csv, p.prefix)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("actimerge", args...)

		done := make(chan error, 1)
		go func() {
			done <- cmd.Run()
		}()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("actimerge_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"participant", "format", "no_ledger_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Participant, result.Format, result.NoLedger, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, format := range []string{"csv", "parquet"} {
		fmt.Printf("%s exports:\n", format)
		for _, result := range results {
			if result.Format == format {
				fmt.Printf("  %-6s: No-ledger: %s, Cold: %s, Warm: %s\n", result.Participant, result.NoLedger, result.ColdTime, result.WarmTime)
			}
		}
	}
}
