//go:build basic || database

// Package integration contains integration tests for actimerge.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huangsam/actimerge/internal/rdata/rdatatest"
)

var (
	// sharedBinaryPath holds the path to a shared actimerge binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the actimerge binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "actimerge-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "actimerge")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build actimerge: %v\n%s", err, out))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// participant is one set of merge inputs written to a temp dir.
type participant struct {
	dir    string
	meta   string
	ms2    string
	csv    string
	prefix string
}

func (p participant) args() []string {
	return []string{p.meta, p.ms2, p.csv, p.prefix}
}

// writeParticipant writes three 5-second epochs flagged by two coarse
// epochs (r1 = 0 then 1) and a matching pre-imputed CSV.
func writeParticipant(t *testing.T) participant {
	t.Helper()
	dir := t.TempDir()
	p := participant{
		dir:    dir,
		meta:   filepath.Join(dir, "meta_p01.csv.RData"),
		ms2:    filepath.Join(dir, "p01.csv.RData"),
		csv:    filepath.Join(dir, "p01.csv"),
		prefix: filepath.Join(dir, "p01_"),
	}

	times := []string{
		"2013-11-14T15:00:00+0100",
		"2013-11-14T15:00:05+0100",
		"2013-11-14T15:00:10+0100",
	}
	rdatatest.MetaWorkspace(times, []float64{0.01, 0.02, 0.03}, []string{times[0], times[2]}).
		Compress(rdatatest.Gzip).WriteFile(t, p.meta)
	rdatatest.MS2Workspace([]float64{0, 1}, []float64{0, 0}).
		Compress(rdatatest.Gzip).WriteFile(t, p.ms2)

	csv := "timestamp,ENMO\n" +
		"2013-11-14T15:00:00+0100,0.001\n" +
		"2013-11-14T15:00:05+0100,0.002\n" +
		"2013-11-14T15:00:10+0100,0.003\n"
	require.NoError(t, os.WriteFile(p.csv, []byte(csv), 0o644))
	return p
}

// runCommand runs the binary with args and env. It returns stdout on
// success and stdout followed by stderr on failure.
func runCommand(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nOutput: %s%s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String() + stderr.String(), err
	}
	return stdout.String(), nil
}
