//go:build integration || database

// Package integration contains end-to-end tests of the vitals binary.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
// Database backends need Docker: go test -tags database ./integration
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
)

var (
	// sharedVitalsPath holds the path to a shared vitals binary built once for all tests.
	sharedVitalsPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// weightExport is the worked example: two weigh-ins on March 1st, one on March 2nd,
// a step count and one record with an unreadable timestamp.
const weightExport = `type,timestamp,end,value,unit,source
HKQuantityTypeIdentifierBodyMass,2024-03-01 07:00:00 +0000,,70.0,kg,Scale
HKQuantityTypeIdentifierBodyMass,2024-03-01 19:00:00 +0000,,70.5,kg,Scale
HKQuantityTypeIdentifierStepCount,2024-03-01 12:00:00 +0000,2024-03-01 12:30:00 +0000,5000,count,Phone
HKQuantityTypeIdentifierBodyMass,2024-03-02 07:00:00 +0000,,71.0,kg,Scale
HKQuantityTypeIdentifierBodyMass,not-a-date,,69.0,kg,Scale
`

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getVitalsBinary returns the path to the vitals binary, building it once if needed.
func getVitalsBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "vitals-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		vitalsPath := filepath.Join(tempDir, "vitals")
		buildCmd := exec.Command("go", "build", "-o", vitalsPath, "./cmd/vitals")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build vitals: %v\n%s", err, out))
		}

		sharedVitalsPath = vitalsPath
	})

	return sharedVitalsPath
}

// writeExport writes the worked example export into dir.
func writeExport(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(weightExport), 0o600))
	return path
}

// runVitals runs the binary with extra VITALS_* environment and returns stdout.
// The working directory is a fresh temp dir so no .vitals.yaml is picked up.
func runVitals(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getVitalsBinary(), args...)
	cmd.Dir = t.TempDir()
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
	}
	return stdout.String(), err
}
