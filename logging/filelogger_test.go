package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devine-os/kern-acceptor/types"
)

func TestNewFileLogger_CreatesLayout(t *testing.T) {
	base := t.TempDir()
	fl, err := NewFileLogger(base, "run-123")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "testrun-run-123"), fl.Dir())
	assert.DirExists(t, fl.PassedDir())
	assert.DirExists(t, fl.FailedDir())
	assert.Equal(t, "run-123", fl.GetRunID())
}

func TestLogCheckResult_PassedPlacement(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run-1")
	require.NoError(t, err)

	res := &types.CheckResult{
		Metadata: types.CheckMetadata{ID: "interrupt-handling", Name: "Interrupt Handling", Kind: types.CheckKindProcess},
		Status:   types.CheckStatusPass,
		Duration: 3 * time.Second,
		Serial:   "devine kernel booting\n",
	}
	require.NoError(t, fl.LogCheckResult(res))

	data, err := os.ReadFile(filepath.Join(fl.PassedDir(), "interrupt-handling.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Check:    Interrupt Handling")
	assert.Contains(t, content, "Status:   pass")
	assert.Contains(t, content, "--- serial console ---")
	assert.Contains(t, content, "devine kernel booting")
}

func TestLogCheckResult_FailedAndErroredShareFailedDir(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run-2")
	require.NoError(t, err)

	failed := &types.CheckResult{
		Metadata: types.CheckMetadata{ID: "vfs-operations", Kind: types.CheckKindLogical},
		Status:   types.CheckStatusFail,
		Error:    types.NewAssertionError("mount table", "missing root mount"),
		Details:  []string{"directory creation", "mount table"},
	}
	errored := &types.CheckResult{
		Metadata: types.CheckMetadata{ID: "task-scheduler", Kind: types.CheckKindLogical},
		Status:   types.CheckStatusError,
		TimedOut: true,
	}
	require.NoError(t, fl.LogCheckResult(failed))
	require.NoError(t, fl.LogCheckResult(errored))

	data, err := os.ReadFile(filepath.Join(fl.FailedDir(), "vfs-operations.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Error:    assertion failed: mount table: missing root mount")
	assert.Contains(t, string(data), "  - mount table")

	data, err = os.ReadFile(filepath.Join(fl.FailedDir(), "task-scheduler.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "TimedOut: true")
}

func TestLogCheckResult_StripsANSI(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run-3")
	require.NoError(t, err)

	res := &types.CheckResult{
		Metadata: types.CheckMetadata{ID: "boot", Kind: types.CheckKindProcess},
		Status:   types.CheckStatusPass,
		Serial:   "\x1b[32mboot ok\x1b[0m\n",
	}
	require.NoError(t, fl.LogCheckResult(res))

	data, err := os.ReadFile(filepath.Join(fl.PassedDir(), "boot.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "boot ok")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestLogSummary(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run-4")
	require.NoError(t, err)

	require.NoError(t, fl.LogSummary("=== Check Results ===\nPassed:  5/5\n"))

	data, err := os.ReadFile(fl.SummaryFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Passed:  5/5")
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", safeFilename("a/b:c d"))
	assert.Equal(t, "plain-id", safeFilename("plain-id"))
}
