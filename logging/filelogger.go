// Package logging persists per-check serial console output and run summaries
// under a per-run directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/devine-os/kern-acceptor/types"
)

const (
	passedDirName   = "passed"
	failedDirName   = "failed"
	summaryFileName = "summary.log"
)

// FileLogger writes one log file per check into passed/ or failed/
// subdirectories of <baseDir>/testrun-<runID>.
type FileLogger struct {
	baseDir string
	runID   string
	runDir  string
}

// NewFileLogger creates the run directory structure
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	runDir := filepath.Join(baseDir, "testrun-"+runID)
	for _, dir := range []string{runDir, filepath.Join(runDir, passedDirName), filepath.Join(runDir, failedDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
		}
	}
	return &FileLogger{baseDir: baseDir, runID: runID, runDir: runDir}, nil
}

// LogCheckResult writes the result of one check. Failing and erroring checks
// land in failed/ so the interesting logs are easy to find.
func (l *FileLogger) LogCheckResult(result *types.CheckResult) error {
	dir := passedDirName
	if result.Status != types.CheckStatusPass {
		dir = failedDirName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Check:    %s\n", result.Metadata.GetName())
	fmt.Fprintf(&b, "ID:       %s\n", result.Metadata.ID)
	fmt.Fprintf(&b, "Kind:     %s\n", result.Metadata.Kind)
	fmt.Fprintf(&b, "Status:   %s\n", result.Status)
	fmt.Fprintf(&b, "Duration: %s\n", result.Duration)
	if result.TimedOut {
		fmt.Fprintf(&b, "TimedOut: true\n")
	}
	if result.Error != nil {
		fmt.Fprintf(&b, "Error:    %v\n", result.Error)
	}
	if len(result.Details) > 0 {
		b.WriteString("\nAssertions:\n")
		for _, d := range result.Details {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	if result.Serial != "" {
		b.WriteString("\n--- serial console ---\n")
		b.WriteString(stripansi.Strip(result.Serial))
		if !strings.HasSuffix(result.Serial, "\n") {
			b.WriteString("\n")
		}
	}

	path := filepath.Join(l.runDir, dir, safeFilename(result.Metadata.ID)+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing check log %s: %w", path, err)
	}
	return nil
}

// LogSummary writes the run summary block
func (l *FileLogger) LogSummary(summary string) error {
	path := filepath.Join(l.runDir, summaryFileName)
	if err := os.WriteFile(path, []byte(stripansi.Strip(summary)), 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}

// Dir returns the run directory
func (l *FileLogger) Dir() string {
	return l.runDir
}

// FailedDir returns the directory holding failed-check logs
func (l *FileLogger) FailedDir() string {
	return filepath.Join(l.runDir, failedDirName)
}

// PassedDir returns the directory holding passed-check logs
func (l *FileLogger) PassedDir() string {
	return filepath.Join(l.runDir, passedDirName)
}

// SummaryFile returns the path of the summary file
func (l *FileLogger) SummaryFile() string {
	return filepath.Join(l.runDir, summaryFileName)
}

// GetRunID returns the run ID this logger writes under
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// safeFilename replaces characters that could be problematic in filenames
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(s)
}
