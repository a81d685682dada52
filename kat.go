// Package kat implements the kernel acceptance tester: it boots a prebuilt
// kernel image inside an emulator, drives it over the serial console, and
// rolls the outcomes of all registered checks into one verdict.
package kat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/checks"
	"github.com/devine-os/kern-acceptor/exitcodes"
	"github.com/devine-os/kern-acceptor/metrics"
	"github.com/devine-os/kern-acceptor/qemu"
	"github.com/devine-os/kern-acceptor/registry"
	"github.com/devine-os/kern-acceptor/runner"
	"github.com/devine-os/kern-acceptor/types"
)

// kat is a Kernel Acceptance Tester that runs checks.
type kat struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	runner    runner.CheckRunner
	scheduler CheckScheduler
	result    *runner.RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*kat, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating KAT with config",
		zap.String("kernelImage", config.KernelImage),
		zap.String("qemuBinary", config.QemuBinary),
		zap.String("suiteConfig", config.SuiteConfig),
		zap.Duration("runInterval", config.RunInterval),
		zap.Bool("runOnce", config.RunOnce))

	controller := qemu.NewController(config.Log)
	defaults := checks.Defaults(checks.DefaultsConfig{
		Controller: controller,
		Guest: qemu.GuestConfig{
			Binary:      config.QemuBinary,
			KernelImage: config.KernelImage,
			ExtraArgs:   config.QemuArgs,
		},
		BootProbe: qemu.ReadyProbe{
			Marker:  config.BootMarker,
			Settle:  config.BootSettle,
			Timeout: config.ReadyTimeout,
		},
		InputProbe: qemu.ReadyProbe{
			Settle: config.InputSettle,
		},
		TerminateTimeout: config.TerminateTimeout,
		Log:              config.Log,
	})

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		Checks:         defaults,
		SuiteFile:      config.SuiteConfig,
		DefaultTimeout: config.DefaultCheckTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	// Create runner with registry
	checkRunner, err := runner.NewCheckRunner(runner.Config{
		Registry: reg,
		Log:      config.Log,
		LogDir:   config.LogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create check runner: %w", err)
	}
	config.Log.Info("kat.New: created registry and check runner")

	k := &kat{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           checkRunner,
		scheduler:        NewDefaultCheckScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}
	k.scheduler.RegisterCallback(k.runChecks)
	return k, nil
}

// Start runs the acceptance checks, periodically when an interval is
// configured. The kernel image precondition is verified before any check
// executes; on violation zero checks run and the returned error maps to exit
// code 1.
func (k *kat) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			k.config.Log.Error("Runtime error occurred", zap.Any("error", r))
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	k.ctx = ctx

	if _, err := os.Stat(k.config.KernelImage); err != nil {
		return NewPreconditionError(k.config.KernelImage, err)
	}

	fmt.Println("=== Devine Kernel Acceptance Suite ===")
	fmt.Println("Validating interrupt-driven IPC flows...")
	fmt.Println()

	if err := k.scheduler.Start(ctx); err != nil {
		// This is a runtime error (not a check failure)
		k.config.Log.Error("Runtime error running checks", zap.Error(err))
		return NewRuntimeError(err)
	}

	if k.config.RunOnce {
		k.config.Log.Info("Checks completed, exiting (run-once mode)")

		if k.result != nil && k.result.Status != types.CheckStatusPass {
			k.config.Log.Warn("Run-once check run completed with failures, returning exit code 1")
			return NewCheckFailureError(k.result.String())
		}

		// Only need to call this when we're in run-once mode and all checks passed
		if k.shutdownCallback != nil {
			go func() {
				k.shutdownCallback(nil)
			}()
		}
		return nil // Success (exit code 0)
	}

	k.config.Log.Debug("kern-acceptor started successfully")
	return nil
}

// runChecks runs all checks and processes the results
func (k *kat) runChecks() error {
	k.config.Log.Info("Running all checks...")
	result, err := k.runner.RunAllChecks(k.ctx)
	if err != nil {
		// This is a runtime error (not a check failure)
		k.config.Log.Error("Runtime error running checks", zap.Error(err))
		return err
	}
	k.result = result

	fmt.Println()
	k.printResultsTable(result)
	fmt.Println(result.String())
	k.config.Log.Info("Check run completed",
		zap.String("run_id", result.RunID),
		zap.String("status", string(result.Status)))

	metrics.RecordAcceptance(
		result.RunID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Errored,
		result.Duration,
	)
	return nil
}

// Stop stops the kern-acceptor service.
func (k *kat) Stop(ctx context.Context) error {
	k.config.Log.Info("Stopping kern-acceptor")
	return k.scheduler.Stop()
}

// Stopped returns true if the kern-acceptor service is stopped.
func (k *kat) Stopped() bool {
	return k.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (k *kat) WaitForShutdown(ctx context.Context) error {
	return k.scheduler.WaitForShutdown(ctx)
}

// Result returns the most recent run result
func (k *kat) Result() *runner.RunResult {
	return k.result
}

// printResultsTable prints the results of the acceptance checks to the console.
func (k *kat) printResultsTable(result *runner.RunResult) {
	k.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Kernel Acceptance Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Check", "Kind", "Duration", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Check", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, res := range result.Results {
		t.AppendRow(table.Row{
			res.Metadata.GetName(),
			string(res.Metadata.Kind),
			formatDuration(res.Duration),
			getResultString(res.Status),
			extractKeyErrorMessage(res.Error),
		})
	}

	// Update the table style setting based on result status
	if result.Status == types.CheckStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		fmt.Sprintf("%d/%d passed", result.Stats.Passed, result.Stats.Total),
		"",
	})

	t.Render()
}

// extractKeyErrorMessage extracts the most pertinent part of the error message for display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// Assertion failures carry the interesting part after the prefix
	if idx := strings.Index(errStr, "assertion failed:"); idx != -1 {
		start := idx
		end := len(errStr)
		if newLine := strings.Index(errStr[start:], "\n"); newLine != -1 {
			end = start + newLine
		}
		return errStr[start:end]
	}

	// Limit to the first line or 80 chars
	if idx := strings.Index(errStr, "\n"); idx != -1 {
		errStr = errStr[:idx]
	}
	if len(errStr) > 80 {
		return errStr[:70] + "..."
	}
	return errStr
}

// getResultString returns a string representing the check result
func getResultString(status types.CheckStatus) string {
	switch status {
	case types.CheckStatusPass:
		return "✓ pass"
	case types.CheckStatusFail:
		return "✗ fail"
	default:
		return "! error"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
