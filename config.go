package kat

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/flags"
)

// Config holds the application configuration
type Config struct {
	KernelImage string   // path to the kernel image artifact
	QemuBinary  string   // emulator binary
	QemuArgs    []string // extra emulator arguments
	SuiteConfig string   // optional check suite file

	RunInterval time.Duration // interval between check runs
	RunOnce     bool          // exit after one run

	BootSettle          time.Duration // settle delay before first input
	InputSettle         time.Duration // settle delay after input
	BootMarker          string        // serial readiness marker, empty = settle delay
	ReadyTimeout        time.Duration // upper bound for the readiness marker
	TerminateTimeout    time.Duration // graceful-termination window
	DefaultCheckTimeout time.Duration // per-check timeout unless overridden

	LogDir string // directory for per-check serial logs
	Log    *zap.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log *zap.Logger) (*Config, error) {
	kernelImage := ctx.String(flags.KernelImage.Name)
	if kernelImage == "" {
		return nil, errors.New("kernel image path is required")
	}
	absKernelImage, err := filepath.Abs(kernelImage)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for kernel image '%s': %w", kernelImage, err)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	var absSuiteConfig string
	if suiteConfig := ctx.String(flags.SuiteConfig.Name); suiteConfig != "" {
		absSuiteConfig, err = filepath.Abs(suiteConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for suite file '%s': %w", suiteConfig, err)
		}
	}

	terminateTimeout := ctx.Duration(flags.TerminateTimeout.Name)
	if terminateTimeout <= 0 {
		return nil, errors.New("terminate timeout must be positive")
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		KernelImage:         absKernelImage,
		QemuBinary:          ctx.String(flags.QemuBinary.Name),
		QemuArgs:            ctx.StringSlice(flags.QemuArgs.Name),
		SuiteConfig:         absSuiteConfig,
		RunInterval:         runInterval,
		RunOnce:             runOnce,
		BootSettle:          ctx.Duration(flags.BootSettle.Name),
		InputSettle:         ctx.Duration(flags.InputSettle.Name),
		BootMarker:          ctx.String(flags.BootMarker.Name),
		ReadyTimeout:        ctx.Duration(flags.ReadyTimeout.Name),
		TerminateTimeout:    terminateTimeout,
		DefaultCheckTimeout: ctx.Duration(flags.DefaultCheckTimeout.Name),
		LogDir:              logDir,
		Log:                 log,
	}, nil
}
