package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "KERN_ACCEPTOR"

// prefixEnvVars prepends the service prefix to an env var name
func prefixEnvVars(name string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, name)}
}

var (
	KernelImage = &cli.StringFlag{
		Name:    "kernel",
		Value:   "build/kernel.bin",
		EnvVars: prefixEnvVars("KERNEL"),
		Usage:   "Path to the kernel image booted by the emulator",
	}
	QemuBinary = &cli.StringFlag{
		Name:    "qemu-binary",
		Value:   "qemu-system-x86_64",
		EnvVars: prefixEnvVars("QEMU_BINARY"),
		Usage:   "Emulator binary used to boot the kernel image",
	}
	QemuArgs = &cli.StringSliceFlag{
		Name:    "qemu-arg",
		EnvVars: prefixEnvVars("QEMU_ARGS"),
		Usage:   "Extra argument passed to the emulator (repeatable)",
	}
	SuiteConfig = &cli.StringFlag{
		Name:    "checks",
		Value:   "",
		EnvVars: prefixEnvVars("CHECKS"),
		Usage:   "Path to a check suite file (eg. 'checks.yaml') selecting and tuning checks",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store per-check serial console logs",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between check runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	BootSettle = &cli.DurationFlag{
		Name:    "boot-settle",
		Value:   2 * time.Second,
		EnvVars: prefixEnvVars("BOOT_SETTLE"),
		Usage:   "Settle delay after spawning the guest, used when no boot marker is configured",
	}
	InputSettle = &cli.DurationFlag{
		Name:    "input-settle",
		Value:   1 * time.Second,
		EnvVars: prefixEnvVars("INPUT_SETTLE"),
		Usage:   "Settle delay after sending serial input to the guest",
	}
	BootMarker = &cli.StringFlag{
		Name:    "boot-marker",
		Value:   "",
		EnvVars: prefixEnvVars("BOOT_MARKER"),
		Usage:   "Serial console marker signalling guest readiness; replaces the boot settle delay",
	}
	ReadyTimeout = &cli.DurationFlag{
		Name:    "ready-timeout",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVars("READY_TIMEOUT"),
		Usage:   "Upper bound for the boot marker to appear on the serial console",
	}
	TerminateTimeout = &cli.DurationFlag{
		Name:    "terminate-timeout",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("TERMINATE_TIMEOUT"),
		Usage:   "Grace period before a guest that ignores termination is killed",
	}
	DefaultCheckTimeout = &cli.DurationFlag{
		Name:    "check-timeout",
		Value:   2 * time.Minute,
		EnvVars: prefixEnvVars("CHECK_TIMEOUT"),
		Usage:   "Default timeout for individual checks, can be overridden per check in the suite file",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
)

var Flags = []cli.Flag{
	KernelImage,
	QemuBinary,
	QemuArgs,
	SuiteConfig,
	LogDir,
	RunInterval,
	BootSettle,
	InputSettle,
	BootMarker,
	ReadyTimeout,
	TerminateTimeout,
	DefaultCheckTimeout,
	LogLevel,
}
