package checks

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/qemu"
	"github.com/devine-os/kern-acceptor/registry"
	"github.com/devine-os/kern-acceptor/types"
)

// DefaultsConfig carries the shared wiring for the default check set
type DefaultsConfig struct {
	Controller       *qemu.Controller
	Guest            qemu.GuestConfig
	BootProbe        qemu.ReadyProbe
	InputProbe       qemu.ReadyProbe
	TerminateTimeout time.Duration
	Out              io.Writer // diagnostic sub-lines, defaults to stdout
	Log              *zap.Logger
}

// Defaults returns the built-in check set in its registration order. The
// subsystem validators carry placeholder assertions until the kernel exposes
// hooks for real ones.
func Defaults(cfg DefaultsConfig) []registry.Check {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Controller == nil {
		cfg.Controller = qemu.NewController(cfg.Log)
	}

	return []registry.Check{
		&BootInterruptCheck{
			Controller:       cfg.Controller,
			Guest:            cfg.Guest,
			BootProbe:        cfg.BootProbe,
			InputProbe:       cfg.InputProbe,
			TerminateTimeout: cfg.TerminateTimeout,
			Log:              cfg.Log,
		},
		NewSubsystemCheck(
			types.CheckMetadata{ID: "ipc-message-queues", Name: "IPC Message Queues"},
			cfg.Out,
			Assertion{Label: "message queue creation"},
			Assertion{Label: "message send/receive"},
			Assertion{Label: "priority inheritance"},
		),
		NewSubsystemCheck(
			types.CheckMetadata{ID: "vfs-operations", Name: "VFS Operations"},
			cfg.Out,
			Assertion{Label: "directory creation"},
			Assertion{Label: "file operations"},
			Assertion{Label: "mount table"},
		),
		NewSubsystemCheck(
			types.CheckMetadata{ID: "security-framework", Name: "Security Framework"},
			cfg.Out,
			Assertion{Label: "capability creation"},
			Assertion{Label: "privilege ring validation"},
			Assertion{Label: "memory access validation"},
		),
		NewSubsystemCheck(
			types.CheckMetadata{ID: "task-scheduler", Name: "Task Scheduler"},
			cfg.Out,
			Assertion{Label: "task creation"},
			Assertion{Label: "priority scheduling"},
			Assertion{Label: "context switching"},
		),
	}
}
