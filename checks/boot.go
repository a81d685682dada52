// Package checks contains the default acceptance checks for a kernel image:
// one process-observing check that boots the image under the emulator, and a
// set of logical per-subsystem validators.
package checks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/qemu"
	"github.com/devine-os/kern-acceptor/types"
)

const defaultTerminateTimeout = 5 * time.Second

// BootInterruptCheck boots the kernel image, waits for it to come up, pokes
// the serial console to exercise the interrupt path, and verifies the guest
// terminates with the expected success code.
type BootInterruptCheck struct {
	Controller       *qemu.Controller
	Guest            qemu.GuestConfig
	BootProbe        qemu.ReadyProbe
	InputProbe       qemu.ReadyProbe
	TerminateTimeout time.Duration
	Trigger          []byte // serial bytes sent to provoke interrupts
	Log              *zap.Logger

	mu       sync.Mutex
	serial   string
	timedOut bool
}

// Metadata implements registry.Check
func (c *BootInterruptCheck) Metadata() types.CheckMetadata {
	return types.CheckMetadata{
		ID:   "interrupt-handling",
		Name: "Interrupt Handling",
		Kind: types.CheckKindProcess,
	}
}

// Run implements registry.Check. Faults from the controller propagate
// unwrapped so the runner classifies them as infrastructure errors; only a
// completed observation with a wrong exit code is an assertion failure.
func (c *BootInterruptCheck) Run(ctx context.Context) error {
	h, err := c.Controller.Start(ctx, c.Guest)
	if err != nil {
		return err
	}
	// Every exit path reaps the guest; Terminate is idempotent so the
	// classification call below doesn't conflict with this.
	defer func() {
		_, _ = h.Terminate(c.terminateTimeout())
		c.record(h)
	}()

	if err := h.WaitReady(ctx, c.BootProbe); err != nil {
		return err
	}

	trigger := c.Trigger
	if len(trigger) == 0 {
		trigger = []byte("\n")
	}
	if err := h.SendInput(trigger); err != nil {
		return err
	}

	if err := h.WaitReady(ctx, c.InputProbe); err != nil {
		return err
	}

	code, err := h.Terminate(c.terminateTimeout())
	if err != nil {
		return err
	}
	if h.State() == qemu.StateTimedOut {
		return types.NewAssertionError("guest terminates on request",
			"forcibly killed after %s", c.terminateTimeout())
	}
	if code != 0 {
		return types.NewAssertionError("guest exits cleanly", "exit code %d, want 0", code)
	}
	return nil
}

// ConsoleLog returns the serial console output of the last run
func (c *BootInterruptCheck) ConsoleLog() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serial
}

// GuestTimedOut reports whether the last run's guest had to be forcibly
// reclaimed
func (c *BootInterruptCheck) GuestTimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timedOut
}

func (c *BootInterruptCheck) record(h *qemu.Handle) {
	c.mu.Lock()
	c.serial = h.Serial()
	c.timedOut = h.State() == qemu.StateTimedOut
	c.mu.Unlock()
}

func (c *BootInterruptCheck) terminateTimeout() time.Duration {
	if c.TerminateTimeout > 0 {
		return c.TerminateTimeout
	}
	return defaultTerminateTimeout
}
