// Package qemu manages short-lived emulator guests. A guest boots a kernel
// image with its serial console attached to the process's standard streams;
// the harness owns the guest across its full lifecycle: spawn, readiness
// wait, serial input, and graceful-then-forced termination.
package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// DefaultBinary is the emulator used when the config doesn't name one.
const DefaultBinary = "qemu-system-x86_64"

// State represents the lifecycle state of a guest process
type State string

const (
	StateRunning    State = "running"
	StateTerminated State = "terminated"
	StateTimedOut   State = "timed_out"
)

// GuestConfig describes how to launch one guest
type GuestConfig struct {
	Binary          string   // emulator binary, DefaultBinary when empty
	KernelImage     string   // path to the kernel image handed to -kernel
	ExtraArgs       []string // appended after the fixed diagnostic flags
	SerialTailBytes int      // serial capture limit, 0 = default
}

func (c GuestConfig) commandArgs() []string {
	args := []string{
		"-kernel", c.KernelImage,
		"-nographic",
		"-serial", "stdio",
		"-no-reboot",
		"-d", "guest_errors",
	}
	return append(args, c.ExtraArgs...)
}

// ReadyProbe describes how to decide the guest is ready for input. With a
// Marker set the serial output is polled until the marker appears or Timeout
// expires; otherwise the probe degrades to a fixed Settle delay.
type ReadyProbe struct {
	Marker       string
	Settle       time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

// Controller launches guests. It holds no per-guest state; each Start call
// returns a Handle exclusively owned by the caller.
type Controller struct {
	log *zap.Logger
}

// NewController creates a new Controller
func NewController(log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{log: log}
}

// Handle owns exactly one guest process. No other component reads or writes
// its streams directly.
type Handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	serial *serialBuffer
	log    *zap.Logger

	waitDone chan struct{} // closed once the process has been reaped

	mu       sync.Mutex
	state    State
	exitCode int
}

// Start launches a guest with the configured kernel image and the fixed
// serial-console diagnostic flags. Failure to locate or launch the emulator
// returns a *SpawnError.
func (c *Controller) Start(ctx context.Context, cfg GuestConfig) (*Handle, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, &SpawnError{Binary: binary, Err: err}
	}

	cmd := exec.CommandContext(ctx, binary, cfg.commandArgs()...)
	buf := newSerialBuffer(cfg.SerialTailBytes)
	cmd.Stdout = buf
	cmd.Stderr = buf
	// If the surrounding context is canceled before Terminate runs, ask the
	// guest to exit cleanly first and only hard-kill after WaitDelay.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Binary: binary, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Binary: binary, Err: err}
	}

	h := &Handle{
		cmd:      cmd,
		stdin:    stdin,
		serial:   buf,
		log:      c.log.With(zap.Int("pid", cmd.Process.Pid)),
		waitDone: make(chan struct{}),
		state:    StateRunning,
	}
	go h.reap()

	c.log.Debug("guest started",
		zap.String("binary", binary),
		zap.String("kernel", cfg.KernelImage),
		zap.Int("pid", cmd.Process.Pid))
	return h, nil
}

// reap collects the exit status as soon as the guest exits, whether or not
// Terminate has been called yet.
func (h *Handle) reap() {
	_ = h.cmd.Wait()
	h.mu.Lock()
	if h.state == StateRunning {
		h.state = StateTerminated
		h.exitCode = h.cmd.ProcessState.ExitCode()
	}
	h.mu.Unlock()
	close(h.waitDone)
}

// State returns the current lifecycle state
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ExitCode returns the recorded exit code, or -1 while the guest is running
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateRunning {
		return -1
	}
	return h.exitCode
}

// Pid returns the OS process id of the guest
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Serial returns the serial console output captured so far
func (h *Handle) Serial() string {
	return h.serial.String()
}

// WaitReady blocks until the guest is considered ready for input. Marker
// expiry is an infrastructure fault, not an assertion failure: the guest may
// be healthy but slow, and the caller can't tell.
func (h *Handle) WaitReady(ctx context.Context, probe ReadyProbe) error {
	if probe.Marker == "" {
		select {
		case <-time.After(probe.Settle):
			return nil
		case <-h.waitDone:
			// Guest already exited; nothing left to settle on.
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	poll := probe.PollInterval
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if strings.Contains(h.serial.String(), probe.Marker) {
			return struct{}{}, nil
		}
		select {
		case <-h.waitDone:
			return struct{}{}, backoff.Permanent(
				fmt.Errorf("guest exited before marker %q appeared on the serial console", probe.Marker))
		default:
		}
		return struct{}{}, fmt.Errorf("marker %q not yet on serial console", probe.Marker)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(poll)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return fmt.Errorf("waiting for guest readiness: %w", err)
	}
	return nil
}

// SendInput writes to the guest's serial input. It returns a *WriteError if
// the guest has already reached a terminal state or the pipe is closed.
func (h *Handle) SendInput(p []byte) error {
	h.mu.Lock()
	running := h.state == StateRunning
	h.mu.Unlock()
	if !running {
		return &WriteError{Err: fmt.Errorf("guest is %s", h.State())}
	}
	if _, err := h.stdin.Write(p); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Terminate requests graceful termination and blocks up to timeout for the
// guest to exit, escalating to SIGKILL on expiry. It always leaves the handle
// in a terminal state and is the single place process resources are
// guaranteed reclaimed. Calling it on an already-terminal handle is a no-op
// that returns the stored exit code.
func (h *Handle) Terminate(timeout time.Duration) (int, error) {
	h.mu.Lock()
	if h.state != StateRunning {
		code := h.exitCode
		h.mu.Unlock()
		return code, nil
	}
	h.mu.Unlock()

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The guest may have exited between the state check and the signal;
		// the wait below resolves either way.
		h.log.Debug("SIGTERM delivery failed", zap.Error(err))
	}

	select {
	case <-h.waitDone:
	case <-time.After(timeout):
		h.log.Warn("guest did not exit after SIGTERM, killing", zap.Duration("timeout", timeout))
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return -1, fmt.Errorf("killing guest: %w", err)
		}
		<-h.waitDone
		h.mu.Lock()
		h.state = StateTimedOut
		h.exitCode = h.cmd.ProcessState.ExitCode()
		code := h.exitCode
		h.mu.Unlock()
		return code, nil
	}

	h.mu.Lock()
	code := h.exitCode
	h.mu.Unlock()
	return code, nil
}
