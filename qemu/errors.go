package qemu

import (
	"errors"
	"fmt"
)

// SpawnError indicates the emulator could not be located or launched
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Binary, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSpawnError checks if the error is or wraps a SpawnError
func IsSpawnError(err error) bool {
	var spawnErr *SpawnError
	return err != nil && errors.As(err, &spawnErr)
}

// WriteError indicates a write to the guest's serial input failed, typically
// because the pipe is closed or the guest already terminated
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing to guest serial input: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError checks if the error is or wraps a WriteError
func IsWriteError(err error) bool {
	var writeErr *WriteError
	return err != nil && errors.As(err, &writeErr)
}
