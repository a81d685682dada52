package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertionError_Message(t *testing.T) {
	err := NewAssertionError("guest exits cleanly", "exit code %d, want 0", 2)
	assert.Equal(t, "assertion failed: guest exits cleanly: exit code 2, want 0", err.Error())

	bare := &AssertionError{Assertion: "guest exits cleanly"}
	assert.Equal(t, "assertion failed: guest exits cleanly", bare.Error())
}

func TestIsAssertionError(t *testing.T) {
	err := NewAssertionError("queue exists", "")
	assert.True(t, IsAssertionError(err))
	assert.True(t, IsAssertionError(fmt.Errorf("check: %w", err)))
	assert.False(t, IsAssertionError(fmt.Errorf("plain error")))
	assert.False(t, IsAssertionError(nil))
}

func TestCheckMetadata_GetName(t *testing.T) {
	assert.Equal(t, "Interrupt Handling", CheckMetadata{ID: "interrupt-handling", Name: "Interrupt Handling"}.GetName())
	assert.Equal(t, "interrupt-handling", CheckMetadata{ID: "interrupt-handling"}.GetName())
}
