package checks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/devine-os/kern-acceptor/types"
)

// Assertion is one named expectation inside a SubsystemCheck. A nil Fn is a
// placeholder that unconditionally passes; real validators replace it
// without touching orchestration code.
type Assertion struct {
	Label string
	Fn    func(ctx context.Context) error
}

// SubsystemCheck validates a named kernel subsystem without touching a live
// guest. It passes only if every assertion holds; a violated assertion
// yields a failure, while anything outside the check's own logic (a missing
// fixture, say) surfaces as an error.
type SubsystemCheck struct {
	meta       types.CheckMetadata
	assertions []Assertion
	out        io.Writer

	mu      sync.Mutex
	details []string
}

// NewSubsystemCheck creates a logical validator for one subsystem
func NewSubsystemCheck(meta types.CheckMetadata, out io.Writer, assertions ...Assertion) *SubsystemCheck {
	meta.Kind = types.CheckKindLogical
	return &SubsystemCheck{
		meta:       meta,
		assertions: assertions,
		out:        out,
	}
}

// Metadata implements registry.Check
func (c *SubsystemCheck) Metadata() types.CheckMetadata {
	return c.meta
}

// Run implements registry.Check
func (c *SubsystemCheck) Run(ctx context.Context) error {
	c.mu.Lock()
	c.details = c.details[:0]
	c.mu.Unlock()

	for _, a := range c.assertions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.out != nil {
			fmt.Fprintf(c.out, "  Testing %s...\n", a.Label)
		}
		c.mu.Lock()
		c.details = append(c.details, a.Label)
		c.mu.Unlock()

		if a.Fn == nil {
			continue
		}
		if err := a.Fn(ctx); err != nil {
			if types.IsAssertionError(err) {
				return err
			}
			return fmt.Errorf("%s: %w", a.Label, err)
		}
	}
	return nil
}

// Details returns the assertion labels exercised by the last run
func (c *SubsystemCheck) Details() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.details))
	copy(out, c.details)
	return out
}
