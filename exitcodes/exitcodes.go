// Package exitcodes defines the standard exit codes used by kern-acceptor.
package exitcodes

// Exit code constants used by kern-acceptor
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all checks pass successfully
// * CheckFailure (1): Used when the kernel image precondition is not met or
//   one or more checks fail or error
// * RuntimeErr (2): Used for runtime errors such as panics or invalid configuration
const (
	Success      = 0 // All checks pass
	CheckFailure = 1 // Missing kernel image or check failures
	RuntimeErr   = 2 // Runtime errors outside any check
)
