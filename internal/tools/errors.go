package tools

import "errors"

// Tool registry errors.
var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolExecuteNil is returned when a tool has no execute function.
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrMissingRequiredArg is returned when a required argument is missing.
	ErrMissingRequiredArg = errors.New("missing required argument")
)

// Tool execution errors. These are values reported back to the model as
// observations, not failures that abort the loop.
var (
	// ErrNotFound is returned when a target path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIsDirectory is returned when a file operation hits a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrPolicyViolation is returned on a read-before-write breach.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrCommandTimeout is returned when a shell command exceeds its
	// wall-clock bound.
	ErrCommandTimeout = errors.New("command timed out")
)
