// Package tools provides the tool registry and the stateful workspace the
// agent mutates. Tools are standalone values registered at startup; the
// registry mediates lookup, argument validation and execution.
package tools

import (
	"context"
)

// ToolCategory classifies tools by their effect on the workspace. The
// confirmation gate only engages for mutating tools.
type ToolCategory string

const (
	// CategoryObserve covers tools that only inspect state.
	CategoryObserve ToolCategory = "observe"

	// CategoryMutate covers tools that change files or run commands.
	CategoryMutate ToolCategory = "mutate"
)

// Property describes a single parameter property.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolSchema defines the expected arguments for a tool.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines one operation the agent can perform.
type Tool struct {
	// Name is the unique identifier, as the model spells it in TOOL: lines.
	Name string

	// Description explains what the tool does, for the system prompt.
	Description string

	// Category controls the confirmation gate.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Preview optionally renders the change Execute would make, without
	// applying it. The loop shows it ahead of the confirmation gate so
	// the operator approves a concrete diff, not a tool name.
	Preview ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// IsMutating reports whether the tool requires the confirmation gate.
func (t *Tool) IsMutating() bool {
	return t.Category == CategoryMutate
}

// ToolResult wraps the result of tool execution with metadata. Errors stay
// inside the result: the loop reports them to the model as text, never as
// a raised failure.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}

// Text returns the observation text for the model: the result on success,
// the error rendered as a descriptive string otherwise.
func (r *ToolResult) Text() string {
	if r.Error != nil {
		return "Error: " + r.Error.Error()
	}
	return r.Result
}
