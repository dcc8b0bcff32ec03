package tool

import (
	"errors"
	"fmt"
)

// ErrInvalidTool is returned by Register for a malformed tool declaration.
var ErrInvalidTool = errors.New("invalid tool")

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError is returned when invoking a name that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidArgumentsError is returned when call arguments do not satisfy the
// tool's declared parameters.
type InvalidArgumentsError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for tool %q: parameter %q: %s", e.Tool, e.Param, e.Reason)
}

// ToolExecutionError wraps a failure raised by a tool handler.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
