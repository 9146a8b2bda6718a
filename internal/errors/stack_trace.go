package errors

import (
	"fmt"
	"strings"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// StackFrame is a single frame in a runtime call stack: the function
// being executed and its current source location.
type StackFrame struct {
	Position     *token.Position
	FunctionName string
}

// String formats the frame as "name [line: N, column: M]".
func (sf StackFrame) String() string {
	if sf.Position == nil {
		return sf.FunctionName
	}
	return fmt.Sprintf("%s [line: %d, column: %d]",
		sf.FunctionName, sf.Position.Line, sf.Position.Column)
}

// StackTrace is a call stack ordered oldest (bottom) to newest (top).
type StackTrace []StackFrame

// String formats the trace, most recent call first.
func (st StackTrace) String() string {
	if len(st) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := len(st) - 1; i >= 0; i-- {
		sb.WriteString(st[i].String())
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Depth returns the number of frames.
func (st StackTrace) Depth() int {
	return len(st)
}

// NewStackFrame creates a stack frame.
func NewStackFrame(functionName string, position *token.Position) StackFrame {
	return StackFrame{FunctionName: functionName, Position: position}
}
