package bytecode

import (
	"fmt"

	"github.com/mythos-lang/go-mythos/internal/errors"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// Runtime error kinds. User-thrown values surface as KindError.
const (
	KindType  = "TypeError"
	KindName  = "NameError"
	KindIndex = "IndexError"
	KindKey   = "KeyError"
	KindArity = "ArityError"
	KindError = "Error"
)

// RuntimeError is an error raised during execution that escaped every
// script-level handler. It carries the source position of the failing
// instruction and the call stack captured at the throw site.
type RuntimeError struct {
	Kind    string
	Message string
	Pos     token.Position
	Trace   errors.StackTrace
}

// Error implements the error interface.
func (r *RuntimeError) Error() string {
	if r == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", r.Kind, r.Message)
	if r.Pos.Line > 0 {
		msg = fmt.Sprintf("%s at %d:%d", msg, r.Pos.Line, r.Pos.Column)
	}
	if len(r.Trace) == 0 {
		return msg
	}
	return fmt.Sprintf("%s\nStack trace:\n%s", msg, r.Trace.String())
}

// NewError creates a runtime error of the given kind; position and
// trace are filled in by the VM when the error is raised.
func NewError(kind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
