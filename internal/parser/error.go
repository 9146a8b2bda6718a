package parser

import (
	"fmt"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// Error codes used for classifying parser errors.
const (
	ErrUnexpectedToken = "P001"
	ErrNoPrefixParse   = "P002"
	ErrBadAssignTarget = "P003"
	ErrBadNumber       = "P004"
	ErrLexical         = "P005"
)

// Error represents a single parse error with position, the expected
// token set and the token actually found.
type Error struct {
	Pos      token.Position
	Length   int
	Message  string
	Code     string
	Expected string // human-readable expected-token set, may be empty
	Found    token.Type
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// NewError creates a parser error.
func NewError(pos token.Position, length int, message, code string) *Error {
	return &Error{
		Pos:     pos,
		Length:  length,
		Message: message,
		Code:    code,
	}
}
