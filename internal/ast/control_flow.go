package ast

import (
	"bytes"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// TryStatement represents try/catch/finally. At least one of Catch and
// Finally is present.
type TryStatement struct {
	Token     token.Token // the 'try' token
	Body      *BlockStatement
	CatchName *Identifier // nil when no catch clause
	Catch     *BlockStatement
	Finally   *BlockStatement
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Lexeme }
func (ts *TryStatement) Pos() token.Position  { return ts.Token.Pos }
func (ts *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try ")
	out.WriteString(ts.Body.String())
	if ts.Catch != nil {
		out.WriteString(" catch")
		if ts.CatchName != nil {
			out.WriteString(" (" + ts.CatchName.String() + ")")
		}
		out.WriteString(" ")
		out.WriteString(ts.Catch.String())
	}
	if ts.Finally != nil {
		out.WriteString(" finally ")
		out.WriteString(ts.Finally.String())
	}
	return out.String()
}

// ThrowStatement raises a value as an exception.
type ThrowStatement struct {
	Token token.Token // the 'throw' token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Lexeme }
func (ts *ThrowStatement) Pos() token.Position  { return ts.Token.Pos }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() }

// MatchCase is a single `case EXPR { body }` arm of a match statement.
type MatchCase struct {
	Token token.Token // the 'case' token
	Value Expression
	Body  *BlockStatement
}

// MatchStatement represents match with case arms and an optional default.
// With no matching case and no default the statement falls through
// without effect.
type MatchStatement struct {
	Token        token.Token // the 'match' token
	Discriminant Expression
	Cases        []*MatchCase
	Default      *BlockStatement
}

func (ms *MatchStatement) statementNode()       {}
func (ms *MatchStatement) TokenLiteral() string { return ms.Token.Lexeme }
func (ms *MatchStatement) Pos() token.Position  { return ms.Token.Pos }
func (ms *MatchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("match ")
	out.WriteString(ms.Discriminant.String())
	out.WriteString(" { ")
	for i, c := range ms.Cases {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString("case ")
		out.WriteString(c.Value.String())
		out.WriteString(" ")
		out.WriteString(c.Body.String())
	}
	if ms.Default != nil {
		out.WriteString("\ndefault ")
		out.WriteString(ms.Default.String())
	}
	out.WriteString(" }")
	return out.String()
}
