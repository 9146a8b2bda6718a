package ast

import (
	"bytes"
	"strings"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// FunctionDeclaration represents `function name(params) { body }`.
// Async declarations parse but execute synchronously.
type FunctionDeclaration struct {
	Token      token.Token // the 'function' token
	Name       *Identifier
	Parameters []*Identifier
	Body       *BlockStatement
	Async      bool
}

func (fd *FunctionDeclaration) statementNode()       {}
func (fd *FunctionDeclaration) TokenLiteral() string { return fd.Token.Lexeme }
func (fd *FunctionDeclaration) Pos() token.Position  { return fd.Token.Pos }
func (fd *FunctionDeclaration) String() string {
	var out bytes.Buffer
	if fd.Async {
		out.WriteString("async ")
	}
	out.WriteString("function ")
	out.WriteString(fd.Name.String())
	out.WriteString("(")
	out.WriteString(paramList(fd.Parameters))
	out.WriteString(") ")
	out.WriteString(fd.Body.String())
	return out.String()
}

// ArrowFunction represents `(params) -> expr` or `(params) -> { body }`.
// Exactly one of Expr and Body is set.
type ArrowFunction struct {
	Token      token.Token // the '(' token
	Parameters []*Identifier
	Expr       Expression
	Body       *BlockStatement
}

func (af *ArrowFunction) expressionNode()      {}
func (af *ArrowFunction) TokenLiteral() string { return af.Token.Lexeme }
func (af *ArrowFunction) Pos() token.Position  { return af.Token.Pos }
func (af *ArrowFunction) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(paramList(af.Parameters))
	out.WriteString(") -> ")
	if af.Expr != nil {
		out.WriteString(af.Expr.String())
	} else {
		out.WriteString(af.Body.String())
	}
	return out.String()
}

// CallExpression represents callee(args).
type CallExpression struct {
	Token     token.Token // the '(' token
	Callee    Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) Pos() token.Position  { return ce.Token.Pos }
func (ce *CallExpression) String() string {
	args := make([]string, 0, len(ce.Arguments))
	for _, arg := range ce.Arguments {
		args = append(args, arg.String())
	}
	return ce.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// ReturnStatement represents `return` with an optional value.
type ReturnStatement struct {
	Token token.Token // the 'return' token
	Value Expression  // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) Pos() token.Position  { return rs.Token.Pos }
func (rs *ReturnStatement) String() string {
	if rs.Value != nil {
		return "return " + rs.Value.String()
	}
	return "return"
}

// AwaitExpression wraps its operand; the core compiles it transparently.
type AwaitExpression struct {
	Token token.Token // the 'await' token
	Value Expression
}

func (ae *AwaitExpression) expressionNode()      {}
func (ae *AwaitExpression) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AwaitExpression) Pos() token.Position  { return ae.Token.Pos }
func (ae *AwaitExpression) String() string       { return "await " + ae.Value.String() }

func paramList(params []*Identifier) string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}
