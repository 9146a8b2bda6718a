package ast

import (
	"bytes"
	"strings"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// ExpressionStatement wraps an expression appearing in statement position.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) Pos() token.Position  { return es.Token.Pos }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// BlockStatement represents a braced statement sequence.
type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) Pos() token.Position  { return bs.Token.Pos }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for i, stmt := range bs.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(stmt.String())
	}
	out.WriteString(" }")
	return out.String()
}

// IfStatement represents an if with optional elif chain and else branch.
// Elif arms are parsed into nested IfStatements in the Alternative slot.
type IfStatement struct {
	Token       token.Token // the 'if' or 'elif' token
	Condition   Expression
	Consequence *BlockStatement
	Alternative Statement // *BlockStatement, nested *IfStatement, or nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) Pos() token.Position  { return is.Token.Pos }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(is.Condition.String())
	out.WriteString(" ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		if elif, ok := is.Alternative.(*IfStatement); ok {
			out.WriteString(" el")
			out.WriteString(elif.String())
		} else {
			out.WriteString(" else ")
			out.WriteString(is.Alternative.String())
		}
	}
	return out.String()
}

// WhileStatement represents a while loop.
type WhileStatement struct {
	Token     token.Token // the 'while' token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) Pos() token.Position  { return ws.Token.Pos }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

// ForInStatement represents iteration over arrays, objects, strings and
// ranges: for name in iterable { body }.
type ForInStatement struct {
	Token    token.Token // the 'for' token
	Name     *Identifier
	Iterable Expression
	Body     *BlockStatement
}

func (fs *ForInStatement) statementNode()       {}
func (fs *ForInStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForInStatement) Pos() token.Position  { return fs.Token.Pos }
func (fs *ForInStatement) String() string {
	return "for " + fs.Name.String() + " in " + fs.Iterable.String() + " " + fs.Body.String()
}

// BreakStatement exits the innermost loop.
type BreakStatement struct {
	Token token.Token // the 'break' token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BreakStatement) Pos() token.Position  { return bs.Token.Pos }
func (bs *BreakStatement) String() string       { return "break" }

// ContinueStatement skips to the next loop iteration.
type ContinueStatement struct {
	Token token.Token // the 'continue' token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ContinueStatement) Pos() token.Position  { return cs.Token.Pos }
func (cs *ContinueStatement) String() string       { return "continue" }

// ImportStatement represents `import NAME` or `from NAME import a, b`.
// The core performs no module resolution; the statement compiles to a
// call against the __import builtin which the host may register.
type ImportStatement struct {
	Token   token.Token // the 'import' or 'from' token
	Module  *Identifier
	Symbols []*Identifier // non-empty only for the from-import form
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *ImportStatement) Pos() token.Position  { return is.Token.Pos }
func (is *ImportStatement) String() string {
	if len(is.Symbols) == 0 {
		return "import " + is.Module.String()
	}
	names := make([]string, 0, len(is.Symbols))
	for _, sym := range is.Symbols {
		names = append(names, sym.String())
	}
	return "from " + is.Module.String() + " import " + strings.Join(names, ", ")
}
