package ast

import (
	"bytes"
	"strings"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// ClassDeclaration represents a class with a method list and optional base:
//
//	class Player extends Entity {
//	    function constructor(name) { this.name = name }
//	    function greet() { return "hi " + this.name }
//	}
type ClassDeclaration struct {
	Token   token.Token // the 'class' token
	Name    *Identifier
	Base    *Identifier // nil without extends
	Methods []*FunctionDeclaration
}

func (cd *ClassDeclaration) statementNode()       {}
func (cd *ClassDeclaration) TokenLiteral() string { return cd.Token.Lexeme }
func (cd *ClassDeclaration) Pos() token.Position  { return cd.Token.Pos }
func (cd *ClassDeclaration) String() string {
	var out bytes.Buffer
	out.WriteString("class ")
	out.WriteString(cd.Name.String())
	if cd.Base != nil {
		out.WriteString(" extends ")
		out.WriteString(cd.Base.String())
	}
	out.WriteString(" { ")
	for i, method := range cd.Methods {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(method.String())
	}
	out.WriteString(" }")
	return out.String()
}

// NewExpression represents `new Class(args)`.
type NewExpression struct {
	Token     token.Token // the 'new' token
	Class     Expression
	Arguments []Expression
}

func (ne *NewExpression) expressionNode()      {}
func (ne *NewExpression) TokenLiteral() string { return ne.Token.Lexeme }
func (ne *NewExpression) Pos() token.Position  { return ne.Token.Pos }
func (ne *NewExpression) String() string {
	args := make([]string, 0, len(ne.Arguments))
	for _, arg := range ne.Arguments {
		args = append(args, arg.String())
	}
	return "new " + ne.Class.String() + "(" + strings.Join(args, ", ") + ")"
}

// ThisExpression represents `this` inside a method body.
type ThisExpression struct {
	Token token.Token // the 'this' token
}

func (te *ThisExpression) expressionNode()      {}
func (te *ThisExpression) TokenLiteral() string { return te.Token.Lexeme }
func (te *ThisExpression) Pos() token.Position  { return te.Token.Pos }
func (te *ThisExpression) String() string       { return "this" }

// SuperExpression represents `super.name` inside a method body. It is
// always the callee or object of a member access; bare `super` is a
// parse error.
type SuperExpression struct {
	Token  token.Token // the 'super' token
	Method *Identifier
}

func (se *SuperExpression) expressionNode()      {}
func (se *SuperExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SuperExpression) Pos() token.Position  { return se.Token.Pos }
func (se *SuperExpression) String() string       { return "super." + se.Method.String() }

// MemberExpression represents dotted access: object.name.
type MemberExpression struct {
	Token    token.Token // the '.' token
	Object   Expression
	Property *Identifier
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Lexeme }
func (me *MemberExpression) Pos() token.Position  { return me.Token.Pos }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property.String()
}

// IndexExpression represents bracketed access: object[index].
type IndexExpression struct {
	Token  token.Token // the '[' token
	Object Expression
	Index  Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IndexExpression) Pos() token.Position  { return ie.Token.Pos }
func (ie *IndexExpression) String() string {
	return ie.Object.String() + "[" + ie.Index.String() + "]"
}
