package ast

import (
	"bytes"
	"strings"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// ArrayLiteral represents an array literal: [1, 2, 3].
type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Lexeme }
func (al *ArrayLiteral) Pos() token.Position  { return al.Token.Pos }
func (al *ArrayLiteral) String() string {
	elements := make([]string, 0, len(al.Elements))
	for _, el := range al.Elements {
		elements = append(elements, el.String())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// ObjectProperty is a single key-value entry of an object literal.
// Keys are identifiers or string literals; order is significant.
type ObjectProperty struct {
	Key   string
	Value Expression
}

// ObjectLiteral represents an object literal: {name: "Alice", age: 30}.
// Property order is preserved; iteration follows written order.
type ObjectLiteral struct {
	Token      token.Token // the '{' token
	Properties []ObjectProperty
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Lexeme }
func (ol *ObjectLiteral) Pos() token.Position  { return ol.Token.Pos }
func (ol *ObjectLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, prop := range ol.Properties {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(prop.Key)
		out.WriteString(": ")
		out.WriteString(prop.Value.String())
	}
	out.WriteString("}")
	return out.String()
}
