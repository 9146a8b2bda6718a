package ast

import (
	"bytes"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// SceneDeclaration represents `scene NAME { body }`. The body compiles
// to a function handed to the __scene builtin together with the name.
type SceneDeclaration struct {
	Token token.Token // the 'scene' token
	Name  *Identifier
	Body  *BlockStatement
}

func (sd *SceneDeclaration) statementNode()       {}
func (sd *SceneDeclaration) TokenLiteral() string { return sd.Token.Lexeme }
func (sd *SceneDeclaration) Pos() token.Position  { return sd.Token.Pos }
func (sd *SceneDeclaration) String() string {
	return "scene " + sd.Name.String() + " " + sd.Body.String()
}

// RouteDeclaration represents `route STRING { body }` inside a web.app
// block. The body compiles to a handler function handed to __route.
type RouteDeclaration struct {
	Token token.Token // the 'route' token
	Path  *StringLiteral
	Body  *BlockStatement
}

func (rd *RouteDeclaration) statementNode()       {}
func (rd *RouteDeclaration) TokenLiteral() string { return rd.Token.Lexeme }
func (rd *RouteDeclaration) Pos() token.Position  { return rd.Token.Pos }
func (rd *RouteDeclaration) String() string {
	return "route " + rd.Path.String() + " " + rd.Body.String()
}

// WebAppStatement represents `web.app { ... }` with nested route
// declarations and ordinary statements executed in written order.
type WebAppStatement struct {
	Token token.Token // the 'web' token
	Body  *BlockStatement
}

func (wa *WebAppStatement) statementNode()       {}
func (wa *WebAppStatement) TokenLiteral() string { return wa.Token.Lexeme }
func (wa *WebAppStatement) Pos() token.Position  { return wa.Token.Pos }
func (wa *WebAppStatement) String() string {
	var out bytes.Buffer
	out.WriteString("web.app ")
	out.WriteString(wa.Body.String())
	return out.String()
}
