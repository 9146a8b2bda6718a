// Package parser implements the Mythos parser using Pratt parsing.
//
// Key patterns:
//   - The whole input is tokenized up front; the parser walks a token
//     slice, which makes speculative parsing a matter of saving and
//     restoring an index (arrow functions need this).
//   - NEWLINE tokens act as soft statement terminators; the parser
//     consumes them between statements and inside literal punctuation.
//   - No error recovery: the first grammar violation is recorded and
//     parsing aborts.
package parser

import (
	"fmt"

	"github.com/mythos-lang/go-mythos/internal/ast"
	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// Precedence levels for operators (lowest to highest).
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // = += -= *= /=
	OR          // or
	AND         // and
	NOTPREC     // not x
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	POWER       // ^
	PREFIX      // -x
	CALL        // function(args), obj.field, arr[index]
)

// precedences maps token types to their precedence levels.
var precedences = map[token.Type]int{
	token.ASSIGN:        ASSIGNMENT,
	token.PLUS_ASSIGN:   ASSIGNMENT,
	token.MINUS_ASSIGN:  ASSIGNMENT,
	token.TIMES_ASSIGN:  ASSIGNMENT,
	token.DIVIDE_ASSIGN: ASSIGNMENT,
	token.OR:            OR,
	token.AND:           AND,
	token.EQ:            EQUALS,
	token.NOT_EQ:        EQUALS,
	token.LESS:          LESSGREATER,
	token.GREATER:       LESSGREATER,
	token.LESS_EQ:       LESSGREATER,
	token.GREATER_EQ:    LESSGREATER,
	token.PLUS:          SUM,
	token.MINUS:         SUM,
	token.ASTERISK:      PRODUCT,
	token.SLASH:         PRODUCT,
	token.PERCENT:       PRODUCT,
	token.CARET:         POWER,
	token.LPAREN:        CALL,
	token.LBRACK:        CALL,
	token.DOT:           CALL,
}

// prefixParseFn parses prefix expressions (literals, unary ops, grouping).
type prefixParseFn func() ast.Expression

// infixParseFn parses infix expressions (binary ops, calls, member access).
type infixParseFn func(ast.Expression) ast.Expression

// Parser parses a token stream into a program.
type Parser struct {
	tokens         []token.Token
	pos            int
	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
	errors         []*Error
}

// New creates a Parser over the given lexer. The input is tokenized
// eagerly; lexical errors surface through Errors() alongside grammar
// errors.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		tokens: l.Tokenize(),
	}
	for _, lexErr := range l.Errors() {
		err := NewError(lexErr.Pos, 1, lexErr.Message, ErrLexical)
		p.errors = append(p.errors, err)
	}

	p.prefixParseFns = map[token.Type]prefixParseFn{
		token.IDENT:   p.parseIdentifier,
		token.NUMBER:  p.parseNumberLiteral,
		token.STRING:  p.parseStringLiteral,
		token.TRUE:    p.parseBooleanLiteral,
		token.FALSE:   p.parseBooleanLiteral,
		token.NULL:    p.parseNullLiteral,
		token.LPAREN:  p.parseGroupedOrArrow,
		token.LBRACK:  p.parseArrayLiteral,
		token.LBRACE:  p.parseObjectLiteral,
		token.MINUS:   p.parsePrefixMinus,
		token.NOT:     p.parseNotExpression,
		token.NEW:     p.parseNewExpression,
		token.THIS:    p.parseThisExpression,
		token.SUPER:   p.parseSuperExpression,
		token.AWAIT:   p.parseAwaitExpression,
	}
	p.infixParseFns = map[token.Type]infixParseFn{
		token.PLUS:          p.parseBinaryExpression,
		token.MINUS:         p.parseBinaryExpression,
		token.ASTERISK:      p.parseBinaryExpression,
		token.SLASH:         p.parseBinaryExpression,
		token.PERCENT:       p.parseBinaryExpression,
		token.CARET:         p.parsePowerExpression,
		token.EQ:            p.parseBinaryExpression,
		token.NOT_EQ:        p.parseBinaryExpression,
		token.LESS:          p.parseBinaryExpression,
		token.GREATER:       p.parseBinaryExpression,
		token.LESS_EQ:       p.parseBinaryExpression,
		token.GREATER_EQ:    p.parseBinaryExpression,
		token.AND:           p.parseLogicalExpression,
		token.OR:            p.parseLogicalExpression,
		token.ASSIGN:        p.parseAssignExpression,
		token.PLUS_ASSIGN:   p.parseAssignExpression,
		token.MINUS_ASSIGN:  p.parseAssignExpression,
		token.TIMES_ASSIGN:  p.parseAssignExpression,
		token.DIVIDE_ASSIGN: p.parseAssignExpression,
		token.LPAREN:        p.parseCallExpression,
		token.LBRACK:        p.parseIndexExpression,
		token.DOT:           p.parseMemberExpression,
	}
	return p
}

// Errors returns the list of parsing errors.
func (p *Parser) Errors() []*Error {
	return p.errors
}

// ParseProgram parses the whole token stream into a Program node.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		if len(p.errors) > 0 {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.consumeStatementEnd()
		p.skipNewlines()
	}

	return program
}

// curToken returns the token at the current position.
func (p *Parser) curToken() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

// peekToken returns the token n positions ahead of the current one.
func (p *Parser) peekToken(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[idx]
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// mark saves the current token index for backtracking.
func (p *Parser) mark() int {
	return p.pos
}

// resetTo rewinds to a previously saved token index, dropping any
// errors recorded since; used after a failed speculative parse.
func (p *Parser) resetTo(mark int, errCount int) {
	p.pos = mark
	if len(p.errors) > errCount {
		p.errors = p.errors[:errCount]
	}
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken().Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken(1).Type == t
}

// expect consumes the current token if it matches, otherwise records
// an error and returns false.
func (p *Parser) expect(t token.Type) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.expectError(t)
	return false
}

// expectError records an expected-vs-found error at the current token.
func (p *Parser) expectError(expected token.Type) {
	cur := p.curToken()
	msg := fmt.Sprintf("expected %s, got %s", expected, cur.Type)
	err := NewError(cur.Pos, cur.Length(), msg, ErrUnexpectedToken)
	err.Expected = expected.String()
	err.Found = cur.Type
	p.errors = append(p.errors, err)
}

// addError records a generic error at the current token.
func (p *Parser) addError(msg, code string) {
	cur := p.curToken()
	err := NewError(cur.Pos, cur.Length(), msg, code)
	err.Found = cur.Type
	p.errors = append(p.errors, err)
}

// skipNewlines consumes any run of NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// consumeStatementEnd consumes the terminator after a statement:
// a NEWLINE, a semicolon, or nothing before '}' and EOF.
func (p *Parser) consumeStatementEnd() {
	switch p.curToken().Type {
	case token.NEWLINE, token.SEMICOLON:
		p.nextToken()
	case token.RBRACE, token.EOF:
		// block close and end of input self-terminate
	default:
		p.addError(
			fmt.Sprintf("expected end of statement, got %s", p.curToken().Type),
			ErrUnexpectedToken,
		)
	}
}

// getPrecedence returns the precedence of a token type (LOWEST if not found).
func getPrecedence(t token.Type) int {
	if prec, ok := precedences[t]; ok {
		return prec
	}
	return LOWEST
}
