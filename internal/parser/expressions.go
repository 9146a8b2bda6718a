package parser

import (
	"fmt"
	"strconv"

	"github.com/mythos-lang/go-mythos/internal/ast"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// parseExpression parses an expression with the given minimum precedence.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken().Type]
	if prefix == nil {
		p.addError(
			fmt.Sprintf("unexpected token %s in expression", p.curToken().Type),
			ErrNoPrefixParse,
		)
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for precedence < getPrecedence(p.curToken().Type) {
		infix := p.infixParseFns[p.curToken().Type]
		if infix == nil {
			return left
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.Identifier{Token: tok, Value: tok.Lexeme}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	tok := p.curToken()
	value, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid number literal %q", tok.Lexeme), ErrBadNumber)
		return nil
	}
	p.nextToken()
	return &ast.NumberLiteral{Token: tok, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.StringLiteral{Token: tok, Value: tok.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.BooleanLiteral{Token: tok, Value: tok.Type == token.TRUE}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.NullLiteral{Token: tok}
}

func (p *Parser) parsePrefixMinus() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	right := p.parseExpression(PREFIX)
	if right == nil {
		return nil
	}
	return &ast.UnaryExpression{Token: tok, Operator: "-", Right: right}
}

// parseNotExpression parses `not x`; its operand binds tighter than
// `and`/`or` but looser than comparisons, so `not a == b` negates the
// comparison result.
func (p *Parser) parseNotExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	right := p.parseExpression(NOTPREC)
	if right == nil {
		return nil
	}
	return &ast.UnaryExpression{Token: tok, Operator: "not", Right: right}
}

func (p *Parser) parseAwaitExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	value := p.parseExpression(PREFIX)
	if value == nil {
		return nil
	}
	return &ast.AwaitExpression{Token: tok, Value: value}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	precedence := getPrecedence(tok.Type)
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{
		Token:    tok,
		Left:     left,
		Operator: tok.Lexeme,
		Right:    right,
	}
}

// parsePowerExpression parses `^` right-associatively.
func (p *Parser) parsePowerExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	right := p.parseExpression(POWER - 1)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{
		Token:    tok,
		Left:     left,
		Operator: tok.Lexeme,
		Right:    right,
	}
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	precedence := getPrecedence(tok.Type)
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.LogicalExpression{
		Token:    tok,
		Left:     left,
		Operator: tok.Lexeme,
		Right:    right,
	}
}

// parseAssignExpression parses plain and compound assignment,
// right-associatively, after validating the target.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()

	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
	default:
		p.addError(
			fmt.Sprintf("invalid assignment target %T", left),
			ErrBadAssignTarget,
		)
		return nil
	}

	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}
	return &ast.AssignExpression{
		Token:    tok,
		Target:   left,
		Operator: tok.Lexeme,
		Value:    value,
	}
}

// parseGroupedOrArrow disambiguates `(expr)` from `(params) -> body`.
// It first guesses an arrow function; a failed guess rewinds to the
// saved token index and parses a grouped expression instead.
func (p *Parser) parseGroupedOrArrow() ast.Expression {
	if arrow := p.tryParseArrowFunction(); arrow != nil {
		return arrow
	}

	tok := p.curToken()
	p.nextToken() // consume '('
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ast.GroupedExpression{Token: tok, Expression: expr}
}

// tryParseArrowFunction speculatively parses `(a, b) -> …`. Returns nil
// (with the parser rewound) when the lookahead is not an arrow function.
func (p *Parser) tryParseArrowFunction() ast.Expression {
	start := p.mark()
	errCount := len(p.errors)
	tok := p.curToken()

	p.nextToken() // consume '('
	var params []*ast.Identifier
	if !p.curTokenIs(token.RPAREN) {
		for {
			if !p.curTokenIs(token.IDENT) {
				p.resetTo(start, errCount)
				return nil
			}
			params = append(params, &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme})
			p.nextToken()
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}
	if !p.curTokenIs(token.RPAREN) || !p.peekTokenIs(token.ARROW) {
		p.resetTo(start, errCount)
		return nil
	}
	p.nextToken() // consume ')'
	p.nextToken() // consume '->'

	arrow := &ast.ArrowFunction{Token: tok, Parameters: params}
	if p.curTokenIs(token.LBRACE) && !p.looksLikeObjectLiteral() {
		arrow.Body = p.parseBlockStatement()
		if arrow.Body == nil {
			return nil
		}
	} else {
		arrow.Expr = p.parseExpression(LOWEST)
		if arrow.Expr == nil {
			return nil
		}
	}
	return arrow
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume '['

	var elements []ast.Expression
	if !p.curTokenIs(token.RBRACK) {
		for {
			el := p.parseExpression(LOWEST)
			if el == nil {
				return nil
			}
			elements = append(elements, el)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}
	if !p.expect(token.RBRACK) {
		return nil
	}
	return &ast.ArrayLiteral{Token: tok, Elements: elements}
}

// looksLikeObjectLiteral reports whether the current '{' opens an object
// literal: one token of lookahead for `IDENT :` or `STRING :` (newlines
// after the brace are skipped), or the empty literal `{}` immediately
// closed.
func (p *Parser) looksLikeObjectLiteral() bool {
	if !p.curTokenIs(token.LBRACE) {
		return false
	}
	if p.peekToken(1).Type == token.RBRACE {
		return true
	}
	i := 1
	for p.peekToken(i).Type == token.NEWLINE {
		i++
	}
	next := p.peekToken(i)
	if next.Type == token.IDENT || next.Type == token.STRING {
		return p.peekToken(i+1).Type == token.COLON
	}
	return false
}

// parseObjectLiteral parses `{key: value, …}`. Keys are identifiers or
// string literals; newlines around entries are insignificant.
func (p *Parser) parseObjectLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume '{'
	p.skipNewlines()

	obj := &ast.ObjectLiteral{Token: tok}
	for !p.curTokenIs(token.RBRACE) {
		var key string
		switch p.curToken().Type {
		case token.IDENT:
			key = p.curToken().Lexeme
		case token.STRING:
			key = p.curToken().Literal
		default:
			p.addError(
				fmt.Sprintf("expected object key, got %s", p.curToken().Type),
				ErrUnexpectedToken,
			)
			return nil
		}
		p.nextToken()
		if !p.expect(token.COLON) {
			return nil
		}
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		obj.Properties = append(obj.Properties, ast.ObjectProperty{Key: key, Value: value})

		p.skipNewlines()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
			continue
		}
		break
	}
	if !p.expect(token.RBRACE) {
		return nil
	}
	return obj
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	tok := p.curToken()
	args := p.parseArgumentList()
	if args == nil && len(p.errors) > 0 {
		return nil
	}
	return &ast.CallExpression{Token: tok, Callee: callee, Arguments: args}
}

// parseArgumentList parses `(a, b, …)` starting at '('.
func (p *Parser) parseArgumentList() []ast.Expression {
	p.nextToken() // consume '('

	args := []ast.Expression{}
	if !p.curTokenIs(token.RPAREN) {
		for {
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return args
}

func (p *Parser) parseIndexExpression(object ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume '['
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil
	}
	if !p.expect(token.RBRACK) {
		return nil
	}
	return &ast.IndexExpression{Token: tok, Object: object, Index: index}
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume '.'
	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	property := &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	return &ast.MemberExpression{Token: tok, Object: object, Property: property}
}

func (p *Parser) parseNewExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume 'new'

	// The class designator may be dotted: new engine.Cube(…).
	var class ast.Expression
	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	class = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	for p.curTokenIs(token.DOT) {
		class = p.parseMemberExpression(class)
		if class == nil {
			return nil
		}
	}

	if !p.curTokenIs(token.LPAREN) {
		p.expectError(token.LPAREN)
		return nil
	}
	args := p.parseArgumentList()
	if args == nil && len(p.errors) > 0 {
		return nil
	}
	return &ast.NewExpression{Token: tok, Class: class, Arguments: args}
}

func (p *Parser) parseThisExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.ThisExpression{Token: tok}
}

func (p *Parser) parseSuperExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken() // consume 'super'
	if !p.expect(token.DOT) {
		return nil
	}
	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	method := &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	return &ast.SuperExpression{Token: tok, Method: method}
}
