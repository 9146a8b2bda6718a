package parser

import (
	"fmt"

	"github.com/mythos-lang/go-mythos/internal/ast"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// parseStatement dispatches on the current token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken().Type {
	case token.LBRACE:
		// An object literal is preferred when the single-token lookahead
		// says so; otherwise a brace at statement position opens a block.
		if p.looksLikeObjectLiteral() {
			return p.parseExpressionStatement()
		}
		return p.parseBlockStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForInStatement()
	case token.FUNCTION:
		return p.parseFunctionDeclaration(false)
	case token.ASYNC:
		return p.parseAsyncDeclaration()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.CLASS:
		return p.parseClassDeclaration()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken()}
		p.nextToken()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken()}
		p.nextToken()
		return stmt
	case token.TRY:
		return p.parseTryStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.MATCH:
		return p.parseMatchStatement()
	case token.IMPORT, token.FROM:
		return p.parseImportStatement()
	case token.EXPORT:
		// Exports are reserved syntax; the declaration itself still runs.
		p.nextToken()
		return p.parseStatement()
	case token.CONST:
		return p.parseConstStatement()
	case token.SCENE:
		return p.parseSceneDeclaration()
	case token.ROUTE:
		return p.parseRouteDeclaration()
	case token.IDENT:
		if p.curToken().Lexeme == "web" && p.peekTokenIs(token.DOT) &&
			p.peekToken(2).Lexeme == "app" && p.peekToken(3).Type == token.LBRACE {
			return p.parseWebAppStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// parseBlockStatement parses `{ stmt* }` with newline separators.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken()}
	if !p.expect(token.LBRACE) {
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if len(p.errors) > 0 {
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Statements = append(block.Statements, stmt)
		p.consumeStatementEnd()
		p.skipNewlines()
	}
	if !p.expect(token.RBRACE) {
		return nil
	}
	return block
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken()}
	p.nextToken() // consume 'if' or 'elif'

	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()
	if stmt.Consequence == nil {
		return nil
	}

	// An else/elif on the next line still belongs to this if.
	if p.curTokenIs(token.NEWLINE) &&
		(p.peekTokenIs(token.ELSE) || p.peekTokenIs(token.ELIF)) {
		p.nextToken()
	}

	switch p.curToken().Type {
	case token.ELIF:
		alt := p.parseIfStatement()
		if alt == nil {
			return nil
		}
		stmt.Alternative = alt
	case token.ELSE:
		p.nextToken()
		alt := p.parseBlockStatement()
		if alt == nil {
			return nil
		}
		stmt.Alternative = alt
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken()}
	p.nextToken() // consume 'while'

	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForInStatement() ast.Statement {
	stmt := &ast.ForInStatement{Token: p.curToken()}
	p.nextToken() // consume 'for'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if !p.expect(token.IN) {
		return nil
	}
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken()}
	p.nextToken() // consume 'return'

	switch p.curToken().Type {
	case token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF:
		return stmt
	}
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseAsyncDeclaration() ast.Statement {
	p.nextToken() // consume 'async'
	if !p.curTokenIs(token.FUNCTION) {
		p.expectError(token.FUNCTION)
		return nil
	}
	return p.parseFunctionDeclaration(true)
}

// parseFunctionDeclaration parses `function name(params) { body }`.
func (p *Parser) parseFunctionDeclaration(async bool) ast.Statement {
	fn := &ast.FunctionDeclaration{Token: p.curToken(), Async: async}
	p.nextToken() // consume 'function'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	fn.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	params := p.parseParameterList()
	if params == nil && len(p.errors) > 0 {
		return nil
	}
	fn.Parameters = params

	fn.Body = p.parseBlockStatement()
	if fn.Body == nil {
		return nil
	}
	return fn
}

// parseParameterList parses `(a, b, …)` starting at '('.
func (p *Parser) parseParameterList() []*ast.Identifier {
	if !p.expect(token.LPAREN) {
		return nil
	}
	params := []*ast.Identifier{}
	if !p.curTokenIs(token.RPAREN) {
		for {
			if !p.curTokenIs(token.IDENT) {
				p.expectError(token.IDENT)
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
	if !p.expect(token.RPAREN) {
		return nil
	}
	return params
}

// parseClassDeclaration parses a class with bare method declarations.
func (p *Parser) parseClassDeclaration() ast.Statement {
	class := &ast.ClassDeclaration{Token: p.curToken()}
	p.nextToken() // consume 'class'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	class.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.EXTENDS) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.expectError(token.IDENT)
			return nil
		}
		class.Base = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
		p.nextToken()
	}

	if !p.expect(token.LBRACE) {
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.FUNCTION) {
			p.addError(
				fmt.Sprintf("expected method declaration in class body, got %s", p.curToken().Type),
				ErrUnexpectedToken,
			)
			return nil
		}
		method, ok := p.parseFunctionDeclaration(false).(*ast.FunctionDeclaration)
		if !ok || method == nil {
			return nil
		}
		class.Methods = append(class.Methods, method)
		p.skipNewlines()
	}
	if !p.expect(token.RBRACE) {
		return nil
	}
	return class
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken()}
	p.nextToken() // consume 'try'

	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}

	if p.curTokenIs(token.NEWLINE) &&
		(p.peekTokenIs(token.CATCH) || p.peekTokenIs(token.FINALLY)) {
		p.nextToken()
	}

	if p.curTokenIs(token.CATCH) {
		p.nextToken()
		if p.curTokenIs(token.LPAREN) {
			p.nextToken()
			if !p.curTokenIs(token.IDENT) {
				p.expectError(token.IDENT)
				return nil
			}
			stmt.CatchName = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
			p.nextToken()
			if !p.expect(token.RPAREN) {
				return nil
			}
		} else if p.curTokenIs(token.IDENT) {
			stmt.CatchName = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
			p.nextToken()
		}
		stmt.Catch = p.parseBlockStatement()
		if stmt.Catch == nil {
			return nil
		}
		if p.curTokenIs(token.NEWLINE) && p.peekTokenIs(token.FINALLY) {
			p.nextToken()
		}
	}

	if p.curTokenIs(token.FINALLY) {
		p.nextToken()
		stmt.Finally = p.parseBlockStatement()
		if stmt.Finally == nil {
			return nil
		}
	}

	if stmt.Catch == nil && stmt.Finally == nil {
		p.addError("try statement requires a catch or finally clause", ErrUnexpectedToken)
		return nil
	}
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken()}
	p.nextToken() // consume 'throw'

	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseMatchStatement() ast.Statement {
	stmt := &ast.MatchStatement{Token: p.curToken()}
	p.nextToken() // consume 'match'

	stmt.Discriminant = p.parseExpression(LOWEST)
	if stmt.Discriminant == nil {
		return nil
	}

	if !p.expect(token.LBRACE) {
		return nil
	}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		switch p.curToken().Type {
		case token.CASE:
			c := &ast.MatchCase{Token: p.curToken()}
			p.nextToken()
			c.Value = p.parseExpression(LOWEST)
			if c.Value == nil {
				return nil
			}
			c.Body = p.parseBlockStatement()
			if c.Body == nil {
				return nil
			}
			stmt.Cases = append(stmt.Cases, c)
		case token.DEFAULT:
			p.nextToken()
			stmt.Default = p.parseBlockStatement()
			if stmt.Default == nil {
				return nil
			}
		default:
			p.addError(
				fmt.Sprintf("expected case or default in match, got %s", p.curToken().Type),
				ErrUnexpectedToken,
			)
			return nil
		}
		p.skipNewlines()
	}
	if !p.expect(token.RBRACE) {
		return nil
	}
	return stmt
}

// parseImportStatement parses `import NAME` and `from NAME import a, b`.
func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken()}
	fromForm := p.curTokenIs(token.FROM)
	p.nextToken() // consume 'import' or 'from'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	stmt.Module = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if fromForm {
		if !p.expect(token.IMPORT) {
			return nil
		}
		for {
			if !p.curTokenIs(token.IDENT) {
				p.expectError(token.IDENT)
				return nil
			}
			stmt.Symbols = append(stmt.Symbols, &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme})
			p.nextToken()
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}
	return stmt
}

// parseConstStatement parses `const NAME = expr`. The binding behaves
// like a plain assignment; immutability is not enforced by the core.
func (p *Parser) parseConstStatement() ast.Statement {
	tok := p.curToken()
	p.nextToken() // consume 'const'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	name := &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if !p.curTokenIs(token.ASSIGN) {
		p.expectError(token.ASSIGN)
		return nil
	}
	assignTok := p.curToken()
	p.nextToken()

	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return &ast.ExpressionStatement{
		Token: tok,
		Expression: &ast.AssignExpression{
			Token:    assignTok,
			Target:   name,
			Operator: "=",
			Value:    value,
		},
	}
}

func (p *Parser) parseSceneDeclaration() ast.Statement {
	stmt := &ast.SceneDeclaration{Token: p.curToken()}
	p.nextToken() // consume 'scene'

	if !p.curTokenIs(token.IDENT) {
		p.expectError(token.IDENT)
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseRouteDeclaration() ast.Statement {
	stmt := &ast.RouteDeclaration{Token: p.curToken()}
	p.nextToken() // consume 'route'

	if !p.curTokenIs(token.STRING) {
		p.expectError(token.STRING)
		return nil
	}
	stmt.Path = &ast.StringLiteral{Token: p.curToken(), Value: p.curToken().Literal}
	p.nextToken()

	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseWebAppStatement parses `web.app { … }`.
func (p *Parser) parseWebAppStatement() ast.Statement {
	stmt := &ast.WebAppStatement{Token: p.curToken()}
	p.nextToken() // consume 'web'
	p.nextToken() // consume '.'
	p.nextToken() // consume 'app'

	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}
