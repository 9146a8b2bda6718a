// Package lexer implements the lexical scanner for Mythos source code.
//
// The lexer consumes UTF-8 text and produces tokens on demand. Column
// positions are reported as rune counts from the start of the line, not
// byte offsets. Line breaks produce NEWLINE tokens which the parser uses
// as soft statement terminators; consecutive newlines collapse into one,
// and newlines inside () or [] nesting are suppressed via a bracket
// counter so multi-line expressions lex naturally. Braces stay outside
// the counter because block bodies rely on NEWLINE as a terminator; the
// parser skips newlines inside object literals itself.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// Error describes a lexical error with its source position.
type Error struct {
	Message string
	Pos     token.Position
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Lexer is a lexical scanner over a single source text.
type Lexer struct {
	input            string
	errors           []Error
	tokenBuffer      []token.Token
	position         int
	readPosition     int
	line             int
	column           int
	ch               rune
	bracketDepth     int
	lastWasNewline   bool
	preserveComments bool
}

// Option configures a Lexer during creation.
type Option func(*Lexer)

// WithPreserveComments makes the lexer return COMMENT tokens instead of
// skipping comments. Useful for formatters and documentation tools.
func WithPreserveComments(preserve bool) Option {
	return func(l *Lexer) {
		l.preserveComments = preserve
	}
}

// New creates a Lexer for the given input. A leading UTF-8 BOM is
// stripped if present; CRLF line endings are accepted.
func New(input string, opts ...Option) *Lexer {
	if len(input) >= 3 && input[0] == 0xEF && input[1] == 0xBB && input[2] == 0xBF {
		input = input[3:]
	}

	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.readChar()
	return l
}

// Errors returns all accumulated lexer errors.
func (l *Lexer) Errors() []Error {
	return l.errors
}

// addError records an error without halting; the parser reports them.
func (l *Lexer) addError(msg string, pos token.Position) {
	l.errors = append(l.errors, Error{Message: msg, Pos: pos})
}

// readChar advances the lexer to the next character in the input.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
	if r == utf8.RuneError && size == 1 {
		l.addError("invalid UTF-8 encoding", l.currentPos())
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// currentPos returns the current Position for token creation.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.column,
		Offset: l.position,
	}
}

// Peek returns the token n positions ahead without consuming it.
// Peek(0) is the token NextToken would return next. Tokens are buffered
// lazily as needed, which gives the parser arbitrary lookahead without
// re-lexing.
func (l *Lexer) Peek(n int) token.Token {
	for len(l.tokenBuffer) <= n {
		l.tokenBuffer = append(l.tokenBuffer, l.nextTokenInternal())
	}
	return l.tokenBuffer[n]
}

// NextToken returns the next token in the input.
func (l *Lexer) NextToken() token.Token {
	if len(l.tokenBuffer) > 0 {
		tok := l.tokenBuffer[0]
		l.tokenBuffer = l.tokenBuffer[1:]
		return tok
	}
	return l.nextTokenInternal()
}

// Tokenize consumes the whole input and returns every token up to and
// including EOF. Used by the `lex` CLI subcommand and tests.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) nextTokenInternal() token.Token {
	l.skipWhitespace()

	// Comments run to end of line; the trailing newline is handled on
	// the next call so comment-only lines still terminate statements.
	if l.ch == '#' {
		pos := l.currentPos()
		text := l.readLineComment()
		if l.preserveComments {
			l.lastWasNewline = false
			return token.New(token.COMMENT, text, pos)
		}
		return l.nextTokenInternal()
	}

	pos := l.currentPos()

	switch l.ch {
	case 0:
		return token.New(token.EOF, "", pos)
	case '\n':
		l.line++
		l.column = 0
		l.readChar()
		if l.bracketDepth > 0 || l.lastWasNewline {
			return l.nextTokenInternal()
		}
		l.lastWasNewline = true
		return token.New(token.NEWLINE, "\n", pos)
	case '"', '\'':
		l.lastWasNewline = false
		return l.readString(l.ch, pos)
	}

	l.lastWasNewline = false

	if tok, ok := l.readOperator(pos); ok {
		return tok
	}

	if isDigit(l.ch) {
		return l.readNumber(pos)
	}
	if isIdentStart(l.ch) {
		return l.readIdentifier(pos)
	}

	ch := l.ch
	l.addError(fmt.Sprintf("unexpected character %q", ch), pos)
	l.readChar()
	return token.New(token.ILLEGAL, string(ch), pos)
}

// skipWhitespace skips spaces, tabs and carriage returns. Newlines are
// significant and handled by nextTokenInternal.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// readLineComment reads a # comment up to (not including) end of line.
func (l *Lexer) readLineComment() string {
	startPos := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[startPos:l.position]
}

// readOperator recognises punctuation and operators, longest match wins.
func (l *Lexer) readOperator(pos token.Position) (token.Token, bool) {
	two := func(typ token.Type, lexeme string) token.Token {
		l.readChar()
		l.readChar()
		return token.New(typ, lexeme, pos)
	}
	one := func(typ token.Type) token.Token {
		lexeme := string(l.ch)
		l.readChar()
		return token.New(typ, lexeme, pos)
	}

	switch l.ch {
	case '+':
		if l.peekChar() == '=' {
			return two(token.PLUS_ASSIGN, "+="), true
		}
		return one(token.PLUS), true
	case '-':
		switch l.peekChar() {
		case '=':
			return two(token.MINUS_ASSIGN, "-="), true
		case '>':
			return two(token.ARROW, "->"), true
		}
		return one(token.MINUS), true
	case '*':
		if l.peekChar() == '=' {
			return two(token.TIMES_ASSIGN, "*="), true
		}
		return one(token.ASTERISK), true
	case '/':
		if l.peekChar() == '=' {
			return two(token.DIVIDE_ASSIGN, "/="), true
		}
		return one(token.SLASH), true
	case '%':
		return one(token.PERCENT), true
	case '^':
		return one(token.CARET), true
	case '=':
		if l.peekChar() == '=' {
			return two(token.EQ, "=="), true
		}
		return one(token.ASSIGN), true
	case '!':
		if l.peekChar() == '=' {
			return two(token.NOT_EQ, "!="), true
		}
		return token.Token{}, false
	case '<':
		if l.peekChar() == '=' {
			return two(token.LESS_EQ, "<="), true
		}
		return one(token.LESS), true
	case '>':
		if l.peekChar() == '=' {
			return two(token.GREATER_EQ, ">="), true
		}
		return one(token.GREATER), true
	case '(':
		l.bracketDepth++
		return one(token.LPAREN), true
	case ')':
		if l.bracketDepth > 0 {
			l.bracketDepth--
		}
		return one(token.RPAREN), true
	case '[':
		l.bracketDepth++
		return one(token.LBRACK), true
	case ']':
		if l.bracketDepth > 0 {
			l.bracketDepth--
		}
		return one(token.RBRACK), true
	case '{':
		return one(token.LBRACE), true
	case '}':
		return one(token.RBRACE), true
	case ',':
		return one(token.COMMA), true
	case '.':
		return one(token.DOT), true
	case ':':
		return one(token.COLON), true
	case ';':
		return one(token.SEMICOLON), true
	}
	return token.Token{}, false
}

// readNumber reads digits with an optional decimal point and exponent.
// The sign of an exponent is part of the literal; a leading sign on the
// number itself is handled at the expression level.
func (l *Lexer) readNumber(pos token.Position) token.Token {
	startPos := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				l.addError("malformed exponent in number literal", l.currentPos())
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lexeme := l.input[startPos:l.position]
	return token.New(token.NUMBER, lexeme, pos)
}

// readString reads a single- or double-quoted string literal, resolving
// the escape sequences \n \t \r \\ \" \'. The ${...} interpolation
// syntax is reserved and passed through literally.
func (l *Lexer) readString(quote rune, pos token.Position) token.Token {
	var sb strings.Builder
	startPos := l.position
	l.readChar() // opening quote

	for {
		switch l.ch {
		case 0, '\n':
			l.addError("unterminated string literal", pos)
			tok := token.Token{
				Type:    token.ILLEGAL,
				Lexeme:  l.input[startPos:l.position],
				Literal: sb.String(),
				Pos:     pos,
			}
			return tok
		case quote:
			l.readChar() // closing quote
			return token.Token{
				Type:    token.STRING,
				Lexeme:  l.input[startPos:l.position],
				Literal: sb.String(),
				Pos:     pos,
			}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			default:
				l.addError(fmt.Sprintf("unknown escape sequence \\%c", l.ch), l.currentPos())
				sb.WriteRune(l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(pos token.Position) token.Token {
	startPos := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	lexeme := l.input[startPos:l.position]
	return token.New(token.LookupIdent(lexeme), lexeme, pos)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
