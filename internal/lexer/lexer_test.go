package lexer

import (
	"testing"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

// collect tokenizes the input and drops the trailing EOF for easier
// comparison.
func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	toks := l.Tokenize()
	if len(toks) == 0 || toks[len(toks)-1].Type != token.EOF {
		t.Fatalf("token stream does not end with EOF: %v", toks)
	}
	return toks[:len(toks)-1]
}

func TestOperators(t *testing.T) {
	input := `+ - * / % ^ = == != < > <= >= += -= *= /= -> ( ) { } [ ] , . : ;`
	expected := []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.CARET, token.ASSIGN, token.EQ, token.NOT_EQ, token.LESS,
		token.GREATER, token.LESS_EQ, token.GREATER_EQ, token.PLUS_ASSIGN,
		token.MINUS_ASSIGN, token.TIMES_ASSIGN, token.DIVIDE_ASSIGN,
		token.ARROW, token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACK, token.RBRACK, token.COMMA, token.DOT, token.COLON,
		token.SEMICOLON,
	}

	toks := collect(t, input)
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(expected), toks)
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, want)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input  string
		lexeme string
	}{
		{"0", "0"},
		{"123", "123"},
		{"3.25", "3.25"},
		{"1e10", "1e10"},
		{"2.5e-3", "2.5e-3"},
		{"7E+2", "7E+2"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := collect(t, tt.input)
			if len(toks) != 1 {
				t.Fatalf("got %d tokens, want 1: %v", len(toks), toks)
			}
			if toks[0].Type != token.NUMBER {
				t.Fatalf("got %s, want NUMBER", toks[0].Type)
			}
			if toks[0].Lexeme != tt.lexeme {
				t.Errorf("lexeme = %q, want %q", toks[0].Lexeme, tt.lexeme)
			}
		})
	}
}

func TestNumberMemberAccess(t *testing.T) {
	// A dot not followed by a digit stays a member-access dot.
	toks := collect(t, "a.b")
	types := []token.Type{token.IDENT, token.DOT, token.IDENT}
	if len(toks) != len(types) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	for i, want := range types {
		if toks[i].Type != want {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, want)
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
	}{
		{"double quoted", `"hello"`, "hello"},
		{"single quoted", `'world'`, "world"},
		{"escapes", `"a\nb\tc\\d\"e"`, "a\nb\tc\\d\"e"},
		{"single quote escape", `'it\'s'`, "it's"},
		{"interpolation reserved", `"x ${y} z"`, "x ${y} z"},
		{"empty", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := collect(t, tt.input)
			if len(toks) != 1 || toks[0].Type != token.STRING {
				t.Fatalf("got %v, want one STRING", toks)
			}
			if toks[0].Literal != tt.literal {
				t.Errorf("literal = %q, want %q", toks[0].Literal, tt.literal)
			}
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected a lex error for unterminated string")
	}
	if l.Errors()[0].Pos.Line != 1 {
		t.Errorf("error line = %d, want 1", l.Errors()[0].Pos.Line)
	}
}

func TestUnknownCharacter(t *testing.T) {
	l := New("x = 1 @ 2")
	toks := l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected a lex error for unknown character")
	}
	found := false
	for _, tok := range toks {
		if tok.Type == token.ILLEGAL {
			found = true
		}
	}
	if !found {
		t.Error("expected an ILLEGAL token in the stream")
	}
}

func TestKeywordsPromoted(t *testing.T) {
	toks := collect(t, "if elif else while for in function class")
	expected := []token.Type{
		token.IF, token.ELIF, token.ELSE, token.WHILE,
		token.FOR, token.IN, token.FUNCTION, token.CLASS,
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, want)
		}
	}
}

func TestNewlineCollapse(t *testing.T) {
	toks := collect(t, "a\n\n\nb")
	expected := []token.Type{token.IDENT, token.NEWLINE, token.IDENT}
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(expected), toks)
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, want)
		}
	}
}

func TestNewlineSuppressedInBrackets(t *testing.T) {
	input := "f(\n  1,\n  2\n)\ng[\n0\n]"
	toks := collect(t, input)
	for i, tok := range toks {
		// The only NEWLINE should separate the two statements.
		if tok.Type == token.NEWLINE {
			if i == 0 || toks[i-1].Type != token.RPAREN {
				t.Errorf("unexpected NEWLINE at token %d: %v", i, toks)
			}
		}
	}
}

func TestNewlineSignificantInBraces(t *testing.T) {
	toks := collect(t, "{ a\nb }")
	sawNewline := false
	for _, tok := range toks {
		if tok.Type == token.NEWLINE {
			sawNewline = true
		}
	}
	if !sawNewline {
		t.Error("newline inside braces must stay significant")
	}
}

func TestComments(t *testing.T) {
	toks := collect(t, "a # comment to end of line\nb")
	expected := []token.Type{token.IDENT, token.NEWLINE, token.IDENT}
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(expected), toks)
	}
}

func TestPreserveComments(t *testing.T) {
	l := New("# hello\nx", WithPreserveComments(true))
	toks := l.Tokenize()
	if toks[0].Type != token.COMMENT {
		t.Fatalf("got %s, want COMMENT", toks[0].Type)
	}
	if toks[0].Lexeme != "# hello" {
		t.Errorf("comment lexeme = %q", toks[0].Lexeme)
	}
}

func TestPositions(t *testing.T) {
	toks := collect(t, "ab cd\nef")
	positions := []struct{ line, column int }{
		{1, 1}, {1, 4}, {1, 6}, {2, 1},
	}
	if len(toks) != len(positions) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	for i, want := range positions {
		if toks[i].Pos.Line != want.line || toks[i].Pos.Column != want.column {
			t.Errorf("token %d: pos %d:%d, want %d:%d",
				i, toks[i].Pos.Line, toks[i].Pos.Column, want.line, want.column)
		}
	}
}

func TestCRLFAccepted(t *testing.T) {
	toks := collect(t, "a\r\nb")
	expected := []token.Type{token.IDENT, token.NEWLINE, token.IDENT}
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
}

func TestBOMStripped(t *testing.T) {
	toks := collect(t, "\xEF\xBB\xBFx")
	if len(toks) != 1 || toks[0].Type != token.IDENT {
		t.Fatalf("got %v, want a single IDENT", toks)
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	toks := collect(t, "héros = 1")
	if toks[0].Type != token.IDENT || toks[0].Lexeme != "héros" {
		t.Fatalf("got %v, want IDENT héros", toks[0])
	}
}

func TestPeek(t *testing.T) {
	l := New("a b c")
	if got := l.Peek(2).Lexeme; got != "c" {
		t.Errorf("Peek(2) = %q, want c", got)
	}
	// Peek must not consume.
	if got := l.NextToken().Lexeme; got != "a" {
		t.Errorf("NextToken after Peek = %q, want a", got)
	}
}
