package errors

import (
	"strings"
	"testing"

	"github.com/mythos-lang/go-mythos/pkg/token"
)

func TestCompilerErrorFormat(t *testing.T) {
	source := "x = 10\ny = !!\nz = 30"
	err := NewCompilerError(
		token.Position{Line: 2, Column: 5},
		"unexpected token",
		source,
		"demo.mythos",
	)

	out := err.Format(false)
	if !strings.Contains(out, "demo.mythos:2:5") {
		t.Errorf("missing file position header:\n%s", out)
	}
	if !strings.Contains(out, "y = !!") {
		t.Errorf("missing source line:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("missing caret:\n%s", out)
	}
	if !strings.Contains(out, "unexpected token") {
		t.Errorf("missing message:\n%s", out)
	}

	// The caret must sit under column 5.
	lines := strings.Split(out, "\n")
	var caretLine string
	for _, line := range lines {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	sourceLinePrefix := "   2 | "
	if got := strings.Index(caretLine, "^"); got != len(sourceLinePrefix)+4 {
		t.Errorf("caret at column %d:\n%s", got, out)
	}
}

func TestCompilerErrorWithoutFile(t *testing.T) {
	err := NewCompilerError(token.Position{Line: 1, Column: 1}, "boom", "x", "")
	if !strings.Contains(err.Format(false), "Error at line 1:1") {
		t.Errorf("format = %q", err.Format(false))
	}
}

func TestFormatErrorsMultiple(t *testing.T) {
	errs := []*CompilerError{
		NewCompilerError(token.Position{Line: 1, Column: 1}, "first", "a\nb", "f"),
		NewCompilerError(token.Position{Line: 2, Column: 1}, "second", "a\nb", "f"),
	}
	out := FormatErrors(errs, false)
	if !strings.Contains(out, "2 error(s)") {
		t.Errorf("missing error count:\n%s", out)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("missing individual errors:\n%s", out)
	}
}

func TestStackTraceString(t *testing.T) {
	posMain := token.Position{Line: 1, Column: 1}
	posInner := token.Position{Line: 5, Column: 3}
	trace := StackTrace{
		NewStackFrame("<script>", &posMain),
		NewStackFrame("inner", &posInner),
	}

	out := trace.String()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	// Most recent call first.
	if !strings.HasPrefix(lines[0], "inner") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[0], "line: 5") {
		t.Errorf("missing position: %q", lines[0])
	}
	if trace.Depth() != 2 {
		t.Errorf("depth = %d", trace.Depth())
	}
}
