// Package mythos is the embedding API for the Mythos language core.
//
// Three operations suffice for a host: Compile source text to a code
// object, register builtins, and run the code object. Engine wraps a
// VM whose globals survive across runs, which is what the REPL builds
// on.
package mythos

import (
	"io"
	"strings"

	"github.com/mythos-lang/go-mythos/internal/bytecode"
	interrors "github.com/mythos-lang/go-mythos/internal/errors"
	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/internal/parser"
)

// Value is a runtime value produced by the VM.
type Value = bytecode.Value

// Chunk is a compiled code object.
type Chunk = bytecode.Chunk

// BuiltinFunc is the host-callable signature for registered builtins.
type BuiltinFunc = bytecode.BuiltinFunc

// VM is the underlying virtual machine type, exposed for builtins that
// need to call back into the runtime.
type VM = bytecode.VM

// CompileErrors aggregates the lexical and grammar errors of one
// compilation, with enough context to render caret diagnostics.
type CompileErrors struct {
	Errors []*parser.Error
	Source string
	File   string
}

// Error implements the error interface with the first error's message.
func (ce *CompileErrors) Error() string {
	if len(ce.Errors) == 0 {
		return "compilation failed"
	}
	return ce.Errors[0].Error()
}

// Format renders every error with source context and carets.
func (ce *CompileErrors) Format(color bool) string {
	rendered := make([]*interrors.CompilerError, 0, len(ce.Errors))
	for _, err := range ce.Errors {
		rendered = append(rendered, interrors.NewCompilerError(err.Pos, err.Message, ce.Source, ce.File))
	}
	return interrors.FormatErrors(rendered, color)
}

// Compile turns source text into a code object. The returned error is
// a *CompileErrors for lex/parse failures or a *bytecode.CompileError
// for emission failures.
func Compile(source, file string) (*Chunk, error) {
	return compile(source, file, false)
}

func compile(source, file string, repl bool) (*Chunk, error) {
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		return nil, &CompileErrors{Errors: p.Errors(), Source: source, File: file}
	}

	name := file
	if name == "" {
		name = "<script>"
	}
	c := bytecode.NewCompiler(name)
	c.SetReplMode(repl)
	return c.Compile(program)
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	vmOpts []bytecode.Option
}

// WithOutput directs print output to the given writer.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.vmOpts = append(c.vmOpts, bytecode.WithOutput(w))
	}
}

// WithInput supplies the reader consumed by the input builtin.
func WithInput(r io.Reader) Option {
	return func(c *config) {
		c.vmOpts = append(c.vmOpts, bytecode.WithInput(r))
	}
}

// WithMaxFrames overrides the VM call depth limit.
func WithMaxFrames(n int) Option {
	return func(c *config) {
		c.vmOpts = append(c.vmOpts, bytecode.WithMaxFrames(n))
	}
}

// Engine owns a VM with persistent globals.
type Engine struct {
	vm *bytecode.VM
}

// New creates an Engine with the default builtin registry.
func New(opts ...Option) *Engine {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{vm: bytecode.NewVM(cfg.vmOpts...)}
}

// RegisterBuiltin binds a host callable into the global environment
// before (or between) runs. arity -1 means variadic.
func (e *Engine) RegisterBuiltin(name string, arity int, fn BuiltinFunc) {
	e.vm.RegisterBuiltin(name, arity, fn)
}

// Run executes a compiled code object. Errors are *bytecode.RuntimeError
// values carrying message, position and call stack.
func (e *Engine) Run(chunk *Chunk) (Value, error) {
	return e.vm.Run(chunk)
}

// RunSource compiles and runs source text in one step.
func (e *Engine) RunSource(source, file string) (Value, error) {
	chunk, err := Compile(source, file)
	if err != nil {
		return bytecode.NullValue(), err
	}
	return e.Run(chunk)
}

// Eval compiles a REPL line so a trailing expression leaves its result
// for the caller to display, and runs it against the persistent
// globals. A line that is only statements yields null.
func (e *Engine) Eval(line string) (Value, error) {
	if strings.TrimSpace(line) == "" {
		return bytecode.NullValue(), nil
	}
	chunk, err := compile(line, "<repl>", true)
	if err != nil {
		return bytecode.NullValue(), err
	}
	return e.Run(chunk)
}
