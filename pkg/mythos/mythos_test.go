package mythos

import (
	"bytes"
	"testing"

	"github.com/mythos-lang/go-mythos/internal/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndRun(t *testing.T) {
	var out bytes.Buffer
	engine := New(WithOutput(&out))

	chunk, err := Compile("print(6 * 7)", "test.mythos")
	require.NoError(t, err)

	result, err := engine.Run(chunk)
	require.NoError(t, err)
	assert.True(t, result.IsNull())
	assert.Equal(t, "42\n", out.String())
}

func TestRunSource(t *testing.T) {
	var out bytes.Buffer
	engine := New(WithOutput(&out))

	_, err := engine.RunSource(`
greeting = "hello"
print(greeting + ", " + "world")
`, "greet.mythos")
	require.NoError(t, err)
	assert.Equal(t, "hello, world\n", out.String())
}

func TestCompileErrorsCarryPositions(t *testing.T) {
	_, err := Compile("x = = 2", "bad.mythos")
	require.Error(t, err)

	ce, ok := err.(*CompileErrors)
	require.True(t, ok, "error should be *CompileErrors, got %T", err)
	require.NotEmpty(t, ce.Errors)
	assert.Equal(t, 1, ce.Errors[0].Pos.Line)
	assert.Contains(t, ce.Format(false), "^")
	assert.Contains(t, ce.Format(false), "bad.mythos")
}

func TestLexErrorsSurfaceAsCompileErrors(t *testing.T) {
	_, err := Compile(`s = "unterminated`, "bad.mythos")
	require.Error(t, err)
	_, ok := err.(*CompileErrors)
	assert.True(t, ok)
}

func TestRuntimeErrorCarriesStack(t *testing.T) {
	engine := New()
	_, err := engine.RunSource(`
function inner() { return missing_name }
function outer() { return inner() }
outer()
`, "trace.mythos")
	require.Error(t, err)

	rerr, ok := err.(*bytecode.RuntimeError)
	require.True(t, ok, "error should be *bytecode.RuntimeError, got %T", err)
	assert.Equal(t, "NameError", rerr.Kind)
	assert.Equal(t, 2, rerr.Pos.Line)
	assert.GreaterOrEqual(t, rerr.Trace.Depth(), 3)
}

func TestRegisterBuiltin(t *testing.T) {
	var out bytes.Buffer
	engine := New(WithOutput(&out))

	engine.RegisterBuiltin("double", 1, func(vm *VM, args []Value) (Value, error) {
		return bytecode.NumberValue(args[0].AsNumber() * 2), nil
	})

	_, err := engine.RunSource("print(double(21))", "")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())
}

func TestBuiltinReceivesTrailingOptionsObject(t *testing.T) {
	// Keyword-like named arguments arrive as a trailing object literal.
	engine := New()
	var port float64
	engine.RegisterBuiltin("start", 1, func(vm *VM, args []Value) (Value, error) {
		opts := args[0].AsObject()
		if opts != nil {
			if v, ok := opts.Get("port"); ok {
				port = v.AsNumber()
			}
		}
		return bytecode.NullValue(), nil
	})

	_, err := engine.RunSource("start({port: 8000})", "")
	require.NoError(t, err)
	assert.Equal(t, float64(8000), port)
}

func TestEvalEchoesExpressions(t *testing.T) {
	engine := New()

	result, err := engine.Eval("x = 40")
	require.NoError(t, err)
	assert.True(t, result.IsNull(), "assignment statements yield null")

	result, err = engine.Eval("x + 2")
	require.NoError(t, err)
	assert.Equal(t, float64(42), result.AsNumber(), "globals persist between Eval calls")

	result, err = engine.Eval("")
	require.NoError(t, err)
	assert.True(t, result.IsNull())
}

func TestEvalKeepsFunctionDefinitions(t *testing.T) {
	engine := New()

	_, err := engine.Eval("function square(n) { return n * n }")
	require.NoError(t, err)

	result, err := engine.Eval("square(9)")
	require.NoError(t, err)
	assert.Equal(t, float64(81), result.AsNumber())
}

func TestSerializedChunkRoundTripsThroughEngine(t *testing.T) {
	chunk, err := Compile("print(1 + 2)", "rt.mythos")
	require.NoError(t, err)

	data, err := bytecode.NewSerializer().SerializeChunk(chunk)
	require.NoError(t, err)
	loaded, err := bytecode.NewSerializer().DeserializeChunk(data)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = New(WithOutput(&out)).Run(loaded)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out.String())
}
