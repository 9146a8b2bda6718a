package bytecode

import (
	"testing"

	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/internal/parser"
)

func opcodes(chunk *Chunk) []OpCode {
	ops := make([]OpCode, 0, len(chunk.Code))
	for _, inst := range chunk.Code {
		ops = append(ops, inst.OpCode())
	}
	return ops
}

func expectOps(t *testing.T, chunk *Chunk, expected []OpCode) {
	t.Helper()
	got := opcodes(chunk)
	if len(got) != len(expected) {
		t.Fatalf("got %d instructions %v, want %d %v", len(got), names(got), len(expected), names(expected))
	}
	for i, op := range expected {
		if got[i] != op {
			t.Errorf("instruction %d: got %s, want %s", i, OpCodeNames[got[i]], OpCodeNames[op])
		}
	}
}

func names(ops []OpCode) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, OpCodeNames[op])
	}
	return out
}

func TestCompileExpressionStatement(t *testing.T) {
	chunk := compileSource(t, "x = 10")
	expectOps(t, chunk, []OpCode{
		OpLoadConst, OpDup, OpStoreGlobal, OpPop, OpHalt,
	})
}

func TestCompileGlobalLoad(t *testing.T) {
	chunk := compileSource(t, "print(x)")
	expectOps(t, chunk, []OpCode{
		OpLoadGlobal, OpLoadGlobal, OpCall, OpPop, OpHalt,
	})
}

func TestConstantFolding(t *testing.T) {
	chunk := compileSource(t, "x = 2 * 3")
	// The literal product folds to a single constant load.
	expectOps(t, chunk, []OpCode{
		OpLoadConst, OpDup, OpStoreGlobal, OpPop, OpHalt,
	})
	if got := chunk.GetConstant(0).AsNumber(); got != 6 {
		t.Errorf("folded constant = %v, want 6", got)
	}

	chunk = compileSource(t, "x = -5")
	expectOps(t, chunk, []OpCode{
		OpLoadConst, OpDup, OpStoreGlobal, OpPop, OpHalt,
	})
	if got := chunk.GetConstant(0).AsNumber(); got != -5 {
		t.Errorf("folded constant = %v, want -5", got)
	}
}

func TestConstantDeduplication(t *testing.T) {
	chunk := compileSource(t, "a = 7\nb = 7\nc = \"s\"\nd = \"s\"")
	count := 0
	for _, constant := range chunk.Constants {
		if constant.IsNumber() && constant.AsNumber() == 7 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("constant 7 appears %d times, want 1", count)
	}
}

func TestShortCircuitUsesNoPopJumps(t *testing.T) {
	chunk := compileSource(t, "x = a and b")
	var sawAnd bool
	for _, inst := range chunk.Code {
		if inst.OpCode() == OpJumpIfFalseNoPop {
			sawAnd = true
		}
	}
	if !sawAnd {
		t.Error("and should compile to JUMP_IF_FALSE_NO_POP")
	}

	chunk = compileSource(t, "x = a or b")
	var sawOr bool
	for _, inst := range chunk.Code {
		if inst.OpCode() == OpJumpIfTrueNoPop {
			sawOr = true
		}
	}
	if !sawOr {
		t.Error("or should compile to JUMP_IF_TRUE_NO_POP")
	}
}

func TestFunctionPrototype(t *testing.T) {
	chunk := compileSource(t, "function f(a, b) { c = a\nreturn c + b }")
	var fn *FunctionObject
	for _, constant := range chunk.Constants {
		if f := constant.AsFunction(); f != nil {
			fn = f
		}
	}
	if fn == nil {
		t.Fatal("no function prototype in constant pool")
	}
	if fn.Arity != 2 {
		t.Errorf("arity = %d, want 2", fn.Arity)
	}
	if len(fn.Chunk.Params) != 2 || fn.Chunk.Params[0] != "a" || fn.Chunk.Params[1] != "b" {
		t.Errorf("params = %v", fn.Chunk.Params)
	}
	if fn.Chunk.LocalCount != 3 {
		t.Errorf("local count = %d, want 3 (a, b, c)", fn.Chunk.LocalCount)
	}
	if len(fn.Chunk.LocalNames) != 3 || fn.Chunk.LocalNames[2] != "c" {
		t.Errorf("local names = %v", fn.Chunk.LocalNames)
	}
}

func TestUpvalueDescriptors(t *testing.T) {
	chunk := compileSource(t, `function outer(x) {
  return (y) -> (z) -> x + y + z
}`)
	var outer *FunctionObject
	for _, constant := range chunk.Constants {
		if f := constant.AsFunction(); f != nil {
			outer = f
		}
	}
	if outer == nil {
		t.Fatal("missing outer prototype")
	}

	var mid *FunctionObject
	for _, constant := range outer.Chunk.Constants {
		if f := constant.AsFunction(); f != nil {
			mid = f
		}
	}
	if mid == nil {
		t.Fatal("missing middle arrow prototype")
	}
	// The middle arrow captures x from outer as a direct local.
	if len(mid.UpvalueDefs) != 1 || !mid.UpvalueDefs[0].IsLocal {
		t.Fatalf("middle upvalues = %+v, want one local capture", mid.UpvalueDefs)
	}

	var inner *FunctionObject
	for _, constant := range mid.Chunk.Constants {
		if f := constant.AsFunction(); f != nil {
			inner = f
		}
	}
	if inner == nil {
		t.Fatal("missing inner arrow prototype")
	}
	// The inner arrow captures x forwarded from the middle closure and
	// y as a direct local of the middle frame.
	if len(inner.UpvalueDefs) != 2 {
		t.Fatalf("inner upvalues = %+v, want 2", inner.UpvalueDefs)
	}
	var locals, forwarded int
	for _, def := range inner.UpvalueDefs {
		if def.IsLocal {
			locals++
		} else {
			forwarded++
		}
	}
	if locals != 1 || forwarded != 1 {
		t.Errorf("inner upvalues = %+v, want one local + one forwarded", inner.UpvalueDefs)
	}
}

func TestTryTableRecorded(t *testing.T) {
	chunk := compileSource(t, `try {
  x = 1
} catch (e) {
  x = 2
} finally {
  x = 3
}`)
	var tryIdx = -1
	for i, inst := range chunk.Code {
		if inst.OpCode() == OpPushTry {
			tryIdx = i
			break
		}
	}
	if tryIdx < 0 {
		t.Fatal("no PUSH_TRY emitted")
	}
	info, ok := chunk.TryInfoAt(tryIdx)
	if !ok {
		t.Fatal("PUSH_TRY has no try metadata")
	}
	if !info.HasCatch || !info.HasFinally {
		t.Errorf("info = %+v", info)
	}
	if info.CatchTarget <= tryIdx || info.FinallyTarget <= info.CatchTarget {
		t.Errorf("targets out of order: %+v", info)
	}
}

func TestPositionsPropagated(t *testing.T) {
	chunk := compileSource(t, "x = 1\ny = 2\nz = 3")
	sawLine3 := false
	for offset := range chunk.Code {
		if chunk.GetPos(offset).Line == 3 {
			sawLine3 = true
		}
	}
	if !sawLine3 {
		t.Error("instruction positions should reach line 3")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"break outside loop", "break"},
		{"continue outside loop", "continue"},
		{"this outside method", "x = this"},
		{"super outside method", "class A { }\nx = super.f()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parser.New(lexer.New(tt.source))
			program := p.ParseProgram()
			if len(p.Errors()) > 0 {
				t.Skipf("parser already rejects: %v", p.Errors()[0])
			}
			if _, err := NewCompiler("<test>").Compile(program); err == nil {
				t.Error("expected a compile error")
			}
		})
	}
}

func TestReplModeKeepsLastExpression(t *testing.T) {
	p := parser.New(lexer.New("x = 20\nx * 2 + 2"))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors()[0])
	}
	c := NewCompiler("<repl>")
	c.SetReplMode(true)
	chunk, err := c.Compile(program)
	if err != nil {
		t.Fatal(err)
	}

	vm := NewVM()
	result, err := vm.Run(chunk)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Errorf("result = %s, want 42", result.String())
	}
}
