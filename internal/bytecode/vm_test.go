package bytecode

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/internal/parser"
)

// compileSource compiles source text to a chunk, failing the test on
// any error.
func compileSource(t *testing.T, source string) *Chunk {
	t.Helper()
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %s", p.Errors()[0].Error())
	}
	chunk, err := NewCompiler("<test>").Compile(program)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

// runSource executes source text and returns the captured stdout.
func runSource(t *testing.T, source string) string {
	t.Helper()
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out))
	if _, err := vm.Run(compileSource(t, source)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return out.String()
}

// runSourceErr executes source text expecting a runtime error.
func runSourceErr(t *testing.T, source string) *RuntimeError {
	t.Helper()
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out))
	_, err := vm.Run(compileSource(t, source))
	if err == nil {
		t.Fatalf("expected a runtime error, got none (output %q)", out.String())
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("error is %T, want *RuntimeError", err)
	}
	return rerr
}

// TestScenarios runs the language's canonical source → stdout pairs.
func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			"global arithmetic",
			"x = 10\ny = 20\nprint(x + y)",
			"30\n",
		},
		{
			"function call",
			"function f(a, b) { return a * b }\nprint(f(6, 7))",
			"42\n",
		},
		{
			"for over range",
			"s = \"\"\nfor i in range(1, 4) { s = s + string(i) }\nprint(s)",
			"123\n",
		},
		{
			"array indexing",
			"a = [1, 2, 3]\nprint(a[0] + a[2])",
			"4\n",
		},
		{
			"object member",
			"o = {n: \"Alice\", a: 30}\nprint(o.n)",
			"Alice\n",
		},
		{
			"closure capture",
			"function mk(x) { return (y) -> x + y }\nadd5 = mk(5)\nprint(add5(3))",
			"8\n",
		},
		{
			"class with constructor",
			"class C { function constructor(v) { this.v = v } function get() { return this.v } }\nprint(new C(7).get())",
			"7\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runSource(t, tt.source); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{"print(7 % 3)", "1\n"},
		{"print(2 ^ 10)", "1024\n"},
		{"print(10 / 4)", "2.5\n"},
		{"print(-(3 + 4))", "-7\n"},
		{"print(\"a\" + \"b\")", "ab\n"},
		{"print(\"n=\" + 42)", "n=42\n"},
		{"print(1 + \"x\")", "1x\n"},
		{"print(0.1 + 0.2 == 0.3)", "false\n"},
		{"print(2 ^ 3 ^ 2)", "512\n"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := runSource(t, tt.source); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDivisionByZeroIsIEEE(t *testing.T) {
	out := runSource(t, "print(1 / 0)\nprint(-1 / 0)\nprint(0 / 0)")
	if out != "inf\n-inf\nnan\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNaNEquality(t *testing.T) {
	out := runSource(t, "n = 0 / 0\nprint(n == n)\nprint(n != n)")
	if out != "false\ntrue\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTruthiness(t *testing.T) {
	source := `falsy = [false, null, 0, "", [], {}]
for v in falsy {
  if v {
    print("truthy")
  } else {
    print("falsy")
  }
}
if [0] {
  print("non-empty array is truthy")
}`
	out := runSource(t, source)
	expected := strings.Repeat("falsy\n", 6) + "non-empty array is truthy\n"
	if out != expected {
		t.Errorf("output = %q", out)
	}
}

func TestShortCircuit(t *testing.T) {
	source := `function boom() { throw "should not evaluate" }
print(false and boom())
print(true or boom())
print(1 and 2)
print(0 or "fallback")`
	out := runSource(t, source)
	if out != "false\ntrue\n2\nfallback\n" {
		t.Errorf("output = %q", out)
	}
}

func TestWhileBreakContinue(t *testing.T) {
	source := `i = 0
total = 0
while true {
  i += 1
  if i > 10 { break }
  if i % 2 == 0 { continue }
  total += i
}
print(total)`
	if got := runSource(t, source); got != "25\n" {
		t.Errorf("output = %q", got)
	}
}

func TestForInIterables(t *testing.T) {
	source := `for c in "abc" { print(c) }
for k in {x: 1, y: 2} { print(k) }
total = 0
for n in [5, 6, 7] { total += n }
print(total)
for i in range(3) { print(i) }`
	out := runSource(t, source)
	expected := "a\nb\nc\nx\ny\n18\n0\n1\n2\n"
	if out != expected {
		t.Errorf("output = %q, want %q", out, expected)
	}
}

func TestClosuresShareCapturedLocal(t *testing.T) {
	source := `function counter() {
  n = 0
  inc = () -> n = n + 1
  get = () -> n
  inc()
  inc()
  return get()
}
print(counter())`
	if got := runSource(t, source); got != "2\n" {
		t.Errorf("output = %q, want 2 (closures must share the captured cell)", got)
	}
}

func TestClosureCapturesVariableNotValue(t *testing.T) {
	source := `function mk() {
  x = 1
  f = () -> x
  x = 99
  return f()
}
print(mk())`
	if got := runSource(t, source); got != "99\n" {
		t.Errorf("output = %q, want 99 (capture the variable, not its value)", got)
	}
}

func TestClosureOutlivesFrame(t *testing.T) {
	source := `function mk(x) { return () -> x * 2 }
f = mk(21)
print(f())`
	if got := runSource(t, source); got != "42\n" {
		t.Errorf("output = %q", got)
	}
}

func TestDeepRecursion(t *testing.T) {
	source := `function down(n) {
  if n == 0 { return 0 }
  return down(n - 1)
}
print(down(1500))`
	if got := runSource(t, source); got != "0\n" {
		t.Errorf("output = %q (1500 frames must fit under the limit)", got)
	}
}

func TestStackOverflowIsReported(t *testing.T) {
	rerr := runSourceErr(t, "function f() { return f() }\nf()")
	if !strings.Contains(rerr.Message, "overflow") {
		t.Errorf("message = %q", rerr.Message)
	}
}

func TestMissingParametersFillWithNull(t *testing.T) {
	source := `function f(a, b) { return b }
print(f(1) == null)
print(f(1, 2, 3))`
	if got := runSource(t, source); got != "true\n2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestInheritanceAndSuper(t *testing.T) {
	source := `class Animal {
  function constructor(name) { this.name = name }
  function speak() { return this.name + " makes a sound" }
}
class Dog extends Animal {
  function speak() { return super.speak() + ": woof" }
}
d = new Dog("Rex")
print(d.speak())`
	if got := runSource(t, source); got != "Rex makes a sound: woof\n" {
		t.Errorf("output = %q", got)
	}
}

func TestInheritedConstructor(t *testing.T) {
	source := `class Base { function constructor(v) { this.v = v } }
class Derived extends Base { }
print(new Derived(5).v)`
	if got := runSource(t, source); got != "5\n" {
		t.Errorf("output = %q", got)
	}
}

func TestConstructorReturnValueIgnored(t *testing.T) {
	source := `class C { function constructor() { return 123 } }
c = new C()
print(type(c))`
	if got := runSource(t, source); got != "instance\n" {
		t.Errorf("output = %q (new must yield the instance)", got)
	}
}

func TestMethodLookupFieldFirst(t *testing.T) {
	source := `class C { function f() { return "method" } }
c = new C()
c.f = () -> "field"
print(c.f())`
	if got := runSource(t, source); got != "field\n" {
		t.Errorf("output = %q (own fields shadow methods)", got)
	}
}

func TestClassCalledLikeFunction(t *testing.T) {
	source := `class P { function constructor(x) { this.x = x } }
p = P(9)
print(p.x)`
	if got := runSource(t, source); got != "9\n" {
		t.Errorf("output = %q (calling a class instantiates it)", got)
	}
}

func TestMatchStatement(t *testing.T) {
	source := `function name(n) {
  match n {
    case 1 { return "one" }
    case 2 { return "two" }
    default { return "many" }
  }
}
print(name(1))
print(name(2))
print(name(3))`
	if got := runSource(t, source); got != "one\ntwo\nmany\n" {
		t.Errorf("output = %q", got)
	}
}

func TestMatchNoCaseNoDefaultFallsThrough(t *testing.T) {
	source := `match 42 {
  case 1 { print("no") }
}
print("after")`
	if got := runSource(t, source); got != "after\n" {
		t.Errorf("output = %q", got)
	}
}

func TestThrowCatch(t *testing.T) {
	source := `try {
  throw "boom"
  print("unreachable")
} catch (e) {
  print("caught " + e)
}`
	if got := runSource(t, source); got != "caught boom\n" {
		t.Errorf("output = %q", got)
	}
}

func TestFinallyRunsOnAllPaths(t *testing.T) {
	source := `function f(mode) {
  try {
    if mode == "throw" { throw "x" }
    if mode == "return" { return "early" }
  } catch (e) {
    print("caught")
  } finally {
    print("finally " + mode)
  }
  return "normal"
}
print(f("ok"))
print(f("throw"))
print(f("return"))`
	expected := "finally ok\nnormal\ncaught\nfinally throw\nnormal\nfinally return\nearly\n"
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q, want %q", got, expected)
	}
}

func TestBreakInTryRunsFinallyOnce(t *testing.T) {
	source := `for i in range(5) {
  try {
    if i == 1 { break }
  } finally {
    print("finally " + i)
  }
}
print("done")`
	expected := "finally 0\nfinally 1\ndone\n"
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q, want %q", got, expected)
	}
}

func TestContinueInTryRunsFinally(t *testing.T) {
	source := `for i in range(3) {
  try {
    if i == 1 { continue }
    print("body " + i)
  } finally {
    print("finally " + i)
  }
}`
	expected := "body 0\nfinally 0\nfinally 1\nbody 2\nfinally 2\n"
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q, want %q", got, expected)
	}
}

func TestRethrowAfterFinally(t *testing.T) {
	source := `try {
  try {
    throw "inner"
  } finally {
    print("finally")
  }
} catch (e) {
  print("outer caught " + e)
}`
	expected := "finally\nouter caught inner\n"
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q, want %q", got, expected)
	}
}

func TestThrowInCatchStillRunsFinally(t *testing.T) {
	source := `try {
  try {
    throw "first"
  } catch (e) {
    throw "second"
  } finally {
    print("finally")
  }
} catch (e) {
  print("caught " + e)
}`
	expected := "finally\ncaught second\n"
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q, want %q", got, expected)
	}
}

func TestExceptionUnwindsCallFrames(t *testing.T) {
	source := `function deep(n) {
  if n == 0 { throw "bottom" }
  return deep(n - 1)
}
try {
  deep(10)
} catch (e) {
  print("caught " + e)
}`
	if got := runSource(t, source); got != "caught bottom\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRuntimeErrorsAreCatchable(t *testing.T) {
	source := `try {
  x = 1 + [1]
} catch (e) {
  print(e.kind)
}
try {
  missing()
} catch (e) {
  print(e.kind)
}`
	if got := runSource(t, source); got != "TypeError\nNameError\n" {
		t.Errorf("output = %q", got)
	}
}

func TestUncaughtErrorKinds(t *testing.T) {
	tests := []struct {
		source string
		kind   string
	}{
		{"x = 1 + true", KindType},
		{"nope()", KindName},
		{"x = 5\nx()", KindType},
		{"a = [1]\na[5] = 0", KindIndex},
		{"print(1 < \"a\")", KindType},
		{"x = -\"s\"", KindType},
		{"for x in 5 { }", KindType},
		{"throw \"custom\"", KindError},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			rerr := runSourceErr(t, tt.source)
			if rerr.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (message %q)", rerr.Kind, tt.kind, rerr.Message)
			}
		})
	}
}

func TestErrorPositionAndTrace(t *testing.T) {
	rerr := runSourceErr(t, "x = 1\ny = 2\nz = x + [3]")
	if rerr.Pos.Line != 3 {
		t.Errorf("error line = %d, want 3", rerr.Pos.Line)
	}
	if rerr.Trace.Depth() == 0 {
		t.Error("expected a captured call stack")
	}
}

func TestLenientReads(t *testing.T) {
	source := `a = [1, 2, 3]
print(a[10] == null)
print(a[-1] == null)
o = {x: 1}
print(o.missing == null)
print(o["missing"] == null)
print("abc"[99] == null)`
	expected := strings.Repeat("true\n", 5)
	if got := runSource(t, source); got != expected {
		t.Errorf("output = %q", got)
	}
}

func TestMutationThroughReferences(t *testing.T) {
	source := `a = [1, 2]
b = a
b[0] = 99
print(a[0])
o = {v: 1}
p = o
p.v = 42
print(o.v)`
	if got := runSource(t, source); got != "99\n42\n" {
		t.Errorf("output = %q (arrays and objects are reference types)", got)
	}
}

func TestCompoundAssignments(t *testing.T) {
	source := `x = 10
x += 5
x -= 3
x *= 2
x /= 4
print(x)
o = {n: 1}
o.n += 9
print(o.n)
a = [1, 2]
a[1] *= 10
print(a[1])`
	if got := runSource(t, source); got != "6\n10\n20\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStatementStackDiscipline(t *testing.T) {
	// Invariant: after any statement, stack depth returns to zero.
	source := `x = 1 + 2
if x > 1 { y = x * 2 }
for i in range(3) { x += i }
while x > 10 { x -= 100 }
match x { case 1 { x = 0 } }
try { x += 1 } catch (e) { x = 0 }`
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out))
	if _, err := vm.Run(compileSource(t, source)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if depth := vm.StackDepth(); depth != 0 {
		t.Errorf("stack depth after program = %d, want 0", depth)
	}
}

func TestImportSceneRouteAreInertByDefault(t *testing.T) {
	source := `import physics
scene Intro { print("never runs by default") }
web.app {
  route "/x" { print("never runs either") }
}
print("ok")`
	if got := runSource(t, source); got != "ok\n" {
		t.Errorf("output = %q", got)
	}
}

func TestHostOverridesSpecialForms(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out))
	var scenes []string
	vm.RegisterBuiltin("__scene", 2, func(vm *VM, args []Value) (Value, error) {
		scenes = append(scenes, args[0].AsString())
		return vm.CallFunction(args[1], nil)
	})
	chunk := compileSource(t, "scene Intro { print(\"running\") }")
	if _, err := vm.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if len(scenes) != 1 || scenes[0] != "Intro" {
		t.Fatalf("scenes = %v", scenes)
	}
	if out.String() != "running\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestAsyncAwaitAreTransparent(t *testing.T) {
	source := `async function f() { return 21 }
print(await f() * 2)`
	if got := runSource(t, source); got != "42\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNegateLargestMagnitude(t *testing.T) {
	source := "big = 1.7976931348623157e308\nprint(-big == 0 - big)"
	if got := runSource(t, source); got != "true\n" {
		t.Errorf("output = %q", got)
	}
	if -math.MaxFloat64 != math.MaxFloat64*-1 {
		t.Error("float negation sanity check failed")
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{`print(len("héllo"))`, "5\n"},
		{"print(len([1, 2, 3]))", "3\n"},
		{"print(len({a: 1}))", "1\n"},
		{"print(abs(-3.5))", "3.5\n"},
		{"print(sqrt(81))", "9\n"},
		{"print(pow(2, 8))", "256\n"},
		{"print(min(3, 1, 2))", "1\n"},
		{"print(max(3, 1, 2))", "3\n"},
		{"print(floor(2.7), ceil(2.1), round(2.5))", "2 3 3\n"},
		{"print(number(\" 42 \"))", "42\n"},
		{"print(boolean(\"\"), boolean(\"x\"))", "false true\n"},
		{"print(string(1.5) + \"!\")", "1.5!\n"},
		{"print(type(1), type(\"s\"), type([]), type({}), type(null), type(true))", "number string array object null boolean\n"},
		{"a = [1]\npush(a, 2)\nprint(len(a), pop(a), len(a))", "2 2 1\n"},
		{"o = {b: 2, a: 1}\nprint(keys(o)[0], values(o)[1])", "b 1\n"},
		{"o = {x: null}\nprint(has(o, \"x\"), has(o, \"y\"))", "true false\n"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := runSource(t, tt.source); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuiltinArityErrors(t *testing.T) {
	rerr := runSourceErr(t, "len()")
	if rerr.Kind != KindArity {
		t.Errorf("kind = %q, want %q", rerr.Kind, KindArity)
	}
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out))
	if _, err := vm.Run(compileSource(t, "x = 41")); err != nil {
		t.Fatal(err)
	}
	if _, err := vm.Run(compileSource(t, "print(x + 1)")); err != nil {
		t.Fatal(err)
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestInputBuiltin(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(WithOutput(&out), WithInput(strings.NewReader("Lyra\n")))
	chunk := compileSource(t, "name = input(\"who? \")\nprint(\"hi \" + name)")
	if _, err := vm.Run(chunk); err != nil {
		t.Fatal(err)
	}
	if out.String() != "who? hi Lyra\n" {
		t.Errorf("output = %q", out.String())
	}
}
