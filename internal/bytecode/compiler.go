package bytecode

import (
	"fmt"

	"github.com/mythos-lang/go-mythos/internal/ast"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// CompileError reports a semantic error found while emitting bytecode.
type CompileError struct {
	Message string
	Pos     token.Position
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return "compile error: " + e.Message
}

// Compiler converts AST nodes into bytecode chunks. Each function body
// gets its own Compiler linked to the enclosing one so that upvalue
// capture can walk the lexical chain.
type Compiler struct {
	chunk      *Chunk
	enclosing  *Compiler
	locals     []local
	nameBySlot []string
	upvalues   []UpvalueDef
	loops      []*loopContext
	trys       []*tryContext
	scopeDepth int
	nextSlot   uint16
	maxSlot    uint16
	isMethod   bool
	hasBase    bool
	replMode   bool
	lastPos    token.Position
}

// local is a compile-time record of a declared local slot.
type local struct {
	name  string
	depth int
	slot  uint16
}

// loopContext tracks the jump bookkeeping of an enclosing loop.
type loopContext struct {
	start       int // continue target
	breakJumps  []int
	tryDepth    int // len(trys) at loop entry
	hasIterator bool
}

// tryContext tracks an enclosing try region whose finally block must be
// inlined before break, continue and return transfer control out.
type tryContext struct {
	finally *ast.BlockStatement
}

// NewCompiler creates a compiler for a top-level chunk.
func NewCompiler(chunkName string) *Compiler {
	return &Compiler{chunk: NewChunk(chunkName)}
}

// SetReplMode makes the final top-level expression statement leave its
// value on the stack so HALT hands it back to the embedder. The REPL
// uses this to echo results.
func (c *Compiler) SetReplMode(repl bool) {
	c.replMode = repl
}

// Compile compiles the program into a top-level chunk.
func (c *Compiler) Compile(program *ast.Program) (*Chunk, error) {
	if program == nil {
		return nil, &CompileError{Message: "nil program"}
	}

	for i, stmt := range program.Statements {
		if c.replMode && i == len(program.Statements)-1 {
			// Echo the value of a trailing expression, but not of an
			// assignment; the REPL reads it off the stack through HALT.
			if es, ok := stmt.(*ast.ExpressionStatement); ok {
				if _, isAssign := es.Expression.(*ast.AssignExpression); !isAssign {
					if err := c.compileExpression(es.Expression); err != nil {
						return nil, err
					}
					break
				}
			}
		}
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}

	c.chunk.LocalCount = int(c.maxSlot)
	c.chunk.LocalNames = c.localNames()
	c.chunk.WriteSimple(OpHalt, c.lastPos)
	return c.chunk, nil
}

// compileFunction compiles a function body in a nested compiler and
// returns its prototype.
func (c *Compiler) compileFunction(name string, params []*ast.Identifier, body *ast.BlockStatement, expr ast.Expression, isMethod, hasBase bool) (*FunctionObject, error) {
	fc := &Compiler{
		chunk:     NewChunk(name),
		enclosing: c,
		isMethod:  isMethod,
		hasBase:   hasBase,
	}

	paramNames := make([]string, 0, len(params))
	for _, p := range params {
		if _, err := fc.declareLocal(p.Value, p.Pos()); err != nil {
			return nil, err
		}
		paramNames = append(paramNames, p.Value)
	}

	switch {
	case body != nil:
		for _, stmt := range body.Statements {
			if err := fc.compileStatement(stmt); err != nil {
				return nil, err
			}
		}
		// Implicit `return null` for bodies that fall off the end.
		fc.chunk.Write(OpReturn, 0, 0, fc.lastPos)
	case expr != nil:
		if err := fc.compileExpression(expr); err != nil {
			return nil, err
		}
		fc.chunk.Write(OpReturn, 1, 0, fc.lastPos)
	default:
		fc.chunk.Write(OpReturn, 0, 0, fc.lastPos)
	}

	fc.chunk.Params = paramNames
	fc.chunk.LocalCount = int(fc.maxSlot)
	fc.chunk.LocalNames = fc.localNames()

	return &FunctionObject{
		Name:        name,
		Arity:       len(params),
		Chunk:       fc.chunk,
		UpvalueDefs: fc.upvalues,
	}, nil
}

// emitClosure emits the MAKE_FUNCTION that binds a prototype's upvalues.
func (c *Compiler) emitClosure(fn *FunctionObject, pos token.Position) error {
	constIdx := c.chunk.AddConstant(FunctionValue(fn))
	if constIdx > 0xFFFF {
		return c.errorf(pos, "constant pool overflow")
	}
	if len(fn.UpvalueDefs) > 0xFF {
		return c.errorf(pos, "too many captured variables in %s", fn.Name)
	}
	c.chunk.Write(OpClosure, byte(len(fn.UpvalueDefs)), uint16(constIdx), pos)
	return nil
}

// Scope and slot management

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

func (c *Compiler) endScope() {
	if c.scopeDepth == 0 {
		return
	}
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth == c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
	c.scopeDepth--
}

// declareLocal allocates a fresh slot for name in the current scope.
// Slots are not reused across sibling scopes; maxSlot tracks the frame
// size.
func (c *Compiler) declareLocal(name string, pos token.Position) (uint16, error) {
	if c.nextSlot == 0xFFFF {
		return 0, c.errorf(pos, "too many locals in %s", c.chunk.Name)
	}
	slot := c.nextSlot
	c.nextSlot++
	if slot+1 > c.maxSlot {
		c.maxSlot = slot + 1
	}
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth, slot: slot})
	c.nameBySlot = append(c.nameBySlot, name)
	return slot, nil
}

// resolveLocal finds a name among the function's visible locals,
// innermost declaration first.
func (c *Compiler) resolveLocal(name string) (uint16, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue records how the current function reaches a local of a
// lexically enclosing function, deduplicating repeated captures.
func (c *Compiler) resolveUpvalue(name string) (int, bool) {
	if c.enclosing == nil {
		return 0, false
	}
	if slot, ok := c.enclosing.resolveLocal(name); ok {
		return c.addUpvalue(UpvalueDef{IsLocal: true, Index: int(slot)}), true
	}
	if idx, ok := c.enclosing.resolveUpvalue(name); ok {
		return c.addUpvalue(UpvalueDef{IsLocal: false, Index: idx}), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(def UpvalueDef) int {
	for i, existing := range c.upvalues {
		if existing == def {
			return i
		}
	}
	c.upvalues = append(c.upvalues, def)
	return len(c.upvalues) - 1
}

// localNames returns every name ever declared in this function, in
// slot order, for the code object's declared-locals table.
func (c *Compiler) localNames() []string {
	return c.nameBySlot
}

// Emission helpers

func (c *Compiler) emitLoadConstant(value Value, pos token.Position) error {
	index := c.chunk.AddConstant(value)
	if index > 0xFFFF {
		return c.errorf(pos, "constant pool overflow")
	}
	c.chunk.Write(OpLoadConst, 0, uint16(index), pos)
	return nil
}

// emitValue emits the cheapest load for a folded value.
func (c *Compiler) emitValue(value Value, pos token.Position) error {
	switch value.Type {
	case ValueNull:
		c.chunk.WriteSimple(OpLoadNull, pos)
		return nil
	case ValueBool:
		if value.AsBool() {
			c.chunk.WriteSimple(OpLoadTrue, pos)
		} else {
			c.chunk.WriteSimple(OpLoadFalse, pos)
		}
		return nil
	default:
		return c.emitLoadConstant(value, pos)
	}
}

// nameConstant interns a name string in the constant pool.
func (c *Compiler) nameConstant(name string, pos token.Position) (uint16, error) {
	index := c.chunk.AddConstant(StringValue(name))
	if index > 0xFFFF {
		return 0, c.errorf(pos, "constant pool overflow")
	}
	return uint16(index), nil
}

func (c *Compiler) errorf(pos token.Position, format string, args ...interface{}) error {
	return &CompileError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// Constant folding (literal operands only)

func literalValue(expr ast.Expression) (Value, bool) {
	switch node := expr.(type) {
	case *ast.NumberLiteral:
		return NumberValue(node.Value), true
	case *ast.StringLiteral:
		return StringValue(node.Value), true
	case *ast.BooleanLiteral:
		return BoolValue(node.Value), true
	case *ast.NullLiteral:
		return NullValue(), true
	case *ast.UnaryExpression:
		operand, ok := literalValue(node.Right)
		if !ok {
			return Value{}, false
		}
		return evaluateUnary(node.Operator, operand)
	default:
		return Value{}, false
	}
}

func evaluateBinary(operator string, left, right Value) (Value, bool) {
	switch operator {
	case "+":
		if left.IsString() && right.IsString() {
			return StringValue(left.AsString() + right.AsString()), true
		}
		if left.IsNumber() && right.IsNumber() {
			return NumberValue(left.AsNumber() + right.AsNumber()), true
		}
	case "-":
		if left.IsNumber() && right.IsNumber() {
			return NumberValue(left.AsNumber() - right.AsNumber()), true
		}
	case "*":
		if left.IsNumber() && right.IsNumber() {
			return NumberValue(left.AsNumber() * right.AsNumber()), true
		}
	case "==":
		return BoolValue(left.Equals(right)), true
	case "!=":
		return BoolValue(!left.Equals(right)), true
	case "<":
		if left.IsNumber() && right.IsNumber() {
			return BoolValue(left.AsNumber() < right.AsNumber()), true
		}
		if left.IsString() && right.IsString() {
			return BoolValue(left.AsString() < right.AsString()), true
		}
	case "<=":
		if left.IsNumber() && right.IsNumber() {
			return BoolValue(left.AsNumber() <= right.AsNumber()), true
		}
		if left.IsString() && right.IsString() {
			return BoolValue(left.AsString() <= right.AsString()), true
		}
	case ">":
		if left.IsNumber() && right.IsNumber() {
			return BoolValue(left.AsNumber() > right.AsNumber()), true
		}
		if left.IsString() && right.IsString() {
			return BoolValue(left.AsString() > right.AsString()), true
		}
	case ">=":
		if left.IsNumber() && right.IsNumber() {
			return BoolValue(left.AsNumber() >= right.AsNumber()), true
		}
		if left.IsString() && right.IsString() {
			return BoolValue(left.AsString() >= right.AsString()), true
		}
	}
	return Value{}, false
}

func evaluateUnary(operator string, operand Value) (Value, bool) {
	switch operator {
	case "-":
		if operand.IsNumber() {
			return NumberValue(-operand.AsNumber()), true
		}
	case "not":
		return BoolValue(!operand.IsTruthy()), true
	}
	return Value{}, false
}
