package bytecode

import (
	"bufio"
	"io"

	"github.com/mythos-lang/go-mythos/internal/errors"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

// Default VM configuration constants.
const (
	defaultStackCapacity = 256
	defaultMaxFrames     = 4096
)

// callFrame is the per-call activation record.
type callFrame struct {
	closure      *Closure
	chunk        *Chunk
	ip           int
	locals       []Value
	openUpvalues map[int]*Upvalue
	self         Value
	class        *ClassObject
	isCtor       bool
}

// exceptionHandler is one registered try region. Unwinding truncates
// the frame and value stacks back to the recorded depths.
type exceptionHandler struct {
	info       TryInfo
	frameIndex int
	stackDepth int
}

// VM executes bytecode chunks produced by the compiler. It is strictly
// single-threaded and synchronous; globals survive across Run calls so
// a REPL can keep state.
type VM struct {
	stack     []Value
	frames    []callFrame
	handlers  []exceptionHandler
	globals   map[string]Value
	haltValue Value
	output    io.Writer
	input     *bufio.Reader
	maxFrames int
}

// Option configures a VM during creation.
type Option func(*VM)

// WithOutput directs builtin output (print) to the given writer.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.output = w
	}
}

// WithInput supplies the reader consumed by the input builtin.
func WithInput(r io.Reader) Option {
	return func(vm *VM) {
		vm.input = bufio.NewReader(r)
	}
}

// WithMaxFrames overrides the call depth limit.
func WithMaxFrames(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxFrames = n
		}
	}
}

// NewVM creates a VM with the default builtin registry installed.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		stack:     make([]Value, 0, defaultStackCapacity),
		globals:   make(map[string]Value),
		maxFrames: defaultMaxFrames,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.registerBuiltins()
	return vm
}

// RegisterBuiltin binds a host callable into the global environment.
// arity -1 means variadic.
func (vm *VM) RegisterBuiltin(name string, arity int, fn BuiltinFunc) {
	vm.globals[name] = BuiltinValue(&Builtin{Name: name, Arity: arity, Fn: fn})
}

// Global returns a global binding by name.
func (vm *VM) Global(name string) (Value, bool) {
	val, ok := vm.globals[name]
	return val, ok
}

// SetGlobal writes a global binding.
func (vm *VM) SetGlobal(name string, val Value) {
	vm.globals[name] = val
}

// Run executes the chunk and returns the value HALT produced (null for
// programs that end without a value on the stack).
func (vm *VM) Run(chunk *Chunk) (Value, error) {
	if chunk == nil {
		return NullValue(), NewError(KindError, "nil chunk")
	}
	if err := chunk.Validate(); err != nil {
		return NullValue(), NewError(KindError, "invalid chunk: %v", err)
	}

	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.handlers = vm.handlers[:0]
	vm.haltValue = NullValue()
	vm.frames = append(vm.frames, callFrame{
		chunk:  chunk,
		locals: make([]Value, chunk.LocalCount),
	})

	return vm.dispatch()
}

// dispatch runs the program to completion.
func (vm *VM) dispatch() (Value, error) {
	if rerr := vm.runUntil(0); rerr != nil {
		return NullValue(), rerr
	}
	return vm.haltValue, nil
}

// runUntil is the fetch-execute loop. It runs until the frame stack
// drops back to the given depth, which lets builtins call script
// functions re-entrantly through CallFunction.
func (vm *VM) runUntil(depth int) *RuntimeError {
	for len(vm.frames) > depth {
		frame := &vm.frames[len(vm.frames)-1]

		if frame.ip >= len(frame.chunk.Code) {
			// Falling off the end of a chunk is an implicit return null.
			ret := NullValue()
			if frame.isCtor {
				ret = frame.self
			}
			vm.closeFrameUpvalues(frame)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.haltValue = ret
			} else {
				vm.push(ret)
			}
			continue
		}

		inst := frame.chunk.Code[frame.ip]
		frame.ip++

		rerr := vm.execute(frame, inst)
		if rerr != nil {
			if vm.unwindError(rerr) {
				continue
			}
			return rerr
		}
	}
	return nil
}

// CallFunction invokes a callable value from host code (builtins that
// accept script callbacks). Handlers registered by outer script code
// are masked for the duration so an escaping exception returns here as
// an error instead of unwinding past the host boundary.
func (vm *VM) CallFunction(callee Value, args []Value) (Value, error) {
	if callee.Type == ValueBuiltin {
		return callee.AsBuiltin().Fn(vm, args)
	}

	savedHandlers := vm.handlers
	vm.handlers = nil
	defer func() { vm.handlers = savedHandlers }()

	depth := len(vm.frames)
	if rerr := vm.callValue(callee, args); rerr != nil {
		return NullValue(), rerr
	}
	if rerr := vm.runUntil(depth); rerr != nil {
		return NullValue(), rerr
	}
	return vm.pop(), nil
}

// execute runs a single instruction. It returns a runtime error to be
// routed through the handler stack, or nil.
func (vm *VM) execute(frame *callFrame, inst Instruction) *RuntimeError {
	switch inst.OpCode() {
	case OpLoadConst:
		vm.push(frame.chunk.GetConstant(int(inst.B())))
	case OpLoadNull:
		vm.push(NullValue())
	case OpLoadTrue:
		vm.push(BoolValue(true))
	case OpLoadFalse:
		vm.push(BoolValue(false))

	case OpLoadLocal:
		idx := int(inst.B())
		if idx >= len(frame.locals) {
			return NewError(KindError, "local slot %d out of range", idx)
		}
		vm.push(frame.locals[idx])
	case OpStoreLocal:
		idx := int(inst.B())
		if idx >= len(frame.locals) {
			return NewError(KindError, "local slot %d out of range", idx)
		}
		frame.locals[idx] = vm.pop()

	case OpLoadGlobal:
		name := frame.chunk.GetConstant(int(inst.B())).AsString()
		val, ok := vm.globals[name]
		if !ok {
			return NewError(KindName, "name %q is not defined", name)
		}
		vm.push(val)
	case OpStoreGlobal:
		name := frame.chunk.GetConstant(int(inst.B())).AsString()
		vm.globals[name] = vm.pop()

	case OpLoadUpvalue:
		idx := int(inst.B())
		if frame.closure == nil || idx >= len(frame.closure.Upvalues) {
			return NewError(KindError, "upvalue %d out of range", idx)
		}
		vm.push(frame.closure.Upvalues[idx].Get())
	case OpStoreUpvalue:
		idx := int(inst.B())
		if frame.closure == nil || idx >= len(frame.closure.Upvalues) {
			return NewError(KindError, "upvalue %d out of range", idx)
		}
		frame.closure.Upvalues[idx].Set(vm.pop())

	case OpPop:
		vm.pop()
	case OpDup:
		vm.push(vm.peek(0))
	case OpDup2:
		b := vm.peek(0)
		a := vm.peek(1)
		vm.push(a)
		vm.push(b)

	case OpAdd:
		return vm.binaryAdd()
	case OpSub:
		return vm.binaryNumeric("-", func(a, b float64) float64 { return a - b })
	case OpMul:
		return vm.binaryNumeric("*", func(a, b float64) float64 { return a * b })
	case OpDiv:
		// IEEE-754: division by zero yields inf or nan, never an error.
		return vm.binaryNumeric("/", func(a, b float64) float64 { return a / b })
	case OpMod:
		return vm.binaryNumeric("%", floatMod)
	case OpPow:
		return vm.binaryNumeric("^", floatPow)
	case OpNegate:
		val := vm.pop()
		if !val.IsNumber() {
			return NewError(KindType, "unary - requires a number, got %s", val.Type)
		}
		vm.push(NumberValue(-val.AsNumber()))

	case OpEqual:
		right := vm.pop()
		left := vm.pop()
		vm.push(BoolValue(left.Equals(right)))
	case OpNotEqual:
		right := vm.pop()
		left := vm.pop()
		vm.push(BoolValue(!left.Equals(right)))
	case OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return vm.compare(inst.OpCode())

	case OpNot:
		vm.push(BoolValue(!vm.pop().IsTruthy()))

	case OpJump:
		frame.ip += int(inst.SignedB())
	case OpJumpIfFalse:
		if !vm.pop().IsTruthy() {
			frame.ip += int(inst.SignedB())
		}
	case OpJumpIfTrue:
		if vm.pop().IsTruthy() {
			frame.ip += int(inst.SignedB())
		}
	case OpJumpIfFalseNoPop:
		if !vm.peek(0).IsTruthy() {
			frame.ip += int(inst.SignedB())
		}
	case OpJumpIfTrueNoPop:
		if vm.peek(0).IsTruthy() {
			frame.ip += int(inst.SignedB())
		}
	case OpLoop:
		frame.ip += int(inst.SignedB())

	case OpCall:
		argCount := int(inst.A())
		args := vm.popArgs(argCount)
		callee := vm.pop()
		return vm.callValue(callee, args)

	case OpReturn:
		ret := NullValue()
		if inst.A() != 0 {
			ret = vm.pop()
		}
		if frame.isCtor {
			// new returns the instance even when the constructor
			// returns a different value.
			ret = frame.self
		}
		vm.closeFrameUpvalues(frame)
		vm.frames = vm.frames[:len(vm.frames)-1]
		if len(vm.frames) == 0 {
			// A top-level return ends the program with its value.
			vm.haltValue = ret
		} else {
			vm.push(ret)
		}

	case OpClosure:
		return vm.makeClosure(frame, inst)

	case OpNewArray:
		count := int(inst.B())
		elements := make([]Value, count)
		for i := count - 1; i >= 0; i-- {
			elements[i] = vm.pop()
		}
		vm.push(ArrayValue(NewArrayInstance(elements)))

	case OpNewObject:
		count := int(inst.B())
		obj := NewObjectInstance()
		entries := vm.popArgs(count * 2)
		for i := 0; i < count; i++ {
			obj.Set(entries[i*2].AsString(), entries[i*2+1])
		}
		vm.push(ObjectValue(obj))

	case OpGetMember:
		name := frame.chunk.GetConstant(int(inst.B())).AsString()
		return vm.getMember(vm.pop(), name)
	case OpSetMember:
		name := frame.chunk.GetConstant(int(inst.B())).AsString()
		value := vm.pop()
		target := vm.pop()
		if rerr := vm.setMember(target, name, value); rerr != nil {
			return rerr
		}
		vm.push(value)

	case OpGetIndex:
		index := vm.pop()
		target := vm.pop()
		return vm.getIndex(target, index)
	case OpSetIndex:
		value := vm.pop()
		index := vm.pop()
		target := vm.pop()
		if rerr := vm.setIndex(target, index, value); rerr != nil {
			return rerr
		}
		vm.push(value)

	case OpMakeClass:
		return vm.makeClass(frame, inst)

	case OpNew:
		argCount := int(inst.A())
		args := vm.popArgs(argCount)
		callee := vm.pop()
		class := callee.AsClass()
		if class == nil {
			return NewError(KindType, "new requires a class, got %s", callee.Type)
		}
		return vm.instantiate(class, args)

	case OpLoadThis:
		vm.push(frame.self)

	case OpLoadSuper:
		name := frame.chunk.GetConstant(int(inst.B())).AsString()
		if frame.class == nil || frame.class.Base == nil {
			return NewError(KindType, "super used outside a derived method")
		}
		method, owner := frame.class.Base.LookupMethod(name)
		if method == nil {
			return NewError(KindName, "super has no method %q", name)
		}
		vm.push(BoundMethodValue(&BoundMethod{
			Receiver: frame.self,
			Method:   method,
			Owner:    owner,
		}))

	case OpPushTry:
		info, ok := frame.chunk.TryInfoAt(frame.ip - 1)
		if !ok {
			return NewError(KindError, "PUSH_TRY without metadata")
		}
		vm.handlers = append(vm.handlers, exceptionHandler{
			info:       info,
			frameIndex: len(vm.frames) - 1,
			stackDepth: len(vm.stack),
		})
	case OpPopTry:
		if len(vm.handlers) == 0 {
			return NewError(KindError, "POP_TRY without handler")
		}
		vm.handlers = vm.handlers[:len(vm.handlers)-1]
	case OpThrow:
		exc := vm.pop()
		if !vm.unwindValue(exc) {
			return vm.escapedThrow(exc)
		}

	case OpGetIter:
		return vm.getIter(vm.pop())
	case OpForIter:
		it := vm.peek(0).AsIterator()
		if it == nil {
			return NewError(KindError, "FOR_ITER without iterator")
		}
		next, ok := it.Next()
		if ok {
			vm.push(next)
		} else {
			vm.pop() // iterator
			frame.ip += int(inst.SignedB())
		}

	case OpHalt:
		ret := NullValue()
		if len(vm.stack) > 0 {
			ret = vm.pop()
		}
		vm.frames = vm.frames[:0]
		vm.haltValue = ret

	default:
		return NewError(KindError, "unsupported opcode %v", inst.OpCode())
	}
	return nil
}

// Stack primitives. Underflow is a compiler bug, not a script error, so
// it panics rather than raising.

func (vm *VM) push(val Value) {
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() Value {
	val := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return val
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// popArgs pops count values preserving their push order.
func (vm *VM) popArgs(count int) []Value {
	args := make([]Value, count)
	for i := count - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	return args
}

// StackDepth reports the current operand stack depth (used by tests to
// check stack discipline).
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// closeFrameUpvalues seals every upvalue captured from the frame so the
// values outlive it.
func (vm *VM) closeFrameUpvalues(frame *callFrame) {
	for _, uv := range frame.openUpvalues {
		uv.Close()
	}
	frame.openUpvalues = nil
}

// currentPos is the source position of the instruction being executed.
func (vm *VM) currentPos() token.Position {
	if len(vm.frames) == 0 {
		return token.Position{}
	}
	frame := &vm.frames[len(vm.frames)-1]
	ip := frame.ip - 1
	if ip < 0 {
		ip = 0
	}
	return frame.chunk.GetPos(ip)
}

// captureTrace snapshots the call stack for error reporting.
func (vm *VM) captureTrace() errors.StackTrace {
	trace := make(errors.StackTrace, 0, len(vm.frames))
	for i := range vm.frames {
		frame := &vm.frames[i]
		name := frame.chunk.Name
		if name == "" {
			name = "<anonymous>"
		}
		ip := frame.ip - 1
		if ip < 0 {
			ip = 0
		}
		pos := frame.chunk.GetPos(ip)
		trace = append(trace, errors.NewStackFrame(name, &pos))
	}
	return trace
}

// unwindError converts an internal runtime error into a script-visible
// exception object and unwinds to the nearest handler. Returns false
// when no handler exists; the error then reaches the embedder.
func (vm *VM) unwindError(rerr *RuntimeError) bool {
	if rerr.Pos.Line == 0 {
		rerr.Pos = vm.currentPos()
	}
	if rerr.Trace == nil {
		rerr.Trace = vm.captureTrace()
	}

	obj := NewObjectInstance()
	obj.Set("kind", StringValue(rerr.Kind))
	obj.Set("message", StringValue(rerr.Message))
	obj.Set("line", NumberValue(float64(rerr.Pos.Line)))
	obj.Set("column", NumberValue(float64(rerr.Pos.Column)))
	return vm.unwindValue(ObjectValue(obj))
}

// unwindValue transfers control to the innermost handler, popping call
// frames and truncating the value stack as registered by PUSH_TRY.
func (vm *VM) unwindValue(exc Value) bool {
	if len(vm.handlers) == 0 {
		return false
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	for len(vm.frames)-1 > h.frameIndex {
		f := &vm.frames[len(vm.frames)-1]
		vm.closeFrameUpvalues(f)
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	vm.stack = vm.stack[:h.stackDepth]
	frame := &vm.frames[len(vm.frames)-1]

	if h.info.HasCatch {
		if h.info.HasFinally {
			// Throws inside the catch body must still run the finally.
			vm.handlers = append(vm.handlers, exceptionHandler{
				info: TryInfo{
					FinallyTarget: h.info.FinallyTarget,
					HasFinally:    true,
				},
				frameIndex: h.frameIndex,
				stackDepth: h.stackDepth,
			})
		}
		vm.push(exc)
		frame.ip = h.info.CatchTarget
		return true
	}

	vm.push(exc)
	frame.ip = h.info.FinallyTarget
	return true
}

// escapedThrow turns an uncaught thrown value into the RuntimeError
// reported to the embedder.
func (vm *VM) escapedThrow(exc Value) *RuntimeError {
	kind := KindError
	message := Stringify(exc)
	if obj := exc.AsObject(); obj != nil {
		if k, ok := obj.Get("kind"); ok && k.IsString() {
			kind = k.AsString()
		}
		if m, ok := obj.Get("message"); ok && m.IsString() {
			message = m.AsString()
		}
	}
	return &RuntimeError{
		Kind:    kind,
		Message: message,
		Pos:     vm.currentPos(),
		Trace:   vm.captureTrace(),
	}
}
