// Package bytecode implements the Mythos bytecode compiler and its
// stack-based virtual machine.
//
// Architecture: stack-based VM with 32-bit fixed-size instructions.
// Format: [8-bit opcode][8-bit operand A][16-bit operand B]
// Jump offsets are signed and relative to the post-fetch instruction
// pointer. Source positions are tracked per instruction via a
// run-length table on the chunk.
package bytecode

// OpCode represents a bytecode instruction opcode.
type OpCode byte

const (
	// ========================================
	// Constants and variables
	// ========================================

	// OpLoadConst pushes a constant from the constant pool.
	// Format: [OpLoadConst][unused][index]
	// Stack: [] -> [constant]
	OpLoadConst OpCode = iota

	// OpLoadNull pushes null.
	OpLoadNull

	// OpLoadTrue pushes boolean true.
	OpLoadTrue

	// OpLoadFalse pushes boolean false.
	OpLoadFalse

	// OpLoadLocal loads a local slot.
	// Format: [OpLoadLocal][unused][slot]
	OpLoadLocal

	// OpStoreLocal pops the stack top into a local slot.
	// Format: [OpStoreLocal][unused][slot]
	OpStoreLocal

	// OpLoadGlobal loads a global by name.
	// Format: [OpLoadGlobal][unused][name constant index]
	// Raises NameError when the name is not bound.
	OpLoadGlobal

	// OpStoreGlobal pops the stack top into a global by name.
	// Format: [OpStoreGlobal][unused][name constant index]
	OpStoreGlobal

	// OpLoadUpvalue loads a captured variable.
	// Format: [OpLoadUpvalue][unused][upvalue index]
	OpLoadUpvalue

	// OpStoreUpvalue pops the stack top into a captured variable.
	// Format: [OpStoreUpvalue][unused][upvalue index]
	OpStoreUpvalue

	// ========================================
	// Stack
	// ========================================

	// OpPop discards the stack top.
	OpPop

	// OpDup duplicates the stack top.
	OpDup

	// OpDup2 duplicates the top two values: [a, b] -> [a, b, a, b].
	OpDup2

	// ========================================
	// Arithmetic
	// ========================================

	// OpAdd adds numbers or concatenates strings; a string and a number
	// concatenate after decimal coercion of the number.
	// Stack: [a, b] -> [a + b]
	OpAdd

	// OpSub subtracts two numbers.
	OpSub

	// OpMul multiplies two numbers.
	OpMul

	// OpDiv divides two numbers; division by zero follows IEEE-754.
	OpDiv

	// OpMod computes the floating-point remainder of two numbers.
	OpMod

	// OpPow raises a number to a power.
	OpPow

	// OpNegate negates a number.
	// Stack: [a] -> [-a]
	OpNegate

	// ========================================
	// Comparison
	// ========================================

	// OpEqual pushes a == b for any two values.
	OpEqual

	// OpNotEqual pushes a != b for any two values.
	OpNotEqual

	// OpLess orders two numbers or two strings.
	OpLess

	// OpGreater orders two numbers or two strings.
	OpGreater

	// OpLessEqual orders two numbers or two strings.
	OpLessEqual

	// OpGreaterEqual orders two numbers or two strings.
	OpGreaterEqual

	// ========================================
	// Logical
	// ========================================

	// OpNot pushes the negated truthiness of the stack top.
	OpNot

	// ========================================
	// Jumps (relative, signed)
	// ========================================

	// OpJump adds the signed offset to ip.
	// Format: [OpJump][unused][offset]
	OpJump

	// OpJumpIfFalse pops a value and jumps when it is falsy.
	OpJumpIfFalse

	// OpJumpIfTrue pops a value and jumps when it is truthy.
	OpJumpIfTrue

	// OpJumpIfFalseNoPop peeks and jumps when falsy without popping.
	// Used for short-circuit 'and' so the deciding value remains.
	OpJumpIfFalseNoPop

	// OpJumpIfTrueNoPop peeks and jumps when truthy without popping.
	// Used for short-circuit 'or'.
	OpJumpIfTrueNoPop

	// OpLoop jumps backward by the signed (negative) offset.
	OpLoop

	// ========================================
	// Calls and closures
	// ========================================

	// OpCall calls the callee below its arguments.
	// Format: [OpCall][argCount][unused]
	// Stack: [callee, arg0, …, argN-1] -> [result]
	OpCall

	// OpReturn returns from the current frame.
	// Format: [OpReturn][hasValue][unused]
	// Stack: [value?] -> [] (value pushed onto the caller's stack)
	OpReturn

	// OpClosure creates a closure over a function prototype, binding
	// the captured upvalues declared by the prototype.
	// Format: [OpClosure][upvalueCount][function constant index]
	OpClosure

	// ========================================
	// Aggregates
	// ========================================

	// OpNewArray builds an array from the top elementCount values.
	// Format: [OpNewArray][unused][elementCount]
	OpNewArray

	// OpNewObject builds an object from key/value pairs in written order.
	// Format: [OpNewObject][unused][propCount]
	// Stack: [k0, v0, …, kN-1, vN-1] -> [object]
	OpNewObject

	// OpGetMember loads a named member; missing keys yield null.
	// Format: [OpGetMember][unused][name constant index]
	// Stack: [object] -> [value]
	OpGetMember

	// OpSetMember stores a named member and pushes the stored value.
	// Format: [OpSetMember][unused][name constant index]
	// Stack: [object, value] -> [value]
	OpSetMember

	// OpGetIndex loads a bracketed element.
	// Stack: [object, index] -> [value]
	OpGetIndex

	// OpSetIndex stores a bracketed element and pushes the stored value.
	// Stack: [object, index, value] -> [value]
	OpSetIndex

	// ========================================
	// Object orientation
	// ========================================

	// OpMakeClass builds a class from a base and method closures.
	// Format: [OpMakeClass][methodCount][class name constant index]
	// Stack: [base, name0, fn0, …, nameK-1, fnK-1] -> [class]
	// base is null for classes without extends.
	OpMakeClass

	// OpNew instantiates a class, running its constructor if present.
	// Format: [OpNew][argCount][unused]
	// Stack: [class, arg0, …, argN-1] -> [instance]
	OpNew

	// OpLoadThis pushes the current receiver.
	OpLoadThis

	// OpLoadSuper resolves a method against the defining class's base
	// and pushes it bound to the current receiver.
	// Format: [OpLoadSuper][unused][method name constant index]
	OpLoadSuper

	// ========================================
	// Exceptions
	// ========================================

	// OpPushTry registers a handler; catch and finally targets live in
	// the chunk's try table keyed by this instruction's index.
	OpPushTry

	// OpPopTry releases the innermost handler registration.
	OpPopTry

	// OpThrow raises the stack top as an exception and unwinds to the
	// nearest handler.
	OpThrow

	// ========================================
	// Iteration
	// ========================================

	// OpGetIter pops an iterable (array, object, string or range) and
	// pushes an iterator over it.
	OpGetIter

	// OpForIter advances the iterator at the stack top: pushes the next
	// value, or pops the iterator and jumps when exhausted.
	// Format: [OpForIter][unused][offset]
	OpForIter

	// ========================================
	// Miscellaneous
	// ========================================

	// OpHalt terminates execution, returning the stack top if present.
	OpHalt
)

// OpCodeNames maps opcodes to their mnemonic names for disassembly.
var OpCodeNames = [...]string{
	OpLoadConst:        "LOAD_CONST",
	OpLoadNull:         "LOAD_NULL",
	OpLoadTrue:         "LOAD_TRUE",
	OpLoadFalse:        "LOAD_FALSE",
	OpLoadLocal:        "LOAD_LOCAL",
	OpStoreLocal:       "STORE_LOCAL",
	OpLoadGlobal:       "LOAD_GLOBAL",
	OpStoreGlobal:      "STORE_GLOBAL",
	OpLoadUpvalue:      "LOAD_UPVAL",
	OpStoreUpvalue:     "STORE_UPVAL",
	OpPop:              "POP",
	OpDup:              "DUP",
	OpDup2:             "DUP2",
	OpAdd:              "ADD",
	OpSub:              "SUB",
	OpMul:              "MUL",
	OpDiv:              "DIV",
	OpMod:              "MOD",
	OpPow:              "POW",
	OpNegate:           "NEG",
	OpEqual:            "EQ",
	OpNotEqual:         "NE",
	OpLess:             "LT",
	OpGreater:          "GT",
	OpLessEqual:        "LE",
	OpGreaterEqual:     "GE",
	OpNot:              "NOT",
	OpJump:             "JUMP",
	OpJumpIfFalse:      "JUMP_IF_FALSE",
	OpJumpIfTrue:       "JUMP_IF_TRUE",
	OpJumpIfFalseNoPop: "JUMP_IF_FALSE_NO_POP",
	OpJumpIfTrueNoPop:  "JUMP_IF_TRUE_NO_POP",
	OpLoop:             "LOOP",
	OpCall:             "CALL",
	OpReturn:           "RETURN",
	OpClosure:          "MAKE_FUNCTION",
	OpNewArray:         "MAKE_ARRAY",
	OpNewObject:        "MAKE_OBJECT",
	OpGetMember:        "GET_MEMBER",
	OpSetMember:        "SET_MEMBER",
	OpGetIndex:         "GET_INDEX",
	OpSetIndex:         "SET_INDEX",
	OpMakeClass:        "MAKE_CLASS",
	OpNew:              "NEW",
	OpLoadThis:         "LOAD_THIS",
	OpLoadSuper:        "LOAD_SUPER",
	OpPushTry:          "PUSH_TRY",
	OpPopTry:           "POP_TRY",
	OpThrow:            "THROW",
	OpGetIter:          "GET_ITER",
	OpForIter:          "FOR_ITER",
	OpHalt:             "HALT",
}

// Instruction is a single 32-bit bytecode instruction.
// Format: [8-bit opcode][8-bit A][16-bit B]
type Instruction uint32

// MakeInstruction creates an instruction from opcode and operands.
func MakeInstruction(op OpCode, a byte, b uint16) Instruction {
	return Instruction(uint32(op) | uint32(a)<<8 | uint32(b)<<16)
}

// MakeSimpleInstruction creates an instruction with no operands.
func MakeSimpleInstruction(op OpCode) Instruction {
	return Instruction(op)
}

// OpCode returns the opcode of this instruction.
func (inst Instruction) OpCode() OpCode {
	return OpCode(inst & 0xFF)
}

// A returns the A operand (8 bits).
func (inst Instruction) A() byte {
	return byte((inst >> 8) & 0xFF)
}

// B returns the B operand (16 bits).
func (inst Instruction) B() uint16 {
	return uint16((inst >> 16) & 0xFFFF)
}

// SignedB returns the B operand as a signed 16-bit jump offset.
func (inst Instruction) SignedB() int16 {
	return int16(inst.B())
}

// String returns the mnemonic of the instruction's opcode.
func (inst Instruction) String() string {
	op := inst.OpCode()
	if int(op) < len(OpCodeNames) && OpCodeNames[op] != "" {
		return OpCodeNames[op]
	}
	return "UNKNOWN"
}
