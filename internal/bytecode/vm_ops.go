package bytecode

import "math"

// binaryAdd implements ADD: numeric addition, string concatenation, and
// the mixed string/number case which coerces the number to its decimal
// textual form.
func (vm *VM) binaryAdd() *RuntimeError {
	right := vm.pop()
	left := vm.pop()

	switch {
	case left.IsNumber() && right.IsNumber():
		vm.push(NumberValue(left.AsNumber() + right.AsNumber()))
	case left.IsString() && right.IsString():
		vm.push(StringValue(left.AsString() + right.AsString()))
	case left.IsString() && right.IsNumber():
		vm.push(StringValue(left.AsString() + FormatNumber(right.AsNumber())))
	case left.IsNumber() && right.IsString():
		vm.push(StringValue(FormatNumber(left.AsNumber()) + right.AsString()))
	default:
		return NewError(KindType, "unsupported operand types for +: %s and %s",
			left.Type, right.Type)
	}
	return nil
}

// binaryNumeric implements the number-only arithmetic opcodes.
func (vm *VM) binaryNumeric(op string, apply func(a, b float64) float64) *RuntimeError {
	right := vm.pop()
	left := vm.pop()
	if !left.IsNumber() || !right.IsNumber() {
		return NewError(KindType, "unsupported operand types for %s: %s and %s",
			op, left.Type, right.Type)
	}
	vm.push(NumberValue(apply(left.AsNumber(), right.AsNumber())))
	return nil
}

// compare implements the ordering opcodes over two numbers or two
// strings.
func (vm *VM) compare(op OpCode) *RuntimeError {
	right := vm.pop()
	left := vm.pop()

	var result bool
	switch {
	case left.IsNumber() && right.IsNumber():
		a, b := left.AsNumber(), right.AsNumber()
		switch op {
		case OpLess:
			result = a < b
		case OpGreater:
			result = a > b
		case OpLessEqual:
			result = a <= b
		case OpGreaterEqual:
			result = a >= b
		}
	case left.IsString() && right.IsString():
		a, b := left.AsString(), right.AsString()
		switch op {
		case OpLess:
			result = a < b
		case OpGreater:
			result = a > b
		case OpLessEqual:
			result = a <= b
		case OpGreaterEqual:
			result = a >= b
		}
	default:
		return NewError(KindType, "cannot order %s and %s", left.Type, right.Type)
	}
	vm.push(BoolValue(result))
	return nil
}

func floatMod(a, b float64) float64 {
	return math.Mod(a, b)
}

func floatPow(a, b float64) float64 {
	return math.Pow(a, b)
}
