package bytecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// registerBuiltins installs the default builtin set into the global
// environment. Hosts may override any of them through RegisterBuiltin
// before execution.
func (vm *VM) registerBuiltins() {
	vm.RegisterBuiltin("print", -1, builtinPrint)
	vm.RegisterBuiltin("input", -1, builtinInput)
	vm.RegisterBuiltin("len", 1, builtinLen)
	vm.RegisterBuiltin("range", -1, builtinRange)
	vm.RegisterBuiltin("string", 1, builtinString)
	vm.RegisterBuiltin("number", 1, builtinNumber)
	vm.RegisterBuiltin("boolean", 1, builtinBoolean)
	vm.RegisterBuiltin("abs", 1, builtinAbs)
	vm.RegisterBuiltin("sqrt", 1, builtinSqrt)
	vm.RegisterBuiltin("pow", 2, builtinPow)
	vm.RegisterBuiltin("min", -1, builtinMin)
	vm.RegisterBuiltin("max", -1, builtinMax)
	vm.RegisterBuiltin("floor", 1, builtinFloor)
	vm.RegisterBuiltin("ceil", 1, builtinCeil)
	vm.RegisterBuiltin("round", 1, builtinRound)
	vm.RegisterBuiltin("type", 1, builtinType)
	vm.RegisterBuiltin("push", 2, builtinPush)
	vm.RegisterBuiltin("pop", 1, builtinPop)
	vm.RegisterBuiltin("keys", 1, builtinKeys)
	vm.RegisterBuiltin("values", 1, builtinValues)
	vm.RegisterBuiltin("has", 2, builtinHas)

	// Reserved special forms compile against these names; the defaults
	// are inert so import/scene/route parse and run without a host.
	vm.RegisterBuiltin("__import", 1, builtinNoop)
	vm.RegisterBuiltin("__scene", 2, builtinNoop)
	vm.RegisterBuiltin("__route", 2, builtinNoop)
}

func arityError(name string, want string, got int) error {
	return NewError(KindArity, "%s expects %s argument(s), got %d", name, want, got)
}

func builtinPrint(vm *VM, args []Value) (Value, error) {
	if vm.output != nil {
		for i, arg := range args {
			if i > 0 {
				fmt.Fprint(vm.output, " ")
			}
			fmt.Fprint(vm.output, Stringify(arg))
		}
		fmt.Fprintln(vm.output)
	}
	return NullValue(), nil
}

func builtinInput(vm *VM, args []Value) (Value, error) {
	if len(args) > 1 {
		return NullValue(), arityError("input", "at most 1", len(args))
	}
	if len(args) == 1 && vm.output != nil {
		fmt.Fprint(vm.output, Stringify(args[0]))
	}
	if vm.input == nil {
		return StringValue(""), nil
	}
	line, err := vm.input.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return StringValue(""), nil
	}
	return StringValue(line), nil
}

func builtinLen(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("len", "1", len(args))
	}
	switch args[0].Type {
	case ValueString:
		n := 0
		for range args[0].AsString() {
			n++
		}
		return NumberValue(float64(n)), nil
	case ValueArray:
		return NumberValue(float64(args[0].AsArray().Length())), nil
	case ValueObject:
		return NumberValue(float64(args[0].AsObject().Length())), nil
	default:
		return NullValue(), NewError(KindType, "len expects a string, array or object, got %s", args[0].Type)
	}
}

// builtinRange builds the Range object iterated by for-in:
// range(stop), range(start, stop) or range(start, stop, step).
func builtinRange(vm *VM, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return NullValue(), arityError("range", "1 to 3", len(args))
	}
	for _, arg := range args {
		if !arg.IsNumber() {
			return NullValue(), NewError(KindType, "range expects numbers, got %s", arg.Type)
		}
	}
	r := &RangeObject{Step: 1}
	switch len(args) {
	case 1:
		r.Stop = args[0].AsNumber()
	case 2:
		r.Start = args[0].AsNumber()
		r.Stop = args[1].AsNumber()
	case 3:
		r.Start = args[0].AsNumber()
		r.Stop = args[1].AsNumber()
		r.Step = args[2].AsNumber()
		if r.Step == 0 {
			return NullValue(), NewError(KindError, "range step must not be zero")
		}
	}
	return RangeValue(r), nil
}

func builtinString(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("string", "1", len(args))
	}
	return StringValue(Stringify(args[0])), nil
}

func builtinNumber(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("number", "1", len(args))
	}
	switch args[0].Type {
	case ValueNumber:
		return args[0], nil
	case ValueBool:
		if args[0].AsBool() {
			return NumberValue(1), nil
		}
		return NumberValue(0), nil
	case ValueNull:
		return NumberValue(0), nil
	case ValueString:
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].AsString()), 64)
		if err != nil {
			return NullValue(), NewError(KindType, "number: cannot convert %q", args[0].AsString())
		}
		return NumberValue(f), nil
	default:
		return NullValue(), NewError(KindType, "number: cannot convert %s", args[0].Type)
	}
}

func builtinBoolean(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("boolean", "1", len(args))
	}
	return BoolValue(args[0].IsTruthy()), nil
}

func numericBuiltin(name string, apply func(float64) float64) BuiltinFunc {
	return func(vm *VM, args []Value) (Value, error) {
		if len(args) != 1 {
			return NullValue(), arityError(name, "1", len(args))
		}
		if !args[0].IsNumber() {
			return NullValue(), NewError(KindType, "%s expects a number, got %s", name, args[0].Type)
		}
		return NumberValue(apply(args[0].AsNumber())), nil
	}
}

var (
	builtinAbs   = numericBuiltin("abs", math.Abs)
	builtinSqrt  = numericBuiltin("sqrt", math.Sqrt)
	builtinFloor = numericBuiltin("floor", math.Floor)
	builtinCeil  = numericBuiltin("ceil", math.Ceil)
	builtinRound = numericBuiltin("round", math.Round)
)

func builtinPow(vm *VM, args []Value) (Value, error) {
	if len(args) != 2 {
		return NullValue(), arityError("pow", "2", len(args))
	}
	if !args[0].IsNumber() || !args[1].IsNumber() {
		return NullValue(), NewError(KindType, "pow expects numbers, got %s and %s", args[0].Type, args[1].Type)
	}
	return NumberValue(math.Pow(args[0].AsNumber(), args[1].AsNumber())), nil
}

func extremumBuiltin(name string, better func(a, b float64) bool) BuiltinFunc {
	return func(vm *VM, args []Value) (Value, error) {
		if len(args) == 0 {
			return NullValue(), arityError(name, "at least 1", len(args))
		}
		if !args[0].IsNumber() {
			return NullValue(), NewError(KindType, "%s expects numbers, got %s", name, args[0].Type)
		}
		best := args[0].AsNumber()
		for _, arg := range args[1:] {
			if !arg.IsNumber() {
				return NullValue(), NewError(KindType, "%s expects numbers, got %s", name, arg.Type)
			}
			if better(arg.AsNumber(), best) {
				best = arg.AsNumber()
			}
		}
		return NumberValue(best), nil
	}
}

var (
	builtinMin = extremumBuiltin("min", func(a, b float64) bool { return a < b })
	builtinMax = extremumBuiltin("max", func(a, b float64) bool { return a > b })
)

func builtinType(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("type", "1", len(args))
	}
	return StringValue(args[0].Type.String()), nil
}

func builtinPush(vm *VM, args []Value) (Value, error) {
	if len(args) != 2 {
		return NullValue(), arityError("push", "2", len(args))
	}
	arr := args[0].AsArray()
	if arr == nil {
		return NullValue(), NewError(KindType, "push expects an array, got %s", args[0].Type)
	}
	arr.Append(args[1])
	return args[0], nil
}

func builtinPop(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("pop", "1", len(args))
	}
	arr := args[0].AsArray()
	if arr == nil {
		return NullValue(), NewError(KindType, "pop expects an array, got %s", args[0].Type)
	}
	val, _ := arr.RemoveLast()
	return val, nil
}

func builtinKeys(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("keys", "1", len(args))
	}
	obj := objectOrFields(args[0])
	if obj == nil {
		return NullValue(), NewError(KindType, "keys expects an object, got %s", args[0].Type)
	}
	elements := make([]Value, 0, obj.Length())
	for _, key := range obj.Keys() {
		elements = append(elements, StringValue(key))
	}
	return ArrayValue(NewArrayInstance(elements)), nil
}

func builtinValues(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return NullValue(), arityError("values", "1", len(args))
	}
	obj := objectOrFields(args[0])
	if obj == nil {
		return NullValue(), NewError(KindType, "values expects an object, got %s", args[0].Type)
	}
	elements := make([]Value, 0, obj.Length())
	for _, key := range obj.Keys() {
		val, _ := obj.Get(key)
		elements = append(elements, val)
	}
	return ArrayValue(NewArrayInstance(elements)), nil
}

// builtinHas is the strict-access escape hatch for the lenient member
// semantics: has(obj, key) distinguishes a missing key from null.
func builtinHas(vm *VM, args []Value) (Value, error) {
	if len(args) != 2 {
		return NullValue(), arityError("has", "2", len(args))
	}
	obj := objectOrFields(args[0])
	if obj == nil {
		return NullValue(), NewError(KindType, "has expects an object, got %s", args[0].Type)
	}
	if !args[1].IsString() {
		return NullValue(), NewError(KindType, "has expects a string key, got %s", args[1].Type)
	}
	_, ok := obj.Get(args[1].AsString())
	return BoolValue(ok), nil
}

func objectOrFields(v Value) *ObjectInstance {
	switch v.Type {
	case ValueObject:
		return v.AsObject()
	case ValueInstance:
		return v.AsInstance().Fields
	default:
		return nil
	}
}

func builtinNoop(vm *VM, args []Value) (Value, error) {
	return NullValue(), nil
}
