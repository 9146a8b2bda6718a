package bytecode

// callValue implements the CALL protocol: function values push a frame,
// builtins run immediately, classes instantiate, anything else is a
// TypeError. Missing parameters fill with null; extra arguments are
// discarded.
func (vm *VM) callValue(callee Value, args []Value) *RuntimeError {
	switch callee.Type {
	case ValueClosure:
		return vm.pushFrame(callee.AsClosure(), args, NullValue(), nil, false)
	case ValueBoundMethod:
		bm := callee.AsBoundMethod()
		return vm.pushFrame(bm.Method, args, bm.Receiver, bm.Owner, false)
	case ValueBuiltin:
		builtin := callee.AsBuiltin()
		result, err := builtin.Fn(vm, args)
		if err != nil {
			if rerr, ok := err.(*RuntimeError); ok {
				return rerr
			}
			return NewError(KindError, "%s: %v", builtin.Name, err)
		}
		vm.push(result)
		return nil
	case ValueClass:
		return vm.instantiate(callee.AsClass(), args)
	default:
		return NewError(KindType, "%s is not callable", callee.Type)
	}
}

// pushFrame activates a closure. The base of the new frame's locals is
// populated from args; class anchors super resolution for methods.
func (vm *VM) pushFrame(closure *Closure, args []Value, self Value, class *ClassObject, isCtor bool) *RuntimeError {
	if closure == nil || closure.Function == nil {
		return NewError(KindType, "call of invalid function")
	}
	if len(vm.frames) >= vm.maxFrames {
		return NewError(KindError, "call stack overflow (limit %d frames)", vm.maxFrames)
	}

	fn := closure.Function
	locals := make([]Value, fn.Chunk.LocalCount)
	for i := 0; i < fn.Arity && i < len(args); i++ {
		locals[i] = args[i]
	}

	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		chunk:   fn.Chunk,
		locals:  locals,
		self:    self,
		class:   class,
		isCtor:  isCtor,
	})
	return nil
}

// makeClosure executes MAKE_FUNCTION: binds the prototype's upvalues
// against the creating frame per its closure descriptor.
func (vm *VM) makeClosure(frame *callFrame, inst Instruction) *RuntimeError {
	fnValue := frame.chunk.GetConstant(int(inst.B()))
	fn := fnValue.AsFunction()
	if fn == nil {
		return NewError(KindError, "MAKE_FUNCTION constant %d is not a function", inst.B())
	}
	upvalueCount := int(inst.A())
	if fn.UpvalueCount() != upvalueCount {
		return NewError(KindError, "MAKE_FUNCTION expected %d upvalues, function declares %d",
			upvalueCount, fn.UpvalueCount())
	}

	closure := &Closure{
		Function: fn,
		Upvalues: make([]*Upvalue, upvalueCount),
	}
	for i, def := range fn.UpvalueDefs {
		if def.IsLocal {
			uv, rerr := vm.captureUpvalue(frame, def.Index)
			if rerr != nil {
				return rerr
			}
			closure.Upvalues[i] = uv
		} else {
			if frame.closure == nil || def.Index >= len(frame.closure.Upvalues) {
				return NewError(KindError, "no enclosing upvalue %d", def.Index)
			}
			closure.Upvalues[i] = frame.closure.Upvalues[def.Index]
		}
	}
	vm.push(ClosureValue(closure))
	return nil
}

// captureUpvalue returns the shared cell for a local slot, creating it
// on first capture so sibling closures alias the same variable.
func (vm *VM) captureUpvalue(frame *callFrame, index int) (*Upvalue, *RuntimeError) {
	if index < 0 || index >= len(frame.locals) {
		return nil, NewError(KindError, "captured slot %d out of range", index)
	}
	if frame.openUpvalues == nil {
		frame.openUpvalues = make(map[int]*Upvalue)
	}
	if uv, ok := frame.openUpvalues[index]; ok {
		return uv, nil
	}
	uv := newOpenUpvalue(&frame.locals[index])
	frame.openUpvalues[index] = uv
	return uv, nil
}

// makeClass executes MAKE_CLASS: pops method name/closure pairs and the
// base, and builds the immutable class record.
func (vm *VM) makeClass(frame *callFrame, inst Instruction) *RuntimeError {
	methodCount := int(inst.A())
	name := frame.chunk.GetConstant(int(inst.B())).AsString()

	methods := make(map[string]*Closure, methodCount)
	methodNames := make([]string, methodCount)
	for i := methodCount - 1; i >= 0; i-- {
		fnVal := vm.pop()
		nameVal := vm.pop()
		method := fnVal.AsClosure()
		if method == nil || !nameVal.IsString() {
			return NewError(KindError, "malformed method table for class %s", name)
		}
		methodNames[i] = nameVal.AsString()
		methods[nameVal.AsString()] = method
	}

	baseVal := vm.pop()
	var base *ClassObject
	switch baseVal.Type {
	case ValueNull:
	case ValueClass:
		base = baseVal.AsClass()
	default:
		return NewError(KindType, "class %s extends a non-class %s", name, baseVal.Type)
	}

	vm.push(ClassValue(&ClassObject{
		Name:        name,
		Base:        base,
		MethodNames: methodNames,
		Methods:     methods,
	}))
	return nil
}

// instantiate allocates an instance and runs the constructor when the
// class (or a base) declares one. The constructor frame is flagged so
// RETURN yields the instance regardless of the returned value.
func (vm *VM) instantiate(class *ClassObject, args []Value) *RuntimeError {
	inst := NewInstance(class)
	ctor, owner := class.LookupMethod("constructor")
	if ctor == nil {
		vm.push(InstanceValue(inst))
		return nil
	}
	return vm.pushFrame(ctor, args, InstanceValue(inst), owner, true)
}

// getMember implements dotted access. Missing object keys and instance
// fields yield null; methods resolve through the class chain and bind
// to the receiver.
func (vm *VM) getMember(target Value, name string) *RuntimeError {
	switch target.Type {
	case ValueObject:
		val, _ := target.AsObject().Get(name)
		vm.push(val)
		return nil
	case ValueInstance:
		instance := target.AsInstance()
		if val, ok := instance.Fields.Get(name); ok {
			vm.push(val)
			return nil
		}
		if method, owner := instance.Class.LookupMethod(name); method != nil {
			vm.push(BoundMethodValue(&BoundMethod{
				Receiver: target,
				Method:   method,
				Owner:    owner,
			}))
			return nil
		}
		vm.push(NullValue())
		return nil
	case ValueClass:
		if method, owner := target.AsClass().LookupMethod(name); method != nil {
			vm.push(BoundMethodValue(&BoundMethod{
				Receiver: NullValue(),
				Method:   method,
				Owner:    owner,
			}))
			return nil
		}
		vm.push(NullValue())
		return nil
	default:
		return NewError(KindType, "member access on %s", target.Type)
	}
}

// setMember implements dotted assignment.
func (vm *VM) setMember(target Value, name string, value Value) *RuntimeError {
	switch target.Type {
	case ValueObject:
		target.AsObject().Set(name, value)
		return nil
	case ValueInstance:
		target.AsInstance().Fields.Set(name, value)
		return nil
	default:
		return NewError(KindType, "member assignment on %s", target.Type)
	}
}

// getIndex implements bracketed reads. Array and string reads out of
// range yield null, as does a missing object key.
func (vm *VM) getIndex(target, index Value) *RuntimeError {
	switch target.Type {
	case ValueArray:
		if !index.IsNumber() {
			return NewError(KindType, "array index must be a number, got %s", index.Type)
		}
		val, _ := target.AsArray().Get(int(index.AsNumber()))
		vm.push(val)
		return nil
	case ValueObject:
		if !index.IsString() {
			return NewError(KindType, "object key must be a string, got %s", index.Type)
		}
		val, _ := target.AsObject().Get(index.AsString())
		vm.push(val)
		return nil
	case ValueInstance:
		if !index.IsString() {
			return NewError(KindType, "field key must be a string, got %s", index.Type)
		}
		val, _ := target.AsInstance().Fields.Get(index.AsString())
		vm.push(val)
		return nil
	case ValueString:
		if !index.IsNumber() {
			return NewError(KindType, "string index must be a number, got %s", index.Type)
		}
		runes := []rune(target.AsString())
		idx := int(index.AsNumber())
		if idx < 0 || idx >= len(runes) {
			vm.push(NullValue())
			return nil
		}
		vm.push(StringValue(string(runes[idx])))
		return nil
	default:
		return NewError(KindType, "%s is not indexable", target.Type)
	}
}

// setIndex implements bracketed writes. Unlike reads, an out-of-range
// array write raises IndexError so stores never vanish silently.
func (vm *VM) setIndex(target, index, value Value) *RuntimeError {
	switch target.Type {
	case ValueArray:
		if !index.IsNumber() {
			return NewError(KindType, "array index must be a number, got %s", index.Type)
		}
		arr := target.AsArray()
		idx := int(index.AsNumber())
		if !arr.Set(idx, value) {
			return NewError(KindIndex, "array index %d out of range (length %d)", idx, arr.Length())
		}
		return nil
	case ValueObject:
		if !index.IsString() {
			return NewError(KindType, "object key must be a string, got %s", index.Type)
		}
		target.AsObject().Set(index.AsString(), value)
		return nil
	case ValueInstance:
		if !index.IsString() {
			return NewError(KindType, "field key must be a string, got %s", index.Type)
		}
		target.AsInstance().Fields.Set(index.AsString(), value)
		return nil
	default:
		return NewError(KindType, "%s is not indexable", target.Type)
	}
}

// getIter implements GET_ITER over the four iterable value shapes.
func (vm *VM) getIter(target Value) *RuntimeError {
	switch target.Type {
	case ValueArray:
		vm.push(IteratorValue(NewArrayIterator(target.AsArray())))
	case ValueObject:
		vm.push(IteratorValue(NewKeysIterator(target.AsObject())))
	case ValueString:
		vm.push(IteratorValue(NewRunesIterator(target.AsString())))
	case ValueRange:
		vm.push(IteratorValue(NewRangeIterator(target.AsRange())))
	default:
		return NewError(KindType, "%s is not iterable", target.Type)
	}
	return nil
}
