package bytecode

import (
	"github.com/mythos-lang/go-mythos/internal/ast"
	"github.com/mythos-lang/go-mythos/pkg/token"
)

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	if stmt == nil {
		return nil
	}
	c.lastPos = stmt.Pos()

	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		if node.Expression == nil {
			return nil
		}
		if err := c.compileExpression(node.Expression); err != nil {
			return err
		}
		c.chunk.WriteSimple(OpPop, node.Pos())
		return nil
	case *ast.BlockStatement:
		return c.compileBlock(node)
	case *ast.IfStatement:
		return c.compileIf(node)
	case *ast.WhileStatement:
		return c.compileWhile(node)
	case *ast.ForInStatement:
		return c.compileForIn(node)
	case *ast.BreakStatement:
		return c.compileBreak(node)
	case *ast.ContinueStatement:
		return c.compileContinue(node)
	case *ast.ReturnStatement:
		return c.compileReturn(node)
	case *ast.FunctionDeclaration:
		return c.compileFunctionDeclaration(node)
	case *ast.ClassDeclaration:
		return c.compileClassDeclaration(node)
	case *ast.TryStatement:
		return c.compileTry(node)
	case *ast.ThrowStatement:
		if err := c.compileExpression(node.Value); err != nil {
			return err
		}
		c.chunk.WriteSimple(OpThrow, node.Pos())
		return nil
	case *ast.MatchStatement:
		return c.compileMatch(node)
	case *ast.ImportStatement:
		return c.compileImport(node)
	case *ast.SceneDeclaration:
		return c.compileScene(node)
	case *ast.RouteDeclaration:
		return c.compileRoute(node)
	case *ast.WebAppStatement:
		return c.compileBlock(node.Body)
	default:
		return c.errorf(stmt.Pos(), "unsupported statement type %T", stmt)
	}
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) error {
	c.beginScope()
	for _, stmt := range block.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.endScope()
	return nil
}

func (c *Compiler) compileIf(stmt *ast.IfStatement) error {
	if err := c.compileExpression(stmt.Condition); err != nil {
		return err
	}
	jumpIfFalse := c.chunk.EmitJump(OpJumpIfFalse, stmt.Condition.Pos())

	if err := c.compileBlock(stmt.Consequence); err != nil {
		return err
	}

	if stmt.Alternative != nil {
		jumpToEnd := c.chunk.EmitJump(OpJump, stmt.Pos())
		if err := c.chunk.PatchJump(jumpIfFalse); err != nil {
			return err
		}
		if err := c.compileStatement(stmt.Alternative); err != nil {
			return err
		}
		return c.chunk.PatchJump(jumpToEnd)
	}
	return c.chunk.PatchJump(jumpIfFalse)
}

func (c *Compiler) compileWhile(stmt *ast.WhileStatement) error {
	loopStart := len(c.chunk.Code)
	loop := &loopContext{start: loopStart, tryDepth: len(c.trys)}
	c.loops = append(c.loops, loop)

	if err := c.compileExpression(stmt.Condition); err != nil {
		return err
	}
	exitJump := c.chunk.EmitJump(OpJumpIfFalse, stmt.Condition.Pos())

	if err := c.compileBlock(stmt.Body); err != nil {
		return err
	}
	if err := c.chunk.EmitLoop(loopStart, stmt.Pos()); err != nil {
		return err
	}

	if err := c.chunk.PatchJump(exitJump); err != nil {
		return err
	}
	for _, breakJump := range loop.breakJumps {
		if err := c.chunk.PatchJump(breakJump); err != nil {
			return err
		}
	}
	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

// compileForIn lowers `for name in iterable` to GET_ITER / FOR_ITER.
// The iterator lives on the stack for the duration of the loop; break
// jumps to a cleanup POP, exhaustion pops it inside FOR_ITER.
func (c *Compiler) compileForIn(stmt *ast.ForInStatement) error {
	if err := c.compileExpression(stmt.Iterable); err != nil {
		return err
	}
	c.chunk.WriteSimple(OpGetIter, stmt.Iterable.Pos())

	c.beginScope()
	slot, err := c.declareLocal(stmt.Name.Value, stmt.Name.Pos())
	if err != nil {
		return err
	}

	loopStart := len(c.chunk.Code)
	loop := &loopContext{start: loopStart, tryDepth: len(c.trys), hasIterator: true}
	c.loops = append(c.loops, loop)

	forIter := c.chunk.EmitJump(OpForIter, stmt.Pos())
	c.chunk.Write(OpStoreLocal, 0, slot, stmt.Name.Pos())

	if err := c.compileBlock(stmt.Body); err != nil {
		return err
	}
	if err := c.chunk.EmitLoop(loopStart, stmt.Pos()); err != nil {
		return err
	}

	// break lands here, with the iterator still on the stack.
	for _, breakJump := range loop.breakJumps {
		if err := c.chunk.PatchJump(breakJump); err != nil {
			return err
		}
	}
	c.chunk.WriteSimple(OpPop, stmt.Pos())

	// FOR_ITER pops the iterator itself before jumping here.
	if err := c.chunk.PatchJump(forIter); err != nil {
		return err
	}

	c.loops = c.loops[:len(c.loops)-1]
	c.endScope()
	return nil
}

func (c *Compiler) compileBreak(stmt *ast.BreakStatement) error {
	if len(c.loops) == 0 {
		return c.errorf(stmt.Pos(), "break outside loop")
	}
	loop := c.loops[len(c.loops)-1]
	if err := c.unwindTrys(loop.tryDepth, stmt.Pos()); err != nil {
		return err
	}
	loop.breakJumps = append(loop.breakJumps, c.chunk.EmitJump(OpJump, stmt.Pos()))
	return nil
}

func (c *Compiler) compileContinue(stmt *ast.ContinueStatement) error {
	if len(c.loops) == 0 {
		return c.errorf(stmt.Pos(), "continue outside loop")
	}
	loop := c.loops[len(c.loops)-1]
	if err := c.unwindTrys(loop.tryDepth, stmt.Pos()); err != nil {
		return err
	}
	return c.chunk.EmitLoop(loop.start, stmt.Pos())
}

func (c *Compiler) compileReturn(stmt *ast.ReturnStatement) error {
	if stmt.Value != nil {
		if err := c.compileExpression(stmt.Value); err != nil {
			return err
		}
		if err := c.unwindTrys(0, stmt.Pos()); err != nil {
			return err
		}
		c.chunk.Write(OpReturn, 1, 0, stmt.Pos())
		return nil
	}
	if err := c.unwindTrys(0, stmt.Pos()); err != nil {
		return err
	}
	c.chunk.Write(OpReturn, 0, 0, stmt.Pos())
	return nil
}

// unwindTrys releases handler registrations down to the given depth,
// inlining each region's finally block so early exits run it exactly
// once. Finally bodies are stack-neutral, so a value computed before
// the unwind (a return value) survives underneath.
func (c *Compiler) unwindTrys(downTo int, pos token.Position) error {
	for i := len(c.trys) - 1; i >= downTo; i-- {
		c.chunk.WriteSimple(OpPopTry, pos)
		if fin := c.trys[i].finally; fin != nil {
			if err := c.compileBlock(fin); err != nil {
				return err
			}
		}
	}
	return nil
}

// compileTry lowers try/catch/finally. The finally block is emitted up
// to three times: inline on the normal path, inline after the catch
// body, and once at the exceptional target followed by a rethrow.
func (c *Compiler) compileTry(stmt *ast.TryStatement) error {
	hasCatch := stmt.Catch != nil
	hasFinally := stmt.Finally != nil

	tryIdx := c.chunk.WriteSimple(OpPushTry, stmt.Pos())

	c.trys = append(c.trys, &tryContext{finally: stmt.Finally})
	if err := c.compileBlock(stmt.Body); err != nil {
		return err
	}
	c.trys = c.trys[:len(c.trys)-1]

	c.chunk.WriteSimple(OpPopTry, stmt.Pos())
	if hasFinally {
		if err := c.compileBlock(stmt.Finally); err != nil {
			return err
		}
	}
	endJumps := []int{c.chunk.EmitJump(OpJump, stmt.Pos())}

	catchTarget := 0
	if hasCatch {
		// The VM jumps here with the raised value on the stack; when a
		// finally is present it re-registers a finally-only handler so
		// throws inside the catch still reach it.
		catchTarget = len(c.chunk.Code)
		c.beginScope()
		if stmt.CatchName != nil {
			slot, err := c.declareLocal(stmt.CatchName.Value, stmt.CatchName.Pos())
			if err != nil {
				return err
			}
			c.chunk.Write(OpStoreLocal, 0, slot, stmt.CatchName.Pos())
		} else {
			c.chunk.WriteSimple(OpPop, stmt.Catch.Pos())
		}

		if hasFinally {
			c.trys = append(c.trys, &tryContext{finally: stmt.Finally})
		}
		for _, catchStmt := range stmt.Catch.Statements {
			if err := c.compileStatement(catchStmt); err != nil {
				return err
			}
		}
		if hasFinally {
			c.trys = c.trys[:len(c.trys)-1]
			c.chunk.WriteSimple(OpPopTry, stmt.Catch.Pos())
			if err := c.compileBlock(stmt.Finally); err != nil {
				return err
			}
		}
		c.endScope()
		endJumps = append(endJumps, c.chunk.EmitJump(OpJump, stmt.Pos()))
	}

	finallyTarget := 0
	if hasFinally {
		// Exceptional path: the raised value sits on the stack below the
		// (stack-neutral) finally body; THROW re-raises it afterwards.
		finallyTarget = len(c.chunk.Code)
		if err := c.compileBlock(stmt.Finally); err != nil {
			return err
		}
		c.chunk.WriteSimple(OpThrow, stmt.Finally.Pos())
	}

	for _, endJump := range endJumps {
		if err := c.chunk.PatchJump(endJump); err != nil {
			return err
		}
	}

	c.chunk.SetTryInfo(tryIdx, TryInfo{
		CatchTarget:   catchTarget,
		FinallyTarget: finallyTarget,
		HasCatch:      hasCatch,
		HasFinally:    hasFinally,
	})
	return nil
}

// compileMatch lowers match to a DUP/compare/branch chain. The
// discriminant is popped on entry to the matching arm, or at the end
// when nothing matches.
func (c *Compiler) compileMatch(stmt *ast.MatchStatement) error {
	if err := c.compileExpression(stmt.Discriminant); err != nil {
		return err
	}

	var endJumps []int
	for _, arm := range stmt.Cases {
		c.chunk.WriteSimple(OpDup, arm.Value.Pos())
		if err := c.compileExpression(arm.Value); err != nil {
			return err
		}
		c.chunk.WriteSimple(OpEqual, arm.Value.Pos())
		skipArm := c.chunk.EmitJump(OpJumpIfFalse, arm.Value.Pos())

		c.chunk.WriteSimple(OpPop, arm.Value.Pos()) // discriminant
		if err := c.compileBlock(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.chunk.EmitJump(OpJump, arm.Value.Pos()))

		if err := c.chunk.PatchJump(skipArm); err != nil {
			return err
		}
	}

	c.chunk.WriteSimple(OpPop, stmt.Pos()) // discriminant, no arm taken
	if stmt.Default != nil {
		if err := c.compileBlock(stmt.Default); err != nil {
			return err
		}
	}

	for _, endJump := range endJumps {
		if err := c.chunk.PatchJump(endJump); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileFunctionDeclaration(stmt *ast.FunctionDeclaration) error {
	name := stmt.Name.Value

	// Inside a function the name is declared before the body compiles
	// so the function can recurse through an upvalue; at the top level
	// recursion resolves through the global table.
	var slot uint16
	topLevel := c.enclosing == nil
	if !topLevel {
		declared, err := c.declareLocal(name, stmt.Name.Pos())
		if err != nil {
			return err
		}
		slot = declared
	}

	fn, err := c.compileFunction(name, stmt.Parameters, stmt.Body, nil, false, false)
	if err != nil {
		return err
	}
	if err := c.emitClosure(fn, stmt.Pos()); err != nil {
		return err
	}

	if topLevel {
		nameIdx, err := c.nameConstant(name, stmt.Name.Pos())
		if err != nil {
			return err
		}
		c.chunk.Write(OpStoreGlobal, 0, nameIdx, stmt.Name.Pos())
		return nil
	}
	c.chunk.Write(OpStoreLocal, 0, slot, stmt.Name.Pos())
	return nil
}

func (c *Compiler) compileClassDeclaration(stmt *ast.ClassDeclaration) error {
	hasBase := stmt.Base != nil
	if hasBase {
		if err := c.compileIdentifierLoad(stmt.Base); err != nil {
			return err
		}
	} else {
		c.chunk.WriteSimple(OpLoadNull, stmt.Pos())
	}

	if len(stmt.Methods) > 0xFF {
		return c.errorf(stmt.Pos(), "too many methods in class %s", stmt.Name.Value)
	}
	for _, method := range stmt.Methods {
		nameIdx, err := c.nameConstant(method.Name.Value, method.Name.Pos())
		if err != nil {
			return err
		}
		c.chunk.Write(OpLoadConst, 0, nameIdx, method.Name.Pos())

		fn, err := c.compileFunction(
			stmt.Name.Value+"."+method.Name.Value,
			method.Parameters, method.Body, nil, true, hasBase,
		)
		if err != nil {
			return err
		}
		if err := c.emitClosure(fn, method.Pos()); err != nil {
			return err
		}
	}

	classIdx, err := c.nameConstant(stmt.Name.Value, stmt.Name.Pos())
	if err != nil {
		return err
	}
	c.chunk.Write(OpMakeClass, byte(len(stmt.Methods)), classIdx, stmt.Pos())

	if c.enclosing == nil {
		nameIdx, err := c.nameConstant(stmt.Name.Value, stmt.Name.Pos())
		if err != nil {
			return err
		}
		c.chunk.Write(OpStoreGlobal, 0, nameIdx, stmt.Name.Pos())
		return nil
	}
	slot, err := c.declareLocal(stmt.Name.Value, stmt.Name.Pos())
	if err != nil {
		return err
	}
	c.chunk.Write(OpStoreLocal, 0, slot, stmt.Name.Pos())
	return nil
}

// compileImport lowers import forms to a __import call; the core itself
// performs no module resolution but never drops the form silently.
func (c *Compiler) compileImport(stmt *ast.ImportStatement) error {
	if err := c.emitGlobalLoad("__import", stmt.Pos()); err != nil {
		return err
	}
	if err := c.emitLoadConstant(StringValue(stmt.Module.Value), stmt.Module.Pos()); err != nil {
		return err
	}
	c.chunk.Write(OpCall, 1, 0, stmt.Pos())
	c.chunk.WriteSimple(OpPop, stmt.Pos())
	return nil
}

// compileScene lowers `scene NAME { body }` to __scene(name, handler).
func (c *Compiler) compileScene(stmt *ast.SceneDeclaration) error {
	if err := c.emitGlobalLoad("__scene", stmt.Pos()); err != nil {
		return err
	}
	if err := c.emitLoadConstant(StringValue(stmt.Name.Value), stmt.Name.Pos()); err != nil {
		return err
	}
	fn, err := c.compileFunction("scene "+stmt.Name.Value, nil, stmt.Body, nil, false, false)
	if err != nil {
		return err
	}
	if err := c.emitClosure(fn, stmt.Pos()); err != nil {
		return err
	}
	c.chunk.Write(OpCall, 2, 0, stmt.Pos())
	c.chunk.WriteSimple(OpPop, stmt.Pos())
	return nil
}

// compileRoute lowers `route PATH { body }` to __route(path, handler).
func (c *Compiler) compileRoute(stmt *ast.RouteDeclaration) error {
	if err := c.emitGlobalLoad("__route", stmt.Pos()); err != nil {
		return err
	}
	if err := c.emitLoadConstant(StringValue(stmt.Path.Value), stmt.Path.Pos()); err != nil {
		return err
	}
	fn, err := c.compileFunction("route "+stmt.Path.Value, nil, stmt.Body, nil, false, false)
	if err != nil {
		return err
	}
	if err := c.emitClosure(fn, stmt.Pos()); err != nil {
		return err
	}
	c.chunk.Write(OpCall, 2, 0, stmt.Pos())
	c.chunk.WriteSimple(OpPop, stmt.Pos())
	return nil
}

func (c *Compiler) emitGlobalLoad(name string, pos token.Position) error {
	nameIdx, err := c.nameConstant(name, pos)
	if err != nil {
		return err
	}
	c.chunk.Write(OpLoadGlobal, 0, nameIdx, pos)
	return nil
}
