package bytecode

import (
	"github.com/mythos-lang/go-mythos/internal/ast"
)

func (c *Compiler) compileExpression(expr ast.Expression) error {
	if expr == nil {
		return nil
	}

	switch node := expr.(type) {
	case *ast.NumberLiteral:
		return c.emitLoadConstant(NumberValue(node.Value), node.Pos())
	case *ast.StringLiteral:
		return c.emitLoadConstant(StringValue(node.Value), node.Pos())
	case *ast.BooleanLiteral:
		if node.Value {
			c.chunk.WriteSimple(OpLoadTrue, node.Pos())
		} else {
			c.chunk.WriteSimple(OpLoadFalse, node.Pos())
		}
		return nil
	case *ast.NullLiteral:
		c.chunk.WriteSimple(OpLoadNull, node.Pos())
		return nil
	case *ast.Identifier:
		return c.compileIdentifierLoad(node)
	case *ast.GroupedExpression:
		return c.compileExpression(node.Expression)
	case *ast.UnaryExpression:
		return c.compileUnary(node)
	case *ast.BinaryExpression:
		return c.compileBinary(node)
	case *ast.LogicalExpression:
		return c.compileLogical(node)
	case *ast.AssignExpression:
		return c.compileAssign(node)
	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(node)
	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(node)
	case *ast.CallExpression:
		return c.compileCall(node)
	case *ast.MemberExpression:
		return c.compileMember(node)
	case *ast.IndexExpression:
		return c.compileIndex(node)
	case *ast.ArrowFunction:
		fn, err := c.compileFunction("<arrow>", node.Parameters, node.Body, node.Expr, false, false)
		if err != nil {
			return err
		}
		return c.emitClosure(fn, node.Pos())
	case *ast.NewExpression:
		return c.compileNew(node)
	case *ast.ThisExpression:
		if !c.isMethod {
			return c.errorf(node.Pos(), "this outside method")
		}
		c.chunk.WriteSimple(OpLoadThis, node.Pos())
		return nil
	case *ast.SuperExpression:
		return c.compileSuper(node)
	case *ast.AwaitExpression:
		// await compiles transparently; the core is synchronous.
		return c.compileExpression(node.Value)
	default:
		return c.errorf(expr.Pos(), "unsupported expression type %T", expr)
	}
}

// compileIdentifierLoad resolves a name local-first, then through the
// upvalue chain, falling back to a global load.
func (c *Compiler) compileIdentifierLoad(ident *ast.Identifier) error {
	if slot, ok := c.resolveLocal(ident.Value); ok {
		c.chunk.Write(OpLoadLocal, 0, slot, ident.Pos())
		return nil
	}
	if idx, ok := c.resolveUpvalue(ident.Value); ok {
		c.chunk.Write(OpLoadUpvalue, 0, uint16(idx), ident.Pos())
		return nil
	}
	return c.emitGlobalLoad(ident.Value, ident.Pos())
}

func (c *Compiler) compileUnary(expr *ast.UnaryExpression) error {
	if operand, ok := literalValue(expr.Right); ok {
		if folded, okFold := evaluateUnary(expr.Operator, operand); okFold {
			return c.emitValue(folded, expr.Pos())
		}
	}

	if err := c.compileExpression(expr.Right); err != nil {
		return err
	}
	switch expr.Operator {
	case "-":
		c.chunk.WriteSimple(OpNegate, expr.Pos())
	case "not":
		c.chunk.WriteSimple(OpNot, expr.Pos())
	default:
		return c.errorf(expr.Pos(), "unsupported unary operator %q", expr.Operator)
	}
	return nil
}

func (c *Compiler) compileBinary(expr *ast.BinaryExpression) error {
	if left, ok := literalValue(expr.Left); ok {
		if right, okRight := literalValue(expr.Right); okRight {
			if folded, okFold := evaluateBinary(expr.Operator, left, right); okFold {
				return c.emitValue(folded, expr.Pos())
			}
		}
	}

	if err := c.compileExpression(expr.Left); err != nil {
		return err
	}
	if err := c.compileExpression(expr.Right); err != nil {
		return err
	}

	switch expr.Operator {
	case "+":
		c.chunk.WriteSimple(OpAdd, expr.Pos())
	case "-":
		c.chunk.WriteSimple(OpSub, expr.Pos())
	case "*":
		c.chunk.WriteSimple(OpMul, expr.Pos())
	case "/":
		c.chunk.WriteSimple(OpDiv, expr.Pos())
	case "%":
		c.chunk.WriteSimple(OpMod, expr.Pos())
	case "^":
		c.chunk.WriteSimple(OpPow, expr.Pos())
	case "==":
		c.chunk.WriteSimple(OpEqual, expr.Pos())
	case "!=":
		c.chunk.WriteSimple(OpNotEqual, expr.Pos())
	case "<":
		c.chunk.WriteSimple(OpLess, expr.Pos())
	case ">":
		c.chunk.WriteSimple(OpGreater, expr.Pos())
	case "<=":
		c.chunk.WriteSimple(OpLessEqual, expr.Pos())
	case ">=":
		c.chunk.WriteSimple(OpGreaterEqual, expr.Pos())
	default:
		return c.errorf(expr.Pos(), "unsupported binary operator %q", expr.Operator)
	}
	return nil
}

// compileLogical emits short-circuit and/or: the deciding value stays
// on the stack; the right operand replaces it otherwise.
func (c *Compiler) compileLogical(expr *ast.LogicalExpression) error {
	if err := c.compileExpression(expr.Left); err != nil {
		return err
	}

	var shortCircuit int
	switch expr.Operator {
	case "and":
		shortCircuit = c.chunk.EmitJump(OpJumpIfFalseNoPop, expr.Pos())
	case "or":
		shortCircuit = c.chunk.EmitJump(OpJumpIfTrueNoPop, expr.Pos())
	default:
		return c.errorf(expr.Pos(), "unsupported logical operator %q", expr.Operator)
	}

	c.chunk.WriteSimple(OpPop, expr.Pos())
	if err := c.compileExpression(expr.Right); err != nil {
		return err
	}
	return c.chunk.PatchJump(shortCircuit)
}

// compileAssign emits plain and compound assignment. The assigned value
// is left on the stack, making assignment usable as an expression.
func (c *Compiler) compileAssign(expr *ast.AssignExpression) error {
	binOp, compound := compoundOp(expr.Operator)

	switch target := expr.Target.(type) {
	case *ast.Identifier:
		if compound {
			if err := c.compileIdentifierLoad(target); err != nil {
				return err
			}
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
			c.chunk.WriteSimple(binOp, expr.Pos())
		} else {
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
		}
		c.chunk.WriteSimple(OpDup, expr.Pos())
		return c.emitIdentifierStore(target)

	case *ast.MemberExpression:
		nameIdx, err := c.nameConstant(target.Property.Value, target.Property.Pos())
		if err != nil {
			return err
		}
		if err := c.compileExpression(target.Object); err != nil {
			return err
		}
		if compound {
			c.chunk.WriteSimple(OpDup, expr.Pos())
			c.chunk.Write(OpGetMember, 0, nameIdx, target.Pos())
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
			c.chunk.WriteSimple(binOp, expr.Pos())
		} else {
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
		}
		c.chunk.Write(OpSetMember, 0, nameIdx, expr.Pos())
		return nil

	case *ast.IndexExpression:
		if err := c.compileExpression(target.Object); err != nil {
			return err
		}
		if err := c.compileExpression(target.Index); err != nil {
			return err
		}
		if compound {
			c.chunk.WriteSimple(OpDup2, expr.Pos())
			c.chunk.WriteSimple(OpGetIndex, target.Pos())
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
			c.chunk.WriteSimple(binOp, expr.Pos())
		} else {
			if err := c.compileExpression(expr.Value); err != nil {
				return err
			}
		}
		c.chunk.WriteSimple(OpSetIndex, expr.Pos())
		return nil

	default:
		return c.errorf(expr.Pos(), "invalid assignment target %T", expr.Target)
	}
}

// emitIdentifierStore writes the stack top into a name. An unresolved
// name declares a local inside a function and writes a global at the
// top level.
func (c *Compiler) emitIdentifierStore(target *ast.Identifier) error {
	if slot, ok := c.resolveLocal(target.Value); ok {
		c.chunk.Write(OpStoreLocal, 0, slot, target.Pos())
		return nil
	}
	if idx, ok := c.resolveUpvalue(target.Value); ok {
		c.chunk.Write(OpStoreUpvalue, 0, uint16(idx), target.Pos())
		return nil
	}
	if c.enclosing == nil {
		nameIdx, err := c.nameConstant(target.Value, target.Pos())
		if err != nil {
			return err
		}
		c.chunk.Write(OpStoreGlobal, 0, nameIdx, target.Pos())
		return nil
	}
	slot, err := c.declareLocal(target.Value, target.Pos())
	if err != nil {
		return err
	}
	c.chunk.Write(OpStoreLocal, 0, slot, target.Pos())
	return nil
}

// compoundOp maps a compound assignment operator to its arithmetic
// opcode; plain assignment reports compound == false.
func compoundOp(operator string) (OpCode, bool) {
	switch operator {
	case "+=":
		return OpAdd, true
	case "-=":
		return OpSub, true
	case "*=":
		return OpMul, true
	case "/=":
		return OpDiv, true
	}
	return 0, false
}

func (c *Compiler) compileArrayLiteral(expr *ast.ArrayLiteral) error {
	if len(expr.Elements) > 0xFFFF {
		return c.errorf(expr.Pos(), "array literal too large")
	}
	for _, el := range expr.Elements {
		if err := c.compileExpression(el); err != nil {
			return err
		}
	}
	c.chunk.Write(OpNewArray, 0, uint16(len(expr.Elements)), expr.Pos())
	return nil
}

func (c *Compiler) compileObjectLiteral(expr *ast.ObjectLiteral) error {
	if len(expr.Properties) > 0xFFFF {
		return c.errorf(expr.Pos(), "object literal too large")
	}
	for _, prop := range expr.Properties {
		if err := c.emitLoadConstant(StringValue(prop.Key), expr.Pos()); err != nil {
			return err
		}
		if err := c.compileExpression(prop.Value); err != nil {
			return err
		}
	}
	c.chunk.Write(OpNewObject, 0, uint16(len(expr.Properties)), expr.Pos())
	return nil
}

func (c *Compiler) compileCall(expr *ast.CallExpression) error {
	if err := c.compileExpression(expr.Callee); err != nil {
		return err
	}
	if len(expr.Arguments) > 0xFF {
		return c.errorf(expr.Pos(), "too many arguments in call: %d", len(expr.Arguments))
	}
	for _, arg := range expr.Arguments {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	c.chunk.Write(OpCall, byte(len(expr.Arguments)), 0, expr.Pos())
	return nil
}

func (c *Compiler) compileMember(expr *ast.MemberExpression) error {
	if err := c.compileExpression(expr.Object); err != nil {
		return err
	}
	nameIdx, err := c.nameConstant(expr.Property.Value, expr.Property.Pos())
	if err != nil {
		return err
	}
	c.chunk.Write(OpGetMember, 0, nameIdx, expr.Pos())
	return nil
}

func (c *Compiler) compileIndex(expr *ast.IndexExpression) error {
	if err := c.compileExpression(expr.Object); err != nil {
		return err
	}
	if err := c.compileExpression(expr.Index); err != nil {
		return err
	}
	c.chunk.WriteSimple(OpGetIndex, expr.Pos())
	return nil
}

func (c *Compiler) compileNew(expr *ast.NewExpression) error {
	if err := c.compileExpression(expr.Class); err != nil {
		return err
	}
	if len(expr.Arguments) > 0xFF {
		return c.errorf(expr.Pos(), "too many arguments in new: %d", len(expr.Arguments))
	}
	for _, arg := range expr.Arguments {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	c.chunk.Write(OpNew, byte(len(expr.Arguments)), 0, expr.Pos())
	return nil
}

// compileSuper resolves against the defining class's base at runtime;
// the compiler only validates the lexical context.
func (c *Compiler) compileSuper(expr *ast.SuperExpression) error {
	if !c.isMethod {
		return c.errorf(expr.Pos(), "super outside method")
	}
	if !c.hasBase {
		return c.errorf(expr.Pos(), "super in class without base")
	}
	nameIdx, err := c.nameConstant(expr.Method.Value, expr.Method.Pos())
	if err != nil {
		return err
	}
	c.chunk.Write(OpLoadSuper, 0, nameIdx, expr.Pos())
	return nil
}
