package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a chunk and, recursively, every function in its
// constant pool as a human-readable listing.
func Disassemble(chunk *Chunk) string {
	var sb strings.Builder
	disassembleChunk(&sb, chunk)
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, chunk *Chunk) {
	fmt.Fprintf(sb, "== %s ==\n", chunk.Name)
	if len(chunk.Params) > 0 {
		fmt.Fprintf(sb, "params: %s\n", strings.Join(chunk.Params, ", "))
	}
	fmt.Fprintf(sb, "locals: %d\n", chunk.LocalCount)

	lastLine := -1
	for offset, inst := range chunk.Code {
		pos := chunk.GetPos(offset)
		if pos.Line != lastLine {
			fmt.Fprintf(sb, "%04d %4d  ", offset, pos.Line)
			lastLine = pos.Line
		} else {
			fmt.Fprintf(sb, "%04d    |  ", offset)
		}
		sb.WriteString(formatInstruction(chunk, offset, inst))
		sb.WriteByte('\n')
	}

	for _, constant := range chunk.Constants {
		if fn := constant.AsFunction(); fn != nil {
			sb.WriteByte('\n')
			disassembleChunk(sb, fn.Chunk)
		}
	}
}

func formatInstruction(chunk *Chunk, offset int, inst Instruction) string {
	name := inst.String()
	switch inst.OpCode() {
	case OpLoadConst:
		return fmt.Sprintf("%-22s %4d  (%s)", name, inst.B(), chunk.GetConstant(int(inst.B())).String())
	case OpLoadGlobal, OpStoreGlobal, OpGetMember, OpSetMember, OpLoadSuper:
		return fmt.Sprintf("%-22s %4d  (%s)", name, inst.B(), chunk.GetConstant(int(inst.B())).AsString())
	case OpLoadLocal, OpStoreLocal:
		slot := int(inst.B())
		if slot < len(chunk.LocalNames) && chunk.LocalNames[slot] != "" {
			return fmt.Sprintf("%-22s %4d  (%s)", name, slot, chunk.LocalNames[slot])
		}
		return fmt.Sprintf("%-22s %4d", name, slot)
	case OpLoadUpvalue, OpStoreUpvalue, OpNewArray, OpNewObject:
		return fmt.Sprintf("%-22s %4d", name, inst.B())
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfFalseNoPop,
		OpJumpIfTrueNoPop, OpLoop, OpForIter:
		target := offset + 1 + int(inst.SignedB())
		return fmt.Sprintf("%-22s %4d  -> %04d", name, inst.SignedB(), target)
	case OpCall, OpNew:
		return fmt.Sprintf("%-22s %4d args", name, inst.A())
	case OpClosure:
		fn := chunk.GetConstant(int(inst.B())).AsFunction()
		fnName := "<fn>"
		if fn != nil {
			fnName = fn.Name
		}
		return fmt.Sprintf("%-22s %4d  (%s, %d upvalues)", name, inst.B(), fnName, inst.A())
	case OpMakeClass:
		return fmt.Sprintf("%-22s %4d  (%s, %d methods)",
			name, inst.B(), chunk.GetConstant(int(inst.B())).AsString(), inst.A())
	case OpPushTry:
		if info, ok := chunk.TryInfoAt(offset); ok {
			return fmt.Sprintf("%-22s catch=%04d finally=%04d", name, info.CatchTarget, info.FinallyTarget)
		}
		return name
	default:
		return name
	}
}
