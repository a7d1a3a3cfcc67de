package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isBranchOp(op byte) bool {
	switch op {
	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle,
		classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt, classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple,
		classfile.OpIfAcmpeq, classfile.OpIfAcmpne,
		classfile.OpGoto, classfile.OpGotoW,
		classfile.OpJsr, classfile.OpJsrW, classfile.OpRet,
		classfile.OpTableswitch, classfile.OpLookupswitch,
		classfile.OpIfnull, classfile.OpIfnonnull:
		return true
	}
	return false
}

// execBranch implements every control-transfer opcode: the unary and
// binary int/reference comparisons, goto/goto_w, jsr/jsr_w/ret subroutine
// linkage, tableswitch/lookupswitch, and ifnull/ifnonnull. Every offset is
// relative to the position of the opcode byte itself, never the position
// after its operands — frame.PC has already advanced past the opcode by the
// time a handler runs, so opcodePC := frame.PC-1 recovers that position.
func (vm *VM) execBranch(frame *Frame, op byte) (Value, bool, error) {
	opcodePC := frame.PC - 1

	switch op {
	case classfile.OpIfeq:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v == 0 })
	case classfile.OpIfne:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v != 0 })
	case classfile.OpIflt:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v < 0 })
	case classfile.OpIfge:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v >= 0 })
	case classfile.OpIfgt:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v > 0 })
	case classfile.OpIfle:
		return Value{}, false, branchUnary(frame, opcodePC, func(v int32) bool { return v <= 0 })

	case classfile.OpIfIcmpeq:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a == b })
	case classfile.OpIfIcmpne:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a != b })
	case classfile.OpIfIcmplt:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a < b })
	case classfile.OpIfIcmpge:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a >= b })
	case classfile.OpIfIcmpgt:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a > b })
	case classfile.OpIfIcmple:
		return Value{}, false, branchBinary(frame, opcodePC, func(a, b int32) bool { return a <= b })

	case classfile.OpIfAcmpeq:
		offset := frame.ReadI16()
		b, a := frame.Pop(), frame.Pop()
		if a.Ref == b.Ref && a.IsNull() == b.IsNull() {
			frame.PC = opcodePC + int(offset)
		}
	case classfile.OpIfAcmpne:
		offset := frame.ReadI16()
		b, a := frame.Pop(), frame.Pop()
		if !(a.Ref == b.Ref && a.IsNull() == b.IsNull()) {
			frame.PC = opcodePC + int(offset)
		}

	case classfile.OpGoto:
		offset := frame.ReadI16()
		frame.PC = opcodePC + int(offset)
	case classfile.OpGotoW:
		offset := frame.ReadI32()
		frame.PC = opcodePC + int(offset)

	case classfile.OpJsr:
		offset := frame.ReadI16()
		frame.Push(IntValue(int32(frame.PC)))
		frame.PC = opcodePC + int(offset)
	case classfile.OpJsrW:
		offset := frame.ReadI32()
		frame.Push(IntValue(int32(frame.PC)))
		frame.PC = opcodePC + int(offset)
	case classfile.OpRet:
		index := int(frame.ReadU8())
		frame.PC = int(frame.GetLocal(index).Int)

	case classfile.OpTableswitch:
		return Value{}, false, vm.execTableswitch(frame, opcodePC)
	case classfile.OpLookupswitch:
		return Value{}, false, vm.execLookupswitch(frame, opcodePC)

	case classfile.OpIfnull:
		offset := frame.ReadI16()
		if frame.Pop().IsNull() {
			frame.PC = opcodePC + int(offset)
		}
	case classfile.OpIfnonnull:
		offset := frame.ReadI16()
		if !frame.Pop().IsNull() {
			frame.PC = opcodePC + int(offset)
		}

	default:
		return Value{}, false, fmt.Errorf("execBranch: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}

func branchUnary(frame *Frame, opcodePC int, cond func(int32) bool) error {
	offset := frame.ReadI16()
	v := frame.Pop()
	if cond(v.Int) {
		frame.PC = opcodePC + int(offset)
	}
	return nil
}

func branchBinary(frame *Frame, opcodePC int, cond func(a, b int32) bool) error {
	offset := frame.ReadI16()
	b, a := frame.Pop(), frame.Pop()
	if cond(a.Int, b.Int) {
		frame.PC = opcodePC + int(offset)
	}
	return nil
}

// execTableswitch decodes default/low/high followed by (high-low+1) jump
// offsets, all relative to opcodePC, per spec.md §4.6.
func (vm *VM) execTableswitch(frame *Frame, opcodePC int) error {
	frame.AlignPC()
	defaultOffset := frame.ReadI32()
	low := frame.ReadI32()
	high := frame.ReadI32()

	index := frame.Pop().Int
	if index < low || index > high {
		frame.PC = opcodePC + int(defaultOffset)
		return nil
	}
	// Skip to the selected offset without reading the intervening ones.
	skip := int(index-low) * 4
	frame.PC += skip
	offset := frame.ReadI32()
	frame.PC = opcodePC + int(offset)
	return nil
}

// execLookupswitch decodes default/npairs followed by npairs sorted
// (match, offset) pairs, relative to opcodePC.
func (vm *VM) execLookupswitch(frame *Frame, opcodePC int) error {
	frame.AlignPC()
	defaultOffset := frame.ReadI32()
	npairs := frame.ReadI32()

	key := frame.Pop().Int
	lo, hi := int32(0), npairs-1
	base := frame.PC
	for lo <= hi {
		mid := (lo + hi) / 2
		pos := base + int(mid)*8
		match := int32FromCode(frame.Code, pos)
		if match == key {
			offset := int32FromCode(frame.Code, pos+4)
			frame.PC = opcodePC + int(offset)
			return nil
		} else if match < key {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	frame.PC = opcodePC + int(defaultOffset)
	return nil
}

func int32FromCode(code []byte, pos int) int32 {
	return int32(uint32(code[pos])<<24 | uint32(code[pos+1])<<16 | uint32(code[pos+2])<<8 | uint32(code[pos+3]))
}
