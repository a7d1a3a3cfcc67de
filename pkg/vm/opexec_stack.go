package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isStackOp(op byte) bool {
	switch op {
	case classfile.OpPop, classfile.OpPop2,
		classfile.OpDup, classfile.OpDupX1, classfile.OpDupX2,
		classfile.OpDup2, classfile.OpDup2X1, classfile.OpDup2X2,
		classfile.OpSwap:
		return true
	}
	return false
}

// execStack implements the full dup/pop/swap family at the logical-value
// level: Frame.Pop/Push already account for a category-2 value occupying
// two physical slots, so "form 1 vs form 2" in the JVM spec's stack-shape
// tables collapses to a runtime check of IsCategory2 on the values actually
// popped, rather than separate opcodes or static verification.
func (vm *VM) execStack(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpPop:
		frame.Pop()

	case classfile.OpPop2:
		v := frame.Pop()
		if !v.IsCategory2() {
			frame.Pop()
		}

	case classfile.OpDup:
		v := frame.Pop()
		frame.Push(v)
		frame.Push(v)

	case classfile.OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)

	case classfile.OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v2.IsCategory2() {
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else {
			v3 := frame.Pop()
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}

	case classfile.OpDup2:
		v1 := frame.Pop()
		if v1.IsCategory2() {
			frame.Push(v1)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		}

	case classfile.OpDup2X1:
		v1 := frame.Pop()
		if v1.IsCategory2() {
			v2 := frame.Pop()
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			v3 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}

	case classfile.OpDup2X2:
		v1 := frame.Pop()
		if v1.IsCategory2() {
			v2 := frame.Pop()
			if v2.IsCategory2() {
				frame.Push(v1)
				frame.Push(v2)
				frame.Push(v1)
			} else {
				v3 := frame.Pop()
				frame.Push(v1)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			}
		} else {
			v2 := frame.Pop()
			v3 := frame.Pop()
			if v3.IsCategory2() {
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			} else {
				v4 := frame.Pop()
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v4)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			}
		}

	case classfile.OpSwap:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)

	default:
		return Value{}, false, fmt.Errorf("execStack: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}
