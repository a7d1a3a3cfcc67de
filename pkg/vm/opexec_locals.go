package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isLocalOp(op byte) bool {
	switch op {
	case classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload,
		classfile.OpIload0, classfile.OpIload1, classfile.OpIload2, classfile.OpIload3,
		classfile.OpLload0, classfile.OpLload1, classfile.OpLload2, classfile.OpLload3,
		classfile.OpFload0, classfile.OpFload1, classfile.OpFload2, classfile.OpFload3,
		classfile.OpDload0, classfile.OpDload1, classfile.OpDload2, classfile.OpDload3,
		classfile.OpAload0, classfile.OpAload1, classfile.OpAload2, classfile.OpAload3,
		classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore,
		classfile.OpIstore0, classfile.OpIstore1, classfile.OpIstore2, classfile.OpIstore3,
		classfile.OpLstore0, classfile.OpLstore1, classfile.OpLstore2, classfile.OpLstore3,
		classfile.OpFstore0, classfile.OpFstore1, classfile.OpFstore2, classfile.OpFstore3,
		classfile.OpDstore0, classfile.OpDstore1, classfile.OpDstore2, classfile.OpDstore3,
		classfile.OpAstore0, classfile.OpAstore1, classfile.OpAstore2, classfile.OpAstore3,
		classfile.OpWide:
		return true
	}
	return false
}

// execLocal handles the local-variable load/store family (all widths) and
// the wide-prefixed forms, including wide iinc.
func (vm *VM) execLocal(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpIload:
		frame.Push(IntValue(frame.GetLocal(int(frame.ReadU8())).Int))
	case classfile.OpLload:
		frame.Push(LongValue(frame.GetLocal(int(frame.ReadU8())).Long))
	case classfile.OpFload:
		frame.Push(FloatValue(frame.GetLocal(int(frame.ReadU8())).Float))
	case classfile.OpDload:
		frame.Push(DoubleValue(frame.GetLocal(int(frame.ReadU8())).Double))
	case classfile.OpAload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))

	case classfile.OpIload0:
		frame.Push(IntValue(frame.GetLocal(0).Int))
	case classfile.OpIload1:
		frame.Push(IntValue(frame.GetLocal(1).Int))
	case classfile.OpIload2:
		frame.Push(IntValue(frame.GetLocal(2).Int))
	case classfile.OpIload3:
		frame.Push(IntValue(frame.GetLocal(3).Int))

	case classfile.OpLload0:
		frame.Push(LongValue(frame.GetLocal(0).Long))
	case classfile.OpLload1:
		frame.Push(LongValue(frame.GetLocal(1).Long))
	case classfile.OpLload2:
		frame.Push(LongValue(frame.GetLocal(2).Long))
	case classfile.OpLload3:
		frame.Push(LongValue(frame.GetLocal(3).Long))

	case classfile.OpFload0:
		frame.Push(FloatValue(frame.GetLocal(0).Float))
	case classfile.OpFload1:
		frame.Push(FloatValue(frame.GetLocal(1).Float))
	case classfile.OpFload2:
		frame.Push(FloatValue(frame.GetLocal(2).Float))
	case classfile.OpFload3:
		frame.Push(FloatValue(frame.GetLocal(3).Float))

	case classfile.OpDload0:
		frame.Push(DoubleValue(frame.GetLocal(0).Double))
	case classfile.OpDload1:
		frame.Push(DoubleValue(frame.GetLocal(1).Double))
	case classfile.OpDload2:
		frame.Push(DoubleValue(frame.GetLocal(2).Double))
	case classfile.OpDload3:
		frame.Push(DoubleValue(frame.GetLocal(3).Double))

	case classfile.OpAload0:
		frame.Push(frame.GetLocal(0))
	case classfile.OpAload1:
		frame.Push(frame.GetLocal(1))
	case classfile.OpAload2:
		frame.Push(frame.GetLocal(2))
	case classfile.OpAload3:
		frame.Push(frame.GetLocal(3))

	case classfile.OpIstore:
		frame.SetLocal(int(frame.ReadU8()), IntValue(frame.Pop().Int))
	case classfile.OpLstore:
		frame.SetLocal(int(frame.ReadU8()), LongValue(frame.Pop().Long))
	case classfile.OpFstore:
		frame.SetLocal(int(frame.ReadU8()), FloatValue(frame.Pop().Float))
	case classfile.OpDstore:
		frame.SetLocal(int(frame.ReadU8()), DoubleValue(frame.Pop().Double))
	case classfile.OpAstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())

	case classfile.OpIstore0:
		frame.SetLocal(0, IntValue(frame.Pop().Int))
	case classfile.OpIstore1:
		frame.SetLocal(1, IntValue(frame.Pop().Int))
	case classfile.OpIstore2:
		frame.SetLocal(2, IntValue(frame.Pop().Int))
	case classfile.OpIstore3:
		frame.SetLocal(3, IntValue(frame.Pop().Int))

	case classfile.OpLstore0:
		frame.SetLocal(0, LongValue(frame.Pop().Long))
	case classfile.OpLstore1:
		frame.SetLocal(1, LongValue(frame.Pop().Long))
	case classfile.OpLstore2:
		frame.SetLocal(2, LongValue(frame.Pop().Long))
	case classfile.OpLstore3:
		frame.SetLocal(3, LongValue(frame.Pop().Long))

	case classfile.OpFstore0:
		frame.SetLocal(0, FloatValue(frame.Pop().Float))
	case classfile.OpFstore1:
		frame.SetLocal(1, FloatValue(frame.Pop().Float))
	case classfile.OpFstore2:
		frame.SetLocal(2, FloatValue(frame.Pop().Float))
	case classfile.OpFstore3:
		frame.SetLocal(3, FloatValue(frame.Pop().Float))

	case classfile.OpDstore0:
		frame.SetLocal(0, DoubleValue(frame.Pop().Double))
	case classfile.OpDstore1:
		frame.SetLocal(1, DoubleValue(frame.Pop().Double))
	case classfile.OpDstore2:
		frame.SetLocal(2, DoubleValue(frame.Pop().Double))
	case classfile.OpDstore3:
		frame.SetLocal(3, DoubleValue(frame.Pop().Double))

	case classfile.OpAstore0:
		frame.SetLocal(0, frame.Pop())
	case classfile.OpAstore1:
		frame.SetLocal(1, frame.Pop())
	case classfile.OpAstore2:
		frame.SetLocal(2, frame.Pop())
	case classfile.OpAstore3:
		frame.SetLocal(3, frame.Pop())

	case classfile.OpWide:
		return vm.execWide(frame)

	default:
		return Value{}, false, fmt.Errorf("execLocal: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}

// execWide handles the wide-prefixed forms: a 16-bit local index instead of
// 8-bit for any *load/*store/ret, or — for iinc — a 16-bit index followed
// by a 16-bit signed increment.
func (vm *VM) execWide(frame *Frame) (Value, bool, error) {
	sub := frame.ReadU8()
	index := int(frame.ReadU16())

	switch sub {
	case classfile.OpIload:
		frame.Push(IntValue(frame.GetLocal(index).Int))
	case classfile.OpLload:
		frame.Push(LongValue(frame.GetLocal(index).Long))
	case classfile.OpFload:
		frame.Push(FloatValue(frame.GetLocal(index).Float))
	case classfile.OpDload:
		frame.Push(DoubleValue(frame.GetLocal(index).Double))
	case classfile.OpAload:
		frame.Push(frame.GetLocal(index))
	case classfile.OpIstore:
		frame.SetLocal(index, IntValue(frame.Pop().Int))
	case classfile.OpLstore:
		frame.SetLocal(index, LongValue(frame.Pop().Long))
	case classfile.OpFstore:
		frame.SetLocal(index, FloatValue(frame.Pop().Float))
	case classfile.OpDstore:
		frame.SetLocal(index, DoubleValue(frame.Pop().Double))
	case classfile.OpAstore:
		frame.SetLocal(index, frame.Pop())
	case classfile.OpRet:
		frame.PC = int(frame.GetLocal(index).Int)
	case classfile.OpIinc:
		delta := int32(frame.ReadI16())
		local := frame.GetLocal(index)
		frame.SetLocal(index, IntValue(local.Int+delta))
	default:
		return Value{}, false, fmt.Errorf("wide: unsupported sub-opcode 0x%02X", sub)
	}
	return Value{}, false, nil
}
