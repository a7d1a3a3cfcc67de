package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isConstOp(op byte) bool {
	switch op {
	case classfile.OpAconstNull,
		classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
		classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5,
		classfile.OpLconst0, classfile.OpLconst1,
		classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2,
		classfile.OpDconst0, classfile.OpDconst1,
		classfile.OpBipush, classfile.OpSipush,
		classfile.OpLdc, classfile.OpLdcW, classfile.OpLdc2W:
		return true
	}
	return false
}

// execConst handles the immediate/constant-pool load family: the various
// *const_<n> shorthands, bipush/sipush, and ldc/ldc_w/ldc2_w.
func (vm *VM) execConst(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpAconstNull:
		frame.Push(NullValue())
	case classfile.OpIconstM1:
		frame.Push(IntValue(-1))
	case classfile.OpIconst0:
		frame.Push(IntValue(0))
	case classfile.OpIconst1:
		frame.Push(IntValue(1))
	case classfile.OpIconst2:
		frame.Push(IntValue(2))
	case classfile.OpIconst3:
		frame.Push(IntValue(3))
	case classfile.OpIconst4:
		frame.Push(IntValue(4))
	case classfile.OpIconst5:
		frame.Push(IntValue(5))
	case classfile.OpLconst0:
		frame.Push(LongValue(0))
	case classfile.OpLconst1:
		frame.Push(LongValue(1))
	case classfile.OpFconst0:
		frame.Push(FloatValue(0))
	case classfile.OpFconst1:
		frame.Push(FloatValue(1))
	case classfile.OpFconst2:
		frame.Push(FloatValue(2))
	case classfile.OpDconst0:
		frame.Push(DoubleValue(0))
	case classfile.OpDconst1:
		frame.Push(DoubleValue(1))

	case classfile.OpBipush:
		frame.Push(IntValue(int32(frame.ReadI8())))
	case classfile.OpSipush:
		frame.Push(IntValue(int32(frame.ReadI16())))

	case classfile.OpLdc:
		return vm.execLdc(frame, uint16(frame.ReadU8()))
	case classfile.OpLdcW:
		return vm.execLdc(frame, frame.ReadU16())
	case classfile.OpLdc2W:
		return vm.execLdc(frame, frame.ReadU16())

	default:
		return Value{}, false, fmt.Errorf("execConst: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}

// execLdc pushes the value a constant-pool entry denotes. Strings are
// interned into the heap on first load; Class constants materialize a
// minimal java/lang/Class placeholder carrying just a name, matching the
// native bridge's treatment of Class objects elsewhere.
func (vm *VM) execLdc(frame *Frame, index uint16) (Value, bool, error) {
	entry := frame.Class.ConstantPool[index]
	switch c := entry.(type) {
	case *classfile.ConstantInteger:
		frame.Push(IntValue(c.Value))
	case *classfile.ConstantFloat:
		frame.Push(FloatValue(c.Value))
	case *classfile.ConstantLong:
		frame.Push(LongValue(c.Value))
	case *classfile.ConstantDouble:
		frame.Push(DoubleValue(c.Value))
	case *classfile.ConstantString:
		s := frame.Class.Utf8(c.StringIndex)
		frame.Push(RefValue(vm.Heap.AllocString(s)))
	case *classfile.ConstantClass:
		name := frame.Class.Utf8(c.NameIndex)
		obj := &JObject{ClassName: "java/lang/Class", Fields: map[string]Value{"name": RefValue(vm.Heap.AllocString(name))}}
		frame.Push(RefValue(vm.Heap.Alloc(obj)))
	default:
		return Value{}, false, fmt.Errorf("ldc: unsupported constant pool entry at index %d (tag=%d)", index, entry.Tag())
	}
	return Value{}, false, nil
}
