package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isArrayOp(op byte) bool {
	switch op {
	case classfile.OpIaload, classfile.OpLaload, classfile.OpFaload, classfile.OpDaload, classfile.OpAaload,
		classfile.OpBaload, classfile.OpCaload, classfile.OpSaload,
		classfile.OpIastore, classfile.OpLastore, classfile.OpFastore, classfile.OpDastore, classfile.OpAastore,
		classfile.OpBastore, classfile.OpCastore, classfile.OpSastore,
		classfile.OpNewarray, classfile.OpAnewarray, classfile.OpMultianewarray, classfile.OpArraylength:
		return true
	}
	return false
}

// execArray implements every *aload/*astore width, arraylength, and the
// three array-allocation opcodes. Index/reference popping order, null and
// bounds checks match spec.md §4.6: pop index, pop array reference; null
// reference raises NullPointerException before the bounds check runs.
func (vm *VM) execArray(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpIaload, classfile.OpLaload, classfile.OpFaload, classfile.OpDaload, classfile.OpAaload,
		classfile.OpBaload, classfile.OpCaload, classfile.OpSaload:
		return vm.execALoad(frame, op)

	case classfile.OpIastore, classfile.OpLastore, classfile.OpFastore, classfile.OpDastore, classfile.OpAastore,
		classfile.OpBastore, classfile.OpCastore, classfile.OpSastore:
		return vm.execAStore(frame, op)

	case classfile.OpArraylength:
		ref := frame.Pop()
		arr := vm.Heap.Array(ref.Ref)
		if ref.IsNull() || arr == nil {
			return Value{}, false, npe(frame, "arraylength on null")
		}
		frame.Push(IntValue(int32(arr.Length())))

	case classfile.OpNewarray:
		atype := int32(frame.ReadU8())
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, negativeArraySize(frame, count)
		}
		kind := arrayKindFromATypeCode(atype)
		elems := make([]Value, count)
		for i := range elems {
			elems[i] = defaultValueForKind(kind)
		}
		arr := &JArray{ElementKind: kind, Elements: elems}
		frame.Push(RefValue(vm.Heap.Alloc(arr)))

	case classfile.OpAnewarray:
		frame.ReadU16() // element type's Class constant-pool index; element kind is always ArrayRef here
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, negativeArraySize(frame, count)
		}
		elems := make([]Value, count)
		for i := range elems {
			elems[i] = NullValue()
		}
		arr := &JArray{ElementKind: ArrayRef, Elements: elems}
		frame.Push(RefValue(vm.Heap.Alloc(arr)))

	case classfile.OpMultianewarray:
		return vm.execMultianewarray(frame)

	default:
		return Value{}, false, fmt.Errorf("execArray: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}

func (vm *VM) execALoad(frame *Frame, op byte) (Value, bool, error) {
	index := frame.Pop().Int
	ref := frame.Pop()
	arr := vm.Heap.Array(ref.Ref)
	if ref.IsNull() || arr == nil {
		return Value{}, false, npe(frame, "array load on null")
	}
	if index < 0 || int(index) >= len(arr.Elements) {
		return Value{}, false, arrayIndexOOB(frame, int(index), len(arr.Elements))
	}
	v := arr.Elements[index]
	switch op {
	case classfile.OpIaload:
		frame.Push(IntValue(v.Int))
	case classfile.OpLaload:
		frame.Push(LongValue(v.Long))
	case classfile.OpFaload:
		frame.Push(FloatValue(v.Float))
	case classfile.OpDaload:
		frame.Push(DoubleValue(v.Double))
	case classfile.OpAaload:
		frame.Push(v)
	case classfile.OpBaload:
		if arr.ElementKind == ArrayBoolean {
			frame.Push(IntValue(int32(uint8(v.Int)) & 1)) // zero-extended boolean
		} else {
			frame.Push(IntValue(int32(int8(v.Int)))) // sign-extended byte
		}
	case classfile.OpCaload:
		frame.Push(IntValue(int32(uint16(v.Int)))) // zero-extended char
	case classfile.OpSaload:
		frame.Push(IntValue(int32(int16(v.Int)))) // sign-extended short
	}
	return Value{}, false, nil
}

func (vm *VM) execAStore(frame *Frame, op byte) (Value, bool, error) {
	var value Value
	switch op {
	case classfile.OpLastore:
		value = LongValue(frame.Pop().Long)
	case classfile.OpDastore:
		value = DoubleValue(frame.Pop().Double)
	case classfile.OpFastore:
		value = FloatValue(frame.Pop().Float)
	default:
		value = frame.Pop()
	}
	index := frame.Pop().Int
	ref := frame.Pop()
	arr := vm.Heap.Array(ref.Ref)
	if ref.IsNull() || arr == nil {
		return Value{}, false, npe(frame, "array store on null")
	}
	if index < 0 || int(index) >= len(arr.Elements) {
		return Value{}, false, arrayIndexOOB(frame, int(index), len(arr.Elements))
	}
	switch op {
	case classfile.OpIastore:
		arr.Elements[index] = IntValue(value.Int)
	case classfile.OpLastore:
		arr.Elements[index] = value
	case classfile.OpFastore:
		arr.Elements[index] = value
	case classfile.OpDastore:
		arr.Elements[index] = value
	case classfile.OpAastore:
		arr.Elements[index] = value
	case classfile.OpBastore:
		if arr.ElementKind == ArrayBoolean {
			arr.Elements[index] = IntValue(value.Int & 1) // boolean stores take only the low bit
		} else {
			arr.Elements[index] = IntValue(int32(int8(value.Int)))
		}
	case classfile.OpCastore:
		arr.Elements[index] = IntValue(int32(uint16(value.Int)))
	case classfile.OpSastore:
		arr.Elements[index] = IntValue(int32(int16(value.Int)))
	}
	return Value{}, false, nil
}

// execMultianewarray pops `dimensions` counts (innermost first) and
// allocates nested JArrays, short-circuiting any dimension at or after the
// first zero-length one per spec.md §4.6.
func (vm *VM) execMultianewarray(frame *Frame) (Value, bool, error) {
	frame.ReadU16() // element type's Class constant-pool index
	dimensions := int(frame.ReadU8())

	counts := make([]int32, dimensions)
	for i := dimensions - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int
		if counts[i] < 0 {
			return Value{}, false, negativeArraySize(frame, counts[i])
		}
	}

	ref := vm.allocMultiArray(counts, 0)
	frame.Push(ref)
	return Value{}, false, nil
}

func (vm *VM) allocMultiArray(counts []int32, depth int) Value {
	n := counts[depth]
	elems := make([]Value, n)
	if depth == len(counts)-1 {
		for i := range elems {
			elems[i] = NullValue()
		}
	} else if n > 0 {
		for i := range elems {
			elems[i] = vm.allocMultiArray(counts, depth+1)
		}
	}
	arr := &JArray{ElementKind: ArrayRef, Elements: elems}
	return RefValue(vm.Heap.Alloc(arr))
}
