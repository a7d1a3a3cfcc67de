package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isObjectOp(op byte) bool {
	switch op {
	case classfile.OpNew, classfile.OpCheckcast, classfile.OpInstanceof,
		classfile.OpMonitorenter, classfile.OpMonitorexit, classfile.OpAthrow:
		return true
	}
	return false
}

// execObject implements object allocation, the reference-type checks, the
// monitor no-ops (this interpreter has no threads, so entering/exiting a
// monitor cannot ever contend), and athrow.
func (vm *VM) execObject(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpNew:
		index := frame.ReadU16()
		className := frame.Class.ClassNameAt(index)
		if vm.Native.IsNative(className) {
			v, ok := vm.Native.New(className)
			if !ok {
				return Value{}, false, fmt.Errorf("new: unsupported native class %s", className)
			}
			frame.Push(v)
			return Value{}, false, nil
		}
		if _, err := vm.loadAndInit(className); err != nil {
			return Value{}, false, err
		}
		obj, err := vm.MA.NewObject(className)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(RefValue(vm.Heap.Alloc(obj)))

	case classfile.OpCheckcast:
		index := frame.ReadU16()
		targetClass := frame.Class.ClassNameAt(index)
		ref := frame.Peek()
		if !ref.IsNull() {
			obj := vm.Heap.Object(ref.Ref)
			if obj == nil || !vm.MA.IsSubclassOf(obj.ClassName, targetClass) {
				actual := "unknown"
				if obj != nil {
					actual = obj.ClassName
				}
				return Value{}, false, classCastException(frame, fmt.Sprintf("%s cannot be cast to %s", actual, targetClass))
			}
		}

	case classfile.OpInstanceof:
		index := frame.ReadU16()
		targetClass := frame.Class.ClassNameAt(index)
		ref := frame.Pop()
		result := int32(0)
		if !ref.IsNull() {
			if obj := vm.Heap.Object(ref.Ref); obj != nil && vm.MA.IsSubclassOf(obj.ClassName, targetClass) {
				result = 1
			}
		}
		frame.Push(IntValue(result))

	case classfile.OpMonitorenter, classfile.OpMonitorexit:
		frame.Pop() // single-threaded interpreter: monitors never actually synchronize anything

	case classfile.OpAthrow:
		ref := frame.Pop()
		if ref.IsNull() {
			return Value{}, false, npe(frame, "athrow on null")
		}
		className := "<unknown>"
		if obj := vm.Heap.Object(ref.Ref); obj != nil {
			className = obj.ClassName
		}
		return Value{}, false, uncaughtThrow(frame, className)

	default:
		return Value{}, false, fmt.Errorf("execObject: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}
