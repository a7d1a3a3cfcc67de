package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isFieldOp(op byte) bool {
	switch op {
	case classfile.OpGetstatic, classfile.OpPutstatic, classfile.OpGetfield, classfile.OpPutfield:
		return true
	}
	return false
}

// execField implements getstatic/putstatic/getfield/putfield: resolve the
// Fieldref, divert to the native bridge if the owning class is recognized,
// else read/write the class's static storage or the receiver's instance
// storage.
func (vm *VM) execField(frame *Frame, op byte) (Value, bool, error) {
	index := frame.ReadU16()
	className, fieldName, descriptor, err := vm.MA.ResolveFieldRef(frame.Class, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("%s: %w", classfile.Opcodes[op].Mnemonic, err)
	}

	switch op {
	case classfile.OpGetstatic:
		if vm.Native.IsNative(className) {
			if v, ok := vm.Native.GetStaticField(className, fieldName); ok {
				frame.Push(v)
				return Value{}, false, nil
			}
			frame.Push(NullValue())
			return Value{}, false, nil
		}
		rc, err := vm.loadAndInit(className)
		if err != nil {
			return Value{}, false, err
		}
		if _, cached := rc.StaticFields[fieldName]; !cached {
			if f := rc.Image.FindField(fieldName); f != nil {
				if idx, ok := f.ConstantValue(); ok {
					if cs, ok := rc.Image.ConstantPool[idx].(*classfile.ConstantString); ok {
						vm.MA.PutStatic(rc, fieldName, RefValue(vm.Heap.AllocString(rc.Image.Utf8(cs.StringIndex))))
					}
				}
			}
		}
		frame.Push(vm.MA.GetStatic(rc, fieldName))

	case classfile.OpPutstatic:
		value := frame.Pop()
		if vm.Native.IsNative(className) {
			return Value{}, false, nil
		}
		rc, err := vm.loadAndInit(className)
		if err != nil {
			return Value{}, false, err
		}
		vm.MA.PutStatic(rc, fieldName, value)

	case classfile.OpGetfield:
		ref := frame.Pop()
		if ref.IsNull() {
			return Value{}, false, npe(frame, fmt.Sprintf("getfield %s.%s", className, fieldName))
		}
		obj := vm.Heap.Object(ref.Ref)
		if obj == nil {
			return Value{}, false, illegalAccessError(frame, fmt.Sprintf("getfield: %s is not an object", className))
		}
		v, ok := obj.Fields[fieldName]
		if !ok {
			v = defaultValueForDescriptor(descriptor)
		}
		frame.Push(v)

	case classfile.OpPutfield:
		value := frame.Pop()
		ref := frame.Pop()
		if ref.IsNull() {
			return Value{}, false, npe(frame, fmt.Sprintf("putfield %s.%s", className, fieldName))
		}
		obj := vm.Heap.Object(ref.Ref)
		if obj == nil {
			return Value{}, false, illegalAccessError(frame, fmt.Sprintf("putfield: %s is not an object", className))
		}
		obj.Fields[fieldName] = value
	}
	return Value{}, false, nil
}
