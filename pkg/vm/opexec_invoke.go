package vm

import (
	"errors"
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isInvokeOp(op byte) bool {
	switch op {
	case classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokestatic, classfile.OpInvokeinterface:
		return true
	}
	return false
}

func isReturnOp(op byte) bool {
	switch op {
	case classfile.OpIreturn, classfile.OpLreturn, classfile.OpFreturn, classfile.OpDreturn, classfile.OpAreturn, classfile.OpReturn:
		return true
	}
	return false
}

// errMethodNotFound signals that resolveVirtual exhausted the super chain
// without finding a matching declared method.
var errMethodNotFound = errors.New("method not found")

// resolveVirtual walks from className up through its super chain looking
// for a declared (name, descriptor) method, loading ancestors as needed.
// invokevirtual and invokeinterface both use this walk, starting from the
// receiver's actual runtime class (spec.md P6).
func (vm *VM) resolveVirtual(className, name, descriptor string) (*RuntimeClass, *classfile.MethodInfo, error) {
	cur := className
	for cur != "" {
		if vm.Native.IsNative(cur) {
			return nil, nil, errMethodNotFound
		}
		rc, err := vm.MA.Load(cur)
		if err != nil {
			return nil, nil, err
		}
		if m := rc.Image.FindMethod(name, descriptor); m != nil {
			return rc, m, nil
		}
		cur = rc.Image.SuperClassName()
	}
	return nil, nil, errMethodNotFound
}

// execInvoke implements invokevirtual/invokespecial/invokestatic/
// invokeinterface, and the six return opcodes (which, since method
// activation is ordinary Go call recursion here, simply hand the popped
// return value back to executeMethod's caller rather than manipulating an
// explicit frame stack).
func (vm *VM) execInvoke(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpInvokevirtual:
		return vm.invokeVirtualLike(frame, false)
	case classfile.OpInvokeinterface:
		count := frame.ReadU8()
		frame.ReadU8() // reserved, always 0
		_ = count
		return vm.invokeVirtualLike(frame, true)
	case classfile.OpInvokespecial:
		return vm.invokeSpecial(frame)
	case classfile.OpInvokestatic:
		return vm.invokeStatic(frame)

	case classfile.OpIreturn:
		return IntValue(frame.Pop().Int), true, nil
	case classfile.OpLreturn:
		return LongValue(frame.Pop().Long), true, nil
	case classfile.OpFreturn:
		return FloatValue(frame.Pop().Float), true, nil
	case classfile.OpDreturn:
		return DoubleValue(frame.Pop().Double), true, nil
	case classfile.OpAreturn:
		return frame.Pop(), true, nil
	case classfile.OpReturn:
		return Value{}, true, nil

	default:
		return Value{}, false, fmt.Errorf("execInvoke: unhandled opcode 0x%02X", op)
	}
}

func (vm *VM) invokeVirtualLike(frame *Frame, isInterface bool) (Value, bool, error) {
	index := frame.ReadU16()
	className, methodName, descriptor, _, err := vm.MA.ResolveMethodRef(frame.Class, index)
	if err != nil {
		return Value{}, false, err
	}

	args := popArgs(frame, descriptor)
	receiver := frame.Pop()
	if receiver.IsNull() {
		return Value{}, false, npe(frame, fmt.Sprintf("%s.%s", className, methodName))
	}

	if obj := vm.Heap.Object(receiver.Ref); obj != nil {
		rc, method, err := vm.resolveVirtual(obj.ClassName, methodName, descriptor)
		if err == nil {
			if method.IsAbstract() {
				return Value{}, false, abstractMethodError(frame, fmt.Sprintf("%s.%s", obj.ClassName, methodName))
			}
			if isInterface && !isPublic(method.AccessFlags) {
				return Value{}, false, illegalAccessError(frame, fmt.Sprintf("%s.%s", obj.ClassName, methodName))
			}
			return vm.invokeResolved(frame, rc, method, receiver, args, descriptor)
		}
		if !errors.Is(err, errMethodNotFound) {
			return Value{}, false, err
		}
		// Fall through to the native bridge for Object's universal methods
		// (hashCode, getClass, equals, toString) on an ordinary JObject.
	}

	if v, handled, err := vm.Native.InvokeInstance(frame, receiver.Ref, className, methodName, descriptor, args); handled {
		if err != nil {
			return Value{}, false, err
		}
		if !isVoidReturn(descriptor) {
			frame.Push(v)
		}
		return Value{}, false, nil
	}

	return Value{}, false, abstractMethodError(frame, fmt.Sprintf("%s.%s%s", className, methodName, descriptor))
}

func (vm *VM) invokeSpecial(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, methodName, descriptor, _, err := vm.MA.ResolveMethodRef(frame.Class, index)
	if err != nil {
		return Value{}, false, err
	}

	args := popArgs(frame, descriptor)
	receiver := frame.Pop()
	if receiver.IsNull() {
		return Value{}, false, npe(frame, fmt.Sprintf("%s.%s", className, methodName))
	}

	if vm.Native.IsNative(className) {
		if methodName == "<init>" {
			return Value{}, false, nil // construction already happened in `new`/NativeBridge.New
		}
		v, handled, err := vm.Native.InvokeInstance(frame, receiver.Ref, className, methodName, descriptor, args)
		if handled {
			if err != nil {
				return Value{}, false, err
			}
			if !isVoidReturn(descriptor) {
				frame.Push(v)
			}
		}
		return Value{}, false, nil
	}

	var rc *RuntimeClass
	var method *classfile.MethodInfo

	useVirtualWalk := methodName != "<init>" &&
		frame.Class.AccessFlags&classfile.AccSuper != 0 &&
		className != frame.ClassName() &&
		vm.MA.IsSubclassOf(frame.ClassName(), className)

	if useVirtualWalk {
		rc, method, err = vm.resolveVirtual(className, methodName, descriptor)
		if err != nil {
			return Value{}, false, err
		}
	} else {
		rc, err = vm.MA.Load(className)
		if err != nil {
			return Value{}, false, err
		}
		method = rc.Image.FindMethod(methodName, descriptor)
		if method == nil {
			return Value{}, false, noSuchMethodError(frame, fmt.Sprintf("%s.%s%s", className, methodName, descriptor))
		}
	}

	if method.IsStatic() {
		return Value{}, false, incompatibleClassChangeError(frame, fmt.Sprintf("%s.%s is static", className, methodName))
	}
	if method.IsAbstract() {
		return Value{}, false, abstractMethodError(frame, fmt.Sprintf("%s.%s", className, methodName))
	}

	return vm.invokeResolved(frame, rc, method, receiver, args, descriptor)
}

func (vm *VM) invokeStatic(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, methodName, descriptor, _, err := vm.MA.ResolveMethodRef(frame.Class, index)
	if err != nil {
		return Value{}, false, err
	}

	args := popArgs(frame, descriptor)

	if vm.Native.IsNative(className) {
		v, handled, err := vm.Native.InvokeStatic(frame, className, methodName, descriptor, args)
		if err != nil {
			return Value{}, false, err
		}
		if handled && !isVoidReturn(descriptor) {
			frame.Push(v)
		}
		return Value{}, false, nil
	}

	rc, err := vm.loadAndInit(className)
	if err != nil {
		return Value{}, false, err
	}
	method := rc.Image.FindMethod(methodName, descriptor)
	if method == nil {
		return Value{}, false, noSuchMethodError(frame, fmt.Sprintf("%s.%s%s", className, methodName, descriptor))
	}
	if !method.IsStatic() {
		return Value{}, false, incompatibleClassChangeError(frame, fmt.Sprintf("%s.%s is not static", className, methodName))
	}

	retVal, err := vm.executeMethod(rc, method, args)
	if err != nil {
		return Value{}, false, err
	}
	if !isVoidReturn(descriptor) {
		frame.Push(retVal)
	}
	return Value{}, false, nil
}

func (vm *VM) invokeResolved(frame *Frame, rc *RuntimeClass, method *classfile.MethodInfo, receiver Value, args []Value, descriptor string) (Value, bool, error) {
	fullArgs := make([]Value, 0, len(args)+1)
	fullArgs = append(fullArgs, receiver)
	fullArgs = append(fullArgs, args...)
	retVal, err := vm.executeMethod(rc, method, fullArgs)
	if err != nil {
		return Value{}, false, err
	}
	if !isVoidReturn(descriptor) {
		frame.Push(retVal)
	}
	return Value{}, false, nil
}

func isPublic(accessFlags uint16) bool {
	return accessFlags&classfile.AccPublic != 0
}
