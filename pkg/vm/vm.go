package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hsato/minijvm/pkg/classfile"
)

// maxFrameDepth bounds call recursion the same way a real JVM's
// -Xss-governed native stack would; exceeding it is this interpreter's
// StackOverflowError equivalent.
const maxFrameDepth = 1024

// VM drives one run: a method area, a heap, the native bridge, and the
// running frame depth. A frame's activation lives as one level of Go call
// recursion in executeMethod, so "the frame stack" is the Go call stack
// itself — push is a call, pop is a return, exactly the shape the teacher's
// executeMethod already used for its single supported call depth, now
// generalized to arbitrary invoke/return nesting.
type VM struct {
	MA     *MethodArea
	Heap   *Heap
	Native *NativeBridge
	Out    io.Writer
	Log    *logrus.Logger

	Debugger *Debugger

	frameDepth int
}

// NewVM wires a VM from a classpath, output sink, and logger. The native
// bridge shares the VM's heap so references it allocates (PrintStream,
// StringBuffer, …) are indistinguishable from object references anywhere
// else in the interpreter.
func NewVM(cp ClassPath, out io.Writer, log *logrus.Logger) *VM {
	heap := NewHeap()
	return &VM{
		MA:     NewMethodArea(cp, log),
		Heap:   heap,
		Native: &NativeBridge{Out: out, Heap: heap, Log: log},
		Out:    out,
		Log:    log,
	}
}

// Execute loads mainClassName, ensures it (and its super chain) are
// initialized, and runs its main([Ljava/lang/String;)V.
func (vm *VM) Execute(mainClassName string, programArgs []string) error {
	rc, err := vm.MA.Load(mainClassName)
	if err != nil {
		return err
	}
	main := rc.Image.FindMethod("main", "([Ljava/lang/String;)V")
	if main == nil {
		return fmt.Errorf("class %s declares no main([Ljava/lang/String;)V", mainClassName)
	}
	if err := vm.ensureInitialized(rc); err != nil {
		return err
	}

	argsArray := &JArray{ElementKind: ArrayRef, Elements: make([]Value, len(programArgs))}
	for i, s := range programArgs {
		argsArray.Elements[i] = RefValue(vm.Heap.AllocString(s))
	}
	argsRef := RefValue(vm.Heap.Alloc(argsArray))

	_, err = vm.executeMethod(rc, main, []Value{argsRef})
	return err
}

// executeMethod runs method in a fresh frame until it returns, recursing
// into itself for any invoke* instruction. args is one Value per logical
// parameter (receiver first, for an instance method); bindArgs spreads
// category-2 parameters across two local slots as the JVM local-variable
// layout requires.
func (vm *VM) executeMethod(rc *RuntimeClass, method *classfile.MethodInfo, args []Value) (Value, error) {
	code := method.Code()
	if code == nil {
		return Value{}, fmt.Errorf("AbstractMethodError: %s.%s has no Code attribute", rc.Name, method.Name)
	}

	vm.frameDepth++
	defer func() { vm.frameDepth-- }()
	if vm.frameDepth > maxFrameDepth {
		return Value{}, fmt.Errorf("StackOverflowError: frame depth exceeded %d", maxFrameDepth)
	}

	frame := NewFrame(code.MaxLocals, code.MaxStack, code.Code, rc.Image, method)
	bindArgs(frame, args)

	for frame.PC < len(frame.Code) {
		if vm.Debugger != nil {
			vm.Debugger.BeforeInstruction(frame)
		}
		op := frame.Code[frame.PC]
		frame.PC++
		retVal, hasReturn, err := vm.dispatch(frame, op)
		if err != nil {
			return Value{}, err
		}
		if hasReturn {
			return retVal, nil
		}
	}
	return Value{}, nil
}

func bindArgs(frame *Frame, args []Value) {
	li := 0
	for _, a := range args {
		frame.SetLocal(li, a)
		if a.IsCategory2() {
			li += 2
		} else {
			li++
		}
	}
}

// ensureInitialized runs the class initialization protocol (spec.md §4.3
// step 5): the super chain initializes first, then <clinit> runs to
// completion before control returns — synchronously, via ordinary Go
// recursion into executeMethod, rather than by staging a frame onto a flat
// dispatch loop and replaying the triggering instruction. The two
// mechanisms are observationally identical (by the time ensureInitialized
// returns, Y's statics are settled before X's dependent instruction runs,
// satisfying P7) and recursion is both simpler and a closer match to how
// this interpreter's call stack already works; see DESIGN.md.
func (vm *VM) ensureInitialized(rc *RuntimeClass) error {
	if rc.Initialized {
		return nil
	}
	rc.Initialized = true // set before recursing: a class never re-enters its own <clinit>

	super := rc.Image.SuperClassName()
	if super != "" && !vm.Native.IsNative(super) {
		superRC, err := vm.MA.Load(super)
		if err != nil {
			return err
		}
		if err := vm.ensureInitialized(superRC); err != nil {
			return err
		}
	}

	clinit := rc.Image.FindMethod("<clinit>", "()V")
	if clinit == nil {
		return nil
	}
	_, err := vm.executeMethod(rc, clinit, nil)
	return err
}

// loadAndInit loads className (via the method area) and runs its
// initialization protocol, the composite operation getstatic/putstatic/new/
// invokestatic all need before touching the class.
func (vm *VM) loadAndInit(className string) (*RuntimeClass, error) {
	rc, err := vm.MA.Load(className)
	if err != nil {
		return nil, err
	}
	if err := vm.ensureInitialized(rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// countParams returns the number of parameters a method descriptor
// declares — one per logical argument, including reference and array types
// that occupy a single parenthesized run, regardless of whether the
// parameter itself needs one or two local-variable slots.
func countParams(descriptor string) int {
	i := 1 // skip '('
	n := 0
	for i < len(descriptor) && descriptor[i] != ')' {
		for i < len(descriptor) && descriptor[i] == '[' {
			i++
		}
		if i >= len(descriptor) {
			break
		}
		if descriptor[i] == 'L' {
			for i < len(descriptor) && descriptor[i] != ';' {
				i++
			}
		}
		i++
		n++
	}
	return n
}

// paramIsCategory2 reports whether the i-th parameter (0-indexed) in
// descriptor is a long or double, i.e. needs two argument slots when popped
// off the operand stack — callers use this to decide how many frame.Pop()
// calls a parameter consumes.
func paramIsCategory2(descriptor string, paramIndex int) bool {
	i := 1
	n := 0
	for i < len(descriptor) && descriptor[i] != ')' {
		start := i
		for i < len(descriptor) && descriptor[i] == '[' {
			i++
		}
		isArray := i > start
		var kind byte
		if i < len(descriptor) {
			kind = descriptor[i]
		}
		if kind == 'L' {
			for i < len(descriptor) && descriptor[i] != ';' {
				i++
			}
		}
		i++
		if n == paramIndex {
			return !isArray && (kind == 'J' || kind == 'D')
		}
		n++
	}
	return false
}

func isVoidReturn(descriptor string) bool {
	idx := strings.IndexByte(descriptor, ')')
	return idx >= 0 && idx+1 < len(descriptor) && descriptor[idx+1] == 'V'
}

func returnKind(descriptor string) byte {
	idx := strings.IndexByte(descriptor, ')')
	if idx < 0 || idx+1 >= len(descriptor) {
		return 'V'
	}
	return descriptor[idx+1]
}

// popArgs pops the parameters a method descriptor declares off frame's
// operand stack, last parameter first (the first parameter was pushed first
// and is popped last), and returns them in declaration order.
func popArgs(frame *Frame, descriptor string) []Value {
	n := countParams(descriptor)
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args
}

// dispatch executes one opcode, delegating to the category handler that
// owns it. Each handler returns (returnValue, hasReturn, error), the same
// shape the teacher's single-category dispatcher used.
func (vm *VM) dispatch(frame *Frame, op byte) (Value, bool, error) {
	switch {
	case op == classfile.OpNop:
		return Value{}, false, nil

	case isConstOp(op):
		return vm.execConst(frame, op)

	case isLocalOp(op):
		return vm.execLocal(frame, op)

	case isArrayOp(op):
		return vm.execArray(frame, op)

	case isStackOp(op):
		return vm.execStack(frame, op)

	case isArithOp(op):
		return vm.execArith(frame, op)

	case isBranchOp(op):
		return vm.execBranch(frame, op)

	case isFieldOp(op):
		return vm.execField(frame, op)

	case isInvokeOp(op) || isReturnOp(op):
		return vm.execInvoke(frame, op)

	case isObjectOp(op):
		return vm.execObject(frame, op)

	default:
		return Value{}, false, fmt.Errorf("unrecognized opcode 0x%02X at pc=%d", op, frame.PC-1)
	}
}
