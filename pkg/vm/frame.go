package vm

import (
	"fmt"

	"github.com/hsato/minijvm/pkg/classfile"
)

// Frame is one method activation: a local-variable array, an operand stack,
// and a program counter into the method's code array. Frames are created on
// invocation and dropped on return; each activation is one executeMethod
// call, so the caller's PC stays in the caller's own frame. ReturnPC is not
// set or read by the interpreter.
type Frame struct {
	Class    *classfile.ClassFile
	Method   *classfile.MethodInfo
	ReturnPC int
	Locals   []Value
	Stack    []Value
	SP       int
	Code     []byte
	PC       int
}

// NewFrame allocates a frame with maxLocals local slots and maxStack operand
// slots, both zero-valued (Kind == KindInt, 0), per spec's "allocated and
// zeroed" contract.
func NewFrame(maxLocals, maxStack uint16, code []byte, class *classfile.ClassFile, method *classfile.MethodInfo) *Frame {
	return &Frame{
		Class:  class,
		Method: method,
		Locals: make([]Value, maxLocals),
		Stack:  make([]Value, maxStack),
		Code:   code,
	}
}

// Push places v on the operand stack. Category-2 values consume two slots:
// the value itself, then a reserved companion slot, so that Push(long)
// Push(int) stack depth accounting matches the max_stack budget the class
// file declares.
func (f *Frame) Push(v Value) {
	f.pushRaw(v)
	if v.IsCategory2() {
		f.pushRaw(reservedValue())
	}
}

func (f *Frame) pushRaw(v Value) {
	if f.SP >= len(f.Stack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d max=%d", f.SP, len(f.Stack)))
	}
	f.Stack[f.SP] = v
	f.SP++
}

// Pop removes and returns the top logical value, consuming its companion
// slot transparently if it is category-2.
func (f *Frame) Pop() Value {
	v := f.popRaw()
	if v.Kind == kindReserved {
		v = f.popRaw()
	}
	return v
}

func (f *Frame) popRaw() Value {
	if f.SP <= 0 {
		panic("operand stack underflow")
	}
	f.SP--
	return f.Stack[f.SP]
}

// Depth returns the current logical slot count in use (for diagnostics).
func (f *Frame) Depth() int { return f.SP }

// Peek returns the top logical value without popping it.
func (f *Frame) Peek() Value {
	v := f.Pop()
	f.Push(v)
	return v
}

// GetLocal returns the logical value stored at local index i.
func (f *Frame) GetLocal(i int) Value {
	f.checkLocalIndex(i)
	return f.Locals[i]
}

// SetLocal stores v at local index i. Category-2 values occupy i and i+1.
func (f *Frame) SetLocal(i int, v Value) {
	f.checkLocalIndex(i)
	f.Locals[i] = v
	if v.IsCategory2() {
		f.checkLocalIndex(i + 1)
		f.Locals[i+1] = reservedValue()
	}
}

func (f *Frame) checkLocalIndex(i int) {
	if i < 0 || i >= len(f.Locals) {
		panic(fmt.Sprintf("local variable index out of range: index=%d max=%d", i, len(f.Locals)))
	}
}

// ReadU8 reads an unsigned byte operand, advancing PC.
func (f *Frame) ReadU8() uint8 {
	v := f.Code[f.PC]
	f.PC++
	return v
}

// ReadI8 reads a signed byte operand, advancing PC.
func (f *Frame) ReadI8() int8 {
	v := int8(f.Code[f.PC])
	f.PC++
	return v
}

// ReadU16 reads a big-endian unsigned 16-bit operand, advancing PC by 2.
func (f *Frame) ReadU16() uint16 {
	v := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return v
}

// ReadI16 reads a big-endian signed 16-bit operand, advancing PC by 2.
func (f *Frame) ReadI16() int16 {
	v := int16(f.Code[f.PC])<<8 | int16(f.Code[f.PC+1])
	f.PC += 2
	return v
}

// ReadI32 reads a big-endian signed 32-bit operand, advancing PC by 4.
func (f *Frame) ReadI32() int32 {
	v := int32(f.Code[f.PC])<<24 | int32(f.Code[f.PC+1])<<16 | int32(f.Code[f.PC+2])<<8 | int32(f.Code[f.PC+3])
	f.PC += 4
	return v
}

// AlignPC pads PC up to the next 4-byte boundary within the code array,
// using PC's own offset in that array rather than any memory address — the
// tableswitch/lookupswitch alignment rule.
func (f *Frame) AlignPC() {
	for f.PC%4 != 0 {
		f.PC++
	}
}

// ClassName returns the owning class's fully-qualified name, or "?" if the
// frame carries no class (used by isolated opcode-level tests).
func (f *Frame) ClassName() string {
	if f.Class == nil {
		return "?"
	}
	return f.Class.ThisClassName()
}

// MethodName returns the frame's method name, or "?" if absent.
func (f *Frame) MethodName() string {
	if f.Method == nil {
		return "?"
	}
	return f.Method.Name
}
