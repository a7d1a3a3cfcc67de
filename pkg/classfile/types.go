// Package classfile decodes the classic JVM .class binary format into an
// in-memory class image. It validates only the magic number, the version
// ceiling, and this/super circularity; deeper structural verification is
// deferred to the runtime layer that actually exercises a field or method.
package classfile

// Access flags (the subset this interpreter inspects).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccSynthetic    = 0x1000
	AccNative       = 0x0100
	AccSynchronized = 0x0020 // same bit as ACC_SUPER, parsed and ignored
)

// MaxSupportedMajor is the highest class-file major version this decoder
// accepts (classic JVM spec, pre-invokedynamic).
const MaxSupportedMajor = 48

// ClassFile is a parsed .class file: a constant pool plus the structural
// metadata that references into it.
type ClassFile struct {
	Minor, Major uint16
	ConstantPool []ConstantPoolEntry // 1-indexed; ConstantPool[0] is nil
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []*FieldInfo
	Methods      []*MethodInfo
	Attributes   []*AttributeInfo
}

// FieldInfo describes one declared field.
type FieldInfo struct {
	AccessFlags uint16
	NameIndex   uint16
	DescIndex   uint16
	Name        string
	Descriptor  string
	Attributes  []*AttributeInfo
}

// MethodInfo describes one declared method.
type MethodInfo struct {
	AccessFlags uint16
	NameIndex   uint16
	DescIndex   uint16
	Name        string
	Descriptor  string
	Attributes  []*AttributeInfo

	code     *CodeAttribute
	codeSeen bool
}

// AttributeInfo is a raw, unparsed attribute body. Typed accessors
// (Code, ConstantValue, Exceptions) reparse the relevant bytes on demand;
// this keeps decode cheap for attributes a given run never exercises, and
// attributes the decoder does not recognize are preserved untouched.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionTableEntry is one row of a Code attribute's exception table.
// It is parsed and retained but never consulted during dispatch — structured
// exception handling is an explicit non-goal.
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC uint16
	CatchType                 uint16 // 0 means catch-all
}

// CodeAttribute is the parsed form of a method's "Code" attribute.
type CodeAttribute struct {
	MaxStack, MaxLocals uint16
	Code                []byte
	ExceptionTable      []ExceptionTableEntry
	Attributes          []*AttributeInfo
}

// Code returns the method's parsed Code attribute, or nil if the method has
// none (abstract or native methods). The parse happens once and is cached.
func (m *MethodInfo) Code() *CodeAttribute {
	if !m.codeSeen {
		m.codeSeen = true
		for _, a := range m.Attributes {
			if a.Name == "Code" {
				if c, err := parseCode(a.Data); err == nil {
					m.code = c
				}
				break
			}
		}
	}
	return m.code
}

// IsStatic reports whether the access flags include ACC_STATIC.
func (m *MethodInfo) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// IsAbstract reports whether the access flags include ACC_ABSTRACT.
func (m *MethodInfo) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }

// IsNative reports whether the access flags include ACC_NATIVE.
func (m *MethodInfo) IsNative() bool { return m.AccessFlags&AccNative != 0 }

// IsStatic reports whether the field's access flags include ACC_STATIC.
func (f *FieldInfo) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// IsFinal reports whether the field's access flags include ACC_FINAL.
func (f *FieldInfo) IsFinal() bool { return f.AccessFlags&AccFinal != 0 }

// ThisClassName returns the class's own fully-qualified name.
func (cf *ClassFile) ThisClassName() string {
	return cf.className(cf.ThisClass)
}

// SuperClassName returns the superclass's fully-qualified name, or "" for
// java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	return cf.className(cf.SuperClass)
}

// ClassNameAt returns the fully-qualified class name referenced by a Class
// constant-pool entry at index classIndex — the public form of className,
// for resolving Fieldref/Methodref owning-class references from outside the
// package.
func (cf *ClassFile) ClassNameAt(classIndex uint16) string {
	return cf.className(classIndex)
}

func (cf *ClassFile) className(classIndex uint16) string {
	c, ok := cf.ConstantPool[classIndex].(*ConstantClass)
	if !ok {
		return ""
	}
	return cf.Utf8(c.NameIndex)
}

// Utf8 returns the string stored at a Utf8 constant-pool entry, or "" if the
// index does not reference one.
func (cf *ClassFile) Utf8(index uint16) string {
	u, ok := cf.ConstantPool[index].(*ConstantUtf8)
	if !ok {
		return ""
	}
	return u.Value
}

// FindMethod returns the declared method matching name and descriptor, or
// nil. It does not walk the super chain — callers that need virtual
// resolution do that themselves against the method area.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for _, m := range cf.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindField returns the declared field matching name, or nil.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for _, f := range cf.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
