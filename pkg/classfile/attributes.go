package classfile

import (
	"encoding/binary"
	"fmt"
)

// parseCode reparses a "Code" attribute's raw body. Attribute layout is
// rigid, small, and needed only in hot paths (method execution), so it is
// decoded on first use rather than eagerly for every method a class
// declares.
func parseCode(data []byte) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}
	c := &CodeAttribute{}
	c.MaxStack = binary.BigEndian.Uint16(data[0:2])
	c.MaxLocals = binary.BigEndian.Uint16(data[2:4])
	codeLen := binary.BigEndian.Uint32(data[4:8])
	pos := 8
	if pos+int(codeLen) > len(data) {
		return nil, fmt.Errorf("Code attribute: code_length %d exceeds attribute body", codeLen)
	}
	c.Code = data[pos : pos+int(codeLen)]
	pos += int(codeLen)

	if pos+2 > len(data) {
		return nil, fmt.Errorf("Code attribute: truncated before exception_table_length")
	}
	excCount := binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	c.ExceptionTable = make([]ExceptionTableEntry, excCount)
	for i := range c.ExceptionTable {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("Code attribute: truncated exception table entry %d", i)
		}
		c.ExceptionTable[i] = ExceptionTableEntry{
			StartPC:   binary.BigEndian.Uint16(data[pos : pos+2]),
			EndPC:     binary.BigEndian.Uint16(data[pos+2 : pos+4]),
			HandlerPC: binary.BigEndian.Uint16(data[pos+4 : pos+6]),
			CatchType: binary.BigEndian.Uint16(data[pos+6 : pos+8]),
		}
		pos += 8
	}

	if pos+2 > len(data) {
		return nil, fmt.Errorf("Code attribute: truncated before attributes_count")
	}
	attrCount := binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	c.Attributes = make([]*AttributeInfo, 0, attrCount)
	for i := uint16(0); i < attrCount; i++ {
		if pos+6 > len(data) {
			return nil, fmt.Errorf("Code attribute: truncated nested attribute %d", i)
		}
		// Nested attribute names need the owning class's constant pool,
		// which parseCode does not have access to; retain by raw index
		// is not meaningful here, so nested attributes inside Code
		// (LineNumberTable, LocalVariableTable, StackMapTable, …) are kept
		// as anonymous opaque blobs. Nothing in this interpreter reads them.
		length := binary.BigEndian.Uint32(data[pos+2 : pos+6])
		pos += 6
		if pos+int(length) > len(data) {
			return nil, fmt.Errorf("Code attribute: nested attribute %d body exceeds bounds", i)
		}
		c.Attributes = append(c.Attributes, &AttributeInfo{Data: data[pos : pos+int(length)]})
		pos += int(length)
	}

	return c, nil
}

// ConstantValue returns the field's ConstantValue attribute index, i.e. the
// constant-pool index a static final field should be initialized from. ok
// is false if the field carries no ConstantValue attribute.
func (f *FieldInfo) ConstantValue() (index uint16, ok bool) {
	for _, a := range f.Attributes {
		if a.Name == "ConstantValue" && len(a.Data) >= 2 {
			return binary.BigEndian.Uint16(a.Data[0:2]), true
		}
	}
	return 0, false
}

// Exceptions returns the constant-pool indices of a method's declared
// checked-exception classes (the "Exceptions" attribute). This interpreter
// never consults it at dispatch time — structured exception handling is
// out of scope — but it is parsed for the class-file pretty printer.
func (m *MethodInfo) Exceptions() []uint16 {
	for _, a := range m.Attributes {
		if a.Name != "Exceptions" {
			continue
		}
		if len(a.Data) < 2 {
			return nil
		}
		n := binary.BigEndian.Uint16(a.Data[0:2])
		out := make([]uint16, 0, n)
		pos := 2
		for i := uint16(0); i < n && pos+2 <= len(a.Data); i++ {
			out = append(out, binary.BigEndian.Uint16(a.Data[pos:pos+2]))
			pos += 2
		}
		return out
	}
	return nil
}
