package classfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// cpBuilder assembles a constant pool one raw entry at a time (tag byte plus
// payload, exactly what parseConstantPool expects to read) and hands back
// the 1-based index of each entry, mirroring how a real class writer
// allocates constant pool slots.
type cpBuilder struct {
	entries [][]byte
}

func newCPBuilder() *cpBuilder { return &cpBuilder{} }

func (b *cpBuilder) add(raw []byte) uint16 {
	b.entries = append(b.entries, raw)
	idx := uint16(len(b.entries))
	return idx
}

func u16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func (b *cpBuilder) utf8(s string) uint16 {
	raw := append([]byte{TagUtf8}, u16(uint16(len(s)))...)
	raw = append(raw, []byte(s)...)
	return b.add(raw)
}

func (b *cpBuilder) class(name string) uint16 {
	ni := b.utf8(name)
	raw := append([]byte{TagClass}, u16(ni)...)
	return b.add(raw)
}

func (b *cpBuilder) nameAndType(name, desc string) uint16 {
	ni := b.utf8(name)
	di := b.utf8(desc)
	raw := append([]byte{TagNameAndType}, append(u16(ni), u16(di)...)...)
	return b.add(raw)
}

func (b *cpBuilder) methodref(className, name, desc string) uint16 {
	ci := b.class(className)
	nt := b.nameAndType(name, desc)
	raw := append([]byte{TagMethodref}, append(u16(ci), u16(nt)...)...)
	return b.add(raw)
}

func (b *cpBuilder) fieldref(className, name, desc string) uint16 {
	ci := b.class(className)
	nt := b.nameAndType(name, desc)
	raw := append([]byte{TagFieldref}, append(u16(ci), u16(nt)...)...)
	return b.add(raw)
}

func (b *cpBuilder) stringConst(s string) uint16 {
	ui := b.utf8(s)
	raw := append([]byte{TagString}, u16(ui)...)
	return b.add(raw)
}

func (b *cpBuilder) integerConst(v int32) uint16 {
	raw := make([]byte, 5)
	raw[0] = TagInteger
	binary.BigEndian.PutUint32(raw[1:], uint32(v))
	return b.add(raw)
}

func (b *cpBuilder) floatConst(v float32) uint16 {
	raw := make([]byte, 5)
	raw[0] = TagFloat
	binary.BigEndian.PutUint32(raw[1:], math.Float32bits(v))
	return b.add(raw)
}

func (b *cpBuilder) longConst(v int64) uint16 {
	raw := make([]byte, 9)
	raw[0] = TagLong
	binary.BigEndian.PutUint64(raw[1:], uint64(v))
	idx := b.add(raw)
	b.entries = append(b.entries, nil) // reserved slot consumed by the decoder, not re-encoded
	return idx
}

func (b *cpBuilder) doubleConst(v float64) uint16 {
	raw := make([]byte, 9)
	raw[0] = TagDouble
	binary.BigEndian.PutUint64(raw[1:], math.Float64bits(v))
	idx := b.add(raw)
	b.entries = append(b.entries, nil)
	return idx
}

// build serializes the pool's raw entries (skipping the nil placeholders
// long/double constants push for their reserved slot) and parses them back
// through parseConstantPool, passing the count separately as Parse does,
// failing the test on any error.
func (b *cpBuilder) build(t *testing.T) []ConstantPoolEntry {
	t.Helper()
	var buf bytes.Buffer
	count := uint16(len(b.entries) + 1)
	for _, e := range b.entries {
		if e == nil {
			continue
		}
		buf.Write(e)
	}
	pool, err := parseConstantPool(&buf, count)
	if err != nil {
		t.Fatalf("parseConstantPool: %v", err)
	}
	return pool
}

// methodSpec describes one method to embed in a builder-produced class file.
type methodSpec struct {
	name, descriptor string
	accessFlags      uint16
	maxStack         uint16
	maxLocals        uint16
	code             []byte // nil means no Code attribute (abstract/native)
}

// buildClassBytes assembles a complete, minimal .class byte stream: magic,
// version, constant pool, access flags, this/super, no interfaces/fields,
// and the given methods (each with a synthesized Code attribute when code is
// non-nil).
func buildClassBytes(t *testing.T, major uint16, thisName, superName string, methods []methodSpec) []byte {
	t.Helper()
	b := newCPBuilder()
	thisIdx := b.class(thisName)
	var superIdx uint16
	if superName != "" {
		superIdx = b.class(superName)
	}
	codeAttrName := b.utf8("Code")

	nameIdx := make([]uint16, len(methods))
	descIdx := make([]uint16, len(methods))
	for i, m := range methods {
		nameIdx[i] = b.utf8(m.name)
		descIdx[i] = b.utf8(m.descriptor)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(classMagic))
	binary.Write(&buf, binary.BigEndian, uint16(0))    // minor
	binary.Write(&buf, binary.BigEndian, major)         // major

	var cpBuf bytes.Buffer
	count := uint16(len(b.entries) + 1)
	cpBuf.Write(u16(count))
	for _, e := range b.entries {
		if e == nil {
			continue
		}
		cpBuf.Write(e)
	}
	buf.Write(cpBuf.Bytes())

	binary.Write(&buf, binary.BigEndian, uint16(AccPublic|AccSuper)) // access_flags
	buf.Write(u16(thisIdx))
	buf.Write(u16(superIdx))
	buf.Write(u16(0)) // interfaces_count
	buf.Write(u16(0)) // fields_count

	buf.Write(u16(uint16(len(methods)))) // methods_count
	for i, m := range methods {
		binary.Write(&buf, binary.BigEndian, m.accessFlags)
		buf.Write(u16(nameIdx[i]))
		buf.Write(u16(descIdx[i]))
		if m.code == nil {
			buf.Write(u16(0)) // attributes_count
			continue
		}
		buf.Write(u16(1)) // attributes_count: just Code
		buf.Write(u16(codeAttrName))

		var codeAttr bytes.Buffer
		codeAttr.Write(u16(m.maxStack))
		codeAttr.Write(u16(m.maxLocals))
		binary.Write(&codeAttr, binary.BigEndian, uint32(len(m.code)))
		codeAttr.Write(m.code)
		codeAttr.Write(u16(0)) // exception_table_length
		codeAttr.Write(u16(0)) // attributes_count (nested)

		buf.Write(u32(uint32(codeAttr.Len())))
		buf.Write(codeAttr.Bytes())
	}

	buf.Write(u16(0)) // class attributes_count
	return buf.Bytes()
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}
