package vm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hsato/minijvm/pkg/classfile"
)

// cpBuilder and buildClassBytes mirror the classfile package's own test
// helper: they assemble raw .class bytes by hand so vm-package tests can
// exercise MethodArea/VM against real parsed classfile.ClassFile values
// without depending on any on-disk .class fixtures.
type cpBuilder struct {
	entries [][]byte
}

func newCPBuilder() *cpBuilder { return &cpBuilder{} }

func (b *cpBuilder) add(raw []byte) uint16 {
	b.entries = append(b.entries, raw)
	return uint16(len(b.entries))
}

func u16b(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func u32b(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func (b *cpBuilder) utf8(s string) uint16 {
	raw := append([]byte{classfile.TagUtf8}, u16b(uint16(len(s)))...)
	raw = append(raw, []byte(s)...)
	return b.add(raw)
}

func (b *cpBuilder) class(name string) uint16 {
	ni := b.utf8(name)
	return b.add(append([]byte{classfile.TagClass}, u16b(ni)...))
}

func (b *cpBuilder) string(s string) uint16 {
	ni := b.utf8(s)
	return b.add(append([]byte{classfile.TagString}, u16b(ni)...))
}

func (b *cpBuilder) integer(v int32) uint16 {
	return b.add(append([]byte{classfile.TagInteger}, u32b(uint32(v))...))
}

func (b *cpBuilder) nameAndType(name, desc string) uint16 {
	ni := b.utf8(name)
	di := b.utf8(desc)
	return b.add(append([]byte{classfile.TagNameAndType}, append(u16b(ni), u16b(di)...)...))
}

func (b *cpBuilder) methodref(className, name, desc string) uint16 {
	ci := b.class(className)
	nt := b.nameAndType(name, desc)
	return b.add(append([]byte{classfile.TagMethodref}, append(u16b(ci), u16b(nt)...)...))
}

func (b *cpBuilder) fieldref(className, name, desc string) uint16 {
	ci := b.class(className)
	nt := b.nameAndType(name, desc)
	return b.add(append([]byte{classfile.TagFieldref}, append(u16b(ci), u16b(nt)...)...))
}

// methodSpec describes one method for buildClassBytes.
type methodSpec struct {
	name, descriptor string
	accessFlags      uint16
	maxStack         uint16
	maxLocals        uint16
	code             []byte
}

// fieldSpec describes one field for buildClassBytes.
type fieldSpec struct {
	name, descriptor string
	accessFlags      uint16
	constantValue    []byte // if non-nil, raw ConstantValue attribute payload (an index)
}

func buildClassBytes(t *testing.T, major uint16, thisName, superName string, fields []fieldSpec, methods []methodSpec) []byte {
	t.Helper()
	b := newCPBuilder()
	thisIdx := b.class(thisName)
	var superIdx uint16
	if superName != "" {
		superIdx = b.class(superName)
	}
	codeAttrName := b.utf8("Code")
	var cvAttrName uint16
	for _, f := range fields {
		if f.constantValue != nil {
			cvAttrName = b.utf8("ConstantValue")
			break
		}
	}

	fieldNameIdx := make([]uint16, len(fields))
	fieldDescIdx := make([]uint16, len(fields))
	for i, f := range fields {
		fieldNameIdx[i] = b.utf8(f.name)
		fieldDescIdx[i] = b.utf8(f.descriptor)
	}

	methodNameIdx := make([]uint16, len(methods))
	methodDescIdx := make([]uint16, len(methods))
	for i, m := range methods {
		methodNameIdx[i] = b.utf8(m.name)
		methodDescIdx[i] = b.utf8(m.descriptor)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(0xCAFEBABE))
	buf.Write(u16b(0))
	buf.Write(u16b(major))

	count := uint16(len(b.entries) + 1)
	buf.Write(u16b(count))
	for _, e := range b.entries {
		buf.Write(e)
	}

	buf.Write(u16b(classfile.AccPublic | classfile.AccSuper))
	buf.Write(u16b(thisIdx))
	buf.Write(u16b(superIdx))
	buf.Write(u16b(0)) // interfaces

	buf.Write(u16b(uint16(len(fields))))
	for i, f := range fields {
		buf.Write(u16b(f.accessFlags))
		buf.Write(u16b(fieldNameIdx[i]))
		buf.Write(u16b(fieldDescIdx[i]))
		if f.constantValue == nil {
			buf.Write(u16b(0))
			continue
		}
		buf.Write(u16b(1))
		buf.Write(u16b(cvAttrName))
		buf.Write(u32b(uint32(len(f.constantValue))))
		buf.Write(f.constantValue)
	}

	buf.Write(u16b(uint16(len(methods))))
	for i, m := range methods {
		buf.Write(u16b(m.accessFlags))
		buf.Write(u16b(methodNameIdx[i]))
		buf.Write(u16b(methodDescIdx[i]))
		if m.code == nil {
			buf.Write(u16b(0))
			continue
		}
		buf.Write(u16b(1))
		buf.Write(u16b(codeAttrName))

		var codeAttr bytes.Buffer
		codeAttr.Write(u16b(m.maxStack))
		codeAttr.Write(u16b(m.maxLocals))
		codeAttr.Write(u32b(uint32(len(m.code))))
		codeAttr.Write(m.code)
		codeAttr.Write(u16b(0))
		codeAttr.Write(u16b(0))

		buf.Write(u32b(uint32(codeAttr.Len())))
		buf.Write(codeAttr.Bytes())
	}

	buf.Write(u16b(0)) // class attributes
	return buf.Bytes()
}

func parseBuiltClass(t *testing.T, data []byte) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing built class: %v", err)
	}
	return cf
}

// mapClassPath is an in-memory ClassPath keyed by class name, for tests that
// need MethodArea/VM to resolve one or more classes without touching disk.
type mapClassPath struct {
	classes map[string][]byte
}

func newMapClassPath() *mapClassPath { return &mapClassPath{classes: make(map[string][]byte)} }

func (m *mapClassPath) put(name string, data []byte) { m.classes[name] = data }

func (m *mapClassPath) ReadClass(name string) ([]byte, error) {
	data, ok := m.classes[name]
	if !ok {
		return nil, &ErrClassNotFound{Name: name, Where: "mapClassPath"}
	}
	return data, nil
}
