package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ErrUnsupportedVersion is returned when a class file's major version
// exceeds MaxSupportedMajor.
type ErrUnsupportedVersion struct{ Major, Minor uint16 }

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported class file version %d.%d (max supported major is %d)", e.Major, e.Minor, MaxSupportedMajor)
}

// ErrClassCircularity is returned when a class names itself as its own
// superclass.
type ErrClassCircularity struct{ ClassName string }

func (e *ErrClassCircularity) Error() string {
	return fmt.Sprintf("class circularity: %s is its own superclass", e.ClassName)
}

// ParseFile opens and decodes a .class file from disk.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a .class file from r into a class image. It validates the
// magic number, the version ceiling, and this/super circularity; all deeper
// structural verification (the classic JVM's "format checking" and "code
// checking" passes) is deferred to the runtime layer that exercises the
// field or method in question.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("malformed class: magic 0x%08X, expected 0x%08X", magic, classMagic)
	}

	if err := binary.Read(r, binary.BigEndian, &cf.Minor); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.Major); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}
	if cf.Major > MaxSupportedMajor {
		return nil, &ErrUnsupportedVersion{Major: cf.Major, Minor: cf.Minor}
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("malformed class: parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	if cf.SuperClass != 0 && cf.SuperClassName() == cf.ThisClassName() {
		return nil, &ErrClassCircularity{ClassName: cf.ThisClassName()}
	}

	var ifaceCount uint16
	if err := binary.Read(r, binary.BigEndian, &ifaceCount); err != nil {
		return nil, fmt.Errorf("reading interfaces_count: %w", err)
	}
	cf.Interfaces = make([]uint16, ifaceCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	fields, err := parseMembers(r, cf)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	cf.Fields = fields

	methods, err := parseMethodMembers(r, cf)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}
	cf.Methods = methods

	attrs, err := parseAttributes(r, cf)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}
	cf.Attributes = attrs

	return cf, nil
}

func parseMembers(r io.Reader, cf *ClassFile) ([]*FieldInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	out := make([]*FieldInfo, count)
	for i := range out {
		f := &FieldInfo{}
		if err := binary.Read(r, binary.BigEndian, &f.AccessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &f.NameIndex); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &f.DescIndex); err != nil {
			return nil, err
		}
		f.Name = cf.Utf8(f.NameIndex)
		f.Descriptor = cf.Utf8(f.DescIndex)
		attrs, err := parseAttributes(r, cf)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		f.Attributes = attrs
		out[i] = f
	}
	return out, nil
}

func parseMethodMembers(r io.Reader, cf *ClassFile) ([]*MethodInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	out := make([]*MethodInfo, count)
	for i := range out {
		m := &MethodInfo{}
		if err := binary.Read(r, binary.BigEndian, &m.AccessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &m.NameIndex); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &m.DescIndex); err != nil {
			return nil, err
		}
		m.Name = cf.Utf8(m.NameIndex)
		m.Descriptor = cf.Utf8(m.DescIndex)
		attrs, err := parseAttributes(r, cf)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		m.Attributes = attrs
		out[i] = m
	}
	return out, nil
}

// parseAttributes reads an attribute_info[] and retains each body as an
// opaque blob; typed reparsing happens lazily (see attributes.go).
func parseAttributes(r io.Reader, cf *ClassFile) ([]*AttributeInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	out := make([]*AttributeInfo, count)
	for i := range out {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, err
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		out[i] = &AttributeInfo{Name: cf.Utf8(nameIndex), Data: data}
	}
	return out, nil
}
