package classfile

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseMinimalClass(t *testing.T) {
	code := []byte{OpIconst1, OpIreturn}
	data := buildClassBytes(t, MaxSupportedMajor, "Minimal", "", []methodSpec{
		{name: "run", descriptor: "()I", accessFlags: AccPublic | AccStatic, maxStack: 1, maxLocals: 0, code: code},
	})

	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cf.ThisClassName() != "Minimal" {
		t.Errorf("this_class: got %q, want %q", cf.ThisClassName(), "Minimal")
	}
	if cf.SuperClassName() != "" {
		t.Errorf("super_class: got %q, want empty (java/lang/Object)", cf.SuperClassName())
	}
	m := cf.FindMethod("run", "()I")
	if m == nil {
		t.Fatal("method run()I not found")
	}
	ca := m.Code()
	if ca == nil {
		t.Fatal("expected Code attribute")
	}
	if !bytes.Equal(ca.Code, code) {
		t.Errorf("code bytes: got %v, want %v", ca.Code, code)
	}
	if ca.MaxStack != 1 {
		t.Errorf("max_stack: got %d, want 1", ca.MaxStack)
	}
}

func TestParseSuperclassLink(t *testing.T) {
	data := buildClassBytes(t, MaxSupportedMajor, "Child", "Parent", nil)
	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cf.SuperClassName() != "Parent" {
		t.Errorf("super_class: got %q, want %q", cf.SuperClassName(), "Parent")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	if err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	data := buildClassBytes(t, MaxSupportedMajor+1, "TooNew", "", nil)
	_, err := Parse(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for unsupported version, got nil")
	}
	var uv *ErrUnsupportedVersion
	if !errors.As(err, &uv) {
		t.Fatalf("expected ErrUnsupportedVersion, got %T: %v", err, err)
	}
}

func TestParseRejectsSelfCircularity(t *testing.T) {
	data := buildClassBytes(t, MaxSupportedMajor, "Loopy", "Loopy", nil)
	_, err := Parse(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for class circularity, got nil")
	}
	var cc *ErrClassCircularity
	if !errors.As(err, &cc) {
		t.Fatalf("expected ErrClassCircularity, got %T: %v", err, err)
	}
}

func TestParseTruncatedInput(t *testing.T) {
	data := buildClassBytes(t, MaxSupportedMajor, "Minimal", "", nil)
	_, err := Parse(bytes.NewReader(data[:len(data)-10]))
	if err == nil {
		t.Fatal("expected error for truncated input, got nil")
	}
}

func TestFindMethodMissReturnsNil(t *testing.T) {
	data := buildClassBytes(t, MaxSupportedMajor, "Minimal", "", []methodSpec{
		{name: "run", descriptor: "()I", accessFlags: AccPublic, maxStack: 1, maxLocals: 0, code: []byte{OpIconst0, OpIreturn}},
	})
	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cf.FindMethod("doesNotExist", "()V") != nil {
		t.Error("expected nil for a method that was never declared")
	}
}
