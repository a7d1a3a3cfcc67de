package vm

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hsato/minijvm/pkg/classfile"
)

// buildClassWithClassRef builds a minimal class whose this_class is thisName
// and whose constant pool also carries a Class entry for refName at a known
// index, for new/checkcast/instanceof tests.
func buildClassWithClassRef(t *testing.T, thisName, superName, refName string) (*classfile.ClassFile, uint16) {
	t.Helper()
	b := newCPBuilder()
	thisIdx := b.class(thisName)
	refIdx := b.class(refName)
	data := assembleClassWithPool(b, thisIdx, 0)
	_ = superName
	return parseBuiltClass(t, data), refIdx
}

func setupObjectsVM(t *testing.T) (*VM, *mapClassPath) {
	t.Helper()
	cp := newMapClassPath()
	ma := NewMethodArea(cp, logrus.New())
	heap := NewHeap()
	vmi := &VM{Heap: heap, MA: ma, Native: &NativeBridge{Heap: heap}, frameDepth: 0}
	return vmi, cp
}

func TestObjectNewAllocatesWithDefaultFields(t *testing.T) {
	vmi, cp := setupObjectsVM(t)
	fooData := buildClassBytes(t, 48, "Foo", "", []fieldSpec{{name: "x", descriptor: "I", accessFlags: classfile.AccPublic}}, nil)
	cp.put("Foo", fooData)

	cls, refIdx := buildClassWithClassRef(t, "Self", "", "Foo")
	f := &Frame{Class: cls, Locals: make([]Value, 2), Stack: make([]Value, 2), Code: u16b(refIdx), PC: 0}
	if _, _, err := vmi.execObject(f, classfile.OpNew); err != nil {
		t.Fatalf("new Foo: %v", err)
	}
	ref := f.Pop()
	obj := vmi.Heap.Object(ref.Ref)
	if obj == nil || obj.ClassName != "Foo" {
		t.Fatalf("new Foo: got %v", obj)
	}
	if obj.Fields["x"].Int != 0 {
		t.Errorf("new Foo: field x should default to 0, got %+v", obj.Fields["x"])
	}
}

func TestObjectInstanceofAndCheckcast(t *testing.T) {
	vmi, cp := setupObjectsVM(t)
	baseData := buildClassBytes(t, 48, "Animal", "", nil, nil)
	subData := buildClassBytes(t, 48, "Dog", "Animal", nil, nil)
	cp.put("Animal", baseData)
	cp.put("Dog", subData)

	obj := &JObject{ClassName: "Dog", Fields: map[string]Value{}}
	ref := vmi.Heap.Alloc(obj)

	cls, refIdx := buildClassWithClassRef(t, "Self", "", "Animal")

	fInstanceof := &Frame{Class: cls, Locals: make([]Value, 2), Stack: make([]Value, 2), Code: u16b(refIdx), PC: 0}
	fInstanceof.Push(RefValue(ref))
	if _, _, err := vmi.execObject(fInstanceof, classfile.OpInstanceof); err != nil {
		t.Fatalf("instanceof: %v", err)
	}
	if got := fInstanceof.Pop().Int; got != 1 {
		t.Errorf("Dog instanceof Animal: got %d, want 1", got)
	}

	fCheckcast := &Frame{Class: cls, Locals: make([]Value, 2), Stack: make([]Value, 2), Code: u16b(refIdx), PC: 0}
	fCheckcast.Push(RefValue(ref))
	if _, _, err := vmi.execObject(fCheckcast, classfile.OpCheckcast); err != nil {
		t.Fatalf("checkcast Dog->Animal should succeed: %v", err)
	}
}

func TestObjectCheckcastFailureRaisesClassCastException(t *testing.T) {
	vmi, cp := setupObjectsVM(t)
	cp.put("Animal", buildClassBytes(t, 48, "Animal", "", nil, nil))
	cp.put("Rock", buildClassBytes(t, 48, "Rock", "", nil, nil))

	obj := &JObject{ClassName: "Rock", Fields: map[string]Value{}}
	ref := vmi.Heap.Alloc(obj)

	cls, refIdx := buildClassWithClassRef(t, "Self", "", "Animal")
	f := &Frame{Class: cls, Locals: make([]Value, 2), Stack: make([]Value, 2), Code: u16b(refIdx), PC: 0}
	f.Push(RefValue(ref))
	_, _, err := vmi.execObject(f, classfile.OpCheckcast)
	fatal, ok := err.(*FatalError)
	if !ok || fatal.Kind != "ClassCastException" {
		t.Fatalf("expected ClassCastException, got %v", err)
	}
}

func TestObjectAthrowCarriesClassName(t *testing.T) {
	vmi, _ := setupObjectsVM(t)
	obj := &JObject{ClassName: "java/lang/RuntimeException", Fields: map[string]Value{}}
	ref := vmi.Heap.Alloc(obj)
	f := newTestFrame(2, 2, nil)
	f.Push(RefValue(ref))
	_, _, err := vmi.execObject(f, classfile.OpAthrow)
	fatal, ok := err.(*FatalError)
	if !ok || fatal.Kind != "java/lang/RuntimeException" {
		t.Fatalf("expected thrown exception to carry its class name, got %v", err)
	}
}

func TestObjectAthrowOnNullRaisesNPE(t *testing.T) {
	vmi, _ := setupObjectsVM(t)
	f := newTestFrame(2, 2, nil)
	f.Push(NullValue())
	_, _, err := vmi.execObject(f, classfile.OpAthrow)
	fatal, ok := err.(*FatalError)
	if !ok || fatal.Kind != "NullPointerException" {
		t.Fatalf("expected NullPointerException, got %v", err)
	}
}
