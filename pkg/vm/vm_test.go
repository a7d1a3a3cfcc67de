package vm

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hsato/minijvm/pkg/classfile"
)

func TestCountParams(t *testing.T) {
	cases := []struct {
		descriptor string
		want       int
	}{
		{"()V", 0},
		{"(I)V", 1},
		{"(IJ)V", 2},
		{"(Ljava/lang/String;I)V", 2},
		{"([I[Ljava/lang/String;)V", 2},
		{"(JD)I", 2},
	}
	for _, c := range cases {
		if got := countParams(c.descriptor); got != c.want {
			t.Errorf("countParams(%q): got %d, want %d", c.descriptor, got, c.want)
		}
	}
}

func TestParamIsCategory2(t *testing.T) {
	d := "(IJLjava/lang/String;D[J)V"
	// params: 0=I, 1=J, 2=Ljava/lang/String;, 3=D, 4=[J
	want := []bool{false, true, false, true, false}
	for i, w := range want {
		if got := paramIsCategory2(d, i); got != w {
			t.Errorf("paramIsCategory2(%q, %d): got %v, want %v", d, i, got, w)
		}
	}
}

func TestIsVoidReturnAndReturnKind(t *testing.T) {
	if !isVoidReturn("(I)V") {
		t.Error("(I)V should be void")
	}
	if isVoidReturn("(I)I") {
		t.Error("(I)I should not be void")
	}
	if got := returnKind("(I)I"); got != 'I' {
		t.Errorf("returnKind((I)I): got %c, want I", got)
	}
	if got := returnKind("()Ljava/lang/String;"); got != 'L' {
		t.Errorf("returnKind returning a reference: got %c, want L", got)
	}
}

func TestPopArgsOrder(t *testing.T) {
	f := newTestFrame(4, 4, nil)
	f.Push(IntValue(1))
	f.Push(IntValue(2))
	f.Push(IntValue(3))
	args := popArgs(f, "(III)V")
	want := []int32{1, 2, 3}
	for i, w := range want {
		if args[i].Int != w {
			t.Errorf("popArgs[%d]: got %d, want %d", i, args[i].Int, w)
		}
	}
}

func TestBindArgsCategory2OccupiesTwoSlots(t *testing.T) {
	f := newTestFrame(6, 4, nil)
	bindArgs(f, []Value{LongValue(5), IntValue(9)})
	if got := f.GetLocal(0).Long; got != 5 {
		t.Errorf("local 0: got %d, want 5", got)
	}
	if got := f.GetLocal(2).Int; got != 9 {
		t.Errorf("local 2 (after a 2-slot long): got %d, want 9", got)
	}
}

func TestExecuteMethodStaticAddEndToEnd(t *testing.T) {
	// int add(int a, int b) { return a + b; }
	code := []byte{
		classfile.OpIload0,
		classfile.OpIload1,
		classfile.OpIadd,
		classfile.OpIreturn,
	}
	data := buildClassBytes(t, 48, "Calc", "", nil, []methodSpec{{
		name: "add", descriptor: "(II)I", accessFlags: classfile.AccPublic | classfile.AccStatic,
		maxStack: 2, maxLocals: 2, code: code,
	}})
	cp := newMapClassPath()
	cp.put("Calc", data)

	vmi := &VM{MA: NewMethodArea(cp, logrus.New()), Heap: NewHeap(), Native: &NativeBridge{Heap: NewHeap()}}
	rc, err := vmi.MA.Load("Calc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	method := rc.Image.FindMethod("add", "(II)I")
	if method == nil {
		t.Fatal("FindMethod(add): not found")
	}
	ret, err := vmi.executeMethod(rc, method, []Value{IntValue(3), IntValue(4)})
	if err != nil {
		t.Fatalf("executeMethod: %v", err)
	}
	if ret.Int != 7 {
		t.Errorf("add(3,4): got %d, want 7", ret.Int)
	}
}

func TestExecuteMethodStackOverflow(t *testing.T) {
	// A static method that calls itself with invokestatic recursion is
	// harder to hand-assemble; exercise the depth guard directly instead.
	vmi := &VM{frameDepth: maxFrameDepth}
	code := []byte{classfile.OpReturn}
	data := buildClassBytes(t, 48, "Rec", "", nil, []methodSpec{{
		name: "m", descriptor: "()V", accessFlags: classfile.AccPublic | classfile.AccStatic,
		maxStack: 0, maxLocals: 0, code: code,
	}})
	cf := parseBuiltClass(t, data)
	rc := &RuntimeClass{Image: cf, Name: "Rec", StaticFields: map[string]*Value{}}
	method := cf.FindMethod("m", "()V")
	_, err := vmi.executeMethod(rc, method, nil)
	if err == nil {
		t.Fatal("expected a stack-depth error")
	}
}
