package vm

import "testing"

func TestHeapNullIndexIsReserved(t *testing.T) {
	h := NewHeap()
	if h.Get(0) != nil {
		t.Error("index 0 must always dereference to nil (null)")
	}
}

func TestHeapAllocAndGet(t *testing.T) {
	h := NewHeap()
	obj := &JObject{ClassName: "Foo", Fields: map[string]Value{}}
	ref := h.Alloc(obj)
	if ref == 0 {
		t.Fatal("Alloc must never return the null index")
	}
	got := h.Object(ref)
	if got != obj {
		t.Errorf("Object(%d): got %v, want %v", ref, got, obj)
	}
}

func TestHeapArrayTypeMismatchReturnsNil(t *testing.T) {
	h := NewHeap()
	ref := h.AllocString("not an array")
	if h.Array(ref) != nil {
		t.Error("Array() on a string handle should return nil")
	}
	if h.Object(ref) != nil {
		t.Error("Object() on a string handle should return nil")
	}
}

func TestHeapStringRoundTrip(t *testing.T) {
	h := NewHeap()
	ref := h.AllocString("hello")
	s, ok := h.String(ref)
	if !ok || s != "hello" {
		t.Errorf("String(%d): got (%q, %v), want (hello, true)", ref, s, ok)
	}
}

func TestHeapGetOutOfBoundsReturnsNil(t *testing.T) {
	h := NewHeap()
	if h.Get(999) != nil {
		t.Error("Get on an out-of-bounds index should return nil, not panic")
	}
	if h.Get(-1) != nil {
		t.Error("Get on a negative index should return nil")
	}
}

func TestHeapArrayRoundTrip(t *testing.T) {
	h := NewHeap()
	arr := &JArray{ElementKind: ArrayInt, Elements: []Value{IntValue(1), IntValue(2)}}
	ref := h.Alloc(arr)
	got := h.Array(ref)
	if got.Length() != 2 {
		t.Errorf("Length(): got %d, want 2", got.Length())
	}
}
