package vm

// Heap is the arena backing every reference value: objects, arrays, interned
// strings, and native-bridge handles (PrintStream, StringBuffer, …) all live
// here, addressed by a 1-based int32 index. Index 0 is the null reference.
// Centralizing allocation this way means a Value can carry a reference as a
// plain int32 (fitting the 32-bit operand-stack slot model) instead of an
// interface{} pointer, and avoids the object/class ownership cycle noted in
// spec.md §9: objects never hold a Go pointer back to their class, only a
// name the method area looks up.
type Heap struct {
	entries []interface{}
}

// NewHeap returns an empty heap. Index 0 is reserved so that the zero Value
// (Ref: 0) always denotes null.
func NewHeap() *Heap {
	return &Heap{entries: make([]interface{}, 1)}
}

// Alloc stores v and returns its reference index.
func (h *Heap) Alloc(v interface{}) int32 {
	h.entries = append(h.entries, v)
	return int32(len(h.entries) - 1)
}

// Get dereferences idx. It returns nil for the null reference (idx == 0).
func (h *Heap) Get(idx int32) interface{} {
	if idx <= 0 || int(idx) >= len(h.entries) {
		return nil
	}
	return h.entries[idx]
}

// Object dereferences idx as a *JObject, or nil if idx is null or not an
// object.
func (h *Heap) Object(idx int32) *JObject {
	o, _ := h.Get(idx).(*JObject)
	return o
}

// Array dereferences idx as a *JArray, or nil if idx is null or not an
// array.
func (h *Heap) Array(idx int32) *JArray {
	a, _ := h.Get(idx).(*JArray)
	return a
}

// String dereferences idx as a Go string handle (the representation used
// for interned/constant-pool strings and StringBuffer.toString results), or
// "" with ok=false if idx is not a string handle.
func (h *Heap) String(idx int32) (string, bool) {
	s, ok := h.Get(idx).(string)
	return s, ok
}

// AllocString interns s as a new string handle and returns its reference.
func (h *Heap) AllocString(s string) int32 {
	return h.Alloc(s)
}
