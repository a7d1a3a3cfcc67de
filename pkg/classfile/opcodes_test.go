package classfile

import "testing"

func TestInstructionSizeFixedForms(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int
	}{
		{"nop", []byte{OpNop}, 1},
		{"bipush", []byte{OpBipush, 5}, 2},
		{"sipush", []byte{OpSipush, 0, 5}, 3},
		{"iinc", []byte{OpIinc, 1, 2}, 3},
		{"invokeinterface", []byte{OpInvokeinterface, 0, 1, 2, 0}, 5},
		{"goto_w", []byte{OpGotoW, 0, 0, 0, 10}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstructionSize(tt.code, 0); got != tt.want {
				t.Errorf("InstructionSize(%s): got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestInstructionSizeWide(t *testing.T) {
	// wide iload <u16 index>
	code := []byte{OpWide, OpIload, 0, 1}
	if got := InstructionSize(code, 0); got != 4 {
		t.Errorf("wide iload: got %d, want 4", got)
	}
	// wide iinc <u16 index> <u16 const>
	code = []byte{OpWide, OpIinc, 0, 1, 0, 2}
	if got := InstructionSize(code, 0); got != 6 {
		t.Errorf("wide iinc: got %d, want 6", got)
	}
}

func TestInstructionSizeTableswitchAlignsToCodeArray(t *testing.T) {
	// tableswitch at pc=1 (preceded by one filler byte) needs 2 bytes of
	// padding so the following int32s start on a 4-byte boundary relative
	// to the start of the code array: (pc+1)=2, pad=(4-2%4)%4=2.
	low, high := int32(0), int32(1) // two offsets
	code := make([]byte, 0)
	code = append(code, 0x00)            // filler at pc=0
	code = append(code, OpTableswitch)   // pc=1
	code = append(code, 0, 0)            // 2 bytes padding
	code = append(code, int32Bytes(0)...)   // default
	code = append(code, int32Bytes(low)...)
	code = append(code, int32Bytes(high)...)
	code = append(code, int32Bytes(100)...) // offset for index 0
	code = append(code, int32Bytes(200)...) // offset for index 1

	got := InstructionSize(code, 1)
	want := 1 + 2 + 12 + 4*2 // opcode + pad + (default,low,high) + 2 offsets
	if got != want {
		t.Errorf("tableswitch size: got %d, want %d", got, want)
	}
}

func TestInstructionSizeLookupswitchAlignsToCodeArray(t *testing.T) {
	code := make([]byte, 0)
	code = append(code, 0x00, 0x00, 0x00) // filler, pc=3
	code = append(code, OpLookupswitch)   // pc=3... recompute below
	// lookupswitch opcode at pc=3: (pc+1)=4, pad=(4-4%4)%4=0
	code = append(code, int32Bytes(0)...)  // default
	code = append(code, int32Bytes(1)...)  // npairs=1
	code = append(code, int32Bytes(7)...)  // match
	code = append(code, int32Bytes(42)...) // offset

	got := InstructionSize(code, 3)
	want := 1 + 0 + 8 + 8*1
	if got != want {
		t.Errorf("lookupswitch size: got %d, want %d", got, want)
	}
}

func int32Bytes(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}
