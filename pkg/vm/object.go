package vm

// ArrayKind identifies the element type of a JArray.
type ArrayKind uint8

const (
	ArrayBoolean ArrayKind = iota
	ArrayByte
	ArrayChar
	ArrayShort
	ArrayInt
	ArrayFloat
	ArrayLong
	ArrayDouble
	ArrayRef
)

// newarray type codes, per the classic JVM spec's atype operand.
const (
	ATypeBoolean = 4
	ATypeChar    = 5
	ATypeFloat   = 6
	ATypeDouble  = 7
	ATypeByte    = 8
	ATypeShort   = 9
	ATypeInt     = 10
	ATypeLong    = 11
)

func arrayKindFromATypeCode(code int32) ArrayKind {
	switch code {
	case ATypeBoolean:
		return ArrayBoolean
	case ATypeChar:
		return ArrayChar
	case ATypeFloat:
		return ArrayFloat
	case ATypeDouble:
		return ArrayDouble
	case ATypeByte:
		return ArrayByte
	case ATypeShort:
		return ArrayShort
	case ATypeInt:
		return ArrayInt
	case ATypeLong:
		return ArrayLong
	default:
		return ArrayInt
	}
}

// JObject is a heap-allocated instance. It holds a non-owning back-pointer
// to its class by name — lookup goes back through the MethodArea, which
// exclusively owns the RuntimeClass (and, via RuntimeClass.Instances, the
// instance itself): the method area is the arena, class names and instance
// slices are the indices, so the class/instance graph never needs raw
// pointers pointing in both directions.
type JObject struct {
	ClassName string
	Fields    map[string]Value
}

// JArray is a heap-allocated array. Elements are stored uniformly as Value
// regardless of element width; narrower kinds (boolean/byte/char/short) are
// masked to their declared width on store and widened on load by the
// opcode handlers, not by JArray itself.
type JArray struct {
	ElementKind ArrayKind
	Elements    []Value
}

// Length returns the array's length.
func (a *JArray) Length() int { return len(a.Elements) }

// defaultValueForKind returns the zero value a field or array slot of the
// given ArrayKind is initialized to.
func defaultValueForKind(k ArrayKind) Value {
	switch k {
	case ArrayFloat:
		return FloatValue(0)
	case ArrayDouble:
		return DoubleValue(0)
	case ArrayLong:
		return LongValue(0)
	case ArrayRef:
		return NullValue()
	default:
		return IntValue(0)
	}
}

// defaultValueForDescriptor returns the zero value a field of the given
// field descriptor is initialized to during class preparation.
func defaultValueForDescriptor(descriptor string) Value {
	if len(descriptor) == 0 {
		return NullValue()
	}
	switch descriptor[0] {
	case 'L', '[':
		return NullValue()
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'J':
		return LongValue(0)
	default:
		return IntValue(0)
	}
}

// descriptorWidth returns the storage width in bytes a field/array
// descriptor occupies: 1 (B, Z), 2 (C, S), 4 (I, F, reference), 8 (J, D).
// C is 2 bytes, as in the JVM spec. The width does not affect operand-stack
// accounting.
func descriptorWidth(descriptor string) int {
	if len(descriptor) == 0 {
		return 4
	}
	switch descriptor[0] {
	case 'B', 'Z':
		return 1
	case 'C', 'S':
		return 2
	case 'J', 'D':
		return 8
	default:
		return 4
	}
}
