package vm

import (
	"fmt"
	"math"

	"github.com/hsato/minijvm/pkg/classfile"
)

func isArithOp(op byte) bool {
	switch op {
	case classfile.OpIadd, classfile.OpLadd, classfile.OpFadd, classfile.OpDadd,
		classfile.OpIsub, classfile.OpLsub, classfile.OpFsub, classfile.OpDsub,
		classfile.OpImul, classfile.OpLmul, classfile.OpFmul, classfile.OpDmul,
		classfile.OpIdiv, classfile.OpLdiv, classfile.OpFdiv, classfile.OpDdiv,
		classfile.OpIrem, classfile.OpLrem, classfile.OpFrem, classfile.OpDrem,
		classfile.OpIneg, classfile.OpLneg, classfile.OpFneg, classfile.OpDneg,
		classfile.OpIshl, classfile.OpLshl, classfile.OpIshr, classfile.OpLshr,
		classfile.OpIushr, classfile.OpLushr,
		classfile.OpIand, classfile.OpLand, classfile.OpIor, classfile.OpLor,
		classfile.OpIxor, classfile.OpLxor, classfile.OpIinc,
		classfile.OpI2l, classfile.OpI2f, classfile.OpI2d,
		classfile.OpL2i, classfile.OpL2f, classfile.OpL2d,
		classfile.OpF2i, classfile.OpF2l, classfile.OpF2d,
		classfile.OpD2i, classfile.OpD2l, classfile.OpD2f,
		classfile.OpI2b, classfile.OpI2c, classfile.OpI2s,
		classfile.OpLcmp, classfile.OpFcmpl, classfile.OpFcmpg, classfile.OpDcmpl, classfile.OpDcmpg:
		return true
	}
	return false
}

// execArith implements integer/long/float/double arithmetic, bitwise and
// shift operators, the iinc immediate-increment, all widening/narrowing
// conversions, and the long/float/double three-way compare opcodes.
func (vm *VM) execArith(frame *Frame, op byte) (Value, bool, error) {
	switch op {
	case classfile.OpIadd:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int + b.Int))
	case classfile.OpLadd:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long + b.Long))
	case classfile.OpFadd:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(a.Float + b.Float))
	case classfile.OpDadd:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(a.Double + b.Double))

	case classfile.OpIsub:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int - b.Int))
	case classfile.OpLsub:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long - b.Long))
	case classfile.OpFsub:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(a.Float - b.Float))
	case classfile.OpDsub:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(a.Double - b.Double))

	case classfile.OpImul:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int * b.Int))
	case classfile.OpLmul:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long * b.Long))
	case classfile.OpFmul:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(a.Float * b.Float))
	case classfile.OpDmul:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(a.Double * b.Double))

	case classfile.OpIdiv:
		b, a := frame.Pop(), frame.Pop()
		if b.Int == 0 {
			return Value{}, false, arithmeticException(frame, "/ by zero")
		}
		frame.Push(IntValue(a.Int / b.Int))
	case classfile.OpLdiv:
		b, a := frame.Pop(), frame.Pop()
		if b.Long == 0 {
			return Value{}, false, arithmeticException(frame, "/ by zero")
		}
		frame.Push(LongValue(a.Long / b.Long))
	case classfile.OpFdiv:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(a.Float / b.Float))
	case classfile.OpDdiv:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(a.Double / b.Double))

	case classfile.OpIrem:
		b, a := frame.Pop(), frame.Pop()
		if b.Int == 0 {
			return Value{}, false, arithmeticException(frame, "/ by zero")
		}
		frame.Push(IntValue(a.Int % b.Int))
	case classfile.OpLrem:
		b, a := frame.Pop(), frame.Pop()
		if b.Long == 0 {
			return Value{}, false, arithmeticException(frame, "/ by zero")
		}
		frame.Push(LongValue(a.Long % b.Long))
	case classfile.OpFrem:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(float32(math.Mod(float64(a.Float), float64(b.Float)))))
	case classfile.OpDrem:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(math.Mod(a.Double, b.Double)))

	case classfile.OpIneg:
		a := frame.Pop()
		frame.Push(IntValue(-a.Int))
	case classfile.OpLneg:
		a := frame.Pop()
		frame.Push(LongValue(-a.Long))
	case classfile.OpFneg:
		a := frame.Pop()
		frame.Push(FloatValue(-a.Float))
	case classfile.OpDneg:
		a := frame.Pop()
		frame.Push(DoubleValue(-a.Double))

	case classfile.OpIshl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int << (uint32(b.Int) & 0x1F)))
	case classfile.OpLshl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long << (uint32(b.Int) & 0x3F)))
	case classfile.OpIshr:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int >> (uint32(b.Int) & 0x1F)))
	case classfile.OpLshr:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long >> (uint32(b.Int) & 0x3F)))
	case classfile.OpIushr:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(int32(uint32(a.Int) >> (uint32(b.Int) & 0x1F))))
	case classfile.OpLushr:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(int64(uint64(a.Long) >> (uint32(b.Int) & 0x3F))))

	case classfile.OpIand:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int & b.Int))
	case classfile.OpLand:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long & b.Long))
	case classfile.OpIor:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int | b.Int))
	case classfile.OpLor:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long | b.Long))
	case classfile.OpIxor:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(a.Int ^ b.Int))
	case classfile.OpLxor:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(LongValue(a.Long ^ b.Long))

	case classfile.OpIinc:
		index := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		local := frame.GetLocal(index)
		frame.SetLocal(index, IntValue(local.Int+delta))

	case classfile.OpI2l:
		frame.Push(LongValue(int64(frame.Pop().Int)))
	case classfile.OpI2f:
		frame.Push(FloatValue(float32(frame.Pop().Int)))
	case classfile.OpI2d:
		frame.Push(DoubleValue(float64(frame.Pop().Int)))
	case classfile.OpL2i:
		frame.Push(IntValue(int32(frame.Pop().Long)))
	case classfile.OpL2f:
		frame.Push(FloatValue(float32(frame.Pop().Long)))
	case classfile.OpL2d:
		frame.Push(DoubleValue(float64(frame.Pop().Long)))
	case classfile.OpF2i:
		frame.Push(IntValue(floatToInt32(frame.Pop().Float)))
	case classfile.OpF2l:
		frame.Push(LongValue(floatToInt64(frame.Pop().Float)))
	case classfile.OpF2d:
		frame.Push(DoubleValue(float64(frame.Pop().Float)))
	case classfile.OpD2i:
		frame.Push(IntValue(doubleToInt32(frame.Pop().Double)))
	case classfile.OpD2l:
		frame.Push(LongValue(doubleToInt64(frame.Pop().Double)))
	case classfile.OpD2f:
		frame.Push(FloatValue(float32(frame.Pop().Double)))
	case classfile.OpI2b:
		frame.Push(IntValue(int32(int8(frame.Pop().Int))))
	case classfile.OpI2c:
		frame.Push(IntValue(int32(uint16(frame.Pop().Int))))
	case classfile.OpI2s:
		frame.Push(IntValue(int32(int16(frame.Pop().Int))))

	case classfile.OpLcmp:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(threeWay(a.Long < b.Long, a.Long > b.Long)))
	case classfile.OpFcmpl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(floatCompare(float64(a.Float), float64(b.Float), -1)))
	case classfile.OpFcmpg:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(floatCompare(float64(a.Float), float64(b.Float), 1)))
	case classfile.OpDcmpl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(floatCompare(a.Double, b.Double, -1)))
	case classfile.OpDcmpg:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(IntValue(floatCompare(a.Double, b.Double, 1)))

	default:
		return Value{}, false, fmt.Errorf("execArith: unhandled opcode 0x%02X", op)
	}
	return Value{}, false, nil
}

func threeWay(less, greater bool) int32 {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

// floatCompare implements the fcmpl/fcmpg and dcmpl/dcmpg contract: ordered
// operands push {-1,0,+1} as a<=>b; unordered (either NaN) pushes
// unorderedResult, -1 for the "l" forms and +1 for the "g" forms.
func floatCompare(a, b float64, unorderedResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return unorderedResult
	}
	return threeWay(a < b, a > b)
}

// floatToInt32/floatToInt64/doubleToInt32/doubleToInt64 implement the JVM's
// f2i/f2l/d2i/d2l saturating-NaN-to-zero conversion: NaN converts to 0,
// out-of-range values saturate to the target type's min/max rather than
// wrapping, per the JVM spec (distinct from Go's native float->int
// conversion, which is undefined for out-of-range values).
func floatToInt32(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func floatToInt64(f float32) int64 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func doubleToInt32(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func doubleToInt64(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}
