package vm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/sirupsen/logrus"
)

// NativeBridge intercepts calls into a small, recognized slice of
// java.lang/java.io/java.util before any class load of that name is even
// attempted — spec.md's "native bridge" component. Every intercepted type is
// represented as a plain Go value stored in the heap and addressed the same
// way a JObject is: by int32 reference, never by a Go pointer escaping into
// a Value directly.
type NativeBridge struct {
	Out  io.Writer
	Heap *Heap
	Log  *logrus.Logger
}

// printStream is the heap representation of a java.io.PrintStream (in
// practice, always System.out — this interpreter never constructs another).
type printStream struct{}

// stringBuffer is the heap representation of java.lang.StringBuffer and
// java.lang.StringBuilder, which this bridge treats identically: both are
// an unsynchronized mutable character sequence as far as a single-threaded
// interpreter is concerned.
type stringBuffer struct {
	buf []rune
}

// nativeClasses lists the class names the bridge recognizes. new,
// invoke*, getstatic and putstatic all consult this before ever asking the
// method area to load a class by that name.
var nativeClasses = map[string]bool{
	"java/lang/System":        true,
	"java/io/PrintStream":     true,
	"java/lang/StringBuffer":  true,
	"java/lang/StringBuilder": true,
	"java/lang/Object":        true,
	"java/lang/Math":          true,
	"java/lang/Float":         true,
	"java/lang/Double":        true,
	"java/lang/Class":         true,
	"java/lang/String":        true,
	"java/lang/Integer":       true,
	"java/util/HashMap":       true,
}

// nativeInteger is the heap representation of a boxed java.lang.Integer,
// adapted from the teacher's pkg/native.NativeInteger boxing helper.
type nativeInteger struct {
	value int32
}

// nativeHashMap is the heap representation of java.util.HashMap, adapted
// from the teacher's pkg/native.NativeHashMap. Keys are normalized to a
// comparable Go value — a boxed Integer's int32 payload, an interned
// String's text, or the raw reference for anything else — exactly the
// normalization the teacher's Get/Put already perform for NativeInteger
// keys, generalized to String keys too.
type nativeHashMap struct {
	data map[interface{}]Value
}

// IsNative reports whether className is handled by the bridge rather than
// loaded from the classpath.
func (nb *NativeBridge) IsNative(className string) bool {
	return nativeClasses[className]
}

// New constructs the native heap representation of className, for the
// intercepted types the interpreter's `new` instruction can target.
func (nb *NativeBridge) New(className string) (Value, bool) {
	switch className {
	case "java/lang/StringBuffer", "java/lang/StringBuilder":
		ref := nb.Heap.Alloc(&stringBuffer{})
		return RefValue(ref), true
	case "java/util/HashMap":
		ref := nb.Heap.Alloc(&nativeHashMap{data: make(map[interface{}]Value)})
		return RefValue(ref), true
	}
	return Value{}, false
}

// hashMapKey normalizes a Value into a Go-comparable map key: a boxed
// Integer's int32 payload, an interned String's text, or the bare
// reference for anything else (object identity).
func (nb *NativeBridge) hashMapKey(v Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch o := nb.Heap.Get(v.Ref).(type) {
	case *nativeInteger:
		return o.value
	case string:
		return o
	default:
		return v.Ref
	}
}

// GetStaticField resolves a static field read against a native class —
// currently only java/lang/System.out, materialized lazily as a PrintStream
// handle the first (and every) time it's read.
func (nb *NativeBridge) GetStaticField(className, fieldName string) (Value, bool) {
	if className == "java/lang/System" && fieldName == "out" {
		ref := nb.Heap.Alloc(&printStream{})
		return RefValue(ref), true
	}
	return Value{}, false
}

// InvokeStatic dispatches a static call against a native class: Math,
// Float/Double bit conversion, System.arraycopy, Class.desiredAssertionStatus.
func (nb *NativeBridge) InvokeStatic(f *Frame, className, methodName, descriptor string, args []Value) (Value, bool, error) {
	switch className {
	case "java/lang/Math":
		switch methodName {
		case "sqrt":
			return DoubleValue(math.Sqrt(args[0].Double)), true, nil
		case "pow":
			return DoubleValue(math.Pow(args[0].Double, args[1].Double)), true, nil
		case "abs":
			switch descriptor {
			case "(I)I":
				v := args[0].Int
				if v < 0 {
					v = -v
				}
				return IntValue(v), true, nil
			case "(D)D":
				return DoubleValue(math.Abs(args[0].Double)), true, nil
			}
		case "max":
			if descriptor == "(II)I" {
				if args[0].Int > args[1].Int {
					return args[0], true, nil
				}
				return args[1], true, nil
			}
		case "min":
			if descriptor == "(II)I" {
				if args[0].Int < args[1].Int {
					return args[0], true, nil
				}
				return args[1], true, nil
			}
		}
	case "java/lang/Float":
		switch methodName {
		case "floatToIntBits", "floatToRawIntBits":
			return IntValue(int32(math.Float32bits(args[0].Float))), true, nil
		case "intBitsToFloat":
			return FloatValue(math.Float32frombits(uint32(args[0].Int))), true, nil
		}
	case "java/lang/Double":
		switch methodName {
		case "doubleToLongBits", "doubleToRawLongBits":
			return LongValue(int64(math.Float64bits(args[0].Double))), true, nil
		case "longBitsToDouble":
			return DoubleValue(math.Float64frombits(uint64(args[0].Long))), true, nil
		}
	case "java/lang/System":
		switch methodName {
		case "arraycopy":
			return nb.arraycopy(f, args)
		}
	case "java/lang/Class":
		if methodName == "desiredAssertionStatus" {
			return IntValue(0), true, nil
		}
	case "java/lang/Integer":
		switch methodName {
		case "valueOf":
			if descriptor == "(I)Ljava/lang/Integer;" {
				ref := nb.Heap.Alloc(&nativeInteger{value: args[0].Int})
				return RefValue(ref), true, nil
			}
		case "parseInt":
			if descriptor == "(Ljava/lang/String;)I" {
				s, _ := nb.Heap.String(args[0].Ref)
				n, err := strconv.ParseInt(s, 10, 32)
				if err != nil {
					return Value{}, true, fmt.Errorf("Integer.parseInt: %w", err)
				}
				return IntValue(int32(n)), true, nil
			}
		case "toString":
			if descriptor == "(I)Ljava/lang/String;" {
				return RefValue(nb.Heap.AllocString(strconv.FormatInt(int64(args[0].Int), 10))), true, nil
			}
		}
	}
	return Value{}, false, nil
}

func (nb *NativeBridge) arraycopy(f *Frame, args []Value) (Value, bool, error) {
	// (Object src, int srcPos, Object dst, int dstPos, int length)V
	src := nb.Heap.Array(args[0].Ref)
	dst := nb.Heap.Array(args[2].Ref)
	if src == nil || dst == nil {
		return Value{}, true, npe(f, "System.arraycopy: null array")
	}
	srcPos, dstPos, length := args[1].Int, args[3].Int, args[4].Int
	if srcPos < 0 || dstPos < 0 || length < 0 ||
		int(srcPos+length) > len(src.Elements) || int(dstPos+length) > len(dst.Elements) {
		return Value{}, true, arrayIndexOOB(f, int(srcPos), len(src.Elements))
	}
	copy(dst.Elements[dstPos:dstPos+length], src.Elements[srcPos:srcPos+length])
	return Value{}, true, nil
}

// InvokeInstance dispatches an instance call whose receiver is a native
// heap value (printStream, stringBuffer) or a plain JObject/string that
// java/lang/Object's universal methods apply to.
func (nb *NativeBridge) InvokeInstance(f *Frame, receiverRef int32, className, methodName, descriptor string, args []Value) (Value, bool, error) {
	recv := nb.Heap.Get(receiverRef)

	if ps, ok := recv.(*printStream); ok {
		return nb.invokePrintStream(ps, methodName, descriptor, args)
	}
	if sb, ok := recv.(*stringBuffer); ok {
		return nb.invokeStringBuffer(receiverRef, sb, methodName, descriptor, args)
	}
	if s, ok := recv.(string); ok {
		if v, handled, err := nb.invokeString(receiverRef, s, methodName, descriptor, args); handled {
			return v, handled, err
		}
	}
	if ni, ok := recv.(*nativeInteger); ok {
		if v, handled, err := nb.invokeInteger(receiverRef, ni, methodName, descriptor, args); handled {
			return v, handled, err
		}
	}
	if hm, ok := recv.(*nativeHashMap); ok {
		if v, handled, err := nb.invokeHashMap(hm, methodName, descriptor, args); handled {
			return v, handled, err
		}
	}

	switch methodName {
	case "hashCode":
		if descriptor == "()I" {
			return IntValue(receiverRef), true, nil
		}
	case "getClass":
		if descriptor == "()Ljava/lang/Class;" {
			cls := map[string]Value{"name": RefValue(nb.Heap.AllocString(className))}
			obj := &JObject{ClassName: "java/lang/Class", Fields: cls}
			return RefValue(nb.Heap.Alloc(obj)), true, nil
		}
	case "equals":
		if descriptor == "(Ljava/lang/Object;)Z" {
			if args[0].Ref == receiverRef {
				return IntValue(1), true, nil
			}
			return IntValue(0), true, nil
		}
	case "toString":
		if descriptor == "()Ljava/lang/String;" {
			return RefValue(nb.Heap.AllocString(className)), true, nil
		}
	}
	return Value{}, false, nil
}

func (nb *NativeBridge) invokePrintStream(ps *printStream, methodName, descriptor string, args []Value) (Value, bool, error) {
	if methodName != "println" && methodName != "print" {
		return Value{}, false, nil
	}
	nl := ""
	if methodName == "println" {
		nl = "\n"
	}
	switch descriptor {
	case "()V":
		fmt.Fprint(nb.Out, nl)
	case "(I)V":
		fmt.Fprintf(nb.Out, "%d%s", args[0].Int, nl)
	case "(J)V":
		fmt.Fprintf(nb.Out, "%d%s", args[0].Long, nl)
	case "(F)V":
		fmt.Fprintf(nb.Out, "%v%s", args[0].Float, nl)
	case "(D)V":
		fmt.Fprintf(nb.Out, "%s%s", formatDouble(args[0].Double), nl)
	case "(Z)V":
		if args[0].Int != 0 {
			fmt.Fprintf(nb.Out, "true%s", nl)
		} else {
			fmt.Fprintf(nb.Out, "false%s", nl)
		}
	case "(C)V":
		fmt.Fprintf(nb.Out, "%c%s", rune(args[0].Int), nl)
	case "(Ljava/lang/String;)V":
		if args[0].IsNull() {
			fmt.Fprintf(nb.Out, "null%s", nl)
		} else if s, ok := nb.Heap.String(args[0].Ref); ok {
			fmt.Fprintf(nb.Out, "%s%s", s, nl)
		}
	case "(Ljava/lang/Object;)V":
		nb.printObject(args[0], nl)
	default:
		return Value{}, false, fmt.Errorf("PrintStream.%s: unsupported descriptor %s", methodName, descriptor)
	}
	return Value{}, true, nil
}

func (nb *NativeBridge) printObject(v Value, nl string) {
	if v.IsNull() {
		fmt.Fprintf(nb.Out, "null%s", nl)
		return
	}
	switch o := nb.Heap.Get(v.Ref).(type) {
	case string:
		fmt.Fprintf(nb.Out, "%s%s", o, nl)
	case *JObject:
		fmt.Fprintf(nb.Out, "%s@%x%s", o.ClassName, v.Ref, nl)
	case *stringBuffer:
		fmt.Fprintf(nb.Out, "%s%s", string(o.buf), nl)
	case *nativeInteger:
		fmt.Fprintf(nb.Out, "%d%s", o.value, nl)
	default:
		fmt.Fprintf(nb.Out, "%v%s", o, nl)
	}
}

func formatDouble(d float64) string {
	if d == math.Trunc(d) && !math.IsInf(d, 0) {
		return strconv.FormatFloat(d, 'f', 1, 64)
	}
	return strconv.FormatFloat(d, 'g', -1, 64)
}

// invokeString dispatches the handful of java.lang.String instance methods
// the interpreter supports. Strings are interned Go strings in the heap
// (spec.md's string-interning note), so every operation here is read-only:
// a result that produces a new String allocates a fresh heap entry rather
// than mutating the receiver.
func (nb *NativeBridge) invokeString(selfRef int32, s string, methodName, descriptor string, args []Value) (Value, bool, error) {
	runes := []rune(s)
	switch methodName {
	case "length":
		if descriptor == "()I" {
			return IntValue(int32(len(runes))), true, nil
		}
	case "charAt":
		if descriptor == "(I)C" {
			i := int(args[0].Int)
			if i < 0 || i >= len(runes) {
				return Value{}, true, fmt.Errorf("String.charAt: index %d out of bounds for length %d", i, len(runes))
			}
			return IntValue(int32(runes[i])), true, nil
		}
	case "equals":
		if descriptor == "(Ljava/lang/Object;)Z" {
			if other, ok := nb.Heap.String(args[0].Ref); ok && other == s {
				return IntValue(1), true, nil
			}
			return IntValue(0), true, nil
		}
	case "concat":
		if descriptor == "(Ljava/lang/String;)Ljava/lang/String;" {
			other, _ := nb.Heap.String(args[0].Ref)
			return RefValue(nb.Heap.AllocString(s + other)), true, nil
		}
	case "substring":
		switch descriptor {
		case "(I)Ljava/lang/String;":
			begin := int(args[0].Int)
			if begin < 0 || begin > len(runes) {
				return Value{}, true, fmt.Errorf("String.substring: index %d out of bounds for length %d", begin, len(runes))
			}
			return RefValue(nb.Heap.AllocString(string(runes[begin:]))), true, nil
		case "(II)Ljava/lang/String;":
			begin, end := int(args[0].Int), int(args[1].Int)
			if begin < 0 || end > len(runes) || begin > end {
				return Value{}, true, fmt.Errorf("String.substring: range [%d,%d) out of bounds for length %d", begin, end, len(runes))
			}
			return RefValue(nb.Heap.AllocString(string(runes[begin:end]))), true, nil
		}
	case "indexOf":
		if descriptor == "(Ljava/lang/String;)I" {
			needle, _ := nb.Heap.String(args[0].Ref)
			idx := indexOfRunes(runes, []rune(needle))
			return IntValue(int32(idx)), true, nil
		}
	case "compareTo":
		if descriptor == "(Ljava/lang/String;)I" {
			other, _ := nb.Heap.String(args[0].Ref)
			switch {
			case s < other:
				return IntValue(-1), true, nil
			case s > other:
				return IntValue(1), true, nil
			default:
				return IntValue(0), true, nil
			}
		}
	case "hashCode":
		if descriptor == "()I" {
			return IntValue(javaStringHashCode(s)), true, nil
		}
	case "toString":
		if descriptor == "()Ljava/lang/String;" {
			return RefValue(selfRef), true, nil
		}
	case "isEmpty":
		if descriptor == "()Z" {
			if len(runes) == 0 {
				return IntValue(1), true, nil
			}
			return IntValue(0), true, nil
		}
	}
	return Value{}, false, nil
}

// javaStringHashCode reproduces java.lang.String.hashCode's definition:
// s[0]*31^(n-1) + s[1]*31^(n-2) + ... + s[n-1], over UTF-16 code units.
func javaStringHashCode(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	return h
}

func indexOfRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// invokeInteger dispatches boxed java.lang.Integer instance methods,
// adapted from the teacher's IntegerIntValue unboxing helper.
func (nb *NativeBridge) invokeInteger(selfRef int32, ni *nativeInteger, methodName, descriptor string, args []Value) (Value, bool, error) {
	switch methodName {
	case "intValue":
		if descriptor == "()I" {
			return IntValue(ni.value), true, nil
		}
	case "equals":
		if descriptor == "(Ljava/lang/Object;)Z" {
			if other, ok := nb.Heap.Get(args[0].Ref).(*nativeInteger); ok && other.value == ni.value {
				return IntValue(1), true, nil
			}
			return IntValue(0), true, nil
		}
	case "hashCode":
		if descriptor == "()I" {
			return IntValue(ni.value), true, nil
		}
	case "toString":
		if descriptor == "()Ljava/lang/String;" {
			return RefValue(nb.Heap.AllocString(strconv.FormatInt(int64(ni.value), 10))), true, nil
		}
	}
	return Value{}, false, nil
}

// invokeHashMap dispatches java.util.HashMap instance methods, adapted
// from the teacher's NativeHashMap.Get/Put — generalized to key on any
// normalized Value, not just boxed Integer.
func (nb *NativeBridge) invokeHashMap(hm *nativeHashMap, methodName, descriptor string, args []Value) (Value, bool, error) {
	switch methodName {
	case "put":
		if descriptor == "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;" {
			key := nb.hashMapKey(args[0])
			old, had := hm.data[key]
			hm.data[key] = args[1]
			if !had {
				return NullValue(), true, nil
			}
			return old, true, nil
		}
	case "get":
		if descriptor == "(Ljava/lang/Object;)Ljava/lang/Object;" {
			v, ok := hm.data[nb.hashMapKey(args[0])]
			if !ok {
				return NullValue(), true, nil
			}
			return v, true, nil
		}
	case "containsKey":
		if descriptor == "(Ljava/lang/Object;)Z" {
			_, ok := hm.data[nb.hashMapKey(args[0])]
			if ok {
				return IntValue(1), true, nil
			}
			return IntValue(0), true, nil
		}
	case "remove":
		if descriptor == "(Ljava/lang/Object;)Ljava/lang/Object;" {
			key := nb.hashMapKey(args[0])
			old, had := hm.data[key]
			delete(hm.data, key)
			if !had {
				return NullValue(), true, nil
			}
			return old, true, nil
		}
	case "size":
		if descriptor == "()I" {
			return IntValue(int32(len(hm.data))), true, nil
		}
	}
	return Value{}, false, nil
}

func (nb *NativeBridge) invokeStringBuffer(selfRef int32, sb *stringBuffer, methodName, descriptor string, args []Value) (Value, bool, error) {
	switch methodName {
	case "append":
		switch descriptor {
		case "(Ljava/lang/String;)Ljava/lang/StringBuffer;", "(Ljava/lang/String;)Ljava/lang/StringBuilder;":
			if s, ok := nb.Heap.String(args[0].Ref); ok {
				sb.buf = append(sb.buf, []rune(s)...)
			}
		case "(I)Ljava/lang/StringBuffer;", "(I)Ljava/lang/StringBuilder;":
			sb.buf = append(sb.buf, []rune(strconv.FormatInt(int64(args[0].Int), 10))...)
		case "(J)Ljava/lang/StringBuffer;", "(J)Ljava/lang/StringBuilder;":
			sb.buf = append(sb.buf, []rune(strconv.FormatInt(args[0].Long, 10))...)
		case "(C)Ljava/lang/StringBuffer;", "(C)Ljava/lang/StringBuilder;":
			sb.buf = append(sb.buf, rune(args[0].Int))
		case "(D)Ljava/lang/StringBuffer;", "(D)Ljava/lang/StringBuilder;":
			sb.buf = append(sb.buf, []rune(formatDouble(args[0].Double))...)
		case "(Z)Ljava/lang/StringBuffer;", "(Z)Ljava/lang/StringBuilder;":
			if args[0].Int != 0 {
				sb.buf = append(sb.buf, []rune("true")...)
			} else {
				sb.buf = append(sb.buf, []rune("false")...)
			}
		default:
			return Value{}, false, fmt.Errorf("StringBuffer.append: unsupported descriptor %s", descriptor)
		}
		return RefValue(selfRef), true, nil
	case "toString":
		return RefValue(nb.Heap.AllocString(string(sb.buf))), true, nil
	case "length":
		return IntValue(int32(len(sb.buf))), true, nil
	case "charAt":
		i := int(args[0].Int)
		if i < 0 || i >= len(sb.buf) {
			return Value{}, true, fmt.Errorf("StringBuffer.charAt: index %d out of bounds for length %d", i, len(sb.buf))
		}
		return IntValue(int32(sb.buf[i])), true, nil
	}
	return Value{}, false, nil
}
