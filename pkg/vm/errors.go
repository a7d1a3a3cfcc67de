package vm

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// FatalError is the interpreter's uniform representation of any condition
// spec.md §5 marks fatal — no exception-handler lookup is ever attempted,
// classic-JVM-interpreter style: a linkage error, a thrown exception, or a
// runtime error such as a null dereference all abort the run the same way.
type FatalError struct {
	Kind   string // e.g. "NullPointerException", "ClassFormatError"
	Class  string
	Method string
	Detail string
}

func (e *FatalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s in %s.%s", e.Kind, e.Class, e.Method)
	}
	return fmt.Sprintf("%s in %s.%s: %s", e.Kind, e.Class, e.Method, e.Detail)
}

func newFatal(kind string, f *Frame, detail string) *FatalError {
	return &FatalError{Kind: kind, Class: f.ClassName(), Method: f.MethodName(), Detail: detail}
}

// Runtime error constructors, one per spec.md §5 runtime-error kind. Each
// wraps the current frame's class/method so the fatal banner can report
// exactly where execution stopped.

func npe(f *Frame, detail string) *FatalError {
	return newFatal("NullPointerException", f, detail)
}

func arrayIndexOOB(f *Frame, index, length int) *FatalError {
	return newFatal("ArrayIndexOutOfBoundsException", f, fmt.Sprintf("index %d out of bounds for length %d", index, length))
}

func negativeArraySize(f *Frame, size int32) *FatalError {
	return newFatal("NegativeArraySizeException", f, fmt.Sprintf("%d", size))
}

func abstractMethodError(f *Frame, detail string) *FatalError {
	return newFatal("AbstractMethodError", f, detail)
}

func incompatibleClassChangeError(f *Frame, detail string) *FatalError {
	return newFatal("IncompatibleClassChangeError", f, detail)
}

func illegalAccessError(f *Frame, detail string) *FatalError {
	return newFatal("IllegalAccessError", f, detail)
}

func classCastException(f *Frame, detail string) *FatalError {
	return newFatal("ClassCastException", f, detail)
}

func arithmeticException(f *Frame, detail string) *FatalError {
	return newFatal("ArithmeticException", f, detail)
}

func noSuchMethodError(f *Frame, detail string) *FatalError {
	return newFatal("NoSuchMethodError", f, detail)
}

func noSuchFieldError(f *Frame, detail string) *FatalError {
	return newFatal("NoSuchFieldError", f, detail)
}

// uncaughtThrow wraps an athrow of a user exception object — spec.md's
// supplemented "athrow as fatal signal" behavior (no handler tables are
// decoded, so any throw, caught or not, halts the run).
func uncaughtThrow(f *Frame, className string) *FatalError {
	return newFatal(className, f, "uncaught (this interpreter does not walk exception tables)")
}

// ReportFatal prints the "!!!! ERROR" banner a classic bytecode interpreter
// prints to stderr on an unrecoverable condition, then logs a structured
// record of the same event via logrus — human-facing banner plus
// machine-parsable log line, matching the ambient stack's dual-output
// convention.
func ReportFatal(w io.Writer, log *logrus.Logger, err *FatalError) {
	bold := color.New(color.FgRed, color.Bold)
	bold.Fprintln(w, "!!!! ERROR")
	fmt.Fprintf(w, "Kind:   %s\n", err.Kind)
	fmt.Fprintf(w, "Class:  %s\n", err.Class)
	fmt.Fprintf(w, "Method: %s\n", err.Method)
	if err.Detail != "" {
		fmt.Fprintf(w, "Detail: %s\n", err.Detail)
	}
	log.WithFields(logrus.Fields{
		"kind":   err.Kind,
		"class":  err.Class,
		"method": err.Method,
	}).Error(err.Detail)
}
