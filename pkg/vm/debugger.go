package vm

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/peterh/liner"

	"github.com/hsato/minijvm/pkg/classfile"
)

// Debugger drives the optional per-instruction stepping mode spec.md §6
// names as a required interface: before each opcode it prints the current
// frame (class, method, PC, mnemonic, locals, operand stack) via spew's
// deep printer and blocks on a line of input through liner, the same
// REPL-style line reader the interactive dump/debug prompts in
// cmd/minijvm use.
type Debugger struct {
	Out      io.Writer
	Line     *liner.State
	dump     *spew.ConfigState
	detached bool
}

// NewDebugger attaches stepping output to out, reading step commands from
// line (already put into raw mode by the caller).
func NewDebugger(out io.Writer, line *liner.State) *Debugger {
	return &Debugger{
		Out:  out,
		Line: line,
		dump: &spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true},
	}
}

// BeforeInstruction prints frame state and waits for a step command. An
// empty line or "n"/"next" steps one instruction; "c"/"continue" detaches
// the debugger for the rest of the run; anything else just re-prompts.
func (d *Debugger) BeforeInstruction(frame *Frame) {
	if d.detached {
		return
	}
	op := frame.Code[frame.PC]
	info, ok := classfile.Opcodes[op]
	mnemonic := info.Mnemonic
	if !ok {
		mnemonic = fmt.Sprintf("unknown(0x%02X)", op)
	}

	fmt.Fprintf(d.Out, "\n-- %s.%s  pc=%d  %s\n", frame.ClassName(), frame.MethodName(), frame.PC, mnemonic)
	fmt.Fprintf(d.Out, "locals: %s", d.dump.Sdump(frame.Locals))
	fmt.Fprintf(d.Out, "stack:  %s", d.dump.Sdump(frame.Stack[:frame.SP]))

	for {
		line, err := d.Line.Prompt("(step) ")
		if err != nil {
			return
		}
		switch line {
		case "", "n", "next":
			return
		case "c", "continue":
			d.detached = true
			return
		default:
			fmt.Fprintf(d.Out, "commands: <enter>/n/next step, c/continue run to completion\n")
		}
	}
}
