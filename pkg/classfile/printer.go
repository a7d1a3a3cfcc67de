package classfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	sectionHeader = color.New(color.FgCyan, color.Bold)
	dimText       = color.New(color.Faint)
)

// Printer is the debug-only class-file pretty printer: a human-readable
// listing of the constant pool, access flags, interfaces, fields, methods,
// and attribute contents (including decoded Code and exception tables).
type Printer struct {
	Out io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer { return &Printer{Out: w} }

// Dump writes the full pretty-printed listing of cf to p.Out.
func (p *Printer) Dump(cf *ClassFile, sourceName string) {
	sectionHeader.Fprintf(p.Out, "==== class file: %s ====\n", sourceName)
	fmt.Fprintf(p.Out, "version: %d.%d   this: %s   super: %s\n",
		cf.Major, cf.Minor, cf.ThisClassName(), cf.SuperClassName())
	fmt.Fprintf(p.Out, "access flags: %s\n", formatAccessFlags(cf.AccessFlags))

	p.dumpConstantPool(cf)
	p.dumpInterfaces(cf)
	p.dumpFields(cf)
	p.dumpMethods(cf)
}

func (p *Printer) dumpConstantPool(cf *ClassFile) {
	sectionHeader.Fprintln(p.Out, "\n-- constant pool --")
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader([]string{"#", "tag", "value"})
	table.SetAutoWrapText(false)
	for i, entry := range cf.ConstantPool {
		if entry == nil {
			continue
		}
		table.Append([]string{fmt.Sprintf("%d", i), constantTagName(entry), describeConstant(cf, entry)})
	}
	table.Render()
}

func (p *Printer) dumpInterfaces(cf *ClassFile) {
	if len(cf.Interfaces) == 0 {
		return
	}
	sectionHeader.Fprintln(p.Out, "\n-- interfaces --")
	for _, idx := range cf.Interfaces {
		fmt.Fprintf(p.Out, "  %s\n", cf.className(idx))
	}
}

func (p *Printer) dumpFields(cf *ClassFile) {
	sectionHeader.Fprintln(p.Out, "\n-- fields --")
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader([]string{"name", "descriptor", "flags"})
	for _, f := range cf.Fields {
		table.Append([]string{f.Name, f.Descriptor, formatAccessFlags(f.AccessFlags)})
	}
	table.Render()
}

func (p *Printer) dumpMethods(cf *ClassFile) {
	sectionHeader.Fprintln(p.Out, "\n-- methods --")
	for _, m := range cf.Methods {
		fmt.Fprintf(p.Out, "  %s%s  %s\n", m.Name, m.Descriptor, formatAccessFlags(m.AccessFlags))
		code := m.Code()
		if code == nil {
			dimText.Fprintln(p.Out, "    (no Code attribute)")
			continue
		}
		fmt.Fprintf(p.Out, "    max_stack=%d max_locals=%d code_length=%d\n",
			code.MaxStack, code.MaxLocals, len(code.Code))
		p.dumpCode(code)
		if len(code.ExceptionTable) > 0 {
			fmt.Fprintln(p.Out, "    exception table:")
			for _, e := range code.ExceptionTable {
				fmt.Fprintf(p.Out, "      start=%d end=%d handler=%d catch_type=%d\n",
					e.StartPC, e.EndPC, e.HandlerPC, e.CatchType)
			}
		}
	}
}

func (p *Printer) dumpCode(code *CodeAttribute) {
	pc := 0
	for pc < len(code.Code) {
		op := code.Code[pc]
		info, ok := Opcodes[op]
		mnemonic := info.Mnemonic
		if !ok {
			mnemonic = fmt.Sprintf("unknown(0x%02X)", op)
		}
		size := InstructionSize(code.Code, pc)
		operands := code.Code[pc+1 : min(len(code.Code), pc+size)]
		fmt.Fprintf(p.Out, "    %4d: %-16s%s\n", pc, mnemonic, formatOperandBytes(operands))
		if size <= 0 {
			break
		}
		pc += size
	}
}

func formatOperandBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

func formatAccessFlags(flags uint16) string {
	var names []string
	add := func(bit uint16, name string) {
		if flags&bit != 0 {
			names = append(names, name)
		}
	}
	add(AccPublic, "public")
	add(AccPrivate, "private")
	add(AccProtected, "protected")
	add(AccStatic, "static")
	add(AccFinal, "final")
	add(AccSuper, "super")
	add(AccInterface, "interface")
	add(AccAbstract, "abstract")
	add(AccNative, "native")
	add(AccSynthetic, "synthetic")
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, " ")
}

func constantTagName(e ConstantPoolEntry) string {
	switch e.(type) {
	case *ConstantUtf8:
		return "Utf8"
	case *ConstantInteger:
		return "Integer"
	case *ConstantFloat:
		return "Float"
	case *ConstantLong:
		return "Long"
	case *ConstantDouble:
		return "Double"
	case *ConstantClass:
		return "Class"
	case *ConstantString:
		return "String"
	case *ConstantFieldref:
		return "Fieldref"
	case *ConstantMethodref:
		return "Methodref"
	case *ConstantInterfaceMethodref:
		return "InterfaceMethodref"
	case *ConstantNameAndType:
		return "NameAndType"
	default:
		return "(reserved)"
	}
}

func describeConstant(cf *ClassFile, e ConstantPoolEntry) string {
	switch v := e.(type) {
	case *ConstantUtf8:
		return v.Value
	case *ConstantInteger:
		return fmt.Sprintf("%d", v.Value)
	case *ConstantFloat:
		return fmt.Sprintf("%g", v.Value)
	case *ConstantLong:
		return fmt.Sprintf("%d", v.Value)
	case *ConstantDouble:
		return fmt.Sprintf("%g", v.Value)
	case *ConstantClass:
		return cf.Utf8(v.NameIndex)
	case *ConstantString:
		return cf.Utf8(v.StringIndex)
	case *ConstantFieldref:
		return fmt.Sprintf("#%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case *ConstantMethodref:
		return fmt.Sprintf("#%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		return fmt.Sprintf("#%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case *ConstantNameAndType:
		return fmt.Sprintf("#%d:#%d", v.NameIndex, v.DescriptorIndex)
	default:
		return ""
	}
}
