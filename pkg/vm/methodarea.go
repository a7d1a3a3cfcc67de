package vm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hsato/minijvm/pkg/classfile"
)

// RuntimeClass is a loaded class: its decoded image, its static-field
// storage, and the (LIFO) list of its live instances. The method area owns
// this record exclusively; a JObject never points back to it directly, only
// by name, breaking the class/instance ownership cycle spec.md's design
// notes call out.
type RuntimeClass struct {
	Image        *classfile.ClassFile
	Name         string
	StaticFields map[string]*Value
	Initialized  bool
	Instances    []*JObject
}

// MethodArea is the process-wide registry of loaded classes: find-by-name,
// load-from-classpath, and constant-pool-backed field/method resolution. It
// is constructed once in main and threaded through the VM by reference —
// never a package-level singleton, so multiple VMs (e.g. in tests) never
// share state.
type MethodArea struct {
	cp      ClassPath
	classes map[string]*RuntimeClass
	log     *logrus.Logger
}

// NewMethodArea returns an empty method area reading classes from cp.
func NewMethodArea(cp ClassPath, log *logrus.Logger) *MethodArea {
	return &MethodArea{cp: cp, classes: make(map[string]*RuntimeClass), log: log}
}

// Find returns the already-loaded class by name, if any.
func (ma *MethodArea) Find(name string) (*RuntimeClass, bool) {
	rc, ok := ma.classes[name]
	return rc, ok
}

// Load implements steps 1–4 of the class loading protocol (load, verify,
// prepare, register) and is idempotent: a class already present is returned
// directly. Step 5 — running <clinit> — is the VM's responsibility, since it
// requires the interpreter, not just the method area.
func (ma *MethodArea) Load(name string) (*RuntimeClass, error) {
	if rc, ok := ma.classes[name]; ok {
		return rc, nil
	}

	data, err := ma.cp.ReadClass(name)
	if err != nil {
		ma.log.WithField("class", name).WithError(err).Error("NoClassDefFoundError")
		return nil, fmt.Errorf("NoClassDefFoundError: %s: %w", name, err)
	}

	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		var uv *classfile.ErrUnsupportedVersion
		var cc *classfile.ErrClassCircularity
		switch {
		case errors.As(err, &uv):
			ma.log.WithField("class", name).Error("UnsupportedClassVersionError")
			return nil, fmt.Errorf("UnsupportedClassVersionError: %s: %w", name, err)
		case errors.As(err, &cc):
			ma.log.WithField("class", name).Error("ClassCircularityError")
			return nil, fmt.Errorf("ClassCircularityError: %s: %w", name, err)
		default:
			ma.log.WithField("class", name).WithError(err).Error("ClassFormatError")
			return nil, fmt.Errorf("ClassFormatError: %s: %w", name, err)
		}
	}

	rc := &RuntimeClass{
		Image:        cf,
		Name:         name,
		StaticFields: make(map[string]*Value),
	}
	// Register before preparing/resolving further so that a super-chain load
	// recursing back to this class name (caught properly by the circularity
	// check in classfile.Parse for direct self-reference) finds a record
	// rather than looping.
	ma.classes[name] = rc
	ma.prepare(rc)
	ma.log.WithFields(logrus.Fields{"class": name, "major": cf.Major}).Debug("class loaded")
	return rc, nil
}

// prepare allocates zero-initialized storage for every non-final static
// field. Final statics are left unallocated here and resolved lazily from
// their ConstantValue attribute the first time GetStatic observes them.
func (ma *MethodArea) prepare(rc *RuntimeClass) {
	for _, f := range rc.Image.Fields {
		if !f.IsStatic() || f.IsFinal() {
			continue
		}
		v := defaultValueForDescriptor(f.Descriptor)
		rc.StaticFields[f.Name] = &v
	}
}

// GetStatic returns the current value of a static field, resolving a final
// static's ConstantValue attribute on first access.
func (ma *MethodArea) GetStatic(rc *RuntimeClass, name string) Value {
	if cell, ok := rc.StaticFields[name]; ok {
		return *cell
	}
	f := rc.Image.FindField(name)
	if f == nil {
		return Value{}
	}
	v := defaultValueForDescriptor(f.Descriptor)
	if idx, ok := f.ConstantValue(); ok {
		v = ma.constantToValue(rc.Image, idx)
	}
	cell := v
	rc.StaticFields[name] = &cell
	return v
}

// PutStatic sets a static field's storage cell, allocating it on first
// write if prepare() skipped it (a final field being set from <clinit>).
func (ma *MethodArea) PutStatic(rc *RuntimeClass, name string, v Value) {
	if cell, ok := rc.StaticFields[name]; ok {
		*cell = v
		return
	}
	cell := v
	rc.StaticFields[name] = &cell
}

func (ma *MethodArea) constantToValue(cf *classfile.ClassFile, idx uint16) Value {
	switch c := cf.ConstantPool[idx].(type) {
	case *classfile.ConstantInteger:
		return IntValue(c.Value)
	case *classfile.ConstantFloat:
		return FloatValue(c.Value)
	case *classfile.ConstantLong:
		return LongValue(c.Value)
	case *classfile.ConstantDouble:
		return DoubleValue(c.Value)
	case *classfile.ConstantString:
		return NullValue() // no heap here; execField's getstatic interns the string first
	default:
		return Value{}
	}
}

// ResolveFieldRef dereferences a Fieldref constant-pool entry into the
// owning class name, field name, and descriptor.
func (ma *MethodArea) ResolveFieldRef(cf *classfile.ClassFile, cpIndex uint16) (className, fieldName, descriptor string, err error) {
	fr, ok := cf.ConstantPool[cpIndex].(*classfile.ConstantFieldref)
	if !ok {
		return "", "", "", fmt.Errorf("constant pool index %d is not a Fieldref", cpIndex)
	}
	className = cf.ClassNameAt(fr.ClassIndex)
	nat, ok := cf.ConstantPool[fr.NameAndTypeIndex].(*classfile.ConstantNameAndType)
	if !ok {
		return "", "", "", fmt.Errorf("Fieldref %d: NameAndType missing", cpIndex)
	}
	return className, cf.Utf8(nat.NameIndex), cf.Utf8(nat.DescriptorIndex), nil
}

// ResolveMethodRef dereferences a Methodref/InterfaceMethodref constant-pool
// entry into the owning class name, method name, and descriptor.
func (ma *MethodArea) ResolveMethodRef(cf *classfile.ClassFile, cpIndex uint16) (className, methodName, descriptor string, isInterface bool, err error) {
	switch mr := cf.ConstantPool[cpIndex].(type) {
	case *classfile.ConstantMethodref:
		nat, ok := cf.ConstantPool[mr.NameAndTypeIndex].(*classfile.ConstantNameAndType)
		if !ok {
			return "", "", "", false, fmt.Errorf("Methodref %d: NameAndType missing", cpIndex)
		}
		return cf.ClassNameAt(mr.ClassIndex), cf.Utf8(nat.NameIndex), cf.Utf8(nat.DescriptorIndex), false, nil
	case *classfile.ConstantInterfaceMethodref:
		nat, ok := cf.ConstantPool[mr.NameAndTypeIndex].(*classfile.ConstantNameAndType)
		if !ok {
			return "", "", "", false, fmt.Errorf("InterfaceMethodref %d: NameAndType missing", cpIndex)
		}
		return cf.ClassNameAt(mr.ClassIndex), cf.Utf8(nat.NameIndex), cf.Utf8(nat.DescriptorIndex), true, nil
	default:
		return "", "", "", false, fmt.Errorf("constant pool index %d is not a Methodref/InterfaceMethodref", cpIndex)
	}
}

// NewObject allocates an instance of className with every declared
// instance field — including inherited fields gathered from the super
// chain — set to its default value, and prepends it (LIFO) to the owning
// class's instance list.
func (ma *MethodArea) NewObject(className string) (*JObject, error) {
	obj := &JObject{ClassName: className, Fields: make(map[string]Value)}

	name := className
	for name != "" {
		rc, ok := ma.classes[name]
		if !ok {
			var err error
			rc, err = ma.Load(name)
			if err != nil {
				return nil, err
			}
		}
		for _, f := range rc.Image.Fields {
			if f.IsStatic() {
				continue
			}
			if _, exists := obj.Fields[f.Name]; !exists {
				obj.Fields[f.Name] = defaultValueForDescriptor(f.Descriptor)
			}
		}
		name = rc.Image.SuperClassName()
	}

	owner, ok := ma.classes[className]
	if ok {
		owner.Instances = append([]*JObject{obj}, owner.Instances...)
	}
	return obj, nil
}

// IsSubclassOf walks the super chain of className looking for target,
// loading ancestors as needed. It also returns true when className ==
// target.
func (ma *MethodArea) IsSubclassOf(className, target string) bool {
	name := className
	for name != "" {
		if name == target {
			return true
		}
		rc, ok := ma.classes[name]
		if !ok {
			var err error
			rc, err = ma.Load(name)
			if err != nil {
				return false
			}
		}
		name = rc.Image.SuperClassName()
	}
	return false
}
