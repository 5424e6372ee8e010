package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-clone"
)

// Importer re-resolves references while a definition is cloned into another
// container. The generic slots are single-valued and are overwritten, not stacked.
type Importer interface {
	ImportType(TypeDescriptor) (TypeDescriptor, error)
	ImportMethod(MethodDescriptor) (MethodDescriptor, error)
	ImportField(FieldDescriptor) (FieldDescriptor, error)

	// EnterType makes p the current type for generic parameter resolution.
	EnterType(p GenericParameterProvider)

	// EnterMethod makes p the current method for generic parameter resolution.
	EnterMethod(p GenericParameterProvider)

	// CurrentType returns the current type slot.
	CurrentType() GenericParameterProvider
}

// TypeAttributes are the flags of a type definition.
type TypeAttributes uint32

const (
	TypePublic    TypeAttributes = 0x00000001
	TypeInterface TypeAttributes = 0x00000020
	TypeAbstract  TypeAttributes = 0x00000080
	TypeSealed    TypeAttributes = 0x00000100
)

// MethodAttributes are the flags of a method definition.
type MethodAttributes uint16

const (
	MethodPublic   MethodAttributes = 0x0006
	MethodStatic   MethodAttributes = 0x0010
	MethodVirtual  MethodAttributes = 0x0040
	MethodAbstract MethodAttributes = 0x0400
)

// FieldAttributes are the flags of a field definition.
type FieldAttributes uint16

const (
	FieldPublic   FieldAttributes = 0x0006
	FieldStatic   FieldAttributes = 0x0010
	FieldInitOnly FieldAttributes = 0x0020
	FieldLiteral  FieldAttributes = 0x0040
)

// TypeDefinition is a full type declaration including its members.
type TypeDefinition struct {
	TypeReference

	Attributes  TypeAttributes
	BaseType    TypeDescriptor
	Interfaces  []TypeDescriptor
	Fields      []*FieldDefinition
	Methods     []*MethodDefinition
	NestedTypes []*TypeDefinition
}

// NewTypeDefinition creates a detached type definition.
func NewTypeDefinition(name, namespace string, attrs TypeAttributes, baseType TypeDescriptor) *TypeDefinition {
	return &TypeDefinition{
		TypeReference: TypeReference{id: uuid.New(), Name: name, Namespace: namespace},
		Attributes:    attrs,
		BaseType:      baseType,
	}
}

// AddField appends f and makes t its declaring type.
func (t *TypeDefinition) AddField(f *FieldDefinition) {
	f.DeclaringType = t
	f.module = t.module
	t.Fields = append(t.Fields, f)
}

// AddMethod appends m and makes t its declaring type.
func (t *TypeDefinition) AddMethod(m *MethodDefinition) {
	m.DeclaringType = t
	m.setModule(t.module)
	t.Methods = append(t.Methods, m)
}

// AddNestedType appends n and links it to t.
func (t *TypeDefinition) AddNestedType(n *TypeDefinition) {
	n.DeclaringType = &t.TypeReference
	t.NestedTypes = append(t.NestedTypes, n)
}

// Method returns the first method named name, or nil.
func (t *TypeDefinition) Method(name string) *MethodDefinition {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field returns the field named name, or nil.
func (t *TypeDefinition) Field(name string) *FieldDefinition {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Clone rebuilds t with every contained reference re-resolved through imp.
// The clone is detached; add it to a container to publish it.
func (t *TypeDefinition) Clone(imp Importer) (*TypeDefinition, error) {
	nt := NewTypeDefinition(t.Name, t.Namespace, t.Attributes, nil)
	nt.ValueType = t.ValueType

	imp.EnterType(nt)
	for _, gp := range t.genericParameters {
		nt.AddGenericParameter(gp.Name)
	}

	if t.BaseType != nil {
		base, err := imp.ImportType(t.BaseType)
		if err != nil {
			return nil, fmt.Errorf("base type of %s: %w", t.FullName(), err)
		}
		nt.BaseType = base
	}

	for _, iface := range t.Interfaces {
		imp.EnterType(nt)
		it, err := imp.ImportType(iface)
		if err != nil {
			return nil, fmt.Errorf("interface of %s: %w", t.FullName(), err)
		}
		nt.Interfaces = append(nt.Interfaces, it)
	}

	for _, nested := range t.NestedTypes {
		nn, err := nested.Clone(imp)
		if err != nil {
			return nil, err
		}
		nt.AddNestedType(nn)
	}

	for _, f := range t.Fields {
		imp.EnterType(nt)
		nf, err := f.Clone(imp)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.FullName(), f.Name, err)
		}
		nt.AddField(nf)
	}

	for _, m := range t.Methods {
		imp.EnterType(nt)
		nm, err := m.Clone(imp)
		if err != nil {
			return nil, fmt.Errorf("method %s::%s: %w", t.FullName(), m.Name, err)
		}
		nt.AddMethod(nm)
	}

	return nt, nil
}

// MethodDefinition is a full method declaration with an optional body.
type MethodDefinition struct {
	MethodReference

	Attributes MethodAttributes
	Body       *MethodBody
}

// NewMethodDefinition creates a detached method definition.
// Instance methods (no MethodStatic flag) get HasThis.
func NewMethodDefinition(name string, attrs MethodAttributes, returnType TypeDescriptor) *MethodDefinition {
	return &MethodDefinition{
		MethodReference: MethodReference{
			id:         uuid.New(),
			Name:       name,
			HasThis:    attrs&MethodStatic == 0,
			ReturnType: returnType,
		},
		Attributes: attrs,
	}
}

// Clone rebuilds m with every contained reference re-resolved through imp.
// The type slot current on entry is restored before each dependent import.
func (m *MethodDefinition) Clone(imp Importer) (*MethodDefinition, error) {
	nm := NewMethodDefinition(m.Name, m.Attributes, nil)
	nm.HasThis = m.HasThis
	nm.ExplicitThis = m.ExplicitThis
	nm.CallingConvention = m.CallingConvention

	owner := imp.CurrentType()
	reenter := func() {
		if owner != nil {
			imp.EnterType(owner)
		}
		imp.EnterMethod(nm)
	}

	reenter()
	for _, gp := range m.genericParameters {
		nm.AddGenericParameter(gp.Name)
	}

	if m.ReturnType != nil {
		reenter()
		rt, err := imp.ImportType(m.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("return type: %w", err)
		}
		nm.ReturnType = rt
	}

	for _, p := range m.Parameters {
		reenter()
		pt, err := imp.ImportType(p.ParameterType)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		nm.AddParameter(p.Name, pt)
	}

	if m.Body != nil {
		body, err := m.Body.clone(imp, reenter)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		nm.Body = body
	}

	return nm, nil
}

// OpCode names an instruction (e.g., "ldfld", "call", "br").
type OpCode string

// Instruction is one body instruction. Operand may be a TypeDescriptor,
// MethodDescriptor, FieldDescriptor, branch target (*Instruction or
// []*Instruction), or any other value.
type Instruction struct {
	Offset  int
	OpCode  OpCode
	Operand any
}

// MethodBody is the opaque body of a method. It is copied, never validated.
type MethodBody struct {
	MaxStack     int
	InitLocals   bool
	Variables    []TypeDescriptor
	Instructions []*Instruction
}

func (b *MethodBody) clone(imp Importer, reenter func()) (*MethodBody, error) {
	nb := &MethodBody{MaxStack: b.MaxStack, InitLocals: b.InitLocals}

	for _, v := range b.Variables {
		reenter()
		nv, err := imp.ImportType(v)
		if err != nil {
			return nil, fmt.Errorf("variable: %w", err)
		}
		nb.Variables = append(nb.Variables, nv)
	}

	targets := make(map[*Instruction]*Instruction, len(b.Instructions))
	nb.Instructions = make([]*Instruction, len(b.Instructions))
	for i, ins := range b.Instructions {
		ni := &Instruction{Offset: ins.Offset, OpCode: ins.OpCode}
		nb.Instructions[i] = ni
		targets[ins] = ni
	}

	for i, ins := range b.Instructions {
		operand, err := cloneOperand(ins.Operand, imp, targets, reenter)
		if err != nil {
			return nil, fmt.Errorf("instruction IL_%04x %s: %w", ins.Offset, ins.OpCode, err)
		}
		nb.Instructions[i].Operand = operand
	}

	return nb, nil
}

func cloneOperand(operand any, imp Importer, targets map[*Instruction]*Instruction, reenter func()) (any, error) {
	switch v := operand.(type) {
	case nil:
		return nil, nil
	case *Instruction:
		target, ok := targets[v]
		if !ok {
			return nil, fmt.Errorf("branch target IL_%04x is outside the body", v.Offset)
		}
		return target, nil
	case []*Instruction:
		out := make([]*Instruction, len(v))
		for i, ins := range v {
			target, ok := targets[ins]
			if !ok {
				return nil, fmt.Errorf("switch target IL_%04x is outside the body", ins.Offset)
			}
			out[i] = target
		}
		return out, nil
	case TypeDescriptor:
		reenter()
		return imp.ImportType(v)
	case MethodDescriptor:
		reenter()
		return imp.ImportMethod(v)
	case FieldDescriptor:
		reenter()
		return imp.ImportField(v)
	default:
		return clone.Clone(v), nil
	}
}

// FieldDefinition is a full field declaration.
type FieldDefinition struct {
	FieldReference

	Attributes FieldAttributes

	// Constant is the literal value of a constant field, if any.
	Constant any
}

// NewFieldDefinition creates a detached field definition.
func NewFieldDefinition(name string, attrs FieldAttributes, fieldType TypeDescriptor) *FieldDefinition {
	return &FieldDefinition{
		FieldReference: FieldReference{Name: name, FieldType: fieldType},
		Attributes:     attrs,
	}
}

// Clone rebuilds f with its field type re-resolved through imp.
func (f *FieldDefinition) Clone(imp Importer) (*FieldDefinition, error) {
	nf := NewFieldDefinition(f.Name, f.Attributes, nil)
	if f.FieldType != nil {
		ft, err := imp.ImportType(f.FieldType)
		if err != nil {
			return nil, err
		}
		nf.FieldType = ft
	}
	if f.Constant != nil {
		nf.Constant = clone.Clone(f.Constant)
	}
	return nf, nil
}
