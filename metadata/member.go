package metadata

import (
	"strings"

	"github.com/google/uuid"
)

// CallingConvention is the method calling convention.
type CallingConvention int

const (
	CallingConventionDefault  CallingConvention = 0x0
	CallingConventionC        CallingConvention = 0x1
	CallingConventionStdCall  CallingConvention = 0x2
	CallingConventionThisCall CallingConvention = 0x3
	CallingConventionFastCall CallingConvention = 0x4
	CallingConventionVarArg   CallingConvention = 0x5
	CallingConventionGeneric  CallingConvention = 0x10
)

// MemberReference is a method or field reference listed in a container.
type MemberReference interface {
	FullName() string
	Module() *Container

	// Declarer returns the declaring type.
	Declarer() TypeDescriptor

	setModule(*Container)
}

// MethodDescriptor is implemented by *MethodReference, *MethodDefinition and
// *GenericInstanceMethod.
type MethodDescriptor interface {
	FullName() string
	Module() *Container

	// Declarer returns the declaring type.
	Declarer() TypeDescriptor

	sealedMethod()
}

// Parameter is one formal parameter of a method.
type Parameter struct {
	Name          string
	ParameterType TypeDescriptor
}

// MethodReference is a reference to a method by signature.
type MethodReference struct {
	id     uuid.UUID
	module *Container

	Name              string
	HasThis           bool
	ExplicitThis      bool
	CallingConvention CallingConvention

	// DeclaringType may be a generic instance when the method is called on a
	// closed generic type.
	DeclaringType TypeDescriptor
	ReturnType    TypeDescriptor
	Parameters    []*Parameter

	genericParameters []*GenericParameter
}

// NewMethodReference creates an unpublished method reference shell.
func NewMethodReference(name string, hasThis, explicitThis bool, cc CallingConvention) *MethodReference {
	return &MethodReference{
		id:                uuid.New(),
		Name:              name,
		HasThis:           hasThis,
		ExplicitThis:      explicitThis,
		CallingConvention: cc,
	}
}

// FullName renders "Return Declaring::Name(P1,P2)". Generic method
// definitions list their parameter names: "Return Declaring::Name<T>(T)".
func (m *MethodReference) FullName() string {
	var sb strings.Builder
	m.writeHead(&sb)
	if len(m.genericParameters) > 0 {
		sb.WriteByte('<')
		for i, gp := range m.genericParameters {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(gp.Name)
		}
		sb.WriteByte('>')
	}
	m.writeParams(&sb)
	return sb.String()
}

func (m *MethodReference) writeHead(sb *strings.Builder) {
	sb.WriteString(nameOf(m.ReturnType))
	sb.WriteByte(' ')
	sb.WriteString(nameOf(m.DeclaringType))
	sb.WriteString("::")
	sb.WriteString(m.Name)
}

func (m *MethodReference) writeParams(sb *strings.Builder) {
	sb.WriteByte('(')
	for i, p := range m.Parameters {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(nameOf(p.ParameterType))
	}
	sb.WriteByte(')')
}

// Module returns the owning container, or nil when unpublished.
func (m *MethodReference) Module() *Container { return m.module }

// Declarer returns DeclaringType.
func (m *MethodReference) Declarer() TypeDescriptor { return m.DeclaringType }

// Reference returns m.
func (m *MethodReference) Reference() *MethodReference { return m }

// ID returns the arena identity.
func (m *MethodReference) ID() uuid.UUID { return m.id }

// OwnerKind returns OwnerMethod.
func (m *MethodReference) OwnerKind() OwnerKind { return OwnerMethod }

// GenericParameters returns the declared method-level generic parameters.
func (m *MethodReference) GenericParameters() []*GenericParameter { return m.genericParameters }

// AddGenericParameter appends a method-level parameter named name.
func (m *MethodReference) AddGenericParameter(name string) *GenericParameter {
	gp := newGenericParameter(name, len(m.genericParameters), m)
	m.genericParameters = append(m.genericParameters, gp)
	return gp
}

// AddParameter appends a formal parameter of type t.
func (m *MethodReference) AddParameter(name string, t TypeDescriptor) *Parameter {
	p := &Parameter{Name: name, ParameterType: t}
	m.Parameters = append(m.Parameters, p)
	return p
}

func (m *MethodReference) String() string { return m.FullName() }

func (m *MethodReference) setModule(c *Container) {
	m.module = c
	for _, gp := range m.genericParameters {
		gp.module = c
	}
}

func (*MethodReference) sealedMethod() {}

// GenericInstanceMethod marks a constructed generic method: a definition plus arguments.
type GenericInstanceMethod struct {
	ElementMethod *MethodReference
	Arguments     []TypeDescriptor
}

// NewGenericInstanceMethod wraps element with the given type arguments.
func NewGenericInstanceMethod(element *MethodReference, args ...TypeDescriptor) *GenericInstanceMethod {
	return &GenericInstanceMethod{ElementMethod: element, Arguments: args}
}

// FullName renders "Return Declaring::Name<A1,A2>(P1,P2)".
func (m *GenericInstanceMethod) FullName() string {
	var sb strings.Builder
	m.ElementMethod.writeHead(&sb)
	sb.WriteByte('<')
	sb.WriteString(joinNames(m.Arguments))
	sb.WriteByte('>')
	m.ElementMethod.writeParams(&sb)
	return sb.String()
}

// Module returns the element method's container.
func (m *GenericInstanceMethod) Module() *Container { return m.ElementMethod.Module() }

// Declarer returns the element method's declaring type.
func (m *GenericInstanceMethod) Declarer() TypeDescriptor { return m.ElementMethod.DeclaringType }

func (m *GenericInstanceMethod) String() string { return m.FullName() }

func (*GenericInstanceMethod) sealedMethod() {}

// FieldDescriptor is implemented by *FieldReference and *FieldDefinition.
type FieldDescriptor interface {
	FullName() string
	Module() *Container
	Declarer() TypeDescriptor

	// Reference returns the underlying field reference.
	Reference() *FieldReference
}

// FieldReference is a reference to a field by declaring type, name and type.
type FieldReference struct {
	module *Container

	Name          string
	DeclaringType TypeDescriptor
	FieldType     TypeDescriptor
}

// NewFieldReference creates an unpublished field reference.
func NewFieldReference(name string, declaringType, fieldType TypeDescriptor) *FieldReference {
	return &FieldReference{Name: name, DeclaringType: declaringType, FieldType: fieldType}
}

// FullName renders "FieldType Declaring::Name".
func (f *FieldReference) FullName() string {
	return nameOf(f.FieldType) + " " + nameOf(f.DeclaringType) + "::" + f.Name
}

// Module returns the owning container, or nil when unpublished.
func (f *FieldReference) Module() *Container { return f.module }

// Declarer returns DeclaringType.
func (f *FieldReference) Declarer() TypeDescriptor { return f.DeclaringType }

// Reference returns f.
func (f *FieldReference) Reference() *FieldReference { return f }

func (f *FieldReference) String() string { return f.FullName() }

func (f *FieldReference) setModule(c *Container) { f.module = c }

func nameOf(t TypeDescriptor) string {
	if t == nil {
		return "?"
	}
	return t.FullName()
}
