// Package memhost is an in-memory host runtime assembled with a builder API.
// It supports every shape the import engine understands: nominal and nested
// types, generic definitions and instantiations, pointers, arrays, by-ref
// types, and generic methods.
package memhost

import (
	"strconv"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

const firstMethodToken = 0x06000001

// Assembly is a runtime assembly holding types built through it.
type Assembly struct {
	name      metadata.AssemblyName
	types     []*Type
	void      *Type
	nextToken int64
}

// NewAssembly creates an empty assembly.
func NewAssembly(name metadata.AssemblyName) *Assembly {
	return &Assembly{name: name, nextToken: firstMethodToken}
}

// FullName returns the display name.
func (a *Assembly) FullName() string { return a.name.FullName() }

// Name returns the structured identity.
func (a *Assembly) Name() metadata.AssemblyName { return a.name }

// Types returns the top-level types in declaration order.
func (a *Assembly) Types() []*Type { return a.types }

// Class declares a reference type. Passing parameter names makes it a generic definition.
func (a *Assembly) Class(namespace, name string, params ...string) *Type {
	return a.declare(namespace, name, false, params)
}

// Struct declares a value type. Passing parameter names makes it a generic definition.
func (a *Assembly) Struct(namespace, name string, params ...string) *Type {
	return a.declare(namespace, name, true, params)
}

// Void returns the assembly's System.Void type, creating it on first use.
func (a *Assembly) Void() *Type {
	if a.void == nil {
		a.void = a.Struct("System", "Void")
	}
	return a.void
}

func (a *Assembly) declare(namespace, name string, valueType bool, params []string) *Type {
	t := newNominal(a, namespace, name, valueType, params)
	a.types = append(a.types, t)
	return t
}

func (a *Assembly) token() int64 {
	tok := a.nextToken
	a.nextToken++
	return tok
}

type shape int

const (
	shapeNominal shape = iota
	shapePointer
	shapeArray
	shapeByRef
	shapeInstance
	shapeParameter
)

// Type is a runtime type. Values are built only through Assembly and Type
// methods.
type Type struct {
	asm       *Assembly
	shape     shape
	name      string
	namespace string
	valueType bool
	declaring *Type

	// element is the wrapped type of a composite, or the definition of an instance.
	element *Type

	params []*Type
	args   []*Type

	position        int
	owner           *Type
	declaringMethod *Method

	methods  []*Method
	fields   []*Field
	nested   []*Type
	instance []*Method
}

func newNominal(a *Assembly, namespace, name string, valueType bool, params []string) *Type {
	t := &Type{asm: a, shape: shapeNominal, name: name, namespace: namespace, valueType: valueType}
	for i, p := range params {
		t.params = append(t.params, &Type{asm: a, shape: shapeParameter, name: p, position: i, owner: t})
	}
	return t
}

// Nested declares a reference type nested in t.
func (t *Type) Nested(name string, params ...string) *Type {
	n := newNominal(t.asm, "", name, false, params)
	n.declaring = t
	t.nested = append(t.nested, n)
	return n
}

// Param returns the type-level generic parameter at position i.
func (t *Type) Param(i int) *Type { return t.params[i] }

// MakePointer returns t*.
func (t *Type) MakePointer() *Type { return t.wrap(shapePointer) }

// MakeArray returns t[].
func (t *Type) MakeArray() *Type { return t.wrap(shapeArray) }

// MakeByRef returns t&.
func (t *Type) MakeByRef() *Type { return t.wrap(shapeByRef) }

func (t *Type) wrap(s shape) *Type {
	return &Type{asm: t.asm, shape: s, element: t}
}

// MakeGeneric instantiates the generic definition t with args. It panics if t
// is not a generic definition or the argument count does not match.
func (t *Type) MakeGeneric(args ...*Type) *Type {
	if !t.IsGenericDefinition() {
		panic("memhost: " + t.name + " is not a generic definition")
	}
	if len(args) != len(t.params) {
		panic("memhost: wrong number of type arguments for " + t.name)
	}
	return &Type{
		asm:       t.asm,
		shape:     shapeInstance,
		name:      t.name,
		namespace: t.namespace,
		valueType: t.valueType,
		declaring: t.declaring,
		element:   t,
		args:      args,
	}
}

// AddMethod declares an instance method returning ret (nil means void).
func (t *Type) AddMethod(name string, ret *Type, params ...*Type) *Method {
	m := t.newMethod(name)
	return m.Signature(ret, params...)
}

// AddStaticMethod declares a static method returning ret (nil means void).
func (t *Type) AddStaticMethod(name string, ret *Type, params ...*Type) *Method {
	m := t.newMethod(name)
	m.static = true
	return m.Signature(ret, params...)
}

// AddGenericMethod declares an instance generic method definition. Set its
// signature with Signature once its parameters are available through Param.
func (t *Type) AddGenericMethod(name string, params ...string) *Method {
	m := t.newMethod(name)
	for i, p := range params {
		m.params = append(m.params, &Type{asm: t.asm, shape: shapeParameter, name: p, position: i, declaringMethod: m})
	}
	m.ret = t.asm.Void()
	return m
}

// AddConstructor declares an instance constructor.
func (t *Type) AddConstructor(params ...*Type) *Method {
	m := t.newMethod(".ctor")
	m.ctor = true
	return m.Signature(nil, params...)
}

func (t *Type) newMethod(name string) *Method {
	m := &Method{name: name, token: t.asm.token(), declaring: t}
	t.methods = append(t.methods, m)
	return m
}

// AddField declares a field of type ft.
func (t *Type) AddField(name string, ft *Type) *Field {
	f := &Field{name: name, declaring: t, fieldType: ft}
	t.fields = append(t.fields, f)
	return f
}

// Method returns the first method named name, or nil.
func (t *Type) Method(name string) *Method {
	for _, m := range t.allMethods() {
		if m.name == name {
			return m
		}
	}
	return nil
}

// Field returns the field named name, or nil. Fields of an instance have
// their types substituted.
func (t *Type) Field(name string) *Field {
	if t.shape == shapeInstance {
		f := t.element.Field(name)
		if f == nil {
			return nil
		}
		return &Field{name: f.name, declaring: t, fieldType: t.substitute(f.fieldType)}
	}
	for _, f := range t.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Name returns the simple name. Instances report their definition's name.
func (t *Type) Name() string {
	if t.element != nil && t.shape != shapeInstance {
		return t.element.Name()
	}
	return t.name
}

// Namespace returns the namespace, empty for nested types.
func (t *Type) Namespace() string { return t.namespace }

// Assembly returns the declaring assembly.
func (t *Type) Assembly() host.Assembly {
	if t.asm == nil {
		return nil
	}
	return t.asm
}

// IsValueType reports whether t is a struct.
func (t *Type) IsValueType() bool { return t.valueType }

// DeclaringType returns the enclosing type of a nested type.
func (t *Type) DeclaringType() host.Type {
	if t.declaring == nil {
		return nil
	}
	return t.declaring
}

// HasElementType reports pointer, array and by-ref types.
func (t *Type) HasElementType() bool { return t.IsPointer() || t.IsArray() || t.IsByRef() }

func (t *Type) IsPointer() bool { return t.shape == shapePointer }
func (t *Type) IsArray() bool   { return t.shape == shapeArray }
func (t *Type) IsByRef() bool   { return t.shape == shapeByRef }

// ElementType returns the wrapped type of a composite.
func (t *Type) ElementType() host.Type {
	if !t.HasElementType() {
		return nil
	}
	return t.element
}

// IsGeneric reports generic definitions and instances.
func (t *Type) IsGeneric() bool { return t.IsGenericDefinition() || t.shape == shapeInstance }

// IsGenericDefinition reports nominal types that declare parameters.
func (t *Type) IsGenericDefinition() bool { return t.shape == shapeNominal && len(t.params) > 0 }

// IsGenericParameter reports generic parameter placeholders.
func (t *Type) IsGenericParameter() bool { return t.shape == shapeParameter }

// GenericArguments returns instance arguments or definition parameters.
func (t *Type) GenericArguments() []host.Type {
	src := t.params
	if t.shape == shapeInstance {
		src = t.args
	}
	out := make([]host.Type, len(src))
	for i, a := range src {
		out[i] = a
	}
	return out
}

// GenericDefinition returns the open definition of an instance.
func (t *Type) GenericDefinition() host.Type {
	switch {
	case t.shape == shapeInstance:
		return t.element
	case t.IsGenericDefinition():
		return t
	default:
		return nil
	}
}

// GenericPosition returns the declared position of a generic parameter.
func (t *Type) GenericPosition() int { return t.position }

// DeclaringMethod returns the method declaring a method-level parameter.
func (t *Type) DeclaringMethod() host.Method {
	if t.declaringMethod == nil {
		return nil
	}
	return t.declaringMethod
}

// Methods returns the declared methods. Methods of an instance carry the
// definition's tokens with type-level parameters substituted.
func (t *Type) Methods() []host.Method {
	ms := t.allMethods()
	out := make([]host.Method, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

func (t *Type) allMethods() []*Method {
	if t.shape != shapeInstance {
		return t.methods
	}
	if t.instance == nil {
		for _, m := range t.element.methods {
			t.instance = append(t.instance, t.instantiateMethod(m))
		}
	}
	return t.instance
}

func (t *Type) instantiateMethod(m *Method) *Method {
	im := &Method{
		name:      m.name,
		token:     m.token,
		declaring: t,
		static:    m.static,
		explicit:  m.explicit,
		ctor:      m.ctor,
		params:    m.params,
		ret:       t.substitute(m.ret),
		cc:        m.cc,
		hasCC:     m.hasCC,
	}
	for _, p := range m.in {
		im.in = append(im.in, host.Parameter{Name: p.Name, Type: t.substitute(p.Type.(*Type))})
	}
	return im
}

// substitute replaces the definition's type-level parameters with t's arguments.
func (t *Type) substitute(x *Type) *Type {
	if x == nil {
		return nil
	}
	switch x.shape {
	case shapeParameter:
		if x.owner == t.element {
			return t.args[x.position]
		}
		return x
	case shapePointer, shapeArray, shapeByRef:
		inner := t.substitute(x.element)
		if inner == x.element {
			return x
		}
		return inner.wrap(x.shape)
	case shapeInstance:
		args := make([]*Type, len(x.args))
		changed := false
		for i, a := range x.args {
			args[i] = t.substitute(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return x
		}
		return x.element.MakeGeneric(args...)
	default:
		return x
	}
}

func (t *Type) String() string {
	switch t.shape {
	case shapePointer:
		return t.element.String() + "*"
	case shapeArray:
		return t.element.String() + "[]"
	case shapeByRef:
		return t.element.String() + "&"
	case shapeParameter:
		return t.name
	}
	name := t.name
	if t.declaring != nil {
		name = t.declaring.String() + "/" + name
	} else if t.namespace != "" {
		name = t.namespace + "." + name
	}
	if t.shape == shapeInstance {
		name += "<"
		for i, a := range t.args {
			if i > 0 {
				name += ","
			}
			name += a.String()
		}
		name += ">"
	}
	return name
}

// Method is a runtime method, constructor, or constructed generic method.
type Method struct {
	name      string
	token     int64
	declaring *Type
	static    bool
	explicit  bool
	ctor      bool
	ret       *Type
	in        []host.Parameter

	// params are the method-level generic parameters of a definition.
	params []*Type

	// definition and args are set on constructed generic methods.
	definition *Method
	args       []*Type

	cc    metadata.CallingConvention
	hasCC bool
}

// Signature sets the return type (nil means void) and parameter types.
// Parameters are named p0, p1, ...
func (m *Method) Signature(ret *Type, params ...*Type) *Method {
	if ret == nil {
		ret = m.declaring.asm.Void()
	}
	m.ret = ret
	m.in = nil
	for i, p := range params {
		m.in = append(m.in, host.Parameter{Name: paramName(i), Type: p})
	}
	return m
}

// WithCallingConvention records a calling convention the runtime can report.
func (m *Method) WithCallingConvention(cc metadata.CallingConvention) *Method {
	m.cc = cc
	m.hasCC = true
	return m
}

// WithExplicitThis marks an instance method whose receiver is passed as an
// explicit first parameter.
func (m *Method) WithExplicitThis() *Method {
	m.explicit = true
	return m
}

// Param returns the method-level generic parameter at position i.
func (m *Method) Param(i int) *Type { return m.params[i] }

// MakeGeneric constructs the generic method definition m with args. It panics
// if m is not a generic method definition.
func (m *Method) MakeGeneric(args ...*Type) *Method {
	if !m.IsGenericMethodDefinition() {
		panic("memhost: " + m.name + " is not a generic method definition")
	}
	return &Method{
		name:       m.name,
		token:      m.token,
		declaring:  m.declaring,
		static:     m.static,
		explicit:   m.explicit,
		ret:        m.ret,
		in:         m.in,
		definition: m,
		args:       args,
	}
}

func (m *Method) Name() string       { return m.name }
func (m *Method) Token() int64       { return m.token }
func (m *Method) IsStatic() bool     { return m.static }
func (m *Method) ExplicitThis() bool { return m.explicit }

// IsConstructor reports constructors.
func (m *Method) IsConstructor() bool { return m.ctor }

// DeclaringType returns the declaring type, possibly an instance.
func (m *Method) DeclaringType() host.Type { return m.declaring }

// ReturnType returns the return type; void for constructors.
func (m *Method) ReturnType() host.Type {
	if m.ret == nil {
		return m.declaring.asm.Void()
	}
	return m.ret
}

// Parameters returns the formal parameters.
func (m *Method) Parameters() []host.Parameter { return m.in }

// IsGenericMethod reports generic method definitions and constructed methods.
func (m *Method) IsGenericMethod() bool { return len(m.params) > 0 || m.definition != nil }

// IsGenericMethodDefinition reports open generic methods.
func (m *Method) IsGenericMethodDefinition() bool { return len(m.params) > 0 && m.definition == nil }

// GenericArguments returns constructed arguments or definition parameters.
func (m *Method) GenericArguments() []host.Type {
	src := m.params
	if m.definition != nil {
		src = m.args
	}
	out := make([]host.Type, len(src))
	for i, a := range src {
		out[i] = a
	}
	return out
}

// GenericDefinition returns the open method of a constructed method.
func (m *Method) GenericDefinition() host.Method {
	if m.definition == nil {
		return nil
	}
	return m.definition
}

// CallingConvention returns the convention set by WithCallingConvention.
func (m *Method) CallingConvention() (metadata.CallingConvention, bool) { return m.cc, m.hasCC }

func (m *Method) String() string { return m.declaring.String() + "::" + m.name }

// Field is a runtime field.
type Field struct {
	name      string
	declaring *Type
	fieldType *Type
}

func (f *Field) Name() string { return f.name }

// DeclaringType returns the declaring type, possibly an instance.
func (f *Field) DeclaringType() host.Type { return f.declaring }

// FieldType returns the field's type.
func (f *Field) FieldType() host.Type { return f.fieldType }

func paramName(i int) string { return "p" + strconv.Itoa(i) }

var (
	_ host.Type   = (*Type)(nil)
	_ host.Method = (*Method)(nil)
	_ host.Field  = (*Field)(nil)
)
