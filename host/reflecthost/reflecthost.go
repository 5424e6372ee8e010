// Package reflecthost exposes Go runtime types (reflect.Type) to the import
// engine.
//
// Runtime reflection has no generic definitions: an instantiation such as
// Box[int] appears as an ordinary named type, so every type is reported as
// nominal or as a pointer/array composite. Packages become assemblies named
// after their import path; predeclared and unnamed types belong to the
// "builtin" assembly.
package reflecthost

import (
	"reflect"
	"strconv"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

// BuiltinAssembly names the assembly of predeclared and unnamed types.
const BuiltinAssembly = "builtin"

// Assembly is a Go package seen as an assembly.
type Assembly struct {
	path string
}

// FullName returns the display name.
func (a *Assembly) FullName() string { return a.Name().FullName() }

// Name returns an identity named after the package path.
func (a *Assembly) Name() metadata.AssemblyName { return metadata.AssemblyName{Name: a.path} }

// Type wraps a reflect.Type. The zero rt denotes the synthetic void type.
type Type struct {
	rt reflect.Type
}

// TypeOf wraps rt.
func TypeOf(rt reflect.Type) *Type { return &Type{rt: rt} }

// Void returns the type reported as the result of functions without results.
func Void() *Type { return &Type{} }

// Reflect returns the wrapped type, nil for void.
func (t *Type) Reflect() reflect.Type { return t.rt }

// Name returns the type name. Unnamed types are named by their Go spelling.
func (t *Type) Name() string {
	if t.rt == nil {
		return "void"
	}
	if n := t.rt.Name(); n != "" {
		return n
	}
	return t.rt.String()
}

// Namespace returns the package path of named types.
func (t *Type) Namespace() string {
	if t.rt == nil || t.rt.Name() == "" {
		return ""
	}
	return t.rt.PkgPath()
}

// Assembly returns the package of a named type, or the builtin assembly.
func (t *Type) Assembly() host.Assembly {
	if ns := t.Namespace(); ns != "" {
		return &Assembly{path: ns}
	}
	return &Assembly{path: BuiltinAssembly}
}

// IsValueType reports types with value semantics.
func (t *Type) IsValueType() bool {
	if t.rt == nil {
		return true
	}
	switch t.rt.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

// DeclaringType is always nil; Go has no nested types.
func (t *Type) DeclaringType() host.Type { return nil }

// HasElementType reports pointers, slices, arrays, maps and channels.
// Maps and channels are not pointer or array shapes.
func (t *Type) HasElementType() bool {
	if t.rt == nil {
		return false
	}
	switch t.rt.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return t.rt.Name() == ""
	default:
		return false
	}
}

func (t *Type) IsPointer() bool { return t.HasElementType() && t.rt.Kind() == reflect.Pointer }

// IsArray reports unnamed slices and arrays.
func (t *Type) IsArray() bool {
	return t.HasElementType() && (t.rt.Kind() == reflect.Slice || t.rt.Kind() == reflect.Array)
}

// IsByRef is always false.
func (t *Type) IsByRef() bool { return false }

// ElementType returns the element of a composite.
func (t *Type) ElementType() host.Type {
	if !t.HasElementType() {
		return nil
	}
	return TypeOf(t.rt.Elem())
}

func (t *Type) IsGeneric() bool               { return false }
func (t *Type) IsGenericDefinition() bool     { return false }
func (t *Type) IsGenericParameter() bool      { return false }
func (t *Type) GenericArguments() []host.Type { return nil }
func (t *Type) GenericDefinition() host.Type  { return nil }
func (t *Type) GenericPosition() int          { return 0 }
func (t *Type) DeclaringMethod() host.Method  { return nil }

// Methods returns the method set of *T for concrete named types, and of T
// for interfaces. The method index is the token.
func (t *Type) Methods() []host.Method {
	set := t.methodSet()
	if set == nil {
		return nil
	}
	out := make([]host.Method, set.NumMethod())
	for i := range out {
		out[i] = t.method(set, i)
	}
	return out
}

// MethodByName returns the named method of t's method set.
func (t *Type) MethodByName(name string) (host.Method, bool) {
	set := t.methodSet()
	if set == nil {
		return nil, false
	}
	m, ok := set.MethodByName(name)
	if !ok {
		return nil, false
	}
	return t.method(set, m.Index), true
}

// FieldByName returns the named struct field.
func (t *Type) FieldByName(name string) (host.Field, bool) {
	if t.rt == nil || t.rt.Kind() != reflect.Struct {
		return nil, false
	}
	sf, ok := t.rt.FieldByName(name)
	if !ok {
		return nil, false
	}
	return &Field{declaring: t, field: sf}, true
}

func (t *Type) methodSet() reflect.Type {
	if t.rt == nil {
		return nil
	}
	switch t.rt.Kind() {
	case reflect.Interface, reflect.Pointer:
		return t.rt
	default:
		return reflect.PointerTo(t.rt)
	}
}

func (t *Type) method(set reflect.Type, i int) *Method {
	rm := set.Method(i)
	ft := rm.Type
	first := 1
	if set.Kind() == reflect.Interface {
		first = 0
	}
	return &Method{name: rm.Name, token: int64(i), declaring: t, fn: ft, first: first}
}

func (t *Type) String() string {
	if t.rt == nil {
		return "void"
	}
	return t.rt.String()
}

// Method is a method of a method set.
type Method struct {
	name      string
	token     int64
	declaring *Type
	fn        reflect.Type

	// first skips the receiver of concrete method types.
	first int
}

func (m *Method) Name() string             { return m.name }
func (m *Method) Token() int64             { return m.token }
func (m *Method) DeclaringType() host.Type { return m.declaring }
func (m *Method) IsStatic() bool           { return false }
func (m *Method) IsConstructor() bool      { return false }
func (m *Method) ExplicitThis() bool       { return false }

// ReturnType returns void, the single result, or an unnamed struct with one
// field per result (R0, R1, ...).
func (m *Method) ReturnType() host.Type {
	switch m.fn.NumOut() {
	case 0:
		return Void()
	case 1:
		return TypeOf(m.fn.Out(0))
	}
	fields := make([]reflect.StructField, m.fn.NumOut())
	for i := range fields {
		fields[i] = reflect.StructField{Name: "R" + strconv.Itoa(i), Type: m.fn.Out(i)}
	}
	return TypeOf(reflect.StructOf(fields))
}

// Parameters returns the inputs after the receiver, named p0, p1, ...
func (m *Method) Parameters() []host.Parameter {
	var out []host.Parameter
	for i := m.first; i < m.fn.NumIn(); i++ {
		out = append(out, host.Parameter{Name: "p" + strconv.Itoa(i-m.first), Type: TypeOf(m.fn.In(i))})
	}
	return out
}

func (m *Method) IsGenericMethod() bool           { return false }
func (m *Method) IsGenericMethodDefinition() bool { return false }
func (m *Method) GenericArguments() []host.Type   { return nil }
func (m *Method) GenericDefinition() host.Method  { return nil }

// CallingConvention is not derivable from reflection.
func (m *Method) CallingConvention() (metadata.CallingConvention, bool) {
	return metadata.CallingConventionDefault, false
}

// Field is a struct field.
type Field struct {
	declaring *Type
	field     reflect.StructField
}

func (f *Field) Name() string             { return f.field.Name }
func (f *Field) DeclaringType() host.Type { return f.declaring }
func (f *Field) FieldType() host.Type     { return TypeOf(f.field.Type) }

var (
	_ host.Type   = (*Type)(nil)
	_ host.Method = (*Method)(nil)
	_ host.Field  = (*Field)(nil)
)
