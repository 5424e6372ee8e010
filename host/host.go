// Package host defines the closed capability set a hosting runtime exposes to
// the import engine. Each runtime (in-memory builder, reflect, go/types)
// implements these interfaces once; the engine never asks for capabilities
// beyond them.
package host

import "github.com/broady/metaport/metadata"

// Assembly is the runtime identity of a loaded assembly.
type Assembly interface {
	// FullName is the display name used as the assembly cache key.
	FullName() string

	// Name returns the structured identity.
	Name() metadata.AssemblyName
}

// Type is a runtime type.
//
// Exactly one of the following holds: the type is a generic parameter, a
// composite with an element (pointer, array or by-ref), a closed generic
// instantiation, or a nominal type (possibly an open generic definition).
// A type with an element that is none of pointer, array or by-ref is an
// unsupported shape.
type Type interface {
	Name() string
	Namespace() string

	// Assembly returns nil for types without an owning assembly.
	Assembly() Assembly

	IsValueType() bool

	// DeclaringType is non-nil for nested types.
	DeclaringType() Type

	HasElementType() bool
	IsPointer() bool
	IsArray() bool
	IsByRef() bool
	ElementType() Type

	// IsGeneric reports an open definition or a closed instantiation.
	IsGeneric() bool
	IsGenericDefinition() bool
	IsGenericParameter() bool

	// GenericArguments returns the type arguments of an instantiation, or
	// the generic parameters of a definition.
	GenericArguments() []Type

	// GenericDefinition returns the open definition of an instantiation.
	GenericDefinition() Type

	// GenericPosition is the declared position of a generic parameter.
	GenericPosition() int

	// DeclaringMethod is non-nil for method-level generic parameters.
	DeclaringMethod() Method

	// Methods lists the methods and constructors declared on the type.
	Methods() []Method
}

// Parameter is one formal parameter of a runtime method.
type Parameter struct {
	Name string
	Type Type
}

// Method is a runtime method or constructor.
type Method interface {
	Name() string

	// Token identifies the method across every instantiation of its declaring
	// type. It is stable for the lifetime of the runtime.
	Token() int64

	DeclaringType() Type
	IsStatic() bool
	IsConstructor() bool

	// ExplicitThis reports that the instance is passed as an explicit first
	// parameter instead of an implicit receiver.
	ExplicitThis() bool

	// ReturnType is never nil; methods without a result return the runtime's void type.
	ReturnType() Type
	Parameters() []Parameter

	// IsGenericMethod reports an open generic method or a constructed one.
	IsGenericMethod() bool
	IsGenericMethodDefinition() bool

	// GenericArguments returns the type arguments of a constructed method, or
	// the generic parameters of a generic method definition.
	GenericArguments() []Type

	// GenericDefinition returns the open method of a constructed method.
	GenericDefinition() Method

	// CallingConvention reports the convention when the runtime can derive it.
	CallingConvention() (metadata.CallingConvention, bool)
}

// Field is a runtime field.
type Field interface {
	Name() string
	DeclaringType() Type
	FieldType() Type
}

// IsConstructedType reports whether t is a closed generic instantiation.
func IsConstructedType(t Type) bool {
	return t.IsGeneric() && !t.IsGenericDefinition() && !t.IsGenericParameter()
}

// IsConstructedMethod reports whether m is a constructed generic method.
func IsConstructedMethod(m Method) bool {
	return m.IsGenericMethod() && !m.IsGenericMethodDefinition()
}
