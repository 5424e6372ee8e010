package metadata

import "strings"

// specBase provides the shared element handling of composite descriptors.
type specBase struct {
	// Element is the wrapped type.
	Element TypeDescriptor
}

// ElementType returns the wrapped descriptor.
func (s *specBase) ElementType() TypeDescriptor { return s.Element }

// Module returns the element's container.
func (s *specBase) Module() *Container {
	if s.Element == nil {
		return nil
	}
	return s.Element.Module()
}

func (*specBase) sealed() {}

func (s *specBase) elementName() string {
	if s.Element == nil {
		return "?"
	}
	return s.Element.FullName()
}

// PointerType represents an unmanaged pointer (T*).
type PointerType struct {
	specBase
}

// Kind returns KindPointer.
func (t *PointerType) Kind() Kind { return KindPointer }

// FullName appends "*" to the element's name.
func (t *PointerType) FullName() string { return t.elementName() + "*" }

// Pointer returns a PointerType wrapping element.
func Pointer(element TypeDescriptor) *PointerType {
	return &PointerType{specBase{Element: element}}
}

// ArrayType represents a single-dimensional array (T[]).
type ArrayType struct {
	specBase
}

// Kind returns KindArray.
func (t *ArrayType) Kind() Kind { return KindArray }

// FullName appends "[]" to the element's name.
func (t *ArrayType) FullName() string { return t.elementName() + "[]" }

// Array returns an ArrayType wrapping element.
func Array(element TypeDescriptor) *ArrayType {
	return &ArrayType{specBase{Element: element}}
}

// ByRefType represents a managed reference (T&).
type ByRefType struct {
	specBase
}

// Kind returns KindByRef.
func (t *ByRefType) Kind() Kind { return KindByRef }

// FullName appends "&" to the element's name.
func (t *ByRefType) FullName() string { return t.elementName() + "&" }

// ByRef returns a ByRefType wrapping element.
func ByRef(element TypeDescriptor) *ByRefType {
	return &ByRefType{specBase{Element: element}}
}

// GenericInstanceType is a closed instantiation of a generic definition.
type GenericInstanceType struct {
	specBase

	// Arguments are the type arguments in declared order.
	Arguments []TypeDescriptor
}

// Kind returns KindGenericInstance.
func (t *GenericInstanceType) Kind() Kind { return KindGenericInstance }

// FullName renders "Definition<Arg1,Arg2>".
func (t *GenericInstanceType) FullName() string {
	return t.elementName() + "<" + joinNames(t.Arguments) + ">"
}

// GenericInstance returns an instantiation of element with the given arguments.
func GenericInstance(element TypeDescriptor, args ...TypeDescriptor) *GenericInstanceType {
	return &GenericInstanceType{specBase: specBase{Element: element}, Arguments: args}
}

func (t *PointerType) String() string         { return t.FullName() }
func (t *ArrayType) String() string           { return t.FullName() }
func (t *ByRefType) String() string           { return t.FullName() }
func (t *GenericInstanceType) String() string { return t.FullName() }

func joinNames(types []TypeDescriptor) string {
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "?"
			continue
		}
		names[i] = t.FullName()
	}
	return strings.Join(names, ",")
}
