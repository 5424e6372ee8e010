package metadata

// Kind identifies the variant of a type descriptor.
type Kind int

const (
	KindPlain            Kind = iota // Nominal type (TypeReference or TypeDefinition)
	KindPointer                      // Unmanaged pointer (T*)
	KindArray                        // Single-dimensional array (T[])
	KindByRef                        // Managed reference (T&)
	KindGenericInstance              // Closed generic instantiation (G<A,B>)
	KindGenericParameter             // Generic parameter placeholder (T)
)

// String returns the string representation of the descriptor kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "Plain"
	case KindPointer:
		return "Pointer"
	case KindArray:
		return "Array"
	case KindByRef:
		return "ByRef"
	case KindGenericInstance:
		return "GenericInstance"
	case KindGenericParameter:
		return "GenericParameter"
	default:
		return "Unknown"
	}
}

// TypeDescriptor is the base interface for all type descriptors.
type TypeDescriptor interface {
	// Kind returns the descriptor variant for type switching.
	Kind() Kind

	// FullName returns the canonical textual form of the type.
	// It is the fingerprint used to deduplicate references within a container.
	FullName() string

	// Module returns the container that owns this descriptor.
	// Returns nil for descriptors that have not been published.
	Module() *Container

	// Ensure only types in this package can implement TypeDescriptor.
	sealed()
}

// Nominal is implemented by named types: *TypeReference and *TypeDefinition.
type Nominal interface {
	TypeDescriptor

	// Reference returns the underlying type reference.
	Reference() *TypeReference
}

// Specification is implemented by composite descriptors that wrap exactly one element.
type Specification interface {
	TypeDescriptor

	// ElementType returns the wrapped descriptor.
	ElementType() TypeDescriptor
}

// Unwrap strips every specification layer and returns the innermost descriptor.
func Unwrap(t TypeDescriptor) TypeDescriptor {
	for {
		spec, ok := t.(Specification)
		if !ok {
			return t
		}
		t = spec.ElementType()
	}
}
