// Package metadata defines the descriptor graph that imports are written into:
// nominal types, composite type specifications, generic parameters, method and
// field references, assembly references, full definitions, and the Container
// that owns them.
package metadata

import (
	"github.com/google/uuid"
)

// OwnerKind identifies what declares a generic parameter.
type OwnerKind int

const (
	OwnerNone   OwnerKind = iota // Detached or unknown owner
	OwnerType                    // Declared by a type
	OwnerMethod                  // Declared by a method
)

// String returns the string representation of the owner kind.
func (k OwnerKind) String() string {
	switch k {
	case OwnerType:
		return "Type"
	case OwnerMethod:
		return "Method"
	default:
		return "None"
	}
}

// GenericParameterProvider is implemented by descriptors that declare generic
// parameters: type references, method references and their definitions.
type GenericParameterProvider interface {
	// ID is the provider's identity in its container's arena.
	ID() uuid.UUID

	// OwnerKind reports whether this provider is a type or a method.
	OwnerKind() OwnerKind

	// GenericParameters returns the declared parameters in position order.
	GenericParameters() []*GenericParameter

	Module() *Container
}

// TypeReference is a nominal type: Plain(name, namespace, scope, value-type, generic parameters).
type TypeReference struct {
	id     uuid.UUID
	module *Container

	// Name is the simple type name (e.g., "Dictionary").
	Name string

	// Namespace is empty for types in the global namespace and for nested types.
	Namespace string

	// Scope is the assembly reference or container the type resolves from.
	Scope Scope

	// DeclaringType is set for nested types.
	DeclaringType *TypeReference

	// ValueType is true for value types (structs, enums, primitives).
	ValueType bool

	genericParameters []*GenericParameter
}

// NewTypeReference creates an unpublished type reference.
func NewTypeReference(name, namespace string, scope Scope, valueType bool) *TypeReference {
	return &TypeReference{
		id:        uuid.New(),
		Name:      name,
		Namespace: namespace,
		Scope:     scope,
		ValueType: valueType,
	}
}

// Kind returns KindPlain.
func (t *TypeReference) Kind() Kind { return KindPlain }

// FullName renders "Namespace.Name", "Declaring/Name" for nested types, or the
// bare name for types in the global namespace.
func (t *TypeReference) FullName() string {
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "/" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Module returns the owning container, or nil when unpublished.
func (t *TypeReference) Module() *Container { return t.module }

// Reference returns t.
func (t *TypeReference) Reference() *TypeReference { return t }

// ID returns the arena identity.
func (t *TypeReference) ID() uuid.UUID { return t.id }

// OwnerKind returns OwnerType.
func (t *TypeReference) OwnerKind() OwnerKind { return OwnerType }

// GenericParameters returns the declared generic parameters.
func (t *TypeReference) GenericParameters() []*GenericParameter { return t.genericParameters }

// AddGenericParameter appends a parameter named name at the next position.
func (t *TypeReference) AddGenericParameter(name string) *GenericParameter {
	gp := newGenericParameter(name, len(t.genericParameters), t)
	t.genericParameters = append(t.genericParameters, gp)
	return gp
}

// IsGenericDefinition reports whether the type declares generic parameters.
func (t *TypeReference) IsGenericDefinition() bool { return len(t.genericParameters) > 0 }

func (t *TypeReference) String() string { return t.FullName() }

func (*TypeReference) sealed() {}

// GenericParameter is a placeholder resolved by position against the type or
// method that is current in a generic context.
//
// The parameter records its owner as (OwnerKind, OwnerID) instead of holding
// the owner itself; Container.Provider maps the ID back to the provider.
type GenericParameter struct {
	module *Container

	// Name is the declared parameter name (e.g., "TKey").
	Name string

	// Position is the zero-based index in the owner's parameter list.
	Position int

	// Owner reports whether a type or a method declares the parameter.
	Owner OwnerKind

	// OwnerID is the owner's arena identity.
	OwnerID uuid.UUID
}

func newGenericParameter(name string, position int, owner GenericParameterProvider) *GenericParameter {
	return &GenericParameter{
		module:   owner.Module(),
		Name:     name,
		Position: position,
		Owner:    owner.OwnerKind(),
		OwnerID:  owner.ID(),
	}
}

// NewDetachedGenericParameter creates a parameter with no resolvable owner.
// Importing it fails with an unsupported-owner error unless owner is OwnerType or OwnerMethod.
func NewDetachedGenericParameter(name string, position int, owner OwnerKind) *GenericParameter {
	return &GenericParameter{Name: name, Position: position, Owner: owner}
}

// Kind returns KindGenericParameter.
func (p *GenericParameter) Kind() Kind { return KindGenericParameter }

// FullName returns the bare parameter name.
func (p *GenericParameter) FullName() string { return p.Name }

// Module returns the owner's container.
func (p *GenericParameter) Module() *Container { return p.module }

// ResolveOwner looks the owner up in the module arena.
// Returns nil for parameters whose owner has not been published.
func (p *GenericParameter) ResolveOwner() GenericParameterProvider {
	if p.module == nil {
		return nil
	}
	return p.module.Provider(p.OwnerID)
}

func (p *GenericParameter) String() string { return p.Name }

func (*GenericParameter) sealed() {}
