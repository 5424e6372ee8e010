package metadata

import (
	"fmt"

	"github.com/google/uuid"
)

// Loader populates a container from its backing image. It is run at most once,
// by FullLoad.
type Loader func(*Container) error

// Container owns published descriptors: assembly references, type references,
// member references and type definitions. Descriptors are appended, never removed.
//
// Lookups are keyed by the full name a reference had when it was added; renaming
// a descriptor afterwards does not re-key it.
type Container struct {
	// Name is the module name (e.g., "Library.dll").
	Name string

	// Assembly is the identity of the assembly this container belongs to.
	Assembly AssemblyName

	loader Loader
	loaded bool

	assemblyRefs  []*AssemblyReference
	assemblyIndex map[string]*AssemblyReference

	typeRefs  []*TypeReference
	typeIndex map[string]*TypeReference

	memberRefs  []MemberReference
	memberIndex map[string]MemberReference

	types     []*TypeDefinition
	providers map[uuid.UUID]GenericParameterProvider
}

// NewContainer creates an empty container for the given assembly.
func NewContainer(name string, assembly AssemblyName) *Container {
	return &Container{
		Name:          name,
		Assembly:      assembly,
		assemblyIndex: make(map[string]*AssemblyReference),
		typeIndex:     make(map[string]*TypeReference),
		memberIndex:   make(map[string]MemberReference),
		providers:     make(map[uuid.UUID]GenericParameterProvider),
	}
}

// WithLoader sets the loader run by FullLoad.
func (c *Container) WithLoader(l Loader) *Container {
	c.loader = l
	return c
}

// FullLoad runs the loader once. Later calls are no-ops.
func (c *Container) FullLoad() error {
	if c.loaded {
		return nil
	}
	if c.loader != nil {
		if err := c.loader(c); err != nil {
			return fmt.Errorf("failed to load container %s: %w", c.Name, err)
		}
	}
	c.loaded = true
	return nil
}

// Loaded reports whether FullLoad has completed.
func (c *Container) Loaded() bool { return c.loaded }

// ScopeName returns the container name.
func (c *Container) ScopeName() string { return c.Name }

func (*Container) scope() {}

// AssemblyReferences returns the assembly references in insertion order.
func (c *Container) AssemblyReferences() []*AssemblyReference { return c.assemblyRefs }

// AddAssemblyReference appends r. Full names are unique within a container.
func (c *Container) AddAssemblyReference(r *AssemblyReference) error {
	key := r.FullName()
	if _, exists := c.assemblyIndex[key]; exists {
		return fmt.Errorf("duplicate assembly reference: %s", key)
	}
	c.assemblyRefs = append(c.assemblyRefs, r)
	c.assemblyIndex[key] = r
	return nil
}

// LookupAssemblyReference finds an assembly reference by full name.
func (c *Container) LookupAssemblyReference(fullName string) *AssemblyReference {
	return c.assemblyIndex[fullName]
}

// TypeReferences returns the type references in insertion order.
func (c *Container) TypeReferences() []*TypeReference { return c.typeRefs }

// AddTypeReference publishes t in the container.
func (c *Container) AddTypeReference(t *TypeReference) {
	t.setModule(c)
	c.providers[t.id] = t
	c.typeRefs = append(c.typeRefs, t)
	key := t.FullName()
	if _, exists := c.typeIndex[key]; !exists {
		c.typeIndex[key] = t
	}
}

// LookupTypeReference finds a type reference by the full name it had when added.
func (c *Container) LookupTypeReference(fullName string) *TypeReference {
	return c.typeIndex[fullName]
}

// MemberReferences returns the method and field references in insertion order.
func (c *Container) MemberReferences() []MemberReference { return c.memberRefs }

// AddMemberReference publishes m in the container.
func (c *Container) AddMemberReference(m MemberReference) {
	m.setModule(c)
	if p, ok := m.(GenericParameterProvider); ok {
		c.providers[p.ID()] = p
	}
	c.memberRefs = append(c.memberRefs, m)
	key := m.FullName()
	if _, exists := c.memberIndex[key]; !exists {
		c.memberIndex[key] = m
	}
}

// LookupMemberReference finds a member reference by the full name it had when added.
func (c *Container) LookupMemberReference(fullName string) MemberReference {
	return c.memberIndex[fullName]
}

// Types returns the top-level type definitions.
func (c *Container) Types() []*TypeDefinition { return c.types }

// AddType publishes a top-level type definition together with its nested
// types, methods and fields.
func (c *Container) AddType(t *TypeDefinition) {
	c.attach(t)
	c.types = append(c.types, t)
}

func (c *Container) attach(t *TypeDefinition) {
	t.setModule(c)
	t.Scope = c
	c.providers[t.id] = t
	for _, m := range t.Methods {
		m.setModule(c)
		c.providers[m.id] = m
	}
	for _, f := range t.Fields {
		f.setModule(c)
	}
	for _, n := range t.NestedTypes {
		c.attach(n)
	}
}

// Provider resolves a generic parameter owner by arena identity.
func (c *Container) Provider(id uuid.UUID) GenericParameterProvider {
	return c.providers[id]
}

func (t *TypeReference) setModule(c *Container) {
	t.module = c
	for _, gp := range t.genericParameters {
		gp.module = c
	}
}
