package metaport

import (
	"github.com/broady/metaport/metadata"
)

// GenericContext holds the type and method currently under construction.
// Generic parameters are resolved by position against them.
//
// Both slots are single-valued: the engine overwrites them as it descends
// and never stacks previous values.
type GenericContext struct {
	Type   metadata.GenericParameterProvider
	Method metadata.GenericParameterProvider
}

// NewGenericContext seeds a context from a provider. A type provider fills
// the Type slot. A method provider fills the Method slot and, when its
// declaring type is nominal or an instantiation, the Type slot with the open
// declaring type.
func NewGenericContext(p metadata.GenericParameterProvider) *GenericContext {
	c := &GenericContext{}
	if p == nil {
		return c
	}
	switch p.OwnerKind() {
	case metadata.OwnerType:
		c.Type = p
	case metadata.OwnerMethod:
		c.Method = p
		if m, ok := p.(interface{ Declarer() metadata.TypeDescriptor }); ok && m.Declarer() != nil {
			if owner, ok := metadata.Unwrap(m.Declarer()).(metadata.GenericParameterProvider); ok {
				c.Type = owner
			}
		}
	}
	return c
}

// Resolve returns the parameter at position of the current provider for owner.
func (c *GenericContext) Resolve(owner metadata.OwnerKind, position int) (*metadata.GenericParameter, error) {
	var p metadata.GenericParameterProvider
	switch owner {
	case metadata.OwnerType:
		p = c.Type
	case metadata.OwnerMethod:
		p = c.Method
	default:
		return nil, Errorf(CodeUnsupportedOwner, "generic parameter owner %s is neither a type nor a method", owner).
			WithDetail("position", position)
	}
	if p == nil {
		return nil, Errorf(CodeUnresolvedGenericParameter, "no current %s for generic parameter at position %d", owner, position)
	}
	params := p.GenericParameters()
	if position < 0 || position >= len(params) {
		return nil, Errorf(CodeUnresolvedGenericParameter,
			"generic parameter position %d out of range for %s with %d parameters", position, owner, len(params)).
			WithDetail("position", position)
	}
	return params[position], nil
}
