package metaport

import (
	"github.com/broady/metaport/metadata"
)

// ImportContext is threaded by pointer through every recursive import call.
// It carries the GenericContext and, optionally, the engine that resolves
// references into the destination container.
//
// An ImportContext without an engine returns every reference unchanged,
// which clones definitions without importing anything.
type ImportContext struct {
	Generic *GenericContext
	engine  *Engine
}

// NewImportContext creates a context with empty generic slots. engine may be nil.
func NewImportContext(engine *Engine) *ImportContext {
	return &ImportContext{Generic: &GenericContext{}, engine: engine}
}

// NewImportContextFor creates a context seeded from provider; see NewGenericContext.
func NewImportContextFor(engine *Engine, provider metadata.GenericParameterProvider) *ImportContext {
	return &ImportContext{Generic: NewGenericContext(provider), engine: engine}
}

// Engine returns the bound engine, or nil.
func (c *ImportContext) Engine() *Engine { return c.engine }

func (c *ImportContext) generic() *GenericContext {
	if c.Generic == nil {
		c.Generic = &GenericContext{}
	}
	return c.Generic
}

// ImportType resolves t through the bound engine.
func (c *ImportContext) ImportType(t metadata.TypeDescriptor) (metadata.TypeDescriptor, error) {
	if c.engine == nil || t == nil {
		return t, nil
	}
	return c.engine.importTypeReference(t, c)
}

// ImportMethod resolves m through the bound engine.
func (c *ImportContext) ImportMethod(m metadata.MethodDescriptor) (metadata.MethodDescriptor, error) {
	if c.engine == nil || m == nil {
		return m, nil
	}
	return c.engine.importMethodReference(m, c)
}

// ImportField resolves f through the bound engine.
func (c *ImportContext) ImportField(f metadata.FieldDescriptor) (metadata.FieldDescriptor, error) {
	if c.engine == nil || f == nil {
		return f, nil
	}
	return c.engine.importFieldReference(f, c)
}

// EnterType sets the current type.
func (c *ImportContext) EnterType(p metadata.GenericParameterProvider) { c.generic().Type = p }

// EnterMethod sets the current method.
func (c *ImportContext) EnterMethod(p metadata.GenericParameterProvider) { c.generic().Method = p }

// CurrentType returns the current type.
func (c *ImportContext) CurrentType() metadata.GenericParameterProvider { return c.generic().Type }

var _ metadata.Importer = (*ImportContext)(nil)
