package metaport

import (
	"fmt"

	"github.com/broady/metaport/metadata"
)

// ImportTypeDefinition clones td, re-resolving every reference it contains
// (base type, interfaces, members, bodies) through ctx. The clone is detached;
// add it to the destination with Container.AddType.
//
// A nil ctx uses a fresh context bound to e. A context without an engine
// produces a structural copy that still points at the source references.
func (e *Engine) ImportTypeDefinition(td *metadata.TypeDefinition, ctx *ImportContext) (out *metadata.TypeDefinition, err error) {
	done := e.begin(MetricDefinition)
	defer func() { done(err) }()

	if td == nil {
		return nil, Errorf(CodeInvalidArgument, "type definition is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	out, err = td.Clone(e.contextOrNew(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to import type definition %s: %w", td.FullName(), err)
	}
	return out, nil
}

// ImportMethodDefinition clones md through ctx. Generic parameters of the
// declaring type resolve against the context's current type, so seed ctx with
// the destination type, for example with NewImportContextFor.
func (e *Engine) ImportMethodDefinition(md *metadata.MethodDefinition, ctx *ImportContext) (out *metadata.MethodDefinition, err error) {
	done := e.begin(MetricDefinition)
	defer func() { done(err) }()

	if md == nil {
		return nil, Errorf(CodeInvalidArgument, "method definition is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	out, err = md.Clone(e.contextOrNew(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to import method definition %s: %w", md.Name, err)
	}
	return out, nil
}

// ImportFieldDefinition clones fd through ctx.
func (e *Engine) ImportFieldDefinition(fd *metadata.FieldDefinition, ctx *ImportContext) (out *metadata.FieldDefinition, err error) {
	done := e.begin(MetricDefinition)
	defer func() { done(err) }()

	if fd == nil {
		return nil, Errorf(CodeInvalidArgument, "field definition is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	out, err = fd.Clone(e.contextOrNew(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to import field definition %s: %w", fd.Name, err)
	}
	return out, nil
}
