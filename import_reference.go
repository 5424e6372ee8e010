package metaport

import (
	"fmt"

	"github.com/broady/metaport/metadata"
)

// ImportTypeReference imports a descriptor owned by another container. A
// descriptor already owned by the destination is returned unchanged, without
// touching the caches or the container.
func (e *Engine) ImportTypeReference(t metadata.TypeDescriptor, ctx *ImportContext) (td metadata.TypeDescriptor, err error) {
	done := e.begin(MetricType)
	defer func() { done(err) }()

	if t == nil {
		return nil, Errorf(CodeInvalidArgument, "type is nil")
	}
	return e.importTypeReference(t, e.contextOrNew(ctx))
}

// ImportMethodReference imports a method descriptor owned by another
// container. Generic instance methods are rebuilt on every call.
func (e *Engine) ImportMethodReference(m metadata.MethodDescriptor, ctx *ImportContext) (md metadata.MethodDescriptor, err error) {
	done := e.begin(MetricMethod)
	defer func() { done(err) }()

	if m == nil {
		return nil, Errorf(CodeInvalidArgument, "method is nil")
	}
	return e.importMethodReference(m, e.contextOrNew(ctx))
}

// ImportFieldReference imports a field descriptor owned by another container.
func (e *Engine) ImportFieldReference(f metadata.FieldDescriptor, ctx *ImportContext) (fd metadata.FieldDescriptor, err error) {
	done := e.begin(MetricField)
	defer func() { done(err) }()

	if f == nil {
		return nil, Errorf(CodeInvalidArgument, "field is nil")
	}
	return e.importFieldReference(f, e.contextOrNew(ctx))
}

func (e *Engine) importTypeReference(t metadata.TypeDescriptor, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	if err := e.checkType(t); err != nil {
		return nil, err
	}
	if t.Module() == e.container {
		return t, nil
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	switch t.Kind() {
	case metadata.KindGenericParameter:
		gp := t.(*metadata.GenericParameter)
		resolved, err := ctx.generic().Resolve(gp.Owner, gp.Position)
		if err != nil {
			return nil, fmt.Errorf("generic parameter %s: %w", gp.Name, err)
		}
		return resolved, nil
	case metadata.KindPlain:
		n, ok := t.(metadata.Nominal)
		if !ok {
			return nil, Errorf(CodeUnsupportedShape, "plain type %s is not nominal", t.FullName())
		}
		return e.importForeignNominal(n.Reference(), ctx)
	case metadata.KindPointer, metadata.KindArray, metadata.KindByRef, metadata.KindGenericInstance:
		return e.importForeignSpec(t, ctx)
	default:
		return nil, Errorf(CodeUnsupportedShape, "unsupported type kind %s", t.Kind()).
			WithDetail("type", t.FullName())
	}
}

// importForeignSpec mirrors importSystemSpec, dispatching on descriptor kinds.
func (e *Engine) importForeignSpec(t metadata.TypeDescriptor, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	slots := *ctx.generic()

	var (
		stack  []metadata.TypeDescriptor
		keys   []Fingerprint
		base   metadata.TypeDescriptor
		layers int
	)
	defer func() { e.leave(layers) }()

	cur := t
	for {
		spec, ok := cur.(metadata.Specification)
		if !ok {
			break
		}
		key := typeKey(cur.FullName())
		if cached, ok := e.lookupType(key); ok {
			base = cached
			break
		}
		if err := e.enter(1); err != nil {
			return nil, err
		}
		layers++
		stack = append(stack, cur)
		keys = append(keys, key)

		cur = spec.ElementType()
		if cur == nil {
			return nil, Errorf(CodeUnsupportedShape, "missing element type in %s", t.FullName())
		}
	}

	if base == nil {
		var err error
		if base, err = e.importTypeReference(cur, ctx); err != nil {
			return nil, err
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		var built metadata.TypeDescriptor
		switch layer := stack[i].(type) {
		case *metadata.PointerType:
			built = metadata.Pointer(base)
		case *metadata.ArrayType:
			built = metadata.Array(base)
		case *metadata.ByRefType:
			built = metadata.ByRef(base)
		case *metadata.GenericInstanceType:
			args := make([]metadata.TypeDescriptor, len(layer.Arguments))
			for j, a := range layer.Arguments {
				if a == nil {
					return nil, Errorf(CodeInvalidArgument, "type argument %d of %s is nil", j, keys[i].Signature)
				}
				*ctx.generic() = slots
				arg, err := e.importTypeReference(a, ctx)
				if err != nil {
					return nil, fmt.Errorf("type argument %d of %s: %w", j, keys[i].Signature, err)
				}
				args[j] = arg
			}
			built = metadata.GenericInstance(base, args...)
		default:
			return nil, Errorf(CodeUnsupportedShape, "unsupported type kind %s", layer.Kind()).
				WithDetail("type", keys[i].Signature)
		}
		if !containsGenericParameter(built) {
			e.publish(keys[i], built)
		}
		base = built
	}

	*ctx.generic() = slots
	return base, nil
}

func (e *Engine) importForeignNominal(t *metadata.TypeReference, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	key := typeKey(t.FullName())
	if cached, ok := e.lookupType(key); ok {
		return cached, nil
	}

	scope, err := e.importScope(t.Scope)
	if err != nil {
		return nil, fmt.Errorf("scope of %s: %w", key.Signature, err)
	}

	var ref *metadata.TypeReference
	if t.DeclaringType != nil {
		ref = metadata.NewTypeReference(t.Name, "", scope, t.ValueType)
		d, err := e.importTypeReference(t.DeclaringType, ctx)
		if err != nil {
			return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
		}
		outer, ok := d.(metadata.Nominal)
		if !ok {
			return nil, Errorf(CodeUnsupportedShape, "declaring type of %s is a %s", key.Signature, d.Kind())
		}
		ref.DeclaringType = outer.Reference()
	} else {
		ref = metadata.NewTypeReference(t.Name, t.Namespace, scope, t.ValueType)
	}

	ctx.EnterType(ref)
	for _, gp := range t.GenericParameters() {
		ref.AddGenericParameter(gp.Name)
	}

	e.publish(key, ref)
	return ref, nil
}

// importScope maps a foreign scope to a destination assembly reference. A
// container scope stands for that container's own assembly.
func (e *Engine) importScope(scope metadata.Scope) (*metadata.AssemblyReference, error) {
	switch s := scope.(type) {
	case *metadata.AssemblyReference:
		if s != nil {
			return e.importAssembly(s.AssemblyName)
		}
	case *metadata.Container:
		if s != nil {
			return e.importAssembly(s.Assembly)
		}
	}
	name := "<nil>"
	if scope != nil {
		name = fmt.Sprintf("%T", scope)
	}
	return nil, Errorf(CodeUnsupportedScope, "scope %s is neither an assembly reference nor a container", name)
}

func (e *Engine) importMethodReference(m metadata.MethodDescriptor, ctx *ImportContext) (metadata.MethodDescriptor, error) {
	if gim, ok := m.(*metadata.GenericInstanceMethod); ok && (gim == nil || gim.ElementMethod == nil) {
		return nil, Errorf(CodeInvalidArgument, "generic instance method has no element method")
	}
	if err := e.checkMethod(m); err != nil {
		return nil, err
	}
	if m.Module() == e.container {
		return m, nil
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	switch v := m.(type) {
	case *metadata.GenericInstanceMethod:
		slots := *ctx.generic()
		elem, err := e.importMethodReference(v.ElementMethod, ctx)
		if err != nil {
			return nil, err
		}
		ref, ok := elem.(*metadata.MethodReference)
		if !ok {
			return nil, Errorf(CodeUnsupportedShape, "element method of %s is a %T", v.FullName(), elem)
		}
		args := make([]metadata.TypeDescriptor, len(v.Arguments))
		for i, a := range v.Arguments {
			if a == nil {
				return nil, Errorf(CodeInvalidArgument, "method type argument %d of %s is nil", i, v.FullName())
			}
			*ctx.generic() = slots
			arg, err := e.importTypeReference(a, ctx)
			if err != nil {
				return nil, fmt.Errorf("method type argument %d of %s: %w", i, v.FullName(), err)
			}
			args[i] = arg
		}
		*ctx.generic() = slots
		return metadata.NewGenericInstanceMethod(ref, args...), nil
	case *metadata.MethodDefinition:
		return e.importForeignMethod(&v.MethodReference, ctx)
	case *metadata.MethodReference:
		return e.importForeignMethod(v, ctx)
	default:
		return nil, Errorf(CodeUnsupportedShape, "unsupported method descriptor %T", m)
	}
}

func (e *Engine) importForeignMethod(m *metadata.MethodReference, ctx *ImportContext) (*metadata.MethodReference, error) {
	key := methodKey(m.FullName())
	if cached, ok := e.lookupMethod(key); ok {
		return cached, nil
	}
	if m.DeclaringType == nil {
		return nil, Errorf(CodeInvalidArgument, "method %s has no declaring type", m.Name)
	}

	ref := metadata.NewMethodReference(m.Name, m.HasThis, m.ExplicitThis, m.CallingConvention)
	decl, err := e.importTypeReference(m.DeclaringType, ctx)
	if err != nil {
		return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
	}
	ref.DeclaringType = decl

	owner, _ := metadata.Unwrap(decl).(metadata.GenericParameterProvider)
	reenter := func() {
		ctx.EnterType(owner)
		ctx.EnterMethod(ref)
	}

	reenter()
	for _, gp := range m.GenericParameters() {
		ref.AddGenericParameter(gp.Name)
	}

	if m.ReturnType != nil {
		reenter()
		ret, err := e.importTypeReference(m.ReturnType, ctx)
		if err != nil {
			return nil, fmt.Errorf("return type of %s: %w", key.Signature, err)
		}
		ref.ReturnType = ret
	}

	for _, p := range m.Parameters {
		if p.ParameterType == nil {
			return nil, Errorf(CodeInvalidArgument, "parameter %s of %s has no type", p.Name, key.Signature)
		}
		reenter()
		pt, err := e.importTypeReference(p.ParameterType, ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter %s of %s: %w", p.Name, key.Signature, err)
		}
		ref.AddParameter(p.Name, pt)
	}

	e.publish(key, ref)
	return ref, nil
}

func (e *Engine) importFieldReference(f metadata.FieldDescriptor, ctx *ImportContext) (metadata.FieldDescriptor, error) {
	fr := f.Reference()
	if fr == nil {
		return nil, Errorf(CodeInvalidArgument, "field is nil")
	}
	if err := e.checkField(fr); err != nil {
		return nil, err
	}
	if fr.Module() == e.container {
		return f, nil
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	key := fieldKey(fr.FullName())
	if cached, ok := e.lookupField(key); ok {
		return cached, nil
	}
	if fr.DeclaringType == nil || fr.FieldType == nil {
		return nil, Errorf(CodeInvalidArgument, "field %s is missing its declaring type or field type", fr.Name)
	}

	decl, err := e.importTypeReference(fr.DeclaringType, ctx)
	if err != nil {
		return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
	}
	if owner, ok := metadata.Unwrap(decl).(metadata.GenericParameterProvider); ok {
		ctx.EnterType(owner)
	}
	ft, err := e.importTypeReference(fr.FieldType, ctx)
	if err != nil {
		return nil, fmt.Errorf("type of %s: %w", key.Signature, err)
	}

	ref := metadata.NewFieldReference(fr.Name, decl, ft)
	e.publish(key, ref)
	return ref, nil
}
