package metaport

import (
	"fmt"
	"log/slog"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

// ImportSystemType imports a runtime type into the destination container.
// A nil ctx uses a fresh context bound to e.
func (e *Engine) ImportSystemType(t host.Type, ctx *ImportContext) (td metadata.TypeDescriptor, err error) {
	done := e.begin(MetricType)
	defer func() { done(err) }()

	if t == nil {
		return nil, Errorf(CodeInvalidArgument, "type is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	return e.importSystemType(t, e.contextOrNew(ctx))
}

// ImportMethodInfo imports a runtime method. Constructed generic methods are
// rebuilt on every call and are never cached.
func (e *Engine) ImportMethodInfo(m host.Method, ctx *ImportContext) (md metadata.MethodDescriptor, err error) {
	done := e.begin(MetricMethod)
	defer func() { done(err) }()

	if m == nil {
		return nil, Errorf(CodeInvalidArgument, "method is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	return e.importSystemMethod(m, e.contextOrNew(ctx))
}

// ImportConstructorInfo imports a runtime constructor.
func (e *Engine) ImportConstructorInfo(m host.Method, ctx *ImportContext) (md metadata.MethodDescriptor, err error) {
	done := e.begin(MetricMethod)
	defer func() { done(err) }()

	if m == nil {
		return nil, Errorf(CodeInvalidArgument, "constructor is nil")
	}
	if !m.IsConstructor() {
		return nil, Errorf(CodeInvalidArgument, "%s is not a constructor", m.Name())
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	return e.importSystemMethod(m, e.contextOrNew(ctx))
}

// ImportFieldInfo imports a runtime field.
func (e *Engine) ImportFieldInfo(f host.Field, ctx *ImportContext) (fd metadata.FieldDescriptor, err error) {
	done := e.begin(MetricField)
	defer func() { done(err) }()

	if f == nil {
		return nil, Errorf(CodeInvalidArgument, "field is nil")
	}
	if err := e.loadCache(); err != nil {
		return nil, err
	}
	return e.importSystemField(f, e.contextOrNew(ctx))
}

func (e *Engine) contextOrNew(ctx *ImportContext) *ImportContext {
	if ctx == nil {
		return NewImportContext(e)
	}
	return ctx
}

func (e *Engine) importSystemType(t host.Type, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	if t == nil {
		return nil, Errorf(CodeInvalidArgument, "type is nil")
	}
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	switch {
	case t.IsGenericParameter():
		owner := metadata.OwnerType
		if t.DeclaringMethod() != nil {
			owner = metadata.OwnerMethod
		}
		gp, err := ctx.generic().Resolve(owner, t.GenericPosition())
		if err != nil {
			return nil, fmt.Errorf("generic parameter %s: %w", t.Name(), err)
		}
		return gp, nil
	case t.HasElementType() || host.IsConstructedType(t):
		return e.importSystemSpec(t, ctx)
	default:
		return e.importSystemNominal(t, ctx)
	}
}

// importSystemSpec unwraps composite and instantiation layers down to a
// nominal base or generic parameter, imports the base, then rebuilds the
// layers in reverse order. Layers without generic parameters are cached.
func (e *Engine) importSystemSpec(t host.Type, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	slots := *ctx.generic()

	var (
		stack  []host.Type
		keys   []Fingerprint
		base   metadata.TypeDescriptor
		layers int
	)
	defer func() { e.leave(layers) }()

	cur := t
	for cur.HasElementType() || host.IsConstructedType(cur) {
		sig, err := e.signType(cur)
		if err != nil {
			return nil, err
		}
		key := typeKey(sig)
		if cached, ok := e.lookupType(key); ok {
			base = cached
			break
		}
		if cur.HasElementType() && !cur.IsPointer() && !cur.IsArray() && !cur.IsByRef() {
			return nil, Errorf(CodeUnsupportedShape, "unsupported element type shape in %s", TypeSignature(t)).
				WithDetail("layer", key.Signature)
		}
		if err := e.enter(1); err != nil {
			return nil, err
		}
		layers++
		stack = append(stack, cur)
		keys = append(keys, key)

		if cur.HasElementType() {
			cur = cur.ElementType()
		} else {
			cur = cur.GenericDefinition()
		}
		if cur == nil {
			return nil, Errorf(CodeUnsupportedShape, "missing element type in %s", TypeSignature(t))
		}
	}

	if base == nil {
		var err error
		if base, err = e.importSystemType(cur, ctx); err != nil {
			return nil, err
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		layer := stack[i]
		var built metadata.TypeDescriptor
		switch {
		case layer.IsPointer():
			built = metadata.Pointer(base)
		case layer.IsArray():
			built = metadata.Array(base)
		case layer.IsByRef():
			built = metadata.ByRef(base)
		default:
			hostArgs := layer.GenericArguments()
			args := make([]metadata.TypeDescriptor, len(hostArgs))
			for j, a := range hostArgs {
				*ctx.generic() = slots
				arg, err := e.importSystemType(a, ctx)
				if err != nil {
					return nil, fmt.Errorf("type argument %d of %s: %w", j, keys[i].Signature, err)
				}
				args[j] = arg
			}
			built = metadata.GenericInstance(base, args...)
		}
		if !containsGenericParameter(built) {
			e.publish(keys[i], built)
		}
		base = built
	}

	*ctx.generic() = slots
	return base, nil
}

func (e *Engine) importSystemNominal(t host.Type, ctx *ImportContext) (metadata.TypeDescriptor, error) {
	sig, err := e.signType(t)
	if err != nil {
		return nil, err
	}
	key := typeKey(sig)
	if cached, ok := e.lookupType(key); ok {
		return cached, nil
	}

	asm := t.Assembly()
	if asm == nil {
		return nil, Errorf(CodeUnsupportedScope, "type %s has no assembly", key.Signature)
	}
	scope, err := e.importAssembly(asm.Name())
	if err != nil {
		return nil, err
	}

	var ref *metadata.TypeReference
	if decl := t.DeclaringType(); decl != nil {
		ref = metadata.NewTypeReference(t.Name(), "", scope, t.IsValueType())
		d, err := e.importSystemType(decl, ctx)
		if err != nil {
			return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
		}
		outer, ok := d.(metadata.Nominal)
		if !ok {
			return nil, Errorf(CodeUnsupportedShape, "declaring type of %s is a %s", key.Signature, d.Kind())
		}
		ref.DeclaringType = outer.Reference()
	} else {
		ref = metadata.NewTypeReference(t.Name(), t.Namespace(), scope, t.IsValueType())
	}

	if t.IsGenericDefinition() {
		for _, p := range t.GenericArguments() {
			ref.AddGenericParameter(p.Name())
		}
	}

	ctx.EnterType(ref)
	e.publish(key, ref)
	return ref, nil
}

func (e *Engine) importSystemMethod(m host.Method, ctx *ImportContext) (metadata.MethodDescriptor, error) {
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	if !host.IsConstructedMethod(m) {
		return e.importSystemMethodReference(m, ctx)
	}

	def := m.GenericDefinition()
	if def == nil {
		return nil, Errorf(CodeUnsupportedShape, "constructed method %s has no definition", m.Name())
	}
	slots := *ctx.generic()
	elem, err := e.importSystemMethodReference(def, ctx)
	if err != nil {
		return nil, err
	}

	hostArgs := m.GenericArguments()
	args := make([]metadata.TypeDescriptor, len(hostArgs))
	for i, a := range hostArgs {
		*ctx.generic() = slots
		arg, err := e.importSystemType(a, ctx)
		if err != nil {
			return nil, fmt.Errorf("method type argument %d of %s: %w", i, m.Name(), err)
		}
		args[i] = arg
	}
	*ctx.generic() = slots
	return metadata.NewGenericInstanceMethod(elem, args...), nil
}

// importSystemMethodReference imports a method that is not a constructed
// generic method. Methods of a closed instantiation are matched by token
// against the open declaring type, so the open signature is imported; when no
// method matches, the closed signature is imported instead.
func (e *Engine) importSystemMethodReference(m host.Method, ctx *ImportContext) (*metadata.MethodReference, error) {
	original := m.DeclaringType()
	if original == nil {
		return nil, Errorf(CodeInvalidArgument, "method %s has no declaring type", m.Name())
	}
	open := original
	for host.IsConstructedType(open) {
		open = open.GenericDefinition()
	}
	if open != original {
		if om := methodByToken(open, m.Token()); om != nil {
			m = om
		} else {
			e.getLogger().Debug("open method not found, importing closed signature",
				slog.String("method", m.Name()),
				slog.String("declaringType", TypeSignature(original)),
				slog.Int64("token", m.Token()))
		}
	}

	sig, err := methodSignature(m, original, e.budget())
	if err != nil {
		return nil, err
	}
	key := methodKey(sig)
	if cached, ok := e.lookupMethod(key); ok {
		return cached, nil
	}

	cc, ok := m.CallingConvention()
	if !ok {
		if e.config.StrictCallingConvention {
			return nil, Errorf(CodeNotImplemented, "calling convention of %s is not available", key.Signature)
		}
		cc = metadata.CallingConventionDefault
	}

	ref := metadata.NewMethodReference(m.Name(), !m.IsStatic(), m.ExplicitThis(), cc)
	decl, err := e.importSystemType(original, ctx)
	if err != nil {
		return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
	}
	ref.DeclaringType = decl

	if m.IsGenericMethodDefinition() {
		for _, p := range m.GenericArguments() {
			ref.AddGenericParameter(p.Name())
		}
	}

	ownerType, err := e.importSystemType(open, ctx)
	if err != nil {
		return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
	}
	owner, _ := metadata.Unwrap(ownerType).(metadata.GenericParameterProvider)
	reenter := func() {
		ctx.EnterType(owner)
		ctx.EnterMethod(ref)
	}

	reenter()
	ret, err := e.importSystemType(m.ReturnType(), ctx)
	if err != nil {
		return nil, fmt.Errorf("return type of %s: %w", key.Signature, err)
	}
	ref.ReturnType = ret

	for _, p := range m.Parameters() {
		reenter()
		pt, err := e.importSystemType(p.Type, ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter %s of %s: %w", p.Name, key.Signature, err)
		}
		ref.AddParameter(p.Name, pt)
	}

	e.publish(key, ref)
	return ref, nil
}

func methodByToken(t host.Type, token int64) host.Method {
	for _, m := range t.Methods() {
		if m.Token() == token {
			return m
		}
	}
	return nil
}

func (e *Engine) importSystemField(f host.Field, ctx *ImportContext) (metadata.FieldDescriptor, error) {
	if err := e.enter(1); err != nil {
		return nil, err
	}
	defer e.leave(1)

	sig, err := fieldSignature(f, e.budget())
	if err != nil {
		return nil, err
	}
	key := fieldKey(sig)
	if cached, ok := e.lookupField(key); ok {
		return cached, nil
	}

	if f.DeclaringType() == nil {
		return nil, Errorf(CodeInvalidArgument, "field %s has no declaring type", f.Name())
	}
	decl, err := e.importSystemType(f.DeclaringType(), ctx)
	if err != nil {
		return nil, fmt.Errorf("declaring type of %s: %w", key.Signature, err)
	}
	if owner, ok := metadata.Unwrap(decl).(metadata.GenericParameterProvider); ok {
		ctx.EnterType(owner)
	}
	ft, err := e.importSystemType(f.FieldType(), ctx)
	if err != nil {
		return nil, fmt.Errorf("type of %s: %w", key.Signature, err)
	}

	ref := metadata.NewFieldReference(f.Name(), decl, ft)
	e.publish(key, ref)
	return ref, nil
}
