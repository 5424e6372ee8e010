// Package gotypes exposes type-checked Go source (go/types) to the import
// engine, with full generics: generic types and functions are definitions,
// instantiations are closed generic instances, and type parameters are
// generic parameters.
//
// Go concepts map onto the engine's model as follows. Each package is an
// assembly named after its import path and versioned from its module.
// Package-level functions are static methods of a synthetic "<Module>" type.
// Functions with several results return a synthetic TupleN instance. Maps and
// channels are reported as unsupported shapes.
package gotypes

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/mod/semver"
	"golang.org/x/tools/go/packages"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

// BuiltinAssembly names the assembly of predeclared and synthetic types.
const BuiltinAssembly = "builtin"

// ModuleTypeName is the name of the synthetic type declaring package-level functions.
const ModuleTypeName = "<Module>"

// Universe owns the packages visible to the engine and the synthetic types
// created for them.
type Universe struct {
	ctxt     *types.Context
	builtin  *types.Package
	pkgs     map[string]*types.Package
	versions map[string]metadata.Version

	// funcParams maps type parameters of generic functions to their function.
	funcParams map[*types.TypeParam]*types.Func

	modules map[*types.Package]*types.Named
	tuples  map[int]*types.Named
	void    *types.Named
}

// New creates an empty universe.
func New() *Universe {
	builtin := types.NewPackage(BuiltinAssembly, BuiltinAssembly)
	void := types.NewNamed(types.NewTypeName(token.NoPos, builtin, "void", nil), types.NewStruct(nil, nil), nil)
	return &Universe{
		ctxt:       types.NewContext(),
		builtin:    builtin,
		pkgs:       make(map[string]*types.Package),
		versions:   make(map[string]metadata.Version),
		funcParams: make(map[*types.TypeParam]*types.Func),
		modules:    make(map[*types.Package]*types.Named),
		tuples:     make(map[int]*types.Named),
		void:       void,
	}
}

// FromPackage creates a universe holding pkg. module may be nil.
func FromPackage(pkg *types.Package, module *packages.Module) *Universe {
	u := New()
	u.Add(pkg, module)
	return u
}

// Load type-checks the packages matching patterns and returns a universe
// holding them.
func Load(ctx context.Context, patterns ...string) (*Universe, error) {
	ctx, span := otel.Tracer("").Start(ctx, "gotypes.Load")
	defer span.End()

	if len(patterns) == 0 {
		return nil, fmt.Errorf("no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedModule,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			err := fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
			span.RecordError(err)
			return nil, err
		}
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found")
	}

	u := New()
	for _, pkg := range pkgs {
		u.Add(pkg.Types, pkg.Module)
	}
	span.SetAttributes(attribute.Int("packages", len(pkgs)))
	return u, nil
}

// Add registers pkg and records the owners of its generic functions'
// type parameters.
func (u *Universe) Add(pkg *types.Package, module *packages.Module) {
	u.pkgs[pkg.Path()] = pkg
	if module != nil {
		u.versions[pkg.Path()] = moduleVersion(module.Version)
	}
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		if fn, ok := scope.Lookup(name).(*types.Func); ok {
			u.recordFunc(fn)
		}
	}
}

func (u *Universe) recordFunc(fn *types.Func) {
	tps := fn.Type().(*types.Signature).TypeParams()
	for i := 0; i < tps.Len(); i++ {
		u.funcParams[tps.At(i)] = fn
	}
}

// moduleVersion converts a module version such as "v1.4.2" or a pseudo-version
// into a four-part version. Invalid or empty versions yield the zero version.
func moduleVersion(v string) metadata.Version {
	if !semver.IsValid(v) {
		return metadata.Version{}
	}
	canonical := semver.Canonical(v)
	core := strings.TrimPrefix(strings.TrimSuffix(canonical, semver.Prerelease(canonical)), "v")
	version, err := metadata.ParseVersion(core)
	if err != nil {
		return metadata.Version{}
	}
	return version
}

// TypeOf wraps t.
func (u *Universe) TypeOf(t types.Type) *Type {
	return &Type{u: u, t: types.Unalias(t)}
}

// Void returns the type reported as the result of functions without results.
func (u *Universe) Void() *Type { return u.TypeOf(u.void) }

func (u *Universe) pkg(path string) (*types.Package, error) {
	pkg, ok := u.pkgs[path]
	if !ok {
		return nil, fmt.Errorf("package %s not loaded", path)
	}
	return pkg, nil
}

// Lookup returns the named type pkgPath.name.
func (u *Universe) Lookup(pkgPath, name string) (*Type, error) {
	pkg, err := u.pkg(pkgPath)
	if err != nil {
		return nil, err
	}
	tn, ok := pkg.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("type %s.%s not found", pkgPath, name)
	}
	return u.TypeOf(tn.Type()), nil
}

// TypeNames returns the exported type names declared in pkgPath, sorted.
func (u *Universe) TypeNames(pkgPath string) ([]string, error) {
	pkg, err := u.pkg(pkgPath)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range pkg.Scope().Names() {
		if tn, ok := pkg.Scope().Lookup(name).(*types.TypeName); ok && tn.Exported() && !tn.IsAlias() {
			names = append(names, name)
		}
	}
	return names, nil
}

// Packages returns the paths of the loaded packages, sorted.
func (u *Universe) Packages() []string {
	paths := make([]string, 0, len(u.pkgs))
	for path := range u.pkgs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// LookupFunc returns the package-level function pkgPath.name.
func (u *Universe) LookupFunc(pkgPath, name string) (*Method, error) {
	pkg, err := u.pkg(pkgPath)
	if err != nil {
		return nil, err
	}
	fn, ok := pkg.Scope().Lookup(name).(*types.Func)
	if !ok {
		return nil, fmt.Errorf("function %s.%s not found", pkgPath, name)
	}
	u.recordFunc(fn)
	return u.newMethod(fn, u.moduleType(pkg), fn.Type().(*types.Signature)), nil
}

// Method returns the method name of t. Methods of instances have their
// signatures instantiated.
func (u *Universe) Method(t *Type, name string) (*Method, error) {
	obj, _, _ := types.LookupFieldOrMethod(t.t, true, t.pkg(), name)
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil, fmt.Errorf("method %s.%s not found", t, name)
	}
	declaring := t
	if ptr, ok := t.t.(*types.Pointer); ok {
		declaring = u.TypeOf(ptr.Elem())
	}
	return u.newMethod(fn, declaring, fn.Type().(*types.Signature)), nil
}

// Field returns the struct field name of t.
func (u *Universe) Field(t *Type, name string) (*Field, error) {
	obj, _, _ := types.LookupFieldOrMethod(t.t, true, t.pkg(), name)
	v, ok := obj.(*types.Var)
	if !ok || !v.IsField() {
		return nil, fmt.Errorf("field %s.%s not found", t, name)
	}
	return &Field{declaring: t, v: v}, nil
}

// Fields returns the exported fields of a struct type, in declaration order.
func (u *Universe) Fields(t *Type) []*Field {
	st, ok := t.t.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	var out []*Field
	for i := 0; i < st.NumFields(); i++ {
		if v := st.Field(i); v.Exported() {
			out = append(out, &Field{declaring: t, v: v})
		}
	}
	return out
}

// Instantiate closes the generic type t over args.
func (u *Universe) Instantiate(t *Type, args ...*Type) (*Type, error) {
	inst, err := types.Instantiate(u.ctxt, t.t, unwrapAll(args), true)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", t, err)
	}
	return u.TypeOf(inst), nil
}

// InstantiateFunc constructs the generic function m over args.
func (u *Universe) InstantiateFunc(m *Method, args ...*Type) (*Method, error) {
	if !m.IsGenericMethodDefinition() {
		return nil, fmt.Errorf("%s is not a generic function", m.fn.Name())
	}
	inst, err := types.Instantiate(u.ctxt, m.sig, unwrapAll(args), true)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", m.fn.Name(), err)
	}
	c := u.newMethod(m.fn, m.declaring, inst.(*types.Signature))
	c.definition = m
	c.args = args
	return c, nil
}

func unwrapAll(ts []*Type) []types.Type {
	out := make([]types.Type, len(ts))
	for i, t := range ts {
		out[i] = t.t
	}
	return out
}

func (u *Universe) moduleType(pkg *types.Package) *Type {
	named, ok := u.modules[pkg]
	if !ok {
		named = types.NewNamed(types.NewTypeName(token.NoPos, pkg, ModuleTypeName, nil), types.NewStruct(nil, nil), nil)
		u.modules[pkg] = named
	}
	return u.TypeOf(named)
}

// tuple returns TupleN[R1, ..., RN] for a result list of length N >= 2.
func (u *Universe) tuple(results *types.Tuple) types.Type {
	n := results.Len()
	def, ok := u.tuples[n]
	if !ok {
		def = types.NewNamed(types.NewTypeName(token.NoPos, u.builtin, "Tuple"+strconv.Itoa(n), nil), nil, nil)
		constraint := types.NewInterfaceType(nil, nil).Complete()
		tparams := make([]*types.TypeParam, n)
		fields := make([]*types.Var, n)
		for i := range tparams {
			tparams[i] = types.NewTypeParam(types.NewTypeName(token.NoPos, u.builtin, "T"+strconv.Itoa(i+1), nil), constraint)
			fields[i] = types.NewField(token.NoPos, u.builtin, "Item"+strconv.Itoa(i+1), tparams[i], false)
		}
		def.SetTypeParams(tparams)
		def.SetUnderlying(types.NewStruct(fields, nil))
		u.tuples[n] = def
	}
	args := make([]types.Type, n)
	for i := range args {
		args[i] = results.At(i).Type()
	}
	inst, err := types.Instantiate(u.ctxt, def, args, false)
	if err != nil {
		panic("gotypes: instantiating " + def.Obj().Name() + ": " + err.Error())
	}
	return inst
}

// Assembly is a Go package seen as an assembly.
type Assembly struct {
	name metadata.AssemblyName
}

// FullName returns the display name.
func (a *Assembly) FullName() string { return a.name.FullName() }

// Name returns the structured identity.
func (a *Assembly) Name() metadata.AssemblyName { return a.name }

// Type wraps a go/types type.
type Type struct {
	u *Universe
	t types.Type
}

// Types returns the wrapped type.
func (t *Type) Types() types.Type { return t.t }

func (t *Type) named() (*types.Named, bool) {
	n, ok := t.t.(*types.Named)
	return n, ok
}

func (t *Type) pkg() *types.Package {
	if n, ok := t.named(); ok {
		return n.Obj().Pkg()
	}
	return nil
}

// Name returns the declared name, the parameter name, or the Go spelling of
// an unnamed type.
func (t *Type) Name() string {
	switch x := t.t.(type) {
	case *types.Named:
		return x.Obj().Name()
	case *types.TypeParam:
		return x.Obj().Name()
	default:
		return x.String()
	}
}

// Namespace returns the package path of named types outside the builtin package.
func (t *Type) Namespace() string {
	pkg := t.pkg()
	if pkg == nil || pkg == t.u.builtin {
		return ""
	}
	return pkg.Path()
}

// Assembly returns the declaring package as an assembly.
func (t *Type) Assembly() host.Assembly {
	path := t.Namespace()
	if path == "" {
		path = BuiltinAssembly
	}
	return &Assembly{name: metadata.AssemblyName{Name: path, Version: t.u.versions[path]}}
}

// IsValueType reports types with value semantics.
func (t *Type) IsValueType() bool {
	switch t.t.Underlying().(type) {
	case *types.Basic, *types.Struct, *types.Array:
		return true
	default:
		return false
	}
}

// DeclaringType is always nil; Go has no nested types.
func (t *Type) DeclaringType() host.Type { return nil }

// HasElementType reports pointers, slices, arrays, maps and channels.
func (t *Type) HasElementType() bool {
	switch t.t.(type) {
	case *types.Pointer, *types.Slice, *types.Array, *types.Map, *types.Chan:
		return true
	default:
		return false
	}
}

func (t *Type) IsPointer() bool {
	_, ok := t.t.(*types.Pointer)
	return ok
}

// IsArray reports slices and arrays.
func (t *Type) IsArray() bool {
	switch t.t.(type) {
	case *types.Slice, *types.Array:
		return true
	default:
		return false
	}
}

// IsByRef is always false.
func (t *Type) IsByRef() bool { return false }

// ElementType returns the element of a composite.
func (t *Type) ElementType() host.Type {
	switch x := t.t.(type) {
	case *types.Pointer:
		return t.u.TypeOf(x.Elem())
	case *types.Slice:
		return t.u.TypeOf(x.Elem())
	case *types.Array:
		return t.u.TypeOf(x.Elem())
	case *types.Map:
		return t.u.TypeOf(x.Elem())
	case *types.Chan:
		return t.u.TypeOf(x.Elem())
	default:
		return nil
	}
}

// IsGeneric reports generic definitions and instances.
func (t *Type) IsGeneric() bool {
	n, ok := t.named()
	return ok && n.TypeParams().Len() > 0
}

// IsGenericDefinition reports uninstantiated generic types.
func (t *Type) IsGenericDefinition() bool {
	n, ok := t.named()
	return ok && n.TypeParams().Len() > 0 && n.TypeArgs().Len() == 0
}

// IsGenericParameter reports type parameters.
func (t *Type) IsGenericParameter() bool {
	_, ok := t.t.(*types.TypeParam)
	return ok
}

// GenericArguments returns instance arguments or definition parameters.
func (t *Type) GenericArguments() []host.Type {
	n, ok := t.named()
	if !ok {
		return nil
	}
	var out []host.Type
	if args := n.TypeArgs(); args.Len() > 0 {
		for i := 0; i < args.Len(); i++ {
			out = append(out, t.u.TypeOf(args.At(i)))
		}
		return out
	}
	params := n.TypeParams()
	for i := 0; i < params.Len(); i++ {
		out = append(out, t.u.TypeOf(params.At(i)))
	}
	return out
}

// GenericDefinition returns the origin of a generic type.
func (t *Type) GenericDefinition() host.Type {
	if !t.IsGeneric() {
		return nil
	}
	n, _ := t.named()
	return t.u.TypeOf(n.Origin())
}

// GenericPosition returns the index of a type parameter.
func (t *Type) GenericPosition() int {
	if tp, ok := t.t.(*types.TypeParam); ok {
		return tp.Index()
	}
	return 0
}

// DeclaringMethod returns the generic function declaring a type parameter,
// or nil for type-level parameters (including method receiver parameters).
func (t *Type) DeclaringMethod() host.Method {
	tp, ok := t.t.(*types.TypeParam)
	if !ok {
		return nil
	}
	fn, ok := t.u.funcParams[tp]
	if !ok {
		return nil
	}
	return t.u.newMethod(fn, t.u.moduleType(fn.Pkg()), fn.Type().(*types.Signature))
}

// Methods returns the declared methods, and the methods of an interface
// underlying type.
func (t *Type) Methods() []host.Method {
	n, ok := t.named()
	if !ok {
		return nil
	}
	var out []host.Method
	for i := 0; i < n.NumMethods(); i++ {
		fn := n.Method(i)
		out = append(out, t.u.newMethod(fn, t, fn.Type().(*types.Signature)))
	}
	if iface, ok := n.Underlying().(*types.Interface); ok {
		for i := 0; i < iface.NumMethods(); i++ {
			fn := iface.Method(i)
			out = append(out, t.u.newMethod(fn, t, fn.Type().(*types.Signature)))
		}
	}
	return out
}

func (t *Type) String() string { return t.t.String() }

// Method is a method, a package-level function, or a constructed generic function.
type Method struct {
	u         *Universe
	fn        *types.Func
	declaring *Type
	sig       *types.Signature

	// definition and args are set on constructed generic functions.
	definition *Method
	args       []*Type
}

func (u *Universe) newMethod(fn *types.Func, declaring *Type, sig *types.Signature) *Method {
	return &Method{u: u, fn: fn, declaring: declaring, sig: sig}
}

// Func returns the underlying function object.
func (m *Method) Func() *types.Func { return m.fn }

func (m *Method) Name() string { return m.fn.Name() }

// Token is the source position of the declaration, shared by every
// instantiation of the declaring type.
func (m *Method) Token() int64 { return int64(m.fn.Origin().Pos()) }

func (m *Method) DeclaringType() host.Type { return m.declaring }
func (m *Method) IsStatic() bool           { return m.sig.Recv() == nil }
func (m *Method) IsConstructor() bool      { return false }

// ExplicitThis is always false; receivers are implicit, and package
// functions are static.
func (m *Method) ExplicitThis() bool { return false }

// ReturnType returns void, the single result, or a TupleN instance.
func (m *Method) ReturnType() host.Type {
	results := m.sig.Results()
	switch results.Len() {
	case 0:
		return m.u.Void()
	case 1:
		return m.u.TypeOf(results.At(0).Type())
	default:
		return m.u.TypeOf(m.u.tuple(results))
	}
}

// Parameters returns the declared parameters. Unnamed parameters are named p0, p1, ...
func (m *Method) Parameters() []host.Parameter {
	params := m.sig.Params()
	out := make([]host.Parameter, params.Len())
	for i := range out {
		v := params.At(i)
		name := v.Name()
		if name == "" || name == "_" {
			name = "p" + strconv.Itoa(i)
		}
		out[i] = host.Parameter{Name: name, Type: m.u.TypeOf(v.Type())}
	}
	return out
}

// IsGenericMethod reports generic functions and their instantiations.
func (m *Method) IsGenericMethod() bool {
	return m.definition != nil || m.sig.TypeParams().Len() > 0
}

// IsGenericMethodDefinition reports uninstantiated generic functions.
func (m *Method) IsGenericMethodDefinition() bool {
	return m.definition == nil && m.sig.TypeParams().Len() > 0
}

// GenericArguments returns instantiation arguments or the function's type parameters.
func (m *Method) GenericArguments() []host.Type {
	var out []host.Type
	if m.definition != nil {
		for _, a := range m.args {
			out = append(out, a)
		}
		return out
	}
	tps := m.sig.TypeParams()
	for i := 0; i < tps.Len(); i++ {
		out = append(out, m.u.TypeOf(tps.At(i)))
	}
	return out
}

// GenericDefinition returns the generic function of an instantiation.
func (m *Method) GenericDefinition() host.Method {
	if m.definition == nil {
		return nil
	}
	return m.definition
}

// CallingConvention is not derivable from Go source.
func (m *Method) CallingConvention() (metadata.CallingConvention, bool) {
	return metadata.CallingConventionDefault, false
}

func (m *Method) String() string { return m.declaring.String() + "." + m.fn.Name() }

// Field is a struct field.
type Field struct {
	declaring *Type
	v         *types.Var
}

func (f *Field) Name() string             { return f.v.Name() }
func (f *Field) DeclaringType() host.Type { return f.declaring }
func (f *Field) FieldType() host.Type     { return f.declaring.u.TypeOf(f.v.Type()) }

var (
	_ host.Type   = (*Type)(nil)
	_ host.Method = (*Method)(nil)
	_ host.Field  = (*Field)(nil)
)
