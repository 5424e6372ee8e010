package metaport

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/viant/gmetric"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/host/memhost"
	"github.com/broady/metaport/host/reflecthost"
	"github.com/broady/metaport/metadata"
)

func TestImportSystemType_Identity(t *testing.T) {
	lib := newCorlib()
	e := NewEngine(newDestination())

	for _, src := range []host.Type{lib.str, lib.list.MakeGeneric(lib.i32), lib.i32.MakeArray()} {
		first, err := e.ImportSystemType(src, NewImportContext(e))
		if err != nil {
			t.Fatalf("ImportSystemType(%s) failed: %v", TypeSignature(src), err)
		}
		second, err := e.ImportSystemType(src, NewImportContext(e))
		if err != nil {
			t.Fatalf("ImportSystemType(%s) failed: %v", TypeSignature(src), err)
		}
		if first != second {
			t.Errorf("%s: repeated imports returned different descriptors", TypeSignature(src))
		}
	}
}

func TestImportSystemType_StructuralRoundTrip(t *testing.T) {
	lib := newCorlib()
	e := NewEngine(newDestination())

	src := lib.i32.MakeByRef().MakeArray().MakePointer()
	got, err := e.ImportSystemType(src, nil)
	if err != nil {
		t.Fatalf("ImportSystemType failed: %v", err)
	}
	if got.FullName() != "System.Int32&[]*" {
		t.Errorf("FullName() = %q, want %q", got.FullName(), "System.Int32&[]*")
	}

	ptr, ok := got.(*metadata.PointerType)
	if !ok {
		t.Fatalf("outer layer is %T", got)
	}
	arr, ok := ptr.Element.(*metadata.ArrayType)
	if !ok {
		t.Fatalf("middle layer is %T", ptr.Element)
	}
	ref, ok := arr.Element.(*metadata.ByRefType)
	if !ok {
		t.Fatalf("inner layer is %T", arr.Element)
	}
	base, ok := ref.Element.(*metadata.TypeReference)
	if !ok {
		t.Fatalf("base is %T", ref.Element)
	}
	if base.FullName() != "System.Int32" || !base.ValueType {
		t.Errorf("base = %s (value type %v), want value type System.Int32", base.FullName(), base.ValueType)
	}
}

func TestImportSystemType_Scenario(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	got, err := e.ImportSystemType(lib.dict.MakeGeneric(lib.str, lib.i32), nil)
	if err != nil {
		t.Fatalf("ImportSystemType failed: %v", err)
	}

	asms := dest.AssemblyReferences()
	if len(asms) != 1 {
		t.Fatalf("got %d assembly references, want 1", len(asms))
	}
	if want := "mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"; asms[0].FullName() != want {
		t.Errorf("assembly = %q, want %q", asms[0].FullName(), want)
	}

	inst, ok := got.(*metadata.GenericInstanceType)
	if !ok {
		t.Fatalf("got %T, want *metadata.GenericInstanceType", got)
	}
	def, ok := inst.Element.(*metadata.TypeReference)
	if !ok {
		t.Fatalf("element is %T, want *metadata.TypeReference", inst.Element)
	}
	if def.Name != "Dictionary`2" {
		t.Errorf("Name = %q, want Dictionary`2", def.Name)
	}
	var params []string
	for _, gp := range def.GenericParameters() {
		params = append(params, gp.Name)
	}
	if want := []string{"TKey", "TValue"}; !slices.Equal(params, want) {
		t.Errorf("generic parameters = %v, want %v", params, want)
	}
	if def.Scope != asms[0] {
		t.Error("definition scope should be the mscorlib reference")
	}

	if len(inst.Arguments) != 2 {
		t.Fatalf("got %d arguments, want 2", len(inst.Arguments))
	}
	if inst.Arguments[0].FullName() != "System.String" || inst.Arguments[1].FullName() != "System.Int32" {
		t.Errorf("arguments = %s, %s", inst.Arguments[0].FullName(), inst.Arguments[1].FullName())
	}
	if !inst.Arguments[1].(*metadata.TypeReference).ValueType {
		t.Error("System.Int32 should be a value type")
	}

	names := typeRefNames(dest)
	slices.Sort(names)
	want := []string{"System.Collections.Generic.Dictionary`2", "System.Int32", "System.String"}
	if !slices.Equal(names, want) {
		t.Errorf("type references = %v, want %v", names, want)
	}
}

func TestImportSystemType_InstantiationSharing(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	a, err := e.ImportSystemType(lib.list.MakeGeneric(lib.i32), nil)
	if err != nil {
		t.Fatalf("ImportSystemType(List<int>) failed: %v", err)
	}
	b, err := e.ImportSystemType(lib.list.MakeGeneric(lib.str), nil)
	if err != nil {
		t.Fatalf("ImportSystemType(List<string>) failed: %v", err)
	}

	ai := a.(*metadata.GenericInstanceType)
	bi := b.(*metadata.GenericInstanceType)
	if ai.Element != bi.Element {
		t.Error("instantiations should share the open definition")
	}
	if ai == bi || ai.FullName() == bi.FullName() {
		t.Error("distinct instantiations should stay distinct")
	}

	var lists int
	for _, name := range typeRefNames(dest) {
		if name == "System.Collections.Generic.List`1" {
			lists++
		}
	}
	if lists != 1 {
		t.Errorf("List`1 referenced %d times, want 1", lists)
	}
}

func TestImportSystemType_AssemblyDedup(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	if _, err := e.ImportSystemType(lib.str, nil); err != nil {
		t.Fatalf("ImportSystemType(String) failed: %v", err)
	}
	if _, err := e.ImportSystemType(lib.i32, nil); err != nil {
		t.Fatalf("ImportSystemType(Int32) failed: %v", err)
	}

	if n := len(dest.AssemblyReferences()); n != 1 {
		t.Errorf("got %d assembly references, want 1", n)
	}
	if n := len(dest.TypeReferences()); n != 2 {
		t.Errorf("got %d type references, want 2", n)
	}
}

func TestImportSystemType_Nested(t *testing.T) {
	asm := memhost.NewAssembly(metadata.AssemblyName{Name: "Acme"})
	outer := asm.Class("Acme.Widgets", "Outer")
	inner := outer.Nested("Inner")

	dest := newDestination()
	e := NewEngine(dest)
	got, err := e.ImportSystemType(inner, nil)
	if err != nil {
		t.Fatalf("ImportSystemType(Inner) failed: %v", err)
	}

	ref := got.(*metadata.TypeReference)
	if want := "Acme.Widgets.Outer/Inner"; ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}
	if ref.Namespace != "" {
		t.Errorf("Namespace = %q, want empty for a nested type", ref.Namespace)
	}
	if ref.DeclaringType == nil {
		t.Fatal("nested type has no declaring type")
	}

	o, err := e.ImportSystemType(outer, nil)
	if err != nil {
		t.Fatalf("ImportSystemType(Outer) failed: %v", err)
	}
	if o != metadata.TypeDescriptor(ref.DeclaringType) {
		t.Error("declaring type should be the cached Outer reference")
	}
	if dest.LookupTypeReference("Acme.Widgets.Outer/Inner") != ref {
		t.Error("destination should index the nested reference")
	}
}

func TestImportSystemType_Errors(t *testing.T) {
	lib := newCorlib()

	t.Run("depth ceiling", func(t *testing.T) {
		e := NewEngine(newDestination()).WithConfig(Config{MaxDepth: 3})
		deep := lib.i32.MakePointer().MakePointer().MakePointer().MakePointer().MakePointer()

		if _, err := e.ImportSystemType(deep, nil); !errors.Is(err, ErrDepthExceeded) {
			t.Errorf("deep import error = %v, want depth_exceeded", err)
		}
		if e.depth != 0 {
			t.Errorf("depth = %d after failure, want 0", e.depth)
		}

		got, err := e.ImportSystemType(lib.i32.MakePointer(), nil)
		if err != nil {
			t.Fatalf("shallow import failed: %v", err)
		}
		if got.FullName() != "System.Int32*" {
			t.Errorf("FullName() = %q, want %q", got.FullName(), "System.Int32*")
		}
	})

	tests := []struct {
		name string
		typ  host.Type
		ctx  func(*Engine) *ImportContext
		want error
	}{
		{"unsupported shape", reflecthost.TypeOf(reflect.TypeOf(map[string]int{})), nil, ErrUnsupportedShape},
		{"unresolved generic parameter", lib.list.Param(0), NewImportContext, ErrUnresolvedGenericParameter},
		{"nil", nil, nil, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(newDestination())
			var ctx *ImportContext
			if tt.ctx != nil {
				ctx = tt.ctx(e)
			}
			if _, err := e.ImportSystemType(tt.typ, ctx); !errors.Is(err, tt.want) {
				t.Errorf("ImportSystemType() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImportMethodInfo_GenericResolution(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	m, err := e.ImportMethodInfo(lib.dict.Method("get_Item"), nil)
	if err != nil {
		t.Fatalf("ImportMethodInfo failed: %v", err)
	}
	ref := m.(*metadata.MethodReference)

	owner := ref.DeclaringType.(*metadata.TypeReference)
	ret, ok := ref.ReturnType.(*metadata.GenericParameter)
	if !ok {
		t.Fatalf("return type is %T, want *metadata.GenericParameter", ref.ReturnType)
	}
	if ret != owner.GenericParameters()[1] || ret.Name != "TValue" {
		t.Errorf("return type = %s, want the owner's TValue", ret.Name)
	}
	if ref.Parameters[0].ParameterType != owner.GenericParameters()[0] {
		t.Error("parameter should be the owner's TKey")
	}

	if !ref.HasThis {
		t.Error("instance method should have this")
	}
	if ref.CallingConvention != metadata.CallingConventionDefault {
		t.Errorf("CallingConvention = %v, want default", ref.CallingConvention)
	}
	if want := "TValue System.Collections.Generic.Dictionary`2::get_Item(TKey)"; ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}
	if dest.LookupMemberReference(ref.FullName()) != ref {
		t.Error("destination should index the imported method")
	}
}

func TestImportMethodInfo_ClosedDeclaringType(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	closed := lib.dict.MakeGeneric(lib.str, lib.i32)
	m, err := e.ImportMethodInfo(closed.Method("get_Item"), NewImportContext(e))
	if err != nil {
		t.Fatalf("ImportMethodInfo failed: %v", err)
	}
	ref := m.(*metadata.MethodReference)

	inst, ok := ref.DeclaringType.(*metadata.GenericInstanceType)
	if !ok {
		t.Fatalf("declaring type is %T", ref.DeclaringType)
	}
	open := inst.Element.(*metadata.TypeReference)

	if ref.ReturnType != open.GenericParameters()[1] {
		t.Error("the open signature should be imported")
	}
	want := "TValue System.Collections.Generic.Dictionary`2<System.String,System.Int32>::get_Item(TKey)"
	if ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}

	again, err := e.ImportMethodInfo(closed.Method("get_Item"), NewImportContext(e))
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if again != ref {
		t.Error("repeated import should return the same reference")
	}
}

// retokened reports a token that matches no method of the open definition.
type retokened struct {
	host.Method
}

func (retokened) Token() int64 { return 0x7fffffff }

func TestImportMethodInfo_TokenFallback(t *testing.T) {
	lib := newCorlib()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewEngine(newDestination()).WithLogger(logger)

	closed := lib.dict.MakeGeneric(lib.str, lib.i32)
	m, err := e.ImportMethodInfo(retokened{closed.Method("get_Item")}, nil)
	if err != nil {
		t.Fatalf("ImportMethodInfo failed: %v", err)
	}

	ref := m.(*metadata.MethodReference)
	want := "System.Int32 System.Collections.Generic.Dictionary`2<System.String,System.Int32>::get_Item(System.String)"
	if ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}
	if !strings.Contains(buf.String(), "open method not found") {
		t.Errorf("log should report the fallback, got %q", buf.String())
	}
}

func TestImportMethodInfo_ConstructedGenericMethod(t *testing.T) {
	lib := newCorlib()
	conv := lib.list.AddGenericMethod("ConvertAll", "TOutput")
	conv.Signature(lib.list.MakeGeneric(conv.Param(0)))
	e := NewEngine(newDestination())

	first, err := e.ImportMethodInfo(conv.MakeGeneric(lib.str), nil)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	second, err := e.ImportMethodInfo(conv.MakeGeneric(lib.str), nil)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	a := first.(*metadata.GenericInstanceMethod)
	b := second.(*metadata.GenericInstanceMethod)
	if a == b {
		t.Error("constructed methods should be rebuilt on every import")
	}
	if a.ElementMethod != b.ElementMethod {
		t.Error("constructed methods should share the element method")
	}
	if a.Arguments[0].FullName() != "System.String" {
		t.Errorf("argument = %q, want System.String", a.Arguments[0].FullName())
	}

	elem := a.ElementMethod
	if len(elem.GenericParameters()) != 1 {
		t.Fatalf("got %d generic parameters, want 1", len(elem.GenericParameters()))
	}
	ret := elem.ReturnType.(*metadata.GenericInstanceType)
	if ret.Arguments[0] != elem.GenericParameters()[0] {
		t.Error("return type should be instantiated over the method's TOutput")
	}
	want := "System.Collections.Generic.List`1<TOutput> System.Collections.Generic.List`1::ConvertAll<TOutput>()"
	if elem.FullName() != want {
		t.Errorf("element FullName() = %q, want %q", elem.FullName(), want)
	}
	want = "System.Collections.Generic.List`1<TOutput> System.Collections.Generic.List`1::ConvertAll<System.String>()"
	if a.FullName() != want {
		t.Errorf("FullName() = %q, want %q", a.FullName(), want)
	}
}

func TestImportMethodInfo_CallingConvention(t *testing.T) {
	lib := newCorlib()
	plain := lib.str.AddStaticMethod("Concat", lib.str, lib.str, lib.str)
	native := lib.str.AddStaticMethod("Native", nil).WithCallingConvention(metadata.CallingConventionStdCall)

	e := NewEngine(newDestination()).WithConfig(Config{StrictCallingConvention: true})

	if _, err := e.ImportMethodInfo(plain, nil); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("default convention: error = %v, want not_implemented", err)
	}

	m, err := e.ImportMethodInfo(native, nil)
	if err != nil {
		t.Fatalf("ImportMethodInfo(Native) failed: %v", err)
	}
	ref := m.(*metadata.MethodReference)
	if ref.CallingConvention != metadata.CallingConventionStdCall {
		t.Errorf("CallingConvention = %v, want stdcall", ref.CallingConvention)
	}
	if ref.HasThis {
		t.Error("static method should not have this")
	}
	if want := "System.Void System.String::Native()"; ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}
}

func TestImportMethodInfo_ThisFlags(t *testing.T) {
	lib := newCorlib()
	invoke := lib.str.AddMethod("Invoke", nil, lib.i32).WithExplicitThis()
	trim := lib.str.AddMethod("Trim", lib.str)
	e := NewEngine(newDestination())

	tests := []struct {
		name         string
		method       host.Method
		hasThis      bool
		explicitThis bool
	}{
		{"explicit receiver", invoke, true, true},
		{"implicit receiver", trim, true, false},
		{"static", lib.str.AddStaticMethod("Empty", lib.str), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.ImportMethodInfo(tt.method, nil)
			if err != nil {
				t.Fatalf("ImportMethodInfo failed: %v", err)
			}
			ref := m.(*metadata.MethodReference)
			if ref.HasThis != tt.hasThis {
				t.Errorf("HasThis = %v, want %v", ref.HasThis, tt.hasThis)
			}
			if ref.ExplicitThis != tt.explicitThis {
				t.Errorf("ExplicitThis = %v, want %v", ref.ExplicitThis, tt.explicitThis)
			}
		})
	}
}

func TestImportConstructorInfo(t *testing.T) {
	lib := newCorlib()
	e := NewEngine(newDestination())

	m, err := e.ImportConstructorInfo(lib.dict.Method(".ctor"), nil)
	if err != nil {
		t.Fatalf("ImportConstructorInfo failed: %v", err)
	}
	ref := m.(*metadata.MethodReference)
	if ref.Name != ".ctor" || !ref.HasThis {
		t.Errorf("got %s (HasThis %v), want an instance .ctor", ref.Name, ref.HasThis)
	}
	if ref.ReturnType.FullName() != "System.Void" {
		t.Errorf("return type = %q, want System.Void", ref.ReturnType.FullName())
	}

	if _, err := e.ImportConstructorInfo(lib.dict.Method("get_Item"), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("non-constructor: error = %v, want invalid_argument", err)
	}
}

func TestImportFieldInfo(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()
	e := NewEngine(dest)

	f, err := e.ImportFieldInfo(lib.list.Field("_items"), nil)
	if err != nil {
		t.Fatalf("ImportFieldInfo failed: %v", err)
	}
	ref := f.(*metadata.FieldReference)
	owner := ref.DeclaringType.(*metadata.TypeReference)
	arr := ref.FieldType.(*metadata.ArrayType)
	if arr.Element != owner.GenericParameters()[0] {
		t.Error("field element should be the owner's T")
	}
	if want := "T[] System.Collections.Generic.List`1::_items"; ref.FullName() != want {
		t.Errorf("FullName() = %q, want %q", ref.FullName(), want)
	}

	again, err := e.ImportFieldInfo(lib.list.Field("_items"), nil)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if again != ref {
		t.Error("repeated import should return the same reference")
	}

	closed, err := e.ImportFieldInfo(lib.list.MakeGeneric(lib.i32).Field("_items"), nil)
	if err != nil {
		t.Fatalf("closed import failed: %v", err)
	}
	if want := "System.Int32[] System.Collections.Generic.List`1<System.Int32>::_items"; closed.FullName() != want {
		t.Errorf("FullName() = %q, want %q", closed.FullName(), want)
	}
	if closed == ref {
		t.Error("closed field should not reuse the open reference")
	}
}

func TestEngine_LazyCache(t *testing.T) {
	lib := newCorlib()
	dest := newDestination()

	existing := metadata.NewAssemblyReference(lib.asm.Name())
	if err := dest.AddAssemblyReference(existing); err != nil {
		t.Fatalf("AddAssemblyReference failed: %v", err)
	}
	str := metadata.NewTypeReference("String", "System", existing, false)
	dest.AddTypeReference(str)

	loads := 0
	dest.WithLoader(func(*metadata.Container) error {
		loads++
		return nil
	})

	e := NewEngine(dest)
	got, err := e.ImportSystemType(lib.str, nil)
	if err != nil {
		t.Fatalf("ImportSystemType(String) failed: %v", err)
	}
	if got != metadata.TypeDescriptor(str) {
		t.Error("existing reference should be reused")
	}

	if _, err := e.ImportSystemType(lib.i32, nil); err != nil {
		t.Fatalf("ImportSystemType(Int32) failed: %v", err)
	}
	if loads != 1 {
		t.Errorf("loader ran %d times, want 1", loads)
	}
	if n := len(dest.AssemblyReferences()); n != 1 {
		t.Errorf("got %d assembly references, want 1", n)
	}

	failing := newDestination().WithLoader(func(*metadata.Container) error {
		return errors.New("truncated image")
	})
	_, err = NewEngine(failing).ImportSystemType(lib.str, nil)
	if err == nil || !strings.Contains(err.Error(), "truncated image") {
		t.Errorf("error = %v, want the loader failure", err)
	}
}

func TestEngine_RenameKeepsCacheKey(t *testing.T) {
	lib := newCorlib()
	e := NewEngine(newDestination())

	got, err := e.ImportSystemType(lib.str, nil)
	if err != nil {
		t.Fatalf("ImportSystemType failed: %v", err)
	}
	got.(*metadata.TypeReference).Name = "a"

	again, err := e.ImportSystemType(lib.str, nil)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if again != got {
		t.Error("renamed reference should still be found by its original key")
	}
}

func TestEngine_Options(t *testing.T) {
	e := NewEngine(newDestination()).WithConfig(Config{LogLevel: "debug"})
	if e.logger == nil {
		t.Error("logger should be set")
	}
	if e.Config().MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", e.Config().MaxDepth, DefaultMaxDepth)
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	e = NewEngine(newDestination()).WithLogger(custom).WithConfig(Config{LogLevel: "trace", MaxDepth: 8})
	if e.logger != custom {
		t.Error("an explicit logger should survive WithConfig")
	}
	if e.Config().MaxDepth != 8 {
		t.Errorf("MaxDepth = %d, want 8", e.Config().MaxDepth)
	}
}

func TestEngine_Metrics(t *testing.T) {
	lib := newCorlib()
	service := gmetric.New()
	e := NewEngine(newDestination()).WithMetrics(service)

	if _, err := e.ImportSystemType(lib.str, nil); err != nil {
		t.Fatalf("ImportSystemType failed: %v", err)
	}
	if _, err := e.ImportSystemType(nil, nil); err == nil {
		t.Fatal("ImportSystemType(nil) should fail")
	}
	if _, err := e.ImportAssembly(metadata.AssemblyName{Name: "System.Core"}); err != nil {
		t.Fatalf("ImportAssembly failed: %v", err)
	}

	if service.LookupOperation(MetricType) == nil {
		t.Errorf("operation %q not registered", MetricType)
	}
	if service.LookupOperation(MetricAssembly) == nil {
		t.Errorf("operation %q not registered", MetricAssembly)
	}
	if service.LookupOperation(MetricField) != nil {
		t.Errorf("operation %q registered without a field import", MetricField)
	}
}

func TestImportAssembly(t *testing.T) {
	dest := newDestination()
	e := NewEngine(dest)

	name, err := metadata.ParseAssemblyName("System.Core, Version=3.5.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089")
	if err != nil {
		t.Fatalf("ParseAssemblyName failed: %v", err)
	}

	a, err := e.ImportAssembly(name)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	b, err := e.ImportAssembly(name)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if a != b {
		t.Error("repeated imports should return the same reference")
	}
	if n := len(dest.AssemblyReferences()); n != 1 {
		t.Errorf("got %d assembly references, want 1", n)
	}

	if _, err := e.ImportAssembly(metadata.AssemblyName{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name: error = %v, want invalid_argument", err)
	}
	if n := len(dest.AssemblyReferences()); n != 1 {
		t.Errorf("got %d assembly references after failure, want 1", n)
	}
}
