package metadata

import (
	"errors"
	"testing"
)

// recordingImporter returns every reference unchanged and records the
// generic slots that were current when each type was imported.
type recordingImporter struct {
	typ, method GenericParameterProvider

	seen []importCall
	fail TypeDescriptor
}

type importCall struct {
	desc   TypeDescriptor
	typ    GenericParameterProvider
	method GenericParameterProvider
}

func (r *recordingImporter) ImportType(t TypeDescriptor) (TypeDescriptor, error) {
	if r.fail != nil && t == r.fail {
		return nil, errors.New("refused")
	}
	r.seen = append(r.seen, importCall{desc: t, typ: r.typ, method: r.method})
	return t, nil
}

func (r *recordingImporter) ImportMethod(m MethodDescriptor) (MethodDescriptor, error) { return m, nil }
func (r *recordingImporter) ImportField(f FieldDescriptor) (FieldDescriptor, error)    { return f, nil }
func (r *recordingImporter) EnterType(p GenericParameterProvider)                      { r.typ = p }
func (r *recordingImporter) EnterMethod(p GenericParameterProvider)                    { r.method = p }
func (r *recordingImporter) CurrentType() GenericParameterProvider                     { return r.typ }

func (r *recordingImporter) callFor(t TypeDescriptor) (importCall, bool) {
	for _, c := range r.seen {
		if c.desc == t {
			return c, true
		}
	}
	return importCall{}, false
}

func newListDefinition() (*TypeDefinition, *TypeReference) {
	void := NewTypeReference("Void", "System", nil, true)
	list := NewTypeDefinition("List`1", "System.Collections.Generic", TypePublic, nil)
	tp := list.AddGenericParameter("T")
	list.AddField(NewFieldDefinition("_items", 0, Array(tp)))

	add := NewMethodDefinition("Add", MethodPublic, void)
	add.AddParameter("item", tp)
	list.AddMethod(add)
	return list, void
}

func TestTypeDefinition_CloneRetargetsGenericParameters(t *testing.T) {
	list, _ := newListDefinition()
	imp := &recordingImporter{}

	clone, err := list.Clone(imp)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}

	if clone == list || clone.ID() == list.ID() {
		t.Fatal("Clone() should build a new definition")
	}
	if clone.FullName() != list.FullName() {
		t.Errorf("FullName() = %q, want %q", clone.FullName(), list.FullName())
	}
	gps := clone.GenericParameters()
	if len(gps) != 1 || gps[0].OwnerID != clone.ID() || gps[0].Name != "T" {
		t.Fatalf("cloned generic parameters = %v, want T owned by the clone", gps)
	}

	call, ok := imp.callFor(list.Fields[0].FieldType)
	if !ok {
		t.Fatal("field type was not imported")
	}
	if call.typ != GenericParameterProvider(clone) {
		t.Errorf("field type imported with current type %v, want the clone", call.typ)
	}

	param := list.Methods[0].Parameters[0].ParameterType
	call, ok = imp.callFor(param)
	if !ok {
		t.Fatal("parameter type was not imported")
	}
	if call.typ != GenericParameterProvider(clone) {
		t.Errorf("parameter imported with current type %v, want the clone", call.typ)
	}
	if call.method != GenericParameterProvider(clone.Methods[0]) {
		t.Errorf("parameter imported with current method %v, want the cloned method", call.method)
	}

	if clone.Methods[0].DeclaringType != TypeDescriptor(clone) {
		t.Error("cloned method should be declared by the clone")
	}
	if clone.Fields[0].DeclaringType != TypeDescriptor(clone) {
		t.Error("cloned field should be declared by the clone")
	}
}

func TestTypeDefinition_CloneNested(t *testing.T) {
	outer := NewTypeDefinition("Outer", "Acme", TypePublic, nil)
	outer.AddNestedType(NewTypeDefinition("Inner", "", TypePublic, nil))

	clone, err := outer.Clone(&recordingImporter{})
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if len(clone.NestedTypes) != 1 {
		t.Fatalf("nested types = %d, want 1", len(clone.NestedTypes))
	}
	if got := clone.NestedTypes[0].FullName(); got != "Acme.Outer/Inner" {
		t.Errorf("nested FullName() = %q, want %q", got, "Acme.Outer/Inner")
	}
	if clone.NestedTypes[0].DeclaringType != &clone.TypeReference {
		t.Error("cloned nested type should link the cloned outer type")
	}
}

func TestTypeDefinition_CloneError(t *testing.T) {
	list, _ := newListDefinition()
	imp := &recordingImporter{fail: list.Fields[0].FieldType}

	if _, err := list.Clone(imp); err == nil {
		t.Error("Clone() should propagate importer errors")
	}
}

func TestMethodDefinition_CloneBody(t *testing.T) {
	_, void := newListDefinition()
	str := NewTypeReference("String", "System", nil, false)
	concat := NewMethodReference("Concat", false, false, CallingConventionDefault)
	concat.DeclaringType = str
	concat.ReturnType = str

	ret := &Instruction{Offset: 8, OpCode: "ret"}
	loop := &Instruction{Offset: 0, OpCode: "nop"}
	sw := &Instruction{Offset: 1, OpCode: "switch", Operand: []*Instruction{loop, ret}}
	call := &Instruction{Offset: 6, OpCode: "call", Operand: concat}
	lit := &Instruction{Offset: 7, OpCode: "ldc.data", Operand: []int{1, 2, 3}}
	br := &Instruction{Offset: 2, OpCode: "br", Operand: ret}

	m := NewMethodDefinition("Spin", MethodPublic|MethodStatic, void)
	m.Body = &MethodBody{
		MaxStack:     2,
		InitLocals:   true,
		Variables:    []TypeDescriptor{str},
		Instructions: []*Instruction{loop, sw, br, call, lit, ret},
	}

	clone, err := m.Clone(&recordingImporter{})
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if clone.HasThis {
		t.Error("static method clone should not have this")
	}
	body := clone.Body
	if body == m.Body || len(body.Instructions) != len(m.Body.Instructions) {
		t.Fatal("Clone() should copy the body")
	}
	if body.MaxStack != 2 || !body.InitLocals || len(body.Variables) != 1 {
		t.Errorf("body header = %+v", body)
	}

	cloned := body.Instructions
	if cloned[2].Operand != cloned[5] {
		t.Error("branch should target the cloned instruction")
	}
	targets, ok := cloned[1].Operand.([]*Instruction)
	if !ok || targets[0] != cloned[0] || targets[1] != cloned[5] {
		t.Errorf("switch targets = %v, want the cloned instructions", cloned[1].Operand)
	}
	if cloned[3].Operand != MethodDescriptor(concat) {
		t.Error("method operand should pass through the importer")
	}

	data := cloned[4].Operand.([]int)
	lit.Operand.([]int)[0] = 42
	if data[0] != 1 {
		t.Error("non-reference operands should be deep-copied")
	}
}

func TestMethodDefinition_CloneRejectsForeignBranch(t *testing.T) {
	outside := &Instruction{Offset: 0x40, OpCode: "ret"}
	m := NewMethodDefinition("Bad", MethodPublic, nil)
	m.Body = &MethodBody{Instructions: []*Instruction{{Offset: 0, OpCode: "br", Operand: outside}}}

	if _, err := m.Clone(&recordingImporter{}); err == nil {
		t.Error("Clone() should reject branch targets outside the body")
	}
}

func TestFieldDefinition_CloneConstant(t *testing.T) {
	i32 := NewTypeReference("Int32", "System", nil, true)
	f := NewFieldDefinition("Limits", FieldStatic|FieldLiteral, i32)
	f.Constant = map[string]int{"max": 10}

	clone, err := f.Clone(&recordingImporter{})
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	f.Constant.(map[string]int)["max"] = 99
	if clone.Constant.(map[string]int)["max"] != 10 {
		t.Error("constant should be deep-copied")
	}
	if clone.Attributes != f.Attributes || clone.FieldType != TypeDescriptor(i32) {
		t.Errorf("clone = %+v", clone)
	}
}
