package metadata

import (
	"encoding/hex"
	"encoding/json"
)

// JSON serialization support for diagnostics snapshots.
// Descriptors include a "kind" field for type discrimination. Nominal types are
// always rendered in reference form so that member back-links cannot recurse;
// full definitions are only expanded by Container.MarshalJSON.

// MarshalJSON implements json.Marshaler for AssemblyName.
func (n AssemblyName) MarshalJSON() ([]byte, error) {
	var token string
	if len(n.PublicKeyToken) > 0 {
		token = hex.EncodeToString(n.PublicKeyToken)
	}
	return json.Marshal(&struct {
		FullName       string `json:"fullName"`
		Name           string `json:"name"`
		Version        string `json:"version"`
		Culture        string `json:"culture,omitempty"`
		PublicKeyToken string `json:"publicKeyToken,omitempty"`
		HashAlgorithm  uint32 `json:"hashAlgorithm,omitempty"`
	}{
		FullName:       n.FullName(),
		Name:           n.Name,
		Version:        n.Version.String(),
		Culture:        n.Culture,
		PublicKeyToken: token,
		HashAlgorithm:  uint32(n.HashAlgorithm),
	})
}

// MarshalJSON implements json.Marshaler for TypeReference.
func (t *TypeReference) MarshalJSON() ([]byte, error) {
	var scope string
	if t.Scope != nil {
		scope = t.Scope.ScopeName()
	}
	return json.Marshal(&struct {
		Kind              string   `json:"kind"`
		FullName          string   `json:"fullName"`
		Scope             string   `json:"scope,omitempty"`
		ValueType         bool     `json:"valueType,omitempty"`
		GenericParameters []string `json:"genericParameters,omitempty"`
	}{
		Kind:              "plain",
		FullName:          t.FullName(),
		Scope:             scope,
		ValueType:         t.ValueType,
		GenericParameters: parameterNames(t.genericParameters),
	})
}

// MarshalJSON implements json.Marshaler for PointerType.
func (t *PointerType) MarshalJSON() ([]byte, error) { return marshalSpec("pointer", t.Element) }

// MarshalJSON implements json.Marshaler for ArrayType.
func (t *ArrayType) MarshalJSON() ([]byte, error) { return marshalSpec("array", t.Element) }

// MarshalJSON implements json.Marshaler for ByRefType.
func (t *ByRefType) MarshalJSON() ([]byte, error) { return marshalSpec("byRef", t.Element) }

func marshalSpec(kind string, element TypeDescriptor) ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string         `json:"kind"`
		Element TypeDescriptor `json:"element"`
	}{
		Kind:    kind,
		Element: element,
	})
}

// MarshalJSON implements json.Marshaler for GenericInstanceType.
func (t *GenericInstanceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind      string           `json:"kind"`
		Element   TypeDescriptor   `json:"element"`
		Arguments []TypeDescriptor `json:"arguments"`
	}{
		Kind:      "genericInstance",
		Element:   t.Element,
		Arguments: t.Arguments,
	})
}

// MarshalJSON implements json.Marshaler for GenericParameter.
func (p *GenericParameter) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind     string `json:"kind"`
		Name     string `json:"name"`
		Position int    `json:"position"`
		Owner    string `json:"owner"`
	}{
		Kind:     "genericParameter",
		Name:     p.Name,
		Position: p.Position,
		Owner:    p.Owner.String(),
	})
}

type parameterJSON struct {
	Name string         `json:"name,omitempty"`
	Type TypeDescriptor `json:"type"`
}

// MarshalJSON implements json.Marshaler for MethodReference.
func (m *MethodReference) MarshalJSON() ([]byte, error) {
	params := make([]parameterJSON, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = parameterJSON{Name: p.Name, Type: p.ParameterType}
	}
	return json.Marshal(&struct {
		Kind              string            `json:"kind"`
		FullName          string            `json:"fullName"`
		Name              string            `json:"name"`
		HasThis           bool              `json:"hasThis,omitempty"`
		ExplicitThis      bool              `json:"explicitThis,omitempty"`
		CallingConvention CallingConvention `json:"callingConvention,omitempty"`
		DeclaringType     TypeDescriptor    `json:"declaringType"`
		ReturnType        TypeDescriptor    `json:"returnType"`
		Parameters        []parameterJSON   `json:"parameters,omitempty"`
		GenericParameters []string          `json:"genericParameters,omitempty"`
	}{
		Kind:              "method",
		FullName:          m.FullName(),
		Name:              m.Name,
		HasThis:           m.HasThis,
		ExplicitThis:      m.ExplicitThis,
		CallingConvention: m.CallingConvention,
		DeclaringType:     m.DeclaringType,
		ReturnType:        m.ReturnType,
		Parameters:        params,
		GenericParameters: parameterNames(m.genericParameters),
	})
}

// MarshalJSON implements json.Marshaler for GenericInstanceMethod.
func (m *GenericInstanceMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind          string           `json:"kind"`
		ElementMethod *MethodReference `json:"elementMethod"`
		Arguments     []TypeDescriptor `json:"arguments"`
	}{
		Kind:          "genericInstanceMethod",
		ElementMethod: m.ElementMethod,
		Arguments:     m.Arguments,
	})
}

// MarshalJSON implements json.Marshaler for FieldReference.
func (f *FieldReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind          string         `json:"kind"`
		Name          string         `json:"name"`
		DeclaringType TypeDescriptor `json:"declaringType"`
		FieldType     TypeDescriptor `json:"fieldType"`
	}{
		Kind:          "field",
		Name:          f.Name,
		DeclaringType: f.DeclaringType,
		FieldType:     f.FieldType,
	})
}

type fieldDefinitionJSON struct {
	Name       string          `json:"name"`
	Type       TypeDescriptor  `json:"type"`
	Attributes FieldAttributes `json:"attributes,omitempty"`
	Constant   any             `json:"constant,omitempty"`
}

type methodDefinitionJSON struct {
	Signature    *MethodReference `json:"signature"`
	Attributes   MethodAttributes `json:"attributes,omitempty"`
	Variables    int              `json:"variables,omitempty"`
	Instructions int              `json:"instructions,omitempty"`
}

type typeDefinitionJSON struct {
	Type        *TypeReference         `json:"type"`
	Attributes  TypeAttributes         `json:"attributes,omitempty"`
	BaseType    TypeDescriptor         `json:"baseType,omitempty"`
	Interfaces  []TypeDescriptor       `json:"interfaces,omitempty"`
	Fields      []fieldDefinitionJSON  `json:"fields,omitempty"`
	Methods     []methodDefinitionJSON `json:"methods,omitempty"`
	NestedTypes []typeDefinitionJSON   `json:"nestedTypes,omitempty"`
}

func newTypeDefinitionJSON(t *TypeDefinition) typeDefinitionJSON {
	out := typeDefinitionJSON{
		Type:       &t.TypeReference,
		Attributes: t.Attributes,
		BaseType:   t.BaseType,
		Interfaces: t.Interfaces,
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, fieldDefinitionJSON{
			Name:       f.Name,
			Type:       f.FieldType,
			Attributes: f.Attributes,
			Constant:   f.Constant,
		})
	}
	for _, m := range t.Methods {
		md := methodDefinitionJSON{Signature: &m.MethodReference, Attributes: m.Attributes}
		if m.Body != nil {
			md.Variables = len(m.Body.Variables)
			md.Instructions = len(m.Body.Instructions)
		}
		out.Methods = append(out.Methods, md)
	}
	for _, n := range t.NestedTypes {
		out.NestedTypes = append(out.NestedTypes, newTypeDefinitionJSON(n))
	}
	return out
}

// MarshalJSON implements json.Marshaler for Container.
func (c *Container) MarshalJSON() ([]byte, error) {
	types := make([]typeDefinitionJSON, len(c.types))
	for i, t := range c.types {
		types[i] = newTypeDefinitionJSON(t)
	}
	return json.Marshal(&struct {
		Name               string               `json:"name"`
		Assembly           AssemblyName         `json:"assembly"`
		AssemblyReferences []*AssemblyReference `json:"assemblyReferences"`
		TypeReferences     []*TypeReference     `json:"typeReferences"`
		MemberReferences   []MemberReference    `json:"memberReferences"`
		Types              []typeDefinitionJSON `json:"types,omitempty"`
	}{
		Name:               c.Name,
		Assembly:           c.Assembly,
		AssemblyReferences: c.assemblyRefs,
		TypeReferences:     c.typeRefs,
		MemberReferences:   c.memberRefs,
		Types:              types,
	})
}

func parameterNames(params []*GenericParameter) []string {
	if len(params) == 0 {
		return nil
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}
