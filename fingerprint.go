package metaport

import (
	"strings"

	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

// FingerprintKind tags a cache key with the kind of entity it identifies.
type FingerprintKind int

const (
	FingerprintType FingerprintKind = iota
	FingerprintMethod
	FingerprintField
)

// String returns the string representation of the fingerprint kind.
func (k FingerprintKind) String() string {
	switch k {
	case FingerprintType:
		return "type"
	case FingerprintMethod:
		return "method"
	case FingerprintField:
		return "field"
	default:
		return "unknown"
	}
}

// Fingerprint is a transient cache key: the structural signature of an
// entity, tagged with its kind so that types, methods and fields never collide.
//
// Runtime entities are fingerprinted with TypeSignature, MethodSignature and
// FieldSignature; foreign descriptors by their FullName, which follows the
// same grammar.
type Fingerprint struct {
	Kind      FingerprintKind
	Signature string
}

func (f Fingerprint) String() string { return f.Kind.String() + ":" + f.Signature }

func typeKey(sig string) Fingerprint   { return Fingerprint{Kind: FingerprintType, Signature: sig} }
func methodKey(sig string) Fingerprint { return Fingerprint{Kind: FingerprintMethod, Signature: sig} }
func fieldKey(sig string) Fingerprint  { return Fingerprint{Kind: FingerprintField, Signature: sig} }

// TypeSignature renders a runtime type:
//
//	Namespace.Name       namespaced type
//	Declaring/Name       nested type
//	Elem* Elem[] Elem&   pointer, array, by-ref
//	Def<A1,A2>           closed instantiation
//	T                    generic parameter (bare name)
//
// Generic parameters are rendered by name only, so same-named parameters of
// unrelated owners produce the same signature. Nesting deeper than
// DefaultMaxDepth is cut off; the engine fails such types with
// ErrDepthExceeded.
func TypeSignature(t host.Type) string {
	sig, _ := typeSignature(t, DefaultMaxDepth)
	return sig
}

// MethodSignature renders a runtime method against its own declaring type:
//
//	Return Declaring::Name<A1,A2>(P1,P2)
//
// The generic argument list is present only for generic methods.
func MethodSignature(m host.Method) string {
	sig, _ := methodSignature(m, m.DeclaringType(), DefaultMaxDepth)
	return sig
}

// FieldSignature renders a runtime field as "FieldType Declaring::Name".
func FieldSignature(f host.Field) string {
	sig, _ := fieldSignature(f, DefaultMaxDepth)
	return sig
}

func typeSignature(t host.Type, limit int) (string, error) {
	s := signer{limit: limit}
	s.typ(t, 1)
	return s.sb.String(), s.err
}

func methodSignature(m host.Method, declaring host.Type, limit int) (string, error) {
	s := signer{limit: limit}
	s.typ(m.ReturnType(), 1)
	s.sb.WriteByte(' ')
	s.typ(declaring, 1)
	s.sb.WriteString("::")
	s.sb.WriteString(m.Name())
	if m.IsGenericMethod() {
		s.sb.WriteByte('<')
		s.list(m.GenericArguments(), 1)
		s.sb.WriteByte('>')
	}
	s.sb.WriteByte('(')
	for i, p := range m.Parameters() {
		if i > 0 {
			s.sb.WriteByte(',')
		}
		s.typ(p.Type, 1)
	}
	s.sb.WriteByte(')')
	return s.sb.String(), s.err
}

func fieldSignature(f host.Field, limit int) (string, error) {
	s := signer{limit: limit}
	s.typ(f.FieldType(), 1)
	s.sb.WriteByte(' ')
	s.typ(f.DeclaringType(), 1)
	s.sb.WriteString("::")
	s.sb.WriteString(f.Name())
	return s.sb.String(), s.err
}

// signer writes signatures and stops once a type nests past limit, which
// also ends the walk over cyclic host types.
type signer struct {
	sb    strings.Builder
	limit int
	err   error
}

func (s *signer) typ(t host.Type, depth int) {
	if s.err != nil {
		return
	}
	if depth > s.limit {
		s.err = Errorf(CodeDepthExceeded, "type signature nests deeper than %d", s.limit)
		s.sb.WriteByte('?')
		return
	}
	switch {
	case t == nil:
		s.sb.WriteByte('?')
	case t.IsGenericParameter():
		s.sb.WriteString(t.Name())
	case t.HasElementType():
		s.typ(t.ElementType(), depth+1)
		switch {
		case t.IsPointer():
			s.sb.WriteByte('*')
		case t.IsArray():
			s.sb.WriteString("[]")
		case t.IsByRef():
			s.sb.WriteByte('&')
		default:
			s.sb.WriteByte('?')
		}
	case host.IsConstructedType(t):
		s.typ(t.GenericDefinition(), depth+1)
		s.sb.WriteByte('<')
		s.list(t.GenericArguments(), depth+1)
		s.sb.WriteByte('>')
	default:
		if decl := t.DeclaringType(); decl != nil {
			s.typ(decl, depth+1)
			s.sb.WriteByte('/')
		} else if ns := t.Namespace(); ns != "" {
			s.sb.WriteString(ns)
			s.sb.WriteByte('.')
		}
		s.sb.WriteString(t.Name())
	}
}

func (s *signer) list(ts []host.Type, depth int) {
	for i, t := range ts {
		if i > 0 {
			s.sb.WriteByte(',')
		}
		s.typ(t, depth)
	}
}

// containsGenericParameter reports whether t mentions a generic parameter
// anywhere in its composite structure.
func containsGenericParameter(t metadata.TypeDescriptor) bool {
	switch v := t.(type) {
	case *metadata.GenericParameter:
		return true
	case *metadata.GenericInstanceType:
		for _, a := range v.Arguments {
			if containsGenericParameter(a) {
				return true
			}
		}
		return containsGenericParameter(v.Element)
	case metadata.Specification:
		return containsGenericParameter(v.ElementType())
	default:
		return false
	}
}
