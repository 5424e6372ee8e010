package metadata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

// HashAlgorithm identifies the algorithm used to hash an assembly's files.
type HashAlgorithm uint32

const (
	HashNone HashAlgorithm = 0x0000
	HashMD5  HashAlgorithm = 0x8003
	HashSHA1 HashAlgorithm = 0x8004
)

// Version is a four-part assembly version.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// String renders the version as "major.minor.build.revision".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ParseVersion parses a dotted version with two to four numeric parts.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// AssemblyName is the identity of an assembly.
type AssemblyName struct {
	// Name is the simple assembly name (e.g., "mscorlib").
	Name string `validate:"required"`

	Version Version

	// Culture is empty for culture-neutral assemblies.
	Culture string

	// PublicKeyToken is nil for unsigned assemblies.
	PublicKeyToken []byte

	HashAlgorithm HashAlgorithm
}

// FullName renders the display name used to deduplicate assembly references:
//
//	Name, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null
func (n AssemblyName) FullName() string {
	var sb strings.Builder
	sb.WriteString(n.Name)
	sb.WriteString(", Version=")
	sb.WriteString(n.Version.String())
	sb.WriteString(", Culture=")
	if n.Culture == "" {
		sb.WriteString("neutral")
	} else {
		sb.WriteString(n.Culture)
	}
	sb.WriteString(", PublicKeyToken=")
	if len(n.PublicKeyToken) == 0 {
		sb.WriteString("null")
	} else {
		sb.WriteString(hex.EncodeToString(n.PublicKeyToken))
	}
	return sb.String()
}

// displayName holds the key=value pairs of an assembly display name.
type displayName struct {
	Version        string `schema:"Version"`
	Culture        string `schema:"Culture"`
	PublicKeyToken string `schema:"PublicKeyToken"`
}

var displayNameDecoder = newDisplayNameDecoder()

func newDisplayNameDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// ParseAssemblyName parses an assembly display name such as
// "System.Core, Version=3.5.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089".
// Missing pairs keep their zero value.
func ParseAssemblyName(s string) (AssemblyName, error) {
	parts := strings.Split(s, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return AssemblyName{}, fmt.Errorf("assembly name %q has no simple name", s)
	}

	values := make(map[string][]string, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return AssemblyName{}, fmt.Errorf("malformed assembly name pair %q", strings.TrimSpace(part))
		}
		values[strings.TrimSpace(key)] = []string{strings.TrimSpace(value)}
	}

	var dn displayName
	if err := displayNameDecoder.Decode(&dn, values); err != nil {
		return AssemblyName{}, fmt.Errorf("failed to decode assembly name %q: %w", s, err)
	}

	result := AssemblyName{Name: name}
	if dn.Version != "" {
		v, err := ParseVersion(dn.Version)
		if err != nil {
			return AssemblyName{}, err
		}
		result.Version = v
	}
	if dn.Culture != "" && !strings.EqualFold(dn.Culture, "neutral") {
		result.Culture = dn.Culture
	}
	if dn.PublicKeyToken != "" && !strings.EqualFold(dn.PublicKeyToken, "null") {
		token, err := hex.DecodeString(dn.PublicKeyToken)
		if err != nil {
			return AssemblyName{}, fmt.Errorf("invalid public key token %q: %w", dn.PublicKeyToken, err)
		}
		result.PublicKeyToken = token
	}
	return result, nil
}

// Scope is where a nominal type is resolved from: an assembly reference or a container.
type Scope interface {
	// ScopeName returns a human-readable name of the scope.
	ScopeName() string

	scope()
}

// AssemblyReference is an assembly name published in a container.
type AssemblyReference struct {
	AssemblyName
}

// NewAssemblyReference creates an unpublished assembly reference.
func NewAssemblyReference(name AssemblyName) *AssemblyReference {
	name.PublicKeyToken = append([]byte(nil), name.PublicKeyToken...)
	return &AssemblyReference{AssemblyName: name}
}

// ScopeName returns the assembly's full name.
func (r *AssemblyReference) ScopeName() string { return r.FullName() }

func (*AssemblyReference) scope() {}
