package program

import (
	"quill/internal/ast"
	"strings"
)

// Canonical field names encode visibility in the name itself:
//
//	private   "\x00Owner\x00name"
//	protected "\x00*\x00name"
//	public    "name"
const marker = "\x00"

// ProtectedOwner is the owner segment of protected names.
const ProtectedOwner = "*"

func EncodeField(name string, vis ast.Visibility, owner string) string {
	switch vis {
	case ast.Private:
		return marker + owner + marker + name
	case ast.Protected:
		return marker + ProtectedOwner + marker + name
	default:
		return name
	}
}

// DecodeField splits a canonical name. Owner is "*" for protected and empty for public names.
func DecodeField(canonical string) (name string, vis ast.Visibility, owner string) {
	if !strings.HasPrefix(canonical, marker) {
		return canonical, ast.Public, ""
	}
	rest := canonical[1:]
	i := strings.Index(rest, marker)
	if i < 0 {
		return canonical, ast.Public, ""
	}
	owner, name = rest[:i], rest[i+1:]
	if owner == ProtectedOwner {
		return name, ast.Protected, owner
	}
	return name, ast.Private, owner
}

func IsPrivate(canonical string) bool {
	_, vis, _ := DecodeField(canonical)
	return vis == ast.Private
}

func IsProtected(canonical string) bool {
	_, vis, _ := DecodeField(canonical)
	return vis == ast.Protected
}

func IsPublic(canonical string) bool {
	_, vis, _ := DecodeField(canonical)
	return vis == ast.Public
}

// FieldDef is a declared property.
type FieldDef struct {
	Name       string // simple name
	Canonical  string
	Visibility ast.Visibility
	Owner      string
	Default    ast.Expression
	IsStatic   bool
}

// FieldMap keeps declared fields in insertion order, keyed by canonical name.
type FieldMap struct {
	fields []*FieldDef
	index  map[string]int
}

func NewFieldMap() *FieldMap {
	return &FieldMap{index: make(map[string]int)}
}

// Put adds f or replaces the field of the same canonical name in place.
func (m *FieldMap) Put(f *FieldDef) {
	if i, ok := m.index[f.Canonical]; ok {
		m.fields[i] = f
		return
	}
	m.index[f.Canonical] = len(m.fields)
	m.fields = append(m.fields, f)
}

func (m *FieldMap) Get(canonical string) (*FieldDef, bool) {
	i, ok := m.index[canonical]
	if !ok {
		return nil, false
	}
	return m.fields[i], true
}

// Lookup finds a field by simple name regardless of visibility.
func (m *FieldMap) Lookup(name string) (*FieldDef, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (m *FieldMap) All() []*FieldDef {
	return m.fields
}

func (m *FieldMap) Len() int { return len(m.fields) }
