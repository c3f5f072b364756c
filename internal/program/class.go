package program

import (
	"quill/internal/ast"
	"strings"
)

// Magic method names, matched case-insensitively.
const (
	MagicConstruct  = "__construct"
	MagicDestruct   = "__destruct"
	MagicGet        = "__get"
	MagicSet        = "__set"
	MagicCall       = "__call"
	MagicCallStatic = "__callStatic"
	MagicInvoke     = "__invoke"
	MagicToString   = "__toString"
	MagicIsset      = "__isset"
	MagicUnset      = "__unset"
)

// Magic indexes the dispatch slots of a class.
type Magic int

const (
	SlotConstruct Magic = iota
	SlotDestruct
	SlotGet
	SlotSet
	SlotCall
	SlotCallStatic
	SlotInvoke
	SlotToString
	SlotIsset
	SlotUnset
	SlotCount
)

var magicNames = [SlotCount]string{
	MagicConstruct, MagicDestruct, MagicGet, MagicSet, MagicCall,
	MagicCallStatic, MagicInvoke, MagicToString, MagicIsset, MagicUnset,
}

func (m Magic) String() string { return magicNames[m] }

// MagicSlot maps a method name onto its slot.
func MagicSlot(name string) (Magic, bool) {
	if !strings.HasPrefix(name, "__") {
		return 0, false
	}
	for i, n := range magicNames {
		if strings.EqualFold(n, name) {
			return Magic(i), true
		}
	}
	return 0, false
}

type ConstDef struct {
	Name  string
	Value ast.Expression
	Owner string
}

// ClassDef is the unlinked definition of a class, interface or trait.
type ClassDef struct {
	Name       string
	Kind       ast.ClassKind
	Parent     string
	Interfaces []string
	Traits     []string
	IsAbstract bool
	IsFinal    bool
	Position   ast.Position

	Functions    *NameMap[*ast.Function]
	Fields       *FieldMap
	StaticFields *FieldMap
	Consts       *NameMap[*ConstDef]
	Magic        [SlotCount]*ast.Function

	Decl *ast.Class
}

// NewClassDef builds the definition of a parsed class from its own members.
func NewClassDef(decl *ast.Class) *ClassDef {
	def := &ClassDef{
		Name:         decl.Name,
		Kind:         decl.Kind,
		Parent:       decl.Parent,
		Interfaces:   decl.Interfaces,
		IsAbstract:   decl.IsAbstract || decl.Kind != ast.KindClass,
		IsFinal:      decl.IsFinal,
		Position:     decl.Position,
		Functions:    NewNameMap[*ast.Function](),
		Fields:       NewFieldMap(),
		StaticFields: NewFieldMap(),
		Consts:       NewNameMap[*ConstDef](),
		Decl:         decl,
	}
	for _, use := range decl.Uses {
		def.Traits = append(def.Traits, use.Traits...)
	}
	for _, c := range decl.Consts {
		def.Consts.Put(c.Name, &ConstDef{Name: c.Name, Value: c.Value, Owner: decl.Name})
	}
	for _, p := range decl.Props {
		f := &FieldDef{
			Name:       p.Name,
			Canonical:  EncodeField(p.Name, p.Visibility, decl.Name),
			Visibility: p.Visibility,
			Owner:      decl.Name,
			Default:    p.Default,
			IsStatic:   p.IsStatic,
		}
		if p.IsStatic {
			def.StaticFields.Put(f)
		} else {
			def.Fields.Put(f)
		}
	}
	for _, m := range decl.Methods {
		def.Functions.Put(m.Name, m)
		if slot, ok := MagicSlot(m.Name); ok {
			def.Magic[slot] = m
		}
	}
	return def
}

// TraitMap returns the composition rules of the class.
func (d *ClassDef) TraitMap() *TraitMap {
	return NewTraitMap(d.Decl.Uses)
}
