package ast

type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	default:
		return "class"
	}
}

// Class is the syntax of a class, interface or trait declaration.
type Class struct {
	Position
	Name       string
	Kind       ClassKind
	Parent     string
	Interfaces []string
	IsAbstract bool
	IsFinal    bool
	IsGlobal   bool // declared unconditionally at top level
	Uses       []*TraitUse
	Consts     []*ConstDecl
	Props      []*PropDecl
	Methods    []*Function
}

type ConstDecl struct {
	Position
	Name  string
	Value Expression
}

type PropDecl struct {
	Position
	Name       string
	Default    Expression
	Visibility Visibility
	IsStatic   bool
}

// TraitUse is `use A, B { rules }`.
type TraitUse struct {
	Position
	Traits []string
	Rules  []*TraitRule
}

// TraitRule is either `T::m insteadof U, V` or `[T::]m as [visibility] alias`.
type TraitRule struct {
	Trait         string
	Method        string
	InsteadOf     []string
	Alias         string
	AliasVis      Visibility
	HasVisibility bool
}
