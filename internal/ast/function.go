package ast

import "strings"

// Arg is one declared parameter. Default is evaluated in the caller's context at call time.
type Arg struct {
	Name        string
	Default     Expression
	IsReference bool
	IsVariadic  bool
}

// Function is a declared function, method or the top level program body.
type Function struct {
	Position
	Name       string
	Args       []*Arg
	Body       *Block
	ReturnsRef bool
	IsStatic   bool
	IsAbstract bool
	IsFinal    bool
	IsMain     bool // top level code, runs against the global symbol table
	IsGlobal   bool // declared unconditionally at top level
	ClassName  string
	Visibility Visibility

	// Info is written by the flow analyzer and read-only afterwards.
	Info *FunctionInfo
}

func (f *Function) String() string {
	return "function " + f.QualifiedName()
}

// QualifiedName is Class::name for methods and the bare name otherwise.
func (f *Function) QualifiedName() string {
	if f.ClassName != "" {
		return f.ClassName + "::" + f.Name
	}
	return f.Name
}

// Key is the lower cased qualified name; statics and routines are keyed by it.
func (f *Function) Key() string {
	return strings.ToLower(f.QualifiedName())
}

// RequiredArgs counts the leading Args that have no default and are not variadic.
func (f *Function) RequiredArgs() int {
	n := 0
	for i, a := range f.Args {
		if a.Default == nil && !a.IsVariadic {
			n = i + 1
		}
	}
	return n
}

func (f *Function) IsVariadic() bool {
	return len(f.Args) > 0 && f.Args[len(f.Args)-1].IsVariadic
}

// VarState is the liveness of a variable at one point of a function body.
type VarState int

const (
	StateNone VarState = iota
	Valid
	Unknown
	Maybe
)

func (s VarState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Unknown:
		return "unknown"
	case Maybe:
		return "maybe"
	default:
		return "none"
	}
}

// Merge is the confluence of two paths.
func (s VarState) Merge(o VarState) VarState {
	switch {
	case s == Valid && o == Valid:
		return Valid
	case s == Valid || s == Maybe || o == Valid || o == Maybe:
		return Maybe
	default:
		return Unknown
	}
}

// FunctionInfo is the per function result of flow analysis.
type FunctionInfo struct {
	Vars            map[string]*VarInfo
	Order           []string // variable names by first occurrence
	HasReturn       bool     // the body can fall off its end, a terminal return is needed
	UsesSymbolTable bool
	IsVariableArgs  bool
	HasStatics      bool
	CallsOut        bool
	UsesThis        bool
}

// Var returns the info of name, creating it on first use.
func (fi *FunctionInfo) Var(name string) *VarInfo {
	if v, ok := fi.Vars[name]; ok {
		return v
	}
	v := &VarInfo{Name: name, Index: len(fi.Order), ArgIndex: -1}
	fi.Vars[name] = v
	fi.Order = append(fi.Order, name)
	return v
}

// VarInfo carries the storage relevant facts of one variable.
type VarInfo struct {
	Name       string
	Index      int
	IsArgument bool
	ArgIndex   int
	IsAssigned bool
	IsRef      bool
	IsGlobal   bool
	IsStatic   bool
}

// IsReadOnly holds for arguments never written or aliased inside the body.
func (v *VarInfo) IsReadOnly() bool {
	return v.IsArgument && !v.IsAssigned && !v.IsRef && !v.IsGlobal && !v.IsStatic
}

// NeedsCell reports whether the variable must live in a shared cell.
func (v *VarInfo) NeedsCell() bool {
	return v.IsRef || v.IsGlobal || v.IsStatic
}
