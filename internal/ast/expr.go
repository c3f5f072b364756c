package ast

func (*IntLit) expressionNode()         {}
func (*FloatLit) expressionNode()       {}
func (*StringLit) expressionNode()      {}
func (*BoolLit) expressionNode()        {}
func (*NullLit) expressionNode()        {}
func (*Interpolated) expressionNode()   {}
func (*ArrayLit) expressionNode()       {}
func (*Var) expressionNode()            {}
func (*VarVar) expressionNode()         {}
func (*This) expressionNode()           {}
func (*Index) expressionNode()          {}
func (*Prop) expressionNode()           {}
func (*StaticProp) expressionNode()     {}
func (*ClassConst) expressionNode()     {}
func (*ConstRef) expressionNode()       {}
func (*Assign) expressionNode()         {}
func (*AssignRef) expressionNode()      {}
func (*CompoundAssign) expressionNode() {}
func (*IncDec) expressionNode()         {}
func (*Binary) expressionNode()         {}
func (*Unary) expressionNode()          {}
func (*Cast) expressionNode()           {}
func (*Ternary) expressionNode()        {}
func (*Call) expressionNode()           {}
func (*MethodCall) expressionNode()     {}
func (*StaticCall) expressionNode()     {}
func (*New) expressionNode()            {}
func (*InstanceOf) expressionNode()     {}
func (*Isset) expressionNode()          {}

type IntLit struct {
	Position
	Value int64
}

type FloatLit struct {
	Position
	Value float64
}

type StringLit struct {
	Position
	Value string
}

type BoolLit struct {
	Position
	Value bool
}

type NullLit struct {
	Position
}

// Interpolated is a double quoted string with embedded variables, concatenated left to right.
type Interpolated struct {
	Position
	Parts []Expression
}

type ArrayLit struct {
	Position
	Items []*ArrayItem
}

type ArrayItem struct {
	Key   Expression // nil appends
	Value Expression
	ByRef bool
}

// Var is one occurrence of a named variable. State is written by the flow analyzer.
type Var struct {
	Position
	Name  string
	State VarState
}

// VarVar is `$$expr`; it forces a symbol table on the enclosing function.
type VarVar struct {
	Position
	Name Expression
}

type This struct {
	Position
}

// Index is `base[index]`; a nil Index is the append form `base[]`.
type Index struct {
	Position
	Base  Expression
	Index Expression
}

type Prop struct {
	Position
	Object Expression
	Name   string
}

// StaticProp is `Class::$name`. Class may be self, parent or static.
type StaticProp struct {
	Position
	Class string
	Name  string
}

type ClassConst struct {
	Position
	Class string
	Name  string
}

// ConstRef is a bare identifier used as a value.
type ConstRef struct {
	Position
	Name string
}

type Assign struct {
	Position
	Target Expression
	Value  Expression
}

// AssignRef is `$a = &$b`.
type AssignRef struct {
	Position
	Target Expression
	Source Expression
}

// CompoundAssign is `target op= value`; Op is the binary operator without '='.
type CompoundAssign struct {
	Position
	Op     string
	Target Expression
	Value  Expression
}

type IncDec struct {
	Position
	Target Expression
	Inc    bool
	Prefix bool
}

type Binary struct {
	Position
	Op    string
	Left  Expression
	Right Expression
}

type Unary struct {
	Position
	Op string
	X  Expression
}

// Cast is `(type) x` with Type one of int, float, string, bool, array.
type Cast struct {
	Position
	Type string
	X    Expression
}

// Ternary with a nil Then is the short form `cond ?: else`.
type Ternary struct {
	Position
	Cond Expression
	Then Expression
	Else Expression
}

// Call is a function call by Name, or through Callee when the name is computed.
type Call struct {
	Position
	Name   string
	Callee Expression
	Args   []Expression
}

type MethodCall struct {
	Position
	Object Expression
	Name   string
	Args   []Expression
}

// StaticCall is `Class::name(...)`, including parent:: and self:: forwarding calls.
type StaticCall struct {
	Position
	Class string
	Name  string
	Args  []Expression
}

// New instantiates Class, or the class named by ClassExpr when Class is empty.
type New struct {
	Position
	Class     string
	ClassExpr Expression
	Args      []Expression
}

type InstanceOf struct {
	Position
	X     Expression
	Class string
}

type Isset struct {
	Position
	Targets []Expression
}

func (e *IntLit) String() string         { return Format(e) }
func (e *FloatLit) String() string       { return Format(e) }
func (e *StringLit) String() string      { return Format(e) }
func (e *BoolLit) String() string        { return Format(e) }
func (e *NullLit) String() string        { return Format(e) }
func (e *Interpolated) String() string   { return Format(e) }
func (e *ArrayLit) String() string       { return Format(e) }
func (e *Var) String() string            { return Format(e) }
func (e *VarVar) String() string         { return Format(e) }
func (e *This) String() string           { return Format(e) }
func (e *Index) String() string          { return Format(e) }
func (e *Prop) String() string           { return Format(e) }
func (e *StaticProp) String() string     { return Format(e) }
func (e *ClassConst) String() string     { return Format(e) }
func (e *ConstRef) String() string       { return Format(e) }
func (e *Assign) String() string         { return Format(e) }
func (e *AssignRef) String() string      { return Format(e) }
func (e *CompoundAssign) String() string { return Format(e) }
func (e *IncDec) String() string         { return Format(e) }
func (e *Binary) String() string         { return Format(e) }
func (e *Unary) String() string          { return Format(e) }
func (e *Cast) String() string           { return Format(e) }
func (e *Ternary) String() string        { return Format(e) }
func (e *Call) String() string           { return Format(e) }
func (e *MethodCall) String() string     { return Format(e) }
func (e *StaticCall) String() string     { return Format(e) }
func (e *New) String() string            { return Format(e) }
func (e *InstanceOf) String() string     { return Format(e) }
func (e *Isset) String() string          { return Format(e) }
