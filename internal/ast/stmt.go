package ast

func (*Block) statementNode()        {}
func (*ExprStmt) statementNode()     {}
func (*Echo) statementNode()         {}
func (*If) statementNode()           {}
func (*While) statementNode()        {}
func (*DoWhile) statementNode()      {}
func (*For) statementNode()          {}
func (*Foreach) statementNode()      {}
func (*Switch) statementNode()       {}
func (*Break) statementNode()        {}
func (*Continue) statementNode()     {}
func (*Return) statementNode()       {}
func (*Throw) statementNode()        {}
func (*Try) statementNode()          {}
func (*Global) statementNode()       {}
func (*Static) statementNode()       {}
func (*Unset) statementNode()        {}
func (*FunctionDecl) statementNode() {}
func (*ClassDecl) statementNode()    {}

type Block struct {
	Position
	Stmts []Statement
}

type ExprStmt struct {
	Position
	X Expression
}

type Echo struct {
	Position
	Args []Expression
}

// If holds an optional Else; elseif chains nest as an If in Else.
type If struct {
	Position
	Cond Expression
	Then Statement
	Else Statement
}

type While struct {
	Position
	Cond Expression
	Body Statement
}

type DoWhile struct {
	Position
	Body Statement
	Cond Expression
}

// For has comma separated Init, Cond and Step lists. An empty Cond never stops the loop.
type For struct {
	Position
	Init []Expression
	Cond []Expression
	Step []Expression
	Body Statement
}

type Foreach struct {
	Position
	Source Expression
	Key    Expression // may be nil
	Value  Expression
	ByRef  bool
	Body   Statement
}

type Switch struct {
	Position
	Subject Expression
	Cases   []*Case
}

// Case with a nil Match is the default clause.
type Case struct {
	Position
	Match Expression
	Body  []Statement
}

// Break and Continue carry the number of enclosing levels they leave, at least 1.
type Break struct {
	Position
	Depth int
}

type Continue struct {
	Position
	Depth int
}

type Return struct {
	Position
	Value Expression // may be nil
}

type Throw struct {
	Position
	Value Expression
}

type Try struct {
	Position
	Body    *Block
	Catches []*Catch
}

type Catch struct {
	Position
	Types []string
	Var   string // empty when the clause does not bind the exception
	Body  *Block
}

type Global struct {
	Position
	Names []string
}

type Static struct {
	Position
	Vars []*StaticVar
}

// StaticVar is one `static $name = init` declaration. Index numbers the declarations of the
// enclosing function in source order; together with the function name it identifies the cell.
type StaticVar struct {
	Name  string
	Init  Expression
	Index int
}

type Unset struct {
	Position
	Targets []Expression
}

// FunctionDecl declares a function when executed. Top level declarations are also hoisted.
type FunctionDecl struct {
	Position
	Fn *Function
}

type ClassDecl struct {
	Position
	Class *Class
}

func (s *Block) String() string        { return Format(s) }
func (s *ExprStmt) String() string     { return Format(s) }
func (s *Echo) String() string         { return Format(s) }
func (s *If) String() string           { return Format(s) }
func (s *While) String() string        { return Format(s) }
func (s *DoWhile) String() string      { return Format(s) }
func (s *For) String() string          { return Format(s) }
func (s *Foreach) String() string      { return Format(s) }
func (s *Switch) String() string       { return Format(s) }
func (s *Break) String() string        { return Format(s) }
func (s *Continue) String() string     { return Format(s) }
func (s *Return) String() string       { return Format(s) }
func (s *Throw) String() string        { return Format(s) }
func (s *Try) String() string          { return Format(s) }
func (s *Global) String() string       { return Format(s) }
func (s *Static) String() string       { return Format(s) }
func (s *Unset) String() string        { return Format(s) }
func (s *FunctionDecl) String() string { return Format(s) }
func (s *ClassDecl) String() string    { return Format(s) }
