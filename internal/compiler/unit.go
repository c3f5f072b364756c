package compiler

import (
	"strconv"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

// unit is the compile time state of one function.
type unit struct {
	c       *Compiler
	fn      *ast.Function
	info    *ast.FunctionInfo
	symbols bool // variables live in the symbol table
	vars    map[string]variable
	nslots  int
	ncells  int
	pruned  []ast.Statement
	notes   []string
}

func newUnit(c *Compiler, fn *ast.Function) *unit {
	u := &unit{c: c, fn: fn, info: fn.Info, vars: make(map[string]variable)}
	u.symbols = u.info == nil || u.info.UsesSymbolTable || fn.IsMain
	return u
}

func (u *unit) note(s string) { u.notes = append(u.notes, s) }

// variable picks the storage of name on first use.
func (u *unit) variable(name string) variable {
	if v, ok := u.vars[name]; ok {
		return v
	}
	var v variable
	switch {
	case u.symbols:
		v = namedVar{name: name}
	case u.info.Var(name).NeedsCell():
		v = boxedVar{name: name, index: u.ncells}
		u.ncells++
	default:
		v = rawVar{name: name, index: u.nslots}
		u.nslots++
	}
	u.vars[name] = v
	return v
}

// noCopy holds for by value parameters the body never writes, aliases or lets anything else
// observe while it runs.
func (u *unit) noCopy(name string) bool {
	if u.symbols {
		return false
	}
	info := u.info
	if info.CallsOut || info.HasStatics || info.UsesThis {
		return false
	}
	for _, vi := range info.Vars {
		if vi.IsGlobal {
			return false
		}
	}
	return info.Var(name).IsReadOnly()
}

// variable is where one local lives.
type variable interface {
	get(fr *frame) (*object.Cell, bool)
	cell(fr *frame) *object.Cell
	bind(fr *frame, pos ast.Position, c *object.Cell) error
	assign(fr *frame, v object.Value)
	unset(fr *frame)
	storage() string
}

// rawVar is a frame slot that never aliases anything.
type rawVar struct {
	name  string
	index int
}

func (v rawVar) get(fr *frame) (*object.Cell, bool) {
	c := &fr.slots[v.index]
	return c, c.Value != nil
}

func (v rawVar) cell(fr *frame) *object.Cell {
	c := &fr.slots[v.index]
	if c.Value == nil {
		c.Value = object.NULL
	}
	return c
}

func (v rawVar) bind(fr *frame, pos ast.Position, c *object.Cell) error {
	return runtime.Fatalf(pos, "variable $%s bound by reference outside a shared cell", v.name)
}

func (v rawVar) assign(fr *frame, val object.Value) { fr.slots[v.index].Set(val) }
func (v rawVar) unset(fr *frame)                    { fr.slots[v.index].Value = nil }
func (v rawVar) storage() string                    { return "slot " + strconv.Itoa(v.index) }

// boxedVar is a frame slot holding a cell that may be shared.
type boxedVar struct {
	name  string
	index int
}

func (v boxedVar) get(fr *frame) (*object.Cell, bool) {
	c := fr.cells[v.index]
	return c, c != nil
}

func (v boxedVar) cell(fr *frame) *object.Cell {
	c := fr.cells[v.index]
	if c == nil {
		c = object.NewCell(object.NULL)
		fr.cells[v.index] = c
	}
	return c
}

func (v boxedVar) bind(fr *frame, pos ast.Position, c *object.Cell) error {
	fr.cells[v.index] = c
	return nil
}

func (v boxedVar) assign(fr *frame, val object.Value) {
	if c := fr.cells[v.index]; c != nil {
		c.Set(val)
		return
	}
	fr.cells[v.index] = object.NewCell(val)
}

func (v boxedVar) unset(fr *frame) { fr.cells[v.index] = nil }
func (v boxedVar) storage() string { return "cell " + strconv.Itoa(v.index) }

// namedVar lives in the symbol table.
type namedVar struct {
	name string
}

func (v namedVar) get(fr *frame) (*object.Cell, bool) { return fr.scope.Get(v.name) }
func (v namedVar) cell(fr *frame) *object.Cell        { return fr.scope.Cell(v.name) }

func (v namedVar) bind(fr *frame, pos ast.Position, c *object.Cell) error {
	fr.scope.Bind(v.name, c)
	return nil
}

func (v namedVar) assign(fr *frame, val object.Value) { fr.scope.Cell(v.name).Set(val) }
func (v namedVar) unset(fr *frame)                    { fr.scope.Unset(v.name) }
func (v namedVar) storage() string                    { return "symbol" }
