package object

// Cell is a storage location. Names that alias one another share a Cell.
type Cell struct {
	Value Value
}

func NewCell(v Value) *Cell {
	if v == nil {
		v = NULL
	}
	return &Cell{Value: v}
}

// ToCell wraps a value into a fresh reference cell.
func ToCell(v Value) *Cell {
	return NewCell(v)
}

func (c *Cell) Get() Value {
	return c.Value
}

func (c *Cell) Set(v Value) {
	if v == nil {
		v = NULL
	}
	c.Value = v
}

// RefView is the value as seen through the reference: not copied, later writes to the
// cell are not reflected in it.
func (c *Cell) RefView() Value {
	return c.Value
}

// Scope is a symbol table: variable names bound to cells, in first binding order.
type Scope struct {
	Bindings map[string]*Cell
	order    []string
}

func NewScope() *Scope {
	return &Scope{Bindings: make(map[string]*Cell)}
}

func (s *Scope) Get(name string) (*Cell, bool) {
	c, ok := s.Bindings[name]
	return c, ok
}

// Cell returns the cell bound to name, binding a null cell first if there is none.
func (s *Scope) Cell(name string) *Cell {
	if c, ok := s.Bindings[name]; ok {
		return c
	}
	c := NewCell(NULL)
	s.Bind(name, c)
	return c
}

// Bind points name at c, replacing any earlier binding.
func (s *Scope) Bind(name string, c *Cell) {
	if _, ok := s.Bindings[name]; !ok {
		s.order = append(s.order, name)
	}
	s.Bindings[name] = c
}

func (s *Scope) Unset(name string) {
	if _, ok := s.Bindings[name]; !ok {
		return
	}
	delete(s.Bindings, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Names lists the bound names in binding order.
func (s *Scope) Names() []string {
	return append([]string(nil), s.order...)
}
