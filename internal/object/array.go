package object

import (
	"strings"
)

// Array is the ordered hash map of the guest language, with value semantics.
type Array struct {
	*Table
}

func NewArray() *Array {
	return &Array{Table: NewTable()}
}

// NewList builds a zero indexed array from values.
func NewList(values ...Value) *Array {
	a := NewArray()
	for _, v := range values {
		a.Append(v)
	}
	return a
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }

func (a *Array) Inspect() string {
	var sb strings.Builder
	sb.WriteString("[")
	first := true
	a.Each(func(k Key, c *Cell) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k.String())
		sb.WriteString(" => ")
		sb.WriteString(c.Value.Inspect())
		return true
	})
	sb.WriteString("]")
	return sb.String()
}

func (a *Array) Copy() Value {
	return &Array{Table: a.Table.Copy()}
}

func (a *Array) CopyForReturn() Value { return a.Copy() }
func (a *Array) IsSet() bool          { return true }
func (a *Array) Equals(other Value) bool {
	return LooseEquals(a, other)
}

// Values snapshots the element values in order.
func (a *Array) Values() []Value {
	out := make([]Value, 0, a.Len())
	a.Each(func(_ Key, c *Cell) bool {
		out = append(out, c.Value)
		return true
	})
	return out
}
