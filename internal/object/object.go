package object

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type ObjectType string

const (
	NULL_OBJ   = "NULL"
	BOOL_OBJ   = "BOOL"
	INT_OBJ    = "INT"
	FLOAT_OBJ  = "FLOAT"
	STRING_OBJ = "STRING"
	ARRAY_OBJ  = "ARRAY"
	OBJECT_OBJ = "OBJECT"
)

// Value is a guest language datum. Arrays and scalars have value semantics, objects are handles.
type Value interface {
	Type() ObjectType
	Inspect() string

	// Copy returns a value that shares nothing mutable with the receiver, except references.
	Copy() Value
	// CopyForReturn is the copy handed back from a function return.
	CopyForReturn() Value
	IsSet() bool
	// Equals is loose (==) equality.
	Equals(other Value) bool
}

var (
	NULL  = &Null{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}
)

type Null struct{}

func (n *Null) Type() ObjectType        { return NULL_OBJ }
func (n *Null) Inspect() string         { return "NULL" }
func (n *Null) Copy() Value             { return n }
func (n *Null) CopyForReturn() Value    { return n }
func (n *Null) IsSet() bool             { return false }
func (n *Null) Equals(other Value) bool { return LooseEquals(n, other) }

type Bool struct {
	Value bool
}

func NativeBool(b bool) *Bool {
	if b {
		return TRUE
	}
	return FALSE
}

func (b *Bool) Type() ObjectType { return BOOL_OBJ }
func (b *Bool) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}
func (b *Bool) Copy() Value             { return b }
func (b *Bool) CopyForReturn() Value    { return b }
func (b *Bool) IsSet() bool             { return true }
func (b *Bool) Equals(other Value) bool { return LooseEquals(b, other) }

type Int struct {
	Value int64
}

func (i *Int) Type() ObjectType        { return INT_OBJ }
func (i *Int) Inspect() string         { return strconv.FormatInt(i.Value, 10) }
func (i *Int) Copy() Value             { return i }
func (i *Int) CopyForReturn() Value    { return i }
func (i *Int) IsSet() bool             { return true }
func (i *Int) Equals(other Value) bool { return LooseEquals(i, other) }

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType        { return FLOAT_OBJ }
func (f *Float) Inspect() string         { return FormatFloat(f.Value) }
func (f *Float) Copy() Value             { return f }
func (f *Float) CopyForReturn() Value    { return f }
func (f *Float) IsSet() bool             { return true }
func (f *Float) Equals(other Value) bool { return LooseEquals(f, other) }

type String struct {
	Value string
}

func (s *String) Type() ObjectType        { return STRING_OBJ }
func (s *String) Inspect() string         { return strconv.Quote(s.Value) }
func (s *String) Copy() Value             { return s }
func (s *String) CopyForReturn() Value    { return s }
func (s *String) IsSet() bool             { return true }
func (s *String) Equals(other Value) bool { return LooseEquals(s, other) }

// Class is the view of a linked class the value model needs.
type Class interface {
	Name() string
	IsA(name string) bool
}

var nextObjectID atomic.Int64

// Object is an instance handle. Fields are keyed by canonical field names in declaration order.
type Object struct {
	ID         int64
	Class      Class
	Fields     *Table
	Destructed bool
}

func NewObject(class Class) *Object {
	return &Object{ID: nextObjectID.Add(1), Class: class, Fields: NewTable()}
}

func (o *Object) Type() ObjectType { return OBJECT_OBJ }
func (o *Object) Inspect() string {
	var sb strings.Builder
	sb.WriteString(o.Class.Name())
	sb.WriteString(" Object (")
	first := true
	o.Fields.Each(func(k Key, c *Cell) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k.String())
		sb.WriteString(" => ")
		sb.WriteString(c.Value.Inspect())
		return true
	})
	sb.WriteString(")")
	return sb.String()
}

// Objects are handles: copying the value copies the handle.
func (o *Object) Copy() Value          { return o }
func (o *Object) CopyForReturn() Value { return o }
func (o *Object) IsSet() bool          { return true }
func (o *Object) Equals(other Value) bool {
	return LooseEquals(o, other)
}

// Field returns the cell of a canonical field name.
func (o *Object) Field(name string) (*Cell, bool) {
	return o.Fields.GetCell(StrKey(name))
}

func (o *Object) SetField(name string, v Value) {
	o.Fields.Set(StrKey(name), v)
}
