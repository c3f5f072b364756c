package object

import (
	"strconv"
)

// Key is an array key or field name. Integer-like strings are normalized to integer keys by KeyOf.
type Key struct {
	I     int64
	S     string
	IsStr bool
}

func IntKey(i int64) Key  { return Key{I: i} }
func StrKey(s string) Key { return Key{S: s, IsStr: true} }

func (k Key) String() string {
	if k.IsStr {
		return k.S
	}
	return strconv.FormatInt(k.I, 10)
}

// Value converts the key back into a guest value.
func (k Key) Value() Value {
	if k.IsStr {
		return &String{Value: k.S}
	}
	return &Int{Value: k.I}
}

type entry struct {
	key  Key
	cell *Cell
	ref  bool // the cell is shared with a reference and survives copies
}

// Table is an insertion ordered map of cells. Deleted slots are compacted lazily.
type Table struct {
	entries   []*entry
	index     map[Key]int
	live      int
	nextIndex int64
}

func NewTable() *Table {
	return &Table{index: make(map[Key]int)}
}

func (t *Table) Len() int { return t.live }

func (t *Table) GetCell(k Key) (*Cell, bool) {
	if i, ok := t.index[k]; ok {
		return t.entries[i].cell, true
	}
	return nil, false
}

func (t *Table) Get(k Key) (Value, bool) {
	if c, ok := t.GetCell(k); ok {
		return c.Value, true
	}
	return nil, false
}

func (t *Table) Has(k Key) bool {
	_, ok := t.index[k]
	return ok
}

// Set writes v through the existing cell of k, or adds a new entry.
func (t *Table) Set(k Key, v Value) {
	if i, ok := t.index[k]; ok {
		t.entries[i].cell.Set(v)
		return
	}
	t.add(&entry{key: k, cell: NewCell(v)})
}

// CellFor returns the cell of k, adding a null entry when missing.
func (t *Table) CellFor(k Key) *Cell {
	if i, ok := t.index[k]; ok {
		return t.entries[i].cell
	}
	e := &entry{key: k, cell: NewCell(NULL)}
	t.add(e)
	return e.cell
}

// RefCell returns the cell of k and marks the entry as referenced.
func (t *Table) RefCell(k Key) *Cell {
	c := t.CellFor(k)
	t.entries[t.index[k]].ref = true
	return c
}

// SetRef binds k to a shared cell.
func (t *Table) SetRef(k Key, c *Cell) {
	if i, ok := t.index[k]; ok {
		t.entries[i].cell = c
		t.entries[i].ref = true
		return
	}
	t.add(&entry{key: k, cell: c, ref: true})
}

// Append adds v under the next free integer key and returns that key.
func (t *Table) Append(v Value) Key {
	k := IntKey(t.nextIndex)
	t.add(&entry{key: k, cell: NewCell(v)})
	return k
}

func (t *Table) AppendRef(c *Cell) Key {
	k := IntKey(t.nextIndex)
	t.add(&entry{key: k, cell: c, ref: true})
	return k
}

func (t *Table) Delete(k Key) {
	i, ok := t.index[k]
	if !ok {
		return
	}
	t.entries[i] = nil
	delete(t.index, k)
	t.live--
	if t.live < len(t.entries)/2 {
		t.compact()
	}
}

func (t *Table) add(e *entry) {
	t.index[e.key] = len(t.entries)
	t.entries = append(t.entries, e)
	t.live++
	if !e.key.IsStr && e.key.I >= t.nextIndex {
		t.nextIndex = e.key.I + 1
	}
}

func (t *Table) compact() {
	live := make([]*entry, 0, t.live)
	for _, e := range t.entries {
		if e != nil {
			t.index[e.key] = len(live)
			live = append(live, e)
		}
	}
	t.entries = live
}

// Each visits entries in order until f returns false.
func (t *Table) Each(f func(Key, *Cell) bool) {
	for _, e := range t.entries {
		if e != nil && !f(e.key, e.cell) {
			return
		}
	}
}

// Keys snapshots the keys in order.
func (t *Table) Keys() []Key {
	keys := make([]Key, 0, t.live)
	for _, e := range t.entries {
		if e != nil {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Copy duplicates the table: plain entries get copied values, referenced entries keep their cell.
func (t *Table) Copy() *Table {
	out := &Table{
		entries:   make([]*entry, 0, t.live),
		index:     make(map[Key]int, t.live),
		nextIndex: t.nextIndex,
	}
	for _, e := range t.entries {
		if e == nil {
			continue
		}
		ne := &entry{key: e.key, ref: e.ref, cell: e.cell}
		if !e.ref {
			ne.cell = NewCell(e.cell.Value.Copy())
		}
		out.index[e.key] = len(out.entries)
		out.entries = append(out.entries, ne)
		out.live++
	}
	return out
}
