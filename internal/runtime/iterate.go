package runtime

import (
	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// UndefinedVariable reports a read of an unassigned variable, which evaluates to null.
func (e *Env) UndefinedVariable(pos ast.Position, name string) object.Value {
	e.Warn(pos, "Undefined variable $%s", name)
	return object.NULL
}

// ForeachValues snapshots what a by-value foreach visits. Later writes to the source do not
// show through.
func (e *Env) ForeachValues(pos ast.Position, v object.Value) ([]object.Key, []object.Value) {
	var keys []object.Key
	var values []object.Value
	switch v := v.(type) {
	case *object.Array:
		v.Each(func(k object.Key, c *object.Cell) bool {
			keys = append(keys, k)
			values = append(values, c.Value.Copy())
			return true
		})
	case *object.Object:
		e.eachProp(v, func(k object.Key, c *object.Cell) {
			keys = append(keys, k)
			values = append(values, c.Value.Copy())
		})
	default:
		e.Warn(pos, "foreach() argument must be of type array|object, %s given", object.TypeName(v))
	}
	return keys, values
}

// ForeachRefs returns the element cells a by-reference foreach binds in turn, marked so that
// they stay shared with the source.
func (e *Env) ForeachRefs(pos ast.Position, container *object.Cell) ([]object.Key, []*object.Cell) {
	var keys []object.Key
	var cells []*object.Cell
	switch v := container.Value.(type) {
	case *object.Array:
		keys = v.Keys()
		for _, k := range keys {
			cells = append(cells, v.RefCell(k))
		}
	case *object.Object:
		e.eachProp(v, func(k object.Key, c *object.Cell) {
			keys = append(keys, k)
			cells = append(cells, c)
		})
	default:
		e.Warn(pos, "foreach() argument must be of type array|object, %s given", object.TypeName(v))
	}
	return keys, cells
}

// eachProp visits the properties of o accessible from the running scope, keyed by plain name.
func (e *Env) eachProp(o *object.Object, f func(object.Key, *object.Cell)) {
	for _, k := range o.Fields.Keys() {
		name, _, _ := program.DecodeField(k.S)
		canonical, accessible := e.visibleProp(o, name)
		if !accessible || canonical != k.S {
			continue
		}
		c, _ := o.Fields.GetCell(k)
		f(object.StrKey(name), c)
	}
}
