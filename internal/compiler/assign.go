package compiler

import (
	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

func referenceable(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Var, *ast.Index, *ast.Prop, *ast.StaticProp, *ast.VarVar:
		return true
	}
	return false
}

// assign compiles a store of a copy of the value into target.
func (u *unit) assign(target ast.Expression) func(*frame, object.Value) error {
	switch t := target.(type) {
	case *ast.Var:
		v := u.variable(t.Name)
		return func(fr *frame, val object.Value) error {
			v.assign(fr, val.Copy())
			return nil
		}
	case *ast.Prop:
		obj, name, pos := u.expr(t.Object), t.Name, t.Position
		return func(fr *frame, val object.Value) error {
			o, err := obj(fr)
			if err != nil {
				return err
			}
			return fr.env.PropSet(pos, o, name, val.Copy())
		}
	case *ast.ArrayLit:
		return u.destructure(t)
	}
	cell := u.lvalue(target, false)
	return func(fr *frame, val object.Value) error {
		c, err := cell(fr)
		if err != nil {
			return err
		}
		c.Set(val.Copy())
		return nil
	}
}

// destructure compiles a [$a, 'k' => $b] = ... target.
func (u *unit) destructure(t *ast.ArrayLit) func(*frame, object.Value) error {
	type item struct {
		index  int64
		key    expr
		assign func(*frame, object.Value) error
	}
	var items []item
	for i, it := range t.Items {
		if it == nil || it.Value == nil {
			continue
		}
		c := item{index: int64(i), assign: u.assign(it.Value)}
		if it.Key != nil {
			c.key = u.expr(it.Key)
		}
		items = append(items, c)
	}
	pos := t.Position
	return func(fr *frame, v object.Value) error {
		for _, it := range items {
			var key object.Value = &object.Int{Value: it.index}
			if it.key != nil {
				k, err := it.key(fr)
				if err != nil {
					return err
				}
				key = k
			}
			var elem object.Value = object.NULL
			if _, ok := v.(*object.Array); ok {
				e, err := fr.env.IndexGet(pos, v, key)
				if err != nil {
					return err
				}
				elem = e
			}
			if err := it.assign(fr, elem); err != nil {
				return err
			}
		}
		return nil
	}
}

// lvalue compiles target to the storage cell a write goes to, creating variables, array
// elements and properties on the way. With ref set array elements are marked shared.
func (u *unit) lvalue(target ast.Expression, ref bool) lvalue {
	switch t := target.(type) {
	case *ast.Var:
		v := u.variable(t.Name)
		return func(fr *frame) (*object.Cell, error) { return v.cell(fr), nil }
	case *ast.VarVar:
		name := u.varName(t)
		return func(fr *frame) (*object.Cell, error) {
			n, err := name(fr)
			if err != nil {
				return nil, err
			}
			return fr.scope.Cell(n), nil
		}
	case *ast.This:
		err := runtime.Fatalf(t.Position, "Cannot re-assign $this")
		return func(*frame) (*object.Cell, error) { return nil, err }
	case *ast.Index:
		container, pos := u.lvalue(t.Base, false), t.Position
		var index expr
		if t.Index != nil {
			index = u.expr(t.Index)
		}
		return func(fr *frame) (*object.Cell, error) {
			c, err := container(fr)
			if err != nil {
				return nil, err
			}
			var key object.Value
			if index != nil {
				if key, err = index(fr); err != nil {
					return nil, err
				}
			}
			return fr.env.IndexCell(pos, c, key, ref)
		}
	case *ast.Prop:
		obj, name, pos := u.expr(t.Object), t.Name, t.Position
		return func(fr *frame) (*object.Cell, error) {
			o, err := obj(fr)
			if err != nil {
				return nil, err
			}
			return fr.env.PropCell(pos, o, name)
		}
	case *ast.StaticProp:
		class, name, pos := t.Class, t.Name, t.Position
		return func(fr *frame) (*object.Cell, error) { return fr.env.StaticProp(pos, class, name) }
	case *ast.Call, *ast.MethodCall, *ast.StaticCall, *ast.New:
		return u.call(t)
	}
	x := u.expr(target)
	return func(fr *frame) (*object.Cell, error) {
		v, err := x(fr)
		if err != nil {
			return nil, err
		}
		return object.NewCell(v), nil
	}
}

// bindRef compiles making target an alias of a cell.
func (u *unit) bindRef(target ast.Expression) func(*frame, *object.Cell) error {
	switch t := target.(type) {
	case *ast.Var:
		v, pos := u.variable(t.Name), t.Position
		return func(fr *frame, c *object.Cell) error { return v.bind(fr, pos, c) }
	case *ast.VarVar:
		name := u.varName(t)
		return func(fr *frame, c *object.Cell) error {
			n, err := name(fr)
			if err != nil {
				return err
			}
			fr.scope.Bind(n, c)
			return nil
		}
	case *ast.Index:
		container, pos := u.lvalue(t.Base, false), t.Position
		var index expr
		if t.Index != nil {
			index = u.expr(t.Index)
		}
		return func(fr *frame, c *object.Cell) error {
			cont, err := container(fr)
			if err != nil {
				return err
			}
			var key object.Value
			if index != nil {
				if key, err = index(fr); err != nil {
					return err
				}
			}
			return fr.env.BindIndex(pos, cont, key, c)
		}
	case *ast.Prop:
		obj, name, pos := u.expr(t.Object), t.Name, t.Position
		return func(fr *frame, c *object.Cell) error {
			o, err := obj(fr)
			if err != nil {
				return err
			}
			return fr.env.BindProp(pos, o, name, c)
		}
	}
	err := runtime.Fatalf(target.Pos(), "Cannot assign by reference to %s", target)
	return func(*frame, *object.Cell) error { return err }
}

func (u *unit) unset(target ast.Expression) func(*frame) error {
	switch t := target.(type) {
	case *ast.Var:
		v := u.variable(t.Name)
		return func(fr *frame) error {
			v.unset(fr)
			return nil
		}
	case *ast.VarVar:
		name := u.varName(t)
		return func(fr *frame) error {
			n, err := name(fr)
			if err != nil {
				return err
			}
			fr.scope.Unset(n)
			return nil
		}
	case *ast.Index:
		container := u.existing(t.Base)
		if t.Index == nil {
			return func(fr *frame) error {
				_, _, err := container(fr)
				return err
			}
		}
		index := u.expr(t.Index)
		return func(fr *frame) error {
			c, ok, err := container(fr)
			if err != nil || !ok {
				return err
			}
			key, err := index(fr)
			if err != nil {
				return err
			}
			runtime.UnsetIndex(c, key)
			return nil
		}
	case *ast.Prop:
		obj, name, pos := u.expr(t.Object), t.Name, t.Position
		return func(fr *frame) error {
			o, err := obj(fr)
			if err != nil {
				return err
			}
			return fr.env.PropUnset(pos, o, name)
		}
	}
	err := runtime.Fatalf(target.Pos(), "Cannot unset %s", target)
	return func(*frame) error { return err }
}

// existing compiles a lookup of the cell of an lvalue that creates nothing.
func (u *unit) existing(e ast.Expression) func(*frame) (*object.Cell, bool, error) {
	switch t := e.(type) {
	case *ast.Var:
		v := u.variable(t.Name)
		return func(fr *frame) (*object.Cell, bool, error) {
			c, ok := v.get(fr)
			return c, ok, nil
		}
	case *ast.Index:
		parent := u.existing(t.Base)
		if t.Index == nil {
			return func(fr *frame) (*object.Cell, bool, error) {
				_, _, err := parent(fr)
				return nil, false, err
			}
		}
		index := u.expr(t.Index)
		return func(fr *frame) (*object.Cell, bool, error) {
			p, ok, err := parent(fr)
			if err != nil || !ok {
				return nil, false, err
			}
			arr, isArray := p.Value.(*object.Array)
			if !isArray {
				return nil, false, nil
			}
			kv, err := index(fr)
			if err != nil {
				return nil, false, err
			}
			k, err := object.KeyOf(kv)
			if err != nil {
				return nil, false, nil
			}
			c, ok := arr.GetCell(k)
			return c, ok, nil
		}
	case *ast.Prop, *ast.StaticProp:
		cell := u.lvalue(e, false)
		return func(fr *frame) (*object.Cell, bool, error) {
			c, err := cell(fr)
			return c, err == nil, err
		}
	}
	return func(*frame) (*object.Cell, bool, error) { return nil, false, nil }
}
