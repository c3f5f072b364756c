package evaluator

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

// assign stores a copy of v into target.
func (ev *Evaluator) assign(target ast.Expression, v object.Value) error {
	switch t := target.(type) {
	case *ast.Var:
		ev.scope.Cell(t.Name).Set(v.Copy())
		return nil
	case *ast.Prop:
		o, err := ev.eval(t.Object)
		if err != nil {
			return err
		}
		return ev.env.PropSet(t.Position, o, t.Name, v.Copy())
	case *ast.ArrayLit:
		return ev.destructure(t, v)
	}
	c, err := ev.cell(target)
	if err != nil {
		return err
	}
	c.Set(v.Copy())
	return nil
}

// destructure assigns the elements of v to the items of a [$a, 'k' => $b] target.
func (ev *Evaluator) destructure(t *ast.ArrayLit, v object.Value) error {
	for i, item := range t.Items {
		if item == nil || item.Value == nil {
			continue
		}
		var key object.Value = &object.Int{Value: int64(i)}
		if item.Key != nil {
			k, err := ev.eval(item.Key)
			if err != nil {
				return err
			}
			key = k
		}
		var elem object.Value = object.NULL
		if _, ok := v.(*object.Array); ok {
			e, err := ev.env.IndexGet(t.Position, v, key)
			if err != nil {
				return err
			}
			elem = e
		}
		if err := ev.assign(item.Value, elem); err != nil {
			return err
		}
	}
	return nil
}

// cell resolves target to the storage cell a write goes to, creating variables, array elements
// and properties on the way.
func (ev *Evaluator) cell(target ast.Expression) (*object.Cell, error) {
	return ev.lvalue(target, false)
}

// refCell is cell for reference binding: array elements are marked shared.
func (ev *Evaluator) refCell(target ast.Expression) (*object.Cell, error) {
	return ev.lvalue(target, true)
}

func (ev *Evaluator) lvalue(target ast.Expression, ref bool) (*object.Cell, error) {
	switch t := target.(type) {
	case *ast.Var:
		return ev.scope.Cell(t.Name), nil
	case *ast.VarVar:
		name, err := ev.varName(t)
		if err != nil {
			return nil, err
		}
		return ev.scope.Cell(name), nil
	case *ast.This:
		return nil, runtime.Fatalf(t.Position, "Cannot re-assign $this")
	case *ast.Index:
		container, err := ev.cell(t.Base)
		if err != nil {
			return nil, err
		}
		var key object.Value
		if t.Index != nil {
			if key, err = ev.eval(t.Index); err != nil {
				return nil, err
			}
		}
		return ev.env.IndexCell(t.Position, container, key, ref)
	case *ast.Prop:
		o, err := ev.eval(t.Object)
		if err != nil {
			return nil, err
		}
		return ev.env.PropCell(t.Position, o, t.Name)
	case *ast.StaticProp:
		return ev.env.StaticProp(t.Position, t.Class, t.Name)
	case *ast.Call, *ast.MethodCall, *ast.StaticCall, *ast.New:
		return ev.call(t)
	}
	v, err := ev.eval(target)
	if err != nil {
		return nil, err
	}
	return object.NewCell(v), nil
}

// refSource is the cell the right hand side of =& denotes.
func (ev *Evaluator) refSource(e ast.Expression) (*object.Cell, error) {
	return ev.refCell(e)
}

// bindRef makes target an alias of c.
func (ev *Evaluator) bindRef(target ast.Expression, c *object.Cell) error {
	switch t := target.(type) {
	case *ast.Var:
		ev.scope.Bind(t.Name, c)
		return nil
	case *ast.VarVar:
		name, err := ev.varName(t)
		if err != nil {
			return err
		}
		ev.scope.Bind(name, c)
		return nil
	case *ast.Index:
		container, err := ev.cell(t.Base)
		if err != nil {
			return err
		}
		var key object.Value
		if t.Index != nil {
			if key, err = ev.eval(t.Index); err != nil {
				return err
			}
		}
		return ev.env.BindIndex(t.Position, container, key, c)
	case *ast.Prop:
		o, err := ev.eval(t.Object)
		if err != nil {
			return err
		}
		return ev.env.BindProp(t.Position, o, t.Name, c)
	}
	return runtime.Fatalf(target.Pos(), "Cannot assign by reference to %s", target)
}

func (ev *Evaluator) unset(target ast.Expression) error {
	switch t := target.(type) {
	case *ast.Var:
		ev.scope.Unset(t.Name)
		return nil
	case *ast.VarVar:
		name, err := ev.varName(t)
		if err != nil {
			return err
		}
		ev.scope.Unset(name)
		return nil
	case *ast.Index:
		container, ok, err := ev.existing(t.Base)
		if err != nil || !ok || t.Index == nil {
			return err
		}
		key, err := ev.eval(t.Index)
		if err != nil {
			return err
		}
		runtime.UnsetIndex(container, key)
		return nil
	case *ast.Prop:
		o, err := ev.eval(t.Object)
		if err != nil {
			return err
		}
		return ev.env.PropUnset(t.Position, o, t.Name)
	}
	return runtime.Fatalf(target.Pos(), "Cannot unset %s", target)
}

// existing finds the cell of an lvalue without creating anything.
func (ev *Evaluator) existing(e ast.Expression) (*object.Cell, bool, error) {
	switch t := e.(type) {
	case *ast.Var:
		c, ok := ev.scope.Get(t.Name)
		return c, ok, nil
	case *ast.Index:
		parent, ok, err := ev.existing(t.Base)
		if err != nil || !ok || t.Index == nil {
			return nil, false, err
		}
		arr, isArray := parent.Value.(*object.Array)
		if !isArray {
			return nil, false, nil
		}
		kv, err := ev.eval(t.Index)
		if err != nil {
			return nil, false, err
		}
		k, err := object.KeyOf(kv)
		if err != nil {
			return nil, false, nil
		}
		c, ok := arr.GetCell(k)
		return c, ok, nil
	case *ast.Prop, *ast.StaticProp:
		c, err := ev.cell(e)
		return c, err == nil, err
	}
	return nil, false, nil
}

// call evaluates a call expression to the cell it returns.
func (ev *Evaluator) call(e ast.Expression) (*object.Cell, error) {
	switch e := e.(type) {
	case *ast.Call:
		var target runtime.Callable
		var recv runtime.Receiver
		var err error
		if e.Callee != nil {
			callee, err := ev.eval(e.Callee)
			if err != nil {
				return nil, err
			}
			target, recv, err = ev.env.ValueTarget(e.Position, callee)
			if err != nil {
				return nil, err
			}
		} else if target, err = ev.env.FunctionTarget(e.Position, e.Name); err != nil {
			return nil, err
		}
		args, err := ev.args(target, e.Args)
		if err != nil {
			return nil, err
		}
		return ev.env.Invoke(e.Position, target, recv, args)

	case *ast.MethodCall:
		o, err := ev.eval(e.Object)
		if err != nil {
			return nil, err
		}
		target, recv, err := ev.env.MethodTarget(e.Position, o, e.Name)
		if err != nil {
			return nil, err
		}
		args, err := ev.args(target, e.Args)
		if err != nil {
			return nil, err
		}
		return ev.env.Invoke(e.Position, target, recv, args)

	case *ast.StaticCall:
		target, recv, err := ev.env.StaticTarget(e.Position, e.Class, e.Name)
		if err != nil {
			return nil, err
		}
		args, err := ev.args(target, e.Args)
		if err != nil {
			return nil, err
		}
		return ev.env.Invoke(e.Position, target, recv, args)

	case *ast.New:
		class, err := ev.newClass(e)
		if err != nil {
			return nil, err
		}
		o, err := ev.env.Instantiate(e.Position, class)
		if err != nil {
			return nil, err
		}
		ctor, recv, ok, err := ev.env.ConstructorTarget(e.Position, o)
		if err != nil {
			return nil, err
		}
		if ok {
			args, err := ev.args(ctor, e.Args)
			if err != nil {
				return nil, err
			}
			if _, err := ev.env.Invoke(e.Position, ctor, recv, args); err != nil {
				return nil, err
			}
		}
		return object.NewCell(o), nil
	}
	v, err := ev.eval(e)
	if err != nil {
		return nil, err
	}
	return object.NewCell(v), nil
}

func (ev *Evaluator) newClass(e *ast.New) (*runtime.Class, error) {
	if e.ClassExpr == nil {
		return ev.env.ResolveClass(e.Position, e.Class)
	}
	v, err := ev.eval(e.ClassExpr)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *object.String:
		return ev.env.ResolveClass(e.Position, v.Value)
	case *object.Object:
		return v.Class.(*runtime.Class), nil
	}
	return nil, ev.env.NewThrowable(e.Position, "Error", "Cannot instantiate "+object.TypeName(v))
}

// args binds call arguments: reference parameters get the argument's cell, by value ones a
// cell holding the uncopied value.
func (ev *Evaluator) args(target runtime.Callable, exprs []ast.Expression) ([]*object.Cell, error) {
	args := make([]*object.Cell, len(exprs))
	for i, a := range exprs {
		if runtime.RefArg(target, i) {
			c, err := ev.refCell(a)
			if err != nil {
				return nil, err
			}
			args[i] = c
			continue
		}
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = object.NewCell(v)
	}
	return args, nil
}
