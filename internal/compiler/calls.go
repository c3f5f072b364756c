package compiler

import (
	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

// argument is one call argument, compiled both ways: which one runs depends on the parameter
// it lands on, known only once the target is resolved.
type argument struct {
	value expr
	ref   lvalue
}

func (u *unit) args(exprs []ast.Expression) []argument {
	out := make([]argument, len(exprs))
	for i, e := range exprs {
		if referenceable(e) {
			out[i] = argument{value: u.expr(e), ref: u.lvalue(e, true)}
			continue
		}
		ref := u.lvalue(e, true)
		out[i] = argument{ref: ref, value: func(fr *frame) (object.Value, error) {
			c, err := ref(fr)
			if err != nil {
				return nil, err
			}
			return c.Value, nil
		}}
	}
	return out
}

// bindArgs binds call arguments: reference parameters get the argument's cell, by value ones a
// cell holding the uncopied value.
func bindArgs(fr *frame, target runtime.Callable, args []argument) ([]*object.Cell, error) {
	cells := make([]*object.Cell, len(args))
	for i, a := range args {
		if runtime.RefArg(target, i) {
			c, err := a.ref(fr)
			if err != nil {
				return nil, err
			}
			cells[i] = c
			continue
		}
		v, err := a.value(fr)
		if err != nil {
			return nil, err
		}
		cells[i] = object.NewCell(v)
	}
	return cells, nil
}

// call compiles a call expression to the cell it returns.
func (u *unit) call(e ast.Expression) lvalue {
	switch e := e.(type) {
	case *ast.Call:
		args, pos := u.args(e.Args), e.Position
		if e.Callee != nil {
			callee := u.expr(e.Callee)
			return func(fr *frame) (*object.Cell, error) {
				v, err := callee(fr)
				if err != nil {
					return nil, err
				}
				target, recv, err := fr.env.ValueTarget(pos, v)
				if err != nil {
					return nil, err
				}
				cells, err := bindArgs(fr, target, args)
				if err != nil {
					return nil, err
				}
				return fr.env.Invoke(pos, target, recv, cells)
			}
		}
		name := e.Name
		return func(fr *frame) (*object.Cell, error) {
			target, err := fr.env.FunctionTarget(pos, name)
			if err != nil {
				return nil, err
			}
			cells, err := bindArgs(fr, target, args)
			if err != nil {
				return nil, err
			}
			return fr.env.Invoke(pos, target, runtime.Receiver{}, cells)
		}

	case *ast.MethodCall:
		obj, args, name, pos := u.expr(e.Object), u.args(e.Args), e.Name, e.Position
		return func(fr *frame) (*object.Cell, error) {
			o, err := obj(fr)
			if err != nil {
				return nil, err
			}
			target, recv, err := fr.env.MethodTarget(pos, o, name)
			if err != nil {
				return nil, err
			}
			cells, err := bindArgs(fr, target, args)
			if err != nil {
				return nil, err
			}
			return fr.env.Invoke(pos, target, recv, cells)
		}

	case *ast.StaticCall:
		args, class, name, pos := u.args(e.Args), e.Class, e.Name, e.Position
		return func(fr *frame) (*object.Cell, error) {
			target, recv, err := fr.env.StaticTarget(pos, class, name)
			if err != nil {
				return nil, err
			}
			cells, err := bindArgs(fr, target, args)
			if err != nil {
				return nil, err
			}
			return fr.env.Invoke(pos, target, recv, cells)
		}

	case *ast.New:
		class, args, pos := u.newClass(e), u.args(e.Args), e.Position
		return func(fr *frame) (*object.Cell, error) {
			c, err := class(fr)
			if err != nil {
				return nil, err
			}
			o, err := fr.env.Instantiate(pos, c)
			if err != nil {
				return nil, err
			}
			ctor, recv, ok, err := fr.env.ConstructorTarget(pos, o)
			if err != nil {
				return nil, err
			}
			if ok {
				cells, err := bindArgs(fr, ctor, args)
				if err != nil {
					return nil, err
				}
				if _, err := fr.env.Invoke(pos, ctor, recv, cells); err != nil {
					return nil, err
				}
			}
			return object.NewCell(o), nil
		}
	}
	x := u.expr(e)
	return func(fr *frame) (*object.Cell, error) {
		v, err := x(fr)
		if err != nil {
			return nil, err
		}
		return object.NewCell(v), nil
	}
}

func (u *unit) newClass(e *ast.New) func(*frame) (*runtime.Class, error) {
	pos := e.Position
	if e.ClassExpr == nil {
		name := e.Class
		return func(fr *frame) (*runtime.Class, error) { return fr.env.ResolveClass(pos, name) }
	}
	x := u.expr(e.ClassExpr)
	return func(fr *frame) (*runtime.Class, error) {
		v, err := x(fr)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case *object.String:
			return fr.env.ResolveClass(pos, v.Value)
		case *object.Object:
			return v.Class.(*runtime.Class), nil
		}
		return nil, fr.env.NewThrowable(pos, "Error", "Cannot instantiate "+object.TypeName(v))
	}
}
