package evaluator

import (
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

func (ev *Evaluator) eval(e ast.Expression) (object.Value, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return &object.Int{Value: e.Value}, nil
	case *ast.FloatLit:
		return &object.Float{Value: e.Value}, nil
	case *ast.StringLit:
		return &object.String{Value: e.Value}, nil
	case *ast.BoolLit:
		return object.NativeBool(e.Value), nil
	case *ast.NullLit:
		return object.NULL, nil

	case *ast.Interpolated:
		var sb strings.Builder
		for _, p := range e.Parts {
			v, err := ev.eval(p)
			if err != nil {
				return nil, err
			}
			s, err := ev.env.ToStr(e.Position, v)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
		return &object.String{Value: sb.String()}, nil

	case *ast.ArrayLit:
		return ev.evalArray(e)

	case *ast.Var:
		if c, ok := ev.scope.Get(e.Name); ok {
			return c.Value, nil
		}
		return ev.env.UndefinedVariable(e.Position, e.Name), nil

	case *ast.VarVar:
		name, err := ev.varName(e)
		if err != nil {
			return nil, err
		}
		if c, ok := ev.scope.Get(name); ok {
			return c.Value, nil
		}
		return ev.env.UndefinedVariable(e.Position, name), nil

	case *ast.This:
		return ev.this(e.Position)

	case *ast.Index:
		if e.Index == nil {
			return nil, runtime.Fatalf(e.Position, "Cannot use [] for reading")
		}
		base, err := ev.eval(e.Base)
		if err != nil {
			return nil, err
		}
		key, err := ev.eval(e.Index)
		if err != nil {
			return nil, err
		}
		return ev.env.IndexGet(e.Position, base, key)

	case *ast.Prop:
		o, err := ev.eval(e.Object)
		if err != nil {
			return nil, err
		}
		return ev.env.PropGet(e.Position, o, e.Name)

	case *ast.StaticProp:
		c, err := ev.env.StaticProp(e.Position, e.Class, e.Name)
		if err != nil {
			return nil, err
		}
		return c.Value, nil

	case *ast.ClassConst:
		return ev.env.ClassConst(e.Position, e.Class, e.Name)

	case *ast.ConstRef:
		return ev.env.Constant(e.Position, e.Name)

	case *ast.Assign:
		v, err := ev.eval(e.Value)
		if err != nil {
			return nil, err
		}
		if err := ev.assign(e.Target, v); err != nil {
			return nil, err
		}
		return v, nil

	case *ast.AssignRef:
		c, err := ev.refSource(e.Source)
		if err != nil {
			return nil, err
		}
		if err := ev.bindRef(e.Target, c); err != nil {
			return nil, err
		}
		return c.Value, nil

	case *ast.CompoundAssign:
		return ev.evalCompound(e)

	case *ast.IncDec:
		if v, ok := e.Target.(*ast.Var); ok {
			if _, bound := ev.scope.Get(v.Name); !bound {
				ev.env.UndefinedVariable(v.Position, v.Name)
			}
		}
		c, err := ev.cell(e.Target)
		if err != nil {
			return nil, err
		}
		old := c.Value
		c.Set(runtime.IncDec(old, e.Inc))
		if e.Prefix {
			return c.Value, nil
		}
		return old, nil

	case *ast.Binary:
		return ev.evalBinary(e)

	case *ast.Unary:
		v, err := ev.eval(e.X)
		if err != nil {
			return nil, err
		}
		return ev.env.Unary(e.Position, e.Op, v)

	case *ast.Cast:
		v, err := ev.eval(e.X)
		if err != nil {
			return nil, err
		}
		return ev.env.Cast(e.Position, e.Type, v)

	case *ast.Ternary:
		cond, err := ev.eval(e.Cond)
		if err != nil {
			return nil, err
		}
		if object.ToBool(cond) {
			if e.Then == nil {
				return cond, nil
			}
			return ev.eval(e.Then)
		}
		return ev.eval(e.Else)

	case *ast.Call, *ast.MethodCall, *ast.StaticCall, *ast.New:
		c, err := ev.call(e)
		if err != nil {
			return nil, err
		}
		return c.Value, nil

	case *ast.InstanceOf:
		v, err := ev.eval(e.X)
		if err != nil {
			return nil, err
		}
		ok, err := ev.env.InstanceOf(e.Position, v, e.Class)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(ok), nil

	case *ast.Isset:
		for _, t := range e.Targets {
			_, set, err := ev.quiet(t)
			if err != nil {
				return nil, err
			}
			if !set {
				return object.FALSE, nil
			}
		}
		return object.TRUE, nil
	}
	return nil, runtime.Fatalf(e.Pos(), "unsupported expression %T", e)
}

func (ev *Evaluator) this(pos ast.Position) (object.Value, error) {
	if this := ev.env.This(); this != nil {
		return this, nil
	}
	return nil, ev.env.NewThrowable(pos, "Error", "Using $this when not in object context")
}

func (ev *Evaluator) varName(e *ast.VarVar) (string, error) {
	v, err := ev.eval(e.Name)
	if err != nil {
		return "", err
	}
	return ev.env.ToStr(e.Position, v)
}

func (ev *Evaluator) evalArray(e *ast.ArrayLit) (object.Value, error) {
	arr := object.NewArray()
	for _, item := range e.Items {
		var key object.Key
		if item.Key != nil {
			kv, err := ev.eval(item.Key)
			if err != nil {
				return nil, err
			}
			if key, err = object.KeyOf(kv); err != nil {
				return nil, ev.env.NewThrowable(e.Position, "TypeError", "Illegal offset type")
			}
		}
		if item.ByRef {
			c, err := ev.refCell(item.Value)
			if err != nil {
				return nil, err
			}
			if item.Key == nil {
				arr.AppendRef(c)
			} else {
				arr.SetRef(key, c)
			}
			continue
		}
		v, err := ev.eval(item.Value)
		if err != nil {
			return nil, err
		}
		if item.Key == nil {
			arr.Append(v.Copy())
		} else {
			arr.Set(key, v.Copy())
		}
	}
	return arr, nil
}

func (ev *Evaluator) evalBinary(e *ast.Binary) (object.Value, error) {
	switch e.Op {
	case "&&", "||":
		l, err := ev.eval(e.Left)
		if err != nil {
			return nil, err
		}
		lb := object.ToBool(l)
		if (e.Op == "&&") != lb {
			return object.NativeBool(lb), nil
		}
		r, err := ev.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(object.ToBool(r)), nil
	case "??":
		l, set, err := ev.quiet(e.Left)
		if err != nil {
			return nil, err
		}
		if set {
			return l, nil
		}
		return ev.eval(e.Right)
	}
	l, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	r, err := ev.eval(e.Right)
	if err != nil {
		return nil, err
	}
	return ev.env.Binary(e.Position, e.Op, l, r)
}

func (ev *Evaluator) evalCompound(e *ast.CompoundAssign) (object.Value, error) {
	if e.Op == "??" {
		cur, set, err := ev.quiet(e.Target)
		if err != nil {
			return nil, err
		}
		if set {
			return cur, nil
		}
		v, err := ev.eval(e.Value)
		if err != nil {
			return nil, err
		}
		return v, ev.assign(e.Target, v)
	}

	if v, ok := e.Target.(*ast.Var); ok {
		if _, bound := ev.scope.Get(v.Name); !bound {
			ev.env.UndefinedVariable(v.Position, v.Name)
		}
	}
	c, err := ev.cell(e.Target)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.eval(e.Value)
	if err != nil {
		return nil, err
	}
	res, err := ev.env.Binary(e.Position, e.Op, c.Value, rhs)
	if err != nil {
		return nil, err
	}
	c.Set(res)
	return res, nil
}

// quiet evaluates an isset or ?? operand: no warnings, and whether the value is set.
func (ev *Evaluator) quiet(e ast.Expression) (object.Value, bool, error) {
	switch e := e.(type) {
	case *ast.Var:
		if c, ok := ev.scope.Get(e.Name); ok {
			return c.Value, c.Value.IsSet(), nil
		}
		return object.NULL, false, nil
	case *ast.VarVar:
		name, err := ev.varName(e)
		if err != nil {
			return nil, false, err
		}
		if c, ok := ev.scope.Get(name); ok {
			return c.Value, c.Value.IsSet(), nil
		}
		return object.NULL, false, nil
	case *ast.This:
		if this := ev.env.This(); this != nil {
			return this, true, nil
		}
		return object.NULL, false, nil
	case *ast.Index:
		base, set, err := ev.quiet(e.Base)
		if err != nil || !set || e.Index == nil {
			return object.NULL, false, err
		}
		key, err := ev.eval(e.Index)
		if err != nil {
			return nil, false, err
		}
		if !runtime.IssetIndex(base, key) {
			return object.NULL, false, nil
		}
		v, err := ev.env.IndexGet(e.Position, base, key)
		return v, err == nil, err
	case *ast.Prop:
		o, set, err := ev.quiet(e.Object)
		if err != nil || !set {
			return object.NULL, false, err
		}
		ok, err := ev.env.PropIsset(e.Position, o, e.Name)
		if err != nil || !ok {
			return object.NULL, false, err
		}
		v, err := ev.env.PropGet(e.Position, o, e.Name)
		return v, err == nil, err
	case *ast.StaticProp:
		c, err := ev.env.StaticProp(e.Position, e.Class, e.Name)
		if err != nil {
			return object.NULL, false, nil
		}
		return c.Value, c.Value.IsSet(), nil
	}
	v, err := ev.eval(e)
	if err != nil {
		return nil, false, err
	}
	return v, v.IsSet(), nil
}
