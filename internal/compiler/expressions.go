package compiler

import (
	"fmt"
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

func constant(v object.Value) expr {
	return func(*frame) (object.Value, error) { return v, nil }
}

func (u *unit) exprs(es []ast.Expression) []expr {
	out := make([]expr, len(es))
	for i, e := range es {
		out[i] = u.expr(e)
	}
	return out
}

func (u *unit) expr(e ast.Expression) expr {
	switch e := e.(type) {
	case *ast.IntLit:
		return constant(&object.Int{Value: e.Value})
	case *ast.FloatLit:
		return constant(&object.Float{Value: e.Value})
	case *ast.StringLit:
		return constant(&object.String{Value: e.Value})
	case *ast.BoolLit:
		return constant(object.NativeBool(e.Value))
	case *ast.NullLit:
		return constant(object.NULL)

	case *ast.Interpolated:
		parts, pos := u.exprs(e.Parts), e.Position
		return func(fr *frame) (object.Value, error) {
			var sb strings.Builder
			for _, p := range parts {
				v, err := p(fr)
				if err != nil {
					return nil, err
				}
				s, err := fr.env.ToStr(pos, v)
				if err != nil {
					return nil, err
				}
				sb.WriteString(s)
			}
			return &object.String{Value: sb.String()}, nil
		}

	case *ast.ArrayLit:
		return u.array(e)

	case *ast.Var:
		return u.read(e)

	case *ast.VarVar:
		name, pos := u.varName(e), e.Position
		return func(fr *frame) (object.Value, error) {
			n, err := name(fr)
			if err != nil {
				return nil, err
			}
			if c, ok := fr.scope.Get(n); ok {
				return c.Value, nil
			}
			return fr.env.UndefinedVariable(pos, n), nil
		}

	case *ast.This:
		pos := e.Position
		return func(fr *frame) (object.Value, error) { return this(fr, pos) }

	case *ast.Index:
		if e.Index == nil {
			err := runtime.Fatalf(e.Position, "Cannot use [] for reading")
			return func(*frame) (object.Value, error) { return nil, err }
		}
		base, index, pos := u.expr(e.Base), u.expr(e.Index), e.Position
		return func(fr *frame) (object.Value, error) {
			b, err := base(fr)
			if err != nil {
				return nil, err
			}
			k, err := index(fr)
			if err != nil {
				return nil, err
			}
			return fr.env.IndexGet(pos, b, k)
		}

	case *ast.Prop:
		obj, name, pos := u.expr(e.Object), e.Name, e.Position
		return func(fr *frame) (object.Value, error) {
			o, err := obj(fr)
			if err != nil {
				return nil, err
			}
			return fr.env.PropGet(pos, o, name)
		}

	case *ast.StaticProp:
		class, name, pos := e.Class, e.Name, e.Position
		return func(fr *frame) (object.Value, error) {
			c, err := fr.env.StaticProp(pos, class, name)
			if err != nil {
				return nil, err
			}
			return c.Value, nil
		}

	case *ast.ClassConst:
		class, name, pos := e.Class, e.Name, e.Position
		return func(fr *frame) (object.Value, error) { return fr.env.ClassConst(pos, class, name) }

	case *ast.ConstRef:
		name, pos := e.Name, e.Position
		return func(fr *frame) (object.Value, error) { return fr.env.Constant(pos, name) }

	case *ast.Assign:
		value, target := u.expr(e.Value), u.assign(e.Target)
		return func(fr *frame) (object.Value, error) {
			v, err := value(fr)
			if err != nil {
				return nil, err
			}
			if err := target(fr, v); err != nil {
				return nil, err
			}
			return v, nil
		}

	case *ast.AssignRef:
		source, target := u.lvalue(e.Source, true), u.bindRef(e.Target)
		return func(fr *frame) (object.Value, error) {
			c, err := source(fr)
			if err != nil {
				return nil, err
			}
			if err := target(fr, c); err != nil {
				return nil, err
			}
			return c.Value, nil
		}

	case *ast.CompoundAssign:
		return u.compound(e)

	case *ast.IncDec:
		warn := u.warnUnbound(e.Target)
		target, inc, prefix := u.lvalue(e.Target, false), e.Inc, e.Prefix
		return func(fr *frame) (object.Value, error) {
			warn(fr)
			c, err := target(fr)
			if err != nil {
				return nil, err
			}
			old := c.Value
			c.Set(runtime.IncDec(old, inc))
			if prefix {
				return c.Value, nil
			}
			return old, nil
		}

	case *ast.Binary:
		return u.binary(e)

	case *ast.Unary:
		x, op, pos := u.expr(e.X), e.Op, e.Position
		return func(fr *frame) (object.Value, error) {
			v, err := x(fr)
			if err != nil {
				return nil, err
			}
			return fr.env.Unary(pos, op, v)
		}

	case *ast.Cast:
		x, typ, pos := u.expr(e.X), e.Type, e.Position
		return func(fr *frame) (object.Value, error) {
			v, err := x(fr)
			if err != nil {
				return nil, err
			}
			return fr.env.Cast(pos, typ, v)
		}

	case *ast.Ternary:
		cond, els := u.expr(e.Cond), u.expr(e.Else)
		var then expr
		if e.Then != nil {
			then = u.expr(e.Then)
		}
		return func(fr *frame) (object.Value, error) {
			v, err := cond(fr)
			if err != nil {
				return nil, err
			}
			if object.ToBool(v) {
				if then == nil {
					return v, nil
				}
				return then(fr)
			}
			return els(fr)
		}

	case *ast.Call, *ast.MethodCall, *ast.StaticCall, *ast.New:
		call := u.call(e)
		return func(fr *frame) (object.Value, error) {
			c, err := call(fr)
			if err != nil {
				return nil, err
			}
			return c.Value, nil
		}

	case *ast.InstanceOf:
		x, class, pos := u.expr(e.X), e.Class, e.Position
		return func(fr *frame) (object.Value, error) {
			v, err := x(fr)
			if err != nil {
				return nil, err
			}
			ok, err := fr.env.InstanceOf(pos, v, class)
			if err != nil {
				return nil, err
			}
			return object.NativeBool(ok), nil
		}

	case *ast.Isset:
		targets := make([]quiet, len(e.Targets))
		for i, t := range e.Targets {
			targets[i] = u.quiet(t)
		}
		return func(fr *frame) (object.Value, error) {
			for _, t := range targets {
				_, set, err := t(fr)
				if err != nil {
					return nil, err
				}
				if !set {
					return object.FALSE, nil
				}
			}
			return object.TRUE, nil
		}
	}
	err := runtime.Fatalf(e.Pos(), "unsupported expression %T", e)
	return func(*frame) (object.Value, error) { return nil, err }
}

// read compiles a variable read. A variable no path has assigned is known to be undefined.
func (u *unit) read(e *ast.Var) expr {
	v, name, pos := u.variable(e.Name), e.Name, e.Position
	if !u.symbols && e.State == ast.Unknown {
		u.note(fmt.Sprintf("$%s undefined at %s", name, pos))
		return func(fr *frame) (object.Value, error) {
			return fr.env.UndefinedVariable(pos, name), nil
		}
	}
	return func(fr *frame) (object.Value, error) {
		if c, ok := v.get(fr); ok {
			return c.Value, nil
		}
		return fr.env.UndefinedVariable(pos, name), nil
	}
}

// warnUnbound reports a read-modify-write of an unbound variable.
func (u *unit) warnUnbound(target ast.Expression) func(*frame) {
	t, ok := target.(*ast.Var)
	if !ok {
		return func(*frame) {}
	}
	v, name, pos := u.variable(t.Name), t.Name, t.Position
	return func(fr *frame) {
		if _, bound := v.get(fr); !bound {
			fr.env.UndefinedVariable(pos, name)
		}
	}
}

func this(fr *frame, pos ast.Position) (object.Value, error) {
	if o := fr.env.This(); o != nil {
		return o, nil
	}
	return nil, fr.env.NewThrowable(pos, "Error", "Using $this when not in object context")
}

func (u *unit) varName(e *ast.VarVar) func(*frame) (string, error) {
	name, pos := u.expr(e.Name), e.Position
	return func(fr *frame) (string, error) {
		v, err := name(fr)
		if err != nil {
			return "", err
		}
		return fr.env.ToStr(pos, v)
	}
}

func (u *unit) array(e *ast.ArrayLit) expr {
	type item struct {
		key   expr
		value expr
		ref   lvalue
	}
	items := make([]item, len(e.Items))
	for i, it := range e.Items {
		var c item
		if it.Key != nil {
			c.key = u.expr(it.Key)
		}
		if it.ByRef {
			c.ref = u.lvalue(it.Value, true)
		} else {
			c.value = u.expr(it.Value)
		}
		items[i] = c
	}
	pos := e.Position
	return func(fr *frame) (object.Value, error) {
		arr := object.NewArray()
		for _, it := range items {
			var key object.Key
			if it.key != nil {
				kv, err := it.key(fr)
				if err != nil {
					return nil, err
				}
				if key, err = object.KeyOf(kv); err != nil {
					return nil, fr.env.NewThrowable(pos, "TypeError", "Illegal offset type")
				}
			}
			if it.ref != nil {
				c, err := it.ref(fr)
				if err != nil {
					return nil, err
				}
				if it.key == nil {
					arr.AppendRef(c)
				} else {
					arr.SetRef(key, c)
				}
				continue
			}
			v, err := it.value(fr)
			if err != nil {
				return nil, err
			}
			if it.key == nil {
				arr.Append(v.Copy())
			} else {
				arr.Set(key, v.Copy())
			}
		}
		return arr, nil
	}
}

func (u *unit) binary(e *ast.Binary) expr {
	op, pos := e.Op, e.Position
	switch op {
	case "&&", "||":
		left, right := u.expr(e.Left), u.expr(e.Right)
		and := op == "&&"
		return func(fr *frame) (object.Value, error) {
			l, err := left(fr)
			if err != nil {
				return nil, err
			}
			lb := object.ToBool(l)
			if and != lb {
				return object.NativeBool(lb), nil
			}
			r, err := right(fr)
			if err != nil {
				return nil, err
			}
			return object.NativeBool(object.ToBool(r)), nil
		}
	case "??":
		left, right := u.quiet(e.Left), u.expr(e.Right)
		return func(fr *frame) (object.Value, error) {
			l, set, err := left(fr)
			if err != nil {
				return nil, err
			}
			if set {
				return l, nil
			}
			return right(fr)
		}
	}
	left, right := u.expr(e.Left), u.expr(e.Right)
	return func(fr *frame) (object.Value, error) {
		l, err := left(fr)
		if err != nil {
			return nil, err
		}
		r, err := right(fr)
		if err != nil {
			return nil, err
		}
		return fr.env.Binary(pos, op, l, r)
	}
}

func (u *unit) compound(e *ast.CompoundAssign) expr {
	value := u.expr(e.Value)
	if e.Op == "??" {
		current, target := u.quiet(e.Target), u.assign(e.Target)
		return func(fr *frame) (object.Value, error) {
			cur, set, err := current(fr)
			if err != nil {
				return nil, err
			}
			if set {
				return cur, nil
			}
			v, err := value(fr)
			if err != nil {
				return nil, err
			}
			return v, target(fr, v)
		}
	}
	warn, target := u.warnUnbound(e.Target), u.lvalue(e.Target, false)
	op, pos := e.Op, e.Position
	return func(fr *frame) (object.Value, error) {
		warn(fr)
		c, err := target(fr)
		if err != nil {
			return nil, err
		}
		rhs, err := value(fr)
		if err != nil {
			return nil, err
		}
		res, err := fr.env.Binary(pos, op, c.Value, rhs)
		if err != nil {
			return nil, err
		}
		c.Set(res)
		return res, nil
	}
}

// quiet evaluates an isset or ?? operand: no warnings, and whether the value is set.
type quiet func(fr *frame) (object.Value, bool, error)

func (u *unit) quiet(e ast.Expression) quiet {
	switch e := e.(type) {
	case *ast.Var:
		v := u.variable(e.Name)
		return func(fr *frame) (object.Value, bool, error) {
			if c, ok := v.get(fr); ok {
				return c.Value, c.Value.IsSet(), nil
			}
			return object.NULL, false, nil
		}
	case *ast.VarVar:
		name := u.varName(e)
		return func(fr *frame) (object.Value, bool, error) {
			n, err := name(fr)
			if err != nil {
				return nil, false, err
			}
			if c, ok := fr.scope.Get(n); ok {
				return c.Value, c.Value.IsSet(), nil
			}
			return object.NULL, false, nil
		}
	case *ast.This:
		return func(fr *frame) (object.Value, bool, error) {
			if o := fr.env.This(); o != nil {
				return o, true, nil
			}
			return object.NULL, false, nil
		}
	case *ast.Index:
		base, pos := u.quiet(e.Base), e.Position
		if e.Index == nil {
			return func(fr *frame) (object.Value, bool, error) {
				_, _, err := base(fr)
				return object.NULL, false, err
			}
		}
		index := u.expr(e.Index)
		return func(fr *frame) (object.Value, bool, error) {
			b, set, err := base(fr)
			if err != nil || !set {
				return object.NULL, false, err
			}
			k, err := index(fr)
			if err != nil {
				return nil, false, err
			}
			if !runtime.IssetIndex(b, k) {
				return object.NULL, false, nil
			}
			v, err := fr.env.IndexGet(pos, b, k)
			return v, err == nil, err
		}
	case *ast.Prop:
		obj, name, pos := u.quiet(e.Object), e.Name, e.Position
		return func(fr *frame) (object.Value, bool, error) {
			o, set, err := obj(fr)
			if err != nil || !set {
				return object.NULL, false, err
			}
			ok, err := fr.env.PropIsset(pos, o, name)
			if err != nil || !ok {
				return object.NULL, false, err
			}
			v, err := fr.env.PropGet(pos, o, name)
			return v, err == nil, err
		}
	case *ast.StaticProp:
		class, name, pos := e.Class, e.Name, e.Position
		return func(fr *frame) (object.Value, bool, error) {
			c, err := fr.env.StaticProp(pos, class, name)
			if err != nil {
				return object.NULL, false, nil
			}
			return c.Value, c.Value.IsSet(), nil
		}
	}
	x := u.expr(e)
	return func(fr *frame) (object.Value, bool, error) {
		v, err := x(fr)
		if err != nil {
			return nil, false, err
		}
		return v, v.IsSet(), nil
	}
}
