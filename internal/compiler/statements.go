package compiler

import (
	"errors"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

type (
	stmt   func(fr *frame) (runtime.Completion, error)
	expr   func(fr *frame) (object.Value, error)
	lvalue func(fr *frame) (*object.Cell, error)
)

var normal stmt = func(*frame) (runtime.Completion, error) { return runtime.Normal, nil }

// block compiles a statement list. Statements after one that never falls through are dropped.
func (u *unit) block(list []ast.Statement) []stmt {
	out := make([]stmt, 0, len(list))
	for i, s := range list {
		out = append(out, u.stmt(s))
		if ast.FallThrough(s) != ast.FallsThrough {
			u.pruned = append(u.pruned, list[i+1:]...)
			break
		}
	}
	return out
}

func seq(ss []stmt) stmt {
	switch len(ss) {
	case 0:
		return normal
	case 1:
		return ss[0]
	}
	return func(fr *frame) (runtime.Completion, error) {
		for _, s := range ss {
			c, err := s(fr)
			if err != nil || c.Signal != runtime.SignalNone {
				return c, err
			}
		}
		return runtime.Normal, nil
	}
}

// body compiles a nested statement, which may be absent.
func (u *unit) body(s ast.Statement) stmt {
	switch s := s.(type) {
	case nil:
		return normal
	case *ast.Block:
		return seq(u.block(s.Stmts))
	}
	return u.stmt(s)
}

func (u *unit) stmt(s ast.Statement) stmt {
	switch s := s.(type) {
	case *ast.Block:
		return seq(u.block(s.Stmts))

	case *ast.ExprStmt:
		x := u.expr(s.X)
		return func(fr *frame) (runtime.Completion, error) {
			_, err := x(fr)
			return runtime.Normal, err
		}

	case *ast.Echo:
		args := u.exprs(s.Args)
		pos := s.Position
		return func(fr *frame) (runtime.Completion, error) {
			for _, a := range args {
				v, err := a(fr)
				if err != nil {
					return runtime.Normal, err
				}
				str, err := fr.env.ToStr(pos, v)
				if err != nil {
					return runtime.Normal, err
				}
				if err := fr.env.Echo(str); err != nil {
					return runtime.Normal, err
				}
			}
			return runtime.Normal, nil
		}

	case *ast.If:
		cond, then, els := u.expr(s.Cond), u.body(s.Then), u.body(s.Else)
		return func(fr *frame) (runtime.Completion, error) {
			v, err := cond(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if object.ToBool(v) {
				return then(fr)
			}
			return els(fr)
		}

	case *ast.While:
		return u.while(s)
	case *ast.DoWhile:
		return u.doWhile(s)
	case *ast.For:
		return u.forLoop(s)
	case *ast.Foreach:
		return u.foreach(s)
	case *ast.Switch:
		return u.switchStmt(s)

	case *ast.Break:
		c := runtime.Break(s.Depth)
		return func(*frame) (runtime.Completion, error) { return c, nil }
	case *ast.Continue:
		c := runtime.Continue(s.Depth)
		return func(*frame) (runtime.Completion, error) { return c, nil }

	case *ast.Return:
		return u.returnStmt(s)

	case *ast.Throw:
		x, pos := u.expr(s.Value), s.Position
		return func(fr *frame) (runtime.Completion, error) {
			v, err := x(fr)
			if err != nil {
				return runtime.Normal, err
			}
			return runtime.Normal, fr.env.Throw(pos, v)
		}

	case *ast.Try:
		return u.try(s)

	case *ast.Global:
		vars := make([]variable, len(s.Names))
		for i, name := range s.Names {
			vars[i] = u.variable(name)
		}
		names, pos := s.Names, s.Position
		return func(fr *frame) (runtime.Completion, error) {
			for i, v := range vars {
				if err := v.bind(fr, pos, fr.env.GlobalCell(names[i])); err != nil {
					return runtime.Normal, err
				}
			}
			return runtime.Normal, nil
		}

	case *ast.Static:
		return u.static(s)

	case *ast.Unset:
		targets := make([]func(*frame) error, len(s.Targets))
		for i, t := range s.Targets {
			targets[i] = u.unset(t)
		}
		return func(fr *frame) (runtime.Completion, error) {
			for _, t := range targets {
				if err := t(fr); err != nil {
					return runtime.Normal, err
				}
			}
			return runtime.Normal, nil
		}

	case *ast.FunctionDecl:
		if s.Fn.IsGlobal {
			return normal
		}
		fn, c := s.Fn, u.c
		return func(fr *frame) (runtime.Completion, error) {
			return runtime.Normal, fr.env.AddFunction(c.Routine(fn))
		}

	case *ast.ClassDecl:
		if s.Class.IsGlobal {
			return normal
		}
		decl, c := s.Class, u.c
		return func(fr *frame) (runtime.Completion, error) {
			return runtime.Normal, fr.env.AddClass(c.class(fr.env, decl))
		}
	}
	err := runtime.Fatalf(s.Pos(), "unsupported statement %T", s)
	return func(*frame) (runtime.Completion, error) { return runtime.Normal, err }
}

func (u *unit) while(s *ast.While) stmt {
	cond, body, pos := u.expr(s.Cond), u.body(s.Body), s.Position
	return func(fr *frame) (runtime.Completion, error) {
		for {
			if err := fr.env.CheckTimeout(pos); err != nil {
				return runtime.Normal, err
			}
			v, err := cond(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if !object.ToBool(v) {
				return runtime.Normal, nil
			}
			c, err := body(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if out, stop := c.Loop(); stop {
				return out, nil
			}
		}
	}
}

func (u *unit) doWhile(s *ast.DoWhile) stmt {
	body, cond, pos := u.body(s.Body), u.expr(s.Cond), s.Position
	return func(fr *frame) (runtime.Completion, error) {
		for {
			if err := fr.env.CheckTimeout(pos); err != nil {
				return runtime.Normal, err
			}
			c, err := body(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if out, stop := c.Loop(); stop {
				return out, nil
			}
			v, err := cond(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if !object.ToBool(v) {
				return runtime.Normal, nil
			}
		}
	}
}

func (u *unit) forLoop(s *ast.For) stmt {
	init, cond, step := u.exprs(s.Init), u.exprs(s.Cond), u.exprs(s.Step)
	body, pos := u.body(s.Body), s.Position
	return func(fr *frame) (runtime.Completion, error) {
		if _, err := evalList(fr, init); err != nil {
			return runtime.Normal, err
		}
		for {
			if err := fr.env.CheckTimeout(pos); err != nil {
				return runtime.Normal, err
			}
			if len(cond) > 0 {
				v, err := evalList(fr, cond)
				if err != nil {
					return runtime.Normal, err
				}
				if !object.ToBool(v) {
					return runtime.Normal, nil
				}
			}
			c, err := body(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if out, stop := c.Loop(); stop {
				return out, nil
			}
			if _, err := evalList(fr, step); err != nil {
				return runtime.Normal, err
			}
		}
	}
}

func evalList(fr *frame, es []expr) (object.Value, error) {
	var last object.Value = object.NULL
	for _, e := range es {
		v, err := e(fr)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (u *unit) foreach(s *ast.Foreach) stmt {
	pos := s.Position
	var key func(*frame, object.Value) error
	if s.Key != nil {
		key = u.assign(s.Key)
	}
	body := u.body(s.Body)

	if s.ByRef {
		source, value := u.lvalue(s.Source, true), u.bindRef(s.Value)
		return func(fr *frame) (runtime.Completion, error) {
			container, err := source(fr)
			if err != nil {
				return runtime.Normal, err
			}
			keys, cells := fr.env.ForeachRefs(pos, container)
			for i, k := range keys {
				if err := fr.env.CheckTimeout(pos); err != nil {
					return runtime.Normal, err
				}
				if key != nil {
					if err := key(fr, k.Value()); err != nil {
						return runtime.Normal, err
					}
				}
				if err := value(fr, cells[i]); err != nil {
					return runtime.Normal, err
				}
				c, err := body(fr)
				if err != nil {
					return runtime.Normal, err
				}
				if out, stop := c.Loop(); stop {
					return out, nil
				}
			}
			return runtime.Normal, nil
		}
	}

	source, value := u.expr(s.Source), u.assign(s.Value)
	return func(fr *frame) (runtime.Completion, error) {
		src, err := source(fr)
		if err != nil {
			return runtime.Normal, err
		}
		keys, values := fr.env.ForeachValues(pos, src)
		for i, k := range keys {
			if err := fr.env.CheckTimeout(pos); err != nil {
				return runtime.Normal, err
			}
			if key != nil {
				if err := key(fr, k.Value()); err != nil {
					return runtime.Normal, err
				}
			}
			if err := value(fr, values[i]); err != nil {
				return runtime.Normal, err
			}
			c, err := body(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if out, stop := c.Loop(); stop {
				return out, nil
			}
		}
		return runtime.Normal, nil
	}
}

// switchStmt compiles the case bodies into one statement list; a match jumps into it at the
// first statement of its case and runs to the end.
func (u *unit) switchStmt(s *ast.Switch) stmt {
	subject := u.expr(s.Subject)
	matches := make([]expr, len(s.Cases))
	entry := make([]int, len(s.Cases))
	var body []stmt
	def := -1
	for i, c := range s.Cases {
		if c.Match == nil {
			if def < 0 {
				def = i
			}
		} else {
			matches[i] = u.expr(c.Match)
		}
		entry[i] = len(body)
		body = append(body, u.block(c.Body)...)
	}
	return func(fr *frame) (runtime.Completion, error) {
		sv, err := subject(fr)
		if err != nil {
			return runtime.Normal, err
		}
		start := -1
		for i, m := range matches {
			if m == nil {
				continue
			}
			v, err := m(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if object.LooseEquals(sv, v) {
				start = i
				break
			}
		}
		if start < 0 {
			start = def
		}
		if start < 0 {
			return runtime.Normal, nil
		}
		for _, st := range body[entry[start]:] {
			c, err := st(fr)
			if err != nil {
				return runtime.Normal, err
			}
			if c.Signal != runtime.SignalNone {
				return c.Switch(), nil
			}
		}
		return runtime.Normal, nil
	}
}

func (u *unit) returnStmt(s *ast.Return) stmt {
	if s.Value == nil {
		return func(*frame) (runtime.Completion, error) {
			return runtime.Return(object.NewCell(object.NULL)), nil
		}
	}
	if u.fn.ReturnsRef && referenceable(s.Value) {
		target := u.lvalue(s.Value, true)
		return func(fr *frame) (runtime.Completion, error) {
			c, err := target(fr)
			if err != nil {
				return runtime.Normal, err
			}
			return runtime.Return(c), nil
		}
	}
	x := u.expr(s.Value)
	return func(fr *frame) (runtime.Completion, error) {
		v, err := x(fr)
		if err != nil {
			return runtime.Normal, err
		}
		return runtime.Return(object.NewCell(v.CopyForReturn())), nil
	}
}

func (u *unit) try(s *ast.Try) stmt {
	type handler struct {
		types []string
		v     variable
		body  stmt
	}
	tryBody := seq(u.block(s.Body.Stmts))
	handlers := make([]handler, len(s.Catches))
	for i, cc := range s.Catches {
		h := handler{types: cc.Types, body: seq(u.block(cc.Body.Stmts))}
		if cc.Var != "" {
			h.v = u.variable(cc.Var)
		}
		handlers[i] = h
	}
	return func(fr *frame) (runtime.Completion, error) {
		c, err := tryBody(fr)
		if err == nil {
			return c, nil
		}
		var te *runtime.ThrowError
		if !errors.As(err, &te) {
			return runtime.Normal, err
		}
		for _, h := range handlers {
			if !runtime.CatchMatches(te, h.types) {
				continue
			}
			if h.v != nil {
				h.v.cell(fr).Set(te.Value)
			}
			return h.body(fr)
		}
		return runtime.Normal, err
	}
}

func (u *unit) static(s *ast.Static) stmt {
	type decl struct {
		v     variable
		index int
		init  expr
	}
	decls := make([]decl, len(s.Vars))
	for i, sv := range s.Vars {
		d := decl{v: u.variable(sv.Name), index: sv.Index}
		if sv.Init != nil {
			d.init = u.expr(sv.Init)
		}
		decls[i] = d
	}
	fn, pos := u.fn, s.Position
	return func(fr *frame) (runtime.Completion, error) {
		for _, d := range decls {
			cell, err := fr.env.StaticCell(fn, d.index, func() (object.Value, error) {
				if d.init == nil {
					return object.NULL, nil
				}
				return d.init(fr)
			})
			if err != nil {
				return runtime.Normal, err
			}
			if err := d.v.bind(fr, pos, cell); err != nil {
				return runtime.Normal, err
			}
		}
		return runtime.Normal, nil
	}
}
