package evaluator

import (
	"errors"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

// Evaluator runs one invocation: the routine, its symbol table and the Env it runs in.
type Evaluator struct {
	env     *runtime.Env
	fn      *ast.Function
	scope   *object.Scope
	backend *Interpreter
}

func (ev *Evaluator) execBlock(b *ast.Block) (runtime.Completion, error) {
	for _, s := range b.Stmts {
		c, err := ev.exec(s)
		if err != nil || c.Signal != runtime.SignalNone {
			return c, err
		}
	}
	return runtime.Normal, nil
}

func (ev *Evaluator) exec(s ast.Statement) (runtime.Completion, error) {
	switch s := s.(type) {
	case *ast.Block:
		return ev.execBlock(s)

	case *ast.ExprStmt:
		_, err := ev.eval(s.X)
		return runtime.Normal, err

	case *ast.Echo:
		for _, a := range s.Args {
			v, err := ev.eval(a)
			if err != nil {
				return runtime.Normal, err
			}
			str, err := ev.env.ToStr(s.Position, v)
			if err != nil {
				return runtime.Normal, err
			}
			if err := ev.env.Echo(str); err != nil {
				return runtime.Normal, err
			}
		}
		return runtime.Normal, nil

	case *ast.If:
		cond, err := ev.eval(s.Cond)
		if err != nil {
			return runtime.Normal, err
		}
		if object.ToBool(cond) {
			return ev.exec(s.Then)
		}
		if s.Else != nil {
			return ev.exec(s.Else)
		}
		return runtime.Normal, nil

	case *ast.While:
		return ev.execWhile(s)
	case *ast.DoWhile:
		return ev.execDoWhile(s)
	case *ast.For:
		return ev.execFor(s)
	case *ast.Foreach:
		return ev.execForeach(s)
	case *ast.Switch:
		return ev.execSwitch(s)

	case *ast.Break:
		return runtime.Break(s.Depth), nil
	case *ast.Continue:
		return runtime.Continue(s.Depth), nil

	case *ast.Return:
		return ev.execReturn(s)

	case *ast.Throw:
		v, err := ev.eval(s.Value)
		if err != nil {
			return runtime.Normal, err
		}
		return runtime.Normal, ev.env.Throw(s.Position, v)

	case *ast.Try:
		return ev.execTry(s)

	case *ast.Global:
		for _, name := range s.Names {
			ev.scope.Bind(name, ev.env.GlobalCell(name))
		}
		return runtime.Normal, nil

	case *ast.Static:
		for _, sv := range s.Vars {
			cell, err := ev.env.StaticCell(ev.fn, sv.Index, func() (object.Value, error) {
				if sv.Init == nil {
					return object.NULL, nil
				}
				return ev.eval(sv.Init)
			})
			if err != nil {
				return runtime.Normal, err
			}
			ev.scope.Bind(sv.Name, cell)
		}
		return runtime.Normal, nil

	case *ast.Unset:
		for _, t := range s.Targets {
			if err := ev.unset(t); err != nil {
				return runtime.Normal, err
			}
		}
		return runtime.Normal, nil

	case *ast.FunctionDecl:
		if s.Fn.IsGlobal {
			return runtime.Normal, nil
		}
		return runtime.Normal, ev.env.AddFunction(ev.backend.Routine(s.Fn))

	case *ast.ClassDecl:
		if s.Class.IsGlobal {
			return runtime.Normal, nil
		}
		return runtime.Normal, ev.env.AddClass(ev.backend.class(ev.env, s.Class))
	}
	return runtime.Normal, runtime.Fatalf(s.Pos(), "unsupported statement %T", s)
}

func (ev *Evaluator) execWhile(s *ast.While) (runtime.Completion, error) {
	for {
		if err := ev.env.CheckTimeout(s.Position); err != nil {
			return runtime.Normal, err
		}
		cond, err := ev.eval(s.Cond)
		if err != nil {
			return runtime.Normal, err
		}
		if !object.ToBool(cond) {
			return runtime.Normal, nil
		}
		c, err := ev.exec(s.Body)
		if err != nil {
			return runtime.Normal, err
		}
		if out, stop := c.Loop(); stop {
			return out, nil
		}
	}
}

func (ev *Evaluator) execDoWhile(s *ast.DoWhile) (runtime.Completion, error) {
	for {
		if err := ev.env.CheckTimeout(s.Position); err != nil {
			return runtime.Normal, err
		}
		c, err := ev.exec(s.Body)
		if err != nil {
			return runtime.Normal, err
		}
		if out, stop := c.Loop(); stop {
			return out, nil
		}
		cond, err := ev.eval(s.Cond)
		if err != nil {
			return runtime.Normal, err
		}
		if !object.ToBool(cond) {
			return runtime.Normal, nil
		}
	}
}

func (ev *Evaluator) execFor(s *ast.For) (runtime.Completion, error) {
	if _, err := ev.evalList(s.Init); err != nil {
		return runtime.Normal, err
	}
	for {
		if err := ev.env.CheckTimeout(s.Position); err != nil {
			return runtime.Normal, err
		}
		if len(s.Cond) > 0 {
			cond, err := ev.evalList(s.Cond)
			if err != nil {
				return runtime.Normal, err
			}
			if !object.ToBool(cond) {
				return runtime.Normal, nil
			}
		}
		c, err := ev.exec(s.Body)
		if err != nil {
			return runtime.Normal, err
		}
		if out, stop := c.Loop(); stop {
			return out, nil
		}
		if _, err := ev.evalList(s.Step); err != nil {
			return runtime.Normal, err
		}
	}
}

// evalList evaluates comma separated expressions and yields the last value.
func (ev *Evaluator) evalList(es []ast.Expression) (object.Value, error) {
	var last object.Value = object.NULL
	for _, e := range es {
		v, err := ev.eval(e)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (ev *Evaluator) execForeach(s *ast.Foreach) (runtime.Completion, error) {
	if s.ByRef {
		container, err := ev.refCell(s.Source)
		if err != nil {
			return runtime.Normal, err
		}
		keys, cells := ev.env.ForeachRefs(s.Position, container)
		for i, k := range keys {
			if err := ev.env.CheckTimeout(s.Position); err != nil {
				return runtime.Normal, err
			}
			if s.Key != nil {
				if err := ev.assign(s.Key, k.Value()); err != nil {
					return runtime.Normal, err
				}
			}
			if err := ev.bindRef(s.Value, cells[i]); err != nil {
				return runtime.Normal, err
			}
			c, err := ev.exec(s.Body)
			if err != nil {
				return runtime.Normal, err
			}
			if out, stop := c.Loop(); stop {
				return out, nil
			}
		}
		return runtime.Normal, nil
	}

	src, err := ev.eval(s.Source)
	if err != nil {
		return runtime.Normal, err
	}
	keys, values := ev.env.ForeachValues(s.Position, src)
	for i, k := range keys {
		if err := ev.env.CheckTimeout(s.Position); err != nil {
			return runtime.Normal, err
		}
		if s.Key != nil {
			if err := ev.assign(s.Key, k.Value()); err != nil {
				return runtime.Normal, err
			}
		}
		if err := ev.assign(s.Value, values[i]); err != nil {
			return runtime.Normal, err
		}
		c, err := ev.exec(s.Body)
		if err != nil {
			return runtime.Normal, err
		}
		if out, stop := c.Loop(); stop {
			return out, nil
		}
	}
	return runtime.Normal, nil
}

func (ev *Evaluator) execSwitch(s *ast.Switch) (runtime.Completion, error) {
	subject, err := ev.eval(s.Subject)
	if err != nil {
		return runtime.Normal, err
	}
	start := -1
	for i, c := range s.Cases {
		if c.Match == nil {
			continue
		}
		v, err := ev.eval(c.Match)
		if err != nil {
			return runtime.Normal, err
		}
		if object.LooseEquals(subject, v) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range s.Cases {
			if c.Match == nil {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return runtime.Normal, nil
	}
	for _, c := range s.Cases[start:] {
		for _, st := range c.Body {
			comp, err := ev.exec(st)
			if err != nil {
				return runtime.Normal, err
			}
			if comp.Signal != runtime.SignalNone {
				return comp.Switch(), nil
			}
		}
	}
	return runtime.Normal, nil
}

func (ev *Evaluator) execReturn(s *ast.Return) (runtime.Completion, error) {
	if s.Value == nil {
		return runtime.Return(object.NewCell(object.NULL)), nil
	}
	if ev.fn.ReturnsRef && referenceable(s.Value) {
		c, err := ev.refCell(s.Value)
		if err != nil {
			return runtime.Normal, err
		}
		return runtime.Return(c), nil
	}
	v, err := ev.eval(s.Value)
	if err != nil {
		return runtime.Normal, err
	}
	return runtime.Return(object.NewCell(v.CopyForReturn())), nil
}

func (ev *Evaluator) execTry(s *ast.Try) (runtime.Completion, error) {
	c, err := ev.execBlock(s.Body)
	if err == nil {
		return c, nil
	}
	var te *runtime.ThrowError
	if !errors.As(err, &te) {
		return runtime.Normal, err
	}
	for _, cc := range s.Catches {
		if !runtime.CatchMatches(te, cc.Types) {
			continue
		}
		if cc.Var != "" {
			ev.scope.Cell(cc.Var).Set(te.Value)
		}
		return ev.execBlock(cc.Body)
	}
	return runtime.Normal, err
}
