// Package evaluator is the tree-walking backend: every invocation walks the function body
// against a fresh symbol table.
package evaluator

import (
	"sync"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

// Interpreter is the reference backend. It keeps no per-call state; routines it hands out are
// safe to invoke from concurrent Envs.
type Interpreter struct {
	mu      sync.Mutex
	classes map[*ast.Class]*runtime.Class
}

func New() *Interpreter {
	return &Interpreter{classes: make(map[*ast.Class]*runtime.Class)}
}

func (in *Interpreter) Name() string { return "interp" }

func (in *Interpreter) Routine(fn *ast.Function) runtime.Callable {
	return &Routine{fn: fn, backend: in}
}

var constFn = &ast.Function{Name: "{const}"}

// Eval evaluates a class constant or property default.
func (in *Interpreter) Eval(env *runtime.Env, recv runtime.Receiver, e ast.Expression) (object.Value, error) {
	return env.EnterFrame(constFn, recv, func() (object.Value, error) {
		ev := &Evaluator{env: env, fn: constFn, scope: object.NewScope(), backend: in}
		return ev.eval(e)
	})
}

// class returns the one runtime class of a conditional class declaration.
func (in *Interpreter) class(env *runtime.Env, decl *ast.Class) *runtime.Class {
	in.mu.Lock()
	defer in.mu.Unlock()
	c, ok := in.classes[decl]
	if !ok {
		c = env.Runtime.DeclareClass(decl)
		in.classes[decl] = c
	}
	return c
}

// Routine interprets one function or method.
type Routine struct {
	fn      *ast.Function
	backend *Interpreter
}

func (r *Routine) Decl() *ast.Function { return r.fn }

func (r *Routine) CallN(env *runtime.Env, recv runtime.Receiver, args []*object.Cell) (*object.Cell, error) {
	ev := &Evaluator{env: env, fn: r.fn, backend: r.backend}
	if r.fn.IsMain {
		ev.scope = env.Globals()
	} else {
		ev.scope = object.NewScope()
		if err := ev.bind(args); err != nil {
			return nil, err
		}
	}
	if r.fn.Body == nil {
		return object.NewCell(object.NULL), nil
	}

	prev := env.PushScope(ev.scope)
	defer env.PopScope(prev)
	c, err := ev.execBlock(r.fn.Body)
	if err != nil {
		return nil, err
	}
	if c.Signal == runtime.SignalReturn {
		return c.Value, nil
	}
	return object.NewCell(object.NULL), nil
}

// bind binds the argument cells to the declared parameters. By value parameters get their own
// copy; missing ones are filled from their defaults, evaluated anew on every call.
func (ev *Evaluator) bind(args []*object.Cell) error {
	for i, arg := range ev.fn.Args {
		if arg.IsVariadic {
			rest := object.NewArray()
			for _, c := range args[min(i, len(args)):] {
				if arg.IsReference {
					rest.AppendRef(c)
				} else {
					rest.Append(c.Value.Copy())
				}
			}
			ev.scope.Bind(arg.Name, object.NewCell(rest))
			break
		}
		switch {
		case i < len(args) && arg.IsReference:
			ev.scope.Bind(arg.Name, args[i])
		case i < len(args):
			ev.scope.Bind(arg.Name, object.NewCell(args[i].Value.Copy()))
		case arg.Default != nil:
			v, err := ev.eval(arg.Default)
			if err != nil {
				return err
			}
			ev.scope.Bind(arg.Name, object.NewCell(v.Copy()))
		default:
			ev.scope.Bind(arg.Name, object.NewCell(object.NULL))
		}
	}
	return nil
}
