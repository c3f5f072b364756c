// Package compiler is the ahead-of-time backend. Each function is translated once into a tree of
// Go closures, shaped by the flow analysis: variables live in raw slots, shared cells or the
// symbol table, reads of never-assigned variables are resolved at compile time, unreachable
// statements are dropped and small signatures get positional entry points.
package compiler

import (
	"log/slog"
	"strconv"
	"sync"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/runtime"
)

// Compiler is the compiling backend. Compiled routines are immutable and shared by every Env.
type Compiler struct {
	mu       sync.Mutex
	routines map[*ast.Function]*Routine
	consts   map[ast.Expression]expr
	classes  map[*ast.Class]*runtime.Class
}

func New() *Compiler {
	return &Compiler{
		routines: make(map[*ast.Function]*Routine),
		consts:   make(map[ast.Expression]expr),
		classes:  make(map[*ast.Class]*runtime.Class),
	}
}

func (c *Compiler) Name() string { return "compile" }

// Routine compiles fn on first request. fn must have been analyzed.
func (c *Compiler) Routine(fn *ast.Function) runtime.Callable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.routines[fn]; ok {
		return r
	}
	r := c.compile(fn)
	c.routines[fn] = r
	slog.Debug("routine compiled",
		slog.String("name", fn.QualifiedName()),
		slog.String("signature", r.Signature()),
		slog.Int("slots", r.unit.nslots),
		slog.Int("cells", r.unit.ncells))
	return r
}

var constFn = &ast.Function{Name: "{const}"}

// Eval evaluates a class constant or property default.
func (c *Compiler) Eval(env *runtime.Env, recv runtime.Receiver, e ast.Expression) (object.Value, error) {
	c.mu.Lock()
	x, ok := c.consts[e]
	if !ok {
		u := newUnit(c, constFn)
		x = u.expr(e)
		c.consts[e] = x
	}
	c.mu.Unlock()
	return env.EnterFrame(constFn, recv, func() (object.Value, error) {
		return x(&frame{env: env, scope: object.NewScope()})
	})
}

func (c *Compiler) class(env *runtime.Env, decl *ast.Class) *runtime.Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	cls, ok := c.classes[decl]
	if !ok {
		cls = env.Runtime.DeclareClass(decl)
		c.classes[decl] = cls
	}
	return cls
}

// Listing returns the listing of every routine compiled so far, keyed by qualified name.
func (c *Compiler) Listing() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.routines))
	for fn, r := range c.routines {
		out[fn.QualifiedName()] = r.Listing()
	}
	return out
}

func (c *Compiler) compile(fn *ast.Function) *Routine {
	u := newUnit(c, fn)
	r := &Routine{fn: fn, unit: u}
	r.params = make([]variable, len(fn.Args))
	r.defaults = make([]expr, len(fn.Args))
	for i, a := range fn.Args {
		r.params[i] = u.variable(a.Name)
		if a.Default != nil {
			r.defaults[i] = u.expr(a.Default)
		}
		if !a.IsReference && !a.IsVariadic && u.noCopy(a.Name) {
			r.shared = append(r.shared, i)
		}
	}
	if fn.Body != nil {
		r.body = u.block(fn.Body.Stmts)
		if ast.FallThrough(fn.Body) != ast.Returns {
			u.note("implicit return null at end of body")
		}
	}
	r.listing = r.buildListing()
	return r
}

// frame is the storage of one invocation.
type frame struct {
	env   *runtime.Env
	slots []object.Cell  // raw variables, a nil Value is unassigned
	cells []*object.Cell // shared variables, a nil cell is unassigned
	scope *object.Scope  // symbol table, when the routine needs one
}

// Routine is a compiled function or method.
type Routine struct {
	fn       *ast.Function
	unit     *unit
	params   []variable
	defaults []expr
	shared   []int // by value parameters bound without a copy
	body     []stmt
	listing  string
}

func (r *Routine) Decl() *ast.Function { return r.fn }

// Fixed holds for routines with a small fixed signature and no symbol table.
func (r *Routine) Fixed() bool {
	info := r.fn.Info
	return info != nil && !info.IsVariableArgs && !info.UsesSymbolTable && len(r.fn.Args) <= runtime.MaxFixedArgs
}

// Signature is fixed/N or variadic.
func (r *Routine) Signature() string {
	if r.Fixed() {
		return "fixed/" + strconv.Itoa(len(r.fn.Args))
	}
	return "variadic"
}

func (r *Routine) Listing() string { return r.listing }

func (r *Routine) enter(env *runtime.Env) *frame {
	fr := &frame{env: env}
	u := r.unit
	if u.nslots > 0 {
		fr.slots = make([]object.Cell, u.nslots)
	}
	if u.ncells > 0 {
		fr.cells = make([]*object.Cell, u.ncells)
	}
	switch {
	case r.fn.IsMain:
		fr.scope = env.Globals()
	case u.symbols:
		fr.scope = object.NewScope()
	}
	return fr
}

func (r *Routine) isShared(i int) bool {
	for _, s := range r.shared {
		if s == i {
			return true
		}
	}
	return false
}

// bindArg binds the i-th parameter to an argument cell.
func (r *Routine) bindArg(fr *frame, i int, c *object.Cell) error {
	a := r.fn.Args[i]
	switch {
	case a.IsReference:
		return r.params[i].bind(fr, r.fn.Position, c)
	case r.isShared(i):
		r.params[i].assign(fr, c.Value)
	default:
		r.params[i].assign(fr, c.Value.Copy())
	}
	return nil
}

// bindMissing fills parameters from n on with their defaults.
func (r *Routine) bindMissing(fr *frame, n int) error {
	for i := n; i < len(r.fn.Args); i++ {
		a := r.fn.Args[i]
		if a.IsVariadic {
			r.params[i].assign(fr, object.NewArray())
			continue
		}
		var v object.Value = object.NULL
		if d := r.defaults[i]; d != nil {
			dv, err := d(fr)
			if err != nil {
				return err
			}
			v = dv.Copy()
		}
		r.params[i].assign(fr, v)
	}
	return nil
}

func (r *Routine) run(fr *frame) (*object.Cell, error) {
	prev := fr.env.PushScope(fr.scope)
	defer fr.env.PopScope(prev)
	for _, s := range r.body {
		c, err := s(fr)
		if err != nil {
			return nil, err
		}
		if c.Signal == runtime.SignalReturn {
			return c.Value, nil
		}
	}
	return object.NewCell(object.NULL), nil
}

func (r *Routine) CallN(env *runtime.Env, recv runtime.Receiver, args []*object.Cell) (*object.Cell, error) {
	fr := r.enter(env)
	if !r.fn.IsMain {
		n := 0
		for i, a := range r.fn.Args {
			if a.IsVariadic {
				rest := object.NewArray()
				for _, c := range args[min(i, len(args)):] {
					if a.IsReference {
						rest.AppendRef(c)
					} else {
						rest.Append(c.Value.Copy())
					}
				}
				r.params[i].assign(fr, rest)
				n = i + 1
				break
			}
			if i >= len(args) {
				break
			}
			if err := r.bindArg(fr, i, args[i]); err != nil {
				return nil, err
			}
			n = i + 1
		}
		if err := r.bindMissing(fr, n); err != nil {
			return nil, err
		}
	}
	return r.run(fr)
}

func (r *Routine) callFixed(env *runtime.Env, args ...*object.Cell) (*object.Cell, error) {
	fr := r.enter(env)
	n := min(len(args), len(r.fn.Args))
	for i := 0; i < n; i++ {
		if err := r.bindArg(fr, i, args[i]); err != nil {
			return nil, err
		}
	}
	if err := r.bindMissing(fr, n); err != nil {
		return nil, err
	}
	return r.run(fr)
}

func (r *Routine) Call0(env *runtime.Env, recv runtime.Receiver) (*object.Cell, error) {
	return r.callFixed(env)
}

func (r *Routine) Call1(env *runtime.Env, recv runtime.Receiver, a0 *object.Cell) (*object.Cell, error) {
	return r.callFixed(env, a0)
}

func (r *Routine) Call2(env *runtime.Env, recv runtime.Receiver, a0, a1 *object.Cell) (*object.Cell, error) {
	return r.callFixed(env, a0, a1)
}

func (r *Routine) Call3(env *runtime.Env, recv runtime.Receiver, a0, a1, a2 *object.Cell) (*object.Cell, error) {
	return r.callFixed(env, a0, a1, a2)
}

func (r *Routine) Call4(env *runtime.Env, recv runtime.Receiver, a0, a1, a2, a3 *object.Cell) (*object.Cell, error) {
	return r.callFixed(env, a0, a1, a2, a3)
}

func (r *Routine) Call5(env *runtime.Env, recv runtime.Receiver, a0, a1, a2, a3, a4 *object.Cell) (*object.Cell, error) {
	return r.callFixed(env, a0, a1, a2, a3, a4)
}
