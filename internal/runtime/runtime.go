package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// Callable is a function, method or builtin invoked with bound argument cells. By value
// arguments arrive uncopied; the callee copies what it may mutate.
type Callable interface {
	Decl() *ast.Function
	CallN(env *Env, recv Receiver, args []*object.Cell) (*object.Cell, error)
}

// MaxFixedArgs is the largest arity served by the positional entry points.
const MaxFixedArgs = 5

// FixedCaller is a routine with one positional entry point per small arity.
type FixedCaller interface {
	Callable
	Fixed() bool
	Call0(env *Env, recv Receiver) (*object.Cell, error)
	Call1(env *Env, recv Receiver, a0 *object.Cell) (*object.Cell, error)
	Call2(env *Env, recv Receiver, a0, a1 *object.Cell) (*object.Cell, error)
	Call3(env *Env, recv Receiver, a0, a1, a2 *object.Cell) (*object.Cell, error)
	Call4(env *Env, recv Receiver, a0, a1, a2, a3 *object.Cell) (*object.Cell, error)
	Call5(env *Env, recv Receiver, a0, a1, a2, a3, a4 *object.Cell) (*object.Cell, error)
}

// Backend turns parsed functions into callables and evaluates the constant expressions of class
// declarations (constants, property defaults).
type Backend interface {
	Name() string
	Routine(fn *ast.Function) Callable
	Eval(env *Env, recv Receiver, e ast.Expression) (object.Value, error)
}

// Runtime is the loaded program shared by every Env running it. After loading, only the lazily
// linked classes and the static cells change, both under their own locks.
type Runtime struct {
	Backend   Backend
	Functions *program.NameMap[Callable]
	Classes   *program.NameMap[*Class]
	Statics   *StaticTable
}

func NewRuntime(backend Backend) *Runtime {
	r := &Runtime{
		Backend:   backend,
		Functions: program.NewNameMap[Callable](),
		Classes:   program.NewNameMap[*Class](),
		Statics:   NewStaticTable(),
	}
	for name, fn := range builtins {
		r.Functions.Put(name, fn)
	}
	return r
}

func (r *Runtime) AddFunction(fn Callable) error {
	decl := fn.Decl()
	if !r.Functions.Put(decl.Name, fn) {
		return Fatalf(decl.Position, "Cannot redeclare %s()", decl.Name)
	}
	slog.Debug("function registered",
		slog.String("name", decl.Name),
		slog.String("backend", r.Backend.Name()))
	return nil
}

func (r *Runtime) AddClass(c *Class) error {
	if !r.Classes.Put(c.Name(), c) {
		return Fatalf(c.Def.Position, "Cannot declare class %s, because the name is already in use", c.Name())
	}
	return nil
}

// DeclareClass builds the runtime class of a parsed declaration, unlinked.
func (r *Runtime) DeclareClass(decl *ast.Class) *Class {
	return NewClass(program.NewClassDef(decl), r.Backend)
}

type staticKey struct {
	fn    string
	index int
}

// StaticTable holds the cells of `static` declarations for the lifetime of the program, keyed
// by function key and declaration index. Every function declaring statics runs under the one
// guard of the table, so read-modify-write sequences on statics never interleave across Envs.
type StaticTable struct {
	mu    sync.Mutex
	cells map[staticKey]*object.Cell
	guard *ownerLock
}

func NewStaticTable() *StaticTable {
	return &StaticTable{
		cells: make(map[staticKey]*object.Cell),
		guard: newOwnerLock(),
	}
}

// Cell returns the cell of one static declaration, running init only for the first caller.
func (t *StaticTable) Cell(fn string, index int, init func() (object.Value, error)) (*object.Cell, error) {
	k := staticKey{fn, index}
	t.mu.Lock()
	c, ok := t.cells[k]
	t.mu.Unlock()
	if ok {
		return c, nil
	}

	v, err := init()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.cells[k]; ok {
		return c, nil
	}
	c = object.NewCell(v)
	t.cells[k] = c
	return c, nil
}

// Len counts the initialized cells.
func (t *StaticTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cells)
}

// Enter takes the statics guard for env, waiting at most until its context ends.
func (t *StaticTable) Enter(env *Env) error {
	return t.guard.Lock(env)
}

func (t *StaticTable) Leave(env *Env) {
	t.guard.Unlock(env)
}

// ownerLock is a mutex that the holding Env may take again, for recursive calls.
type ownerLock struct {
	sem   chan struct{}
	mu    sync.Mutex
	owner *Env
	depth int
}

func newOwnerLock() *ownerLock {
	return &ownerLock{sem: make(chan struct{}, 1)}
}

// Lock fails with the context error of env when it ends before the lock is free.
func (l *ownerLock) Lock(env *Env) error {
	l.mu.Lock()
	if l.owner == env {
		l.depth++
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	ctx := env.Context()
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	l.mu.Lock()
	l.owner = env
	l.depth = 1
	l.mu.Unlock()
	return nil
}

func (l *ownerLock) Unlock(env *Env) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != env {
		panic(fmt.Sprintf("static guard released by a non owner (depth %d)", l.depth))
	}
	l.depth--
	if l.depth == 0 {
		l.owner = nil
		<-l.sem
	}
}
