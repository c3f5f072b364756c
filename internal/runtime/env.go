package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// DefaultMaxDepth bounds guest recursion before the native stack does.
const DefaultMaxDepth = 5000

// Receiver is the object and class context a routine runs in: $this, self and static.
type Receiver struct {
	This   *object.Object
	Self   *Class
	Static *Class
}

// Frame is one active invocation.
type Frame struct {
	Fn   *ast.Function
	Recv Receiver
	Args []*object.Cell
	Pos  ast.Position // call site
}

// Env is one execution context: a single call stack, its scopes and its output. An Env is not
// safe for concurrent use; concurrent invocations each get their own Env over a shared Runtime.
type Env struct {
	Runtime  *Runtime
	MaxDepth int

	ctx     context.Context
	out     io.Writer
	globals *object.Scope
	scope   *object.Scope

	// declared while running, on top of the loaded program
	functions *program.NameMap[Callable]
	classes   *program.NameMap[*Class]

	classStatics  map[*Class]map[string]*object.Cell
	stack         []*Frame
	diags         []Diagnostic
	destructibles []*object.Object
	magicActive   map[magicKey]bool
}

func NewEnv(ctx context.Context, rt *Runtime, out io.Writer) *Env {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	globals := object.NewScope()
	return &Env{
		Runtime:      rt,
		MaxDepth:     DefaultMaxDepth,
		ctx:          ctx,
		out:          out,
		globals:      globals,
		scope:        globals,
		functions:    program.NewNameMap[Callable](),
		classes:      program.NewNameMap[*Class](),
		classStatics: make(map[*Class]map[string]*object.Cell),
	}
}

func (e *Env) Context() context.Context { return e.ctx }

// SetContext replaces the cancellation context, for long lived Envs such as the REPL's.
func (e *Env) SetContext(ctx context.Context) { e.ctx = ctx }

func (e *Env) Out() io.Writer { return e.out }

func (e *Env) Echo(s string) error {
	_, err := io.WriteString(e.out, s)
	return err
}

// PushScope makes s the current symbol table and returns the previous one for PopScope.
func (e *Env) PushScope(s *object.Scope) *object.Scope {
	prev := e.scope
	e.scope = s
	return prev
}

func (e *Env) PopScope(prev *object.Scope) {
	e.scope = prev
}

// Scope is the symbol table of the running routine, nil when it keeps its variables in slots.
func (e *Env) Scope() *object.Scope { return e.scope }

func (e *Env) Globals() *object.Scope { return e.globals }

func (e *Env) GlobalCell(name string) *object.Cell {
	return e.globals.Cell(name)
}

// StaticCell returns the shared cell of the index-th static declaration of fn.
func (e *Env) StaticCell(fn *ast.Function, index int, init func() (object.Value, error)) (*object.Cell, error) {
	return e.Runtime.Statics.Cell(fn.Key(), index, init)
}

// CheckTimeout is the cooperative cancellation point, called on function entry and on every
// loop iteration.
func (e *Env) CheckTimeout(pos ast.Position) error {
	err := e.ctx.Err()
	if err == nil {
		return nil
	}
	reason := "execution cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "maximum execution time exceeded"
	}
	return &AbortError{Reason: reason, Pos: pos}
}

// Warn records a warning diagnostic.
func (e *Env) Warn(pos ast.Position, format string, a ...any) {
	e.report(Diagnostic{Level: LevelWarning, Msg: fmt.Sprintf(format, a...), Pos: pos})
}

func (e *Env) report(d Diagnostic) {
	e.diags = append(e.diags, d)
	slog.Debug("guest diagnostic",
		slog.String("level", d.Level.String()),
		slog.String("message", d.Msg),
		slog.String("pos", d.Pos.String()))
}

func (e *Env) Diagnostics() []Diagnostic {
	return e.diags
}

func (e *Env) pushFrame(f *Frame) error {
	if len(e.stack) >= e.MaxDepth {
		return Fatalf(f.Pos, "maximum function nesting level of '%d' reached", e.MaxDepth)
	}
	e.stack = append(e.stack, f)
	return nil
}

func (e *Env) popFrame() {
	e.stack = e.stack[:len(e.stack)-1]
}

// Frame is the innermost invocation, nil outside any call.
func (e *Env) Frame() *Frame {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

// CallerFrame is the invocation that called the innermost one.
func (e *Env) CallerFrame() *Frame {
	if len(e.stack) < 2 {
		return nil
	}
	return e.stack[len(e.stack)-2]
}

func (e *Env) Depth() int { return len(e.stack) }

// StackTrace lists the active calls, innermost first.
func (e *Env) StackTrace() string {
	var sb strings.Builder
	for i := len(e.stack) - 1; i >= 0; i-- {
		f := e.stack[i]
		fmt.Fprintf(&sb, "#%d %s() called at %s\n", len(e.stack)-1-i, f.Fn.QualifiedName(), f.Pos)
	}
	return sb.String()
}

func (e *Env) receiver() Receiver {
	if f := e.Frame(); f != nil {
		return f.Recv
	}
	return Receiver{}
}

func (e *Env) This() *object.Object { return e.receiver().This }
func (e *Env) Self() *Class         { return e.receiver().Self }

// FindFunction looks a function up by name, case-insensitively.
func (e *Env) FindFunction(name string) (Callable, bool) {
	if fn, ok := e.Runtime.Functions.Get(name); ok {
		return fn, true
	}
	return e.functions.Get(name)
}

// AddFunction declares a function at run time.
func (e *Env) AddFunction(fn Callable) error {
	decl := fn.Decl()
	if _, ok := e.Runtime.Functions.Get(decl.Name); ok || !e.functions.Put(decl.Name, fn) {
		return Fatalf(decl.Position, "Cannot redeclare %s()", decl.Name)
	}
	return nil
}

// LookupClass finds a class by name without linking it.
func (e *Env) LookupClass(name string) (*Class, bool) {
	if c, ok := e.Runtime.Classes.Get(name); ok {
		return c, true
	}
	return e.classes.Get(name)
}

// FindClass finds and links a class.
func (e *Env) FindClass(pos ast.Position, name string) (*Class, error) {
	c, ok := e.LookupClass(name)
	if !ok {
		return nil, Fatalf(pos, "Class \"%s\" not found", name)
	}
	if err := c.Link(e); err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveClass maps a class reference, including self, parent and static, onto a linked class.
func (e *Env) ResolveClass(pos ast.Position, name string) (*Class, error) {
	recv := e.receiver()
	switch strings.ToLower(name) {
	case "self":
		if recv.Self == nil {
			return nil, Fatalf(pos, "Cannot use \"self\" when no class scope is active")
		}
		return recv.Self, nil
	case "static":
		if recv.Static == nil {
			return nil, Fatalf(pos, "Cannot use \"static\" when no class scope is active")
		}
		return recv.Static, nil
	case "parent":
		if recv.Self == nil {
			return nil, Fatalf(pos, "Cannot use \"parent\" when no class scope is active")
		}
		if recv.Self.Parent == nil {
			return nil, Fatalf(pos, "Cannot use \"parent\" when current class scope has no parent")
		}
		return recv.Self.Parent, nil
	}
	return e.FindClass(pos, name)
}

// AddClass declares a class at run time.
func (e *Env) AddClass(c *Class) error {
	if _, ok := e.Runtime.Classes.Get(c.Name()); ok || !e.classes.Put(c.Name(), c) {
		return Fatalf(c.Def.Position, "Cannot declare class %s, because the name is already in use", c.Name())
	}
	return nil
}

// Import makes the functions and classes of another loaded program visible in this Env.
func (e *Env) Import(rt *Runtime) error {
	for _, name := range rt.Functions.Names() {
		fn, _ := rt.Functions.Get(name)
		if _, isBuiltin := fn.(*Builtin); isBuiltin {
			continue
		}
		if err := e.AddFunction(fn); err != nil {
			return err
		}
	}
	for _, name := range rt.Classes.Names() {
		c, _ := rt.Classes.Get(name)
		if c.Def.Decl.Position.File == PreludeFile {
			continue
		}
		if err := e.AddClass(c); err != nil {
			return err
		}
	}
	return nil
}

// staticProps returns the static property cells of c in this Env, initialized on first use.
func (e *Env) staticProps(c *Class) (map[string]*object.Cell, error) {
	if m, ok := e.classStatics[c]; ok {
		return m, nil
	}
	m := make(map[string]*object.Cell)
	e.classStatics[c] = m
	for _, f := range c.staticFields {
		if f.Owner != c.Name() {
			// inherited statics share the parent's cell
			parent, err := e.staticProps(c.ancestor(f.Owner))
			if err != nil {
				return nil, err
			}
			m[f.Name] = parent[f.Name]
			continue
		}
		v, err := c.evalDefault(e, f.Default)
		if err != nil {
			delete(e.classStatics, c)
			return nil, err
		}
		m[f.Name] = object.NewCell(v)
	}
	return m, nil
}

func (e *Env) trackDestructible(o *object.Object) {
	e.destructibles = append(e.destructibles, o)
}

// RunDestructors calls __destruct once on every object that has one, in creation order.
func (e *Env) RunDestructors() error {
	for len(e.destructibles) > 0 {
		o := e.destructibles[0]
		e.destructibles = e.destructibles[1:]
		if o.Destructed {
			continue
		}
		o.Destructed = true
		class := o.Class.(*Class)
		m := class.magic[program.SlotDestruct]
		if m == nil {
			continue
		}
		if _, err := e.Invoke(class.Def.Position, m.Callable, m.receiverFor(o), nil); err != nil {
			return err
		}
	}
	return nil
}
