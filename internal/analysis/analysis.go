// Package analysis computes, per function, the facts both backends rely on: which variables
// are definitely, possibly or never assigned at each read, how each variable must be stored,
// and whether the function needs a symbol table or a variable-length frame.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"quill/internal/ast"
)

// Error is a program the analyzer rejects, such as a break with no loop to leave.
type Error struct {
	Msg string
	Pos ast.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// MaxFixedArgs is the widest signature that still gets a fixed-arity frame.
const MaxFixedArgs = 5

// Resolver maps a called function name onto its declaration when it is known before running,
// so that arguments bound by value need not be treated as aliased.
type Resolver func(name string) (*ast.Function, bool)

// Config names the builtins with effects on the caller's frame.
type Config struct {
	Resolve Resolver
	// SymbolTable lists functions that read or write the caller's variables by name.
	SymbolTable map[string]bool
	// FrameArgs lists functions that read the caller's argument list.
	FrameArgs map[string]bool
}

// Program analyzes the main body and every declared function and method of p.
func Program(p *ast.Program, cfg Config) error {
	var errs []error
	if err := Function(p.Main, cfg); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range p.Functions {
		if err := Function(fn, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Function annotates fn in place. Running it again over the same tree yields the same result.
func Function(fn *ast.Function, cfg Config) error {
	a := &analyzer{
		cfg:  cfg,
		fn:   fn,
		fi:   &ast.FunctionInfo{Vars: make(map[string]*ast.VarInfo)},
		seen: make(map[string]bool),
	}
	fn.Info = a.fi
	if fn.IsMain {
		a.fi.UsesSymbolTable = true
	}
	if fn.IsVariadic() || len(fn.Args) > MaxFixedArgs {
		a.fi.IsVariableArgs = true
	}

	entry := state{}
	for i, arg := range fn.Args {
		v := a.fi.Var(arg.Name)
		v.IsArgument = true
		v.ArgIndex = i
		if arg.IsReference {
			v.IsRef = true
		}
		entry[arg.Name] = ast.Valid
		if arg.Default != nil {
			a.constant(arg.Default)
		}
	}
	if fn.Body != nil {
		a.stmt(fn.Body, entry, nil)
		a.fi.HasReturn = ast.FallThrough(fn.Body) == ast.FallsThrough
	}
	return errors.Join(a.errs...)
}

// state maps variable names to their assignment state. A nil state is an unreachable point.
type state map[string]ast.VarState

func (s state) get(name string) ast.VarState {
	if st, ok := s[name]; ok {
		return st
	}
	return ast.Unknown
}

func (s state) clone() state {
	if s == nil {
		return nil
	}
	c := make(state, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func merge(a, b state) state {
	switch {
	case a == nil:
		return b.clone()
	case b == nil:
		return a.clone()
	}
	out := make(state, len(a))
	for k, v := range a {
		out[k] = v.Merge(b.get(k))
	}
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = v.Merge(ast.Unknown)
		}
	}
	return out
}

// frame is one enclosing loop or switch on the way from a statement to the function body.
type frame struct {
	isSwitch bool
	cont     state
	brk      state
}

func push(stack []*frame, f *frame) []*frame {
	return append(stack[:len(stack):len(stack)], f)
}

type analyzer struct {
	cfg  Config
	fn   *ast.Function
	fi   *ast.FunctionInfo
	errs []error
	seen map[string]bool
	dead int
}

// constant rejects parameter defaults that read anything of the frame they are evaluated in.
// self and parent name the declaring class; static would depend on the call.
func (a *analyzer) constant(e ast.Expression) {
	ok := true
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit,
			*ast.ArrayLit, *ast.ConstRef, *ast.Binary, *ast.Unary, *ast.Cast, *ast.Ternary:
		case *ast.ClassConst:
			ok = !strings.EqualFold(n.Class, "static")
		default:
			ok = false
		}
		return ok
	})
	if !ok {
		a.errorf(e.Pos(), "Constant expression contains invalid operations")
	}
}

func (a *analyzer) errorf(pos ast.Position, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	key := pos.String() + "|" + msg
	if a.seen[key] {
		return
	}
	a.seen[key] = true
	a.errs = append(a.errs, &Error{Msg: msg, Pos: pos})
}

// stmt returns the state after s, nil when s never completes normally.
func (a *analyzer) stmt(s ast.Statement, in state, stack []*frame) state {
	if in == nil {
		// dead code is still annotated and checked
		a.dead++
		a.stmt(s, state{}, stack)
		a.dead--
		return nil
	}
	switch s := s.(type) {
	case nil:
		return in
	case *ast.Block:
		cur := in
		for _, st := range s.Stmts {
			cur = a.stmt(st, cur, stack)
		}
		return cur
	case *ast.ExprStmt:
		a.expr(s.X, in)
		return in
	case *ast.Echo:
		a.exprs(s.Args, in)
		return in
	case *ast.If:
		a.expr(s.Cond, in)
		then := a.stmt(s.Then, in.clone(), stack)
		if s.Else == nil {
			return merge(then, in)
		}
		return merge(then, a.stmt(s.Else, in.clone(), stack))
	case *ast.While:
		return a.loop(in, stack, func(entry state, f *frame, stack []*frame) (state, state) {
			a.expr(s.Cond, entry)
			out := a.stmt(s.Body, entry.clone(), stack)
			return merge(out, f.cont), entry
		})
	case *ast.DoWhile:
		return a.loop(in, stack, func(entry state, f *frame, stack []*frame) (state, state) {
			out := a.stmt(s.Body, entry.clone(), stack)
			cond := merge(out, f.cont)
			if cond != nil {
				a.expr(s.Cond, cond)
			}
			return cond, cond
		})
	case *ast.For:
		a.exprs(s.Init, in)
		return a.loop(in, stack, func(entry state, f *frame, stack []*frame) (state, state) {
			a.exprs(s.Cond, entry)
			out := a.stmt(s.Body, entry.clone(), stack)
			step := merge(out, f.cont)
			if step != nil {
				a.exprs(s.Step, step)
			}
			return step, entry
		})
	case *ast.Foreach:
		a.foreachSource(s, in)
		return a.loop(in, stack, func(entry state, f *frame, stack []*frame) (state, state) {
			body := entry.clone()
			if s.Key != nil {
				a.assignTo(s.Key, body)
			}
			if s.ByRef {
				a.bindRef(s.Value, body)
			} else {
				a.assignTo(s.Value, body)
			}
			out := a.stmt(s.Body, body, stack)
			return merge(out, f.cont), entry
		})
	case *ast.Switch:
		return a.switchStmt(s, in, stack)
	case *ast.Break:
		f := a.target(s.Position, "break", s.Depth, stack)
		if f != nil && a.dead == 0 {
			f.brk = merge(f.brk, in)
		}
		return nil
	case *ast.Continue:
		f := a.target(s.Position, "continue", s.Depth, stack)
		if f != nil && a.dead == 0 {
			f.cont = merge(f.cont, in)
		}
		return nil
	case *ast.Return:
		if s.Value != nil {
			if a.fn.ReturnsRef && referenceable(s.Value) {
				a.bindRef(s.Value, in)
			} else {
				a.expr(s.Value, in)
			}
		}
		return nil
	case *ast.Throw:
		a.expr(s.Value, in)
		return nil
	case *ast.Try:
		return a.try(s, in, stack)
	case *ast.Global:
		for _, name := range s.Names {
			a.fi.Var(name).IsGlobal = true
			in[name] = ast.Valid
		}
		return in
	case *ast.Static:
		a.fi.HasStatics = true
		for _, sv := range s.Vars {
			if sv.Init != nil {
				a.expr(sv.Init, state{})
			}
			a.fi.Var(sv.Name).IsStatic = true
			in[sv.Name] = ast.Valid
		}
		return in
	case *ast.Unset:
		for _, t := range s.Targets {
			a.unset(t, in)
		}
		return in
	case *ast.FunctionDecl, *ast.ClassDecl:
		return in
	}
	return in
}

// loop runs body to a fixed point over two passes. body returns the state flowing back to the
// loop head and the state at the point where the loop condition can end it.
func (a *analyzer) loop(in state, stack []*frame, body func(entry state, f *frame, stack []*frame) (back, exit state)) state {
	entry := in.clone()
	var f *frame
	var exit state
	for pass := 0; pass < 2; pass++ {
		f = &frame{}
		var back state
		back, exit = body(entry, f, push(stack, f))
		entry = merge(in, back)
	}
	return merge(exit, f.brk)
}

func (a *analyzer) switchStmt(s *ast.Switch, in state, stack []*frame) state {
	a.expr(s.Subject, in)
	f := &frame{isSwitch: true}
	inner := push(stack, f)
	var cur state
	hasDefault := false
	for _, c := range s.Cases {
		if c.Match == nil {
			hasDefault = true
		} else {
			a.expr(c.Match, in.clone())
		}
		cur = merge(cur, in)
		for _, st := range c.Body {
			cur = a.stmt(st, cur, inner)
		}
	}
	out := merge(cur, f.brk)
	if !hasDefault {
		out = merge(out, in)
	}
	return out
}

// target finds the loop or switch a break or continue of the given depth leaves. A continue
// aimed at a switch resumes the loop around it.
func (a *analyzer) target(pos ast.Position, word string, depth int, stack []*frame) *frame {
	if depth < 1 {
		depth = 1
	}
	if len(stack) == 0 {
		a.errorf(pos, "'%s' not in the 'loop' or 'switch' context", word)
		return nil
	}
	if depth > len(stack) {
		a.errorf(pos, "Cannot '%s' %d levels", word, depth)
		return nil
	}
	i := len(stack) - depth
	if word == "continue" && stack[i].isSwitch {
		for i >= 0 && stack[i].isSwitch {
			i--
		}
		if i < 0 {
			a.errorf(pos, "'continue' targeting switch is not inside a loop")
			return nil
		}
	}
	return stack[i]
}

func (a *analyzer) try(s *ast.Try, in state, stack []*frame) state {
	out := a.stmt(s.Body, in.clone(), stack)

	// an exception can leave the body after any of its writes
	handler := in.clone()
	for _, name := range written(s.Body) {
		handler[name] = ast.Maybe
	}
	for _, c := range s.Catches {
		body := handler.clone()
		if c.Var != "" {
			a.fi.Var(c.Var).IsAssigned = true
			body[c.Var] = ast.Valid
		}
		out = merge(out, a.stmt(c.Body, body, stack))
	}
	return out
}

// written lists the variables a block may write, in first occurrence order.
func written(b *ast.Block) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(e ast.Expression) {
		if name, ok := rootVar(e); ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	ast.Inspect(b, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Assign:
			add(n.Target)
		case *ast.AssignRef:
			add(n.Target)
			add(n.Source)
		case *ast.CompoundAssign:
			add(n.Target)
		case *ast.IncDec:
			add(n.Target)
		case *ast.Foreach:
			if n.Key != nil {
				add(n.Key)
			}
			add(n.Value)
		case *ast.Unset:
			for _, t := range n.Targets {
				add(t)
			}
		case *ast.Try:
			for _, c := range n.Catches {
				if c.Var != "" {
					add(&ast.Var{Name: c.Var})
				}
			}
		case *ast.Global:
			for _, name := range n.Names {
				add(&ast.Var{Name: name})
			}
		case *ast.Static:
			for _, sv := range n.Vars {
				add(&ast.Var{Name: sv.Name})
			}
		case *ast.Call:
			for _, arg := range n.Args {
				add(arg)
			}
		case *ast.MethodCall:
			for _, arg := range n.Args {
				add(arg)
			}
		case *ast.StaticCall:
			for _, arg := range n.Args {
				add(arg)
			}
		case *ast.New:
			for _, arg := range n.Args {
				add(arg)
			}
		case *ast.ArrayLit:
			for _, item := range n.Items {
				if item.ByRef {
					add(item.Value)
				}
			}
		}
		return true
	})
	return names
}

// rootVar is the variable an lvalue chain such as $a[1][2] starts from.
func rootVar(e ast.Expression) (string, bool) {
	for {
		switch x := e.(type) {
		case *ast.Var:
			return x.Name, true
		case *ast.Index:
			e = x.Base
		default:
			return "", false
		}
	}
}

func referenceable(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Var, *ast.Index, *ast.Prop, *ast.StaticProp, *ast.VarVar:
		return true
	}
	return false
}

func (a *analyzer) exprs(es []ast.Expression, in state) {
	for _, e := range es {
		a.expr(e, in)
	}
}

// read annotates a variable read with the state reaching it.
func (a *analyzer) read(v *ast.Var, in state) {
	a.fi.Var(v.Name)
	v.State = in.get(v.Name)
}

// expr analyzes e for its reads and updates in with its writes.
func (a *analyzer) expr(e ast.Expression, in state) {
	switch e := e.(type) {
	case nil:
	case *ast.Var:
		a.read(e, in)
	case *ast.VarVar:
		a.fi.UsesSymbolTable = true
		a.expr(e.Name, in)
	case *ast.This:
		a.fi.UsesThis = true
	case *ast.Interpolated:
		a.exprs(e.Parts, in)
	case *ast.ArrayLit:
		for _, item := range e.Items {
			a.expr(item.Key, in)
			if item.ByRef {
				a.bindRef(item.Value, in)
			} else {
				a.expr(item.Value, in)
			}
		}
	case *ast.Index:
		a.expr(e.Base, in)
		a.expr(e.Index, in)
	case *ast.Prop:
		a.fi.CallsOut = true
		a.expr(e.Object, in)
	case *ast.StaticProp:
		a.classRef(e.Class)
	case *ast.ClassConst:
		a.classRef(e.Class)
	case *ast.Assign:
		a.expr(e.Value, in)
		a.assignTo(e.Target, in)
	case *ast.AssignRef:
		a.bindRef(e.Source, in)
		a.bindRef(e.Target, in)
	case *ast.CompoundAssign:
		a.modify(e.Target, in)
		if e.Op == "??" {
			branch := in.clone()
			a.expr(e.Value, branch)
			a.assignTo(e.Target, branch)
			a.join(in, branch)
			return
		}
		a.expr(e.Value, in)
		a.assignTo(e.Target, in)
	case *ast.IncDec:
		a.modify(e.Target, in)
		a.assignTo(e.Target, in)
	case *ast.Binary:
		a.expr(e.Left, in)
		switch e.Op {
		case "&&", "||", "??":
			branch := in.clone()
			a.expr(e.Right, branch)
			a.join(in, branch)
		default:
			a.expr(e.Right, in)
		}
	case *ast.Unary:
		a.expr(e.X, in)
	case *ast.Cast:
		a.expr(e.X, in)
	case *ast.Ternary:
		a.expr(e.Cond, in)
		var then state
		if e.Then != nil {
			then = in.clone()
			a.expr(e.Then, then)
		} else {
			then = in
		}
		els := in.clone()
		a.expr(e.Else, els)
		a.replace(in, merge(then, els))
	case *ast.Call:
		a.fi.CallsOut = true
		var decl *ast.Function
		if e.Callee != nil {
			a.fi.UsesSymbolTable = true
			a.expr(e.Callee, in)
		} else {
			name := strings.ToLower(e.Name)
			if a.cfg.SymbolTable[name] {
				a.fi.UsesSymbolTable = true
			}
			if a.cfg.FrameArgs[name] {
				a.fi.IsVariableArgs = true
			}
			if a.cfg.Resolve != nil {
				decl, _ = a.cfg.Resolve(e.Name)
			}
		}
		a.args(decl, e.Args, in)
	case *ast.MethodCall:
		a.fi.CallsOut = true
		a.expr(e.Object, in)
		a.args(nil, e.Args, in)
	case *ast.StaticCall:
		a.fi.CallsOut = true
		a.classRef(e.Class)
		a.args(nil, e.Args, in)
	case *ast.New:
		a.fi.CallsOut = true
		a.classRef(e.Class)
		a.expr(e.ClassExpr, in)
		a.args(nil, e.Args, in)
	case *ast.InstanceOf:
		a.expr(e.X, in)
		a.classRef(e.Class)
	case *ast.Isset:
		a.exprs(e.Targets, in)
	}
}

// classRef notes self, parent and static, which forward the current object.
func (a *analyzer) classRef(name string) {
	switch strings.ToLower(name) {
	case "self", "parent", "static":
		a.fi.UsesThis = true
	}
}

// join merges a conditionally evaluated branch back into in.
func (a *analyzer) join(in, branch state) {
	a.replace(in, merge(in, branch))
}

func (a *analyzer) replace(in, with state) {
	for k := range in {
		delete(in, k)
	}
	for k, v := range with {
		in[k] = v
	}
}

// args analyzes call arguments. Without a known declaration every variable argument may be
// taken by reference.
func (a *analyzer) args(decl *ast.Function, args []ast.Expression, in state) {
	for i, arg := range args {
		if !referenceable(arg) || (decl != nil && !refParam(decl, i)) {
			a.expr(arg, in)
			continue
		}
		name, isVar := rootVar(arg)
		before := in.get(name)
		a.bindRef(arg, in)
		if isVar && decl == nil && before != ast.Valid {
			// bound by value the argument stays undefined
			in[name] = ast.Maybe
		}
	}
}

func refParam(decl *ast.Function, i int) bool {
	if i < len(decl.Args) {
		return decl.Args[i].IsReference
	}
	if n := len(decl.Args); n > 0 && decl.Args[n-1].IsVariadic {
		return decl.Args[n-1].IsReference
	}
	return false
}

// assignTo records a write of target.
func (a *analyzer) assignTo(target ast.Expression, in state) {
	switch t := target.(type) {
	case *ast.Var:
		a.fi.Var(t.Name).IsAssigned = true
		in[t.Name] = ast.Valid
	case *ast.Index:
		a.container(t.Base, in)
		a.expr(t.Index, in)
	case *ast.Prop:
		a.fi.CallsOut = true
		a.expr(t.Object, in)
	case *ast.StaticProp:
		a.classRef(t.Class)
	case *ast.VarVar:
		a.fi.UsesSymbolTable = true
		a.expr(t.Name, in)
	case *ast.ArrayLit:
		// list() style destructuring
		for _, item := range t.Items {
			a.expr(item.Key, in)
			a.assignTo(item.Value, in)
		}
	default:
		a.expr(target, in)
	}
}

// container records a write through target, which autovivifies it.
func (a *analyzer) container(target ast.Expression, in state) {
	switch t := target.(type) {
	case *ast.Var:
		a.read(t, in)
		a.fi.Var(t.Name).IsAssigned = true
		in[t.Name] = ast.Valid
	case *ast.Index:
		a.container(t.Base, in)
		a.expr(t.Index, in)
	default:
		a.assignTo(target, in)
	}
}

// modify handles the read half of a read-modify-write.
func (a *analyzer) modify(target ast.Expression, in state) {
	if v, ok := target.(*ast.Var); ok {
		a.read(v, in)
	}
}

// bindRef records target being bound by reference, which makes it a shared cell.
func (a *analyzer) bindRef(target ast.Expression, in state) {
	switch t := target.(type) {
	case *ast.Var:
		a.read(t, in)
		v := a.fi.Var(t.Name)
		v.IsRef = true
		v.IsAssigned = true
		in[t.Name] = ast.Valid
	case *ast.Index:
		if name, ok := rootVar(t); ok {
			a.fi.Var(name).IsRef = true
		}
		a.container(t.Base, in)
		a.expr(t.Index, in)
	case *ast.Prop:
		a.fi.CallsOut = true
		a.expr(t.Object, in)
	case *ast.StaticProp:
		a.classRef(t.Class)
	case *ast.VarVar:
		a.fi.UsesSymbolTable = true
		a.expr(t.Name, in)
	default:
		a.expr(target, in)
	}
}

func (a *analyzer) foreachSource(s *ast.Foreach, in state) {
	if s.ByRef && referenceable(s.Source) {
		a.bindRef(s.Source, in)
		return
	}
	a.expr(s.Source, in)
}

func (a *analyzer) unset(target ast.Expression, in state) {
	switch t := target.(type) {
	case *ast.Var:
		v := a.fi.Var(t.Name)
		v.IsAssigned = true
		t.State = in.get(t.Name)
		in[t.Name] = ast.Unknown
	case *ast.Index:
		if name, ok := rootVar(t); ok {
			a.fi.Var(name).IsAssigned = true
		}
		a.expr(t.Base, in)
		a.expr(t.Index, in)
	default:
		a.expr(target, in)
	}
}
