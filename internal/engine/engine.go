// Package engine loads scripts onto a backend and runs them: parsing, flow analysis, hoisting of
// unconditional declarations and, for the compiling backend, the artifact store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"quill/internal/analysis"
	"quill/internal/ast"
	"quill/internal/compiler"
	"quill/internal/evaluator"
	"quill/internal/object"
	"quill/internal/parser"
	"quill/internal/program"
	"quill/internal/runtime"
	"quill/internal/store"
	"quill/internal/util/future"
)

const (
	BackendInterp  = "interp"
	BackendCompile = "compile"
)

// NewBackend returns a fresh backend by name.
func NewBackend(name string) (runtime.Backend, error) {
	switch name {
	case BackendInterp, "":
		return evaluator.New(), nil
	case BackendCompile:
		return compiler.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q, expected %s or %s", name, BackendInterp, BackendCompile)
}

type Options struct {
	Backend string
	// Timeout bounds every Run and Call; zero means no limit.
	Timeout time.Duration
	// Store receives the compiled artifacts when set.
	Store *store.Store
}

// Script is a loaded program, ready to run any number of times, concurrently if need be.
type Script struct {
	File    string
	Program *ast.Program
	Runtime *runtime.Runtime

	source  []byte
	prelude *ast.Program
	main    runtime.Callable
	opts    Options
}

// Load parses, analyzes and registers a script.
func Load(ctx context.Context, file string, src []byte, opts Options) (*Script, error) {
	backend, err := NewBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	prelude, err := parser.Parse(runtime.PreludeFile, runtime.PreludeSource)
	if err != nil {
		return nil, fmt.Errorf("prelude: %w", err)
	}
	prog, err := parser.Parse(file, string(src))
	if err != nil {
		return nil, err
	}

	rt := runtime.NewRuntime(backend)
	declared := program.NewNameMap[*ast.Function]()
	for _, p := range []*ast.Program{prelude, prog} {
		for _, fn := range p.Functions {
			if fn.IsGlobal && fn.ClassName == "" {
				declared.Put(fn.Name, fn)
			}
		}
	}
	cfg := analysis.Config{
		Resolve: func(name string) (*ast.Function, bool) {
			if fn, ok := declared.Get(name); ok {
				return fn, true
			}
			if c, ok := rt.Functions.Get(name); ok {
				return c.Decl(), true
			}
			return nil, false
		},
		SymbolTable: runtime.SymbolTableBuiltins,
		FrameArgs:   runtime.FrameBuiltins,
	}
	if err := analysis.Program(prelude, cfg); err != nil {
		return nil, fmt.Errorf("prelude: %w", err)
	}
	if err := analysis.Program(prog, cfg); err != nil {
		return nil, err
	}

	for _, p := range []*ast.Program{prelude, prog} {
		if err := register(rt, p); err != nil {
			return nil, err
		}
	}

	s := &Script{
		File:    file,
		Program: prog,
		Runtime: rt,
		source:  src,
		prelude: prelude,
		main:    backend.Routine(prog.Main),
		opts:    opts,
	}
	slog.Debug("script loaded",
		slog.String("file", file),
		slog.String("backend", backend.Name()),
		slog.Int("functions", len(prog.Functions)),
		slog.Int("classes", len(prog.Classes)))

	if c, ok := backend.(*compiler.Compiler); ok {
		for _, fn := range prog.Functions {
			c.Routine(fn)
		}
		if opts.Store != nil {
			if err := s.save(ctx, c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// register hoists the unconditional declarations of p.
func register(rt *runtime.Runtime, p *ast.Program) error {
	for _, fn := range p.Functions {
		if !fn.IsGlobal || fn.ClassName != "" {
			continue
		}
		if err := rt.AddFunction(rt.Backend.Routine(fn)); err != nil {
			return err
		}
	}
	for _, decl := range p.Classes {
		if !decl.IsGlobal {
			continue
		}
		if err := rt.AddClass(rt.DeclareClass(decl)); err != nil {
			return err
		}
	}
	return nil
}

// Backend names the backend the script was loaded onto.
func (s *Script) Backend() string { return s.Runtime.Backend.Name() }

// NewEnv returns an execution context over the script. Its globals live as long as it does.
func (s *Script) NewEnv(ctx context.Context, out io.Writer) *runtime.Env {
	return runtime.NewEnv(ctx, s.Runtime, out)
}

func (s *Script) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Result is what a finished run leaves behind besides its output.
type Result struct {
	Diagnostics []runtime.Diagnostic
	Elapsed     time.Duration
}

// Run executes the top level code, then the pending destructors, writing output to out.
func (s *Script) Run(ctx context.Context, out io.Writer) (*Result, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	env := s.NewEnv(ctx, out)
	start := time.Now()
	err := s.RunIn(env)
	if derr := env.RunDestructors(); err == nil {
		err = derr
	}
	res := &Result{Diagnostics: env.Diagnostics(), Elapsed: time.Since(start)}
	for _, d := range res.Diagnostics {
		slog.Warn(d.Msg, slog.String("level", d.Level.String()), slog.String("pos", d.Pos.String()))
	}
	if err != nil {
		logFailure(s.File, err)
	}
	return res, err
}

// RunIn executes the top level code in an existing Env, against its globals. Destructors are
// left to the caller.
func (s *Script) RunIn(env *runtime.Env) error {
	_, err := env.Invoke(s.Program.Main.Position, s.main, runtime.Receiver{}, nil)
	return err
}

// Call invokes a function of the script in a fresh Env, without running the top level code.
func (s *Script) Call(ctx context.Context, name string, args ...object.Value) (object.Value, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	env := s.NewEnv(ctx, nil)
	pos := ast.Position{File: s.File}
	target, err := env.FunctionTarget(pos, name)
	if err != nil {
		return nil, err
	}
	cells := make([]*object.Cell, len(args))
	for i, a := range args {
		cells[i] = object.NewCell(a)
	}
	c, err := env.Invoke(pos, target, runtime.Receiver{}, cells)
	if err != nil {
		return nil, err
	}
	if err := env.RunDestructors(); err != nil {
		return nil, err
	}
	return c.Value, nil
}

// Go runs Call on its own goroutine.
func (s *Script) Go(ctx context.Context, name string, args ...object.Value) *future.Future[object.Value] {
	return future.New(func() (object.Value, error) {
		return s.Call(ctx, name, args...)
	})
}

// Listing renders the compiled shape of every function of the script, main first. A script
// loaded onto the interpreter is compiled for the listing only.
func (s *Script) Listing() string {
	c, ok := s.Runtime.Backend.(*compiler.Compiler)
	if !ok {
		c = compiler.New()
	}
	fns := append([]*ast.Function{s.Program.Main}, s.Program.Functions...)
	var sb strings.Builder
	for i, fn := range fns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Routine(fn).(*compiler.Routine).Listing())
	}
	return sb.String()
}

func (s *Script) artifacts(c *compiler.Compiler) *store.Script {
	sc := &store.Script{
		Fingerprint: store.Fingerprint(s.source),
		File:        s.File,
		Backend:     BackendCompile,
	}
	fns := append([]*ast.Function{s.Program.Main}, s.Program.Functions...)
	for _, fn := range fns {
		r := c.Routine(fn).(*compiler.Routine)
		sc.Routines = append(sc.Routines, store.Routine{
			Name:      fn.QualifiedName(),
			Signature: r.Signature(),
			Listing:   r.Listing(),
		})
		if fn.Info == nil {
			continue
		}
		for _, name := range fn.Info.Order {
			sc.Vars = append(sc.Vars, store.Var{
				Function: fn.QualifiedName(),
				Name:     name,
				Flags:    varFlags(fn.Info.Vars[name]),
			})
		}
	}
	sort.Slice(sc.Vars, func(i, j int) bool {
		if sc.Vars[i].Function != sc.Vars[j].Function {
			return sc.Vars[i].Function < sc.Vars[j].Function
		}
		return sc.Vars[i].Name < sc.Vars[j].Name
	})
	return sc
}

// save writes the artifacts of the script, warning when the analysis stored under the same
// fingerprint disagrees with the fresh one.
func (s *Script) save(ctx context.Context, c *compiler.Compiler) error {
	sc := s.artifacts(c)
	stored, err := s.opts.Store.LoadVars(ctx, sc.Fingerprint)
	if err != nil {
		return err
	}
	if len(stored) > 0 {
		if diff := store.Diff(stored, sc.Vars); len(diff) > 0 {
			slog.Warn("stored analysis differs",
				slog.String("file", s.File),
				slog.String("fingerprint", sc.Fingerprint),
				slog.String("diff", strings.Join(diff, "; ")))
		}
	}
	return s.opts.Store.SaveScript(ctx, sc)
}

func varFlags(v *ast.VarInfo) string {
	var fs []string
	if v.IsArgument {
		fs = append(fs, fmt.Sprintf("arg %d", v.ArgIndex))
	}
	for _, f := range []struct {
		set  bool
		name string
	}{
		{v.IsAssigned, "assigned"},
		{v.IsRef, "ref"},
		{v.IsGlobal, "global"},
		{v.IsStatic, "static"},
	} {
		if f.set {
			fs = append(fs, f.name)
		}
	}
	return strings.Join(fs, ", ")
}

func logFailure(file string, err error) {
	var (
		te *runtime.ThrowError
		ae *runtime.AbortError
		fe *runtime.FatalError
	)
	switch {
	case errors.As(err, &te):
		slog.Error("uncaught exception", slog.String("file", file), slog.String("class", te.Value.Class.Name()), slog.String("pos", te.Pos.String()))
	case errors.As(err, &ae):
		slog.Error("script aborted", slog.String("file", file), slog.String("reason", ae.Reason), slog.String("pos", ae.Pos.String()))
	case errors.As(err, &fe):
		slog.Error("fatal error", slog.String("file", file), slog.String("msg", fe.Msg), slog.String("pos", fe.Pos.String()))
	default:
		slog.Error("script failed", slog.String("file", file), slog.Any("error", err))
	}
}
