package evaluator

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"quill/internal/analysis"
	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/parser"
	"quill/internal/runtime"
)

// run interprets src against a bare runtime, without the exception prelude.
func run(t *testing.T, src string) (string, *runtime.Env, error) {
	t.Helper()
	prog, err := parser.Parse("t.php", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	in := New()
	rt := runtime.NewRuntime(in)
	cfg := analysis.Config{
		Resolve: func(name string) (*ast.Function, bool) {
			if b, ok := rt.Functions.Get(name); ok {
				return b.Decl(), true
			}
			for _, fn := range prog.Functions {
				if fn.ClassName == "" && strings.EqualFold(fn.Name, name) {
					return fn, true
				}
			}
			return nil, false
		},
		SymbolTable: runtime.SymbolTableBuiltins,
		FrameArgs:   runtime.FrameBuiltins,
	}
	if err := analysis.Program(prog, cfg); err != nil {
		t.Fatalf("analysis: %v", err)
	}
	for _, fn := range prog.Functions {
		if fn.IsGlobal && fn.ClassName == "" {
			if err := rt.AddFunction(in.Routine(fn)); err != nil {
				t.Fatal(err)
			}
		}
	}
	var out bytes.Buffer
	env := runtime.NewEnv(context.Background(), rt, &out)
	_, err = env.Invoke(prog.Main.Position, in.Routine(prog.Main), runtime.Receiver{}, nil)
	return out.String(), env, err
}

func TestInterpreter(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"recursion", `<?php
function fib($n) { return $n < 2 ? $n : fib($n - 1) + fib($n - 2); }
echo fib(15);`, "610"},
		{"by value copies", `<?php
function grow($xs) { $xs[] = 4; return count($xs); }
$a = [1, 2, 3];
echo grow($a), count($a);`, "43"},
		{"by reference", `<?php
function grow(&$xs) { $xs[] = 4; }
$a = [1, 2, 3];
grow($a);
echo count($a);`, "4"},
		{"statics", `<?php
function next_id() { static $id = 0; return ++$id; }
next_id(); next_id();
echo next_id();`, "3"},
		{"defaults evaluated per call", `<?php
function tag($xs = []) { $xs[] = "x"; return count($xs); }
echo tag(), tag();`, "11"},
		{"conditional declaration", `<?php
if (true) {
    function late() { return "late"; }
}
echo late();`, "late"},
		{"string interpolation", `<?php
$who = "world";
$n = 3;
echo "hello $who x{$n}";`, "hello world x3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.src)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestUndefinedVariableWarns(t *testing.T) {
	out, env, err := run(t, `<?php
function f() { return $nope; }
echo f() === null ? "null" : "set";`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "null" {
		t.Errorf("output = %q", out)
	}
	d := env.Diagnostics()
	if len(d) != 1 || d[0].Msg != "Undefined variable $nope" {
		t.Errorf("diagnostics = %v", d)
	}
}

func TestGlobalsOutliveRun(t *testing.T) {
	_, env, err := run(t, `<?php $kept = 42;`)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := env.Globals().Get("kept")
	if !ok || object.ToString(c.Value) != "42" {
		t.Errorf("global $kept = %v, %v", c, ok)
	}
}

func TestName(t *testing.T) {
	if New().Name() != "interp" {
		t.Errorf("Name() = %q", New().Name())
	}
}
