package compiler

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

func compileProgram(t *testing.T, src string) (*Compiler, *ast.Program) {
	t.Helper()
	prog, err := parser.Parse("t.php", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := New()
	builtins := runtime.NewRuntime(c)
	cfg := analysis.Config{
		Resolve: func(name string) (*ast.Function, bool) {
			for _, fn := range prog.Functions {
				if fn.ClassName == "" && strings.EqualFold(fn.Name, name) {
					return fn, true
				}
			}
			if b, ok := builtins.Functions.Get(name); ok {
				return b.Decl(), true
			}
			return nil, false
		},
		SymbolTable: runtime.SymbolTableBuiltins,
		FrameArgs:   runtime.FrameBuiltins,
	}
	if err := analysis.Program(prog, cfg); err != nil {
		t.Fatalf("analysis: %v", err)
	}
	return c, prog
}

func routine(t *testing.T, c *Compiler, prog *ast.Program, name string) *Routine {
	t.Helper()
	if name == "{main}" {
		return c.Routine(prog.Main).(*Routine)
	}
	for _, fn := range prog.Functions {
		if fn.QualifiedName() == name {
			return c.Routine(fn).(*Routine)
		}
	}
	t.Fatalf("no function %s", name)
	return nil
}

func TestStorage(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function f($a, &$b) {
    global $g;
    static $s = 0;
    $c = $a + 1;
    $b = $c;
    $s++;
    return $s;
}`)
	listing := routine(t, c, prog, "f").Listing()
	for _, want := range []string{
		"function f($a, &$b) [fixed/2]",
		"$a: slot 0 (arg 0, read-only)\n",
		"$b: cell 0 (arg 1, ref)\n",
		"$g: cell 1 (global)\n",
		"$s: cell 2 (static)\n",
		"$c: slot 1\n",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing lacks %q:\n%s", want, listing)
		}
	}
	if strings.Contains(listing, "uncopied") {
		t.Errorf("function with statics shares its arguments:\n%s", listing)
	}
}

func TestUncopiedArguments(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function pure($xs, $n) { return count($xs) + $n; }
function leaf($xs, $n) { return $xs[0] + $n; }
function writes($xs) { $xs[] = 1; return $xs; }`)
	tests := []struct {
		fn   string
		want string
		not  string
	}{
		// count() is a call out, so the array could be observed while shared
		{"pure", "$xs: slot 0 (arg 0, read-only)\n", "uncopied"},
		{"leaf", "$xs: slot 0 (arg 0, read-only, uncopied)\n", ""},
		{"writes", "$xs: slot 0 (arg 0)\n", "uncopied"},
	}
	for _, tt := range tests {
		l := routine(t, c, prog, tt.fn).Listing()
		if !strings.Contains(l, tt.want) {
			t.Errorf("%s: listing lacks %q:\n%s", tt.fn, tt.want, l)
		}
		if tt.not != "" && strings.Contains(l, tt.not) {
			t.Errorf("%s: listing has %q:\n%s", tt.fn, tt.not, l)
		}
	}
}

func TestSignatures(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function none() { return 1; }
function five($a, $b, $c, $d, $e) { return 1; }
function six($a, $b, $c, $d, $e, $f) { return 1; }
function rest(...$xs) { return 1; }
function args() { return func_num_args(); }
function names($a) { return compact("a"); }`)
	tests := []struct {
		fn, sig string
		symbols bool
	}{
		{"none", "fixed/0", false},
		{"five", "fixed/5", false},
		{"six", "variadic", false},
		{"rest", "variadic", false},
		{"args", "variadic", false},
		{"names", "variadic", true},
		{"{main}", "variadic", true},
	}
	for _, tt := range tests {
		r := routine(t, c, prog, tt.fn)
		if got := r.Signature(); got != tt.sig {
			t.Errorf("%s: signature %s, want %s", tt.fn, got, tt.sig)
		}
		if r.unit.symbols != tt.symbols {
			t.Errorf("%s: symbol table = %v, want %v", tt.fn, r.unit.symbols, tt.symbols)
		}
	}
}

func TestPruning(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function f($x) {
    if ($x) {
        return 1;
    } else {
        throw new Exception("no");
    }
    echo "never";
    return 2;
}
function g() {
    while (true) {
        break;
        echo "never";
    }
    return 3;
}`)
	f := routine(t, c, prog, "f")
	if n := len(f.unit.pruned); n != 2 {
		t.Errorf("f: %d statements pruned, want 2", n)
	}
	l := f.Listing()
	if strings.Contains(l, "never") || !strings.Contains(l, "// 2 unreachable statements dropped") {
		t.Errorf("f listing:\n%s", l)
	}
	if n := len(routine(t, c, prog, "g").unit.pruned); n != 1 {
		t.Errorf("g: %d statements pruned, want 1", n)
	}
}

func TestUndefinedResolvedAtCompileTime(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function f() {
    return $missing;
}`)
	l := routine(t, c, prog, "f").Listing()
	if !strings.Contains(l, "// $missing undefined at t.php:3") {
		t.Errorf("listing:\n%s", l)
	}
}

func TestImplicitReturnNote(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function maybe($x) {
    if ($x) { return 1; }
}
function always($x) {
    return $x;
}`)
	if l := routine(t, c, prog, "maybe").Listing(); !strings.Contains(l, "implicit return null") {
		t.Errorf("maybe listing:\n%s", l)
	}
	if l := routine(t, c, prog, "always").Listing(); strings.Contains(l, "implicit return null") {
		t.Errorf("always listing:\n%s", l)
	}
}

func TestRoutineIsCached(t *testing.T) {
	c, prog := compileProgram(t, `<?php function f() { return 1; }`)
	fn := prog.Functions[0]
	if c.Routine(fn) != c.Routine(fn) {
		t.Errorf("routine compiled twice")
	}
	if _, ok := c.Listing()["f"]; !ok {
		t.Errorf("Listing lacks f: %v", c.Listing())
	}
}

func TestFixedEntryPoints(t *testing.T) {
	c, prog := compileProgram(t, `<?php
function add($a, $b = 10) { return $a + $b; }
function bump(&$n) { $n++; }`)
	rt := runtime.NewRuntime(c)
	for _, fn := range prog.Functions {
		if err := rt.AddFunction(c.Routine(fn)); err != nil {
			t.Fatal(err)
		}
	}
	var out bytes.Buffer
	env := runtime.NewEnv(context.Background(), rt, &out)
	pos := ast.Position{File: "t.php"}

	add := routine(t, c, prog, "add")
	res, err := add.Call1(env, runtime.Receiver{}, object.NewCell(&object.Int{Value: 5}))
	if err != nil {
		t.Fatal(err)
	}
	if got := object.ToString(res.Value); got != "15" {
		t.Errorf("add(5) = %s, want 15", got)
	}
	res, err = env.Invoke(pos, add, runtime.Receiver{}, []*object.Cell{
		object.NewCell(&object.Int{Value: 1}), object.NewCell(&object.Int{Value: 2}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := object.ToString(res.Value); got != "3" {
		t.Errorf("add(1, 2) = %s, want 3", got)
	}

	n := object.NewCell(&object.Int{Value: 41})
	if _, err := env.Invoke(pos, routine(t, c, prog, "bump"), runtime.Receiver{}, []*object.Cell{n}); err != nil {
		t.Fatal(err)
	}
	if got := object.ToString(n.Value); got != "42" {
		t.Errorf("bump through reference = %s, want 42", got)
	}
}
