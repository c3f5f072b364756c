package analysis

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse("test.php", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog
}

func analyze(t *testing.T, src string, cfg Config) *ast.Program {
	t.Helper()
	prog := parse(t, src)
	if err := Program(prog, cfg); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return prog
}

func function(t *testing.T, prog *ast.Program, name string) *ast.Function {
	t.Helper()
	for _, fn := range prog.Functions {
		if strings.EqualFold(fn.QualifiedName(), name) {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// readStates lists the annotated state of every read of name in fn, in source order.
func readStates(fn *ast.Function, name string) []ast.VarState {
	var states []ast.VarState
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if v, ok := n.(*ast.Var); ok && v.Name == name && v.State != ast.StateNone {
			states = append(states, v.State)
		}
		return true
	})
	return states
}

func TestVarStates(t *testing.T) {
	prog := analyze(t, `
function f($a) {
	echo $a;
	echo $b;
	if ($a) { $c = 1; }
	echo $c;
	$d = 1;
	echo $d;
	if ($a) { $e = 1; } else { $e = 2; }
	echo $e;
	unset($d);
	echo $d;
}
function loops($n) {
	$first = true;
	while ($n > 0) {
		if (!$first) { echo $y; }
		$y = 1;
		$first = false;
		$n--;
	}
	echo $y;
}
function catches() {
	try {
		$t = compute();
	} catch (Exception $ex) {
		echo $t;
		echo $ex;
	}
}
`, Config{})

	tests := []struct {
		fn   string
		name string
		want []ast.VarState
	}{
		{"f", "a", []ast.VarState{ast.Valid, ast.Valid, ast.Valid}},
		{"f", "b", []ast.VarState{ast.Unknown}},
		{"f", "c", []ast.VarState{ast.Maybe}},
		{"f", "d", []ast.VarState{ast.Valid, ast.Valid, ast.Unknown}},
		{"f", "e", []ast.VarState{ast.Valid}},
		{"loops", "y", []ast.VarState{ast.Maybe, ast.Maybe}},
		{"catches", "t", []ast.VarState{ast.Maybe}},
		{"catches", "ex", []ast.VarState{ast.Valid}},
	}
	for _, tt := range tests {
		got := readStates(function(t, prog, tt.fn), tt.name)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: $%s states = %v, want %v", tt.fn, tt.name, got, tt.want)
		}
	}
}

func TestVarFlags(t *testing.T) {
	prog := analyze(t, `
function h(&$r, $ro, $w) {
	$w = 1;
	global $g;
	static $s = 0;
	$r = 2;
	return $ro . $w . $g . $s;
}
`, Config{})
	fi := function(t, prog, "h").Info

	if !fi.Vars["r"].IsRef || !fi.Vars["r"].NeedsCell() {
		t.Errorf("$r should be a reference")
	}
	if !fi.Vars["ro"].IsReadOnly() {
		t.Errorf("$ro should be read-only")
	}
	if fi.Vars["w"].IsReadOnly() {
		t.Errorf("$w is assigned and cannot be read-only")
	}
	if !fi.Vars["g"].IsGlobal || !fi.Vars["g"].NeedsCell() {
		t.Errorf("$g should be global")
	}
	if !fi.Vars["s"].IsStatic || !fi.HasStatics {
		t.Errorf("$s should be static")
	}
	if fi.UsesSymbolTable || fi.IsVariableArgs {
		t.Errorf("unexpected frame flags: %+v", fi)
	}
	if fi.HasReturn {
		t.Errorf("a body ending in return needs no terminal return")
	}
	if got := fi.Vars["ro"].ArgIndex; got != 1 {
		t.Errorf("$ro ArgIndex = %d, want 1", got)
	}
}

func TestFrameFlags(t *testing.T) {
	cfg := Config{
		SymbolTable: map[string]bool{"compact": true, "extract": true},
		FrameArgs:   map[string]bool{"func_get_args": true},
	}
	prog := analyze(t, `
function varvar() { $n = 'x'; $$n = 1; }
function packs() { $a = 1; return compact('a'); }
function frame() { return func_get_args(); }
function wide($a, $b, $c, $d, $e, $f) { return $a; }
function rest($a, ...$xs) { return $xs; }
function dynamic($f) { return $f(1); }
function method() { return $this->x; }
function plain($a) { echo $a; }
`, cfg)

	tests := []struct {
		fn          string
		symbolTable bool
		variable    bool
		hasReturn   bool
	}{
		{"varvar", true, false, true},
		{"packs", true, false, false},
		{"frame", false, true, false},
		{"wide", false, true, false},
		{"rest", false, true, false},
		{"dynamic", true, false, false},
		{"method", false, false, false},
		{"plain", false, false, true},
	}
	for _, tt := range tests {
		fi := function(t, prog, tt.fn).Info
		if fi.UsesSymbolTable != tt.symbolTable {
			t.Errorf("%s: UsesSymbolTable = %v, want %v", tt.fn, fi.UsesSymbolTable, tt.symbolTable)
		}
		if fi.IsVariableArgs != tt.variable {
			t.Errorf("%s: IsVariableArgs = %v, want %v", tt.fn, fi.IsVariableArgs, tt.variable)
		}
		if fi.HasReturn != tt.hasReturn {
			t.Errorf("%s: HasReturn = %v, want %v", tt.fn, fi.HasReturn, tt.hasReturn)
		}
	}
	if !function(t, prog, "method").Info.UsesThis {
		t.Errorf("method should use $this")
	}
	if !prog.Main.Info.UsesSymbolTable {
		t.Errorf("top level code always runs on the symbol table")
	}
}

func TestResolvedArguments(t *testing.T) {
	src := `
function take($v) { return $v; }
function grab(&$v) { $v = 1; }
function caller() {
	$x = 1;
	take($x);
	grab($y);
	return $x + $y;
}
`
	unresolved := analyze(t, src, Config{})
	if !function(t, unresolved, "caller").Info.Vars["x"].IsRef {
		t.Errorf("an unknown callee may bind $x by reference")
	}

	prog := parse(t, src)
	resolve := func(name string) (*ast.Function, bool) {
		for _, fn := range prog.Functions {
			if strings.EqualFold(fn.Name, name) {
				return fn, true
			}
		}
		return nil, false
	}
	if err := Program(prog, Config{Resolve: resolve}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	caller := function(t, prog, "caller")
	if caller.Info.Vars["x"].IsRef {
		t.Errorf("$x is passed by value to a known function")
	}
	if !caller.Info.Vars["y"].IsRef {
		t.Errorf("$y is passed to a by-reference parameter")
	}
	// a by-reference argument creates the variable
	if got := readStates(caller, "y"); len(got) != 2 || got[1] != ast.Valid {
		t.Errorf("$y states = %v, want Valid after the call", got)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"function e() { break; }", "'break' not in the 'loop' or 'switch' context"},
		{"while (true) { break 2; }", "Cannot 'break' 2 levels"},
		{"foreach ($a as $v) { continue 3; }", "Cannot 'continue' 3 levels"},
		{"function s($x) { switch ($x) { case 1: continue; } }", "'continue' targeting switch is not inside a loop"},
		{"function d($x = $y) {}", "Constant expression contains invalid operations"},
		{"function d($x = strlen('a')) {}", "Constant expression contains invalid operations"},
		{"class K { const A = 1; function m($x = static::A) {} }", "Constant expression contains invalid operations"},
	}
	for _, tt := range tests {
		err := Program(parse(t, tt.src), Config{})
		var aerr *Error
		if !errors.As(err, &aerr) {
			t.Errorf("%q: expected an analysis error, got %v", tt.src, err)
			continue
		}
		if aerr.Msg != tt.want {
			t.Errorf("%q: error = %q, want %q", tt.src, aerr.Msg, tt.want)
		}
	}

	ok := []string{
		"while (true) { switch ($x) { case 1: continue; } break; }",
		"for ($i = 0; $i < 3; $i++) { foreach ($a as $v) { if ($v) { continue 2; } break 2; } }",
		"do { switch ($x) { default: break 2; } } while (false);",
		"class K { const A = 1; function m($a = self::A + 1, $b = [1, 'k' => PHP_EOL], $c = -1, $d = null, $e = true ? 'y' : 'n') {} }",
	}
	for _, src := range ok {
		if err := Program(parse(t, src), Config{}); err != nil {
			t.Errorf("%q: unexpected error %v", src, err)
		}
	}
}

type snapshot struct {
	infos  []ast.FunctionInfo
	states [][]ast.VarState
}

func take(prog *ast.Program) snapshot {
	var s snapshot
	for _, fn := range append([]*ast.Function{prog.Main}, prog.Functions...) {
		s.infos = append(s.infos, *fn.Info)
		var states []ast.VarState
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if v, ok := n.(*ast.Var); ok {
				states = append(states, v.State)
			}
			return true
		})
		s.states = append(s.states, states)
	}
	return s
}

func TestIdempotent(t *testing.T) {
	prog := analyze(t, `
$total = 0;
function walk($items, &$out) {
	foreach ($items as $k => $v) {
		switch ($v) {
		case 0:
			continue 2;
		case 1:
			$seen = true;
			break;
		default:
			try { $out[] = $v; } catch (Exception $e) { $failed = $e; }
		}
		while ($k-- > 0) {
			if ($k == 3) { break; }
			$last = $k;
		}
	}
	return isset($seen) ? $last : $failed;
}
walk([1, 2], $total);
`, Config{})
	first := take(prog)
	if err := Program(prog, Config{}); err != nil {
		t.Fatalf("second analysis: %v", err)
	}
	second := take(prog)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("analysis is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
