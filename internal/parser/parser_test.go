package parser

import (
	"errors"
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input), "test.php", input)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser has %d errors:\n%s", len(errs), strings.Join(errs, "\n"))
	}
	return program
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$a = 1 + 2 * 3;", "$a = (1 + (2 * 3));"},
		{"$a . $b + 1;", "($a . ($b + 1));"},
		{"!$a instanceof B;", "(!($a instanceof B));"},
		{"$a ?? $b ?? $c;", "($a ?? ($b ?? $c));"},
		{"$a = $b = 3;", "$a = $b = 3;"},
		{"$x += $y * 2;", "$x += ($y * 2);"},
		{"$a && $b || $c;", "(($a && $b) || $c);"},
		{"$a == 1 ? 'x' : 'y';", "(($a == 1) ? \"x\" : \"y\");"},
		{"$a ?: 'y';", "($a ?: \"y\");"},
		{"$o->m(1)->p[2];", "$o->m(1)->p[2];"},
		{"A::$s[] = 5;", "A::$s[] = 5;"},
		{"static::create(-1);", "static::create((-1));"},
		{"(int) $x + 1;", "((int)$x + 1);"},
		{"($a + 1) * 2;", "(($a + 1) * 2);"},
		{"$a = &$b;", "$a = &$b;"},
		{"$i++ + ++$j;", "($i++ + ++$j);"},
		{"new Foo(1, 2);", "new Foo(1, 2);"},
		{"$$name = 1;", "${$name} = 1;"},
		{"isset($a[1], $b->c);", "isset($a[1], $b->c);"},
		{"$x = [1, 'k' => &$v];", "$x = [1, \"k\" => &$v];"},
		{"array(1, 2,);", "[1, 2];"},
		{"$f(3);", "$f(3);"},
		{"-$a * 2;", "((-$a) * 2);"},
		{"Foo::BAR . PHP_EOL;", "(Foo::BAR . PHP_EOL);"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if len(program.Main.Body.Stmts) != 1 {
			t.Fatalf("%q: expected 1 statement, got %d", tt.input, len(program.Main.Body.Stmts))
		}
		actual := program.Main.Body.Stmts[0].String()
		if actual != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, actual)
		}
	}
}

func TestStatements(t *testing.T) {
	input := `<?php
function add(&$x, $y = 2) {
    static $calls = 0, $last;
    $calls++;
    return $x + $y;
}
if ($a) {
    function inner() {}
} elseif ($b) {
    echo 1, 2;
} else {
    foreach ($xs as $k => &$v) { continue 2; }
}
switch ($x) {
case 1:
case 2;
    break;
default:
    echo "d";
}
try { throw new E(); } catch (A | B $e) { } catch (C) { }
`
	program := parse(t, input)

	if len(program.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(program.Functions))
	}
	add := program.Functions[0]
	if add.Name != "add" || !add.IsGlobal || add.Line != 2 {
		t.Errorf("unexpected function %s global=%v line=%d", add.Name, add.IsGlobal, add.Line)
	}
	if !add.Args[0].IsReference || add.Args[1].Default == nil || add.RequiredArgs() != 1 {
		t.Errorf("unexpected args %+v %+v", add.Args[0], add.Args[1])
	}
	static := add.Body.Stmts[0].(*ast.Static)
	if static.Vars[0].Index != 0 || static.Vars[1].Index != 1 || static.Vars[1].Init != nil {
		t.Errorf("unexpected static declarations %+v %+v", static.Vars[0], static.Vars[1])
	}
	inner := program.Functions[1]
	if inner.Name != "inner" || inner.IsGlobal {
		t.Errorf("conditional function must not be global")
	}

	stmts := program.Main.Body.Stmts
	if len(stmts) != 4 {
		t.Fatalf("expected 4 top level statements, got %d", len(stmts))
	}
	ifStmt := stmts[1].(*ast.If)
	elseIf, ok := ifStmt.Else.(*ast.If)
	if !ok {
		t.Fatalf("elseif should nest as If, got %T", ifStmt.Else)
	}
	fe := elseIf.Else.(*ast.Block).Stmts[0].(*ast.Foreach)
	if !fe.ByRef || fe.Key == nil {
		t.Errorf("foreach key/ref not parsed: %s", fe)
	}
	if c := fe.Body.(*ast.Block).Stmts[0].(*ast.Continue); c.Depth != 2 {
		t.Errorf("continue depth = %d", c.Depth)
	}

	sw := stmts[2].(*ast.Switch)
	if len(sw.Cases) != 3 || len(sw.Cases[0].Body) != 0 || sw.Cases[2].Match != nil {
		t.Errorf("unexpected switch shape: %s", sw)
	}

	try := stmts[3].(*ast.Try)
	if len(try.Catches) != 2 || len(try.Catches[0].Types) != 2 || try.Catches[0].Var != "e" || try.Catches[1].Var != "" {
		t.Errorf("unexpected catches: %s", try)
	}
}

func TestClassDeclaration(t *testing.T) {
	input := `
abstract class A extends B implements I, J {
    use T, U { T::hello insteadof U; U::hello as protected greet; }
    const X = 1, Y = 2;
    public static $count = 0;
    private $name = 'n', $other;
    abstract protected function run();
    final public function &get(array $xs, ?int &$n = null, ...$rest): int {
        static $a, $b = 2;
        return $xs;
    }
}`
	program := parse(t, input)
	if len(program.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(program.Classes))
	}
	c := program.Classes[0]
	if c.Name != "A" || c.Parent != "B" || len(c.Interfaces) != 2 || !c.IsAbstract || !c.IsGlobal {
		t.Errorf("unexpected class header %+v", c)
	}
	use := c.Uses[0]
	if len(use.Traits) != 2 || len(use.Rules) != 2 {
		t.Fatalf("unexpected trait use %+v", use)
	}
	if r := use.Rules[0]; r.Trait != "T" || r.Method != "hello" || len(r.InsteadOf) != 1 || r.InsteadOf[0] != "U" {
		t.Errorf("unexpected insteadof rule %+v", r)
	}
	if r := use.Rules[1]; r.Trait != "U" || r.Alias != "greet" || !r.HasVisibility || r.AliasVis != ast.Protected {
		t.Errorf("unexpected alias rule %+v", r)
	}
	if len(c.Consts) != 2 || len(c.Props) != 3 {
		t.Errorf("expected 2 consts and 3 props, got %d and %d", len(c.Consts), len(c.Props))
	}
	if p := c.Props[0]; !p.IsStatic || p.Visibility != ast.Public {
		t.Errorf("unexpected prop %+v", p)
	}
	if p := c.Props[2]; p.Name != "other" || p.Visibility != ast.Private || p.Default != nil {
		t.Errorf("unexpected prop %+v", p)
	}

	run, get := c.Methods[0], c.Methods[1]
	if !run.IsAbstract || run.Body != nil || run.Visibility != ast.Protected || run.ClassName != "A" {
		t.Errorf("unexpected abstract method %+v", run)
	}
	if !get.ReturnsRef || !get.IsFinal || len(get.Args) != 3 {
		t.Fatalf("unexpected method %+v", get)
	}
	if !get.Args[1].IsReference || get.Args[1].Default == nil || !get.Args[2].IsVariadic || !get.IsVariadic() {
		t.Errorf("unexpected args")
	}
	if get.Key() != "a::get" {
		t.Errorf("key = %q", get.Key())
	}
	if len(program.Functions) != 2 {
		t.Errorf("methods should be collected as functions, got %d", len(program.Functions))
	}
}

func TestStaticMembersInMethods(t *testing.T) {
	input := `<?php
class Counter {
    const START = 1;
    public static $count = 0;
    public static function make() {
        self::$count = self::START;
        return static::create(self::$count);
    }
    public function same($o) {
        return $o instanceof static;
    }
}`
	program := parse(t, input)
	c := program.Classes[0]
	if len(c.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(c.Methods))
	}

	body := c.Methods[0].Body.Stmts
	assign := body[0].(*ast.ExprStmt).X.(*ast.Assign)
	if p, ok := assign.Target.(*ast.StaticProp); !ok || p.Class != "self" || p.Name != "count" {
		t.Errorf("unexpected assignment target %s", assign.Target)
	}
	if k, ok := assign.Value.(*ast.ClassConst); !ok || k.Class != "self" || k.Name != "START" {
		t.Errorf("unexpected assigned value %s", assign.Value)
	}
	call, ok := body[1].(*ast.Return).Value.(*ast.StaticCall)
	if !ok || call.Class != "static" || call.Name != "create" || len(call.Args) != 1 {
		t.Errorf("unexpected static call %s", body[1])
	}

	same := c.Methods[1].Body.Stmts[0].(*ast.Return)
	if io, ok := same.Value.(*ast.InstanceOf); !ok || io.Class != "static" {
		t.Errorf("unexpected instanceof %s", same)
	}
}

func TestTemplateString(t *testing.T) {
	program := parse(t, `"a $b c {$d->e} $f[0] $g->h \$x";`)
	tpl, ok := program.Main.Body.Stmts[0].(*ast.ExprStmt).X.(*ast.Interpolated)
	if !ok {
		t.Fatalf("expected interpolated string")
	}
	if len(tpl.Parts) != 9 {
		t.Fatalf("expected 9 parts, got %d: %s", len(tpl.Parts), tpl)
	}
	if s := tpl.Parts[0].(*ast.StringLit); s.Value != "a " {
		t.Errorf("part 0 = %q", s.Value)
	}
	if v := tpl.Parts[1].(*ast.Var); v.Name != "b" {
		t.Errorf("part 1 = %s", v)
	}
	if p := tpl.Parts[3].(*ast.Prop); p.Name != "e" {
		t.Errorf("part 3 = %s", p)
	}
	if ix := tpl.Parts[5].(*ast.Index); ix.Index.(*ast.IntLit).Value != 0 {
		t.Errorf("part 5 = %s", ix)
	}
	if s := tpl.Parts[8].(*ast.StringLit); s.Value != " $x" {
		t.Errorf("part 8 = %q", s.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"$a = ;", "no prefix parse function for ;"},
		{"break 0;", "'break' operator accepts only positive integers"},
		{"1 = 2;", "cannot assign to '1'"},
		{"try { }", "try without catch"},
		{"function f($a, $a) {}", "redefinition of parameter $a"},
		{"$a = 1\n$b = 2;", "expected next token to be ;"},
	}

	for _, tt := range tests {
		p := New(lexer.New(tt.input), "test.php", tt.input)
		p.ParseProgram()
		errs := p.Errors()
		if len(errs) == 0 {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		if !strings.Contains(errs[0], tt.message) {
			t.Errorf("%q: expected error containing %q, got %q", tt.input, tt.message, errs[0])
		}
		if !strings.HasPrefix(errs[0], "[") {
			t.Errorf("%q: error should carry a position: %q", tt.input, errs[0])
		}
	}
}

func TestRenderASTAsJSON(t *testing.T) {
	program := parse(t, "function f($x) { return $x * 2; }\necho f(2);")
	out, err := RenderASTAsJSON(program)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{`"type": "Program"`, `"name": "f"`, `"operator": "*"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s", want)
		}
	}
}

func TestParseError(t *testing.T) {
	src := "<?php\n$a = 1;\n$b = ;\n$c = ;\n"
	_, err := Parse("bad.php", src)
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("Parse error = %v, want *Error", err)
	}
	if pe.Line != 3 || len(pe.Msgs) == 0 {
		t.Errorf("first error at line %d, %d messages", pe.Line, len(pe.Msgs))
	}
	if !strings.HasPrefix(err.Error(), "bad.php: parse failed:") {
		t.Errorf("Error() = %q", err.Error())
	}
	if ctx := pe.Context(); !strings.Contains(ctx, ">    3 | $b = ;") || !strings.Contains(ctx, "^ unexpected here") {
		t.Errorf("Context() =\n%s", ctx)
	}
}
