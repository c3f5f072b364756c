package ast_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"quill/internal/ast"
	"quill/internal/engine"
)

// statementBeforeAfter finds the statement directly followed by `echo 'after';`.
func statementBeforeAfter(fn *ast.Function) ast.Statement {
	var found ast.Statement
	search := func(stmts []ast.Statement) {
		for i, s := range stmts {
			echo, ok := s.(*ast.Echo)
			if !ok || i == 0 || len(echo.Args) != 1 {
				continue
			}
			if lit, ok := echo.Args[0].(*ast.StringLit); ok && lit.Value == "after" {
				found = stmts[i-1]
			}
		}
	}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Block:
			search(n.Stmts)
		case *ast.Switch:
			for _, c := range n.Cases {
				search(c.Body)
			}
		}
		return found == nil
	})
	return found
}

func TestFallThrough(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ast.Fallthrough
	}{
		{"while true left by nested break 2", `
while (true) {
    while (true) { break 2; }
}
echo 'after';`, ast.FallsThrough},
		{"while true left past its enclosing loop", `
for ($i = 0; $i < 1; $i++) {
    while (true) {
        while (true) { break 3; }
    }
    echo 'after';
}`, ast.Breaks},
		{"while true left by return", `
$n = 0;
while (true) {
    if (++$n > 3) { return; }
}
echo 'after';`, ast.Returns},
		{"bounded while", `
$n = 0;
while ($n < 2) { $n++; }
echo 'after';`, ast.FallsThrough},
		{"for without condition left by break", `
for (;;) { break; }
echo 'after';`, ast.FallsThrough},
		{"do while false resumed by continue", `
$n = 0;
do {
    $n++;
    if ($n < 3) { continue; }
    return;
} while (false);
echo 'after';`, ast.FallsThrough},
		{"do while true resumed by continue", `
$n = 0;
do {
    $n++;
    if ($n < 3) { continue; }
    return;
} while (true);
echo 'after';`, ast.Returns},
		{"foreach over nothing", `
foreach ([] as $v) { return; }
echo 'after';`, ast.FallsThrough},
		{"switch falling into a returning default", `
$x = 2;
switch ($x) {
case 1:
case 2:
    echo 'two';
default:
    return;
}
echo 'after';`, ast.Returns},
		{"switch with a breaking case", `
$x = 1;
switch ($x) {
case 1:
    break;
default:
    return;
}
echo 'after';`, ast.FallsThrough},
		{"switch without default", `
$x = 5;
switch ($x) {
case 1:
    return;
}
echo 'after';`, ast.FallsThrough},
		{"continue forwarded past a switch", `
for ($i = 0; $i < 2; $i++) {
    switch ($i) {
    default:
        continue;
    }
    echo 'after';
}`, ast.Breaks},
		{"if and else both leave", `
$x = 1;
if ($x) { return; } else { throw new Exception('x'); }
echo 'after';`, ast.Returns},
		{"try and catch both return", `
try { return; } catch (Exception $e) { return; }
echo 'after';`, ast.Returns},
		{"catch falls through", `
try { throw new Exception('x'); } catch (Exception $e) { echo 'caught '; }
echo 'after';`, ast.FallsThrough},
		{"try falls through", `
try { $a = 1; } catch (Exception $e) { return; }
echo 'after';`, ast.FallsThrough},
		{"catch rethrows", `
try { throw new Exception('x'); } catch (Exception $e) { throw $e; }
echo 'after';`, ast.Returns},
	}

	for _, tt := range tests {
		src := fmt.Sprintf("<?php\nfunction f() {%s\n}\ntry { f(); } catch (Exception $e) { echo 'uncaught'; }\necho ' end';\n", tt.body)
		s, err := engine.Load(context.Background(), "fallthrough.php", []byte(src),
			engine.Options{Backend: engine.BackendInterp, Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("%s: load: %v", tt.name, err)
		}
		stmt := statementBeforeAfter(s.Program.Functions[0])
		if stmt == nil {
			t.Fatalf("%s: no statement before echo 'after'", tt.name)
		}
		got := ast.FallThrough(stmt)
		if got != tt.want {
			t.Errorf("%s: FallThrough = %s, want %s", tt.name, got, tt.want)
		}

		var out bytes.Buffer
		if _, err := s.Run(context.Background(), &out); err != nil {
			t.Fatalf("%s: run: %v", tt.name, err)
		}
		if reached := strings.Contains(out.String(), "after"); reached != (got == ast.FallsThrough) {
			t.Errorf("%s: classified %s but echo after reached=%v (output %q)", tt.name, got, reached, out.String())
		}
	}
}
