package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"quill/internal/engine"
)

func newSession(t *testing.T, backend string) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := NewSession(context.Background(), engine.Options{Backend: backend}, &out)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, &out
}

func eval(t *testing.T, s *Session, code string) {
	t.Helper()
	if err := s.Eval(code); err != nil {
		t.Fatalf("Eval(%q): %v", code, err)
	}
}

func TestSessionKeepsState(t *testing.T) {
	for _, backend := range []string{engine.BackendInterp, engine.BackendCompile} {
		t.Run(backend, func(t *testing.T) {
			s, out := newSession(t, backend)
			eval(t, s, "$x = 2")
			eval(t, s, "function twice($n) { return $n * 2; }")
			eval(t, s, "class Box { public $v = 7; }")
			eval(t, s, "$b = new Box()")
			eval(t, s, `echo twice($x), "-", $b->v`)
			if got := out.String(); got != "4-7" {
				t.Errorf("output = %q, want %q", got, "4-7")
			}
		})
	}
}

func TestSessionRedeclare(t *testing.T) {
	s, _ := newSession(t, engine.BackendInterp)
	eval(t, s, "function f() { return 1; }")
	err := s.Eval("function f() { return 2; }")
	if err == nil || !strings.Contains(err.Error(), "Cannot redeclare f()") {
		t.Errorf("err = %v", err)
	}
}

func TestSessionDiagnostics(t *testing.T) {
	s, out := newSession(t, engine.BackendInterp)
	eval(t, s, "echo $nope")
	if !strings.Contains(out.String(), "Undefined variable $nope") {
		t.Errorf("output = %q", out.String())
	}
	out.Reset()
	eval(t, s, "echo 1")
	if out.String() != "1" {
		t.Errorf("old diagnostics repeated: %q", out.String())
	}
}

func TestSessionErrorsKeepGoing(t *testing.T) {
	s, out := newSession(t, engine.BackendCompile)
	if err := s.Eval("$a = ;"); err == nil {
		t.Errorf("parse error not reported")
	}
	if err := s.Eval(`throw new Exception("boom")`); err == nil || !strings.Contains(err.Error(), "Uncaught Exception: boom") {
		t.Errorf("err = %v", err)
	}
	eval(t, s, "echo 5")
	if out.String() != "5" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCommands(t *testing.T) {
	s, out := newSession(t, "")
	if _, err := s.Command(":listing"); err == nil {
		t.Errorf(":listing before any input did not fail")
	}
	if _, err := s.Command(":backend"); err != nil || strings.TrimSpace(out.String()) != "interp" {
		t.Errorf(":backend = %q, %v", out.String(), err)
	}
	if _, err := s.Command(":backend compile"); err != nil {
		t.Fatalf(":backend compile: %v", err)
	}
	if _, err := s.Command(":backend jit"); err == nil {
		t.Errorf("unknown backend accepted")
	}
	eval(t, s, "function inc($n) { return $n + 1; }")
	out.Reset()
	if _, err := s.Command(":listing"); err != nil {
		t.Fatalf(":listing: %v", err)
	}
	if !strings.Contains(out.String(), "function inc($n) [fixed/1]") {
		t.Errorf("listing = %s", out.String())
	}
	if _, err := s.Command(":what"); err == nil {
		t.Errorf("unknown command accepted")
	}
	if quit, _ := s.Command(":quit"); !quit {
		t.Errorf(":quit did not quit")
	}
}

func TestBalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"echo 1;", true},
		{"function f() {", false},
		{"function f() {\n return 1;\n}", true},
		{`echo "{";`, true},
		{`echo 'it\'s';`, true},
		{"$a = [1,", false},
	}
	for _, tt := range tests {
		if got := balanced(tt.src); got != tt.want {
			t.Errorf("balanced(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
