package store

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dsn := "sqlite3://" + filepath.Join(t.TempDir(), "artifacts.db")
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open(%s): %v", dsn, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("<?php echo 1;"))
	b := Fingerprint([]byte("<?php echo 2;"))
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(a))
	}
	if a == b {
		t.Fatalf("different sources share fingerprint %s", a)
	}
	if a != Fingerprint([]byte("<?php echo 1;")) {
		t.Fatalf("fingerprint is not stable")
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	sc := &Script{
		Fingerprint: Fingerprint([]byte("src")),
		File:        "test.php",
		Backend:     "compile",
		Routines: []Routine{
			{Name: "add", Signature: "fixed/2", Listing: "function add($a, $b) [fixed/2]\n"},
			{Name: "{main}", Signature: "variadic", Listing: "function {main}() [variadic]\n"},
		},
		Vars: []Var{
			{Function: "add", Name: "a", Flags: "arg 0, read-only"},
			{Function: "add", Name: "b", Flags: "arg 1, read-only"},
		},
	}
	if err := s.SaveScript(ctx, sc); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	routines, err := s.LoadRoutines(ctx, sc.Fingerprint)
	if err != nil {
		t.Fatalf("LoadRoutines: %v", err)
	}
	if !reflect.DeepEqual(routines, sc.Routines) {
		t.Errorf("routines = %+v, want %+v", routines, sc.Routines)
	}
	vars, err := s.LoadVars(ctx, sc.Fingerprint)
	if err != nil {
		t.Fatalf("LoadVars: %v", err)
	}
	if !reflect.DeepEqual(vars, sc.Vars) {
		t.Errorf("vars = %+v, want %+v", vars, sc.Vars)
	}

	// saving again replaces
	sc.Routines = sc.Routines[1:]
	if err := s.SaveScript(ctx, sc); err != nil {
		t.Fatalf("second SaveScript: %v", err)
	}
	routines, err = s.LoadRoutines(ctx, sc.Fingerprint)
	if err != nil {
		t.Fatalf("LoadRoutines: %v", err)
	}
	if len(routines) != 1 || routines[0].Name != "{main}" {
		t.Errorf("routines after replace = %+v", routines)
	}

	none, err := s.LoadRoutines(ctx, Fingerprint([]byte("other")))
	if err != nil || len(none) != 0 {
		t.Errorf("unknown fingerprint: %v, %v", none, err)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"artifacts.db", "no scheme"},
		{"redis://localhost", "unsupported scheme"},
		{"mysql://user@nohost(", "bad mysql DSN"},
	}
	for _, tt := range tests {
		_, err := Open(context.Background(), tt.dsn)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Open(%q) error = %v, want %q", tt.dsn, err, tt.want)
		}
	}
}

func TestQueryDialects(t *testing.T) {
	tests := []struct {
		d    dialect
		want string
	}{
		{dialectSQLite, `SELECT name FROM "quill_routines" WHERE fingerprint = ? AND name = ?`},
		{dialectMySQL, "SELECT name FROM `quill_routines` WHERE fingerprint = ? AND name = ?"},
		{dialectPostgres, `SELECT name FROM "quill_routines" WHERE fingerprint = $1 AND name = $2`},
	}
	for _, tt := range tests {
		s := &Store{dialect: tt.d}
		if got := s.query("SELECT name FROM {routines} WHERE fingerprint = ? AND name = ?"); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestDiff(t *testing.T) {
	stored := []Var{{"f", "a", "arg 0"}, {"f", "b", ""}, {"g", "x", "ref"}}
	fresh := []Var{{"f", "a", "arg 0"}, {"f", "b", "ref"}, {"g", "y", ""}}
	got := Diff(stored, fresh)
	want := []string{`f $b: "ref", was ""`, "g $y: new", "g $x: gone"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff = %q, want %q", got, want)
	}
	if d := Diff(stored, stored); len(d) != 0 {
		t.Errorf("Diff of equal analyses = %q", d)
	}
}
