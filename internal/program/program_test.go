package program

import (
	"testing"

	"quill/internal/ast"
	"quill/internal/parser"
)

func TestFieldRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		vis   ast.Visibility
		owner string
		want  string // owner after decoding
	}{
		{"x", ast.Public, "C", ""},
		{"x", ast.Protected, "C", ProtectedOwner},
		{"x", ast.Private, "C", "C"},
		{"longer_name", ast.Private, "Some\\Class", "Some\\Class"},
	}
	for _, tt := range tests {
		enc := EncodeField(tt.name, tt.vis, tt.owner)
		name, vis, owner := DecodeField(enc)
		if name != tt.name || vis != tt.vis || owner != tt.want {
			t.Errorf("DecodeField(EncodeField(%q, %s, %q)) = (%q, %s, %q)", tt.name, tt.vis, tt.owner, name, vis, owner)
		}
	}

	if !IsPrivate(EncodeField("a", ast.Private, "C")) {
		t.Errorf("private name not recognized")
	}
	if !IsProtected(EncodeField("a", ast.Protected, "C")) {
		t.Errorf("protected name not recognized")
	}
	if !IsPublic(EncodeField("a", ast.Public, "C")) {
		t.Errorf("public name not recognized")
	}
	if IsPublic(EncodeField("a", ast.Private, "C")) || IsPrivate(EncodeField("a", ast.Protected, "C")) {
		t.Errorf("visibility classes overlap")
	}
}

func TestNameMap(t *testing.T) {
	m := NewNameMap[int]()
	if !m.Put("Foo", 1) {
		t.Fatalf("first Put failed")
	}
	if m.Put("FOO", 2) {
		t.Errorf("Put accepted a name differing only in case")
	}
	for _, name := range []string{"Foo", "foo", "fOO"} {
		if v, ok := m.Get(name); !ok || v != 1 {
			t.Errorf("Get(%q) = %d, %v", name, v, ok)
		}
	}
	m.Put("Bar", 3)
	if v, ok := m.Get("BAR"); !ok || v != 3 {
		t.Errorf("Get after lower map was built = %d, %v", v, ok)
	}
	m.Replace("foo", 4)
	if v, _ := m.Get("Foo"); v != 4 {
		t.Errorf("Replace not visible, got %d", v)
	}
	if got := m.Names(); len(got) != 2 || got[0] != "Bar" || got[1] != "foo" {
		t.Errorf("Names() = %v", got)
	}
	if _, ok := m.Get("baz"); ok {
		t.Errorf("Get found a missing name")
	}
}

func TestTraitMap(t *testing.T) {
	src := `<?php
class C {
	use A, B {
		B::hello insteadof A;
		A::hello as helloA;
		world as protected;
	}
}`
	prog, err := parser.Parse("t.php", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := NewClassDef(prog.Classes[0])
	if len(def.Traits) != 2 {
		t.Fatalf("traits = %v", def.Traits)
	}
	tm := def.TraitMap()

	if r := tm.InsteadOf("hello", "B", "A"); r != UseNew {
		t.Errorf("InsteadOf(hello, B, A) = %s", r)
	}
	if r := tm.InsteadOf("HELLO", "a", "b"); r != UseExisting {
		t.Errorf("InsteadOf(HELLO, a, b) = %s", r)
	}
	if r := tm.InsteadOf("other", "A", "B"); r != NoRule {
		t.Errorf("InsteadOf(other, A, B) = %s", r)
	}
	if !tm.Excluded("hello", "A") || tm.Excluded("hello", "B") {
		t.Errorf("Excluded mismatch")
	}

	al := tm.Aliases("hello", "A")
	if len(al) != 1 || al[0].Name != "helloA" {
		t.Errorf("Aliases(hello, A) = %+v", al)
	}
	al = tm.Aliases("world", "B")
	if len(al) != 1 || al[0].Name != "" || !al[0].HasVisibility || al[0].Visibility != ast.Protected {
		t.Errorf("Aliases(world, B) = %+v", al)
	}
}

func TestClassDef(t *testing.T) {
	src := `<?php
abstract class Shape {
	const SIDES = 0;
	public $name = "shape";
	protected $area;
	private $secret = 1;
	static $count = 0;
	function __construct() {}
	function __toString() { return $this->name; }
	abstract function draw();
}`
	prog, err := parser.Parse("t.php", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := NewClassDef(prog.Classes[0])
	if !def.IsAbstract || def.Name != "Shape" {
		t.Errorf("def = %s abstract=%v", def.Name, def.IsAbstract)
	}
	if def.Fields.Len() != 3 || def.StaticFields.Len() != 1 {
		t.Errorf("fields = %d, statics = %d", def.Fields.Len(), def.StaticFields.Len())
	}
	f, ok := def.Fields.Lookup("secret")
	if !ok || f.Canonical != "\x00Shape\x00secret" {
		t.Errorf("secret = %+v", f)
	}
	if _, ok := def.Fields.Get("\x00*\x00area"); !ok {
		t.Errorf("protected area not stored canonically")
	}
	if def.Magic[SlotConstruct] == nil || def.Magic[SlotToString] == nil || def.Magic[SlotGet] != nil {
		t.Errorf("magic slots wired wrongly")
	}
	if _, ok := def.Functions.Get("DRAW"); !ok {
		t.Errorf("method lookup is not case-insensitive")
	}
	if _, ok := def.Consts.Get("SIDES"); !ok {
		t.Errorf("constant missing")
	}
}

func TestMagicSlot(t *testing.T) {
	tests := []struct {
		name string
		slot Magic
		ok   bool
	}{
		{"__construct", SlotConstruct, true},
		{"__CALLSTATIC", SlotCallStatic, true},
		{"__tostring", SlotToString, true},
		{"construct", 0, false},
		{"__other", 0, false},
	}
	for _, tt := range tests {
		slot, ok := MagicSlot(tt.name)
		if ok != tt.ok || (ok && slot != tt.slot) {
			t.Errorf("MagicSlot(%q) = %s, %v", tt.name, slot, ok)
		}
	}
}
