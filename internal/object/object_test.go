package object

import (
	"errors"
	"testing"
)

type testClass string

func (c testClass) Name() string         { return string(c) }
func (c testClass) IsA(name string) bool { return string(c) == name }

func TestArrayCopyIsDeep(t *testing.T) {
	inner := NewList(&Int{Value: 1})
	outer := NewArray()
	outer.Set(StrKey("inner"), inner)

	cp := outer.Copy().(*Array)
	c, _ := cp.GetCell(StrKey("inner"))
	c.Value.(*Array).Set(IntKey(0), &Int{Value: 99})

	v, _ := inner.Get(IntKey(0))
	if v.(*Int).Value != 1 {
		t.Errorf("copy shares nested array, original now %s", inner.Inspect())
	}
}

func TestArrayReferencedEntrySurvivesCopy(t *testing.T) {
	a := NewList(&Int{Value: 1}, &Int{Value: 2})
	shared := a.RefCell(IntKey(1))

	cp := a.Copy().(*Array)
	shared.Set(&Int{Value: 20})

	v, _ := cp.Get(IntKey(1))
	if v.(*Int).Value != 20 {
		t.Errorf("referenced entry should be shared by the copy, got %s", v.Inspect())
	}
	a.Set(IntKey(0), &Int{Value: 10})
	if v, _ = cp.Get(IntKey(0)); v.(*Int).Value != 1 {
		t.Errorf("plain entry must not be shared")
	}
}

func TestArrayOrderAndNextIndex(t *testing.T) {
	a := NewArray()
	a.Set(IntKey(5), &String{Value: "five"})
	a.Set(StrKey("x"), &String{Value: "x"})
	k := a.Append(&String{Value: "six"})
	if k != IntKey(6) {
		t.Fatalf("append key = %s, want 6", k)
	}
	a.Delete(IntKey(6))
	if k := a.Append(&String{Value: "seven"}); k != IntKey(7) {
		t.Errorf("next index must not reuse deleted keys, got %s", k)
	}
	for i := 0; i < 10; i++ {
		a.Set(StrKey(string(rune('a'+i))), NULL)
	}
	for i := 0; i < 10; i++ {
		a.Delete(StrKey(string(rune('a' + i))))
	}
	keys := a.Keys()
	want := []Key{IntKey(5), StrKey("x"), IntKey(7)}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		in   Value
		want Key
	}{
		{&Int{Value: 3}, IntKey(3)},
		{&String{Value: "3"}, IntKey(3)},
		{&String{Value: "03"}, StrKey("03")},
		{&String{Value: "-7"}, IntKey(-7)},
		{&String{Value: "1.5"}, StrKey("1.5")},
		{&Float{Value: 2.9}, IntKey(2)},
		{TRUE, IntKey(1)},
		{NULL, StrKey("")},
	}
	for _, tt := range tests {
		got, err := KeyOf(tt.in)
		if err != nil {
			t.Fatalf("KeyOf(%s): %v", tt.in.Inspect(), err)
		}
		if got != tt.want {
			t.Errorf("KeyOf(%s) = %#v, want %#v", tt.in.Inspect(), got, tt.want)
		}
	}
	if _, err := KeyOf(NewArray()); !errors.Is(err, ErrIllegalOffset) {
		t.Errorf("array key should fail, got %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op   func(a, b Value) (Value, error)
		a, b Value
		want string
	}{
		{Add, &Int{Value: 2}, &Int{Value: 3}, "5"},
		{Add, &Int{Value: 2}, &String{Value: "3.5"}, "5.5"},
		{Sub, &Int{Value: 2}, &Float{Value: 0.5}, "1.5"},
		{Mul, &String{Value: "4"}, &Int{Value: 3}, "12"},
		{Div, &Int{Value: 6}, &Int{Value: 3}, "2"},
		{Div, &Int{Value: 7}, &Int{Value: 2}, "3.5"},
		{Mod, &Int{Value: 7}, &Int{Value: 3}, "1"},
		{Add, &Int{Value: 9223372036854775807}, &Int{Value: 1}, "9.2233720368548E+18"},
	}
	for i, tt := range tests {
		got, err := tt.op(tt.a, tt.b)
		if err != nil {
			t.Fatalf("test %d: %v", i, err)
		}
		if s := ToString(got); s != tt.want {
			t.Errorf("test %d: got %s, want %s", i, s, tt.want)
		}
	}

	if _, err := Div(&Int{Value: 1}, &Int{Value: 0}); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
	if _, err := Mod(&Int{Value: 1}, &Int{Value: 0}); !errors.Is(err, ErrModuloByZero) {
		t.Errorf("expected modulo by zero, got %v", err)
	}
	if _, err := Add(NewArray(), &Int{Value: 1}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported operands, got %v", err)
	}
}

func TestArrayUnion(t *testing.T) {
	a := NewList(&Int{Value: 1})
	b := NewList(&Int{Value: 7}, &Int{Value: 8})
	u, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Inspect(); got != "[0 => 1, 1 => 8]" {
		t.Errorf("union = %s", got)
	}
}

func TestLooseAndStrictEquality(t *testing.T) {
	obj := NewObject(testClass("A"))
	tests := []struct {
		a, b          Value
		loose, strict bool
	}{
		{&Int{Value: 1}, &String{Value: "1"}, true, false},
		{&Int{Value: 0}, &String{Value: "a"}, false, false},
		{&String{Value: "1e1"}, &String{Value: "10"}, true, false},
		{NULL, FALSE, true, false},
		{NULL, &String{Value: ""}, true, false},
		{&Float{Value: 1.0}, &Int{Value: 1}, true, false},
		{NewList(&Int{Value: 1}), NewList(&String{Value: "1"}), true, false},
		{NewList(&Int{Value: 1}), NewList(&Int{Value: 1}), true, true},
		{obj, obj, true, true},
		{obj, NewObject(testClass("B")), false, false},
		{NewObject(testClass("A")), NewObject(testClass("A")), true, false},
	}
	for i, tt := range tests {
		if got := LooseEquals(tt.a, tt.b); got != tt.loose {
			t.Errorf("test %d: %s == %s = %v", i, tt.a.Inspect(), tt.b.Inspect(), got)
		}
		if got := StrictEquals(tt.a, tt.b); got != tt.strict {
			t.Errorf("test %d: %s === %s = %v", i, tt.a.Inspect(), tt.b.Inspect(), got)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
	}{
		{&Int{Value: 1}, &Int{Value: 2}, -1},
		{&String{Value: "abc"}, &String{Value: "abd"}, -1},
		{&String{Value: "10"}, &String{Value: "9"}, 1},
		{&Int{Value: 5}, &String{Value: "5"}, 0},
		{TRUE, &Int{Value: 0}, 1},
		{NewList(&Int{Value: 1}), NewList(&Int{Value: 1}, &Int{Value: 2}), -1},
	}
	for i, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("test %d: Compare(%s, %s) = %d, want %d", i, tt.a.Inspect(), tt.b.Inspect(), got, tt.want)
		}
	}
}

func TestConversions(t *testing.T) {
	if ToBool(&String{Value: "0"}) || ToBool(NewArray()) || !ToBool(&String{Value: "0.0"}) {
		t.Errorf("string/array truthiness wrong")
	}
	if ToInt(&String{Value: "  12abc"}) != 12 {
		t.Errorf("leading numeric prefix not honoured")
	}
	if !IsNumeric(&String{Value: " 1.5e3 "}) || IsNumeric(&String{Value: "1.5x"}) {
		t.Errorf("numeric string detection wrong")
	}
	floats := map[float64]string{
		0.1 + 0.2: "0.3",
		10:        "10",
		-2.5:      "-2.5",
		1e20:      "1.0E+20",
		1.5e-7:    "1.5E-7",
	}
	for f, want := range floats {
		if got := FormatFloat(f); got != want {
			t.Errorf("FormatFloat(%v) = %s, want %s", f, got, want)
		}
	}
}

func TestScope(t *testing.T) {
	s := NewScope()
	a := s.Cell("a")
	a.Set(&Int{Value: 1})
	s.Bind("b", a)
	s.Cell("c")

	if c, _ := s.Get("b"); c != a {
		t.Errorf("bound names should alias one cell")
	}
	s.Unset("a")
	if _, ok := s.Get("a"); ok {
		t.Errorf("unset name still bound")
	}
	if b, _ := s.Get("b"); b.Get().(*Int).Value != 1 {
		t.Errorf("unset must only drop the name")
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "c" {
		t.Errorf("names = %v", names)
	}
}
