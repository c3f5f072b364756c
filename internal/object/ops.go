package object

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrModuloByZero   = errors.New("modulo by zero")
	ErrIllegalOffset  = errors.New("illegal offset type")
	ErrUnsupported    = errors.New("unsupported operand types")
)

func ToBool(v Value) bool {
	switch v := v.(type) {
	case *Null:
		return false
	case *Bool:
		return v.Value
	case *Int:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *String:
		return v.Value != "" && v.Value != "0"
	case *Array:
		return v.Len() > 0
	}
	return true
}

func ToInt(v Value) int64 {
	switch v := v.(type) {
	case *Null:
		return 0
	case *Bool:
		if v.Value {
			return 1
		}
		return 0
	case *Int:
		return v.Value
	case *Float:
		return floatToInt(v.Value)
	case *String:
		n, _ := numericPrefix(v.Value)
		return ToInt(n)
	case *Array:
		if v.Len() > 0 {
			return 1
		}
		return 0
	}
	return 1
}

func floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

func ToFloat(v Value) float64 {
	switch v := v.(type) {
	case *Int:
		return float64(v.Value)
	case *Float:
		return v.Value
	case *String:
		n, _ := numericPrefix(v.Value)
		return ToFloat(n)
	}
	return float64(ToInt(v))
}

// ToNumber converts for arithmetic: the result is an *Int or a *Float.
func ToNumber(v Value) Value {
	switch v := v.(type) {
	case *Int, *Float:
		return v
	case *String:
		n, _ := numericPrefix(v.Value)
		return n
	}
	return &Int{Value: ToInt(v)}
}

// ToString converts a non-object value. Objects are stringified by the runtime through __toString.
func ToString(v Value) string {
	switch v := v.(type) {
	case *Null:
		return ""
	case *Bool:
		if v.Value {
			return "1"
		}
		return ""
	case *Int:
		return strconv.FormatInt(v.Value, 10)
	case *Float:
		return FormatFloat(v.Value)
	case *String:
		return v.Value
	case *Array:
		return "Array"
	case *Object:
		return v.Class.Name()
	}
	return ""
}

// FormatFloat renders a float with 14 significant digits.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		if f == 0 {
			return "0"
		}
		return strconv.FormatInt(int64(f), 10)
	}
	s := strconv.FormatFloat(f, 'G', 14, 64)
	if i := strings.IndexByte(s, 'E'); i >= 0 {
		mant, exp := s[:i], s[i+1:]
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		if exp[0] != '-' && exp[0] != '+' {
			exp = "+" + exp
		}
		exp = exp[:1] + strings.TrimLeft(exp[1:], "0")
		return mant + "E" + exp
	}
	return s
}

// numericPrefix parses the leading number of s; whole reports whether s is entirely numeric
// apart from surrounding whitespace.
func numericPrefix(s string) (Value, bool) {
	t := strings.TrimLeft(s, " \t\n\r\v\f")
	i := 0
	if i < len(t) && (t[i] == '+' || t[i] == '-') {
		i++
	}
	digits := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
		digits++
	}
	isFloat := false
	if i < len(t) && t[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(t) && t[j] >= '0' && t[j] <= '9' {
			j++
			frac++
		}
		if digits+frac > 0 {
			isFloat = true
			digits += frac
			i = j
		}
	}
	if digits == 0 {
		return &Int{Value: 0}, false
	}
	if i < len(t) && (t[i] == 'e' || t[i] == 'E') {
		j := i + 1
		if j < len(t) && (t[j] == '+' || t[j] == '-') {
			j++
		}
		if j < len(t) && t[j] >= '0' && t[j] <= '9' {
			for j < len(t) && t[j] >= '0' && t[j] <= '9' {
				j++
			}
			isFloat = true
			i = j
		}
	}
	num := t[:i]
	whole := strings.TrimRight(t[i:], " \t\n\r\v\f") == ""
	if !isFloat {
		if n, err := strconv.ParseInt(num, 10, 64); err == nil {
			return &Int{Value: n}, whole
		}
	}
	f, _ := strconv.ParseFloat(num, 64)
	return &Float{Value: f}, whole
}

// IsNumeric reports whether v is a number or a numeric string.
func IsNumeric(v Value) bool {
	switch v := v.(type) {
	case *Int, *Float:
		return true
	case *String:
		_, whole := numericPrefix(v.Value)
		return whole
	}
	return false
}

// KeyOf normalizes a value used as an array key.
func KeyOf(v Value) (Key, error) {
	switch v := v.(type) {
	case *Int:
		return IntKey(v.Value), nil
	case *String:
		if n, ok := canonicalInt(v.Value); ok {
			return IntKey(n), nil
		}
		return StrKey(v.Value), nil
	case *Bool:
		if v.Value {
			return IntKey(1), nil
		}
		return IntKey(0), nil
	case *Float:
		return IntKey(floatToInt(v.Value)), nil
	case *Null:
		return StrKey(""), nil
	}
	return Key{}, ErrIllegalOffset
}

// canonicalInt accepts decimal integers without leading zeros or a plus sign.
func canonicalInt(s string) (int64, bool) {
	if s == "" || len(s) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

func Add(a, b Value) (Value, error) {
	if aa, ok := a.(*Array); ok {
		ba, ok := b.(*Array)
		if !ok {
			return nil, ErrUnsupported
		}
		out := aa.Copy().(*Array)
		ba.Each(func(k Key, c *Cell) bool {
			if !out.Has(k) {
				out.Set(k, c.Value.Copy())
			}
			return true
		})
		return out, nil
	}
	if _, ok := b.(*Array); ok {
		return nil, ErrUnsupported
	}
	return arith('+', a, b)
}

func Sub(a, b Value) (Value, error) { return arith('-', a, b) }
func Mul(a, b Value) (Value, error) { return arith('*', a, b) }

func Div(a, b Value) (Value, error) {
	x, y := ToNumber(a), ToNumber(b)
	if ToFloat(y) == 0 {
		return nil, ErrDivisionByZero
	}
	if xi, ok := x.(*Int); ok {
		if yi, ok := y.(*Int); ok && xi.Value%yi.Value == 0 && !(xi.Value == math.MinInt64 && yi.Value == -1) {
			return &Int{Value: xi.Value / yi.Value}, nil
		}
	}
	return &Float{Value: ToFloat(x) / ToFloat(y)}, nil
}

func Mod(a, b Value) (Value, error) {
	y := ToInt(b)
	if y == 0 {
		return nil, ErrModuloByZero
	}
	if y == -1 {
		return &Int{Value: 0}, nil
	}
	return &Int{Value: ToInt(a) % y}, nil
}

func arith(op byte, a, b Value) (Value, error) {
	if isNonNumeric(a) || isNonNumeric(b) {
		return nil, ErrUnsupported
	}
	x, y := ToNumber(a), ToNumber(b)
	xi, xok := x.(*Int)
	yi, yok := y.(*Int)
	if xok && yok {
		if r, ok := intArith(op, xi.Value, yi.Value); ok {
			return &Int{Value: r}, nil
		}
	}
	fx, fy := ToFloat(x), ToFloat(y)
	switch op {
	case '+':
		return &Float{Value: fx + fy}, nil
	case '-':
		return &Float{Value: fx - fy}, nil
	default:
		return &Float{Value: fx * fy}, nil
	}
}

func isNonNumeric(v Value) bool {
	switch v.(type) {
	case *Array, *Object:
		return true
	}
	return false
}

// intArith reports false on overflow, the operation then runs in floating point.
func intArith(op byte, a, b int64) (int64, bool) {
	switch op {
	case '+':
		r := a + b
		return r, !((a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r >= 0))
	case '-':
		r := a - b
		return r, !((a >= 0 && b < 0 && r < 0) || (a < 0 && b > 0 && r >= 0))
	default:
		if a == 0 || b == 0 {
			return 0, true
		}
		r := a * b
		return r, r/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
	}
}

func Negate(v Value) (Value, error) {
	return arith('*', &Int{Value: -1}, v)
}

// Compare is the loose three-way comparison. Uncomparable pairs order as 1.
func Compare(a, b Value) int {
	switch {
	case isNull(a) && isNull(b):
		return 0
	case isBool(a) || isBool(b) || isNull(a) && !isString(b) || isNull(b) && !isString(a):
		return cmpBool(ToBool(a), ToBool(b))
	}

	switch x := a.(type) {
	case *String:
		switch y := b.(type) {
		case *String:
			xn, xw := numericPrefix(x.Value)
			yn, yw := numericPrefix(y.Value)
			if xw && yw {
				return cmpNumber(xn, yn)
			}
			return cmpInt(strings.Compare(x.Value, y.Value))
		case *Null:
			return cmpInt(strings.Compare(x.Value, ""))
		case *Int, *Float:
			return -compareNumberString(y, x.Value)
		}
	case *Null:
		if y, ok := b.(*String); ok {
			return cmpInt(strings.Compare("", y.Value))
		}
	case *Int, *Float:
		switch y := b.(type) {
		case *Int, *Float:
			return cmpNumber(x, y)
		case *String:
			return compareNumberString(x, y.Value)
		}
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return 1
		}
		return compareArrays(x, y)
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Class.Name() != y.Class.Name() {
			return 1
		}
		if x == y {
			return 0
		}
		return compareTables(x.Fields, y.Fields)
	}
	if _, ok := b.(*Array); ok {
		return -1
	}
	return 1
}

func compareNumberString(n Value, s string) int {
	if sn, whole := numericPrefix(s); whole {
		return cmpNumber(n, sn)
	}
	return cmpInt(strings.Compare(ToString(n), s))
}

func compareArrays(x, y *Array) int {
	if x.Len() != y.Len() {
		return cmpInt(x.Len() - y.Len())
	}
	return compareTables(x.Table, y.Table)
}

func compareTables(x, y *Table) int {
	if x.Len() != y.Len() {
		return cmpInt(x.Len() - y.Len())
	}
	result := 0
	x.Each(func(k Key, c *Cell) bool {
		other, ok := y.Get(k)
		if !ok {
			result = 1
			return false
		}
		result = Compare(c.Value, other)
		return result == 0
	})
	return result
}

func cmpNumber(a, b Value) int {
	if ai, ok := a.(*Int); ok {
		if bi, ok := b.(*Int); ok {
			switch {
			case ai.Value < bi.Value:
				return -1
			case ai.Value > bi.Value:
				return 1
			}
			return 0
		}
	}
	fa, fb := ToFloat(a), ToFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

func cmpInt(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}

func isNull(v Value) bool {
	_, ok := v.(*Null)
	return ok
}

func isBool(v Value) bool {
	_, ok := v.(*Bool)
	return ok
}

func isString(v Value) bool {
	_, ok := v.(*String)
	return ok
}

// LooseEquals is ==.
func LooseEquals(a, b Value) bool {
	if x, ok := a.(*Object); ok {
		if y, ok := b.(*Object); ok {
			if x == y {
				return true
			}
			if x.Class.Name() != y.Class.Name() {
				return false
			}
		}
	}
	if x, ok := a.(*Array); ok {
		y, ok := b.(*Array)
		if !ok {
			if isBool(b) || isNull(b) {
				return ToBool(a) == ToBool(b)
			}
			return false
		}
		if x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Each(func(k Key, c *Cell) bool {
			other, ok := y.Get(k)
			equal = ok && LooseEquals(c.Value, other)
			return equal
		})
		return equal
	}
	if _, ok := b.(*Array); ok {
		return LooseEquals(b, a)
	}
	return Compare(a, b) == 0
}

// StrictEquals is ===.
func StrictEquals(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case *Null:
		return true
	case *Bool:
		return x.Value == b.(*Bool).Value
	case *Int:
		return x.Value == b.(*Int).Value
	case *Float:
		return x.Value == b.(*Float).Value
	case *String:
		return x.Value == b.(*String).Value
	case *Array:
		y := b.(*Array)
		if x.Len() != y.Len() {
			return false
		}
		xk, yk := x.Keys(), y.Keys()
		for i := range xk {
			if xk[i] != yk[i] {
				return false
			}
			xv, _ := x.Get(xk[i])
			yv, _ := y.Get(yk[i])
			if !StrictEquals(xv, yv) {
				return false
			}
		}
		return true
	case *Object:
		return x == b.(*Object)
	}
	return false
}

// TypeName is the guest facing type name used in diagnostics.
func TypeName(v Value) string {
	switch v := v.(type) {
	case *Null:
		return "null"
	case *Bool:
		return "bool"
	case *Int:
		return "int"
	case *Float:
		return "float"
	case *String:
		return "string"
	case *Array:
		return "array"
	case *Object:
		return v.Class.Name()
	}
	return fmt.Sprintf("%T", v)
}
